package progress

import (
	"context"
	"log"
	"time"
)

// Tracker stamps and stores progress snapshots and applies the staleness rule
// for pollers. A new write for a series replaces the previous one.
type Tracker struct {
	store Store
	now   func() time.Time
}

func NewTracker(store Store) *Tracker {
	return &Tracker{store: store, now: time.Now}
}

// NewTrackerWithClock is used by tests to control time.
func NewTrackerWithClock(store Store, now func() time.Time) *Tracker {
	return &Tracker{store: store, now: now}
}

// Update writes a snapshot; errors are logged and returned so the caller can
// decide, but the pipeline treats progress as advisory.
func (t *Tracker) Update(ctx context.Context, s Status) error {
	s.Timestamp = t.now().UnixMilli()
	if s.Percentage < 0 {
		s.Percentage = 0
	}
	if s.Percentage > 100 {
		s.Percentage = 100
	}
	if err := t.store.Set(ctx, s); err != nil {
		log.Printf("[progress] update %s failed: %v", s.SeriesID, err)
		return err
	}
	return nil
}

// Get returns the latest snapshot or nil. Staleness is left to the caller.
func (t *Tracker) Get(ctx context.Context, seriesID string) (*Status, error) {
	return t.store.Get(ctx, seriesID)
}

// Clear removes the snapshot for a series.
func (t *Tracker) Clear(ctx context.Context, seriesID string) error {
	return t.store.Delete(ctx, seriesID)
}

// Poll builds the client payload: not generating when absent or stale.
func (t *Tracker) Poll(ctx context.Context, seriesID string) (Poll, error) {
	s, err := t.store.Get(ctx, seriesID)
	if err != nil {
		return Poll{}, err
	}
	if s == nil {
		return Poll{Generating: false, Message: MessageIdle}, nil
	}
	if s.IsStale(t.now()) {
		return Poll{Generating: false, Message: MessageTimedOut}, nil
	}
	return Poll{
		Generating:   true,
		CurrentStep:  s.CurrentStep,
		CurrentVideo: s.CurrentVideo,
		TotalVideos:  s.TotalVideos,
		Percentage:   s.Percentage,
		Message:      s.Message,
	}, nil
}
