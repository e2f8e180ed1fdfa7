package progress

import "time"

// StaleAfter is how long a snapshot stays "generating" without a fresh update.
const StaleAfter = 5 * time.Minute

// Status is one progress snapshot for a series. Stores keep values, never
// pointers, so a reader can not observe a half-written update.
type Status struct {
	SeriesID     string `json:"seriesId"`
	CurrentStep  string `json:"currentStep"`
	CurrentVideo int    `json:"currentVideo"`
	TotalVideos  int    `json:"totalVideos"`
	Percentage   int    `json:"percentage"`
	Message      string `json:"message"`
	// Timestamp is epoch milliseconds of the write.
	Timestamp int64 `json:"timestamp"`
}

// IsStale reports whether the snapshot is older than StaleAfter at now.
func (s Status) IsStale(now time.Time) bool {
	return now.UnixMilli()-s.Timestamp > StaleAfter.Milliseconds()
}

// Poll is the payload served to clients polling a series.
type Poll struct {
	Generating   bool   `json:"generating"`
	CurrentStep  string `json:"currentStep,omitempty"`
	CurrentVideo int    `json:"currentVideo,omitempty"`
	TotalVideos  int    `json:"totalVideos,omitempty"`
	Percentage   int    `json:"percentage,omitempty"`
	Message      string `json:"message"`
}

const (
	MessageIdle     = "no active generation"
	MessageTimedOut = "generation timed out"
)
