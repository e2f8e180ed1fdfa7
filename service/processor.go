package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"

	"SeriesVideo-server/models"
	"SeriesVideo-server/pipeline"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// Processor consumes generation jobs.
type Processor struct {
	DB        *gorm.DB
	Generator *pipeline.Generator
}

func NewProcessor(db *gorm.DB, gen *pipeline.Generator) *Processor {
	return &Processor{DB: db, Generator: gen}
}

// StartProcessor runs the asynq server in the background.
func (p *Processor) StartProcessor(concurrency int) {
	srv := asynq.NewServer(
		redisOpt(),
		asynq.Config{
			Concurrency: concurrency,
			Queues: map[string]int{
				QueueVideos: 1,
			},
		},
	)
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeGenerateVideo, p.HandleGenerateVideo)

	log.Printf("[worker] starting with concurrency %d", concurrency)
	go func() {
		if err := srv.Run(mux); err != nil {
			log.Fatalf("could not run worker: %v", err)
		}
	}()
}

// HandleGenerateVideo renders one video and chains the next pending one of
// the same series.
func (p *Processor) HandleGenerateVideo(ctx context.Context, t *asynq.Task) error {
	payload, err := decodePayload(t)
	if err != nil {
		return err
	}

	series, err := models.GetSeriesByID(payload.SeriesID)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("series %s not found: %w", payload.SeriesID, asynq.SkipRetry)
	}
	if err != nil {
		return fmt.Errorf("load series: %w", err)
	}
	video, err := models.GetVideoByIDGorm(p.DB, payload.VideoID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("video %s not found: %w", payload.VideoID, asynq.SkipRetry)
	}
	if err != nil {
		return fmt.Errorf("load video: %w", err)
	}
	if video.Status == models.VideoStatusReady || video.Status == models.VideoStatusFailed {
		log.Printf("[worker] video %s already %s, skipping", video.ID, video.Status)
		p.chainNext(series.ID, payload.TotalVideos)
		return nil
	}

	log.Printf("[worker] series %s: video %d (%s)", series.ID, payload.VideoIndex+1, video.ID)
	if err := video.UpdateStatus(p.DB, models.VideoStatusProcessing, ""); err != nil {
		log.Printf("[worker] mark processing failed: %v", err)
	}

	res, err := p.Generator.Generate(ctx, GenerationConfigFromSeries(series), payload.VideoIndex, payload.TotalVideos)
	if err != nil {
		retried, _ := asynq.GetRetryCount(ctx)
		maxRetry, _ := asynq.GetMaxRetry(ctx)
		action := decideFailure(err, retried, maxRetry)
		if errors.Is(err, context.Canceled) {
			log.Printf("[worker] series %s canceled", series.ID)
		}
		if uerr := video.UpdateStatus(p.DB, action.VideoStatus, action.message(err)); uerr != nil {
			log.Printf("[worker] update video status failed: %v", uerr)
		}
		if action.CancelRest {
			if cerr := models.CancelOpenVideos(p.DB, series.ID, err.Error()); cerr != nil {
				log.Printf("[worker] cancel remaining videos failed: %v", cerr)
			}
			p.finishSeries(series.ID)
		}
		if action.Chain {
			p.chainNext(series.ID, payload.TotalVideos)
		}
		return action.taskError(err)
	}

	result, err := publish(ctx, series.ID, res)
	if err != nil {
		log.Printf("[worker] publish failed: %v", err)
		_ = video.UpdateStatus(p.DB, models.VideoStatusFailed, err.Error())
		p.chainNext(series.ID, payload.TotalVideos)
		return nil
	}
	if err := video.MarkReady(p.DB, res.Title, res.DurationLabel, result); err != nil {
		log.Printf("[worker] mark ready failed: %v", err)
	}
	log.Printf("[worker] video %s ready: %q (%s)", video.ID, res.Title, res.DurationLabel)
	p.chainNext(series.ID, payload.TotalVideos)
	return nil
}

// failureAction is what the worker does with a failed generation.
type failureAction struct {
	VideoStatus string
	// CancelRest fails the series' remaining pending videos.
	CancelRest bool
	// Chain enqueues the next pending video.
	Chain bool
	// Retry hands the error back to asynq for another attempt.
	Retry bool
	// SkipRetry archives the task without further attempts.
	SkipRetry bool
}

// decideFailure maps a generation error to the worker's response. retried and
// maxRetry come from the asynq task context.
func decideFailure(err error, retried, maxRetry int) failureAction {
	switch {
	case errors.Is(err, pipeline.ErrGenerationInProgress):
		if retried < maxRetry {
			return failureAction{VideoStatus: models.VideoStatusPending, Retry: true}
		}
		// Last attempt: a pending video with no task would block the series.
		return failureAction{VideoStatus: models.VideoStatusFailed, Chain: true}
	case pipeline.IsConfigError(err):
		return failureAction{VideoStatus: models.VideoStatusFailed, CancelRest: true, SkipRetry: true}
	default:
		return failureAction{VideoStatus: models.VideoStatusFailed, Chain: true}
	}
}

func (a failureAction) message(err error) string {
	if a.VideoStatus == models.VideoStatusPending {
		return ""
	}
	return err.Error()
}

func (a failureAction) taskError(err error) error {
	switch {
	case a.Retry:
		return err
	case a.SkipRetry:
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	return nil
}

// publish uploads the artifacts when object storage is on; otherwise the
// local paths are recorded.
func publish(ctx context.Context, seriesID string, res *pipeline.Result) (models.VideoResult, error) {
	result := models.VideoResult{DurationSeconds: res.DurationSeconds}
	if !StorageEnabled() {
		result.VideoPath = res.VideoPath
		result.ThumbnailPath = res.ThumbnailPath
		return result, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		u, err := UploadFile(gctx, res.VideoPath, objectName(seriesID, res.VideoPath))
		result.VideoURL = u
		return err
	})
	g.Go(func() error {
		u, err := UploadFile(gctx, res.ThumbnailPath, objectName(seriesID, res.ThumbnailPath))
		result.ThumbnailURL = u
		return err
	})
	if err := g.Wait(); err != nil {
		return result, err
	}
	for _, path := range []string{res.VideoPath, res.ThumbnailPath} {
		if err := os.Remove(path); err != nil {
			log.Printf("[worker] remove %s: %v", path, err)
		}
	}
	return result, nil
}

func (p *Processor) chainNext(seriesID string, totalVideos int) {
	next, err := models.NextPendingVideo(p.DB, seriesID)
	if err != nil {
		log.Printf("[worker] lookup next video failed: %v", err)
		return
	}
	if next == nil {
		p.finishSeries(seriesID)
		return
	}
	err = EnqueueGenerate(GeneratePayload{
		SeriesID:    seriesID,
		VideoID:     next.ID,
		VideoIndex:  next.VideoIndex,
		TotalVideos: totalVideos,
	})
	if err != nil {
		log.Printf("[worker] enqueue next video failed: %v", err)
	}
}

func (p *Processor) finishSeries(seriesID string) {
	ready, err := models.CountVideosByStatus(p.DB, seriesID, models.VideoStatusReady)
	if err != nil {
		log.Printf("[worker] count ready videos failed: %v", err)
		return
	}
	status := models.SeriesStatusReady
	if ready == 0 {
		status = models.SeriesStatusFailed
	}
	if err := models.UpdateSeriesStatus(seriesID, status); err != nil {
		log.Printf("[worker] update series status failed: %v", err)
	}
	log.Printf("[worker] series %s finished: %s", seriesID, status)
}
