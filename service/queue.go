package service

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"SeriesVideo-server/config"

	"github.com/hibiken/asynq"
)

const (
	TypeGenerateVideo = "video:generate"

	// QueueVideos is the asynq queue generation jobs run on.
	QueueVideos = "videos"
)

// GeneratePayload identifies one video of a series run.
type GeneratePayload struct {
	SeriesID    string `json:"series_id"`
	VideoID     string `json:"video_id"`
	VideoIndex  int    `json:"video_index"`
	TotalVideos int    `json:"total_videos"`
}

var QueueClient *asynq.Client

func redisOpt() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     config.AppConfig.Redis.Addr,
		Password: config.AppConfig.Redis.Password,
	}
}

// InitQueue connects the enqueue side to Redis.
func InitQueue() {
	QueueClient = asynq.NewClient(redisOpt())
}

func newGenerateTask(p GeneratePayload) (*asynq.Task, error) {
	payload, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal payload failed: %w", err)
	}
	return asynq.NewTask(TypeGenerateVideo, payload,
		asynq.Queue(QueueVideos),
		asynq.TaskID("video:"+p.VideoID),
		asynq.MaxRetry(3),
		asynq.Timeout(30*time.Minute),
		asynq.Retention(24*time.Hour),
	), nil
}

func decodePayload(t *asynq.Task) (GeneratePayload, error) {
	var p GeneratePayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return p, fmt.Errorf("json.Unmarshal failed: %v: %w", err, asynq.SkipRetry)
	}
	if p.SeriesID == "" || p.VideoID == "" {
		return p, fmt.Errorf("payload missing series or video id: %w", asynq.SkipRetry)
	}
	return p, nil
}

// EnqueueGenerate queues the generation of one video. Videos of a series are
// chained: the worker enqueues the next pending one when a run finishes.
func EnqueueGenerate(p GeneratePayload) error {
	task, err := newGenerateTask(p)
	if err != nil {
		return err
	}
	info, err := QueueClient.Enqueue(task)
	if err != nil {
		return fmt.Errorf("enqueue failed: %w", err)
	}
	log.Printf("[Queue] video enqueued: series=%s video=%s index=%d job=%s", p.SeriesID, p.VideoID, p.VideoIndex, info.ID)
	return nil
}
