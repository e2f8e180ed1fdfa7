package progress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "progress:series:"

// RedisStore shares snapshots between the API process and asynq workers.
// Entries carry no TTL; staleness is judged by readers and removal is explicit.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects and pings the server.
func NewRedisStore(ctx context.Context, addr, password string) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return &RedisStore{client: client}, nil
}

func redisKey(seriesID string) string {
	return redisKeyPrefix + seriesID
}

func (r *RedisStore) Get(ctx context.Context, seriesID string) (*Status, error) {
	raw, err := r.client.Get(ctx, redisKey(seriesID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error reading progress: %w", err)
	}
	var s Status
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("error decoding progress: %w", err)
	}
	return &s, nil
}

// Set replaces the whole snapshot in one SET, so readers see old or new, never a mix.
func (r *RedisStore) Set(ctx context.Context, status Status) error {
	data, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("failed to marshal progress: %w", err)
	}
	if err := r.client.Set(ctx, redisKey(status.SeriesID), data, 0).Err(); err != nil {
		return fmt.Errorf("error writing progress: %w", err)
	}
	return nil
}

func (r *RedisStore) Delete(ctx context.Context, seriesID string) error {
	if err := r.client.Del(ctx, redisKey(seriesID)).Err(); err != nil {
		return fmt.Errorf("error deleting progress: %w", err)
	}
	return nil
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}
