package syncer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hylla/tavla/internal/app"
)

// Redis default key and channel names.
const (
	DefaultRedisKey     = "tavla:snapshot"
	DefaultRedisChannel = "tavla:sync"
)

// Redis stores the latest snapshot under a key and announces it on a channel
// so other boards can reload.
type Redis struct {
	client  *redis.Client
	key     string
	channel string
}

// NewRedis wraps an existing client. Empty key or channel use the defaults.
func NewRedis(client *redis.Client, key, channel string) *Redis {
	key = strings.TrimSpace(key)
	if key == "" {
		key = DefaultRedisKey
	}
	channel = strings.TrimSpace(channel)
	if channel == "" {
		channel = DefaultRedisChannel
	}
	return &Redis{client: client, key: key, channel: channel}
}

// Push writes the snapshot and publishes its export time in one pipeline.
func (r *Redis) Push(ctx context.Context, snap app.Snapshot) (app.Snapshot, error) {
	payload, err := json.Marshal(snap)
	if err != nil {
		return app.Snapshot{}, fmt.Errorf("encode sync snapshot: %w", err)
	}
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, r.key, payload, 0)
		pipe.Publish(ctx, r.channel, snap.ExportedAt.UTC().Format(time.RFC3339Nano))
		return nil
	})
	if err != nil {
		return app.Snapshot{}, fmt.Errorf("redis sync: %w", err)
	}
	return snap, nil
}
