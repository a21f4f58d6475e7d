// Package cache keeps short-lived room snapshots in Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"triviaroom/services"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "room:"

type RoomCache struct {
	client *redis.Client
	ttl    time.Duration
}

var _ services.SnapshotCache = (*RoomCache)(nil)

func NewRoomCache(client *redis.Client, ttl time.Duration) *RoomCache {
	return &RoomCache{client: client, ttl: ttl}
}

func key(code string) string {
	return keyPrefix + code
}

// Get returns ok=false with a nil error on a cache miss.
func (c *RoomCache) Get(ctx context.Context, code string) (*services.RoomSnapshot, bool, error) {
	data, err := c.client.Get(ctx, key(code)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read snapshot: %w", err)
	}

	var snapshot services.RoomSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, false, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return &snapshot, true, nil
}

func (c *RoomCache) Set(ctx context.Context, snapshot *services.RoomSnapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	if err := c.client.Set(ctx, key(snapshot.Code), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store snapshot: %w", err)
	}
	return nil
}

func (c *RoomCache) Invalidate(ctx context.Context, code string) error {
	return c.client.Del(ctx, key(code)).Err()
}
