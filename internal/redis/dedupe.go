package redisclient

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Deduper remembers provider message ids so redelivered webhooks run once.
type Deduper struct {
	client *redis.Client
	ttl    time.Duration
}

func NewDeduper(client *redis.Client, ttl time.Duration) *Deduper {
	return &Deduper{client: client, ttl: ttl}
}

func dedupeKey(channel, messageID string) string {
	return fmt.Sprintf("dedupe:%s:%s", channel, messageID)
}

// FirstSeen reports true the first time a message id is offered within ttl.
func (d *Deduper) FirstSeen(ctx context.Context, channel, messageID string) (bool, error) {
	ok, err := d.client.SetNX(ctx, dedupeKey(channel, messageID), 1, d.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("record message id: %w", err)
	}
	return ok, nil
}

// Forget releases a message id so a provider retry is processed again.
func (d *Deduper) Forget(ctx context.Context, channel, messageID string) error {
	if err := d.client.Del(ctx, dedupeKey(channel, messageID)).Err(); err != nil {
		return fmt.Errorf("forget message id: %w", err)
	}
	return nil
}
