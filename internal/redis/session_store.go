package redisclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hackgods/salon-booking-assistant/internal/session"
)

// SessionStore keeps the echoed dialogue state for webhook conversations,
// keyed by channel and sender address. Idle conversations expire after ttl.
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{client: client, ttl: ttl}
}

func sessionKey(channel, sender string) string {
	return fmt.Sprintf("session:%s:%s", channel, sender)
}

// Load returns session.Fresh() when nothing is stored for the sender.
func (s *SessionStore) Load(ctx context.Context, channel, sender string) (session.State, error) {
	raw, err := s.client.Get(ctx, sessionKey(channel, sender)).Bytes()
	if errors.Is(err, redis.Nil) {
		return session.Fresh(), nil
	}
	if err != nil {
		return session.State{}, fmt.Errorf("load session: %w", err)
	}

	var st session.State
	if err := json.Unmarshal(raw, &st); err != nil {
		// Unreadable state is treated like an expired one.
		return session.Fresh(), nil
	}
	return st, nil
}

func (s *SessionStore) Save(ctx context.Context, channel, sender string, st session.State) error {
	raw, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := s.client.Set(ctx, sessionKey(channel, sender), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (s *SessionStore) Clear(ctx context.Context, channel, sender string) error {
	if err := s.client.Del(ctx, sessionKey(channel, sender)).Err(); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}
