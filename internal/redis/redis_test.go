package redisclient

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/hackgods/salon-booking-assistant/internal/session"
)

// testClient connects to REDIS_TEST_ADDR and skips when it is unset.
func testClient(t *testing.T) *redis.Client {
	t.Helper()
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	rdb, err := NewRedisClient(Options{Addr: addr})
	if err != nil {
		t.Fatalf("connect redis: %v", err)
	}
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func TestSessionStoreRoundTrip(t *testing.T) {
	rdb := testClient(t)
	store := NewSessionStore(rdb, time.Minute)
	ctx := context.Background()
	sender := uuid.NewString()

	st, err := store.Load(ctx, "whatsapp", sender)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if st.Step != session.StepPhone {
		t.Fatalf("expected fresh state, got %+v", st)
	}

	want := session.State{
		Version: session.Version,
		Step:    session.StepBookBranch,
		Phone:   "9876543210",
		Draft:   &session.Draft{Mode: session.ModeNew, Services: []string{"haircut"}},
	}
	if err := store.Save(ctx, "whatsapp", sender, want); err != nil {
		t.Fatalf("Save error: %v", err)
	}
	got, err := store.Load(ctx, "whatsapp", sender)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if got.Step != want.Step || got.Phone != want.Phone || got.Draft == nil || got.Draft.Services[0] != "haircut" {
		t.Fatalf("expected %+v, got %+v", want, got)
	}

	if err := store.Clear(ctx, "whatsapp", sender); err != nil {
		t.Fatalf("Clear error: %v", err)
	}
}

func TestDeduperFirstSeen(t *testing.T) {
	d := NewDeduper(testClient(t), time.Minute)
	ctx := context.Background()
	id := uuid.NewString()

	first, err := d.FirstSeen(ctx, "msg91", id)
	if err != nil || !first {
		t.Fatalf("expected first delivery, got %v %v", first, err)
	}
	again, err := d.FirstSeen(ctx, "msg91", id)
	if err != nil || again {
		t.Fatalf("expected duplicate, got %v %v", again, err)
	}
}

func TestKeyLockerExcludes(t *testing.T) {
	l := NewKeyLocker(testClient(t), 2*time.Second, 100*time.Millisecond)
	ctx := context.Background()
	key := uuid.NewString()

	err := l.WithKeyLock(ctx, key, func(ctx context.Context) error {
		inner := l.WithKeyLock(ctx, key, func(context.Context) error { return nil })
		if !errors.Is(inner, ErrLockNotAcquired) {
			t.Fatalf("expected ErrLockNotAcquired, got %v", inner)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithKeyLock error: %v", err)
	}

	if err := l.WithKeyLock(ctx, key, func(context.Context) error { return nil }); err != nil {
		t.Fatalf("expected lock to be released, got %v", err)
	}
}
