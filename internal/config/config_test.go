package config

import (
	"testing"
	"time"
)

func TestLoadMemoryDefaults(t *testing.T) {
	t.Setenv("STORE", "memory")
	t.Setenv("POSTGRES_DSN", "")
	t.Setenv("REDIS_URL", "")
	t.Setenv("REDIS_ADDR", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.HTTPPort != "8011" || cfg.BookingWindowDays != 30 || cfg.OpenHour != 10 || cfg.CloseHour != 22 {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if !cfg.FirstBookingCountsCancelled || cfg.DefaultUserPassword != "whatsapp_user" {
		t.Fatalf("unexpected booking defaults %+v", cfg)
	}
	if cfg.Location().String() != "Asia/Kolkata" {
		t.Fatalf("expected Asia/Kolkata, got %s", cfg.Location())
	}
	if cfg.RedisAddr != "" {
		t.Fatalf("expected no redis by default, got %q", cfg.RedisAddr)
	}
}

func TestLoadRequiresDSNForPostgres(t *testing.T) {
	t.Setenv("STORE", "postgres")
	t.Setenv("POSTGRES_DSN", "")
	if _, err := Load(); err == nil {
		t.Fatalf("expected missing POSTGRES_DSN to fail")
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"STORE":     "mongo",
		"TIMEZONE":  "Mars/Olympus",
		"OPEN_HOUR": "23",
	}
	for key, val := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv("STORE", "memory")
			t.Setenv(key, val)
			if _, err := Load(); err == nil {
				t.Fatalf("expected %s=%s to fail", key, val)
			}
		})
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	t.Setenv("STORE", "memory")
	t.Setenv("REDIS_URL", "redis://app:pw@cache:6380")
	t.Setenv("SESSION_TTL", "90")
	t.Setenv("LOCK_TTL", "1500ms")
	t.Setenv("FIRST_BOOKING_COUNTS_CANCELLED", "false")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.RedisAddr != "cache:6380" || cfg.RedisUsername != "app" || cfg.RedisPassword != "pw" {
		t.Fatalf("unexpected redis settings %+v", cfg)
	}
	if cfg.SessionTTL != 90*time.Second || cfg.LockTTL != 1500*time.Millisecond {
		t.Fatalf("unexpected durations %s %s", cfg.SessionTTL, cfg.LockTTL)
	}
	if cfg.FirstBookingCountsCancelled {
		t.Fatalf("expected toggle off")
	}
}
