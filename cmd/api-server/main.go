package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/hackgods/salon-booking-assistant/internal/api"
	"github.com/hackgods/salon-booking-assistant/internal/channel"
	"github.com/hackgods/salon-booking-assistant/internal/config"
	"github.com/hackgods/salon-booking-assistant/internal/db"
	"github.com/hackgods/salon-booking-assistant/internal/dialogue"
	"github.com/hackgods/salon-booking-assistant/internal/logging"
	"github.com/hackgods/salon-booking-assistant/internal/pricing"
	redisclient "github.com/hackgods/salon-booking-assistant/internal/redis"
	"github.com/hackgods/salon-booking-assistant/internal/salon"
	"github.com/hackgods/salon-booking-assistant/internal/temporal"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load error: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init error: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("api-server stopped", zap.Error(err))
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	logger.Info("api-server starting up",
		zap.String("env", cfg.Env),
		zap.String("http_port", cfg.HTTPPort),
		zap.String("store", cfg.Store),
		zap.String("version", version),
	)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	catalog := pricing.DefaultCatalog()
	if err := catalog.Validate(); err != nil {
		return fmt.Errorf("catalog: %w", err)
	}

	var (
		repo   salon.Repository
		health []api.Dependency
	)
	switch cfg.Store {
	case config.StorePostgres:
		pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
		pool, err := db.Open(pgCtx, cfg.PostgresDSN, db.PoolOptions{})
		cancelPg()
		if err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
		defer pool.Close()
		logger.Info("connected to Postgres")

		repo = salon.NewPgRepository(pool)
		health = append(health, api.Dependency{Name: "postgres", Critical: true, Ping: pool.Ping})
	default:
		logger.Warn("using in-memory store, data is lost on restart")
		repo = salon.NewMemoryRepository()
	}

	svc := salon.NewService(repo, catalog, salon.Options{
		DefaultPassword:             cfg.DefaultUserPassword,
		FirstBookingCountsCancelled: cfg.FirstBookingCountsCancelled,
	}, logger.Named("salon"))

	rules := temporal.Rules{
		Location:   cfg.Location(),
		WindowDays: cfg.BookingWindowDays,
		OpenHour:   cfg.OpenHour,
		CloseHour:  cfg.CloseHour,
	}
	engine := dialogue.New(svc, catalog, rules, dialogue.WithLogger(logger.Named("dialogue")))

	var (
		states channel.StateStore = channel.NewMemoryStates(cfg.SessionTTL)
		locker channel.Locker     = channel.NewMemoryLocker()
		dedupe channel.Deduper    = channel.NewMemoryDeduper(cfg.SessionTTL)
	)
	if cfg.RedisAddr != "" {
		rdb, err := redisclient.NewRedisClient(redisclient.Options{
			Addr:     cfg.RedisAddr,
			Username: cfg.RedisUsername,
			Password: cfg.RedisPassword,
		})
		if err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		defer func() {
			if err := rdb.Close(); err != nil {
				logger.Warn("error closing redis", zap.Error(err))
			}
		}()
		logger.Info("connected to Redis", zap.String("addr", cfg.RedisAddr))

		states = redisclient.NewSessionStore(rdb, cfg.SessionTTL)
		locker = redisclient.NewKeyLocker(rdb, cfg.LockTTL, cfg.LockTTL/2)
		dedupe = redisclient.NewDeduper(rdb, cfg.SessionTTL)
		health = append(health, api.Dependency{Name: "redis", Ping: redisPing(rdb)})
	} else {
		logger.Info("REDIS_ADDR not set, webhook sessions are kept in process")
	}

	relay := channel.NewRelay(engine, states, locker, dedupe, logger.Named("relay"))

	var wa *channel.WhatsApp
	if cfg.WhatsAppToken != "" && cfg.WhatsAppPhoneNumberID != "" {
		wa = channel.NewWhatsApp(channel.WhatsAppConfig{
			BaseURL:       cfg.WhatsAppAPIBase,
			PhoneNumberID: cfg.WhatsAppPhoneNumberID,
			Token:         cfg.WhatsAppToken,
			VerifyToken:   cfg.WhatsAppVerifyToken,
			AppSecret:     cfg.WhatsAppAppSecret,
		})
		relay.Register(channel.WhatsAppName, wa)
		logger.Info("whatsapp cloud webhook enabled")
	}
	msg91 := cfg.MSG91APIKey != ""
	if msg91 {
		relay.Register(channel.MSG91Name, channel.NewMSG91(cfg.MSG91APIKey, cfg.MSG91Endpoint))
		logger.Info("msg91 webhook enabled")
	}
	if cfg.AdminToken == "" {
		logger.Warn("ADMIN_TOKEN not set, /get-all-appointments is disabled")
	}

	router := api.NewRouter(api.RouterConfig{
		Engine:             engine,
		Service:            svc,
		Rules:              rules,
		Relay:              relay,
		WhatsApp:           wa,
		MSG91:              msg91,
		Health:             health,
		AdminToken:         cfg.AdminToken,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		RateLimitBurst:     cfg.RateLimitBurst,
		Logger:             logger.Named("http"),
		Env:                cfg.Env,
		Version:            version,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-rootCtx.Done():
	}

	logger.Info("shutting down api-server", zap.Duration("timeout", cfg.ShutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	logger.Info("api-server stopped")
	return nil
}

func redisPing(rdb *redis.Client) func(context.Context) error {
	return func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	}
}
