package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hackgods/salon-booking-assistant/internal/channel"
	"github.com/hackgods/salon-booking-assistant/internal/temporal"
)

type RouterConfig struct {
	Engine  ChatEngine
	Service SalonService
	Rules   temporal.Rules

	// Relay is required when either webhook channel is enabled.
	Relay    InboundRelay
	WhatsApp *channel.WhatsApp
	MSG91    bool

	Health             []Dependency
	AdminToken         string
	RateLimitPerMinute int
	RateLimitBurst     int
	Logger             *zap.Logger
	Env                string
	Version            string
}

func NewRouter(cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(logger))
	r.Use(middleware.Recoverer)

	health := NewHealthHandler(cfg.Health, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	limiter := NewRateLimiter(cfg.RateLimitPerMinute, cfg.RateLimitBurst, logger)
	rest := &restHandlers{
		svc:      cfg.Service,
		rules:    cfg.Rules,
		validate: newValidator(),
		logger:   logger,
	}

	r.Group(func(r chi.Router) {
		r.Use(limiter.Middleware)

		r.Post("/api/chat", chatHandler(cfg.Engine))

		if cfg.WhatsApp != nil && cfg.Relay != nil {
			r.Get("/webhooks/whatsapp", whatsappVerifyHandler(cfg.WhatsApp))
			r.Post("/webhooks/whatsapp", whatsappWebhookHandler(cfg.WhatsApp, cfg.Relay, logger))
		}
		if cfg.MSG91 && cfg.Relay != nil {
			r.Post("/webhooks/msg91", msg91WebhookHandler(cfg.Relay, logger))
		}

		r.Post("/check-user", rest.checkUser)
		r.Post("/register", rest.register)
		r.Post("/book-appointment", rest.book)
		r.Post("/get-appointments", rest.listAppointments)
		r.Post("/cancel-appointment", rest.cancel)

		r.With(AdminAuth(cfg.AdminToken)).Get("/get-all-appointments", rest.listAll)
	})

	return r
}
