package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"go.uber.org/zap"

	"github.com/hackgods/salon-booking-assistant/internal/config"
	"github.com/hackgods/salon-booking-assistant/internal/db"
	"github.com/hackgods/salon-booking-assistant/internal/logging"
	"github.com/hackgods/salon-booking-assistant/internal/pricing"
	"github.com/hackgods/salon-booking-assistant/internal/salon"
	"github.com/hackgods/salon-booking-assistant/internal/temporal"
)

func main() {
	users := flag.Int("users", 200, "number of customers to create")
	perUser := flag.Int("appointments", 3, "maximum appointments per customer")
	cancelRatio := flag.Float64("cancel-ratio", 0.2, "share of seeded appointments to cancel")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load error: %v\n", err)
		os.Exit(1)
	}
	if cfg.Store != config.StorePostgres {
		fmt.Fprintln(os.Stderr, "seed only runs against STORE=postgres")
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init error: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	pool, err := db.Open(ctx, cfg.PostgresDSN, db.PoolOptions{})
	if err != nil {
		logger.Fatal("connect postgres", zap.Error(err))
	}
	defer pool.Close()

	catalog := pricing.DefaultCatalog()
	svc := salon.NewService(salon.NewPgRepository(pool), catalog, salon.Options{
		DefaultPassword:             cfg.DefaultUserPassword,
		FirstBookingCountsCancelled: cfg.FirstBookingCountsCancelled,
	}, zap.NewNop())

	s := &seeder{
		svc:     svc,
		catalog: catalog,
		rules: temporal.Rules{
			Location:   cfg.Location(),
			WindowDays: cfg.BookingWindowDays,
			OpenHour:   cfg.OpenHour,
			CloseHour:  cfg.CloseHour,
		},
		faker:  gofakeit.New(0),
		logger: logger,
	}

	logger.Info("seed starting", zap.Int("users", *users), zap.Int("max_appointments", *perUser))
	booked, cancelled, err := s.run(ctx, *users, *perUser, *cancelRatio)
	if err != nil {
		logger.Fatal("seed failed", zap.Error(err))
	}
	logger.Info("seed complete", zap.Int("booked", booked), zap.Int("cancelled", cancelled))
}

type seeder struct {
	svc     *salon.Service
	catalog pricing.Catalog
	rules   temporal.Rules
	faker   *gofakeit.Faker
	logger  *zap.Logger
}

func (s *seeder) run(ctx context.Context, users, perUser int, cancelRatio float64) (booked, cancelled int, err error) {
	today := temporal.Midnight(time.Now().In(s.rules.Location))

	for i := 0; i < users; i++ {
		phone := s.phone()
		if _, err := s.svc.RegisterUser(ctx, phone, s.faker.FirstName()+" "+s.faker.LastName()); err != nil {
			return booked, cancelled, fmt.Errorf("register %s: %w", phone, err)
		}

		for n := s.faker.Number(0, perUser); n > 0; n-- {
			appt, _, err := s.svc.Book(ctx, salon.Booking{
				CustomerPhone: phone,
				Services:      s.services(),
				Location:      s.catalog.Branches[s.faker.Number(0, len(s.catalog.Branches)-1)],
				Date:          today.AddDate(0, 0, s.faker.Number(0, s.rules.WindowDays)),
				Time:          temporal.Label(s.faker.Number(s.rules.OpenHour, s.rules.CloseHour)),
			})
			if err != nil {
				return booked, cancelled, fmt.Errorf("book for %s: %w", phone, err)
			}
			booked++

			if s.faker.Float64Range(0, 1) < cancelRatio {
				if _, err := s.svc.CancelAppointment(ctx, appt.ID); err != nil {
					return booked, cancelled, fmt.Errorf("cancel %s: %w", appt.ID, err)
				}
				cancelled++
			}
		}

		if (i+1)%50 == 0 {
			s.logger.Info("customers seeded", zap.Int("done", i+1), zap.Int("total", users))
		}
	}
	return booked, cancelled, nil
}

// phone returns a 10-digit mobile number starting with 6-9.
func (s *seeder) phone() string {
	return fmt.Sprintf("%d%09d", s.faker.Number(6, 9), s.faker.Number(0, 999999999))
}

// services picks one to three distinct catalog services in menu order.
func (s *seeder) services() []string {
	want := s.faker.Number(1, 3)
	chosen := make(map[int]bool, want)
	for len(chosen) < want {
		chosen[s.faker.Number(0, len(s.catalog.Services)-1)] = true
	}

	picked := make([]string, 0, want)
	for i, svc := range s.catalog.Services {
		if chosen[i] {
			picked = append(picked, svc.Name)
		}
	}
	return picked
}
