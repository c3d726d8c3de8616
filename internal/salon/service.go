package salon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/hackgods/salon-booking-assistant/internal/pricing"
)

const (
	EventAppointmentBooked    = "APPOINTMENT_BOOKED"
	EventAppointmentUpdated   = "APPOINTMENT_UPDATED"
	EventAppointmentDeleted   = "APPOINTMENT_DELETED"
	EventAppointmentCancelled = "APPOINTMENT_CANCELLED"
)

var (
	ErrNoServices    = errors.New("at least one service is required")
	ErrUnknownBranch = errors.New("unknown branch")
	ErrNotOwner      = errors.New("appointment belongs to another customer")
)

// Options tune the service. Zero values are replaced by defaults in NewService.
type Options struct {
	DefaultPassword string
	// FirstBookingCountsCancelled makes a cancelled appointment disqualify the
	// first booking offer. When false only booked appointments count.
	FirstBookingCountsCancelled bool
	BcryptCost                  int
}

type Service struct {
	repo    Repository
	catalog pricing.Catalog
	opts    Options
	logger  *zap.Logger
}

func NewService(repo Repository, catalog pricing.Catalog, opts Options, logger *zap.Logger) *Service {
	if opts.DefaultPassword == "" {
		opts.DefaultPassword = "whatsapp_user"
	}
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		repo:    repo,
		catalog: catalog,
		opts:    opts,
		logger:  logger,
	}
}

// Catalog returns the price list the service books against.
func (s *Service) Catalog() pricing.Catalog {
	return s.catalog
}

// LookupUser returns ErrUserNotFound when the phone has never registered.
func (s *Service) LookupUser(ctx context.Context, phone string) (*User, error) {
	u, err := s.repo.GetUser(ctx, phone)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	return u, nil
}

// RegisterUser creates the user, or renames it when the phone already exists.
// Chat users never pick a password, the configured default is hashed instead.
func (s *Service) RegisterUser(ctx context.Context, phone, name string) (*User, error) {
	return s.RegisterUserWithPassword(ctx, phone, name, "")
}

// RegisterUserWithPassword is RegisterUser with a caller supplied password.
// An empty password falls back to the configured default.
func (s *Service) RegisterUserWithPassword(ctx context.Context, phone, name, password string) (*User, error) {
	if password == "" {
		password = s.opts.DefaultPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.opts.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash default password: %w", err)
	}

	u, err := s.repo.UpsertUser(ctx, User{Phone: phone, Name: name, PasswordHash: string(hash)})
	if err != nil {
		return nil, fmt.Errorf("upsert user: %w", err)
	}
	return u, nil
}

// IsFirstBooking reports whether the customer has no other appointment rows.
// exclude skips the appointment currently being modified; pass uuid.Nil for new bookings.
func (s *Service) IsFirstBooking(ctx context.Context, phone string, exclude uuid.UUID) (bool, error) {
	statuses := []AppointmentStatus{StatusBooked}
	if s.opts.FirstBookingCountsCancelled {
		statuses = append(statuses, StatusCancelled)
	}

	n, err := s.repo.CountAppointmentsByCustomer(ctx, phone, statuses, exclude)
	if err != nil {
		return false, fmt.Errorf("check prior appointments: %w", err)
	}
	return n == 0, nil
}

// Quote prices a selection for a customer, applying the first booking offer when eligible.
func (s *Service) Quote(ctx context.Context, phone string, services []string, date time.Time, exclude uuid.UUID) (pricing.Quote, error) {
	first, err := s.IsFirstBooking(ctx, phone, exclude)
	if err != nil {
		return pricing.Quote{}, err
	}
	return s.catalog.Price(services, date, first), nil
}

// Booking is a fully collected new appointment. The price is always computed here.
type Booking struct {
	CustomerPhone string
	Services      []string
	Location      string
	Date          time.Time
	Time          string
}

// Book prices and inserts a new appointment in status booked.
func (s *Service) Book(ctx context.Context, b Booking) (*Appointment, pricing.Quote, error) {
	if len(b.Services) == 0 {
		return nil, pricing.Quote{}, ErrNoServices
	}
	if !s.knownBranch(b.Location) {
		return nil, pricing.Quote{}, ErrUnknownBranch
	}

	quote, err := s.Quote(ctx, b.CustomerPhone, b.Services, b.Date, uuid.Nil)
	if err != nil {
		return nil, pricing.Quote{}, err
	}

	appt, err := s.repo.InsertAppointment(ctx, NewAppointment{
		CustomerPhone: b.CustomerPhone,
		Services:      b.Services,
		Location:      b.Location,
		Date:          b.Date,
		Time:          b.Time,
		TotalPrice:    quote.FinalPrice,
	})
	if err != nil {
		return nil, pricing.Quote{}, fmt.Errorf("insert appointment: %w", err)
	}

	s.logEvent(ctx, appt.ID, EventAppointmentBooked, map[string]any{
		"customer_phone": appt.CustomerPhone,
		"services":       appt.Services,
		"total_price":    appt.TotalPrice,
		"weekend_offer":  quote.WeekendOfferApplied,
		"first_booking":  quote.FirstBookingOfferApplied,
	})

	return appt, quote, nil
}

// GetAppointment loads an appointment and checks it belongs to phone.
func (s *Service) GetAppointment(ctx context.Context, phone string, id uuid.UUID) (*Appointment, error) {
	appt, err := s.repo.GetAppointment(ctx, id)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load appointment: %w", err)
	}
	if appt.CustomerPhone != phone {
		return nil, ErrNotOwner
	}
	return appt, nil
}

// UpdateAppointment overwrites the patched fields. There is no version check:
// concurrent updates to the same row are last-write-wins.
func (s *Service) UpdateAppointment(ctx context.Context, id uuid.UUID, p AppointmentPatch) (*Appointment, error) {
	if p.Location != nil && !s.knownBranch(*p.Location) {
		return nil, ErrUnknownBranch
	}
	if p.Services != nil && len(p.Services) == 0 {
		return nil, ErrNoServices
	}

	appt, err := s.repo.UpdateAppointment(ctx, id, p)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("update appointment: %w", err)
	}

	s.logEvent(ctx, id, EventAppointmentUpdated, map[string]any{"fields": p.Fields()})
	return appt, nil
}

// DeleteAppointment removes the row outright.
func (s *Service) DeleteAppointment(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.DeleteAppointment(ctx, id); err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return err
		}
		return fmt.Errorf("delete appointment: %w", err)
	}

	s.logEvent(ctx, id, EventAppointmentDeleted, map[string]any{})
	return nil
}

// CancelAppointment keeps the row and flips its status to cancelled.
func (s *Service) CancelAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	appt, err := s.repo.UpdateAppointmentStatus(ctx, id, StatusCancelled)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("cancel appointment: %w", err)
	}

	s.logEvent(ctx, id, EventAppointmentCancelled, map[string]any{})
	return appt, nil
}

// ListAppointments returns the customer's appointments by date then time.
func (s *Service) ListAppointments(ctx context.Context, phone string, bookedOnly bool) ([]Appointment, error) {
	var statuses []AppointmentStatus
	if bookedOnly {
		statuses = []AppointmentStatus{StatusBooked}
	}

	list, err := s.repo.ListAppointmentsByCustomer(ctx, phone, statuses)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	return list, nil
}

// ListAllAppointments is the admin view, newest first.
func (s *Service) ListAllAppointments(ctx context.Context) ([]AppointmentWithCustomer, error) {
	list, err := s.repo.ListAllAppointments(ctx)
	if err != nil {
		return nil, fmt.Errorf("list all appointments: %w", err)
	}
	return list, nil
}

func (s *Service) knownBranch(name string) bool {
	for _, b := range s.catalog.Branches {
		if strings.EqualFold(b, name) {
			return true
		}
	}
	return false
}

func (s *Service) logEvent(ctx context.Context, appointmentID uuid.UUID, eventType string, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.Warn("failed to marshal event payload", zap.String("event", eventType), zap.Error(err))
		data = nil
	}

	apptID := appointmentID

	ev := EventLog{
		EventType:     eventType,
		AppointmentID: &apptID,
		Payload:       data,
		CreatedAt:     time.Now(),
	}

	if err := s.repo.InsertEvent(ctx, ev); err != nil {
		s.logger.Warn("failed to insert event log",
			zap.String("event", eventType),
			zap.String("appointment_id", appointmentID.String()),
			zap.Error(err),
		)
	}
}
