package salon

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrUserNotFound        = errors.New("user not found")
	ErrAppointmentNotFound = errors.New("appointment not found")
)

// Repository contains all DB interactions needed by the service.
type Repository interface {
	GetUser(ctx context.Context, phone string) (*User, error)
	UpsertUser(ctx context.Context, u User) (*User, error)

	GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error)
	// Ordered by appointment date then hour. An empty statuses filter returns every row.
	ListAppointmentsByCustomer(ctx context.Context, phone string, statuses []AppointmentStatus) ([]Appointment, error)
	CountAppointmentsByCustomer(ctx context.Context, phone string, statuses []AppointmentStatus, exclude uuid.UUID) (int, error)
	ListAllAppointments(ctx context.Context) ([]AppointmentWithCustomer, error)

	// Creation and updates
	InsertAppointment(ctx context.Context, a NewAppointment) (*Appointment, error)
	UpdateAppointment(ctx context.Context, id uuid.UUID, p AppointmentPatch) (*Appointment, error)
	UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, status AppointmentStatus) (*Appointment, error)
	DeleteAppointment(ctx context.Context, id uuid.UUID) error

	// Event logging
	InsertEvent(ctx context.Context, ev EventLog) error
}

// sortAppointments orders by date and then by the hour behind the "4PM" label,
// which does not sort correctly as text.
func sortAppointments(list []Appointment) {
	sort.SliceStable(list, func(i, j int) bool {
		if !list[i].Date.Equal(list[j].Date) {
			return list[i].Date.Before(list[j].Date)
		}
		return labelHour(list[i].Time) < labelHour(list[j].Time)
	})
}

// sortNewestFirst is the admin ordering: latest date and hour first.
func sortNewestFirst(list []AppointmentWithCustomer) {
	sort.SliceStable(list, func(i, j int) bool {
		a, b := list[i].Appointment, list[j].Appointment
		if !a.Date.Equal(b.Date) {
			return a.Date.After(b.Date)
		}
		return labelHour(a.Time) > labelHour(b.Time)
	})
}

func labelHour(label string) int {
	s := strings.ToUpper(strings.TrimSpace(label))
	pm := strings.HasSuffix(s, "PM")
	s = strings.TrimSuffix(strings.TrimSuffix(s, "PM"), "AM")
	h, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 24
	}
	h %= 12
	if pm {
		h += 12
	}
	return h
}

func statusIn(s AppointmentStatus, statuses []AppointmentStatus) bool {
	if len(statuses) == 0 {
		return true
	}
	for _, st := range statuses {
		if st == s {
			return true
		}
	}
	return false
}
