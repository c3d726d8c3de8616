package salon

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepository keeps users and appointments in process. It backs
// STORE=memory for local runs and the tests of packages above this one.
type MemoryRepository struct {
	mu           sync.Mutex
	users        map[string]User
	appointments map[uuid.UUID]Appointment
	events       []EventLog
	now          func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		users:        make(map[string]User),
		appointments: make(map[uuid.UUID]Appointment),
		now:          time.Now,
	}
}

func (r *MemoryRepository) GetUser(_ context.Context, phone string) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[phone]
	if !ok {
		return nil, ErrUserNotFound
	}
	return &u, nil
}

func (r *MemoryRepository) UpsertUser(_ context.Context, u User) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.users[u.Phone]; ok {
		existing.Name = u.Name
		r.users[u.Phone] = existing
		return &existing, nil
	}
	u.CreatedAt = r.now()
	r.users[u.Phone] = u
	return &u, nil
}

func (r *MemoryRepository) GetAppointment(_ context.Context, id uuid.UUID) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.appointments[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	return copyAppointment(a), nil
}

func (r *MemoryRepository) ListAppointmentsByCustomer(_ context.Context, phone string, statuses []AppointmentStatus) ([]Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result []Appointment
	for _, a := range r.appointments {
		if a.CustomerPhone == phone && statusIn(a.Status, statuses) {
			result = append(result, *copyAppointment(a))
		}
	}
	// Map order is random; fix creation order before the stable date/hour sort.
	sort.SliceStable(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	sortAppointments(result)
	return result, nil
}

func (r *MemoryRepository) CountAppointmentsByCustomer(_ context.Context, phone string, statuses []AppointmentStatus, exclude uuid.UUID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for id, a := range r.appointments {
		if id != exclude && a.CustomerPhone == phone && statusIn(a.Status, statuses) {
			n++
		}
	}
	return n, nil
}

func (r *MemoryRepository) ListAllAppointments(_ context.Context) ([]AppointmentWithCustomer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	result := make([]AppointmentWithCustomer, 0, len(r.appointments))
	for _, a := range r.appointments {
		u, ok := r.users[a.CustomerPhone]
		if !ok {
			continue
		}
		result = append(result, AppointmentWithCustomer{Appointment: *copyAppointment(a), CustomerName: u.Name})
	}
	sort.SliceStable(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	sortNewestFirst(result)
	return result, nil
}

func (r *MemoryRepository) InsertAppointment(_ context.Context, na NewAppointment) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	a := Appointment{
		ID:            uuid.New(),
		CustomerPhone: na.CustomerPhone,
		Services:      append([]string(nil), na.Services...),
		Location:      na.Location,
		Date:          na.Date,
		Time:          na.Time,
		TotalPrice:    na.TotalPrice,
		Status:        StatusBooked,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	r.appointments[a.ID] = a
	return copyAppointment(a), nil
}

func (r *MemoryRepository) UpdateAppointment(_ context.Context, id uuid.UUID, p AppointmentPatch) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.appointments[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	if p.Services != nil {
		a.Services = append([]string(nil), p.Services...)
	}
	if p.Location != nil {
		a.Location = *p.Location
	}
	if p.Date != nil {
		a.Date = *p.Date
	}
	if p.Time != nil {
		a.Time = *p.Time
	}
	if p.TotalPrice != nil {
		a.TotalPrice = *p.TotalPrice
	}
	if !p.Empty() {
		a.UpdatedAt = r.now()
	}
	r.appointments[id] = a
	return copyAppointment(a), nil
}

func (r *MemoryRepository) UpdateAppointmentStatus(_ context.Context, id uuid.UUID, status AppointmentStatus) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.appointments[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	a.Status = status
	a.UpdatedAt = r.now()
	r.appointments[id] = a
	return copyAppointment(a), nil
}

func (r *MemoryRepository) DeleteAppointment(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.appointments[id]; !ok {
		return ErrAppointmentNotFound
	}
	delete(r.appointments, id)
	return nil
}

func (r *MemoryRepository) InsertEvent(_ context.Context, ev EventLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ev.ID = int64(len(r.events) + 1)
	r.events = append(r.events, ev)
	return nil
}

// Events returns a copy of the recorded event log.
func (r *MemoryRepository) Events() []EventLog {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]EventLog(nil), r.events...)
}

func copyAppointment(a Appointment) *Appointment {
	a.Services = append([]string(nil), a.Services...)
	return &a
}
