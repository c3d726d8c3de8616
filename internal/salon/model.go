package salon

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	StatusBooked    AppointmentStatus = "booked"
	StatusCancelled AppointmentStatus = "cancelled"
)

// ServicesSeparator joins the ordered service list into the stored column.
const ServicesSeparator = ", "

type User struct {
	Phone        string
	Name         string
	PasswordHash string
	CreatedAt    time.Time
}

type Appointment struct {
	ID            uuid.UUID
	CustomerPhone string
	Services      []string
	Location      string
	Date          time.Time
	Time          string
	TotalPrice    float64
	Status        AppointmentStatus
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// AppointmentWithCustomer is the admin listing row.
type AppointmentWithCustomer struct {
	Appointment
	CustomerName string
}

type NewAppointment struct {
	CustomerPhone string
	Services      []string
	Location      string
	Date          time.Time
	Time          string
	TotalPrice    float64
}

// AppointmentPatch names the fields to overwrite. Nil fields are left alone.
type AppointmentPatch struct {
	Services   []string
	Location   *string
	Date       *time.Time
	Time       *string
	TotalPrice *float64
}

func (p AppointmentPatch) Empty() bool {
	return p.Services == nil && p.Location == nil && p.Date == nil && p.Time == nil && p.TotalPrice == nil
}

// Fields lists the patched column names, used for event payloads.
func (p AppointmentPatch) Fields() []string {
	var out []string
	if p.Services != nil {
		out = append(out, "services")
	}
	if p.Location != nil {
		out = append(out, "location")
	}
	if p.Date != nil {
		out = append(out, "appointment_date")
	}
	if p.Time != nil {
		out = append(out, "appointment_time")
	}
	if p.TotalPrice != nil {
		out = append(out, "total_price")
	}
	return out
}

type EventLog struct {
	ID            int64
	EventType     string
	AppointmentID *uuid.UUID
	Payload       []byte
	CreatedAt     time.Time
}

// JoinServices is the storage form of an ordered service list.
func JoinServices(services []string) string {
	return strings.Join(services, ServicesSeparator)
}

// SplitServices reverses JoinServices, dropping empty entries.
func SplitServices(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
