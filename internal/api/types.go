package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/salon-booking-assistant/internal/pricing"
	"github.com/hackgods/salon-booking-assistant/internal/salon"
	"github.com/hackgods/salon-booking-assistant/internal/temporal"
)

type CheckUserRequest struct {
	Phone string `json:"phone" validate:"required,phone"`
}

type CheckUserResponse struct {
	Exists bool   `json:"exists"`
	Name   string `json:"name,omitempty"`
}

type RegisterRequest struct {
	Phone    string `json:"phone" validate:"required,phone"`
	Name     string `json:"name" validate:"required,max=100"`
	Password string `json:"password" validate:"omitempty,min=6,max=72"`
}

type UserResponse struct {
	Phone string `json:"phone"`
	Name  string `json:"name"`
}

type RegisterResponse struct {
	Success bool         `json:"success"`
	User    UserResponse `json:"user"`
}

type BookRequest struct {
	UserPhone string   `json:"user_phone" validate:"required,phone"`
	Services  []string `json:"services" validate:"required,min=1,dive,required"`
	Location  string   `json:"location" validate:"required"`
	Date      string   `json:"date" validate:"required,date"`
	Time      string   `json:"time" validate:"required"`
}

type PriceDetails struct {
	TotalPrice               float64 `json:"totalPrice"`
	OfferApplied             bool    `json:"offerApplied"`
	FirstBookingOfferApplied bool    `json:"firstBookingOfferApplied"`
}

type BookResponse struct {
	Success      bool                `json:"success"`
	Appointment  AppointmentResponse `json:"appointment"`
	PriceDetails PriceDetails        `json:"priceDetails"`
}

type ListAppointmentsRequest struct {
	UserPhone string `json:"user_phone" validate:"required,phone"`
}

type ListAppointmentsResponse struct {
	Success      bool                  `json:"success"`
	Appointments []AppointmentResponse `json:"appointments"`
}

type CancelRequest struct {
	AppointmentID string `json:"appointment_id" validate:"required,uuid"`
}

type CancelResponse struct {
	Success              bool                `json:"success"`
	CancelledAppointment AppointmentResponse `json:"cancelled_appointment"`
}

// AppointmentResponse mirrors the appointments row, services joined with ", ".
type AppointmentResponse struct {
	ID           uuid.UUID `json:"appointment_id"`
	UserPhone    string    `json:"user_phone"`
	CustomerName string    `json:"customer_name,omitempty"`
	Services     string    `json:"services"`
	Location     string    `json:"location"`
	Date         string    `json:"appointment_date"`
	Time         string    `json:"appointment_time"`
	TotalPrice   float64   `json:"total_price"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

func toAppointmentResponse(a salon.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:         a.ID,
		UserPhone:  a.CustomerPhone,
		Services:   salon.JoinServices(a.Services),
		Location:   a.Location,
		Date:       a.Date.Format(temporal.ISODate),
		Time:       a.Time,
		TotalPrice: a.TotalPrice,
		Status:     string(a.Status),
		CreatedAt:  a.CreatedAt,
	}
}

func toAppointmentResponses(list []salon.Appointment) []AppointmentResponse {
	out := make([]AppointmentResponse, 0, len(list))
	for _, a := range list {
		out = append(out, toAppointmentResponse(a))
	}
	return out
}

func toPriceDetails(q pricing.Quote) PriceDetails {
	return PriceDetails{
		TotalPrice:               q.FinalPrice,
		OfferApplied:             q.WeekendOfferApplied,
		FirstBookingOfferApplied: q.FirstBookingOfferApplied,
	}
}
