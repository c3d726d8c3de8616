package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hackgods/salon-booking-assistant/internal/dialogue"
	"github.com/hackgods/salon-booking-assistant/internal/pricing"
	"github.com/hackgods/salon-booking-assistant/internal/salon"
	"github.com/hackgods/salon-booking-assistant/internal/temporal"
)

// ChatEngine runs one dialogue turn. *dialogue.Engine implements it.
type ChatEngine interface {
	Handle(ctx context.Context, req dialogue.Request) dialogue.Response
}

// SalonService is what the REST routes need. *salon.Service implements it.
type SalonService interface {
	Catalog() pricing.Catalog
	LookupUser(ctx context.Context, phone string) (*salon.User, error)
	RegisterUserWithPassword(ctx context.Context, phone, name, password string) (*salon.User, error)
	Book(ctx context.Context, b salon.Booking) (*salon.Appointment, pricing.Quote, error)
	ListAppointments(ctx context.Context, phone string, bookedOnly bool) ([]salon.Appointment, error)
	CancelAppointment(ctx context.Context, id uuid.UUID) (*salon.Appointment, error)
	ListAllAppointments(ctx context.Context) ([]salon.AppointmentWithCustomer, error)
}

var _ SalonService = (*salon.Service)(nil)

func chatHandler(engine ChatEngine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req dialogue.Request
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		writeJSON(w, http.StatusOK, engine.Handle(r.Context(), req))
	}
}

type restHandlers struct {
	svc      SalonService
	rules    temporal.Rules
	validate *validator.Validate
	logger   *zap.Logger
}

func (h *restHandlers) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := decodeJSON(w, r, v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return false
	}
	if err := h.validate.Struct(v); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", validationDetails(err))
		return false
	}
	return true
}

func (h *restHandlers) checkUser(w http.ResponseWriter, r *http.Request) {
	var req CheckUserRequest
	if !h.decode(w, r, &req) {
		return
	}

	u, err := h.svc.LookupUser(r.Context(), canonicalPhone(req.Phone))
	if errors.Is(err, salon.ErrUserNotFound) {
		writeJSON(w, http.StatusOK, CheckUserResponse{Exists: false})
		return
	}
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, CheckUserResponse{Exists: true, Name: u.Name})
}

func (h *restHandlers) register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !h.decode(w, r, &req) {
		return
	}

	u, err := h.svc.RegisterUserWithPassword(r.Context(), canonicalPhone(req.Phone), strings.TrimSpace(req.Name), req.Password)
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, RegisterResponse{Success: true, User: UserResponse{Phone: u.Phone, Name: u.Name}})
}

func (h *restHandlers) book(w http.ResponseWriter, r *http.Request) {
	var req BookRequest
	if !h.decode(w, r, &req) {
		return
	}

	catalog := h.svc.Catalog()
	services := make([]string, 0, len(req.Services))
	for _, s := range req.Services {
		name, ok := catalog.LookupService(s)
		if !ok {
			writeError(w, http.StatusBadRequest, "unknown_service", s)
			return
		}
		services = append(services, name)
	}

	branch, ok := canonicalBranch(catalog, req.Location)
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown_branch", req.Location)
		return
	}

	date, err := time.ParseInLocation(temporal.ISODate, req.Date, h.location())
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
		return
	}
	slot, ok := h.rules.ParseTime(req.Time)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_time", "time must fall within opening hours, for example 4PM")
		return
	}

	appt, quote, err := h.svc.Book(r.Context(), salon.Booking{
		CustomerPhone: canonicalPhone(req.UserPhone),
		Services:      services,
		Location:      branch,
		Date:          date,
		Time:          slot.Label,
	})
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, BookResponse{
		Success:      true,
		Appointment:  toAppointmentResponse(*appt),
		PriceDetails: toPriceDetails(quote),
	})
}

func (h *restHandlers) listAppointments(w http.ResponseWriter, r *http.Request) {
	var req ListAppointmentsRequest
	if !h.decode(w, r, &req) {
		return
	}

	list, err := h.svc.ListAppointments(r.Context(), canonicalPhone(req.UserPhone), true)
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ListAppointmentsResponse{Success: true, Appointments: toAppointmentResponses(list)})
}

func (h *restHandlers) cancel(w http.ResponseWriter, r *http.Request) {
	var req CancelRequest
	if !h.decode(w, r, &req) {
		return
	}
	id, _ := uuid.Parse(req.AppointmentID)

	appt, err := h.svc.CancelAppointment(r.Context(), id)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, CancelResponse{Success: true, CancelledAppointment: toAppointmentResponse(*appt)})
}

func (h *restHandlers) listAll(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.ListAllAppointments(r.Context())
	if err != nil {
		h.internalError(w, r, err)
		return
	}

	out := make([]AppointmentResponse, 0, len(list))
	for _, a := range list {
		resp := toAppointmentResponse(a.Appointment)
		resp.CustomerName = a.CustomerName
		out = append(out, resp)
	}
	writeJSON(w, http.StatusOK, ListAppointmentsResponse{Success: true, Appointments: out})
}

func (h *restHandlers) serviceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, salon.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
	case errors.Is(err, salon.ErrUserNotFound):
		writeError(w, http.StatusNotFound, "user_not_found", err.Error())
	case errors.Is(err, salon.ErrNoServices):
		writeError(w, http.StatusBadRequest, "no_services", err.Error())
	case errors.Is(err, salon.ErrUnknownBranch):
		writeError(w, http.StatusBadRequest, "unknown_branch", err.Error())
	default:
		h.internalError(w, r, err)
	}
}

func (h *restHandlers) internalError(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.Error("request failed",
		zap.String("path", r.URL.Path),
		zap.String("request_id", GetRequestID(r.Context())),
		zap.Error(err),
	)
	writeError(w, http.StatusInternalServerError, "internal_error", nil)
}

func (h *restHandlers) location() *time.Location {
	if h.rules.Location == nil {
		return time.Local
	}
	return h.rules.Location
}

func canonicalBranch(c pricing.Catalog, name string) (string, bool) {
	name = strings.TrimSpace(name)
	for _, b := range c.Branches {
		if strings.EqualFold(b, name) {
			return b, true
		}
	}
	return "", false
}
