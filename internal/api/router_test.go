package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/hackgods/salon-booking-assistant/internal/channel"
	"github.com/hackgods/salon-booking-assistant/internal/dialogue"
	"github.com/hackgods/salon-booking-assistant/internal/pricing"
	"github.com/hackgods/salon-booking-assistant/internal/salon"
	"github.com/hackgods/salon-booking-assistant/internal/session"
	"github.com/hackgods/salon-booking-assistant/internal/temporal"
)

type fakeSender struct {
	mu   sync.Mutex
	sent []channel.Outbound
}

func (s *fakeSender) Send(_ context.Context, msg channel.Outbound) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, msg)
	return nil
}

type testServer struct {
	handler http.Handler
	svc     *salon.Service
	sender  *fakeSender
}

func newTestServer(t *testing.T, mutate func(*RouterConfig)) *testServer {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Kolkata")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	rules := temporal.DefaultRules(loc)
	now := time.Date(2026, 10, 14, 10, 0, 0, 0, loc)

	svc := salon.NewService(salon.NewMemoryRepository(), pricing.DefaultCatalog(), salon.Options{
		FirstBookingCountsCancelled: true,
		BcryptCost:                  bcrypt.MinCost,
	}, nil)
	engine := dialogue.New(svc, pricing.DefaultCatalog(), rules, dialogue.WithClock(func() time.Time { return now }))

	sender := &fakeSender{}
	relay := channel.NewRelay(engine, channel.NewMemoryStates(time.Hour), channel.NewMemoryLocker(), channel.NewMemoryDeduper(time.Hour), nil)
	relay.Register(channel.WhatsAppName, sender)
	relay.Register(channel.MSG91Name, sender)

	cfg := RouterConfig{
		Engine:             engine,
		Service:            svc,
		Rules:              rules,
		Relay:              relay,
		WhatsApp:           channel.NewWhatsApp(channel.WhatsAppConfig{VerifyToken: "verify-me"}),
		MSG91:              true,
		AdminToken:         "admin-secret",
		RateLimitPerMinute: 6000,
		RateLimitBurst:     100,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	return &testServer{handler: NewRouter(cfg), svc: svc, sender: sender}
}

func (s *testServer) do(t *testing.T, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		if err := json.NewEncoder(&buf).Encode(b); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestChatTurnEchoesState(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(t, http.MethodPost, "/api/chat", map[string]any{"text": "hello"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	resp := decodeBody[dialogue.Response](t, rec)
	if resp.NextStep != session.StepPhone {
		t.Fatalf("expected phone step, got %s", resp.NextStep)
	}

	rec = s.do(t, http.MethodPost, "/api/chat", map[string]any{"text": "9876543210", "step": resp.NextStep, "version": resp.Version})
	resp = decodeBody[dialogue.Response](t, rec)
	if resp.NextStep != session.StepNewUserName || resp.Phone != "9876543210" {
		t.Fatalf("unexpected response %+v", resp)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Fatalf("expected request id header")
	}
}

func TestChatRejectsMalformedBody(t *testing.T) {
	s := newTestServer(t, nil)
	if rec := s.do(t, http.MethodPost, "/api/chat", "{not json"); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestRESTBookingFlow(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(t, http.MethodPost, "/check-user", CheckUserRequest{Phone: "9876543210"})
	if got := decodeBody[CheckUserResponse](t, rec); got.Exists {
		t.Fatalf("expected unknown user, got %+v", got)
	}

	rec = s.do(t, http.MethodPost, "/register", RegisterRequest{Phone: "9876543210", Name: "Asha"})
	if rec.Code != http.StatusOK {
		t.Fatalf("register: expected 200, got %d %s", rec.Code, rec.Body.String())
	}

	rec = s.do(t, http.MethodPost, "/check-user", CheckUserRequest{Phone: "9876543210"})
	if got := decodeBody[CheckUserResponse](t, rec); !got.Exists || got.Name != "Asha" {
		t.Fatalf("expected registered user, got %+v", got)
	}

	rec = s.do(t, http.MethodPost, "/book-appointment", BookRequest{
		UserPhone: "9876543210",
		Services:  []string{"Manicure", "pedicure"},
		Location:  "whitefield",
		Date:      "2026-10-17",
		Time:      "4pm",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("book: expected 200, got %d %s", rec.Code, rec.Body.String())
	}
	booked := decodeBody[BookResponse](t, rec)
	// Combo 600, weekend and first booking: 600 * 0.9 * 0.5.
	if booked.PriceDetails.TotalPrice != 270 || !booked.PriceDetails.OfferApplied || !booked.PriceDetails.FirstBookingOfferApplied {
		t.Fatalf("unexpected price details %+v", booked.PriceDetails)
	}
	if booked.Appointment.Location != "Whitefield" || booked.Appointment.Time != "4PM" || booked.Appointment.Services != "manicure, pedicure" {
		t.Fatalf("unexpected appointment %+v", booked.Appointment)
	}

	rec = s.do(t, http.MethodPost, "/get-appointments", ListAppointmentsRequest{UserPhone: "9876543210"})
	if list := decodeBody[ListAppointmentsResponse](t, rec); len(list.Appointments) != 1 {
		t.Fatalf("expected one appointment, got %+v", list)
	}

	rec = s.do(t, http.MethodPost, "/cancel-appointment", CancelRequest{AppointmentID: booked.Appointment.ID.String()})
	if got := decodeBody[CancelResponse](t, rec); got.CancelledAppointment.Status != string(salon.StatusCancelled) {
		t.Fatalf("expected cancelled status, got %+v", got)
	}

	rec = s.do(t, http.MethodPost, "/get-appointments", ListAppointmentsRequest{UserPhone: "9876543210"})
	if list := decodeBody[ListAppointmentsResponse](t, rec); len(list.Appointments) != 0 {
		t.Fatalf("expected cancelled appointment hidden, got %+v", list)
	}

	rec = s.do(t, http.MethodGet, "/get-all-appointments", nil, "Authorization", "Bearer admin-secret")
	all := decodeBody[ListAppointmentsResponse](t, rec)
	if len(all.Appointments) != 1 || all.Appointments[0].CustomerName != "Asha" {
		t.Fatalf("expected admin view with customer name, got %+v", all)
	}
}

func TestRESTValidation(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(t, http.MethodPost, "/book-appointment", map[string]any{"user_phone": "12", "services": []string{}})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	body := decodeBody[struct {
		Error   string            `json:"error"`
		Details map[string]string `json:"details"`
	}](t, rec)
	if body.Error != "validation_failed" || body.Details["user_phone"] != "phone" || body.Details["services"] != "min" {
		t.Fatalf("unexpected validation details %+v", body)
	}

	rec = s.do(t, http.MethodPost, "/book-appointment", BookRequest{
		UserPhone: "9876543210", Services: []string{"tattoo"}, Location: "Koramangala", Date: "2026-10-17", Time: "4PM",
	})
	if rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), "unknown_service") {
		t.Fatalf("expected unknown_service, got %d %s", rec.Code, rec.Body.String())
	}

	rec = s.do(t, http.MethodPost, "/book-appointment", BookRequest{
		UserPhone: "9876543210", Services: []string{"haircut"}, Location: "Koramangala", Date: "2026-10-17", Time: "8AM",
	})
	if rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), "invalid_time") {
		t.Fatalf("expected invalid_time, got %d %s", rec.Code, rec.Body.String())
	}

	rec = s.do(t, http.MethodPost, "/cancel-appointment", CancelRequest{AppointmentID: "0b6f7f8e-3c1e-4f7a-9a57-5f1f0d9b1e11"})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown appointment, got %d", rec.Code)
	}
}

func TestAdminAuth(t *testing.T) {
	s := newTestServer(t, nil)
	if rec := s.do(t, http.MethodGet, "/get-all-appointments", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}
	if rec := s.do(t, http.MethodGet, "/get-all-appointments", nil, "X-Admin-Token", "admin-secret"); rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with header token, got %d", rec.Code)
	}

	s = newTestServer(t, func(c *RouterConfig) { c.AdminToken = "" })
	if rec := s.do(t, http.MethodGet, "/get-all-appointments", nil, "X-Admin-Token", ""); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 when admin is not configured, got %d", rec.Code)
	}
}

func TestWhatsAppWebhook(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(t, http.MethodGet, "/webhooks/whatsapp?hub.mode=subscribe&hub.verify_token=verify-me&hub.challenge=42", nil)
	if rec.Code != http.StatusOK || rec.Body.String() != "42" {
		t.Fatalf("expected challenge echo, got %d %q", rec.Code, rec.Body.String())
	}
	rec = s.do(t, http.MethodGet, "/webhooks/whatsapp?hub.mode=subscribe&hub.verify_token=nope&hub.challenge=42", nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}

	payload := `{"object":"whatsapp_business_account","entry":[{"changes":[{"value":{"messages":[
		{"from":"919876543210","id":"wamid.1","type":"text","text":{"body":"9876543210"}}]}}]}]}`
	for i := 0; i < 2; i++ {
		if rec := s.do(t, http.MethodPost, "/webhooks/whatsapp", payload); rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d %s", rec.Code, rec.Body.String())
		}
	}
	if len(s.sender.sent) != 1 {
		t.Fatalf("expected one reply after redelivery, got %d", len(s.sender.sent))
	}
	if !strings.Contains(s.sender.sent[0].Text, "name") {
		t.Fatalf("expected name prompt, got %q", s.sender.sent[0].Text)
	}

	if rec := s.do(t, http.MethodPost, "/webhooks/whatsapp", `{"object":"page"}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for foreign payload, got %d", rec.Code)
	}
}

func TestMSG91Webhook(t *testing.T) {
	s := newTestServer(t, nil)
	rec := s.do(t, http.MethodPost, "/webhooks/msg91", map[string]string{"sender": "919876543210", "message": "hi"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if len(s.sender.sent) != 1 || s.sender.sent[0].To != "919876543210" {
		t.Fatalf("unexpected replies %+v", s.sender.sent)
	}
}

func TestWebhooksDisabledWithoutChannels(t *testing.T) {
	s := newTestServer(t, func(c *RouterConfig) {
		c.WhatsApp = nil
		c.MSG91 = false
	})
	if rec := s.do(t, http.MethodPost, "/webhooks/msg91", map[string]string{"sender": "1", "message": "hi"}); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestReadiness(t *testing.T) {
	down := func(context.Context) error { return errors.New("down") }
	up := func(context.Context) error { return nil }

	cases := []struct {
		deps   []Dependency
		code   int
		status string
	}{
		{[]Dependency{{Name: "postgres", Critical: true, Ping: up}, {Name: "redis", Ping: up}}, http.StatusOK, "ok"},
		{[]Dependency{{Name: "postgres", Critical: true, Ping: up}, {Name: "redis", Ping: down}}, http.StatusOK, "degraded"},
		{[]Dependency{{Name: "postgres", Critical: true, Ping: down}, {Name: "redis", Ping: up}}, http.StatusServiceUnavailable, "error"},
	}
	for _, c := range cases {
		s := newTestServer(t, func(cfg *RouterConfig) { cfg.Health = c.deps })
		rec := s.do(t, http.MethodGet, "/health/ready", nil)
		got := decodeBody[ReadinessResponse](t, rec)
		if rec.Code != c.code || got.Status != c.status {
			t.Fatalf("expected %d/%s, got %d/%s", c.code, c.status, rec.Code, got.Status)
		}
	}
}

func TestRateLimit(t *testing.T) {
	s := newTestServer(t, func(c *RouterConfig) {
		c.RateLimitPerMinute = 1
		c.RateLimitBurst = 1
	})
	if rec := s.do(t, http.MethodPost, "/api/chat", map[string]any{"text": ""}); rec.Code != http.StatusOK {
		t.Fatalf("expected first request to pass, got %d", rec.Code)
	}
	if rec := s.do(t, http.MethodPost, "/api/chat", map[string]any{"text": ""}); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if rec := s.do(t, http.MethodGet, "/health/live", nil); rec.Code != http.StatusOK {
		t.Fatalf("expected health to bypass the limiter, got %d", rec.Code)
	}
}

func TestRESTPhoneMatchesChatKey(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(t, http.MethodPost, "/register", RegisterRequest{Phone: "987-654-3210", Name: "Asha"})
	if got := decodeBody[RegisterResponse](t, rec); got.User.Phone != "9876543210" {
		t.Fatalf("expected stored phone 9876543210, got %+v", got)
	}

	rec = s.do(t, http.MethodPost, "/api/chat", map[string]any{"text": "98765 43210", "step": session.StepPhone})
	if resp := decodeBody[dialogue.Response](t, rec); resp.NextStep != session.StepMainMenu {
		t.Fatalf("expected chat to find the REST user, got %s %q", resp.NextStep, resp.Reply)
	}

	rec = s.do(t, http.MethodPost, "/book-appointment", BookRequest{
		UserPhone: "(987) 654 3210", Services: []string{"haircut"}, Location: "Koramangala", Date: "2026-10-20", Time: "4PM",
	})
	if got := decodeBody[BookResponse](t, rec); got.Appointment.UserPhone != "9876543210" {
		t.Fatalf("expected normalized user_phone, got %+v", got.Appointment)
	}

	rec = s.do(t, http.MethodPost, "/check-user", CheckUserRequest{Phone: "+919876543210"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for a number the chat would reject, got %d", rec.Code)
	}
}
