// Package dialogue runs one turn of the booking conversation: it reads the
// echoed session state, validates the customer's input for the current step,
// performs any storage side effect and returns the reply with the next state.
package dialogue

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hackgods/salon-booking-assistant/internal/pricing"
	"github.com/hackgods/salon-booking-assistant/internal/salon"
	"github.com/hackgods/salon-booking-assistant/internal/session"
	"github.com/hackgods/salon-booking-assistant/internal/temporal"
)

// Store is the persistence the engine needs. *salon.Service implements it.
type Store interface {
	LookupUser(ctx context.Context, phone string) (*salon.User, error)
	RegisterUser(ctx context.Context, phone, name string) (*salon.User, error)
	ListAppointments(ctx context.Context, phone string, bookedOnly bool) ([]salon.Appointment, error)
	GetAppointment(ctx context.Context, phone string, id uuid.UUID) (*salon.Appointment, error)
	Quote(ctx context.Context, phone string, services []string, date time.Time, exclude uuid.UUID) (pricing.Quote, error)
	Book(ctx context.Context, b salon.Booking) (*salon.Appointment, pricing.Quote, error)
	UpdateAppointment(ctx context.Context, id uuid.UUID, p salon.AppointmentPatch) (*salon.Appointment, error)
	DeleteAppointment(ctx context.Context, id uuid.UUID) error
}

// Request is one inbound turn. Step, Phone and TempBooking are whatever the
// previous Response returned; all of them may be missing.
type Request struct {
	Text        string         `json:"text"`
	Button      string         `json:"button,omitempty"`
	Step        session.Step   `json:"step,omitempty"`
	Phone       string         `json:"phone,omitempty"`
	TempBooking *session.Draft `json:"tempBooking,omitempty"`
	Version     int            `json:"version,omitempty"`
}

func (r Request) State() session.State {
	step := r.Step
	if step == "" {
		step = session.StepPhone
	}
	return session.State{Version: r.Version, Step: step, Phone: r.Phone, Draft: r.TempBooking}
}

// Button is a suggested quick reply. ID is sent back as Request.Button.
type Button struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type Response struct {
	Reply       string         `json:"reply"`
	NextStep    session.Step   `json:"nextStep"`
	Phone       string         `json:"phone,omitempty"`
	TempBooking *session.Draft `json:"tempBooking,omitempty"`
	Version     int            `json:"version"`
	Buttons     []Button       `json:"buttons,omitempty"`
}

// State is what the caller must echo on the next turn.
func (r Response) State() session.State {
	return session.State{Version: r.Version, Step: r.NextStep, Phone: r.Phone, Draft: r.TempBooking}
}

type turn struct {
	state  session.State
	text   string
	button string
}

// input is the button value when one was tapped, else the typed text.
func (t turn) input() string {
	if t.button != "" {
		return t.button
	}
	return t.text
}

type stepHandler func(ctx context.Context, t turn) (Response, error)

type Engine struct {
	store    Store
	catalog  pricing.Catalog
	rules    temporal.Rules
	now      func() time.Time
	logger   *zap.Logger
	handlers map[session.Step]stepHandler
}

type Option func(*Engine)

// WithClock overrides time.Now, used for the date window and weekday pricing.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

func New(store Store, catalog pricing.Catalog, rules temporal.Rules, opts ...Option) *Engine {
	e := &Engine{
		store:   store,
		catalog: catalog,
		rules:   rules,
		now:     time.Now,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.handlers = map[session.Step]stepHandler{
		session.StepPhone:       e.handlePhone,
		session.StepNewUserName: e.handleNewUserName,
		session.StepMainMenu:    e.handleMainMenu,
		session.StepModifyPick:  e.handleModifyPick,
		session.StepModifyMenu:  e.handleModifyMenu,
		session.StepBookService: e.handleBookService,
		session.StepBookBranch:  e.handleBookBranch,
		session.StepBookDate:    e.handleBookDate,
		session.StepBookTime:    e.handleBookTime,
	}
	return e
}

// Handle runs a single turn. It never returns an error: rejected input becomes
// a re-prompt on the same step and storage failures reset to the phone step.
func (e *Engine) Handle(ctx context.Context, req Request) Response {
	st := e.sanitize(session.Normalize(req.State()))

	t := turn{
		state:  st,
		text:   strings.TrimSpace(req.Text),
		button: strings.TrimSpace(req.Button),
	}

	resp, err := e.handlers[st.Step](ctx, t)
	if err != nil {
		e.logger.Error("dialogue turn failed",
			zap.String("step", string(st.Step)),
			zap.String("phone", st.Phone),
			zap.Error(err),
		)
		return e.failure()
	}
	return resp
}

// sanitize drops draft values this deployment would never have produced, then
// lets session.Normalize move the step back to whichever one collects them.
func (e *Engine) sanitize(st session.State) session.State {
	d := st.Draft
	if d == nil {
		return st
	}
	changed := false
	if d.Mode == session.ModeModify {
		if _, err := uuid.Parse(d.AppointmentID); err != nil {
			d.AppointmentID = ""
			changed = true
		}
	} else if d.Location != "" && !e.knownBranch(d.Location) {
		d.Location = ""
		changed = true
	}
	if d.DateISO != "" {
		if _, err := time.Parse(temporal.ISODate, d.DateISO); err != nil {
			d.DateISO = ""
			changed = true
		}
	}
	if !changed {
		return st
	}
	return session.Normalize(st)
}

func (e *Engine) knownBranch(name string) bool {
	for _, b := range e.catalog.Branches {
		if b == name {
			return true
		}
	}
	return false
}

// stay re-prompts the current step with the draft untouched.
func stay(t turn, reply string, buttons ...Button) Response {
	return Response{
		Reply:       reply,
		NextStep:    t.state.Step,
		Phone:       t.state.Phone,
		TempBooking: t.state.Draft.Clone(),
		Version:     session.Version,
		Buttons:     buttons,
	}
}

func move(t turn, next session.Step, d *session.Draft, reply string, buttons ...Button) Response {
	return Response{
		Reply:       reply,
		NextStep:    next,
		Phone:       t.state.Phone,
		TempBooking: d,
		Version:     session.Version,
		Buttons:     buttons,
	}
}

// restart discards the draft and returns to the main menu.
func restart(t turn, reply string) Response {
	return Response{
		Reply:    reply + "\n\n" + menuText(),
		NextStep: session.StepMainMenu,
		Phone:    t.state.Phone,
		Version:  session.Version,
		Buttons:  menuButtons,
	}
}

func (e *Engine) failure() Response {
	return Response{
		Reply:    msgFailure,
		NextStep: session.StepPhone,
		Version:  session.Version,
	}
}
