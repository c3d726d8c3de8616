// Package session defines the dialogue state that is handed back to the caller
// after every turn and echoed on the next one. Nothing here is stored server side.
package session

import (
	"strings"
	"unicode"
)

// Version is the current shape of State.
const Version = 1

type Step string

const (
	StepPhone       Step = "phone"
	StepNewUserName Step = "newUserName"
	StepMainMenu    Step = "mainMenu"
	StepModifyPick  Step = "modifyPick"
	StepModifyMenu  Step = "modifyMenu"
	StepBookService Step = "bookService"
	StepBookBranch  Step = "bookBranch"
	StepBookDate    Step = "bookDate"
	StepBookTime    Step = "bookTime"
)

var knownSteps = map[Step]bool{
	StepPhone:       true,
	StepNewUserName: true,
	StepMainMenu:    true,
	StepModifyPick:  true,
	StepModifyMenu:  true,
	StepBookService: true,
	StepBookBranch:  true,
	StepBookDate:    true,
	StepBookTime:    true,
}

type Mode string

const (
	ModeNew    Mode = "new"
	ModeModify Mode = "modify"
)

type ModifyType string

const (
	ModifyServices ModifyType = "services"
	ModifyBranch   ModifyType = "branch"
	ModifyDate     ModifyType = "date"
	ModifyTime     ModifyType = "time"
	ModifyAll      ModifyType = "all"
)

// modifyOwner maps each single-field change to its step. ModifyAll walks
// every booking step and has no entry.
var modifyOwner = map[ModifyType]Step{
	ModifyServices: StepBookService,
	ModifyBranch:   StepBookBranch,
	ModifyDate:     StepBookDate,
	ModifyTime:     StepBookTime,
}

func (m ModifyType) valid() bool {
	switch m {
	case ModifyServices, ModifyBranch, ModifyDate, ModifyTime, ModifyAll:
		return true
	}
	return false
}

// Draft is the booking or modification under construction ("tempBooking").
// Empty fields mean the value has not been collected yet.
type Draft struct {
	Mode          Mode       `json:"mode,omitempty"`
	ModifyType    ModifyType `json:"modifyType,omitempty"`
	Services      []string   `json:"services"`
	Location      string     `json:"location,omitempty"`
	DateISO       string     `json:"dateISO,omitempty"`
	TimeLabel     string     `json:"timeLabel,omitempty"`
	TotalPrice    *float64   `json:"totalPrice,omitempty"`
	AppointmentID string     `json:"appointmentId,omitempty"`
}

// Clone returns a deep copy.
func (d *Draft) Clone() *Draft {
	if d == nil {
		return nil
	}
	c := *d
	c.Services = append([]string{}, d.Services...)
	if d.TotalPrice != nil {
		p := *d.TotalPrice
		c.TotalPrice = &p
	}
	return &c
}

// HasService matches case-insensitively.
func (d *Draft) HasService(name string) bool {
	for _, s := range d.Services {
		if strings.EqualFold(s, name) {
			return true
		}
	}
	return false
}

// Toggle adds name when absent and removes it when present, keeping the
// order of the other entries. It reports whether name is now selected.
func (d *Draft) Toggle(name string) bool {
	for i, s := range d.Services {
		if strings.EqualFold(s, name) {
			d.Services = append(d.Services[:i:i], d.Services[i+1:]...)
			return false
		}
	}
	d.Services = append(d.Services, name)
	return true
}

// Modifying reports whether the draft edits a stored appointment.
func (d *Draft) Modifying() bool {
	return d != nil && d.Mode == ModeModify
}

// State is everything a turn needs to resume the dialogue.
type State struct {
	Version int    `json:"version"`
	Step    Step   `json:"step"`
	Phone   string `json:"phone,omitempty"`
	Draft   *Draft `json:"tempBooking,omitempty"`
}

// Fresh is the state of a conversation that has not logged in.
func Fresh() State {
	return State{Version: Version, Step: StepPhone}
}

// Restart is the state after a completed or abandoned action.
func Restart(phone string) State {
	return State{Version: Version, Step: StepMainMenu, Phone: phone}
}

// NormalizePhone strips everything but digits and accepts exactly ten.
func NormalizePhone(s string) (string, bool) {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) && r < unicode.MaxASCII {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	return digits, len(digits) == 10
}

// Normalize repairs state arriving from the caller so that every step only
// sees the draft shape it can work with: services is never nil, a step whose
// prerequisites are missing falls back to the step that collects them, and
// unknown or newer versions restart the conversation.
func Normalize(s State) State {
	if s.Version > Version {
		return Fresh()
	}
	s.Version = Version

	if s.Step == "" || !knownSteps[s.Step] {
		return Fresh()
	}
	if s.Draft != nil {
		s.Draft = s.Draft.Clone()
		if s.Draft.Services == nil {
			s.Draft.Services = []string{}
		}
	}

	if s.Step == StepPhone {
		return State{Version: Version, Step: StepPhone}
	}
	phone, ok := NormalizePhone(s.Phone)
	if !ok {
		return Fresh()
	}
	s.Phone = phone

	switch s.Step {
	case StepNewUserName, StepMainMenu, StepModifyPick:
		s.Draft = nil
		return s
	case StepModifyMenu:
		if !modifyDraftValid(s.Draft) {
			return Restart(phone)
		}
		s.Draft.ModifyType = ""
		return s
	}

	// Booking steps.
	if s.Draft == nil {
		s.Draft = &Draft{Mode: ModeNew, Services: []string{}}
	}
	switch s.Draft.Mode {
	case "", ModeNew:
		s.Draft.Mode = ModeNew
		s.Draft.ModifyType = ""
		s.Draft.AppointmentID = ""
	case ModeModify:
		if !modifyDraftValid(s.Draft) {
			return Restart(phone)
		}
		if !s.Draft.ModifyType.valid() {
			s.Step = StepModifyMenu
			s.Draft.ModifyType = ""
			return s
		}
		// A single-field change is only collected by the step that owns it.
		if owner, ok := modifyOwner[s.Draft.ModifyType]; ok {
			if s.Step != owner {
				s.Step = StepModifyMenu
				s.Draft.ModifyType = ""
			}
			return s
		}
	default:
		return Restart(phone)
	}

	s.Step = earliestMissing(s.Step, s.Draft)
	return s
}

func modifyDraftValid(d *Draft) bool {
	return d != nil && d.Mode == ModeModify && d.AppointmentID != ""
}

// earliestMissing walks the booking steps in order and stops at the first
// whose input the draft lacks, never going past want.
func earliestMissing(want Step, d *Draft) Step {
	order := []struct {
		step    Step
		present bool
	}{
		{StepBookService, len(d.Services) > 0},
		{StepBookBranch, d.Location != ""},
		{StepBookDate, d.DateISO != ""},
		{StepBookTime, d.TimeLabel != ""},
	}
	for _, o := range order {
		if o.step == want || !o.present {
			return o.step
		}
	}
	return want
}
