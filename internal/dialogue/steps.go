package dialogue

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/salon-booking-assistant/internal/intent"
	"github.com/hackgods/salon-booking-assistant/internal/salon"
	"github.com/hackgods/salon-booking-assistant/internal/session"
	"github.com/hackgods/salon-booking-assistant/internal/temporal"
)

var doneWords = map[string]bool{
	"done":     true,
	"0":        true,
	"next":     true,
	"continue": true,
	"finish":   true,
	"confirm":  true,
}

func (e *Engine) handlePhone(ctx context.Context, t turn) (Response, error) {
	phone, ok := session.NormalizePhone(t.text)
	if !ok {
		if t.text == "" {
			return stay(t, msgAskPhone), nil
		}
		return stay(t, msgBadPhone), nil
	}
	t.state.Phone = phone

	u, err := e.store.LookupUser(ctx, phone)
	if errors.Is(err, salon.ErrUserNotFound) {
		return move(t, session.StepNewUserName, nil, msgAskName), nil
	}
	if err != nil {
		return Response{}, err
	}

	return restart(t, fmt.Sprintf("Welcome back, %s!", displayName(u.Name))), nil
}

func (e *Engine) handleNewUserName(ctx context.Context, t turn) (Response, error) {
	name := strings.Join(strings.Fields(t.text), " ")
	if name == "" {
		name = placeholderName
	}

	u, err := e.store.RegisterUser(ctx, t.state.Phone, name)
	if err != nil {
		return Response{}, err
	}

	return restart(t, fmt.Sprintf("Thanks, %s! You're all set.", displayName(u.Name))), nil
}

func (e *Engine) handleMainMenu(ctx context.Context, t turn) (Response, error) {
	switch intent.Resolve(t.text, t.button) {
	case intent.Book:
		d := &session.Draft{Mode: session.ModeNew, Services: []string{}}
		return move(t, session.StepBookService, d, serviceMenuText(e.catalog, d), doneButtons...), nil

	case intent.View:
		list, err := e.store.ListAppointments(ctx, t.state.Phone, true)
		if err != nil {
			return Response{}, err
		}
		if len(list) == 0 {
			return restart(t, msgNoUpcoming), nil
		}
		return restart(t, "Your upcoming appointments:\n"+appointmentList(list)), nil

	case intent.Modify:
		list, err := e.store.ListAppointments(ctx, t.state.Phone, false)
		if err != nil {
			return Response{}, err
		}
		if len(list) == 0 {
			return restart(t, msgNoModifiable), nil
		}
		reply := "Which appointment would you like to change? Reply with its number.\n" + appointmentList(list)
		return move(t, session.StepModifyPick, nil, reply), nil
	}

	return stay(t, msgUnknownChoice+"\n\n"+menuText(), menuButtons...), nil
}

func (e *Engine) handleModifyPick(ctx context.Context, t turn) (Response, error) {
	// The list is fetched again with the same ordering the previous turn showed.
	list, err := e.store.ListAppointments(ctx, t.state.Phone, false)
	if err != nil {
		return Response{}, err
	}
	if len(list) == 0 {
		return restart(t, msgNoModifiable), nil
	}

	n, err := strconv.Atoi(t.input())
	if err != nil || n < 1 || n > len(list) {
		reply := fmt.Sprintf("Please reply with a number between 1 and %d.\n%s", len(list), appointmentList(list))
		return stay(t, reply), nil
	}

	a := list[n-1]
	price := a.TotalPrice
	d := &session.Draft{
		Mode:          session.ModeModify,
		Services:      append([]string{}, a.Services...),
		Location:      a.Location,
		DateISO:       a.Date.Format(temporal.ISODate),
		TimeLabel:     a.Time,
		TotalPrice:    &price,
		AppointmentID: a.ID.String(),
	}
	reply := "You picked: " + appointmentLine(a) + "\n\n" + modifyMenuText()
	return move(t, session.StepModifyMenu, d, reply), nil
}

func (e *Engine) handleModifyMenu(ctx context.Context, t turn) (Response, error) {
	d := t.state.Draft.Clone()

	switch strings.TrimSpace(t.input()) {
	case "1":
		d.ModifyType = session.ModifyServices
		return move(t, session.StepBookService, d, serviceMenuText(e.catalog, d), doneButtons...), nil
	case "2":
		d.ModifyType = session.ModifyBranch
		return move(t, session.StepBookBranch, d, branchMenuText(e.catalog)), nil
	case "3":
		d.ModifyType = session.ModifyDate
		return move(t, session.StepBookDate, d, datePrompt(e.rules)), nil
	case "4":
		d.ModifyType = session.ModifyTime
		return move(t, session.StepBookTime, d, timePrompt(e.rules)), nil
	case "5":
		d.ModifyType = session.ModifyAll
		return move(t, session.StepBookService, d, serviceMenuText(e.catalog, d), doneButtons...), nil
	case "6":
		id, _ := uuid.Parse(d.AppointmentID)
		if _, err := e.store.GetAppointment(ctx, t.state.Phone, id); err != nil {
			if isGone(err) {
				return restart(t, msgGone), nil
			}
			return Response{}, err
		}
		if err := e.store.DeleteAppointment(ctx, id); err != nil {
			if isGone(err) {
				return restart(t, msgGone), nil
			}
			return Response{}, err
		}
		return restart(t, "Your appointment has been cancelled."), nil
	case "7":
		return restart(t, "No changes made."), nil
	}

	return stay(t, msgUnknownChoice+"\n\n"+modifyMenuText()), nil
}

func (e *Engine) handleBookService(ctx context.Context, t turn) (Response, error) {
	input := strings.ToLower(strings.TrimSpace(t.input()))

	if doneWords[input] {
		if len(t.state.Draft.Services) == 0 {
			return stay(t, msgNeedService+"\n\n"+serviceMenuText(e.catalog, t.state.Draft), doneButtons...), nil
		}
		return e.finishServices(ctx, t)
	}

	name, ok := e.resolveService(input)
	if !ok {
		reply := fmt.Sprintf("Sorry, we don't offer %q.\n\n%s", t.input(), serviceMenuText(e.catalog, t.state.Draft))
		return stay(t, reply, doneButtons...), nil
	}

	d := t.state.Draft.Clone()
	verb := "Removed"
	if d.Toggle(name) {
		verb = "Added"
	}
	reply := fmt.Sprintf("%s %s. %s\nSend another service, or type *done* to continue.", verb, name, selectionLine(d))
	return move(t, session.StepBookService, d, reply, doneButtons...), nil
}

func (e *Engine) finishServices(ctx context.Context, t turn) (Response, error) {
	d := t.state.Draft.Clone()

	// New bookings have no date yet; today stands in until the final quote.
	date := temporal.Midnight(e.now().In(e.location()))
	if d.DateISO != "" {
		date = e.parseDraftDate(d.DateISO)
	}
	exclude := draftAppointmentID(d)

	q, err := e.store.Quote(ctx, t.state.Phone, d.Services, date, exclude)
	if err != nil {
		return Response{}, err
	}
	price := q.FinalPrice
	d.TotalPrice = &price

	if d.Modifying() && d.ModifyType == session.ModifyServices {
		patch := salon.AppointmentPatch{Services: d.Services, TotalPrice: &price}
		return e.commitPatch(ctx, t, patch, func(a *salon.Appointment) string {
			return fmt.Sprintf("Services updated to %s. New total: %s%s",
				strings.Join(a.Services, ", "), rupees(a.TotalPrice), offerLines(q))
		})
	}

	reply := fmt.Sprintf("%s\nCurrent total: %s\n\n%s", selectionLine(d), rupees(price), branchMenuText(e.catalog))
	return move(t, session.StepBookBranch, d, reply), nil
}

func (e *Engine) handleBookBranch(ctx context.Context, t turn) (Response, error) {
	branch, ok := e.resolveBranch(t.input())
	if !ok {
		return stay(t, "Please choose one of our branches by number.\n\n"+branchMenuText(e.catalog)), nil
	}

	d := t.state.Draft.Clone()
	if d.Modifying() && d.ModifyType == session.ModifyBranch {
		return e.commitPatch(ctx, t, salon.AppointmentPatch{Location: &branch}, func(a *salon.Appointment) string {
			return "Branch updated to " + a.Location + "."
		})
	}

	d.Location = branch
	return move(t, session.StepBookDate, d, fmt.Sprintf("Great, %s it is.\n%s", branch, datePrompt(e.rules))), nil
}

func (e *Engine) handleBookDate(ctx context.Context, t turn) (Response, error) {
	date, ok := e.rules.ParseDate(t.input(), e.now())
	if !ok {
		return stay(t, "That date isn't available. "+datePrompt(e.rules)), nil
	}

	d := t.state.Draft.Clone()
	if d.Modifying() && d.ModifyType == session.ModifyDate {
		return e.commitPatch(ctx, t, salon.AppointmentPatch{Date: &date}, func(a *salon.Appointment) string {
			return "Date updated to " + a.Date.Format("02-01-2006") + "."
		})
	}

	d.DateISO = date.Format(temporal.ISODate)
	return move(t, session.StepBookTime, d, timePrompt(e.rules)), nil
}

func (e *Engine) handleBookTime(ctx context.Context, t turn) (Response, error) {
	slot, ok := e.rules.ParseTime(t.input())
	if !ok {
		return stay(t, "That time isn't available. "+timePrompt(e.rules)), nil
	}

	d := t.state.Draft.Clone()
	label := slot.Label

	if d.Modifying() {
		switch d.ModifyType {
		case session.ModifyTime:
			return e.commitPatch(ctx, t, salon.AppointmentPatch{Time: &label}, func(a *salon.Appointment) string {
				return "Time updated to " + a.Time + "."
			})
		case session.ModifyAll:
			date := e.parseDraftDate(d.DateISO)
			q, err := e.store.Quote(ctx, t.state.Phone, d.Services, date, draftAppointmentID(d))
			if err != nil {
				return Response{}, err
			}
			price := q.FinalPrice
			patch := salon.AppointmentPatch{
				Services:   d.Services,
				Location:   &d.Location,
				Date:       &date,
				Time:       &label,
				TotalPrice: &price,
			}
			return e.commitPatch(ctx, t, patch, func(a *salon.Appointment) string {
				return "Your appointment has been updated.\n" + bookingSummary(a, q)
			})
		}
		// Any other change type never books a new appointment.
		d.ModifyType = ""
		return move(t, session.StepModifyMenu, d, msgUnknownChoice+"\n\n"+modifyMenuText()), nil
	}

	appt, q, err := e.store.Book(ctx, salon.Booking{
		CustomerPhone: t.state.Phone,
		Services:      d.Services,
		Location:      d.Location,
		Date:          e.parseDraftDate(d.DateISO),
		Time:          label,
	})
	if err != nil {
		return Response{}, err
	}
	return restart(t, "Your appointment is confirmed!\n"+bookingSummary(appt, q)), nil
}

// commitPatch writes a modification back to the stored appointment after
// checking it still exists and belongs to the caller, then restarts.
func (e *Engine) commitPatch(ctx context.Context, t turn, p salon.AppointmentPatch, ack func(*salon.Appointment) string) (Response, error) {
	id := draftAppointmentID(t.state.Draft)

	if _, err := e.store.GetAppointment(ctx, t.state.Phone, id); err != nil {
		if isGone(err) {
			return restart(t, msgGone), nil
		}
		return Response{}, err
	}

	appt, err := e.store.UpdateAppointment(ctx, id, p)
	if err != nil {
		if isGone(err) {
			return restart(t, msgGone), nil
		}
		return Response{}, err
	}
	return restart(t, ack(appt)), nil
}

func (e *Engine) resolveService(input string) (string, bool) {
	if n, err := strconv.Atoi(input); err == nil {
		return e.catalog.ServiceAt(n)
	}
	return e.catalog.LookupService(input)
}

func (e *Engine) resolveBranch(input string) (string, bool) {
	input = strings.TrimSpace(input)
	if n, err := strconv.Atoi(input); err == nil {
		return e.catalog.BranchAt(n)
	}
	for _, b := range e.catalog.Branches {
		if strings.EqualFold(b, input) {
			return b, true
		}
	}
	return "", false
}

func (e *Engine) parseDraftDate(iso string) time.Time {
	d, err := time.ParseInLocation(temporal.ISODate, iso, e.location())
	if err != nil {
		return temporal.Midnight(e.now().In(e.location()))
	}
	return d
}

func (e *Engine) location() *time.Location {
	if e.rules.Location == nil {
		return time.Local
	}
	return e.rules.Location
}

func draftAppointmentID(d *session.Draft) uuid.UUID {
	if d == nil || !d.Modifying() {
		return uuid.Nil
	}
	id, err := uuid.Parse(d.AppointmentID)
	if err != nil {
		return uuid.Nil
	}
	return id
}

func isGone(err error) bool {
	return errors.Is(err, salon.ErrAppointmentNotFound) || errors.Is(err, salon.ErrNotOwner)
}

var _ Store = (*salon.Service)(nil)
