package dialogue

import (
	"fmt"
	"strings"

	"github.com/hackgods/salon-booking-assistant/internal/intent"
	"github.com/hackgods/salon-booking-assistant/internal/pricing"
	"github.com/hackgods/salon-booking-assistant/internal/salon"
	"github.com/hackgods/salon-booking-assistant/internal/session"
	"github.com/hackgods/salon-booking-assistant/internal/temporal"
)

const (
	msgAskPhone      = "Welcome to the salon! Please enter your 10-digit mobile number to continue."
	msgBadPhone      = "That doesn't look like a 10-digit mobile number. Please try again."
	msgAskName       = "Looks like you're new here. What's your name?"
	msgUnknownChoice = "Sorry, I didn't get that."
	msgNoUpcoming    = "You have no upcoming appointments."
	msgNoModifiable  = "You have no appointments to change."
	msgGone          = "That appointment no longer exists."
	msgNeedService   = "Please select at least one service before continuing."
	msgFailure       = "Sorry, something went wrong on our side. Please enter your 10-digit mobile number to start again."
	placeholderName  = "Guest"
)

var menuButtons = []Button{
	{ID: string(intent.Book), Title: "Book Appointment"},
	{ID: string(intent.View), Title: "View Appointments"},
	{ID: string(intent.Modify), Title: "Reschedule/Cancel"},
}

var doneButtons = []Button{{ID: "done", Title: "Done"}}

func menuText() string {
	return "What would you like to do?\n" +
		"1. Book Appointment\n" +
		"2. View Appointments\n" +
		"3. Reschedule/Cancel"
}

func modifyMenuText() string {
	return "What would you like to change?\n" +
		"1. Services\n" +
		"2. Branch\n" +
		"3. Date\n" +
		"4. Time\n" +
		"5. Everything\n" +
		"6. Cancel appointment\n" +
		"7. Back to main menu"
}

func serviceMenuText(c pricing.Catalog, d *session.Draft) string {
	var b strings.Builder
	b.WriteString("Choose a service by typing its name or number. Send it again to remove it, or type *done* when finished.\n")
	for i, s := range c.Services {
		fmt.Fprintf(&b, "%d. %s - %s\n", i+1, titleCase(s.Name), rupees(s.Price))
	}
	if len(c.Combos) > 0 {
		b.WriteString("Combo offers:\n")
		for _, combo := range c.Combos {
			fmt.Fprintf(&b, "- %s + %s for %s\n", titleCase(combo.Members[0]), titleCase(combo.Members[1]), rupees(combo.Price))
		}
	}
	b.WriteString(selectionLine(d))
	return b.String()
}

func selectionLine(d *session.Draft) string {
	if d == nil || len(d.Services) == 0 {
		return "Selected: nothing yet"
	}
	return "Selected: " + strings.Join(d.Services, ", ")
}

func branchMenuText(c pricing.Catalog) string {
	var b strings.Builder
	b.WriteString("Which branch would you like to visit?")
	for i, name := range c.Branches {
		fmt.Fprintf(&b, "\n%d. %s", i+1, name)
	}
	return b.String()
}

func datePrompt(r temporal.Rules) string {
	return fmt.Sprintf("On which date? Please use DD-MM-YYYY, from today up to %d days ahead.", r.WindowDays)
}

func timePrompt(r temporal.Rules) string {
	return fmt.Sprintf("What time works for you? We're open %s to %s (for example 4PM or 16).",
		temporal.Label(r.OpenHour), temporal.Label(r.CloseHour))
}

func appointmentLine(a salon.Appointment) string {
	line := fmt.Sprintf("%s at %s on %s at %s (%s)",
		strings.Join(a.Services, ", "),
		a.Location,
		a.Date.Format("02-01-2006"),
		a.Time,
		rupees(a.TotalPrice),
	)
	if a.Status != salon.StatusBooked {
		line += " [" + string(a.Status) + "]"
	}
	return line
}

func appointmentList(list []salon.Appointment) string {
	lines := make([]string, len(list))
	for i, a := range list {
		lines[i] = fmt.Sprintf("%d. %s", i+1, appointmentLine(a))
	}
	return strings.Join(lines, "\n")
}

func offerLines(q pricing.Quote) string {
	var b strings.Builder
	if q.WeekendOfferApplied {
		b.WriteString("\nWeekend offer applied: 10% off")
	}
	if q.FirstBookingOfferApplied {
		b.WriteString("\nFirst booking offer applied: 50% off")
	}
	return b.String()
}

func bookingSummary(a *salon.Appointment, q pricing.Quote) string {
	return fmt.Sprintf("Services: %s\nBranch: %s\nDate: %s\nTime: %s\nTotal: %s%s",
		strings.Join(a.Services, ", "),
		a.Location,
		a.Date.Format("02-01-2006"),
		a.Time,
		rupees(a.TotalPrice),
		offerLines(q),
	)
}

func rupees(v float64) string {
	return fmt.Sprintf("Rs. %.2f", v)
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func displayName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
