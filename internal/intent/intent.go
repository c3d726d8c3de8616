package intent

import "strings"

// Action is a canonical main menu choice.
type Action string

const (
	None   Action = ""
	Book   Action = "book"
	View   Action = "view"
	Modify Action = "modify"
)

var phrases = map[string]Action{
	"1":                      Book,
	"book":                   Book,
	"book appointment":       Book,
	"book an appointment":    Book,
	"new booking":            Book,
	"2":                      View,
	"view":                   View,
	"view appointments":      View,
	"view my appointments":   View,
	"my appointments":        View,
	"3":                      Modify,
	"modify":                 Modify,
	"modify appointment":     Modify,
	"reschedule":             Modify,
	"reschedule/cancel":      Modify,
	"reschedule / cancel":    Modify,
	"reschedule or cancel":   Modify,
	"change":                 Modify,
	"cancel":                 Modify,
	"modify/cancel":          Modify,
	"change or cancel":       Modify,
	"manage my appointments": Modify,
}

// Normalize maps typed menu input to an action, ignoring case and extra whitespace.
func Normalize(text string) Action {
	key := strings.Join(strings.Fields(strings.ToLower(text)), " ")
	return phrases[key]
}

// FromButton maps an interactive button value. Button values are already
// canonical so only the three action names are accepted.
func FromButton(value string) Action {
	switch a := Action(strings.TrimSpace(value)); a {
	case Book, View, Modify:
		return a
	}
	return None
}

// Resolve prefers an explicit button value over typed text.
func Resolve(text, button string) Action {
	if button != "" {
		return FromButton(button)
	}
	return Normalize(text)
}
