// Package temporal parses the free-text dates and times customers type into
// calendar values that fall inside the salon's booking rules.
package temporal

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ISODate is the layout used for dates carried in session state and storage.
const ISODate = "2006-01-02"

var (
	dateRe     = regexp.MustCompile(`^(\d{1,2})[-/](\d{1,2})[-/](\d{4})$`)
	suffixRe   = regexp.MustCompile(`^(\d{1,2})(AM|PM)$`)
	bareHourRe = regexp.MustCompile(`^\d{1,2}$`)
)

// Rules are the business limits for accepted dates and times.
type Rules struct {
	Location   *time.Location
	WindowDays int
	OpenHour   int
	CloseHour  int
}

// DefaultRules accept dates up to 30 days ahead and times from 10AM to 10PM.
func DefaultRules(loc *time.Location) Rules {
	if loc == nil {
		loc = time.Local
	}
	return Rules{Location: loc, WindowDays: 30, OpenHour: 10, CloseHour: 22}
}

// Slot is an accepted appointment hour.
type Slot struct {
	Hour24 int
	Label  string
}

// ParseDate accepts DD-MM-YYYY or DD/MM/YYYY within [today, today+WindowDays].
// The second return value is false for malformed, impossible or out of window dates.
func (r Rules) ParseDate(text string, now time.Time) (time.Time, bool) {
	m := dateRe.FindStringSubmatch(strings.TrimSpace(text))
	if m == nil {
		return time.Time{}, false
	}
	day, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	year, _ := strconv.Atoi(m[3])

	loc := r.location()
	d := time.Date(year, time.Month(month), day, 0, 0, 0, 0, loc)
	// time.Date normalizes 31-02 into March; a round trip mismatch means the date does not exist.
	if d.Day() != day || int(d.Month()) != month || d.Year() != year {
		return time.Time{}, false
	}

	today := Midnight(now.In(loc))
	last := today.AddDate(0, 0, r.WindowDays)
	if d.Before(today) || d.After(last) {
		return time.Time{}, false
	}
	return d, true
}

// ParseTime accepts "4PM", "10 am" or a bare 24-hour value such as "16".
// Hours outside [OpenHour, CloseHour] are rejected.
func (r Rules) ParseTime(text string) (Slot, bool) {
	s := strings.ToUpper(strings.Join(strings.Fields(text), ""))
	if s == "" {
		return Slot{}, false
	}

	var hour int
	switch {
	case suffixRe.MatchString(s):
		m := suffixRe.FindStringSubmatch(s)
		h, _ := strconv.Atoi(m[1])
		if h < 1 || h > 12 {
			return Slot{}, false
		}
		hour = h % 12
		if m[2] == "PM" {
			hour += 12
		}
	case bareHourRe.MatchString(s):
		hour, _ = strconv.Atoi(s)
		if hour > 23 {
			return Slot{}, false
		}
	default:
		return Slot{}, false
	}

	if hour < r.OpenHour || hour > r.CloseHour {
		return Slot{}, false
	}
	return Slot{Hour24: hour, Label: Label(hour)}, true
}

// Label renders a 24-hour value as "4PM" style text.
func Label(hour24 int) string {
	suffix := "AM"
	if hour24 >= 12 {
		suffix = "PM"
	}
	h := hour24 % 12
	if h == 0 {
		h = 12
	}
	return strconv.Itoa(h) + suffix
}

// FormatDisplay renders a stored ISO date as DD-MM-YYYY for replies.
func FormatDisplay(iso string) string {
	d, err := time.Parse(ISODate, iso)
	if err != nil {
		return iso
	}
	return d.Format("02-01-2006")
}

// Midnight truncates t to the start of its day in t's location.
func Midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func (r Rules) location() *time.Location {
	if r.Location == nil {
		return time.Local
	}
	return r.Location
}
