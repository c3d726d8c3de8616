package temporal

import (
	"testing"
	"time"
)

func mustLoadLoc(t *testing.T) *time.Location {
	loc, err := time.LoadLocation("Asia/Kolkata")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	return loc
}

func TestParseDateToday(t *testing.T) {
	loc := mustLoadLoc(t)
	now := time.Date(2026, 10, 14, 18, 30, 0, 0, loc)
	d, ok := DefaultRules(loc).ParseDate("14-10-2026", now)
	if !ok {
		t.Fatalf("expected today to be accepted")
	}
	if d.Format(ISODate) != "2026-10-14" {
		t.Fatalf("unexpected date %s", d.Format(ISODate))
	}
}

func TestParseDateSlashSeparator(t *testing.T) {
	loc := mustLoadLoc(t)
	now := time.Date(2026, 10, 14, 9, 0, 0, 0, loc)
	d, ok := DefaultRules(loc).ParseDate(" 5/11/2026 ", now)
	if !ok {
		t.Fatalf("expected 5/11/2026 to be accepted")
	}
	if d.Format(ISODate) != "2026-11-05" {
		t.Fatalf("unexpected date %s", d.Format(ISODate))
	}
}

func TestParseDateSingleDigitComponents(t *testing.T) {
	loc := mustLoadLoc(t)
	now := time.Date(2026, 10, 14, 9, 0, 0, 0, loc)
	rules := DefaultRules(loc)

	for _, in := range []string{"1-11-2026", "01-11-2026", "1/11/2026"} {
		d, ok := rules.ParseDate(in, now)
		if !ok || d.Format(ISODate) != "2026-11-01" {
			t.Fatalf("expected %q to parse as 2026-11-01, got %s %v", in, d.Format(ISODate), ok)
		}
	}
	for _, in := range []string{"001-11-2026", "1-011-2026", "1-11-026"} {
		if _, ok := rules.ParseDate(in, now); ok {
			t.Fatalf("expected %q to be rejected", in)
		}
	}
}

func TestParseDateWindow(t *testing.T) {
	loc := mustLoadLoc(t)
	now := time.Date(2026, 10, 14, 9, 0, 0, 0, loc)
	rules := DefaultRules(loc)

	last := now.AddDate(0, 0, 30).Format("02-01-2006")
	if _, ok := rules.ParseDate(last, now); !ok {
		t.Fatalf("expected today+30 (%s) to be accepted", last)
	}

	beyond := now.AddDate(0, 0, 31).Format("02-01-2006")
	if _, ok := rules.ParseDate(beyond, now); ok {
		t.Fatalf("expected today+31 (%s) to be rejected", beyond)
	}

	if _, ok := rules.ParseDate("13-10-2026", now); ok {
		t.Fatalf("expected yesterday to be rejected")
	}
}

func TestParseDateInvalidCalendarDate(t *testing.T) {
	loc := mustLoadLoc(t)
	now := time.Date(2025, 2, 1, 9, 0, 0, 0, loc)
	if _, ok := DefaultRules(loc).ParseDate("31-02-2025", now); ok {
		t.Fatalf("expected 31-02-2025 to be rejected")
	}
}

func TestParseDateMalformed(t *testing.T) {
	loc := mustLoadLoc(t)
	now := time.Date(2026, 10, 14, 9, 0, 0, 0, loc)
	for _, in := range []string{"", "tomorrow", "2026-10-15", "15.10.2026", "15-10-26", "15-10-2026x"} {
		if _, ok := DefaultRules(loc).ParseDate(in, now); ok {
			t.Fatalf("expected %q to be rejected", in)
		}
	}
}

func TestParseTimeEquivalentForms(t *testing.T) {
	rules := DefaultRules(time.UTC)
	a, ok := rules.ParseTime("16")
	if !ok {
		t.Fatalf("expected 16 to be accepted")
	}
	b, ok := rules.ParseTime("4PM")
	if !ok {
		t.Fatalf("expected 4PM to be accepted")
	}
	if a != b || a.Label != "4PM" || a.Hour24 != 16 {
		t.Fatalf("expected equal slots, got %+v and %+v", a, b)
	}

	c, ok := rules.ParseTime(" 4 pm ")
	if !ok || c.Label != "4PM" {
		t.Fatalf("expected whitespace and case to be ignored, got %+v", c)
	}
}

func TestParseTimeWindow(t *testing.T) {
	rules := DefaultRules(time.UTC)
	for _, in := range []string{"23", "9AM", "12AM", "0", "11PM"} {
		if _, ok := rules.ParseTime(in); ok {
			t.Fatalf("expected %q to be rejected", in)
		}
	}
	for in, want := range map[string]string{"10AM": "10AM", "12PM": "12PM", "22": "10PM", "10pm": "10PM", "10": "10AM"} {
		s, ok := rules.ParseTime(in)
		if !ok {
			t.Fatalf("expected %q to be accepted", in)
		}
		if s.Label != want {
			t.Fatalf("expected label %s for %q, got %s", want, in, s.Label)
		}
	}
}

func TestParseTimeMalformed(t *testing.T) {
	rules := DefaultRules(time.UTC)
	for _, in := range []string{"", "noon", "0PM", "13PM", "4:30PM", "100"} {
		if _, ok := rules.ParseTime(in); ok {
			t.Fatalf("expected %q to be rejected", in)
		}
	}
}

func TestFormatDisplay(t *testing.T) {
	if got := FormatDisplay("2026-10-17"); got != "17-10-2026" {
		t.Fatalf("unexpected display %s", got)
	}
	if got := FormatDisplay("garbage"); got != "garbage" {
		t.Fatalf("expected passthrough, got %s", got)
	}
}
