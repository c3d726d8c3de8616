package pricing

import (
	"testing"
	"time"
)

var (
	wednesday = time.Date(2026, 10, 14, 0, 0, 0, 0, time.UTC)
	saturday  = time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC)
	sunday    = time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC)
)

func TestPriceSingleServiceWeekday(t *testing.T) {
	q := DefaultCatalog().Price([]string{"haircut"}, wednesday, false)
	if q.FinalPrice != 500 {
		t.Fatalf("expected 500, got %v", q.FinalPrice)
	}
	if q.WeekendOfferApplied || q.FirstBookingOfferApplied {
		t.Fatalf("expected no offers, got %+v", q)
	}
}

func TestPriceComboCollapses(t *testing.T) {
	q := DefaultCatalog().Price([]string{"manicure", "pedicure"}, wednesday, false)
	if q.FinalPrice != 600 {
		t.Fatalf("expected combo price 600, got %v", q.FinalPrice)
	}

	q = DefaultCatalog().Price([]string{"Facial", "HAIRCUT", "spa treatment"}, wednesday, false)
	if q.FinalPrice != 1800 {
		t.Fatalf("expected 800 combo + 1000 spa, got %v", q.FinalPrice)
	}
}

func TestPriceBothCombos(t *testing.T) {
	q := DefaultCatalog().Price([]string{"pedicure", "haircut", "manicure", "facial"}, wednesday, false)
	if q.FinalPrice != 1400 {
		t.Fatalf("expected 1400, got %v", q.FinalPrice)
	}
}

func TestPriceComboMemberChargedOnce(t *testing.T) {
	// A duplicate member outside the consumed pair is still charged individually.
	q := DefaultCatalog().Price([]string{"manicure", "pedicure", "manicure"}, wednesday, false)
	if q.FinalPrice != 900 {
		t.Fatalf("expected 600 + 300, got %v", q.FinalPrice)
	}
}

func TestPriceUnknownServiceIgnored(t *testing.T) {
	q := DefaultCatalog().Price([]string{"haircut", "tattoo"}, wednesday, false)
	if q.FinalPrice != 500 {
		t.Fatalf("expected unknown service to add nothing, got %v", q.FinalPrice)
	}
}

func TestPriceWeekendThenFirstBooking(t *testing.T) {
	q := DefaultCatalog().Price([]string{"haircut"}, saturday, true)
	if q.FinalPrice != Round2(500*0.90*0.50) {
		t.Fatalf("expected %v, got %v", Round2(500*0.90*0.50), q.FinalPrice)
	}
	if !q.WeekendOfferApplied || !q.FirstBookingOfferApplied {
		t.Fatalf("expected both offers, got %+v", q)
	}

	q = DefaultCatalog().Price([]string{"pedicure"}, sunday, false)
	if q.FinalPrice != 315 {
		t.Fatalf("expected 315, got %v", q.FinalPrice)
	}
}

func TestPriceRoundsToTwoDecimals(t *testing.T) {
	c := DefaultCatalog()
	c.Services = append(c.Services, Service{Name: "threading", Price: 33.33})
	q := c.Price([]string{"threading"}, saturday, true)
	if q.FinalPrice != 15 {
		t.Fatalf("expected 15, got %v", q.FinalPrice)
	}
}

func TestPriceDeterministic(t *testing.T) {
	c := DefaultCatalog()
	in := []string{"facial", "haircut", "pedicure"}
	a := c.Price(in, saturday, true)
	b := c.Price(in, saturday, true)
	if a != b {
		t.Fatalf("expected identical quotes, got %+v and %+v", a, b)
	}
	if in[0] != "facial" || len(in) != 3 {
		t.Fatalf("input slice was modified: %v", in)
	}
}

func TestCatalogSwap(t *testing.T) {
	c := Catalog{
		Services:           []Service{{Name: "beard trim", Price: 220}, {Name: "shave", Price: 270}},
		Combos:             []Combo{{Name: "trim + shave", Members: [2]string{"beard trim", "shave"}, Price: 420}},
		Branches:           []string{"Centro"},
		WeekendFactor:      1,
		FirstBookingFactor: 1,
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("Validate error: %v", err)
	}
	q := c.Price([]string{"shave", "beard trim"}, saturday, true)
	if q.FinalPrice != 420 {
		t.Fatalf("expected 420, got %v", q.FinalPrice)
	}
}

func TestCatalogValidate(t *testing.T) {
	if err := DefaultCatalog().Validate(); err != nil {
		t.Fatalf("default catalog invalid: %v", err)
	}

	c := DefaultCatalog()
	c.Combos = append(c.Combos, Combo{Name: "bad", Members: [2]string{"haircut", "massage"}, Price: 1})
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for unknown combo member")
	}

	c = DefaultCatalog()
	c.Services = append(c.Services, Service{Name: "Haircut", Price: 1})
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for duplicate service")
	}
}

func TestLookups(t *testing.T) {
	c := DefaultCatalog()
	if name, ok := c.LookupService("  Hair   Coloring "); !ok || name != "hair coloring" {
		t.Fatalf("unexpected lookup result %q %v", name, ok)
	}
	if _, ok := c.LookupService("nails"); ok {
		t.Fatalf("expected unknown service")
	}
	if name, ok := c.ServiceAt(6); !ok || name != "spa treatment" {
		t.Fatalf("unexpected service at 6: %q", name)
	}
	if _, ok := c.BranchAt(5); ok {
		t.Fatalf("expected branch 5 to be out of range")
	}
}
