package pricing

import (
	"errors"
	"fmt"
	"strings"
)

// Service is a single priced item on the menu.
type Service struct {
	Name  string
	Price float64
}

// Combo replaces both members with a fixed price when they are booked together.
type Combo struct {
	Name    string
	Members [2]string
	Price   float64
}

// Catalog is the read-only price list and branch table shared by the pricing
// and dialogue packages. Build it once at startup and pass it by value.
type Catalog struct {
	Services           []Service
	Combos             []Combo
	Branches           []string
	WeekendFactor      float64
	FirstBookingFactor float64
}

// DefaultCatalog is the price list (in rupees) the salon ships with.
func DefaultCatalog() Catalog {
	return Catalog{
		Services: []Service{
			{Name: "haircut", Price: 500},
			{Name: "hair coloring", Price: 800},
			{Name: "facial", Price: 400},
			{Name: "manicure", Price: 300},
			{Name: "pedicure", Price: 350},
			{Name: "spa treatment", Price: 1000},
		},
		Combos: []Combo{
			{Name: "combo: manicure + pedicure", Members: [2]string{"manicure", "pedicure"}, Price: 600},
			{Name: "combo: haircut + facial", Members: [2]string{"haircut", "facial"}, Price: 800},
		},
		Branches:           []string{"Koramangala", "Indiranagar", "Whitefield", "Jayanagar"},
		WeekendFactor:      0.90,
		FirstBookingFactor: 0.50,
	}
}

// Validate checks the catalog is internally consistent.
func (c Catalog) Validate() error {
	if len(c.Services) == 0 {
		return errors.New("catalog has no services")
	}
	if len(c.Branches) == 0 {
		return errors.New("catalog has no branches")
	}

	seen := make(map[string]bool, len(c.Services))
	for _, s := range c.Services {
		key := normalizeName(s.Name)
		if key == "" {
			return errors.New("catalog service with empty name")
		}
		if seen[key] {
			return fmt.Errorf("duplicate service %q", s.Name)
		}
		if s.Price < 0 {
			return fmt.Errorf("negative price for %q", s.Name)
		}
		seen[key] = true
	}

	for _, combo := range c.Combos {
		a, b := normalizeName(combo.Members[0]), normalizeName(combo.Members[1])
		if a == b {
			return fmt.Errorf("combo %q repeats a member", combo.Name)
		}
		if !seen[a] || !seen[b] {
			return fmt.Errorf("combo %q references an unknown service", combo.Name)
		}
	}

	if c.WeekendFactor <= 0 || c.WeekendFactor > 1 {
		return fmt.Errorf("weekend factor %v out of range", c.WeekendFactor)
	}
	if c.FirstBookingFactor <= 0 || c.FirstBookingFactor > 1 {
		return fmt.Errorf("first booking factor %v out of range", c.FirstBookingFactor)
	}
	return nil
}

// LookupService resolves a free-text name to the catalog's canonical spelling.
func (c Catalog) LookupService(name string) (string, bool) {
	key := normalizeName(name)
	for _, s := range c.Services {
		if normalizeName(s.Name) == key {
			return s.Name, true
		}
	}
	return "", false
}

// ServiceAt returns the service at a 1-based menu position.
func (c Catalog) ServiceAt(pos int) (string, bool) {
	if pos < 1 || pos > len(c.Services) {
		return "", false
	}
	return c.Services[pos-1].Name, true
}

// BranchAt returns the branch at a 1-based menu position.
func (c Catalog) BranchAt(pos int) (string, bool) {
	if pos < 1 || pos > len(c.Branches) {
		return "", false
	}
	return c.Branches[pos-1], true
}

func (c Catalog) priceOf(name string) (float64, bool) {
	key := normalizeName(name)
	for _, s := range c.Services {
		if normalizeName(s.Name) == key {
			return s.Price, true
		}
	}
	return 0, false
}

func normalizeName(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
