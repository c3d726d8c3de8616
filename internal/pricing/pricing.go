package pricing

import (
	"math"
	"time"
)

// Quote is the outcome of pricing one booking.
type Quote struct {
	FinalPrice               float64 `json:"finalPrice"`
	WeekendOfferApplied      bool    `json:"weekendOfferApplied"`
	FirstBookingOfferApplied bool    `json:"firstBookingOfferApplied"`
}

// Price computes the total for a selection of services on a given date.
//
// Combos are collapsed first, remaining services are summed at list price
// (unknown names count as zero), then the weekend factor and the first
// booking factor are applied in that order. The result is rounded to paise.
func (c Catalog) Price(services []string, date time.Time, firstBooking bool) Quote {
	remaining := make([]string, 0, len(services))
	for _, s := range services {
		remaining = append(remaining, normalizeName(s))
	}

	var total float64
	for _, combo := range c.Combos {
		a, b := normalizeName(combo.Members[0]), normalizeName(combo.Members[1])
		ia, ib := indexOf(remaining, a), indexOf(remaining, b)
		if ia < 0 || ib < 0 {
			continue
		}
		total += combo.Price
		remaining = removeAt(remaining, ia)
		remaining = removeAt(remaining, indexOf(remaining, b))
	}

	for _, name := range remaining {
		if p, ok := c.priceOf(name); ok {
			total += p
		}
	}

	var q Quote
	if wd := date.Weekday(); wd == time.Saturday || wd == time.Sunday {
		q.WeekendOfferApplied = true
		total *= c.WeekendFactor
	}
	if firstBooking {
		q.FirstBookingOfferApplied = true
		total *= c.FirstBookingFactor
	}

	q.FinalPrice = Round2(total)
	return q
}

// Round2 rounds half away from zero to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func indexOf(list []string, v string) int {
	for i, s := range list {
		if s == v {
			return i
		}
	}
	return -1
}

func removeAt(list []string, i int) []string {
	out := make([]string, 0, len(list)-1)
	out = append(out, list[:i]...)
	return append(out, list[i+1:]...)
}
