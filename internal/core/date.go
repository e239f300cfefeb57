package core

import (
	"strings"
	"time"
)

// dateLayouts lists the accepted statement date formats. Slash and dash dates with
// two leading numeric fields are read month first (US locale), so "03/04/2024" is
// March 4th. ISO dates are unambiguous and tried first.
var dateLayouts = []string{
	DateLayout,
	"2006/01/02",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"01/02/2006",
	"1/2/2006",
	"01/02/2006 15:04:05",
	"1/2/2006 15:04:05",
	"01/02/2006 15:04",
	"1/2/2006 15:04",
	"01-02-2006",
	"1-2-2006",
	"01/02/06",
	"1/2/06",
	"Jan 2, 2006",
	"January 2, 2006",
	"Jan 2 2006",
	"2 Jan 2006",
	"02 Jan 2006",
	"2 January 2006",
	"Mon, 02 Jan 2006",
	"20060102",
}

// ParseDate reads a statement date and drops any time of day.
func ParseDate(raw string) (Date, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Date{}, ErrInvalidDate
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return DateOf(t), nil
		}
	}
	return Date{}, &ValidationError{Field: "date", Value: raw, Reason: "date is not recognised"}
}

// DateRange is an inclusive calendar interval. A zero bound is open.
type DateRange struct {
	Start Date
	End   Date
}

// Contains reports whether d falls inside the range, bounds included.
func (r DateRange) Contains(d Date) bool {
	if !r.Start.IsZero() && d.Before(r.Start.Time) {
		return false
	}
	if !r.End.IsZero() && d.After(r.End.Time) {
		return false
	}
	return true
}
