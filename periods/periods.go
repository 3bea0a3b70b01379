// Package periods splits a time span into the date ranges used as custom
// search filters.
package periods

import (
	"errors"
	"fmt"
	"time"
)

// DateLayout is the MM/DD/YYYY layout used for search filter dates.
const DateLayout = "01/02/2006"

// Errors returned when generating periods.
var (
	ErrInvalidCount     = errors.New("period count must be at least 1")
	ErrInvalidStartDate = errors.New("start date must be formatted MM/DD/YYYY")
)

// Period is a closed date range. Start is never after End.
type Period struct {
	Start time.Time
	End   time.Time
}

// FormatStart returns the start date formatted MM/DD/YYYY.
func (p Period) FormatStart() string {
	return p.Start.Format(DateLayout)
}

// FormatEnd returns the end date formatted MM/DD/YYYY.
func (p Period) FormatEnd() string {
	return p.End.Format(DateLayout)
}

func (p Period) String() string {
	return p.FormatStart() + " to " + p.FormatEnd()
}

// Days returns the number of calendar days covered by the period.
func (p Period) Days() int {
	return int(p.End.Sub(p.Start).Hours()/24) + 1
}

// ParseDate parses a start date in MM/DD/YYYY form. ISO dates (YYYY-MM-DD)
// are accepted as well.
func ParseDate(s string) (time.Time, error) {
	for _, layout := range []string{DateLayout, "1/2/2006", time.DateOnly} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidStartDate, s)
}

// Generate returns count periods beginning at start, each one periodicity
// long, in ascending order.
//
// Single-day periodicities ("D", "B") produce periods whose start equals
// their end. Longer periodicities end each period one day before the next
// nominal start; for anchored units (weeks, months, quarters, years) the end
// dates are rolled forward onto the anchor, so neighbouring periods can
// share a boundary date.
func Generate(start time.Time, count int, code string) ([]Period, error) {
	if count < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidCount, count)
	}

	freq, err := ParseFrequency(code)
	if err != nil {
		return nil, err
	}

	if freq.Daily() {
		dates := freq.Dates(start, count)
		periods := make([]Period, len(dates))
		for i, d := range dates {
			periods[i] = Period{Start: d, End: d}
		}
		return periods, nil
	}

	// A single period still needs the second start date to place its end,
	// so always probe at least two starts.
	probe := max(count, 2)
	starts := freq.Dates(start, probe)
	ends := freq.Dates(starts[1].AddDate(0, 0, -1), probe)

	periods := make([]Period, count)
	for i := range count {
		periods[i] = Period{Start: starts[i], End: ends[i]}
	}
	return periods, nil
}

// GenerateFrom parses an MM/DD/YYYY start date and generates periods from
// it.
func GenerateFrom(startDate string, count int, code string) ([]Period, error) {
	start, err := ParseDate(startDate)
	if err != nil {
		return nil, err
	}
	return Generate(start, count, code)
}
