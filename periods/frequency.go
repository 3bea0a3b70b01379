package periods

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// Periodicity parsing errors.
var (
	ErrSubDaily           = errors.New("periodicities shorter than daily are not supported")
	ErrUnknownPeriodicity = errors.New("unknown periodicity")
)

// subDailyUnits lists the unit aliases that describe periods shorter than
// one calendar day. Matching is case sensitive: "MS" is month start while
// "ms" is milliseconds.
var subDailyUnits = map[string]bool{
	"BH":  true,
	"bh":  true,
	"CBH": true,
	"cbh": true,
	"H":   true,
	"h":   true,
	"T":   true,
	"min": true,
	"S":   true,
	"s":   true,
	"L":   true,
	"ms":  true,
	"U":   true,
	"us":  true,
	"N":   true,
	"ns":  true,
}

var weekdayAnchors = map[string]time.Weekday{
	"SUN": time.Sunday,
	"MON": time.Monday,
	"TUE": time.Tuesday,
	"WED": time.Wednesday,
	"THU": time.Thursday,
	"FRI": time.Friday,
	"SAT": time.Saturday,
}

var codePattern = regexp.MustCompile(`^(\d*)([A-Za-z]+)(?:-([A-Za-z]{3}))?$`)

// Frequency is a parsed periodicity code such as "D", "2D", "W-MON" or "M".
type Frequency struct {
	Code string
	N    int
	Unit string

	step offset
}

// ParseFrequency parses a periodicity code. A code is an optional positive
// multiple followed by a unit alias, with an optional weekday anchor for
// weekly units.
func ParseFrequency(code string) (Frequency, error) {
	m := codePattern.FindStringSubmatch(code)
	if m == nil {
		return Frequency{}, fmt.Errorf("%w: %q", ErrUnknownPeriodicity, code)
	}

	n := 1
	if m[1] != "" {
		v, err := strconv.Atoi(m[1])
		if err != nil || v < 1 {
			return Frequency{}, fmt.Errorf("%w: invalid multiple in %q", ErrUnknownPeriodicity, code)
		}
		n = v
	}

	unit, anchor := m[2], m[3]
	if subDailyUnits[unit] {
		return Frequency{}, fmt.Errorf("%w: %q", ErrSubDaily, code)
	}

	f := Frequency{Code: code, N: n, Unit: unit}

	if anchor != "" && unit != "W" {
		switch {
		case (unit == "Q" || unit == "QE") && anchor == "DEC",
			(unit == "A" || unit == "Y" || unit == "YE") && anchor == "DEC",
			(unit == "QS" || unit == "AS" || unit == "YS") && anchor == "JAN":
		default:
			return Frequency{}, fmt.Errorf("%w: unsupported anchor in %q", ErrUnknownPeriodicity, code)
		}
	}

	switch unit {
	case "D":
		f.step = dayStep{n: n}
	case "B":
		f.step = businessDayStep{n: n}
	case "W":
		wd := time.Sunday
		if anchor != "" {
			v, ok := weekdayAnchors[anchor]
			if !ok {
				return Frequency{}, fmt.Errorf("%w: unknown weekday in %q", ErrUnknownPeriodicity, code)
			}
			wd = v
		}
		f.step = weekStep{n: n, weekday: wd}
	case "M", "ME":
		f.step = monthEndStep{months: n}
	case "MS":
		f.step = monthBeginStep{months: n}
	case "Q", "QE":
		f.step = monthEndStep{months: 3 * n, every: 3}
	case "QS":
		f.step = monthBeginStep{months: 3 * n, every: 3}
	case "A", "Y", "YE":
		f.step = monthEndStep{months: 12 * n, every: 12}
	case "AS", "YS":
		f.step = monthBeginStep{months: 12 * n, every: 12}
	default:
		return Frequency{}, fmt.Errorf("%w: %q", ErrUnknownPeriodicity, code)
	}

	return f, nil
}

// Daily reports whether the frequency spans exactly one (business) day, in
// which case every period starts and ends on the same date.
func (f Frequency) Daily() bool {
	return f.N == 1 && (f.Unit == "D" || f.Unit == "B")
}

// Dates returns count dates starting from start rolled forward to the first
// date on the frequency, each following date one step later.
func (f Frequency) Dates(start time.Time, count int) []time.Time {
	dates := make([]time.Time, 0, count)
	cur := f.step.rollForward(truncateDay(start))
	for range count {
		dates = append(dates, cur)
		cur = f.step.next(cur)
	}
	return dates
}

// offset moves dates along a frequency. next is only called with dates
// already on the frequency.
type offset interface {
	rollForward(t time.Time) time.Time
	next(t time.Time) time.Time
}

type dayStep struct{ n int }

func (s dayStep) rollForward(t time.Time) time.Time { return t }
func (s dayStep) next(t time.Time) time.Time        { return t.AddDate(0, 0, s.n) }

type businessDayStep struct{ n int }

func (s businessDayStep) rollForward(t time.Time) time.Time {
	switch t.Weekday() {
	case time.Saturday:
		return t.AddDate(0, 0, 2)
	case time.Sunday:
		return t.AddDate(0, 0, 1)
	}
	return t
}

func (s businessDayStep) next(t time.Time) time.Time {
	for i := 0; i < s.n; {
		t = t.AddDate(0, 0, 1)
		if wd := t.Weekday(); wd != time.Saturday && wd != time.Sunday {
			i++
		}
	}
	return t
}

type weekStep struct {
	n       int
	weekday time.Weekday
}

func (s weekStep) rollForward(t time.Time) time.Time {
	return t.AddDate(0, 0, (int(s.weekday)-int(t.Weekday())+7)%7)
}

func (s weekStep) next(t time.Time) time.Time { return t.AddDate(0, 0, 7*s.n) }

// monthEndStep lands on the last day of a month. every restricts the
// anchor months to multiples of every (3 for quarters, 12 for years).
type monthEndStep struct {
	months int
	every  int
}

func (s monthEndStep) rollForward(t time.Time) time.Time {
	m := int(t.Month())
	if s.every > 1 {
		m = ((m + s.every - 1) / s.every) * s.every
	}
	return lastOfMonth(t.Year(), time.Month(m))
}

func (s monthEndStep) next(t time.Time) time.Time {
	return lastOfMonth(t.Year(), t.Month()+time.Month(s.months))
}

// monthBeginStep lands on the first day of a month. every restricts the
// anchor months to 1, 1+every, 1+2*every, ...
type monthBeginStep struct {
	months int
	every  int
}

func (s monthBeginStep) rollForward(t time.Time) time.Time {
	every := max(s.every, 1)
	m := int(t.Month())
	if t.Day() == 1 && (m-1)%every == 0 {
		return t
	}
	// first anchor month strictly after the current month's first day
	next := ((m-1)/every+1)*every + 1
	return time.Date(t.Year(), time.Month(next), 1, 0, 0, 0, 0, time.UTC)
}

func (s monthBeginStep) next(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month()+time.Month(s.months), 1, 0, 0, 0, 0, time.UTC)
}

func lastOfMonth(year int, month time.Month) time.Time {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC)
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
