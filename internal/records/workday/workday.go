// Package workday finds the next working day after a given date, skipping
// weekends and public holidays.
package workday

import (
	"context"
	"fmt"
	"time"

	"github.com/worktime/worktime-backend/internal/records/timecalc"
	"github.com/worktime/worktime-backend/pkg/logger"
)

// DefaultSearchBound caps how many candidate days are examined
const DefaultSearchBound = 60

// Set is a lookup of holiday dates keyed by YYYY-MM-DD
type Set map[string]struct{}

// NewSet builds a Set from dates
func NewSet(dates ...timecalc.Date) Set {
	s := make(Set, len(dates))
	for _, d := range dates {
		s[d.String()] = struct{}{}
	}
	return s
}

// Contains reports whether d is a holiday
func (s Set) Contains(d timecalc.Date) bool {
	_, ok := s[d.String()]
	return ok
}

// IsWeekend reports Saturday or Sunday
func IsWeekend(d timecalc.Date) bool {
	wd := d.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// IsWorkday reports a day that is neither a weekend nor a holiday
func IsWorkday(d timecalc.Date, holidays Set) bool {
	return !IsWeekend(d) && !holidays.Contains(d)
}

// NextWorkday examines last+1 through last+bound and returns the first
// working day. When the bound runs out it returns the last candidate with
// exhausted set.
func NextWorkday(last timecalc.Date, holidays Set, bound int) (next timecalc.Date, exhausted bool) {
	if bound < 1 {
		bound = 1
	}
	candidate := last
	for i := 0; i < bound; i++ {
		candidate = candidate.AddDays(1)
		if IsWorkday(candidate, holidays) {
			return candidate, false
		}
	}
	return candidate, true
}

// WorkdaysBetween lists the working days in [from, to]
func WorkdaysBetween(from, to timecalc.Date, holidays Set) []timecalc.Date {
	var days []timecalc.Date
	for d := from; !d.After(to); d = d.AddDays(1) {
		if IsWorkday(d, holidays) {
			days = append(days, d)
		}
	}
	return days
}

// HolidayProvider returns every holiday within [from, to]
type HolidayProvider interface {
	HolidaysBetween(ctx context.Context, from, to timecalc.Date) ([]timecalc.Date, error)
}

// Calculator applies NextWorkday against a holiday provider
type Calculator struct {
	holidays HolidayProvider
	bound    int
	logger   *logger.Logger
}

// NewCalculator creates a calculator. A non-positive bound falls back to DefaultSearchBound.
func NewCalculator(holidays HolidayProvider, bound int, log *logger.Logger) *Calculator {
	if bound <= 0 {
		bound = DefaultSearchBound
	}
	return &Calculator{
		holidays: holidays,
		bound:    bound,
		logger:   log,
	}
}

// Next returns the first working day after last
func (c *Calculator) Next(ctx context.Context, last timecalc.Date) (timecalc.Date, error) {
	set, err := c.Holidays(ctx, last.AddDays(1), last.AddDays(c.bound))
	if err != nil {
		return timecalc.Date{}, err
	}

	next, exhausted := NextWorkday(last, set, c.bound)
	if exhausted {
		c.logger.Warn().
			Str("last_date", last.String()).
			Str("returned_date", next.String()).
			Int("bound", c.bound).
			Msg("workday search bound exhausted")
	}
	return next, nil
}

// Holidays loads the holiday set for [from, to]
func (c *Calculator) Holidays(ctx context.Context, from, to timecalc.Date) (Set, error) {
	dates, err := c.holidays.HolidaysBetween(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to load holidays: %w", err)
	}
	return NewSet(dates...), nil
}
