// Package timecalc holds the pure clock arithmetic behind work record hours
// and the overnight flag. Nothing here touches storage.
package timecalc

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/worktime/worktime-backend/pkg/errors"
)

const minutesPerDay = 24 * 60

var (
	maxHours     = decimal.NewFromInt(24)
	clockPattern = regexp.MustCompile(`^\d{2}:\d{2}:\d{2}$`)
	shortPattern = regexp.MustCompile(`^\d{2}:\d{2}$`)
)

// Derived are the fields recomputed on every read
type Derived struct {
	Hours       decimal.Decimal
	IsOvernight bool
}

// ToMinutes converts "HH:MM:SS" to minutes past midnight. Seconds are
// validated but truncated.
func ToMinutes(clock string) (int, error) {
	parts := strings.Split(clock, ":")
	if len(parts) != 3 {
		return 0, errors.InvalidTimeFormat(clock)
	}

	values := make([]int, 3)
	for i, part := range parts {
		if part == "" || strings.TrimLeft(part, "0123456789") != "" {
			return 0, errors.InvalidTimeFormat(clock)
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return 0, errors.InvalidTimeFormat(clock)
		}
		values[i] = n
	}

	h, m, s := values[0], values[1], values[2]
	if h > 23 || m > 59 || s > 59 {
		return 0, errors.InvalidTimeRange(clock)
	}
	return h*60 + m, nil
}

// IsOvernight reports whether end falls on the next day. Equal times are a
// zero-length same-day shift.
func IsOvernight(start, end string) (bool, error) {
	startMin, endMin, err := bounds(start, end)
	if err != nil {
		return false, err
	}
	return endMin < startMin, nil
}

// Hours returns the shift duration rounded half-up to two decimals
func Hours(start, end string) (decimal.Decimal, error) {
	startMin, endMin, err := bounds(start, end)
	if err != nil {
		return decimal.Zero, err
	}
	return hoursBetween(startMin, endMin)
}

// Derive computes hours and the overnight flag in one pass
func Derive(start, end string) (Derived, error) {
	startMin, endMin, err := bounds(start, end)
	if err != nil {
		return Derived{}, err
	}
	hours, err := hoursBetween(startMin, endMin)
	if err != nil {
		return Derived{}, err
	}
	return Derived{Hours: hours, IsOvernight: endMin < startMin}, nil
}

// NormalizeClock accepts HH:MM or HH:MM:SS and returns HH:MM:SS
func NormalizeClock(value string) (string, error) {
	if shortPattern.MatchString(value) {
		value += ":00"
	}
	if !clockPattern.MatchString(value) {
		return "", errors.InvalidTimeFormat(value)
	}
	if _, err := ToMinutes(value); err != nil {
		return "", err
	}
	return value, nil
}

func bounds(start, end string) (int, int, error) {
	startMin, err := ToMinutes(start)
	if err != nil {
		return 0, 0, err
	}
	endMin, err := ToMinutes(end)
	if err != nil {
		return 0, 0, err
	}
	return startMin, endMin, nil
}

func hoursBetween(startMin, endMin int) (decimal.Decimal, error) {
	total := endMin - startMin
	if endMin < startMin {
		total += minutesPerDay
	}

	// decimal.Round rounds half away from zero, which is half-up for durations
	hours := decimal.NewFromInt(int64(total)).Div(decimal.NewFromInt(60)).Round(2)
	if hours.GreaterThan(maxHours) {
		return decimal.Zero, errors.ExceedsMaximumDuration(hours.StringFixed(2))
	}
	return hours, nil
}
