package timecalc

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/worktime/worktime-backend/pkg/errors"
)

func TestToMinutes(t *testing.T) {
	tests := []struct {
		input    string
		want     int
		wantCode string
	}{
		{"00:00:00", 0, ""},
		{"09:30:00", 570, ""},
		{"23:59:59", 1439, ""},
		{"07:15:45", 435, ""},
		{"9:30", 0, errors.CodeInvalidTimeFormat},
		{"09:30", 0, errors.CodeInvalidTimeFormat},
		{"09:30:00:00", 0, errors.CodeInvalidTimeFormat},
		{"aa:bb:cc", 0, errors.CodeInvalidTimeFormat},
		{"-1:00:00", 0, errors.CodeInvalidTimeFormat},
		{"09::00", 0, errors.CodeInvalidTimeFormat},
		{"", 0, errors.CodeInvalidTimeFormat},
		{"24:00:00", 0, errors.CodeInvalidTimeRange},
		{"12:60:00", 0, errors.CodeInvalidTimeRange},
		{"12:00:60", 0, errors.CodeInvalidTimeRange},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ToMinutes(tt.input)
			if tt.wantCode != "" {
				require.Error(t, err)
				assert.True(t, errors.HasCode(err, tt.wantCode), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHours_KnownValues(t *testing.T) {
	tests := []struct {
		start, end string
		want       string
		overnight  bool
	}{
		{"00:00:00", "23:59:00", "23.98", false},
		{"09:00:00", "17:30:00", "8.5", false},
		{"22:00:00", "06:00:00", "8", true},
		{"23:30:00", "07:15:00", "7.75", true},
		{"08:00:00", "08:00:00", "0", false},
		{"08:00:00", "08:01:00", "0.02", false},
		{"08:00:00", "08:20:00", "0.33", false},
		{"08:00:00", "08:40:59", "0.67", false},
	}

	for _, tt := range tests {
		t.Run(tt.start+"-"+tt.end, func(t *testing.T) {
			hours, err := Hours(tt.start, tt.end)
			require.NoError(t, err)
			assert.Equal(t, tt.want, hours.String())

			overnight, err := IsOvernight(tt.start, tt.end)
			require.NoError(t, err)
			assert.Equal(t, tt.overnight, overnight)

			derived, err := Derive(tt.start, tt.end)
			require.NoError(t, err)
			assert.True(t, hours.Equal(derived.Hours))
			assert.Equal(t, tt.overnight, derived.IsOvernight)
		})
	}
}

func TestHours_Properties(t *testing.T) {
	// every quarter hour against every quarter hour
	for s := 0; s < minutesPerDay; s += 15 {
		for e := 0; e < minutesPerDay; e += 15 {
			start := fmt.Sprintf("%02d:%02d:00", s/60, s%60)
			end := fmt.Sprintf("%02d:%02d:00", e/60, e%60)

			d, err := Derive(start, end)
			require.NoError(t, err)

			want := e - s
			if e < s {
				want += minutesPerDay
			}
			assert.Equal(t, e < s, d.IsOvernight, "%s-%s", start, end)
			assert.Equal(t, float64(want)/60, d.Hours.InexactFloat64(), "%s-%s", start, end)
			assert.True(t, d.Hours.LessThanOrEqual(maxHours))
		}
	}
}

func TestHours_InvalidInput(t *testing.T) {
	_, err := Hours("25:00:00", "08:00:00")
	assert.True(t, errors.HasCode(err, errors.CodeInvalidTimeRange))

	_, err = Hours("08:00:00", "8")
	assert.True(t, errors.HasCode(err, errors.CodeInvalidTimeFormat))

	_, err = Derive("08:00", "09:00:00")
	assert.True(t, errors.HasCode(err, errors.CodeInvalidTimeFormat))
}

func TestHoursBetween_ExceedsMaximum(t *testing.T) {
	_, err := hoursBetween(0, minutesPerDay+1)
	assert.True(t, errors.HasCode(err, errors.CodeExceedsMaximumDuration))

	hours, err := hoursBetween(0, minutesPerDay)
	require.NoError(t, err)
	assert.Equal(t, "24", hours.String())
}

func TestNormalizeClock(t *testing.T) {
	tests := []struct {
		input    string
		want     string
		wantCode string
	}{
		{"08:00", "08:00:00", ""},
		{"08:00:30", "08:00:30", ""},
		{"23:59", "23:59:00", ""},
		{"8:00", "", errors.CodeInvalidTimeFormat},
		{"08:00:0", "", errors.CodeInvalidTimeFormat},
		{"0800", "", errors.CodeInvalidTimeFormat},
		{"24:00", "", errors.CodeInvalidTimeRange},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := NormalizeClock(tt.input)
			if tt.wantCode != "" {
				assert.True(t, errors.HasCode(err, tt.wantCode), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDate(t *testing.T) {
	d, err := ParseDate("2025-01-15")
	require.NoError(t, err)
	assert.Equal(t, "2025-01-15", d.String())
	assert.Equal(t, time.Wednesday, d.Weekday())
	assert.Equal(t, "2025-02-01", d.AddDays(17).String())

	_, err = ParseDate("15.01.2025")
	assert.True(t, errors.HasCode(err, errors.CodeInvalidDateFormat))

	assert.True(t, d.Before(NewDate(2025, 1, 31)))
	assert.True(t, d.After(NewDate(2025, 1, 1)))
	assert.True(t, d.Equal(DateOf(time.Date(2025, 1, 15, 18, 30, 0, 0, time.UTC))))
}

func TestDate_JSON(t *testing.T) {
	type payload struct {
		Date  Date  `json:"date"`
		Until *Date `json:"until"`
	}

	data, err := json.Marshal(payload{Date: NewDate(2025, 11, 3)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"date":"2025-11-03","until":null}`, string(data))

	var p payload
	require.NoError(t, json.Unmarshal([]byte(`{"date":"2025-01-31","until":"2025-02-28"}`), &p))
	assert.Equal(t, "2025-01-31", p.Date.String())
	require.NotNil(t, p.Until)
	assert.Equal(t, "2025-02-28", p.Until.String())

	err = json.Unmarshal([]byte(`{"date":"31/01/2025"}`), &p)
	assert.True(t, errors.HasCode(err, errors.CodeInvalidDateFormat))
}

func TestDate_Scan(t *testing.T) {
	var d Date
	require.NoError(t, d.Scan(time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "2025-01-15", d.String())

	require.NoError(t, d.Scan([]byte("2025-03-01")))
	assert.Equal(t, "2025-03-01", d.String())

	assert.Error(t, d.Scan(42))

	v, err := NewDate(2025, 1, 2).Value()
	require.NoError(t, err)
	assert.Equal(t, "2025-01-02", v)
}
