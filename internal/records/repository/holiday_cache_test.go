package repository_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/worktime/worktime-backend/internal/records/repository"
	"github.com/worktime/worktime-backend/internal/records/timecalc"
	"github.com/worktime/worktime-backend/pkg/logger"
)

type stubHolidayStore struct {
	holidays []repository.Holiday
	calls    int
	created  []repository.Holiday
}

func (s *stubHolidayStore) Between(_ context.Context, from, to timecalc.Date) ([]repository.Holiday, error) {
	s.calls++
	var out []repository.Holiday
	for _, h := range s.holidays {
		if !h.Date.Before(from) && !h.Date.After(to) {
			out = append(out, h)
		}
	}
	return out, nil
}

func (s *stubHolidayStore) Create(_ context.Context, h *repository.Holiday) error {
	s.created = append(s.created, *h)
	return nil
}

var slovakHolidays2025 = []repository.Holiday{
	{Date: timecalc.NewDate(2025, 1, 1), Name: "Deň vzniku SR"},
	{Date: timecalc.NewDate(2025, 12, 25), Name: "Prvý sviatok vianočný"},
}

const cached2025 = `[{"date":"2025-01-01","name":"Deň vzniku SR"},{"date":"2025-12-25","name":"Prvý sviatok vianočný"}]`

func TestHolidayCache_Hit(t *testing.T) {
	client, mock := redismock.NewClientMock()
	store := &stubHolidayStore{}
	cache := repository.NewHolidayCache(store, client, time.Hour, logger.Nop())

	mock.ExpectGet("worktime:holidays:2025").SetVal(cached2025)

	got, err := cache.Between(context.Background(), timecalc.NewDate(2025, 12, 1), timecalc.NewDate(2025, 12, 31))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "2025-12-25", got[0].Date.String())
	assert.Zero(t, store.calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHolidayCache_MissLoadsYear(t *testing.T) {
	client, mock := redismock.NewClientMock()
	store := &stubHolidayStore{holidays: slovakHolidays2025}
	cache := repository.NewHolidayCache(store, client, time.Hour, logger.Nop())

	mock.ExpectGet("worktime:holidays:2025").RedisNil()
	mock.ExpectSet("worktime:holidays:2025", cached2025, time.Hour).SetVal("OK")

	dates, err := cache.HolidaysBetween(context.Background(), timecalc.NewDate(2025, 1, 1), timecalc.NewDate(2025, 1, 31))
	require.NoError(t, err)
	require.Len(t, dates, 1)
	assert.Equal(t, "2025-01-01", dates[0].String())
	assert.Equal(t, 1, store.calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHolidayCache_SpansYears(t *testing.T) {
	client, mock := redismock.NewClientMock()
	store := &stubHolidayStore{}
	cache := repository.NewHolidayCache(store, client, time.Hour, logger.Nop())

	mock.ExpectGet("worktime:holidays:2025").SetVal(cached2025)
	mock.ExpectGet("worktime:holidays:2026").SetVal(`[{"date":"2026-01-01","name":"Deň vzniku SR"}]`)

	dates, err := cache.HolidaysBetween(context.Background(), timecalc.NewDate(2025, 12, 20), timecalc.NewDate(2026, 1, 10))
	require.NoError(t, err)
	require.Len(t, dates, 2)
	assert.Equal(t, "2025-12-25", dates[0].String())
	assert.Equal(t, "2026-01-01", dates[1].String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHolidayCache_RedisDownFallsBack(t *testing.T) {
	client, mock := redismock.NewClientMock()
	store := &stubHolidayStore{holidays: slovakHolidays2025}
	cache := repository.NewHolidayCache(store, client, time.Hour, logger.Nop())

	mock.ExpectGet("worktime:holidays:2025").SetErr(errors.New("connection refused"))
	mock.ExpectSet("worktime:holidays:2025", cached2025, time.Hour).SetErr(errors.New("connection refused"))

	got, err := cache.Between(context.Background(), timecalc.NewDate(2025, 1, 1), timecalc.NewDate(2025, 12, 31))
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHolidayCache_CreateInvalidatesYear(t *testing.T) {
	client, mock := redismock.NewClientMock()
	store := &stubHolidayStore{}
	cache := repository.NewHolidayCache(store, client, time.Hour, logger.Nop())

	mock.ExpectDel("worktime:holidays:2025").SetVal(1)

	h := &repository.Holiday{Date: timecalc.NewDate(2025, 9, 1), Name: "Deň Ústavy SR"}
	require.NoError(t, cache.Create(context.Background(), h))
	assert.Len(t, store.created, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHolidayCache_NilClientReadsThrough(t *testing.T) {
	store := &stubHolidayStore{holidays: slovakHolidays2025}
	cache := repository.NewHolidayCache(store, nil, 0, logger.Nop())

	got, err := cache.Between(context.Background(), timecalc.NewDate(2025, 1, 1), timecalc.NewDate(2025, 12, 31))
	require.NoError(t, err)
	assert.Len(t, got, 2)
	require.NoError(t, cache.Create(context.Background(), &slovakHolidays2025[0]))
	assert.Equal(t, 1, store.calls)
}
