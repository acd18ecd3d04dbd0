package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/worktime/worktime-backend/internal/records/timecalc"
	"github.com/worktime/worktime-backend/pkg/logger"
)

const holidayCacheKeyPrefix = "worktime:holidays:"

// HolidayStore is the persistent side of the holiday calendar
type HolidayStore interface {
	Between(ctx context.Context, from, to timecalc.Date) ([]Holiday, error)
	Create(ctx context.Context, h *Holiday) error
}

// HolidayCache keeps one calendar year of holidays per redis key in front
// of the holiday table. With a nil client it reads straight through.
type HolidayCache struct {
	store  HolidayStore
	redis  *redis.Client
	ttl    time.Duration
	logger *logger.Logger
}

// NewHolidayCache creates a holiday cache
func NewHolidayCache(store HolidayStore, client *redis.Client, ttl time.Duration, log *logger.Logger) *HolidayCache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &HolidayCache{
		store:  store,
		redis:  client,
		ttl:    ttl,
		logger: log.WithComponent("holiday_cache"),
	}
}

func holidayCacheKey(year int) string {
	return fmt.Sprintf("%s%d", holidayCacheKeyPrefix, year)
}

// Between lists holidays in [from, to]
func (c *HolidayCache) Between(ctx context.Context, from, to timecalc.Date) ([]Holiday, error) {
	if c.redis == nil {
		return c.store.Between(ctx, from, to)
	}

	holidays := []Holiday{}
	for year := from.Year(); year <= to.Year(); year++ {
		yearly, err := c.year(ctx, year)
		if err != nil {
			return nil, err
		}
		for _, h := range yearly {
			if !h.Date.Before(from) && !h.Date.After(to) {
				holidays = append(holidays, h)
			}
		}
	}
	return holidays, nil
}

// HolidaysBetween returns only the dates, for the workday calculator
func (c *HolidayCache) HolidaysBetween(ctx context.Context, from, to timecalc.Date) ([]timecalc.Date, error) {
	holidays, err := c.Between(ctx, from, to)
	if err != nil {
		return nil, err
	}
	dates := make([]timecalc.Date, len(holidays))
	for i, h := range holidays {
		dates[i] = h.Date
	}
	return dates, nil
}

// Create stores a holiday and invalidates its year
func (c *HolidayCache) Create(ctx context.Context, h *Holiday) error {
	if err := c.store.Create(ctx, h); err != nil {
		return err
	}
	if c.redis != nil {
		if err := c.redis.Del(ctx, holidayCacheKey(h.Date.Year())).Err(); err != nil {
			c.logger.Warn().Err(err).Int("year", h.Date.Year()).Msg("failed to invalidate holiday cache")
		}
	}
	return nil
}

func (c *HolidayCache) year(ctx context.Context, year int) ([]Holiday, error) {
	key := holidayCacheKey(year)

	val, err := c.redis.Get(ctx, key).Result()
	if err == nil {
		var cached []Holiday
		if jsonErr := json.Unmarshal([]byte(val), &cached); jsonErr == nil {
			return cached, nil
		}
		c.logger.Warn().Str("key", key).Msg("discarding malformed holiday cache entry")
	} else if err != redis.Nil {
		// a cache outage must not block the calendar
		c.logger.Warn().Err(err).Str("key", key).Msg("holiday cache read failed")
	}

	holidays, err := c.store.Between(ctx, timecalc.NewDate(year, time.January, 1), timecalc.NewDate(year, time.December, 31))
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(holidays)
	if err != nil {
		return nil, err
	}
	if err := c.redis.Set(ctx, key, string(data), c.ttl).Err(); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("holiday cache write failed")
	}
	return holidays, nil
}
