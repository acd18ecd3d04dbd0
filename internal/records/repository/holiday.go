package repository

import (
	"context"

	"github.com/worktime/worktime-backend/internal/records/timecalc"
	"github.com/worktime/worktime-backend/pkg/database"
)

// Holiday is a public holiday
type Holiday struct {
	Date timecalc.Date `db:"holiday_date" json:"date"`
	Name string        `db:"name" json:"name"`
}

// HolidayRepository handles the holiday calendar
type HolidayRepository struct {
	db *database.DB
}

// NewHolidayRepository creates a new holiday repository
func NewHolidayRepository(db *database.DB) *HolidayRepository {
	return &HolidayRepository{db: db}
}

// Between lists holidays in [from, to]
func (r *HolidayRepository) Between(ctx context.Context, from, to timecalc.Date) ([]Holiday, error) {
	query := `
		SELECT holiday_date, name
		FROM holidays
		WHERE holiday_date BETWEEN $1 AND $2
		ORDER BY holiday_date
	`

	holidays := []Holiday{}
	if err := r.db.Conn(ctx).SelectContext(ctx, &holidays, query, from, to); err != nil {
		return nil, err
	}
	return holidays, nil
}

// Create adds a holiday
func (r *HolidayRepository) Create(ctx context.Context, h *Holiday) error {
	query := `INSERT INTO holidays (holiday_date, name) VALUES ($1, $2)`
	if _, err := r.db.Conn(ctx).ExecContext(ctx, query, h.Date, h.Name); err != nil {
		return mapError(err)
	}
	return nil
}
