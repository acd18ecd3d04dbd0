package service

import (
	"github.com/worktime/worktime-backend/internal/records/repository"
	"github.com/worktime/worktime-backend/internal/records/timecalc"
)

// IsLocked applies the lock rule: the explicit flag, or a date on or before
// the employee's lock threshold.
func IsLocked(date timecalc.Date, explicit bool, lockedUntil *timecalc.Date) bool {
	if explicit {
		return true
	}
	return lockedUntil != nil && !date.After(*lockedUntil)
}

// derive fills the read-time fields of rec. It never touches storage.
func derive(rec *repository.WorkRecord, lockedUntil *timecalc.Date) error {
	d, err := timecalc.Derive(rec.StartTime, rec.EndTime)
	if err != nil {
		return err
	}
	rec.Hours = d.Hours
	rec.IsOvernightShift = d.IsOvernight
	rec.IsLocked = IsLocked(rec.Date, rec.Locked, lockedUntil)
	return nil
}

func deriveAll(records []*repository.WorkRecord, lockedUntil *timecalc.Date) error {
	for _, rec := range records {
		if err := derive(rec, lockedUntil); err != nil {
			return err
		}
	}
	return nil
}
