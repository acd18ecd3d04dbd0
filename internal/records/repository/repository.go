// Package repository persists employees, catalogs, holidays and the
// per-employee work record tables.
package repository

import (
	"github.com/worktime/worktime-backend/pkg/database"
)

// mapError turns PostgreSQL errors with a dedicated mapping into AppErrors
func mapError(err error) error {
	if appErr := database.MapPQError(err); appErr != nil {
		return appErr
	}
	return err
}
