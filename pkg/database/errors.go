package database

import (
	stderrors "errors"
	"strings"

	"github.com/lib/pq"
	"github.com/worktime/worktime-backend/pkg/errors"
)

// PostgreSQL error codes the service reacts to
const (
	codeForeignKeyViolation = "23503"
	codeUniqueViolation     = "23505"
	codeNotNullViolation    = "23502"
	codeCheckViolation      = "23514"
	codeUndefinedTable      = "42P01"
	codeDuplicateTable      = "42P07"
)

// MapPQError converts a PostgreSQL error to an AppError with meaningful messages.
// Returns nil if the error is not a pq.Error or has no dedicated mapping.
func MapPQError(err error) *errors.AppError {
	var pqErr *pq.Error
	if !stderrors.As(err, &pqErr) {
		return nil
	}

	switch pqErr.Code {
	case codeCheckViolation:
		return mapCheckConstraint(pqErr)

	case codeUniqueViolation:
		return errors.Conflict(formatConstraintMessage(pqErr))

	// Unknown catalog id on a record insert/update
	case codeForeignKeyViolation:
		return errors.BadRequest("referenced catalog entry does not exist").
			WithDetails(map[string]string{"constraint": pqErr.Constraint})

	case codeNotNullViolation:
		col := pqErr.Column
		if col == "" {
			col = "required field"
		}
		return errors.Validation(map[string]string{
			col: "must not be empty",
		})

	// Employee identity exists but its table does not
	case codeUndefinedTable:
		return errors.SchemaOperationFailed("lookup", relationName(pqErr.Message), err)

	case codeDuplicateTable:
		return errors.SchemaOperationFailed("create", relationName(pqErr.Message), err)

	default:
		return nil
	}
}

// mapCheckConstraint maps specific CHECK constraint names to user-friendly messages.
func mapCheckConstraint(pqErr *pq.Error) *errors.AppError {
	constraint := pqErr.Constraint

	switch {
	case strings.Contains(constraint, "distance"):
		return errors.Validation(map[string]string{
			"distance": "must not be negative",
		})

	case strings.Contains(constraint, "employment_type"):
		return errors.Validation(map[string]string{
			"employment_type": "must be one of: full_time, part_time, contractor, agreement",
		})

	default:
		return errors.BadRequest("data validation failed: " + constraint)
	}
}

// formatConstraintMessage creates a user-friendly message for unique constraint violations.
func formatConstraintMessage(pqErr *pq.Error) string {
	constraint := pqErr.Constraint

	switch {
	case strings.Contains(constraint, "employees_name"):
		return "an employee with this name already exists"
	case strings.Contains(constraint, "holidays"):
		return "a holiday on this date already exists"
	case strings.Contains(constraint, "projects_number"):
		return "a project with this number already exists"
	default:
		return "a record with these values already exists"
	}
}

// relationName pulls the quoted relation out of messages like
// `relation "t_Milan_Smotlak" does not exist`.
func relationName(msg string) string {
	start := strings.IndexByte(msg, '"')
	if start < 0 {
		return "relation"
	}
	end := strings.IndexByte(msg[start+1:], '"')
	if end < 0 {
		return "relation"
	}
	return msg[start+1 : start+1+end]
}
