package repository

import (
	"context"
	"database/sql"
	stderrors "errors"
	"time"

	"github.com/worktime/worktime-backend/internal/records/naming"
	"github.com/worktime/worktime-backend/internal/records/timecalc"
	"github.com/worktime/worktime-backend/pkg/database"
	"github.com/worktime/worktime-backend/pkg/errors"
)

// Employment types accepted by the employees table
const (
	EmploymentFullTime   = "full_time"
	EmploymentPartTime   = "part_time"
	EmploymentContractor = "contractor"
	EmploymentAgreement  = "agreement"
)

// Employee is the identity a per-employee table hangs off
type Employee struct {
	ID             int64          `db:"id" json:"id"`
	FirstName      string         `db:"first_name" json:"first_name"`
	LastName       string         `db:"last_name" json:"last_name"`
	LockedUntil    *timecalc.Date `db:"locked_until" json:"locked_until"`
	EmploymentType string         `db:"employment_type" json:"employment_type"` // full_time, part_time, contractor, agreement
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at" json:"updated_at"`
}

// TableName is the employee's current per-employee table
func (e *Employee) TableName() string {
	return naming.TableName(e.FirstName, e.LastName)
}

const employeeColumns = `id, first_name, last_name, locked_until, employment_type, created_at, updated_at`

// EmployeeRepository handles employee identity persistence
type EmployeeRepository struct {
	db *database.DB
}

// NewEmployeeRepository creates a new employee repository
func NewEmployeeRepository(db *database.DB) *EmployeeRepository {
	return &EmployeeRepository{db: db}
}

// Create inserts an employee and fills in the generated fields. A non-zero
// ID is kept, for identities mastered by the HR system.
func (r *EmployeeRepository) Create(ctx context.Context, emp *Employee) error {
	if emp.EmploymentType == "" {
		emp.EmploymentType = EmploymentFullTime
	}
	if emp.ID != 0 {
		return r.createWithID(ctx, emp)
	}

	query := `
		INSERT INTO employees (first_name, last_name, locked_until, employment_type)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`

	err := r.db.Conn(ctx).QueryRowxContext(ctx, query,
		emp.FirstName, emp.LastName, emp.LockedUntil, emp.EmploymentType,
	).Scan(&emp.ID, &emp.CreatedAt, &emp.UpdatedAt)
	if err != nil {
		return mapError(err)
	}
	return nil
}

func (r *EmployeeRepository) createWithID(ctx context.Context, emp *Employee) error {
	return r.db.WithTx(ctx, func(ctx context.Context) error {
		query := `
			INSERT INTO employees (id, first_name, last_name, locked_until, employment_type)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING created_at, updated_at
		`

		err := r.db.Conn(ctx).QueryRowxContext(ctx, query,
			emp.ID, emp.FirstName, emp.LastName, emp.LockedUntil, emp.EmploymentType,
		).Scan(&emp.CreatedAt, &emp.UpdatedAt)
		if err != nil {
			return mapError(err)
		}

		// keep the sequence ahead of imported ids
		_, err = r.db.Conn(ctx).ExecContext(ctx,
			`SELECT setval(pg_get_serial_sequence('employees', 'id'), (SELECT MAX(id) FROM employees))`)
		return err
	})
}

// GetByID gets an employee by ID
func (r *EmployeeRepository) GetByID(ctx context.Context, id int64) (*Employee, error) {
	var emp Employee

	query := `SELECT ` + employeeColumns + ` FROM employees WHERE id = $1`

	err := r.db.Conn(ctx).GetContext(ctx, &emp, query, id)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.EmployeeNotFound(id)
	}
	if err != nil {
		return nil, err
	}

	return &emp, nil
}

// List lists employees ordered by name
func (r *EmployeeRepository) List(ctx context.Context, limit, offset int) ([]*Employee, int64, error) {
	var total int64
	if err := r.db.Conn(ctx).GetContext(ctx, &total, `SELECT COUNT(*) FROM employees`); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT ` + employeeColumns + `
		FROM employees
		ORDER BY last_name, first_name, id
		LIMIT $1 OFFSET $2
	`

	employees := []*Employee{}
	if err := r.db.Conn(ctx).SelectContext(ctx, &employees, query, limit, offset); err != nil {
		return nil, 0, err
	}

	return employees, total, nil
}

// ListAll returns every employee, used by table reconciliation
func (r *EmployeeRepository) ListAll(ctx context.Context) ([]*Employee, error) {
	employees := []*Employee{}
	query := `SELECT ` + employeeColumns + ` FROM employees ORDER BY id`
	if err := r.db.Conn(ctx).SelectContext(ctx, &employees, query); err != nil {
		return nil, err
	}
	return employees, nil
}

// Update writes the name and employment type
func (r *EmployeeRepository) Update(ctx context.Context, emp *Employee) error {
	query := `
		UPDATE employees
		SET first_name = $1, last_name = $2, employment_type = $3, updated_at = NOW()
		WHERE id = $4
		RETURNING updated_at
	`

	err := r.db.Conn(ctx).QueryRowxContext(ctx, query,
		emp.FirstName, emp.LastName, emp.EmploymentType, emp.ID,
	).Scan(&emp.UpdatedAt)
	if stderrors.Is(err, sql.ErrNoRows) {
		return errors.EmployeeNotFound(emp.ID)
	}
	if err != nil {
		return mapError(err)
	}
	return nil
}

// SetLockedUntil moves the lock threshold forward. The guard runs in the
// UPDATE itself: a threshold can be set or raised, never cleared or lowered.
func (r *EmployeeRepository) SetLockedUntil(ctx context.Context, id int64, lockedUntil *timecalc.Date) error {
	query := `UPDATE employees SET locked_until = $1, updated_at = NOW()
		WHERE id = $2 AND (locked_until IS NULL OR locked_until <= $1)`

	result, err := r.db.Conn(ctx).ExecContext(ctx, query, lockedUntil, id)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows > 0 {
		return nil
	}

	emp, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	return errors.LockThresholdMovedBack(dateOrNone(emp.LockedUntil), dateOrNone(lockedUntil))
}

func dateOrNone(d *timecalc.Date) string {
	if d == nil {
		return "none"
	}
	return d.String()
}

// Delete removes the employee identity
func (r *EmployeeRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.Conn(ctx).ExecContext(ctx, `DELETE FROM employees WHERE id = $1`, id)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return errors.EmployeeNotFound(id)
	}
	return nil
}
