package service

import (
	"context"

	"github.com/worktime/worktime-backend/internal/records/events"
	"github.com/worktime/worktime-backend/internal/records/naming"
	"github.com/worktime/worktime-backend/internal/records/repository"
	"github.com/worktime/worktime-backend/internal/records/timecalc"
	"github.com/worktime/worktime-backend/pkg/database"
	"github.com/worktime/worktime-backend/pkg/logger"
)

// EmployeeUpdate carries the mutable identity fields
type EmployeeUpdate struct {
	FirstName      string
	LastName       string
	EmploymentType string
}

// EmployeeService owns employee identities and drives the table lifecycle
// from their create, rename and delete.
type EmployeeService struct {
	db        *database.DB
	employees *repository.EmployeeRepository
	lifecycle *TableLifecycle
	publisher *events.RecordsEventPublisher
	logger    *logger.Logger
}

// NewEmployeeService creates a new employee service
func NewEmployeeService(
	db *database.DB,
	employees *repository.EmployeeRepository,
	lifecycle *TableLifecycle,
	publisher *events.RecordsEventPublisher,
	log *logger.Logger,
) *EmployeeService {
	return &EmployeeService{
		db:        db,
		employees: employees,
		lifecycle: lifecycle,
		publisher: publisher,
		logger:    log.WithComponent("employee_service"),
	}
}

// Create inserts the identity and provisions its table. When provisioning
// fails the identity is deleted again so no employee exists without a table.
func (s *EmployeeService) Create(ctx context.Context, emp *repository.Employee) error {
	if err := naming.Validate(emp.TableName()); err != nil {
		return err
	}

	if err := s.employees.Create(ctx, emp); err != nil {
		return err
	}

	if err := s.lifecycle.Provision(ctx, emp); err != nil {
		log := s.logger.WithEmployeeID(emp.ID)
		if delErr := s.employees.Delete(ctx, emp.ID); delErr != nil {
			log.Error().Err(delErr).
				Str("table", emp.TableName()).
				Msg("compensating delete failed, employee exists without a table")
		} else {
			log.Warn().Err(err).Msg("table provisioning failed, employee creation rolled back")
		}
		return err
	}

	return nil
}

// Get gets an employee by ID
func (s *EmployeeService) Get(ctx context.Context, id int64) (*repository.Employee, error) {
	return s.employees.GetByID(ctx, id)
}

// List lists employees with pagination
func (s *EmployeeService) List(ctx context.Context, limit, offset int) ([]*repository.Employee, int64, error) {
	return s.employees.List(ctx, limit, offset)
}

// Update changes the identity and, when the name pair changed, renames the
// table in the same transaction.
func (s *EmployeeService) Update(ctx context.Context, id int64, upd EmployeeUpdate) (*repository.Employee, error) {
	if err := naming.Validate(naming.TableName(upd.FirstName, upd.LastName)); err != nil {
		return nil, err
	}

	var (
		emp                 *repository.Employee
		oldFirst, oldLast   string
		oldTable, newTable  string
		renamed, nameChange bool
	)

	err := s.db.WithTx(ctx, func(ctx context.Context) error {
		var err error
		emp, err = s.employees.GetByID(ctx, id)
		if err != nil {
			return err
		}

		oldFirst, oldLast = emp.FirstName, emp.LastName
		emp.FirstName = upd.FirstName
		emp.LastName = upd.LastName
		if upd.EmploymentType != "" {
			emp.EmploymentType = upd.EmploymentType
		}

		if err := s.employees.Update(ctx, emp); err != nil {
			return err
		}

		nameChange = oldFirst != emp.FirstName || oldLast != emp.LastName
		if !nameChange {
			return nil
		}
		oldTable, newTable, renamed, err = s.lifecycle.rename(ctx, emp, oldFirst, oldLast)
		return err
	})
	if err != nil {
		return nil, err
	}

	if nameChange && oldTable != newTable {
		s.publisher.TableRenamed(ctx, emp.ID, oldTable, newTable, renamed)
	}
	return emp, nil
}

// Delete drops the employee's table and identity
func (s *EmployeeService) Delete(ctx context.Context, id int64) error {
	emp, err := s.employees.GetByID(ctx, id)
	if err != nil {
		return err
	}
	return s.lifecycle.Drop(ctx, emp)
}

// SetLockedUntil moves the lock threshold forward. Locked records stay locked,
// so clearing or lowering an existing threshold fails.
func (s *EmployeeService) SetLockedUntil(ctx context.Context, id int64, lockedUntil *timecalc.Date) (*repository.Employee, error) {
	if err := s.employees.SetLockedUntil(ctx, id, lockedUntil); err != nil {
		return nil, err
	}

	s.publisher.LockMoved(ctx, id, lockedUntil)
	return s.employees.GetByID(ctx, id)
}
