package service

import (
	"context"

	"github.com/worktime/worktime-backend/internal/records/events"
	"github.com/worktime/worktime-backend/internal/records/naming"
	"github.com/worktime/worktime-backend/internal/records/repository"
	"github.com/worktime/worktime-backend/pkg/database"
	"github.com/worktime/worktime-backend/pkg/errors"
	"github.com/worktime/worktime-backend/pkg/logger"
)

// TableLifecycle keeps exactly one per-employee table per live employee and
// the aggregate view in step with the table set.
type TableLifecycle struct {
	db        *database.DB
	employees *repository.EmployeeRepository
	tables    *repository.TableStore
	publisher *events.RecordsEventPublisher
	logger    *logger.Logger
}

// NewTableLifecycle creates a table lifecycle service
func NewTableLifecycle(
	db *database.DB,
	employees *repository.EmployeeRepository,
	tables *repository.TableStore,
	publisher *events.RecordsEventPublisher,
	log *logger.Logger,
) *TableLifecycle {
	return &TableLifecycle{
		db:        db,
		employees: employees,
		tables:    tables,
		publisher: publisher,
		logger:    log.WithComponent("table_lifecycle"),
	}
}

// ResolveTableName returns the employee's table without querying storage
func (s *TableLifecycle) ResolveTableName(emp *repository.Employee) string {
	return naming.TableName(emp.FirstName, emp.LastName)
}

// Provision creates the employee's table. The caller owns compensation of
// the employee identity when this fails.
func (s *TableLifecycle) Provision(ctx context.Context, emp *repository.Employee) error {
	table := s.ResolveTableName(emp)
	if err := s.tables.Create(ctx, table); err != nil {
		return err
	}

	s.publisher.TableProvisioned(ctx, emp.ID, table)
	return nil
}

// EnsureTable provisions the employee's table unless it already exists.
func (s *TableLifecycle) EnsureTable(ctx context.Context, emp *repository.Employee) (bool, error) {
	exists, err := s.tables.Exists(ctx, s.ResolveTableName(emp))
	if err != nil || exists {
		return false, err
	}

	if err := s.Provision(ctx, emp); err != nil {
		return false, err
	}
	return true, nil
}

// Rename moves the table from the old name pair to the employee's current
// one. renamed is false when the names fold to the same table or the old
// table was missing.
func (s *TableLifecycle) Rename(ctx context.Context, emp *repository.Employee, oldFirstName, oldLastName string) (bool, error) {
	oldTable, newTable, renamed, err := s.rename(ctx, emp, oldFirstName, oldLastName)
	if err != nil || oldTable == newTable {
		return false, err
	}

	s.publisher.TableRenamed(ctx, emp.ID, oldTable, newTable, renamed)
	return renamed, nil
}

func (s *TableLifecycle) rename(ctx context.Context, emp *repository.Employee, oldFirstName, oldLastName string) (oldTable, newTable string, renamed bool, err error) {
	oldTable = naming.TableName(oldFirstName, oldLastName)
	newTable = s.ResolveTableName(emp)
	if oldTable == newTable {
		return oldTable, newTable, false, nil
	}

	renamed, err = s.tables.Rename(ctx, oldTable, newTable)
	return oldTable, newTable, renamed, err
}

// Drop removes the employee's table, then the employee identity. Both run
// in one transaction; an identity that is already gone is not an error.
func (s *TableLifecycle) Drop(ctx context.Context, emp *repository.Employee) error {
	table := s.ResolveTableName(emp)

	err := s.db.WithTx(ctx, func(ctx context.Context) error {
		if err := s.tables.Drop(ctx, table); err != nil {
			return err
		}

		if err := s.employees.Delete(ctx, emp.ID); err != nil {
			if !errors.HasCode(err, errors.CodeEmployeeNotFound) {
				return err
			}
			s.logger.Debug().Int64("employee_id", emp.ID).Msg("employee identity already removed")
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.publisher.TableDropped(ctx, emp.ID, table)
	return nil
}

// RebuildAggregateView replaces the view with the union of all current
// per-employee tables. Safe to call repeatedly.
func (s *TableLifecycle) RebuildAggregateView(ctx context.Context) ([]string, error) {
	tables, err := s.tables.RebuildView(ctx)
	if err != nil {
		return nil, err
	}

	s.publisher.ViewRebuilt(ctx, s.tables.View(), tables)
	return tables, nil
}

// ListTables lists per-employee tables present in the schema
func (s *TableLifecycle) ListTables(ctx context.Context) ([]string, error) {
	return s.tables.ListTables(ctx)
}

// MissingTable is an employee whose table does not exist
type MissingTable struct {
	EmployeeID int64  `json:"employee_id"`
	Table      string `json:"table"`
}

// ReconcileReport is the outcome of Reconcile
type ReconcileReport struct {
	View          string         `json:"view"`
	Tables        []string       `json:"tables"`
	MissingTables []MissingTable `json:"missing_tables"`
	OrphanTables  []string       `json:"orphan_tables"`
}

// Reconcile rebuilds the aggregate view and reports drift between the
// employee identities and the physical tables. It repairs nothing else.
func (s *TableLifecycle) Reconcile(ctx context.Context) (*ReconcileReport, error) {
	tables, err := s.RebuildAggregateView(ctx)
	if err != nil {
		return nil, err
	}

	employees, err := s.employees.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	report := &ReconcileReport{
		View:          s.tables.View(),
		Tables:        tables,
		MissingTables: []MissingTable{},
		OrphanTables:  []string{},
	}

	present := make(map[string]bool, len(tables))
	for _, t := range tables {
		present[t] = false
	}
	for _, emp := range employees {
		table := s.ResolveTableName(emp)
		if _, ok := present[table]; ok {
			present[table] = true
			continue
		}
		report.MissingTables = append(report.MissingTables, MissingTable{EmployeeID: emp.ID, Table: table})
	}
	for _, t := range tables {
		if !present[t] {
			report.OrphanTables = append(report.OrphanTables, t)
		}
	}

	if len(report.MissingTables) > 0 || len(report.OrphanTables) > 0 {
		s.logger.Warn().
			Int("missing", len(report.MissingTables)).
			Int("orphans", len(report.OrphanTables)).
			Msg("table set drifted from employees")
	}
	return report, nil
}
