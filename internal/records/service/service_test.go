package service

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/worktime/worktime-backend/internal/records/events"
	"github.com/worktime/worktime-backend/internal/records/repository"
	"github.com/worktime/worktime-backend/internal/records/workday"
	"github.com/worktime/worktime-backend/pkg/config"
	"github.com/worktime/worktime-backend/pkg/logger"
	"github.com/worktime/worktime-backend/pkg/testutil"
)

var okResult = sqlmock.NewResult(0, 0)

type fixture struct {
	*testutil.UnitTestSuite
	lifecycle *TableLifecycle
	employees *EmployeeService
	records   *RecordService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	s := testutil.NewUnitTestSuite(t)
	t.Cleanup(s.Cleanup)

	log := logger.Nop()
	db := s.MockDB.Database()
	publisher := events.NewRecordsEventPublisher(s.Publisher, log)

	employeeRepo := repository.NewEmployeeRepository(db)
	recordRepo := repository.NewWorkRecordRepository(db)
	tables := repository.NewTableStore(db, "", log)
	holidays := repository.NewHolidayCache(repository.NewHolidayRepository(db), nil, 0, log)

	lifecycle := NewTableLifecycle(db, employeeRepo, tables, publisher, log)
	return &fixture{
		UnitTestSuite: s,
		lifecycle:     lifecycle,
		employees:     NewEmployeeService(db, employeeRepo, lifecycle, publisher, log),
		records: NewRecordService(db, employeeRepo, recordRepo,
			workday.NewCalculator(holidays, workday.DefaultSearchBound, log),
			publisher,
			config.RecordsConfig{DefaultLimit: 50, MaxLimit: 500},
			log),
	}
}

func (f *fixture) expectEmployee(e *testutil.EmployeeFixture) {
	f.MockDB.ExpectQuery("FROM employees WHERE id = $1").
		WithArgs(e.ID).
		WillReturnRows(testutil.MockRows(testutil.EmployeeColumns...).AddRow(e.Values()...))
}

func (f *fixture) expectNoEmployee(id int64) {
	f.MockDB.ExpectQuery("FROM employees WHERE id = $1").
		WithArgs(id).
		WillReturnRows(testutil.MockRows(testutil.EmployeeColumns...))
}

func (f *fixture) expectRecord(r *testutil.RecordFixture, activity string) {
	f.MockDB.ExpectQuery("WHERE r.id = $1").
		WithArgs(r.ID).
		WillReturnRows(testutil.MockRows(testutil.RecordColumns...).AddRow(r.Values(activity)...))
}

func (f *fixture) expectHolidays(dates ...string) {
	rows := testutil.MockRows("holiday_date", "name")
	for _, d := range dates {
		rows.AddRow(d, "holiday")
	}
	f.MockDB.ExpectQuery("WHERE holiday_date BETWEEN $1 AND $2").WillReturnRows(rows)
}

// expectViewRebuild expects the listing and view replacement inside a lifecycle transaction
func (f *fixture) expectViewRebuild(tables ...string) {
	rows := testutil.MockRows("table_name")
	for _, t := range tables {
		rows.AddRow(t)
	}
	f.MockDB.ExpectQuery("table_type = 'BASE TABLE'").WillReturnRows(rows)
	f.MockDB.ExpectExec(`DROP VIEW IF EXISTS "all_work_records"`).WillReturnResult(okResult)
	f.MockDB.ExpectExec(`CREATE VIEW "all_work_records" AS`).WillReturnResult(okResult)
}
