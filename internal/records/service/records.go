package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/worktime/worktime-backend/internal/records/events"
	"github.com/worktime/worktime-backend/internal/records/repository"
	"github.com/worktime/worktime-backend/internal/records/timecalc"
	"github.com/worktime/worktime-backend/internal/records/workday"
	"github.com/worktime/worktime-backend/pkg/config"
	"github.com/worktime/worktime-backend/pkg/database"
	"github.com/worktime/worktime-backend/pkg/errors"
	"github.com/worktime/worktime-backend/pkg/logger"
)

// MaxApprovalDays bounds a single approval range
const MaxApprovalDays = 366

// QueryParams selects a page of an employee's records
type QueryParams struct {
	From   timecalc.Date
	To     timecalc.Date
	Limit  int
	Offset int
	Sort   string
}

// QueryResult is one page plus the size of the whole window
type QueryResult struct {
	Records    []*repository.WorkRecord `json:"records"`
	TotalCount int64                    `json:"total_count"`
	HasMore    bool                     `json:"has_more"`
	Limit      int                      `json:"-"`
	Offset     int                      `json:"-"`
}

// RecordInput is the full set of fields of a new record
type RecordInput struct {
	Date               timecalc.Date
	ActivityTypeID     int64
	ProjectID          *int64
	ProductivityTypeID *int64
	WorkTypeID         *int64
	StartTime          string
	EndTime            string
	Description        *string
	Distance           *decimal.Decimal
	IsTrip             bool
}

// RecordService reads and writes work records of one employee at a time
type RecordService struct {
	db         *database.DB
	employees  *repository.EmployeeRepository
	records    *repository.WorkRecordRepository
	calculator *workday.Calculator
	publisher  *events.RecordsEventPublisher
	cfg        config.RecordsConfig
	logger     *logger.Logger
	now        func() time.Time
}

// NewRecordService creates a new record service
func NewRecordService(
	db *database.DB,
	employees *repository.EmployeeRepository,
	records *repository.WorkRecordRepository,
	calculator *workday.Calculator,
	publisher *events.RecordsEventPublisher,
	cfg config.RecordsConfig,
	log *logger.Logger,
) *RecordService {
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = 50
	}
	if cfg.MaxLimit < cfg.DefaultLimit {
		cfg.MaxLimit = cfg.DefaultLimit
	}
	return &RecordService{
		db:         db,
		employees:  employees,
		records:    records,
		calculator: calculator,
		publisher:  publisher,
		cfg:        cfg,
		logger:     log.WithComponent("record_service"),
		now:        time.Now,
	}
}

// Query returns one page of records in [From, To] with lock and duration
// fields computed for each row.
func (s *RecordService) Query(ctx context.Context, employeeID int64, params QueryParams) (*QueryResult, error) {
	if params.To.Before(params.From) {
		return nil, errors.BadRequest("from must not be after to")
	}
	switch params.Sort {
	case "":
		params.Sort = repository.SortDesc
	case repository.SortAsc, repository.SortDesc:
	default:
		return nil, errors.BadRequest("sort must be asc or desc")
	}
	if params.Limit <= 0 {
		params.Limit = s.cfg.DefaultLimit
	}
	if params.Limit > s.cfg.MaxLimit {
		params.Limit = s.cfg.MaxLimit
	}
	if params.Offset < 0 {
		params.Offset = 0
	}

	emp, err := s.employees.GetByID(ctx, employeeID)
	if err != nil {
		return nil, err
	}

	records, total, err := s.records.Query(ctx, emp.TableName(), repository.RecordFilter{
		From:   params.From,
		To:     params.To,
		Limit:  params.Limit,
		Offset: params.Offset,
		Sort:   params.Sort,
	})
	if err != nil {
		return nil, err
	}

	if err := deriveAll(records, emp.LockedUntil); err != nil {
		return nil, err
	}

	return &QueryResult{
		Records:    records,
		TotalCount: total,
		HasMore:    int64(params.Offset+params.Limit) < total,
		Limit:      params.Limit,
		Offset:     params.Offset,
	}, nil
}

// Get returns one record
func (s *RecordService) Get(ctx context.Context, employeeID, recordID int64) (*repository.WorkRecord, error) {
	emp, err := s.employees.GetByID(ctx, employeeID)
	if err != nil {
		return nil, err
	}

	rec, err := s.records.GetByID(ctx, emp.TableName(), recordID, false)
	if err != nil {
		return nil, err
	}
	if err := derive(rec, emp.LockedUntil); err != nil {
		return nil, err
	}
	return rec, nil
}

// prepare normalizes clock values and checks the duration before any
// storage access.
func (in *RecordInput) prepare() error {
	start, err := timecalc.NormalizeClock(in.StartTime)
	if err != nil {
		return err
	}
	end, err := timecalc.NormalizeClock(in.EndTime)
	if err != nil {
		return err
	}
	if _, err := timecalc.Hours(start, end); err != nil {
		return err
	}
	in.StartTime, in.EndTime = start, end
	return nil
}

func (in *RecordInput) row(date timecalc.Date) *repository.NewWorkRecord {
	distance := decimal.Zero
	if in.Distance != nil {
		distance = *in.Distance
	}
	return &repository.NewWorkRecord{
		Date:               date,
		ActivityTypeID:     in.ActivityTypeID,
		ProjectID:          in.ProjectID,
		ProductivityTypeID: in.ProductivityTypeID,
		WorkTypeID:         in.WorkTypeID,
		StartTime:          in.StartTime,
		EndTime:            in.EndTime,
		Description:        in.Description,
		Distance:           distance,
		IsTrip:             in.IsTrip,
	}
}

func dateLocked(date timecalc.Date, lockedUntil *timecalc.Date) error {
	if lockedUntil != nil && !date.After(*lockedUntil) {
		return errors.DateLocked(date.String(), lockedUntil.String())
	}
	return nil
}

// Create inserts a record. Dates inside the employee's locked period are
// rejected; new records are never locked.
func (s *RecordService) Create(ctx context.Context, employeeID int64, in RecordInput) (*repository.WorkRecord, error) {
	if err := in.prepare(); err != nil {
		return nil, err
	}

	emp, err := s.employees.GetByID(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	if err := dateLocked(in.Date, emp.LockedUntil); err != nil {
		return nil, err
	}

	table := emp.TableName()
	id, err := s.records.Create(ctx, table, in.row(in.Date))
	if err != nil {
		return nil, err
	}

	rec, err := s.records.GetByID(ctx, table, id, false)
	if err != nil {
		return nil, err
	}
	if err := derive(rec, emp.LockedUntil); err != nil {
		return nil, err
	}

	s.publisher.RecordCreated(ctx, employeeID, rec)
	return rec, nil
}

// Update applies the supplied fields. The lock check uses the stored date
// and flag, and a new date may not move the record into the locked period.
func (s *RecordService) Update(ctx context.Context, employeeID, recordID int64, patch repository.WorkRecordPatch) (*repository.WorkRecord, error) {
	if patch.Empty() {
		return nil, errors.NoFieldsProvided()
	}
	for _, clock := range []**string{&patch.StartTime, &patch.EndTime} {
		if *clock == nil {
			continue
		}
		normalized, err := timecalc.NormalizeClock(**clock)
		if err != nil {
			return nil, err
		}
		*clock = &normalized
	}

	var updated *repository.WorkRecord
	err := s.db.WithTx(ctx, func(ctx context.Context) error {
		emp, err := s.employees.GetByID(ctx, employeeID)
		if err != nil {
			return err
		}

		table := emp.TableName()
		existing, err := s.records.GetByID(ctx, table, recordID, true)
		if err != nil {
			return err
		}
		if IsLocked(existing.Date, existing.Locked, emp.LockedUntil) {
			return errors.RecordLocked(recordID)
		}
		if patch.Date != nil {
			if err := dateLocked(*patch.Date, emp.LockedUntil); err != nil {
				return err
			}
		}

		if err := s.records.Update(ctx, table, recordID, patch); err != nil {
			return err
		}

		updated, err = s.records.GetByID(ctx, table, recordID, false)
		if err != nil {
			return err
		}
		return derive(updated, emp.LockedUntil)
	})
	if err != nil {
		return nil, err
	}

	s.publisher.RecordUpdated(ctx, employeeID, recordID, patch.Fields())
	return updated, nil
}

// Delete removes an unlocked record
func (s *RecordService) Delete(ctx context.Context, employeeID, recordID int64) error {
	err := s.db.WithTx(ctx, func(ctx context.Context) error {
		emp, err := s.employees.GetByID(ctx, employeeID)
		if err != nil {
			return err
		}

		table := emp.TableName()
		existing, err := s.records.GetByID(ctx, table, recordID, true)
		if err != nil {
			return err
		}
		if IsLocked(existing.Date, existing.Locked, emp.LockedUntil) {
			return errors.RecordLocked(recordID)
		}

		return s.records.Delete(ctx, table, recordID)
	})
	if err != nil {
		return err
	}

	s.publisher.RecordDeleted(ctx, employeeID, recordID)
	return nil
}

// NextRecordDate suggests the date of the employee's next record: the
// first working day after the latest record, or the first working day from
// today on when the table is empty.
func (s *RecordService) NextRecordDate(ctx context.Context, employeeID int64) (timecalc.Date, error) {
	emp, err := s.employees.GetByID(ctx, employeeID)
	if err != nil {
		return timecalc.Date{}, err
	}

	latest, err := s.records.LatestDate(ctx, emp.TableName())
	if err != nil {
		return timecalc.Date{}, err
	}

	base := timecalc.DateOf(s.now()).AddDays(-1)
	if latest != nil {
		base = *latest
	}
	return s.calculator.Next(ctx, base)
}

// checkApprovalSpan allows at most MaxApprovalDays dates, both ends included
func checkApprovalSpan(from, to timecalc.Date) error {
	if to.Before(from) {
		return errors.BadRequest("from must not be after to")
	}
	if !to.Before(from.AddDays(MaxApprovalDays)) {
		return errors.BadRequest("approval range is too long")
	}
	return nil
}

// ApproveRange inserts one record per working day in [from, to] from the
// template. Weekends, holidays, locked dates and dates that already hold a
// record are skipped. The whole range commits or nothing does.
func (s *RecordService) ApproveRange(ctx context.Context, employeeID int64, from, to timecalc.Date, template RecordInput) ([]*repository.WorkRecord, error) {
	if err := checkApprovalSpan(from, to); err != nil {
		return nil, err
	}
	if err := template.prepare(); err != nil {
		return nil, err
	}

	emp, err := s.employees.GetByID(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	table := emp.TableName()

	holidays, err := s.calculator.Holidays(ctx, from, to)
	if err != nil {
		return nil, err
	}

	created := []*repository.WorkRecord{}
	err = s.db.WithTx(ctx, func(ctx context.Context) error {
		existing, err := s.records.DatesIn(ctx, table, from, to)
		if err != nil {
			return err
		}
		taken := workday.NewSet(existing...)

		for _, day := range workday.WorkdaysBetween(from, to, holidays) {
			if taken.Contains(day) || IsLocked(day, false, emp.LockedUntil) {
				continue
			}

			id, err := s.records.Create(ctx, table, template.row(day))
			if err != nil {
				return err
			}
			rec, err := s.records.GetByID(ctx, table, id, false)
			if err != nil {
				return err
			}
			if err := derive(rec, emp.LockedUntil); err != nil {
				return err
			}
			created = append(created, rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(created) > 0 {
		s.publisher.RangeApproved(ctx, employeeID, from, to, created)
	}
	return created, nil
}
