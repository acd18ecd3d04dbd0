package repository

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/worktime/worktime-backend/internal/records/timecalc"
	"github.com/worktime/worktime-backend/pkg/database"
	"github.com/worktime/worktime-backend/pkg/errors"
)

// Sort orders accepted by Query
const (
	SortDesc = "desc"
	SortAsc  = "asc"
)

// WorkRecord is one row of a per-employee table with its catalog labels
// resolved. Hours, IsOvernightShift and IsLocked are derived after the fetch.
type WorkRecord struct {
	ID                 int64           `db:"id" json:"id"`
	Date               timecalc.Date   `db:"record_date" json:"date"`
	ActivityTypeID     int64           `db:"activity_type_id" json:"activity_type_id"`
	ActivityType       string          `db:"activity_type" json:"activity_type"`
	ProjectID          *int64          `db:"project_id" json:"project_id"`
	ProjectNumber      *string         `db:"project_number" json:"project_number"`
	ProductivityTypeID *int64          `db:"productivity_type_id" json:"productivity_type_id"`
	ProductivityType   *string         `db:"productivity_type" json:"productivity_type"`
	WorkTypeID         *int64          `db:"work_type_id" json:"work_type_id"`
	WorkType           *string         `db:"work_type" json:"work_type"`
	StartTime          string          `db:"start_time" json:"start_time"`
	EndTime            string          `db:"end_time" json:"end_time"`
	Description        *string         `db:"description" json:"description"`
	Distance           decimal.Decimal `db:"distance" json:"distance"`
	IsTrip             bool            `db:"is_trip" json:"is_trip"`
	Locked             bool            `db:"locked" json:"-"`

	Hours            decimal.Decimal `db:"-" json:"hours"`
	IsOvernightShift bool            `db:"-" json:"is_overnight_shift"`
	IsLocked         bool            `db:"-" json:"is_locked"`
}

// NewWorkRecord holds the columns written on insert
type NewWorkRecord struct {
	Date               timecalc.Date
	ActivityTypeID     int64
	ProjectID          *int64
	ProductivityTypeID *int64
	WorkTypeID         *int64
	StartTime          string
	EndTime            string
	Description        *string
	Distance           decimal.Decimal
	IsTrip             bool
}

// Nullable is a patch value for a nullable column. The zero value leaves the
// column alone; Set without Valid writes NULL.
type Nullable[T any] struct {
	Set   bool
	Valid bool
	Value T
}

// NullableOf sets the column to v
func NullableOf[T any](v T) Nullable[T] {
	return Nullable[T]{Set: true, Valid: true, Value: v}
}

// Null sets the column to NULL
func Null[T any]() Nullable[T] {
	return Nullable[T]{Set: true}
}

// UnmarshalJSON marks the field present; a JSON null means NULL
func (n *Nullable[T]) UnmarshalJSON(b []byte) error {
	n.Set = true
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		var zero T
		n.Valid, n.Value = false, zero
		return nil
	}
	n.Valid = true
	return json.Unmarshal(b, &n.Value)
}

func (n Nullable[T]) arg() any {
	if !n.Valid {
		return nil
	}
	return n.Value
}

// WorkRecordPatch holds the columns an update may change. Nil fields are left
// alone; the catalog references can also be cleared.
type WorkRecordPatch struct {
	Date               *timecalc.Date
	ActivityTypeID     *int64
	ProjectID          Nullable[int64]
	ProductivityTypeID Nullable[int64]
	WorkTypeID         Nullable[int64]
	StartTime          *string
	EndTime            *string
	Description        *string
	Distance           *decimal.Decimal
	IsTrip             *bool
}

// Empty reports whether the patch changes nothing
func (p WorkRecordPatch) Empty() bool {
	return len(p.assignments()) == 0
}

// Fields lists the columns the patch touches
func (p WorkRecordPatch) Fields() []string {
	as := p.assignments()
	fields := make([]string, len(as))
	for i, a := range as {
		fields[i] = a.column
	}
	return fields
}

type assignment struct {
	column string
	value  any
}

func (p WorkRecordPatch) assignments() []assignment {
	var as []assignment
	if p.Date != nil {
		as = append(as, assignment{"record_date", *p.Date})
	}
	if p.ActivityTypeID != nil {
		as = append(as, assignment{"activity_type_id", *p.ActivityTypeID})
	}
	if p.ProjectID.Set {
		as = append(as, assignment{"project_id", p.ProjectID.arg()})
	}
	if p.ProductivityTypeID.Set {
		as = append(as, assignment{"productivity_type_id", p.ProductivityTypeID.arg()})
	}
	if p.WorkTypeID.Set {
		as = append(as, assignment{"work_type_id", p.WorkTypeID.arg()})
	}
	if p.StartTime != nil {
		as = append(as, assignment{"start_time", *p.StartTime})
	}
	if p.EndTime != nil {
		as = append(as, assignment{"end_time", *p.EndTime})
	}
	if p.Description != nil {
		as = append(as, assignment{"description", *p.Description})
	}
	if p.Distance != nil {
		as = append(as, assignment{"distance", *p.Distance})
	}
	if p.IsTrip != nil {
		as = append(as, assignment{"is_trip", *p.IsTrip})
	}
	return as
}

// RecordFilter selects a page of records by date window
type RecordFilter struct {
	From   timecalc.Date
	To     timecalc.Date
	Limit  int
	Offset int
	Sort   string
}

// WorkRecordRepository reads and writes rows of per-employee tables. The
// table is passed on every call because it follows the employee's name.
type WorkRecordRepository struct {
	db *database.DB
}

// NewWorkRecordRepository creates a new work record repository
func NewWorkRecordRepository(db *database.DB) *WorkRecordRepository {
	return &WorkRecordRepository{db: db}
}

func selectRecords(table string) string {
	return fmt.Sprintf(`
		SELECT r.id, r.record_date, r.activity_type_id, a.name AS activity_type,
		       r.project_id, p.number AS project_number,
		       r.productivity_type_id, pt.name AS productivity_type,
		       r.work_type_id, wt.name AS work_type,
		       r.start_time::text AS start_time, r.end_time::text AS end_time,
		       r.description, r.distance, r.is_trip, r.locked
		FROM %s r
		JOIN activity_types a ON a.id = r.activity_type_id
		LEFT JOIN projects p ON p.id = r.project_id
		LEFT JOIN productivity_types pt ON pt.id = r.productivity_type_id
		LEFT JOIN work_types wt ON wt.id = r.work_type_id`, pq.QuoteIdentifier(table))
}

// Query returns one page of records in [From, To] and the total count of the window
func (r *WorkRecordRepository) Query(ctx context.Context, table string, filter RecordFilter) ([]*WorkRecord, int64, error) {
	quoted := pq.QuoteIdentifier(table)

	var total int64
	countQuery := `SELECT COUNT(*) FROM ` + quoted + ` WHERE record_date BETWEEN $1 AND $2`
	if err := r.db.Conn(ctx).GetContext(ctx, &total, countQuery, filter.From, filter.To); err != nil {
		return nil, 0, mapError(err)
	}

	direction := "DESC"
	if filter.Sort == SortAsc {
		direction = "ASC"
	}

	query := selectRecords(table) + `
		WHERE r.record_date BETWEEN $1 AND $2
		ORDER BY r.record_date ` + direction + `, r.id ` + direction + `
		LIMIT $3 OFFSET $4`

	records := []*WorkRecord{}
	if err := r.db.Conn(ctx).SelectContext(ctx, &records, query, filter.From, filter.To, filter.Limit, filter.Offset); err != nil {
		return nil, 0, mapError(err)
	}

	return records, total, nil
}

// GetByID gets one record. forUpdate locks the row until the surrounding
// transaction ends.
func (r *WorkRecordRepository) GetByID(ctx context.Context, table string, id int64, forUpdate bool) (*WorkRecord, error) {
	query := selectRecords(table) + ` WHERE r.id = $1`
	if forUpdate {
		query += ` FOR UPDATE OF r`
	}

	var rec WorkRecord
	err := r.db.Conn(ctx).GetContext(ctx, &rec, query, id)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.RecordNotFound(id)
	}
	if err != nil {
		return nil, mapError(err)
	}
	return &rec, nil
}

// Create inserts a record. New records are never locked.
func (r *WorkRecordRepository) Create(ctx context.Context, table string, rec *NewWorkRecord) (int64, error) {
	query := `INSERT INTO ` + pq.QuoteIdentifier(table) + ` (
			activity_type_id, record_date, project_id, productivity_type_id, work_type_id,
			start_time, end_time, description, distance, locked, is_trip
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, FALSE, $10)
		RETURNING id`

	var id int64
	err := r.db.Conn(ctx).QueryRowxContext(ctx, query,
		rec.ActivityTypeID, rec.Date, rec.ProjectID, rec.ProductivityTypeID, rec.WorkTypeID,
		rec.StartTime, rec.EndTime, rec.Description, rec.Distance, rec.IsTrip,
	).Scan(&id)
	if err != nil {
		return 0, mapError(err)
	}
	return id, nil
}

// Update applies patch to record id
func (r *WorkRecordRepository) Update(ctx context.Context, table string, id int64, patch WorkRecordPatch) error {
	as := patch.assignments()
	if len(as) == 0 {
		return errors.NoFieldsProvided()
	}

	sets := make([]string, len(as))
	args := make([]any, 0, len(as)+1)
	for i, a := range as {
		sets[i] = fmt.Sprintf("%s = $%d", a.column, i+1)
		args = append(args, a.value)
	}
	args = append(args, id)

	query := fmt.Sprintf(`UPDATE %s SET %s WHERE id = $%d`,
		pq.QuoteIdentifier(table), strings.Join(sets, ", "), len(args))

	result, err := r.db.Conn(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		return mapError(err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return errors.RecordNotFound(id)
	}
	return nil
}

// Delete removes record id
func (r *WorkRecordRepository) Delete(ctx context.Context, table string, id int64) error {
	query := `DELETE FROM ` + pq.QuoteIdentifier(table) + ` WHERE id = $1`

	result, err := r.db.Conn(ctx).ExecContext(ctx, query, id)
	if err != nil {
		return mapError(err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return errors.RecordNotFound(id)
	}
	return nil
}

// LatestDate returns the most recent record date, or nil for an empty table
func (r *WorkRecordRepository) LatestDate(ctx context.Context, table string) (*timecalc.Date, error) {
	var latest *timecalc.Date
	query := `SELECT MAX(record_date) FROM ` + pq.QuoteIdentifier(table)
	if err := r.db.Conn(ctx).GetContext(ctx, &latest, query); err != nil {
		return nil, mapError(err)
	}
	return latest, nil
}

// DatesIn returns the distinct record dates in [from, to]
func (r *WorkRecordRepository) DatesIn(ctx context.Context, table string, from, to timecalc.Date) ([]timecalc.Date, error) {
	query := `SELECT DISTINCT record_date FROM ` + pq.QuoteIdentifier(table) +
		` WHERE record_date BETWEEN $1 AND $2 ORDER BY record_date`

	var dates []timecalc.Date
	if err := r.db.Conn(ctx).SelectContext(ctx, &dates, query, from, to); err != nil {
		return nil, mapError(err)
	}
	return dates, nil
}
