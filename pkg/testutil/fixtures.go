package testutil

import (
	"database/sql/driver"
	"fmt"
	"sync"
	"time"
)

// EmployeeFixture represents test employee data
type EmployeeFixture struct {
	ID             int64
	FirstName      string
	LastName       string
	LockedUntil    *time.Time
	EmploymentType string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// RecordFixture represents one row of a per-employee table
type RecordFixture struct {
	ID                 int64
	ActivityTypeID     int64
	RecordDate         time.Time
	ProjectID          *int64
	ProductivityTypeID *int64
	WorkTypeID         *int64
	StartTime          string
	EndTime            string
	Description        string
	Distance           string
	Locked             bool
	IsTrip             bool
}

// Names with diacritics exercise identifier folding in every test that uses them
var fixtureNames = [][2]string{
	{"Milan", "Šmotlák"},
	{"Jana", "Nováková"},
	{"Peter", "Kováč"},
	{"Zuzana", "Hrušková"},
	{"Jürgen", "Müller"},
	{"Ľubomír", "Ďurčo"},
}

// FixtureFactory creates test fixtures with sensible defaults
type FixtureFactory struct {
	mu      sync.Mutex
	counter int64
}

// NewFixtureFactory creates a new fixture factory
func NewFixtureFactory() *FixtureFactory {
	return &FixtureFactory{}
}

func (f *FixtureFactory) next() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counter++
	return f.counter
}

// Employee creates an employee fixture; names cycle through the list above
// and get a numeric suffix once the list is exhausted.
func (f *FixtureFactory) Employee(opts ...func(*EmployeeFixture)) *EmployeeFixture {
	n := f.next()
	name := fixtureNames[(n-1)%int64(len(fixtureNames))]
	last := name[1]
	if round := (n - 1) / int64(len(fixtureNames)); round > 0 {
		last = fmt.Sprintf("%s%d", last, round)
	}

	now := time.Now().UTC()
	e := &EmployeeFixture{
		ID:             n,
		FirstName:      name[0],
		LastName:       last,
		EmploymentType: "full_time",
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// WithLockedUntil sets the employee's lock threshold
func WithLockedUntil(d time.Time) func(*EmployeeFixture) {
	return func(e *EmployeeFixture) {
		e.LockedUntil = &d
	}
}

// WithName overrides the employee name
func WithName(first, last string) func(*EmployeeFixture) {
	return func(e *EmployeeFixture) {
		e.FirstName = first
		e.LastName = last
	}
}

// Record creates a record fixture for a plain 8h work day
func (f *FixtureFactory) Record(date time.Time, opts ...func(*RecordFixture)) *RecordFixture {
	r := &RecordFixture{
		ID:             f.next(),
		ActivityTypeID: 1,
		RecordDate:     date,
		StartTime:      "08:00:00",
		EndTime:        "16:00:00",
		Description:    "regular shift",
		Distance:       "0.00",
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// WithShift overrides start and end time
func WithShift(start, end string) func(*RecordFixture) {
	return func(r *RecordFixture) {
		r.StartTime = start
		r.EndTime = end
	}
}

// Locked marks the record with the explicit lock flag
func Locked() func(*RecordFixture) {
	return func(r *RecordFixture) {
		r.Locked = true
	}
}

// EmployeeColumns is the select list of the employee repository
var EmployeeColumns = []string{
	"id", "first_name", "last_name", "locked_until", "employment_type", "created_at", "updated_at",
}

// Values returns the fixture as a sqlmock row in EmployeeColumns order
func (e *EmployeeFixture) Values() []driver.Value {
	var lockedUntil driver.Value
	if e.LockedUntil != nil {
		lockedUntil = *e.LockedUntil
	}
	return []driver.Value{e.ID, e.FirstName, e.LastName, lockedUntil, e.EmploymentType, e.CreatedAt, e.UpdatedAt}
}

// RecordColumns is the select list of the work record repository
var RecordColumns = []string{
	"id", "record_date", "activity_type_id", "activity_type",
	"project_id", "project_number", "productivity_type_id", "productivity_type",
	"work_type_id", "work_type", "start_time", "end_time",
	"description", "distance", "is_trip", "locked",
}

// Values returns the fixture as a sqlmock row in RecordColumns order.
// Catalog labels are derived from the ids so nil ids give nil labels.
func (r *RecordFixture) Values(activity string) []driver.Value {
	var projectID, projectNumber, productivityID, productivity, workTypeID, workType driver.Value
	if r.ProjectID != nil {
		projectID = *r.ProjectID
		projectNumber = fmt.Sprintf("P-%03d", *r.ProjectID)
	}
	if r.ProductivityTypeID != nil {
		productivityID = *r.ProductivityTypeID
		productivity = "Productive"
	}
	if r.WorkTypeID != nil {
		workTypeID = *r.WorkTypeID
		workType = "Development"
	}
	return []driver.Value{
		r.ID, r.RecordDate, r.ActivityTypeID, activity,
		projectID, projectNumber, productivityID, productivity,
		workTypeID, workType, r.StartTime, r.EndTime,
		r.Description, r.Distance, r.IsTrip, r.Locked,
	}
}

// WithProject attaches project, productivity and work type ids
func WithProject(projectID, productivityTypeID, workTypeID int64) func(*RecordFixture) {
	return func(r *RecordFixture) {
		r.ProjectID = &projectID
		r.ProductivityTypeID = &productivityTypeID
		r.WorkTypeID = &workTypeID
	}
}
