package messaging

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types published by the records service
const (
	// Table lifecycle events
	EventTableProvisioned = "records.table.provisioned"
	EventTableRenamed     = "records.table.renamed"
	EventTableDropped     = "records.table.dropped"
	EventViewRebuilt      = "records.view.rebuilt"

	// Work record events
	EventRecordCreated = "records.record.created"
	EventRecordUpdated = "records.record.updated"
	EventRecordDeleted = "records.record.deleted"
	EventRangeApproved = "records.range.approved"

	// Employee identity events
	EventEmployeeLockMoved = "records.employee.lock_moved"
)

// Event types consumed from the HR system
const (
	EventHREmployeeCreated = "hr.employee.created"
	EventHREmployeeUpdated = "hr.employee.updated"
	EventHREmployeeDeleted = "hr.employee.deleted"
)

// Exchange names
const (
	ExchangeRecordsEvents = "records.events"
	ExchangeHREvents      = "hr.events"
	ExchangeDeadLetter    = "dlx.events"
)

// Event is the base event structure
type Event struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	Source        string          `json:"source"`
	Timestamp     time.Time       `json:"timestamp"`
	CorrelationID string          `json:"correlation_id"`
	Data          json.RawMessage `json:"data"`
}

// NewEvent creates a new event with the given type and data
func NewEvent(eventType, source, correlationID string, data interface{}) (*Event, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:            GenerateEventID(),
		Type:          eventType,
		Source:        source,
		Timestamp:     time.Now().UTC(),
		CorrelationID: correlationID,
		Data:          dataBytes,
	}, nil
}

// UnmarshalData unmarshals the event data into the provided struct
func (e *Event) UnmarshalData(v interface{}) error {
	return json.Unmarshal(e.Data, v)
}

// GenerateEventID returns a fresh event identifier
func GenerateEventID() string {
	return uuid.New().String()
}

// Table lifecycle payloads

// TableProvisionedEvent is published after a per-employee table is created
type TableProvisionedEvent struct {
	EmployeeID int64  `json:"employee_id"`
	Table      string `json:"table"`
}

// TableRenamedEvent is published after an employee name change.
// Renamed is false when the old table was missing and nothing moved.
type TableRenamedEvent struct {
	EmployeeID int64  `json:"employee_id"`
	OldTable   string `json:"old_table"`
	NewTable   string `json:"new_table"`
	Renamed    bool   `json:"renamed"`
}

// TableDroppedEvent is published after a per-employee table is removed
type TableDroppedEvent struct {
	EmployeeID int64  `json:"employee_id"`
	Table      string `json:"table"`
}

// ViewRebuiltEvent is published after the aggregate view is replaced
type ViewRebuiltEvent struct {
	View   string   `json:"view"`
	Tables []string `json:"tables"`
}

// Work record payloads

// RecordCreatedEvent is published when a work record is inserted
type RecordCreatedEvent struct {
	EmployeeID int64  `json:"employee_id"`
	RecordID   int64  `json:"record_id"`
	RecordDate string `json:"record_date"`
	Hours      string `json:"hours"`
}

// RecordUpdatedEvent is published when a work record changes
type RecordUpdatedEvent struct {
	EmployeeID int64    `json:"employee_id"`
	RecordID   int64    `json:"record_id"`
	Fields     []string `json:"fields"`
}

// RecordDeletedEvent is published when a work record is removed
type RecordDeletedEvent struct {
	EmployeeID int64 `json:"employee_id"`
	RecordID   int64 `json:"record_id"`
}

// RangeApprovedEvent is published after an approval inserted a date range
type RangeApprovedEvent struct {
	EmployeeID int64    `json:"employee_id"`
	From       string   `json:"from"`
	To         string   `json:"to"`
	Dates      []string `json:"dates"`
	RecordIDs  []int64  `json:"record_ids"`
}

// EmployeeLockMovedEvent is published when locked_until changes
type EmployeeLockMovedEvent struct {
	EmployeeID  int64   `json:"employee_id"`
	LockedUntil *string `json:"locked_until"`
}

// HR payloads

// HREmployeeCreatedEvent announces an employee identity created upstream
type HREmployeeCreatedEvent struct {
	EmployeeID int64  `json:"employee_id"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
}

// HREmployeeUpdatedEvent carries the name pair before and after the update
type HREmployeeUpdatedEvent struct {
	EmployeeID   int64  `json:"employee_id"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	OldFirstName string `json:"old_first_name"`
	OldLastName  string `json:"old_last_name"`
}

// NameChanged reports whether the update touched the name pair
func (e *HREmployeeUpdatedEvent) NameChanged() bool {
	return e.FirstName != e.OldFirstName || e.LastName != e.OldLastName
}

// HREmployeeDeletedEvent announces an employee removed upstream
type HREmployeeDeletedEvent struct {
	EmployeeID int64  `json:"employee_id"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
}
