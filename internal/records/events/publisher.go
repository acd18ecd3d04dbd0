package events

import (
	"context"

	"github.com/worktime/worktime-backend/internal/records/repository"
	"github.com/worktime/worktime-backend/internal/records/timecalc"
	"github.com/worktime/worktime-backend/pkg/logger"
	"github.com/worktime/worktime-backend/pkg/messaging"
)

// Source identifies this service on published events
const Source = "records-service"

// RecordsEventPublisher publishes table lifecycle and work record events.
// Every method is best-effort: failures are logged, never returned.
type RecordsEventPublisher struct {
	publisher messaging.EventPublisher
	logger    *logger.Logger
}

// NewRecordsEventPublisher wraps an event publisher
func NewRecordsEventPublisher(publisher messaging.EventPublisher, log *logger.Logger) *RecordsEventPublisher {
	return &RecordsEventPublisher{
		publisher: publisher,
		logger:    log,
	}
}

// NewRabbitPublisher declares the records exchange and returns a publisher on it
func NewRabbitPublisher(rmq *messaging.RabbitMQ, log *logger.Logger) (*RecordsEventPublisher, error) {
	publisher, err := messaging.NewPublisher(rmq, messaging.ExchangeRecordsEvents, Source, log)
	if err != nil {
		return nil, err
	}
	return NewRecordsEventPublisher(publisher, log), nil
}

func (p *RecordsEventPublisher) publish(ctx context.Context, eventType string, employeeID int64, data any) {
	if err := p.publisher.Publish(ctx, eventType, data); err != nil {
		p.logger.Error().Err(err).
			Str("event_type", eventType).
			Int64("employee_id", employeeID).
			Msg("failed to publish event")
	}
}

// TableProvisioned publishes a table provisioned event
func (p *RecordsEventPublisher) TableProvisioned(ctx context.Context, employeeID int64, table string) {
	p.publish(ctx, messaging.EventTableProvisioned, employeeID, messaging.TableProvisionedEvent{
		EmployeeID: employeeID,
		Table:      table,
	})
}

// TableRenamed publishes a table renamed event
func (p *RecordsEventPublisher) TableRenamed(ctx context.Context, employeeID int64, oldTable, newTable string, renamed bool) {
	p.publish(ctx, messaging.EventTableRenamed, employeeID, messaging.TableRenamedEvent{
		EmployeeID: employeeID,
		OldTable:   oldTable,
		NewTable:   newTable,
		Renamed:    renamed,
	})
}

// TableDropped publishes a table dropped event
func (p *RecordsEventPublisher) TableDropped(ctx context.Context, employeeID int64, table string) {
	p.publish(ctx, messaging.EventTableDropped, employeeID, messaging.TableDroppedEvent{
		EmployeeID: employeeID,
		Table:      table,
	})
}

// ViewRebuilt publishes the table set the aggregate view now covers
func (p *RecordsEventPublisher) ViewRebuilt(ctx context.Context, view string, tables []string) {
	if tables == nil {
		tables = []string{}
	}
	p.publish(ctx, messaging.EventViewRebuilt, 0, messaging.ViewRebuiltEvent{
		View:   view,
		Tables: tables,
	})
}

// RecordCreated publishes a record created event
func (p *RecordsEventPublisher) RecordCreated(ctx context.Context, employeeID int64, rec *repository.WorkRecord) {
	p.publish(ctx, messaging.EventRecordCreated, employeeID, messaging.RecordCreatedEvent{
		EmployeeID: employeeID,
		RecordID:   rec.ID,
		RecordDate: rec.Date.String(),
		Hours:      rec.Hours.StringFixed(2),
	})
}

// RecordUpdated publishes the changed columns of a record
func (p *RecordsEventPublisher) RecordUpdated(ctx context.Context, employeeID, recordID int64, fields []string) {
	p.publish(ctx, messaging.EventRecordUpdated, employeeID, messaging.RecordUpdatedEvent{
		EmployeeID: employeeID,
		RecordID:   recordID,
		Fields:     fields,
	})
}

// RecordDeleted publishes a record deleted event
func (p *RecordsEventPublisher) RecordDeleted(ctx context.Context, employeeID, recordID int64) {
	p.publish(ctx, messaging.EventRecordDeleted, employeeID, messaging.RecordDeletedEvent{
		EmployeeID: employeeID,
		RecordID:   recordID,
	})
}

// RangeApproved publishes the records an approval inserted
func (p *RecordsEventPublisher) RangeApproved(ctx context.Context, employeeID int64, from, to timecalc.Date, records []*repository.WorkRecord) {
	dates := make([]string, len(records))
	ids := make([]int64, len(records))
	for i, rec := range records {
		dates[i] = rec.Date.String()
		ids[i] = rec.ID
	}
	p.publish(ctx, messaging.EventRangeApproved, employeeID, messaging.RangeApprovedEvent{
		EmployeeID: employeeID,
		From:       from.String(),
		To:         to.String(),
		Dates:      dates,
		RecordIDs:  ids,
	})
}

// LockMoved publishes the employee's new lock threshold
func (p *RecordsEventPublisher) LockMoved(ctx context.Context, employeeID int64, lockedUntil *timecalc.Date) {
	var until *string
	if lockedUntil != nil {
		s := lockedUntil.String()
		until = &s
	}
	p.publish(ctx, messaging.EventEmployeeLockMoved, employeeID, messaging.EmployeeLockMovedEvent{
		EmployeeID:  employeeID,
		LockedUntil: until,
	})
}
