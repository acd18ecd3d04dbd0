package consumers

import (
	"context"
	"fmt"

	"github.com/worktime/worktime-backend/internal/records/repository"
	"github.com/worktime/worktime-backend/internal/records/service"
	"github.com/worktime/worktime-backend/pkg/errors"
	"github.com/worktime/worktime-backend/pkg/logger"
	"github.com/worktime/worktime-backend/pkg/messaging"
)

const hrQueue = "records-service.hr-events"

// EmployeeDirectory is the part of the employee service the consumer drives
type EmployeeDirectory interface {
	Get(ctx context.Context, id int64) (*repository.Employee, error)
	Create(ctx context.Context, emp *repository.Employee) error
	Update(ctx context.Context, id int64, upd service.EmployeeUpdate) (*repository.Employee, error)
}

// TableManager is the part of the table lifecycle the consumer drives
type TableManager interface {
	EnsureTable(ctx context.Context, emp *repository.Employee) (bool, error)
	Drop(ctx context.Context, emp *repository.Employee) error
}

// HREventConsumer mirrors employee identities managed by the HR system
// into the local employees table and their per-employee tables.
type HREventConsumer struct {
	consumer  *messaging.Consumer
	employees EmployeeDirectory
	tables    TableManager
	logger    *logger.Logger
}

// NewHREventConsumer creates a new HR event consumer
func NewHREventConsumer(
	rmq *messaging.RabbitMQ,
	employees EmployeeDirectory,
	tables TableManager,
	log *logger.Logger,
) (*HREventConsumer, error) {
	consumer, err := messaging.NewConsumer(rmq, hrQueue, log)
	if err != nil {
		return nil, err
	}

	if err := consumer.Subscribe(messaging.ExchangeHREvents, "hr.employee.#"); err != nil {
		return nil, err
	}

	c := newHREventConsumer(employees, tables, log)
	c.consumer = consumer

	consumer.RegisterHandler(messaging.EventHREmployeeCreated, c.handleEmployeeCreated)
	consumer.RegisterHandler(messaging.EventHREmployeeUpdated, c.handleEmployeeUpdated)
	consumer.RegisterHandler(messaging.EventHREmployeeDeleted, c.handleEmployeeDeleted)

	return c, nil
}

func newHREventConsumer(employees EmployeeDirectory, tables TableManager, log *logger.Logger) *HREventConsumer {
	return &HREventConsumer{
		employees: employees,
		tables:    tables,
		logger:    log.WithComponent("hr_consumer"),
	}
}

// Start starts consuming messages
func (c *HREventConsumer) Start(ctx context.Context) error {
	return c.consumer.Start(ctx)
}

func (c *HREventConsumer) handleEmployeeCreated(ctx context.Context, event *messaging.Event) error {
	var data messaging.HREmployeeCreatedEvent
	if err := decode(event, &data); err != nil {
		return err
	}

	log := c.logger.WithEmployeeID(data.EmployeeID)
	log.Info().Str("name", data.FirstName+" "+data.LastName).Msg("received employee created event")

	existing, err := c.employees.Get(ctx, data.EmployeeID)
	switch {
	case err == nil:
		// redelivery or replay: only the table may be missing
		created, err := c.tables.EnsureTable(ctx, existing)
		if err != nil {
			return err
		}
		if created {
			log.Warn().Str("table", existing.TableName()).Msg("employee existed without a table, provisioned")
		}
		return nil
	case !errors.HasCode(err, errors.CodeEmployeeNotFound):
		return err
	}

	emp := &repository.Employee{
		ID:        data.EmployeeID,
		FirstName: data.FirstName,
		LastName:  data.LastName,
	}
	return permanent(c.employees.Create(ctx, emp))
}

func (c *HREventConsumer) handleEmployeeUpdated(ctx context.Context, event *messaging.Event) error {
	var data messaging.HREmployeeUpdatedEvent
	if err := decode(event, &data); err != nil {
		return err
	}

	log := c.logger.WithEmployeeID(data.EmployeeID)
	if !data.NameChanged() {
		log.Debug().Msg("employee update without name change, ignored")
		return nil
	}

	existing, err := c.employees.Get(ctx, data.EmployeeID)
	if err != nil {
		if errors.HasCode(err, errors.CodeEmployeeNotFound) {
			// the created event was lost; adopt the identity under its new name
			log.Warn().Msg("update for unknown employee, creating it")
			return permanent(c.employees.Create(ctx, &repository.Employee{
				ID:        data.EmployeeID,
				FirstName: data.FirstName,
				LastName:  data.LastName,
			}))
		}
		return err
	}

	_, err = c.employees.Update(ctx, data.EmployeeID, service.EmployeeUpdate{
		FirstName:      data.FirstName,
		LastName:       data.LastName,
		EmploymentType: existing.EmploymentType,
	})
	if err != nil {
		return permanent(err)
	}

	log.Info().
		Str("from", data.OldFirstName+" "+data.OldLastName).
		Str("to", data.FirstName+" "+data.LastName).
		Msg("employee renamed")
	return nil
}

func (c *HREventConsumer) handleEmployeeDeleted(ctx context.Context, event *messaging.Event) error {
	var data messaging.HREmployeeDeletedEvent
	if err := decode(event, &data); err != nil {
		return err
	}

	emp, err := c.employees.Get(ctx, data.EmployeeID)
	if err != nil {
		if !errors.HasCode(err, errors.CodeEmployeeNotFound) {
			return err
		}
		// identity already gone, the payload names still locate a leftover table
		emp = &repository.Employee{
			ID:        data.EmployeeID,
			FirstName: data.FirstName,
			LastName:  data.LastName,
		}
	}

	c.logger.WithEmployeeID(data.EmployeeID).Info().
		Str("table", emp.TableName()).
		Msg("received employee deleted event")

	return c.tables.Drop(ctx, emp)
}

func decode(event *messaging.Event, v interface{}) error {
	if err := event.UnmarshalData(v); err != nil {
		return fmt.Errorf("%w: decode %s: %v", messaging.ErrPermanent, event.Type, err)
	}
	return nil
}

// permanent marks client-side failures so the message is dead-lettered
// instead of retried.
func permanent(err error) error {
	if err == nil {
		return nil
	}
	var appErr *errors.AppError
	if errors.As(err, &appErr) && appErr.StatusCode < 500 {
		return fmt.Errorf("%w: %v", messaging.ErrPermanent, err)
	}
	return err
}
