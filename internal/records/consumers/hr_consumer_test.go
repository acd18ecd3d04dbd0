package consumers

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/worktime/worktime-backend/internal/records/repository"
	"github.com/worktime/worktime-backend/internal/records/service"
	apperrors "github.com/worktime/worktime-backend/pkg/errors"
	"github.com/worktime/worktime-backend/pkg/logger"
	"github.com/worktime/worktime-backend/pkg/messaging"
)

type fakeDirectory struct {
	employees map[int64]*repository.Employee
	created   []*repository.Employee
	updates   []service.EmployeeUpdate
	getErr    error
	createErr error
}

func newFakeDirectory(emps ...*repository.Employee) *fakeDirectory {
	d := &fakeDirectory{employees: map[int64]*repository.Employee{}}
	for _, e := range emps {
		d.employees[e.ID] = e
	}
	return d
}

func (d *fakeDirectory) Get(_ context.Context, id int64) (*repository.Employee, error) {
	if d.getErr != nil {
		return nil, d.getErr
	}
	emp, ok := d.employees[id]
	if !ok {
		return nil, apperrors.EmployeeNotFound(id)
	}
	return emp, nil
}

func (d *fakeDirectory) Create(_ context.Context, emp *repository.Employee) error {
	if d.createErr != nil {
		return d.createErr
	}
	d.created = append(d.created, emp)
	d.employees[emp.ID] = emp
	return nil
}

func (d *fakeDirectory) Update(_ context.Context, id int64, upd service.EmployeeUpdate) (*repository.Employee, error) {
	d.updates = append(d.updates, upd)
	emp := d.employees[id]
	emp.FirstName, emp.LastName = upd.FirstName, upd.LastName
	return emp, nil
}

type fakeTables struct {
	existing map[string]bool
	ensured  []string
	dropped  []string
}

func (f *fakeTables) EnsureTable(_ context.Context, emp *repository.Employee) (bool, error) {
	f.ensured = append(f.ensured, emp.TableName())
	if f.existing[emp.TableName()] {
		return false, nil
	}
	return true, nil
}

func (f *fakeTables) Drop(_ context.Context, emp *repository.Employee) error {
	f.dropped = append(f.dropped, emp.TableName())
	return nil
}

func event(t *testing.T, eventType string, data interface{}) *messaging.Event {
	t.Helper()
	e, err := messaging.NewEvent(eventType, "hr-service", "corr-1", data)
	require.NoError(t, err)
	return e
}

func TestHandleEmployeeCreated_NewEmployee(t *testing.T) {
	dir := newFakeDirectory()
	tables := &fakeTables{}
	c := newHREventConsumer(dir, tables, logger.Nop())

	err := c.handleEmployeeCreated(context.Background(), event(t, messaging.EventHREmployeeCreated,
		messaging.HREmployeeCreatedEvent{EmployeeID: 42, FirstName: "Milan", LastName: "Šmotlák"}))
	require.NoError(t, err)

	require.Len(t, dir.created, 1)
	assert.Equal(t, int64(42), dir.created[0].ID)
	assert.Equal(t, "t_Milan_Smotlak", dir.created[0].TableName())
	assert.Empty(t, tables.ensured)
}

func TestHandleEmployeeCreated_Redelivery(t *testing.T) {
	dir := newFakeDirectory(&repository.Employee{ID: 42, FirstName: "Milan", LastName: "Šmotlák"})
	tables := &fakeTables{existing: map[string]bool{"t_Milan_Smotlak": true}}
	c := newHREventConsumer(dir, tables, logger.Nop())

	err := c.handleEmployeeCreated(context.Background(), event(t, messaging.EventHREmployeeCreated,
		messaging.HREmployeeCreatedEvent{EmployeeID: 42, FirstName: "Milan", LastName: "Šmotlák"}))
	require.NoError(t, err)

	assert.Empty(t, dir.created)
	assert.Equal(t, []string{"t_Milan_Smotlak"}, tables.ensured)
}

func TestHandleEmployeeCreated_InvalidNameIsPermanent(t *testing.T) {
	dir := newFakeDirectory()
	dir.createErr = apperrors.InvalidIdentifier("t_x")
	c := newHREventConsumer(dir, &fakeTables{}, logger.Nop())

	err := c.handleEmployeeCreated(context.Background(), event(t, messaging.EventHREmployeeCreated,
		messaging.HREmployeeCreatedEvent{EmployeeID: 7, FirstName: "x", LastName: "y"}))
	assert.ErrorIs(t, err, messaging.ErrPermanent)
}

func TestHandleEmployeeCreated_StorageErrorIsRetried(t *testing.T) {
	dir := newFakeDirectory()
	dir.getErr = stderrors.New("connection reset")
	c := newHREventConsumer(dir, &fakeTables{}, logger.Nop())

	err := c.handleEmployeeCreated(context.Background(), event(t, messaging.EventHREmployeeCreated,
		messaging.HREmployeeCreatedEvent{EmployeeID: 7, FirstName: "Jana", LastName: "Nováková"}))
	require.Error(t, err)
	assert.NotErrorIs(t, err, messaging.ErrPermanent)
}

func TestHandleEmployeeCreated_BadPayload(t *testing.T) {
	c := newHREventConsumer(newFakeDirectory(), &fakeTables{}, logger.Nop())

	e := event(t, messaging.EventHREmployeeCreated, nil)
	e.Data = []byte(`{"employee_id": "not-a-number"}`)

	err := c.handleEmployeeCreated(context.Background(), e)
	assert.ErrorIs(t, err, messaging.ErrPermanent)
}

func TestHandleEmployeeUpdated(t *testing.T) {
	t.Run("renames on name change", func(t *testing.T) {
		dir := newFakeDirectory(&repository.Employee{ID: 42, FirstName: "Milan", LastName: "Šmotlák", EmploymentType: repository.EmploymentPartTime})
		c := newHREventConsumer(dir, &fakeTables{}, logger.Nop())

		err := c.handleEmployeeUpdated(context.Background(), event(t, messaging.EventHREmployeeUpdated,
			messaging.HREmployeeUpdatedEvent{
				EmployeeID: 42, FirstName: "Milan", LastName: "Novák",
				OldFirstName: "Milan", OldLastName: "Šmotlák",
			}))
		require.NoError(t, err)

		require.Len(t, dir.updates, 1)
		assert.Equal(t, "Novák", dir.updates[0].LastName)
		assert.Equal(t, repository.EmploymentPartTime, dir.updates[0].EmploymentType)
	})

	t.Run("ignores updates without name change", func(t *testing.T) {
		dir := newFakeDirectory(&repository.Employee{ID: 42, FirstName: "Milan", LastName: "Šmotlák"})
		c := newHREventConsumer(dir, &fakeTables{}, logger.Nop())

		err := c.handleEmployeeUpdated(context.Background(), event(t, messaging.EventHREmployeeUpdated,
			messaging.HREmployeeUpdatedEvent{
				EmployeeID: 42, FirstName: "Milan", LastName: "Šmotlák",
				OldFirstName: "Milan", OldLastName: "Šmotlák",
			}))
		require.NoError(t, err)
		assert.Empty(t, dir.updates)
	})

	t.Run("creates unknown employee under the new name", func(t *testing.T) {
		dir := newFakeDirectory()
		c := newHREventConsumer(dir, &fakeTables{}, logger.Nop())

		err := c.handleEmployeeUpdated(context.Background(), event(t, messaging.EventHREmployeeUpdated,
			messaging.HREmployeeUpdatedEvent{
				EmployeeID: 9, FirstName: "Peter", LastName: "Kováč",
				OldFirstName: "Peter", OldLastName: "Novák",
			}))
		require.NoError(t, err)

		require.Len(t, dir.created, 1)
		assert.Equal(t, "t_Peter_Kovac", dir.created[0].TableName())
	})
}

func TestHandleEmployeeDeleted(t *testing.T) {
	t.Run("drops the stored employee's table", func(t *testing.T) {
		dir := newFakeDirectory(&repository.Employee{ID: 42, FirstName: "Milan", LastName: "Novák"})
		tables := &fakeTables{}
		c := newHREventConsumer(dir, tables, logger.Nop())

		// the stored name wins over a stale payload
		err := c.handleEmployeeDeleted(context.Background(), event(t, messaging.EventHREmployeeDeleted,
			messaging.HREmployeeDeletedEvent{EmployeeID: 42, FirstName: "Milan", LastName: "Šmotlák"}))
		require.NoError(t, err)
		assert.Equal(t, []string{"t_Milan_Novak"}, tables.dropped)
	})

	t.Run("falls back to payload names", func(t *testing.T) {
		tables := &fakeTables{}
		c := newHREventConsumer(newFakeDirectory(), tables, logger.Nop())

		err := c.handleEmployeeDeleted(context.Background(), event(t, messaging.EventHREmployeeDeleted,
			messaging.HREmployeeDeletedEvent{EmployeeID: 42, FirstName: "Jürgen", LastName: "Müller"}))
		require.NoError(t, err)
		assert.Equal(t, []string{"t_Jurgen_Muller"}, tables.dropped)
	})
}

func TestPermanent(t *testing.T) {
	assert.NoError(t, permanent(nil))
	assert.ErrorIs(t, permanent(apperrors.Conflict("duplicate")), messaging.ErrPermanent)
	assert.NotErrorIs(t, permanent(apperrors.Internal("boom")), messaging.ErrPermanent)
	assert.NotErrorIs(t, permanent(stderrors.New("network")), messaging.ErrPermanent)
}
