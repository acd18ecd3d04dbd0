package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/worktime/worktime-backend/pkg/logger"
)

type fakeChannel struct {
	exchange string
	key      string
	msg      amqp.Publishing
	err      error
}

func (f *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	f.exchange, f.key, f.msg = exchange, key, msg
	return f.err
}

// fakeAck records what the consumer did with a delivery
type fakeAck struct {
	acked    bool
	nacked   bool
	requeue  bool
	rejected bool
}

func (a *fakeAck) Ack(uint64, bool) error { a.acked = true; return nil }
func (a *fakeAck) Nack(_ uint64, _ bool, requeue bool) error {
	a.nacked, a.requeue = true, requeue
	return nil
}
func (a *fakeAck) Reject(uint64, bool) error { a.rejected = true; return nil }

func delivery(t *testing.T, ack *fakeAck, eventType string, data interface{}) amqp.Delivery {
	t.Helper()
	event, err := NewEvent(eventType, "hr-service", "corr-1", data)
	require.NoError(t, err)
	body, err := json.Marshal(event)
	require.NoError(t, err)
	return amqp.Delivery{Acknowledger: ack, Body: body}
}

func TestPublisher_Publish(t *testing.T) {
	ch := &fakeChannel{}
	p := &Publisher{channel: func() channelPublisher { return ch }, exchange: ExchangeRecordsEvents, source: "records-service", logger: logger.Nop()}

	ctx := WithCorrelationID(context.Background(), "req-42")
	err := p.Publish(ctx, EventTableProvisioned, TableProvisionedEvent{EmployeeID: 7, Table: "t_Milan_Smotlak"})
	require.NoError(t, err)

	assert.Equal(t, ExchangeRecordsEvents, ch.exchange)
	assert.Equal(t, EventTableProvisioned, ch.key)
	assert.Equal(t, "req-42", ch.msg.CorrelationId)
	assert.Equal(t, amqp.Persistent, ch.msg.DeliveryMode)

	var event Event
	require.NoError(t, json.Unmarshal(ch.msg.Body, &event))
	assert.Equal(t, "records-service", event.Source)
	assert.Equal(t, ch.msg.MessageId, event.ID)

	var payload TableProvisionedEvent
	require.NoError(t, event.UnmarshalData(&payload))
	assert.Equal(t, int64(7), payload.EmployeeID)
	assert.Equal(t, "t_Milan_Smotlak", payload.Table)
}

func TestPublisher_PublishError(t *testing.T) {
	ch := &fakeChannel{err: errors.New("channel closed")}
	p := &Publisher{channel: func() channelPublisher { return ch }, exchange: ExchangeRecordsEvents, source: "records-service", logger: logger.Nop()}

	err := p.Publish(context.Background(), EventViewRebuilt, ViewRebuiltEvent{View: "all_work_records"})
	assert.ErrorContains(t, err, "channel closed")
}

func TestPublisher_NoChannel(t *testing.T) {
	p := &Publisher{channel: func() channelPublisher { return nil }, exchange: ExchangeRecordsEvents, logger: logger.Nop()}

	err := p.Publish(context.Background(), EventViewRebuilt, ViewRebuiltEvent{View: "all_work_records"})
	assert.ErrorContains(t, err, "no open channel")
}

func TestNoopPublisher(t *testing.T) {
	var p EventPublisher = NoopPublisher{}
	assert.NoError(t, p.Publish(context.Background(), EventRecordCreated, nil))
}

func TestConsumer_HandleMessage(t *testing.T) {
	payload := HREmployeeCreatedEvent{EmployeeID: 3, FirstName: "Jana", LastName: "Nováková"}

	t.Run("acks on success and passes correlation id", func(t *testing.T) {
		c := newConsumer(nil, "records-service.hr", logger.Nop())
		var got HREmployeeCreatedEvent
		var corr string
		c.RegisterHandler(EventHREmployeeCreated, func(ctx context.Context, e *Event) error {
			corr = getCorrelationID(ctx)
			return e.UnmarshalData(&got)
		})

		ack := &fakeAck{}
		c.handleMessage(context.Background(), delivery(t, ack, EventHREmployeeCreated, payload))

		assert.True(t, ack.acked)
		assert.Equal(t, payload, got)
		assert.Equal(t, "corr-1", corr)
	})

	t.Run("acks unknown event types", func(t *testing.T) {
		c := newConsumer(nil, "q", logger.Nop())
		ack := &fakeAck{}
		c.handleMessage(context.Background(), delivery(t, ack, "hr.contract.signed", nil))
		assert.True(t, ack.acked)
	})

	t.Run("rejects malformed bodies", func(t *testing.T) {
		c := newConsumer(nil, "q", logger.Nop())
		ack := &fakeAck{}
		c.handleMessage(context.Background(), amqp.Delivery{Acknowledger: ack, Body: []byte("{")})
		assert.True(t, ack.rejected)
	})

	t.Run("requeues first failure", func(t *testing.T) {
		c := newConsumer(nil, "q", logger.Nop())
		c.RegisterHandler(EventHREmployeeCreated, func(context.Context, *Event) error {
			return errors.New("database unavailable")
		})
		ack := &fakeAck{}
		c.handleMessage(context.Background(), delivery(t, ack, EventHREmployeeCreated, payload))
		assert.True(t, ack.nacked)
		assert.True(t, ack.requeue)
	})

	t.Run("dead-letters redelivered failure", func(t *testing.T) {
		c := newConsumer(nil, "q", logger.Nop())
		c.RegisterHandler(EventHREmployeeCreated, func(context.Context, *Event) error {
			return errors.New("database unavailable")
		})
		ack := &fakeAck{}
		d := delivery(t, ack, EventHREmployeeCreated, payload)
		d.Redelivered = true
		c.handleMessage(context.Background(), d)
		assert.True(t, ack.rejected)
	})

	t.Run("dead-letters permanent failure at once", func(t *testing.T) {
		c := newConsumer(nil, "q", logger.Nop())
		c.RegisterHandler(EventHREmployeeCreated, func(context.Context, *Event) error {
			return fmt.Errorf("bad payload: %w", ErrPermanent)
		})
		ack := &fakeAck{}
		c.handleMessage(context.Background(), delivery(t, ack, EventHREmployeeCreated, payload))
		assert.True(t, ack.rejected)
		assert.False(t, ack.nacked)
	})
}

func TestGetRetryCount(t *testing.T) {
	assert.Equal(t, 0, getRetryCount(amqp.Delivery{}))
	msg := amqp.Delivery{Headers: amqp.Table{
		"x-death": []interface{}{amqp.Table{"count": int64(2)}},
	}}
	assert.Equal(t, 2, getRetryCount(msg))
}

func TestHREmployeeUpdatedEvent_NameChanged(t *testing.T) {
	e := HREmployeeUpdatedEvent{FirstName: "Milan", LastName: "Novák", OldFirstName: "Milan", OldLastName: "Šmotlák"}
	assert.True(t, e.NameChanged())
	e.LastName = "Šmotlák"
	assert.False(t, e.NameChanged())
}
