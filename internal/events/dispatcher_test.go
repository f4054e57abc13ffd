package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPublishInvokesAllHandlers(t *testing.T) {
	d := NewInMemoryDispatcher()
	var calls []string

	d.Subscribe(EventTicketCreated, func(_ context.Context, e Event) error {
		calls = append(calls, "first:"+e.TicketID)
		return errors.New("first failed")
	})
	d.Subscribe(EventTicketCreated, func(_ context.Context, e Event) error {
		calls = append(calls, "second:"+e.TicketID)
		return nil
	})
	d.Subscribe(EventTicketAssigned, func(context.Context, Event) error {
		calls = append(calls, "other")
		return nil
	})

	err := d.Publish(context.Background(), Event{Type: EventTicketCreated, TicketID: "t1"})

	assert.ErrorContains(t, err, "first failed")
	assert.Equal(t, []string{"first:t1", "second:t1"}, calls)
}

func TestPublishWithoutSubscribers(t *testing.T) {
	d := NewInMemoryDispatcher()
	assert.NoError(t, d.Publish(context.Background(), Event{Type: EventNoticePosted}))
}

func TestPublishRecoversHandlerPanic(t *testing.T) {
	d := NewInMemoryDispatcher()
	ran := false

	d.Subscribe(EventTicketStatusChanged, func(context.Context, Event) error {
		panic("nil settings")
	})
	d.Subscribe(EventTicketStatusChanged, func(context.Context, Event) error {
		ran = true
		return nil
	})

	err := d.Publish(context.Background(), Event{Type: EventTicketStatusChanged})

	assert.ErrorContains(t, err, "ticket_status_changed handler panicked: nil settings")
	assert.True(t, ran)
}
