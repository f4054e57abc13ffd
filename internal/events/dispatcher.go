package events

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// EventHandler reacts to one ticket or notice event.
type EventHandler func(context.Context, Event) error

// Dispatcher fans ticket lifecycle and notice events out to subscribers such as
// the notification router.
type Dispatcher interface {
	Publish(ctx context.Context, event Event) error
	Subscribe(eventType EventType, handler EventHandler)
}

type inMemoryDispatcher struct {
	mu       sync.RWMutex
	handlers map[EventType][]EventHandler
}

// NewInMemoryDispatcher returns a process-local dispatcher. Handlers run on the
// publishing goroutine in subscription order.
func NewInMemoryDispatcher() Dispatcher {
	return &inMemoryDispatcher{handlers: make(map[EventType][]EventHandler)}
}

// Publish runs every handler subscribed to event.Type. A failing or panicking
// handler does not stop the rest; all failures come back joined.
func (d *inMemoryDispatcher) Publish(ctx context.Context, event Event) error {
	d.mu.RLock()
	subscribed := append([]EventHandler(nil), d.handlers[event.Type]...)
	d.mu.RUnlock()

	var errs []error
	for _, handler := range subscribed {
		if err := invoke(ctx, handler, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Subscribe adds handler for eventType. Subscribing while events are being
// published is safe; the new handler sees the next Publish.
func (d *inMemoryDispatcher) Subscribe(eventType EventType, handler EventHandler) {
	d.mu.Lock()
	d.handlers[eventType] = append(d.handlers[eventType], handler)
	d.mu.Unlock()
}

func invoke(ctx context.Context, handler EventHandler, event Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s handler panicked: %v", event.Type, r)
		}
	}()
	return handler(ctx, event)
}
