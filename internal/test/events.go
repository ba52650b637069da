package test

import (
	"context"
	"sync"

	"github.com/polkiloo/gophercheckout/internal/domain/model"
	"github.com/polkiloo/gophercheckout/internal/events"
)

// EventRecorder records published events and hands them to subscribers
// synchronously, in publish order.
type EventRecorder struct {
	Err error

	mu       sync.Mutex
	events   []model.PaymentEvent
	handlers []events.Handler
}

// Subscribe registers a handler invoked on every publish.
func (r *EventRecorder) Subscribe(h events.Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers = append(r.handlers, h)
}

// Publish records the event and runs the subscribers. Handler errors are ignored.
func (r *EventRecorder) Publish(ctx context.Context, evt model.PaymentEvent) error {
	r.mu.Lock()
	r.events = append(r.events, evt)
	handlers := append([]events.Handler(nil), r.handlers...)
	r.mu.Unlock()

	for _, h := range handlers {
		_ = h(ctx, evt)
	}
	return r.Err
}

// Events returns a copy of the recorded events.
func (r *EventRecorder) Events() []model.PaymentEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.PaymentEvent(nil), r.events...)
}

// Types returns the recorded event types in publish order.
func (r *EventRecorder) Types() []model.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	types := make([]model.EventType, len(r.events))
	for i, evt := range r.events {
		types[i] = evt.Type
	}
	return types
}

var _ events.Publisher = (*EventRecorder)(nil)
