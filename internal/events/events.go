// Package events delivers payment domain events to asynchronous consumers.
package events

import (
	"context"
	"errors"

	"github.com/polkiloo/gophercheckout/internal/domain/model"
)

// ErrBusStopped is returned when publishing after shutdown.
var ErrBusStopped = errors.New("event bus stopped")

// ErrBusFull is returned when the queue has no room for another event.
var ErrBusFull = errors.New("event bus queue full")

// Publisher accepts events for asynchronous delivery.
type Publisher interface {
	Publish(ctx context.Context, evt model.PaymentEvent) error
}

// Handler consumes a single event.
type Handler func(ctx context.Context, evt model.PaymentEvent) error

// AllEvents subscribes a handler to every event type.
const AllEvents model.EventType = "*"
