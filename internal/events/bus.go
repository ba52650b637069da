package events

import (
	"context"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/polkiloo/gophercheckout/internal/domain/model"
)

const (
	defaultQueueSize   = 1024
	defaultConcurrency = 8
	handlerTimeout     = 30 * time.Second
)

// Bus is an in-process queue that fans events out to subscribers on a
// dispatch goroutine. It is not durable.
type Bus struct {
	mu      sync.RWMutex
	subs    map[model.EventType][]Handler
	stopped bool

	queue       chan model.PaymentEvent
	concurrency int
	startOnce   sync.Once
	stopOnce    sync.Once
	cancel      context.CancelFunc
	done        chan struct{}

	logger *slog.Logger
}

var _ Publisher = (*Bus)(nil)

// NewBus creates a bus with a buffered queue.
func NewBus(logger *slog.Logger) *Bus {
	return &Bus{
		subs:        make(map[model.EventType][]Handler),
		queue:       make(chan model.PaymentEvent, defaultQueueSize),
		concurrency: defaultConcurrency,
		done:        make(chan struct{}),
		logger:      logger.With(slog.String("component", "event_bus")),
	}
}

// Subscribe registers h for the event type, or for every type with AllEvents.
func (b *Bus) Subscribe(eventType model.EventType, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[eventType] = append(b.subs[eventType], h)
}

// Start launches the dispatch loop once.
func (b *Bus) Start(ctx context.Context) {
	b.startOnce.Do(func() {
		loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		b.cancel = cancel
		go b.dispatchLoop(loopCtx)
		b.logger.Info("event bus started")
	})
}

// Stop rejects new events, delivers the queued ones and waits for the loop
// until ctx expires.
func (b *Bus) Stop(ctx context.Context) error {
	var err error
	b.stopOnce.Do(func() {
		b.mu.Lock()
		b.stopped = true
		b.mu.Unlock()

		if b.cancel == nil {
			return
		}
		b.cancel()
		select {
		case <-b.done:
		case <-ctx.Done():
			err = ctx.Err()
		}
		b.logger.Info("event bus stopped")
	})
	return err
}

// Publish enqueues the event without waiting for queue space. A full queue
// drops the event and returns ErrBusFull.
func (b *Bus) Publish(ctx context.Context, evt model.PaymentEvent) error {
	if err := ctx.Err(); err != nil {
		b.logger.Warn("event enqueue aborted", slog.String("event", string(evt.Type)), slog.String("error", err.Error()))
		return err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.stopped {
		return ErrBusStopped
	}

	select {
	case b.queue <- evt:
		b.logger.Debug("event enqueued", slog.String("event", string(evt.Type)), slog.Int64("payment_id", evt.PaymentID))
		return nil
	default:
		b.logger.Error("event queue full, event dropped",
			slog.String("event", string(evt.Type)),
			slog.Int64("payment_id", evt.PaymentID),
			slog.Int("capacity", cap(b.queue)),
		)
		return ErrBusFull
	}
}

func (b *Bus) dispatchLoop(ctx context.Context) {
	defer close(b.done)
	for {
		select {
		case <-ctx.Done():
			b.drain()
			return
		case evt := <-b.queue:
			b.fanout(ctx, evt)
		}
	}
}

func (b *Bus) drain() {
	for {
		select {
		case evt := <-b.queue:
			b.fanout(context.Background(), evt)
		default:
			return
		}
	}
}

func (b *Bus) handlers(eventType model.EventType) []Handler {
	b.mu.RLock()
	defer b.mu.RUnlock()
	handlers := append([]Handler(nil), b.subs[eventType]...)
	return append(handlers, b.subs[AllEvents]...)
}

func (b *Bus) fanout(ctx context.Context, evt model.PaymentEvent) {
	handlers := b.handlers(evt.Type)
	logger := b.logger.With(slog.String("event", string(evt.Type)), slog.Int64("payment_id", evt.PaymentID))
	if len(handlers) == 0 {
		logger.Debug("event dropped without subscribers")
		return
	}

	ctx = context.WithoutCancel(ctx)
	sem := make(chan struct{}, b.concurrency)
	var wg sync.WaitGroup

	for _, h := range handlers {
		sem <- struct{}{}
		wg.Add(1)
		go func(h Handler) {
			defer func() {
				if r := recover(); r != nil {
					logger.Error("event handler panic", slog.Any("panic", r), slog.String("stack", string(debug.Stack())))
				}
				<-sem
				wg.Done()
			}()

			hctx, cancel := context.WithTimeout(ctx, handlerTimeout)
			defer cancel()
			if err := h(hctx, evt); err != nil {
				logger.Warn("event handler failed", slog.String("error", err.Error()))
			}
		}(h)
	}
	wg.Wait()
}
