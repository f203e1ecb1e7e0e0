// Package eventbus delivers authorization events to in-process handlers
// through a buffered channel drained by a fixed worker pool.
package eventbus

import (
	"context"
	"errors"
	"sync"
	"time"

	"nfc-wallet/internal/core/domain"
	"nfc-wallet/internal/core/ports"

	"github.com/rs/zerolog"
)

// ErrClosed is returned by Publish once Close has been called.
var ErrClosed = errors.New("event bus closed")

// Options sizes the bus.
type Options struct {
	Buffer     int
	MaxRetries int
	RetryDelay time.Duration
}

// HandlerFunc adapts a function to ports.AuthorizationEventHandler.
type HandlerFunc func(ctx context.Context, event domain.AuthorizationEvent) error

// Handle calls f.
func (f HandlerFunc) Handle(ctx context.Context, event domain.AuthorizationEvent) error {
	return f(ctx, event)
}

// Bus implements ports.EventPublisher.
type Bus struct {
	opts     Options
	events   chan domain.AuthorizationEvent
	log      zerolog.Logger
	mu       sync.RWMutex
	closed   bool
	done     chan struct{}
	senders  sync.WaitGroup
	handlers []ports.AuthorizationEventHandler
	wg       sync.WaitGroup
}

// New creates a Bus. Handlers are attached with Subscribe and run once
// Start is called.
func New(opts Options, log zerolog.Logger) *Bus {
	if opts.Buffer < 1 {
		opts.Buffer = 1
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	return &Bus{
		opts:   opts,
		events: make(chan domain.AuthorizationEvent, opts.Buffer),
		done:   make(chan struct{}),
		log:    log,
	}
}

// Subscribe attaches a handler. Every event goes to every handler.
func (b *Bus) Subscribe(h ports.AuthorizationEventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, h)
}

// Publish enqueues an event. It blocks while the buffer is full, until
// ctx is done or the bus is closed. The lock is not held while blocked.
func (b *Bus) Publish(ctx context.Context, event domain.AuthorizationEvent) error {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return ErrClosed
	}
	b.senders.Add(1)
	b.mu.RUnlock()
	defer b.senders.Done()

	select {
	case b.events <- event:
		return nil
	case <-b.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Start launches the workers. ctx bounds retry waits and is passed to
// handlers.
func (b *Bus) Start(ctx context.Context, workers int) {
	if workers < 1 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		b.wg.Add(1)
		go func() {
			defer b.wg.Done()
			for event := range b.events {
				b.dispatch(ctx, event)
			}
		}()
	}
}

// Close stops accepting events, releases blocked publishers and waits
// until the workers have drained the buffer or ctx is done.
func (b *Bus) Close(ctx context.Context) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	close(b.done)
	b.mu.Unlock()

	// In-flight publishers return promptly once done is closed; the events
	// channel is closed only after them.
	b.senders.Wait()
	close(b.events)

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *Bus) dispatch(ctx context.Context, event domain.AuthorizationEvent) {
	b.mu.RLock()
	handlers := b.handlers
	b.mu.RUnlock()

	for _, h := range handlers {
		b.deliverWithRetries(ctx, h, event)
	}
}

// deliverWithRetries calls h until it succeeds, doubling the delay between
// attempts.
func (b *Bus) deliverWithRetries(ctx context.Context, h ports.AuthorizationEventHandler, event domain.AuthorizationEvent) {
	delay := b.opts.RetryDelay
	for attempt := 0; attempt <= b.opts.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(delay):
				delay *= 2
			case <-ctx.Done():
				b.log.Error().
					Err(ctx.Err()).
					Str("event_id", event.ID.String()).
					Str("transaction_id", event.Result.TransactionID).
					Msg("event delivery abandoned")
				return
			}
		}

		err := h.Handle(ctx, event)
		if err == nil {
			return
		}
		b.log.Warn().
			Err(err).
			Str("event_id", event.ID.String()).
			Str("type", string(event.Type)).
			Int("attempt", attempt+1).
			Msg("event handler failed")
	}

	b.log.Error().
		Str("event_id", event.ID.String()).
		Str("transaction_id", event.Result.TransactionID).
		Msg("event delivery retries exhausted")
}
