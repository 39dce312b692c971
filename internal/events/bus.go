package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/google/uuid"
)

// ErrBusClosed is returned when publishing to a closed bus.
var ErrBusClosed = errors.New("event bus closed")

// Handler processes one event. A returned error causes redelivery.
type Handler func(ctx context.Context, ev Event) error

// Config configures a Bus.
type Config struct {
	Workers       int           // delivery goroutines (default 4)
	MaxDeliveries int           // attempts per handler before dropping (default 3)
	RetryDelay    time.Duration // first redelivery delay, doubled each attempt (default 200ms)
	Logger        *slog.Logger
}

type subKey struct {
	source string
	typ    Type
}

// Stats reports bus load.
type Stats struct {
	Workers       int `json:"workers"`
	Queued        int `json:"queued"`
	Pending       int `json:"pending"`
	Subscriptions int `json:"subscriptions"`
	Delivered     int `json:"delivered"`
	Dropped       int `json:"dropped"`
}

// Bus is an in-process event bus. Publish only enqueues; a pool of workers
// delivers each event to every handler subscribed to its source and type.
// The queue is unbounded so handlers may publish without deadlocking.
type Bus struct {
	logger        *slog.Logger
	workers       int
	maxDeliveries uint
	retryDelay    time.Duration

	mu        sync.Mutex
	cond      *sync.Cond
	queue     []Event
	handlers  map[subKey][]Handler
	pending   int
	idle      chan struct{}
	closed    bool
	stopping  bool
	started   bool
	delivered int
	dropped   int

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// New creates a bus. Call Start to begin delivery.
func New(cfg Config) *Bus {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.MaxDeliveries <= 0 {
		cfg.MaxDeliveries = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 200 * time.Millisecond
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	idle := make(chan struct{})
	close(idle)
	b := &Bus{
		logger:        cfg.Logger.With("component", "events"),
		workers:       cfg.Workers,
		maxDeliveries: uint(cfg.MaxDeliveries),
		retryDelay:    cfg.RetryDelay,
		handlers:      make(map[subKey][]Handler),
		idle:          idle,
	}
	b.cond = sync.NewCond(&b.mu)
	return b
}

// Subscribe registers h for events with the given source and type.
func (b *Bus) Subscribe(source string, typ Type, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	key := subKey{source, typ}
	b.handlers[key] = append(b.handlers[key], h)
}

// Start launches the workers. Handlers run with a context derived from ctx.
func (b *Bus) Start(ctx context.Context) {
	b.mu.Lock()
	if b.started {
		b.mu.Unlock()
		return
	}
	b.started = true
	ctx, b.cancel = context.WithCancel(ctx)
	b.mu.Unlock()

	for i := 0; i < b.workers; i++ {
		b.wg.Add(1)
		go b.worker(ctx)
	}
	go func() {
		<-ctx.Done()
		b.mu.Lock()
		b.stopping = true
		b.cond.Broadcast()
		b.mu.Unlock()
	}()
}

// Publish validates ev and enqueues it. It does not wait for delivery.
func (b *Bus) Publish(ctx context.Context, ev Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := ev.Validate(); err != nil {
		return err
	}
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrBusClosed
	}
	b.queue = append(b.queue, ev)
	if b.pending == 0 {
		b.idle = make(chan struct{})
	}
	b.pending++
	b.cond.Signal()
	return nil
}

// Wait blocks until every published event has been delivered or dropped.
func (b *Bus) Wait(ctx context.Context) error {
	b.mu.Lock()
	idle := b.idle
	b.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting events, waits for queued events to drain, then stops
// the workers. Events published by handlers during the drain are rejected.
func (b *Bus) Close(ctx context.Context) error {
	b.mu.Lock()
	b.closed = true
	started := b.started
	b.mu.Unlock()

	var err error
	if started {
		err = b.Wait(ctx)
		b.cancel()
		b.wg.Wait()
	}
	return err
}

// Stats returns a snapshot of bus counters.
func (b *Bus) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := 0
	for _, hs := range b.handlers {
		subs += len(hs)
	}
	return Stats{
		Workers:       b.workers,
		Queued:        len(b.queue),
		Pending:       b.pending,
		Subscriptions: subs,
		Delivered:     b.delivered,
		Dropped:       b.dropped,
	}
}

func (b *Bus) worker(ctx context.Context) {
	defer b.wg.Done()
	for {
		b.mu.Lock()
		for len(b.queue) == 0 && !b.stopping {
			b.cond.Wait()
		}
		if b.stopping {
			b.mu.Unlock()
			return
		}
		ev := b.queue[0]
		b.queue[0] = Event{}
		b.queue = b.queue[1:]
		handlers := append([]Handler(nil), b.handlers[subKey{ev.Source, ev.Type}]...)
		b.mu.Unlock()

		ok := b.deliver(ctx, ev, handlers)

		b.mu.Lock()
		if ok {
			b.delivered++
		} else {
			b.dropped++
		}
		b.pending--
		if b.pending == 0 {
			close(b.idle)
		}
		b.mu.Unlock()
	}
}

// deliver runs every handler, redelivering on error. It reports whether all
// handlers eventually succeeded.
func (b *Bus) deliver(ctx context.Context, ev Event, handlers []Handler) bool {
	userID, jobID := ev.Subject()
	logger := b.logger.With("event", ev.Type, "event_id", ev.ID, "user_id", userID, "job_id", jobID)
	if len(handlers) == 0 {
		logger.Debug("no subscribers for event")
		return true
	}

	ok := true
	for _, h := range handlers {
		err := retry.Do(
			func() error { return call(ctx, h, ev) },
			retry.Context(ctx),
			retry.Attempts(b.maxDeliveries),
			retry.Delay(b.retryDelay),
			retry.DelayType(retry.BackOffDelay),
			retry.LastErrorOnly(true),
			retry.OnRetry(func(n uint, err error) {
				logger.Warn("redelivering event", "delivery", n+2, "error", err)
			}),
		)
		if err != nil {
			ok = false
			logger.Error("event dropped", "deliveries", b.maxDeliveries, "error", err)
		}
	}
	return ok
}

// call runs h, turning a panic into an error.
func call(ctx context.Context, h Handler, ev Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return h(ctx, ev)
}
