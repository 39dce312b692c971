package defra

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Record is one document queued for creation.
type Record struct {
	Collection string
	Document   map[string]any
}

// SinkConfig configures the write sink.
type SinkConfig struct {
	Client        *Client
	BatchSize     int           // flush after N records (default 50)
	FlushInterval time.Duration // or after this long (default 2s)
	QueueSize     int           // default 1000
	Logger        *slog.Logger
}

// Sink batches document creates into grouped create mutations. Writes are
// fire-and-forget: failures are logged, never returned to the sender.
type Sink struct {
	client        *Client
	logger        *slog.Logger
	batchSize     int
	flushInterval time.Duration

	queue   chan Record
	flushCh chan chan struct{}

	mu      sync.RWMutex
	closed  bool
	wg      sync.WaitGroup
	stopped sync.Once
}

// NewSink creates a sink. Call Start before sending.
func NewSink(cfg SinkConfig) *Sink {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 2 * time.Second
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1000
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Sink{
		client:        cfg.Client,
		logger:        cfg.Logger,
		batchSize:     cfg.BatchSize,
		flushInterval: cfg.FlushInterval,
		queue:         make(chan Record, cfg.QueueSize),
		flushCh:       make(chan chan struct{}),
	}
}

// Start launches the batching goroutine. Writes use ctx.
func (s *Sink) Start(ctx context.Context) {
	s.wg.Add(1)
	go s.run(ctx)
}

// Send queues a record. A full queue drops the record with a warning; a
// stopped sink returns ErrSinkClosed.
func (s *Sink) Send(rec Record) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrSinkClosed
	}
	select {
	case s.queue <- rec:
	default:
		s.logger.Warn("sink queue full, dropping record", "collection", rec.Collection)
	}
	return nil
}

// Flush writes everything queued so far and returns when done.
func (s *Sink) Flush(ctx context.Context) error {
	done := make(chan struct{})
	select {
	case s.flushCh <- done:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop rejects new records, flushes the queue and waits for the writer.
func (s *Sink) Stop() {
	s.stopped.Do(func() {
		s.mu.Lock()
		s.closed = true
		close(s.queue)
		s.mu.Unlock()
		s.wg.Wait()
	})
}

func (s *Sink) run(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.flushInterval)
	defer ticker.Stop()

	batch := make([]Record, 0, s.batchSize)
	flush := func() {
		if len(batch) > 0 {
			s.write(ctx, batch)
			batch = make([]Record, 0, s.batchSize)
		}
	}

	for {
		select {
		case rec, ok := <-s.queue:
			if !ok {
				flush()
				return
			}
			batch = append(batch, rec)
			if len(batch) >= s.batchSize {
				flush()
			}
		case done := <-s.flushCh:
			// Drain what is already queued so Flush covers prior Sends.
			for drained := false; !drained; {
				select {
				case rec, ok := <-s.queue:
					if !ok {
						drained = true
						break
					}
					batch = append(batch, rec)
				default:
					drained = true
				}
			}
			flush()
			close(done)
		case <-ticker.C:
			flush()
		}
	}
}

// write groups records by collection, one mutation per collection.
func (s *Sink) write(ctx context.Context, batch []Record) {
	groups := make(map[string][]map[string]any)
	var order []string
	for _, rec := range batch {
		if _, ok := groups[rec.Collection]; !ok {
			order = append(order, rec.Collection)
		}
		groups[rec.Collection] = append(groups[rec.Collection], rec.Document)
	}

	for _, collection := range order {
		docs := groups[collection]
		if _, err := s.client.CreateMany(ctx, collection, docs); err != nil {
			s.logger.Error("sink write failed", "collection", collection, "count", len(docs), "error", err)
			continue
		}
		s.logger.Debug("sink flushed", "collection", collection, "count", len(docs))
	}
}
