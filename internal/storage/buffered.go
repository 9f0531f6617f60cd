package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	uwotel "github.com/OCAP2/underwater/internal/otel"
	"github.com/OCAP2/underwater/pkg/core"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/metric"
)

// DefaultQueueSize is how many lifecycle events may wait for the writer.
const DefaultQueueSize = 1024

var (
	// ErrQueueFull is returned when the writer is behind; the event is dropped.
	ErrQueueFull = errors.New("journal queue full")
	// ErrClosed is returned when recording after Close.
	ErrClosed = errors.New("journal closed")
)

// Buffered hands lifecycle events to a single writer goroutine so database
// inserts never run on the host tick. Reads go straight to the wrapped backend.
type Buffered struct {
	inner Backend
	log   zerolog.Logger

	mu     sync.RWMutex
	queue  chan core.LifecycleEvent
	closed bool
	done   chan struct{}

	closeOnce sync.Once
	closeErr  error

	dropped  atomic.Int64
	written  metric.Int64Counter
	failed   metric.Int64Counter
	overflow metric.Int64Counter
	gauge    metric.Registration
}

// NewBuffered starts the writer for an initialized backend. A size of zero or
// less uses DefaultQueueSize.
func NewBuffered(inner Backend, size int, logger zerolog.Logger) (*Buffered, error) {
	if size <= 0 {
		size = DefaultQueueSize
	}

	b := &Buffered{
		inner: inner,
		log:   logger.With().Str("component", "journal").Logger(),
		queue: make(chan core.LifecycleEvent, size),
		done:  make(chan struct{}),
	}

	m := uwotel.Meter("storage")

	var err error

	b.written, err = m.Int64Counter(
		"journal.events.written",
		metric.WithDescription("Lifecycle events stored by the journal writer"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating written counter: %w", err)
	}

	b.failed, err = m.Int64Counter(
		"journal.events.failed",
		metric.WithDescription("Lifecycle events the backend refused"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating failed counter: %w", err)
	}

	b.overflow, err = m.Int64Counter(
		"journal.events.dropped",
		metric.WithDescription("Lifecycle events dropped because the queue was full"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating dropped counter: %w", err)
	}

	queueSize, err := m.Int64ObservableGauge(
		"journal.queue.size",
		metric.WithDescription("Lifecycle events waiting for the writer"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating queue gauge: %w", err)
	}
	b.gauge, err = m.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		o.ObserveInt64(queueSize, int64(len(b.queue)))
		return nil
	}, queueSize)
	if err != nil {
		return nil, fmt.Errorf("registering queue gauge: %w", err)
	}

	go b.run()
	return b, nil
}

func (b *Buffered) run() {
	defer close(b.done)

	for e := range b.queue {
		if err := b.inner.RecordLifecycleEvent(&e); err != nil {
			b.failed.Add(context.Background(), 1)
			b.log.Warn().Err(err).Uint64("vehicle", e.VehicleID).Str("event", string(e.Type)).Msg("Journal write failed")
			continue
		}
		b.written.Add(context.Background(), 1)
	}
}

// Init is a no-op; the wrapped backend is initialized before the writer starts.
func (b *Buffered) Init() error { return nil }

// RecordLifecycleEvent queues a copy of e without waiting for the backend.
func (b *Buffered) RecordLifecycleEvent(e *core.LifecycleEvent) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return ErrClosed
	}

	select {
	case b.queue <- *e:
		return nil
	default:
		b.dropped.Add(1)
		b.overflow.Add(context.Background(), 1)
		return ErrQueueFull
	}
}

// LifecycleEvents reads from the wrapped backend. Events still queued are not
// visible yet.
func (b *Buffered) LifecycleEvents(vehicleID uint64, limit int) ([]core.LifecycleEvent, error) {
	return b.inner.LifecycleEvents(vehicleID, limit)
}

// Dropped returns how many events were refused because the queue was full.
func (b *Buffered) Dropped() int64 {
	return b.dropped.Load()
}

// Pending returns how many events are waiting for the writer.
func (b *Buffered) Pending() int {
	return len(b.queue)
}

// Close stops accepting events, waits for the queue to drain, then closes the
// wrapped backend.
func (b *Buffered) Close() error {
	b.closeOnce.Do(func() {
		b.mu.Lock()
		b.closed = true
		close(b.queue)
		b.mu.Unlock()

		<-b.done
		if b.gauge != nil {
			_ = b.gauge.Unregister()
		}
		b.closeErr = b.inner.Close()
	})
	return b.closeErr
}
