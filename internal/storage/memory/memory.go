// Package memory keeps the most recent lifecycle events in process memory.
package memory

import (
	"sync"

	"github.com/OCAP2/underwater/pkg/core"
)

// DefaultCapacity bounds the journal so a long server uptime cannot grow it
// without limit.
const DefaultCapacity = 10000

// Backend stores lifecycle events in a fixed-size ring
type Backend struct {
	capacity int
	events   []core.LifecycleEvent
	next     int
	full     bool
	mu       sync.RWMutex
}

// New creates a new memory backend holding at most capacity events.
func New(capacity int) *Backend {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Backend{
		capacity: capacity,
		events:   make([]core.LifecycleEvent, 0, capacity),
	}
}

// Init initializes the backend
func (b *Backend) Init() error {
	return nil
}

// Close drops every stored event
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.events = b.events[:0]
	b.next = 0
	b.full = false
	return nil
}

// RecordLifecycleEvent stores a copy of e, evicting the oldest event when full.
func (b *Backend) RecordLifecycleEvent(e *core.LifecycleEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	ev := *e
	if e.Details != nil {
		ev.Details = make(map[string]any, len(e.Details))
		for k, v := range e.Details {
			ev.Details[k] = v
		}
	}

	if !b.full {
		b.events = append(b.events, ev)
		if len(b.events) == b.capacity {
			b.full = true
		}
		return nil
	}

	b.events[b.next] = ev
	b.next = (b.next + 1) % b.capacity
	return nil
}

// LifecycleEvents returns matching events, newest first.
func (b *Backend) LifecycleEvents(vehicleID uint64, limit int) ([]core.LifecycleEvent, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	n := len(b.events)
	var out []core.LifecycleEvent
	for i := 0; i < n; i++ {
		// walk backwards from the newest slot
		idx := (b.next - 1 - i + n) % n
		if !b.full {
			idx = n - 1 - i
		}
		e := b.events[idx]
		if vehicleID != 0 && e.VehicleID != vehicleID {
			continue
		}
		out = append(out, e)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// Len returns the number of stored events
func (b *Backend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.events)
}
