package handlers

import "sync/atomic"

// Counters mirrors the adapter cache size for readers off the host thread,
// such as log hooks running on background goroutines.
type Counters struct {
	attached atomic.Int64
	active   atomic.Int64
}

// Attached returns the number of attached adapters at the last host event.
func (c *Counters) Attached() int { return int(c.attached.Load()) }

// Active returns the number of adapters running drag correction at the last
// host event.
func (c *Counters) Active() int { return int(c.active.Load()) }

func (c *Counters) store(attached, active int) {
	c.attached.Store(int64(attached))
	c.active.Store(int64(active))
}
