package cache

import (
	"sort"

	"github.com/OCAP2/underwater/internal/adapter"
)

// AdapterCache tracks the water adapter of every patched vehicle by host entity ID.
// It is owned by the host tick and is not safe for concurrent use.
type AdapterCache struct {
	adapters map[uint64]*adapter.WaterAdapter
}

func NewAdapterCache() *AdapterCache {
	return &AdapterCache{
		adapters: make(map[uint64]*adapter.WaterAdapter),
	}
}

func (c *AdapterCache) Get(id uint64) (*adapter.WaterAdapter, bool) {
	a, ok := c.adapters[id]
	return a, ok
}

func (c *AdapterCache) Has(id uint64) bool {
	_, ok := c.adapters[id]
	return ok
}

func (c *AdapterCache) Add(id uint64, a *adapter.WaterAdapter) {
	c.adapters[id] = a
}

// Remove deletes and returns the adapter for id.
func (c *AdapterCache) Remove(id uint64) (*adapter.WaterAdapter, bool) {
	a, ok := c.adapters[id]
	if ok {
		delete(c.adapters, id)
	}
	return a, ok
}

func (c *AdapterCache) Len() int {
	return len(c.adapters)
}

// Drain empties the cache and returns its adapters ordered by vehicle ID.
func (c *AdapterCache) Drain() []*adapter.WaterAdapter {
	ids := make([]uint64, 0, len(c.adapters))
	for id := range c.adapters {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := make([]*adapter.WaterAdapter, 0, len(ids))
	for _, id := range ids {
		out = append(out, c.adapters[id])
	}
	c.adapters = make(map[uint64]*adapter.WaterAdapter)
	return out
}

// CountActive returns how many cached adapters are running drag correction.
func (c *AdapterCache) CountActive() int {
	n := 0
	for _, a := range c.adapters {
		if a.CorrectionActive() {
			n++
		}
	}
	return n
}

// CountByKind returns how many cached adapters exist per vehicle kind name.
func (c *AdapterCache) CountByKind() map[string]int {
	out := make(map[string]int)
	for _, a := range c.adapters {
		out[a.Kind().String()]++
	}
	return out
}
