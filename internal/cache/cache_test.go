package cache

import (
	"testing"

	"github.com/OCAP2/underwater/internal/adapter"
	"github.com/OCAP2/underwater/internal/hosttest"
	"github.com/OCAP2/underwater/internal/scheduler"
	"github.com/OCAP2/underwater/pkg/core"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAdapter(t *testing.T, id uint64, occupants int, multiplier float32) *adapter.WaterAdapter {
	t.Helper()
	v := hosttest.NewVehicle(id, "ModularCar")
	v.Occupants = occupants
	a, err := adapter.Attach(adapter.Deps{
		Scheduler: scheduler.New(nil),
		Logger:    zerolog.Nop(),
	}, v, core.KindModularCar, multiplier)
	require.NoError(t, err)
	return a
}

func TestAdapterCache_NewAdapterCache(t *testing.T) {
	c := NewAdapterCache()

	require.NotNil(t, c)
	assert.Equal(t, 0, c.Len())
}

func TestAdapterCache_AddGetRemove(t *testing.T) {
	c := NewAdapterCache()
	a := newTestAdapter(t, 42, 0, 1)

	c.Add(42, a)

	got, ok := c.Get(42)
	require.True(t, ok, "expected to find adapter for vehicle 42")
	assert.Same(t, a, got)
	assert.True(t, c.Has(42))

	removed, ok := c.Remove(42)
	require.True(t, ok)
	assert.Same(t, a, removed)
	assert.False(t, c.Has(42))

	_, ok = c.Remove(42)
	assert.False(t, ok)
}

func TestAdapterCache_Get_NotFound(t *testing.T) {
	c := NewAdapterCache()

	_, ok := c.Get(999)
	assert.False(t, ok)
}

func TestAdapterCache_DrainOrdersByID(t *testing.T) {
	c := NewAdapterCache()
	for _, id := range []uint64{30, 10, 20} {
		c.Add(id, newTestAdapter(t, id, 0, 1))
	}

	drained := c.Drain()

	require.Len(t, drained, 3)
	assert.Equal(t, uint64(10), drained[0].Vehicle().ID())
	assert.Equal(t, uint64(20), drained[1].Vehicle().ID())
	assert.Equal(t, uint64(30), drained[2].Vehicle().ID())
	assert.Equal(t, 0, c.Len())
}

func TestAdapterCache_CountActive(t *testing.T) {
	c := NewAdapterCache()
	c.Add(1, newTestAdapter(t, 1, 1, 0.5))
	c.Add(2, newTestAdapter(t, 2, 0, 0.5))
	c.Add(3, newTestAdapter(t, 3, 1, 1))

	assert.Equal(t, 1, c.CountActive())
}

func TestAdapterCache_CountByKind(t *testing.T) {
	c := NewAdapterCache()
	c.Add(1, newTestAdapter(t, 1, 0, 1))
	c.Add(2, newTestAdapter(t, 2, 0, 2))

	heli := hosttest.NewHelicopter(3, "Minicopter")
	a, err := adapter.Attach(adapter.Deps{Scheduler: scheduler.New(nil), Logger: zerolog.Nop()}, heli, core.KindMinicopter, 1)
	require.NoError(t, err)
	c.Add(3, a)

	assert.Equal(t, map[string]int{"ModularCar": 2, "Minicopter": 1}, c.CountByKind())
}
