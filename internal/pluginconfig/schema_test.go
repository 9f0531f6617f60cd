package pluginconfig

import (
	"testing"

	"github.com/OCAP2/underwater/pkg/core"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultTree_Shape(t *testing.T) {
	tree := DefaultTree()

	require.Len(t, tree, len(core.AllKinds))
	for _, kind := range core.AllKinds {
		entry, ok := tree[kind.String()].(Tree)
		require.True(t, ok, kind.String())
		assert.Equal(t, false, entry["Enabled"])
		assert.Equal(t, 1.0, entry["DragMultiplier"])
	}
}

func TestDecode_WeakScalars(t *testing.T) {
	tree := DefaultTree()
	tree["Minicopter"] = Tree{"Enabled": "true", "DragMultiplier": "0.75"}

	cfg, err := Decode(tree)
	require.NoError(t, err)

	assert.True(t, cfg.Minicopter.Enabled)
	assert.InDelta(t, 0.75, cfg.Minicopter.DragMultiplier, 1e-6)
}

func TestDecode_BadScalar(t *testing.T) {
	tree := DefaultTree()
	tree["ModularCar"] = Tree{"Enabled": true, "DragMultiplier": "fast"}

	_, err := Decode(tree)
	assert.Error(t, err)
}

func TestConfiguration_For(t *testing.T) {
	cfg := DefaultConfiguration()
	cfg.ScrapTransportHelicopter = VehicleSettings{Enabled: true, DragMultiplier: 3}

	assert.Equal(t, core.VehicleConfig{Enabled: true, DragMultiplier: 3}, cfg.For(core.KindScrapHelicopter))
	assert.Equal(t, core.DefaultVehicleConfig(), cfg.For(core.KindModularCar))
	assert.Equal(t, core.DefaultVehicleConfig(), cfg.For(core.KindUnknown))
}

func TestConfiguration_AnyDragOverride(t *testing.T) {
	cfg := DefaultConfiguration()
	assert.False(t, cfg.AnyDragOverride())

	// override on a disabled kind does not count
	cfg.ModularCar.DragMultiplier = 0.5
	assert.False(t, cfg.AnyDragOverride())

	cfg.ModularCar.Enabled = true
	assert.True(t, cfg.AnyDragOverride())
}

func TestConfiguration_Sanitize(t *testing.T) {
	cfg := DefaultConfiguration()
	cfg.ModularCar.DragMultiplier = 0
	cfg.Snowmobile.DragMultiplier = -2
	cfg.Minicopter.DragMultiplier = 0.3

	cfg.sanitize(zerolog.Nop())

	assert.Equal(t, float32(1), cfg.ModularCar.DragMultiplier)
	assert.Equal(t, float32(1), cfg.Snowmobile.DragMultiplier)
	assert.InDelta(t, 0.3, cfg.Minicopter.DragMultiplier, 1e-6)
}
