package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindFromTypeName(t *testing.T) {
	tests := []struct {
		typeName string
		want     VehicleKind
	}{
		{"ModularCar", KindModularCar},
		{"Snowmobile", KindSnowmobile},
		{"TomahaSnowmobile", KindTomahaSnowmobile},
		{"MiniCopter", KindMinicopter},
		{"ScrapTransportHelicopter", KindScrapHelicopter},
		{"MotorRowboat", KindUnknown},
		{"", KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.typeName, func(t *testing.T) {
			assert.Equal(t, tt.want, KindFromTypeName(tt.typeName))
		})
	}
}

func TestParseVehicleKind_RoundTrip(t *testing.T) {
	for _, k := range AllKinds {
		got, ok := ParseVehicleKind(k.String())
		assert.True(t, ok, k.String())
		assert.Equal(t, k, got)
	}

	_, ok := ParseVehicleKind("Unknown")
	assert.False(t, ok)
}

func TestVehicleKind_Rotor(t *testing.T) {
	assert.True(t, KindMinicopter.Rotor())
	assert.True(t, KindScrapHelicopter.Rotor())
	assert.False(t, KindModularCar.Rotor())
	assert.False(t, KindSnowmobile.Rotor())
	assert.False(t, KindTomahaSnowmobile.Rotor())
}

func TestVehicleConfig_HasDragOverride(t *testing.T) {
	assert.False(t, DefaultVehicleConfig().HasDragOverride())
	assert.True(t, VehicleConfig{DragMultiplier: 0.5}.HasDragOverride())
	assert.True(t, VehicleConfig{DragMultiplier: 2}.HasDragOverride())
}
