// pkg/core/vehicle.go
package core

import "strings"

// VehicleKind is the closed set of host vehicle types the extension can patch.
// It is resolved once when a vehicle spawns and carried by its adapter afterwards.
type VehicleKind int

const (
	KindUnknown VehicleKind = iota
	KindModularCar
	KindSnowmobile
	KindTomahaSnowmobile
	KindMinicopter
	KindScrapHelicopter
)

// AllKinds lists every supported kind in config order.
var AllKinds = []VehicleKind{
	KindModularCar,
	KindSnowmobile,
	KindTomahaSnowmobile,
	KindMinicopter,
	KindScrapHelicopter,
}

// String returns the config key name of the kind.
func (k VehicleKind) String() string {
	switch k {
	case KindModularCar:
		return "ModularCar"
	case KindSnowmobile:
		return "Snowmobile"
	case KindTomahaSnowmobile:
		return "TomahaSnowmobile"
	case KindMinicopter:
		return "Minicopter"
	case KindScrapHelicopter:
		return "ScrapTransportHelicopter"
	default:
		return "Unknown"
	}
}

// Rotor reports whether the kind samples water through its rotor assembly
// rather than the ground vehicle sample point.
func (k VehicleKind) Rotor() bool {
	return k == KindMinicopter || k == KindScrapHelicopter
}

// ParseVehicleKind maps a config key name back to its kind.
func ParseVehicleKind(name string) (VehicleKind, bool) {
	for _, k := range AllKinds {
		if k.String() == name {
			return k, true
		}
	}
	return KindUnknown, false
}

// KindFromTypeName resolves the host's concrete entity type name.
// ScrapTransportHelicopter derives from MiniCopter in the host, so it is
// matched first.
func KindFromTypeName(typeName string) VehicleKind {
	switch strings.ToLower(typeName) {
	case "scraptransporthelicopter":
		return KindScrapHelicopter
	case "minicopter":
		return KindMinicopter
	case "modularcar":
		return KindModularCar
	case "tomahasnowmobile":
		return KindTomahaSnowmobile
	case "snowmobile":
		return KindSnowmobile
	default:
		return KindUnknown
	}
}

// VehicleConfig holds the per-kind toggles.
type VehicleConfig struct {
	Enabled        bool
	DragMultiplier float32
}

// DefaultVehicleConfig is disabled with no drag override.
func DefaultVehicleConfig() VehicleConfig {
	return VehicleConfig{Enabled: false, DragMultiplier: 1.0}
}

// HasDragOverride is false for a multiplier of exactly 1, which disables the
// correction task entirely.
func (c VehicleConfig) HasDragOverride() bool {
	return c.DragMultiplier != 1.0
}

// Vector3 is a position in host engine space.
type Vector3 struct {
	X float32
	Y float32
	Z float32
}
