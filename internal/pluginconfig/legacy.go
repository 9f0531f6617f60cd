package pluginconfig

import "github.com/OCAP2/underwater/pkg/core"

// Deprecated top-level keys.
const (
	legacyAllowedVehicles    = "AllowedVehicles"
	legacyModularCarSettings = "ModularCarSettings"
	legacyUnderwaterDrag     = "UnderwaterDragMultiplier"
)

// TranslateLegacy moves deprecated fields into the current schema and removes
// them so they are never written back. It reports whether anything was found.
func TranslateLegacy(stored Tree) bool {
	changed := false

	if raw, ok := stored[legacyAllowedVehicles]; ok {
		if allowed, ok := raw.(Tree); ok {
			for name, v := range allowed {
				kind, ok := core.ParseVehicleKind(name)
				if !ok {
					continue
				}
				if enabled, ok := v.(bool); ok {
					kindTree(stored, kind)["Enabled"] = enabled
				}
			}
		}
		delete(stored, legacyAllowedVehicles)
		changed = true
	}

	if raw, ok := stored[legacyModularCarSettings]; ok {
		if settings, ok := raw.(Tree); ok {
			if v, ok := settings[legacyUnderwaterDrag]; ok {
				if _, numeric := v.(float64); numeric {
					kindTree(stored, core.KindModularCar)["DragMultiplier"] = v
				}
			}
		}
		delete(stored, legacyModularCarSettings)
		changed = true
	}

	return changed
}

func kindTree(stored Tree, kind core.VehicleKind) Tree {
	if t, ok := stored[kind.String()].(Tree); ok {
		return t
	}
	t := Tree{}
	stored[kind.String()] = t
	return t
}
