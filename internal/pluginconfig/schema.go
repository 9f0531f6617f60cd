package pluginconfig

import (
	"encoding/json"
	"fmt"

	"github.com/OCAP2/underwater/pkg/core"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/rs/zerolog"
)

// VehicleSettings is the stored shape of one vehicle kind.
type VehicleSettings struct {
	Enabled        bool    `json:"Enabled" mapstructure:"Enabled"`
	DragMultiplier float32 `json:"DragMultiplier" mapstructure:"DragMultiplier" validate:"gt=0"`
}

// Configuration is the current schema, keyed by vehicle kind name.
type Configuration struct {
	ModularCar               VehicleSettings `json:"ModularCar" mapstructure:"ModularCar"`
	Snowmobile               VehicleSettings `json:"Snowmobile" mapstructure:"Snowmobile"`
	TomahaSnowmobile         VehicleSettings `json:"TomahaSnowmobile" mapstructure:"TomahaSnowmobile"`
	Minicopter               VehicleSettings `json:"Minicopter" mapstructure:"Minicopter"`
	ScrapTransportHelicopter VehicleSettings `json:"ScrapTransportHelicopter" mapstructure:"ScrapTransportHelicopter"`
}

var validate = validator.New()

func defaultSettings() VehicleSettings {
	d := core.DefaultVehicleConfig()
	return VehicleSettings{Enabled: d.Enabled, DragMultiplier: d.DragMultiplier}
}

// DefaultConfiguration has every kind disabled with no drag override.
func DefaultConfiguration() Configuration {
	return Configuration{
		ModularCar:               defaultSettings(),
		Snowmobile:               defaultSettings(),
		TomahaSnowmobile:         defaultSettings(),
		Minicopter:               defaultSettings(),
		ScrapTransportHelicopter: defaultSettings(),
	}
}

// DefaultTree is DefaultConfiguration in its stored form.
func DefaultTree() Tree {
	tree, err := ToTree(DefaultConfiguration())
	if err != nil {
		// plain structs of bools and floats always encode
		panic(err)
	}
	return tree
}

// ToTree converts a configuration into its stored form.
func ToTree(cfg Configuration) (Tree, error) {
	b, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("encoding configuration: %w", err)
	}
	var tree Tree
	if err := json.Unmarshal(b, &tree); err != nil {
		return nil, fmt.Errorf("decoding configuration tree: %w", err)
	}
	return tree, nil
}

// Decode reads a reconciled tree into the schema. Scalars are converted
// weakly, so "true" and 1 both decode as booleans.
func Decode(tree Tree) (Configuration, error) {
	cfg := DefaultConfiguration()

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &cfg,
		TagName:          "mapstructure",
	})
	if err != nil {
		return Configuration{}, fmt.Errorf("creating decoder: %w", err)
	}
	if err := dec.Decode(tree); err != nil {
		return Configuration{}, fmt.Errorf("decoding configuration: %w", err)
	}
	return cfg, nil
}

func (c *Configuration) settings(kind core.VehicleKind) *VehicleSettings {
	switch kind {
	case core.KindModularCar:
		return &c.ModularCar
	case core.KindSnowmobile:
		return &c.Snowmobile
	case core.KindTomahaSnowmobile:
		return &c.TomahaSnowmobile
	case core.KindMinicopter:
		return &c.Minicopter
	case core.KindScrapHelicopter:
		return &c.ScrapTransportHelicopter
	default:
		return nil
	}
}

// For returns the settings of kind. Unknown kinds are disabled.
func (c Configuration) For(kind core.VehicleKind) core.VehicleConfig {
	s := c.settings(kind)
	if s == nil {
		return core.DefaultVehicleConfig()
	}
	return core.VehicleConfig{Enabled: s.Enabled, DragMultiplier: s.DragMultiplier}
}

// AnyDragOverride reports whether any enabled kind needs mount notifications.
func (c Configuration) AnyDragOverride() bool {
	for _, kind := range core.AllKinds {
		vc := c.For(kind)
		if vc.Enabled && vc.HasDragOverride() {
			return true
		}
	}
	return false
}

// sanitize resets multipliers that fail validation to 1.
func (c *Configuration) sanitize(logger zerolog.Logger) {
	for _, kind := range core.AllKinds {
		s := c.settings(kind)
		if err := validate.Struct(s); err != nil {
			logger.Warn().
				Str("kind", kind.String()).
				Float32("dragMultiplier", s.DragMultiplier).
				Msg("DragMultiplier must be greater than 0; using 1.0")
			s.DragMultiplier = 1.0
		}
	}
}
