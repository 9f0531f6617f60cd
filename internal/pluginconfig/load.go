package pluginconfig

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"
)

// Load produces the effective configuration from store. The returned
// configuration is always usable: when stored data cannot be used, defaults
// are returned together with an error wrapping ErrConfigCorrupt. Outdated
// data is upgraded and written back; a corrupt file is never overwritten.
func Load(store Store, logger zerolog.Logger) (Configuration, error) {
	stored, err := store.Read()
	if errors.Is(err, ErrNoConfig) {
		logger.Info().Msg("Configuration not found; writing defaults")
		save(store, DefaultTree(), logger)
		return DefaultConfiguration(), nil
	}
	if err != nil {
		logger.Warn().Err(err).Msg("Configuration file is invalid; using defaults")
		if !errors.Is(err, ErrConfigCorrupt) {
			err = fmt.Errorf("%w: %w", ErrConfigCorrupt, err)
		}
		return DefaultConfiguration(), err
	}

	changed := TranslateLegacy(stored)
	if Reconcile(DefaultTree(), stored) {
		changed = true
	}

	cfg, err := Decode(stored)
	if err != nil {
		logger.Warn().Err(err).Msg("Configuration file is invalid; using defaults")
		return DefaultConfiguration(), fmt.Errorf("%w: %w", ErrConfigCorrupt, err)
	}

	if changed {
		logger.Warn().Msg("Configuration appears to be outdated; updating and saving")
		save(store, stored, logger)
	}

	cfg.sanitize(logger)
	return cfg, nil
}

func save(store Store, tree Tree, logger zerolog.Logger) {
	if err := store.Write(tree); err != nil {
		logger.Error().Err(err).Msg("Failed to save configuration")
		return
	}
	logger.Info().Msg("Configuration changes saved")
}
