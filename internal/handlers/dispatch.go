package handlers

import (
	"errors"
	"strconv"

	"github.com/OCAP2/underwater/internal/dispatcher"
	"github.com/OCAP2/underwater/internal/pluginconfig"
)

// Dispatcher commands for host events.
const (
	CmdInit       = ":INIT:"
	CmdSpawned    = ":SPAWNED:"
	CmdDespawned  = ":DESPAWNED:"
	CmdMounted    = ":MOUNTED:"
	CmdDismounted = ":DISMOUNTED:"
	CmdUnload     = ":UNLOAD:"
	CmdReload     = ":RELOAD:"
)

// ErrNoVehicle is returned when a vehicle event arrives without a vehicle.
var ErrNoVehicle = errors.New("event has no vehicle")

// ReloadFunc reads the configuration again for :RELOAD:.
type ReloadFunc func() (pluginconfig.Configuration, error)

// RegisterHandlers registers all host event handlers with the dispatcher.
// reload may be nil, in which case :RELOAD: is not registered.
func (s *Service) RegisterHandlers(d *dispatcher.Dispatcher, reload ReloadFunc) {
	// Lifecycle - rare, always logged
	d.Register(CmdInit, s.handleInit, dispatcher.Logged())
	d.Register(CmdUnload, s.handleUnload, dispatcher.Logged())
	if reload != nil {
		d.Register(CmdReload, s.reloadHandler(reload), dispatcher.Logged())
	}

	// Entity lifecycle
	d.Register(CmdSpawned, s.handleSpawned)
	d.Register(CmdDespawned, s.handleDespawned)

	// Mount hooks fire on every seat change
	d.Register(CmdMounted, s.handleMounted)
	d.Register(CmdDismounted, s.handleDismounted)
}

// handleInit takes an optional initialBoot flag as its first argument.
func (s *Service) handleInit(e dispatcher.Event) (any, error) {
	initialBoot := false
	if len(e.Args) > 0 {
		b, err := strconv.ParseBool(e.Args[0])
		if err != nil {
			return nil, err
		}
		initialBoot = b
	}
	return s.OnServerInitialized(initialBoot), nil
}

func (s *Service) handleUnload(e dispatcher.Event) (any, error) {
	return s.Unload(), nil
}

func (s *Service) reloadHandler(reload ReloadFunc) dispatcher.HandlerFunc {
	return func(e dispatcher.Event) (any, error) {
		cfg, err := reload()
		if err != nil && !errors.Is(err, pluginconfig.ErrConfigCorrupt) {
			return nil, err
		}
		// a corrupt file still yields usable defaults
		return s.ApplyConfig(cfg), nil
	}
}

func (s *Service) handleSpawned(e dispatcher.Event) (any, error) {
	if e.Vehicle == nil {
		return nil, ErrNoVehicle
	}
	return s.OnVehicleSpawned(e.Vehicle), nil
}

func (s *Service) handleDespawned(e dispatcher.Event) (any, error) {
	if e.Vehicle == nil {
		return nil, ErrNoVehicle
	}
	return s.OnVehicleDespawned(e.Vehicle), nil
}

func (s *Service) handleMounted(e dispatcher.Event) (any, error) {
	if e.Vehicle == nil {
		return nil, ErrNoVehicle
	}
	s.OnMounted(e.Vehicle)
	return nil, nil
}

func (s *Service) handleDismounted(e dispatcher.Event) (any, error) {
	if e.Vehicle == nil {
		return nil, ErrNoVehicle
	}
	s.OnDismounted(e.Vehicle)
	return nil, nil
}
