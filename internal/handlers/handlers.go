// Package handlers routes host vehicle events to water adapters.
package handlers

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/OCAP2/underwater/internal/adapter"
	"github.com/OCAP2/underwater/internal/cache"
	"github.com/OCAP2/underwater/internal/pluginconfig"
	"github.com/OCAP2/underwater/pkg/core"
	"github.com/OCAP2/underwater/pkg/host"

	"github.com/rs/zerolog"
)

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	World     host.World
	Scheduler host.Scheduler
	// Hooks is optional; hosts without paid hook delivery leave it nil.
	Hooks       host.HookSubscriber
	Cache       *cache.AdapterCache
	Logger      zerolog.Logger
	Instruments *adapter.Instruments
	Recorder    adapter.Recorder
	Rand        *rand.Rand
	Now         func() time.Time
	// Counters is optional; NewService allocates one when nil.
	Counters *Counters
}

// Service owns every adapter and applies the effective configuration to
// vehicles as the host reports them.
type Service struct {
	deps   Dependencies
	cfg    pluginconfig.Configuration
	log    zerolog.Logger
	hooked bool
	closed bool
}

// NewService creates a new handler service
func NewService(deps Dependencies, cfg pluginconfig.Configuration) *Service {
	if deps.Cache == nil {
		deps.Cache = cache.NewAdapterCache()
	}
	if deps.Rand == nil {
		deps.Rand = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Counters == nil {
		deps.Counters = &Counters{}
	}

	return &Service{
		deps: deps,
		cfg:  cfg,
		log:  deps.Logger.With().Str("component", "handlers").Logger(),
	}
}

// Config returns the configuration adapters are currently attached with.
func (s *Service) Config() pluginconfig.Configuration {
	return s.cfg
}

// Cache returns the adapter registry.
func (s *Service) Cache() *cache.AdapterCache {
	return s.deps.Cache
}

// Counters returns the adapter counts published after every host event. Unlike
// the cache, they may be read from any goroutine.
func (s *Service) Counters() *Counters {
	return s.deps.Counters
}

// AdapterCount returns the number of attached adapters.
func (s *Service) AdapterCount() int {
	return s.deps.Cache.Len()
}

// ActiveCount returns the number of adapters running drag correction.
func (s *Service) ActiveCount() int {
	return s.deps.Cache.CountActive()
}

// OnServerInitialized subscribes the mount hooks if any kind needs them and
// attaches to every vehicle already in the world. Vehicles that spawned
// before the sweep keep the adapter they already have.
func (s *Service) OnServerInitialized(initialBoot bool) int {
	defer s.publish()
	defer s.recoverHost("OnServerInitialized")

	if s.closed {
		s.log.Debug().Msg("Server initialized after unload, ignoring")
		return 0
	}
	s.syncHooks()
	n := s.sweep()
	s.log.Info().Bool("initialBoot", initialBoot).Int("attached", n).Msg("Server initialized")
	return n
}

// OnVehicleSpawned attaches an adapter if the vehicle's kind is enabled. It
// reports whether the vehicle now has an adapter.
func (s *Service) OnVehicleSpawned(v host.Vehicle) (attached bool) {
	defer s.publish()
	defer s.recoverHost("OnVehicleSpawned")

	_, err := s.attach(v)
	if err != nil {
		return false
	}
	return v != nil && s.deps.Cache.Has(v.ID())
}

// OnVehicleDespawned tears down the vehicle's adapter, if any.
func (s *Service) OnVehicleDespawned(v host.Vehicle) (detached bool) {
	defer s.publish()
	defer s.recoverHost("OnVehicleDespawned")

	if v == nil {
		return false
	}
	return s.detach(v.ID())
}

// OnMounted is called after an occupant boards a vehicle.
func (s *Service) OnMounted(v host.Vehicle) {
	defer s.publish()
	defer s.recoverHost("OnMounted")

	if a, ok := s.lookup(v); ok {
		a.OnOccupantMounted()
	}
}

// OnDismounted is called after an occupant leaves a vehicle.
func (s *Service) OnDismounted(v host.Vehicle) {
	defer s.publish()
	defer s.recoverHost("OnDismounted")

	if a, ok := s.lookup(v); ok {
		a.OnOccupantDismounted()
	}
}

// Unload tears down every adapter and releases the mount hooks. Events that
// arrive afterwards never attach again.
func (s *Service) Unload() int {
	defer s.publish()
	defer s.recoverHost("Unload")

	s.closed = true
	n := s.teardownAll()
	s.setHooks(false)
	s.log.Info().Int("detached", n).Msg("Unloaded")
	return n
}

// ApplyConfig replaces the effective configuration. Adapters keep the
// multiplier they were attached with, so every adapter is torn down and the
// world is swept again.
func (s *Service) ApplyConfig(cfg pluginconfig.Configuration) int {
	defer s.publish()
	defer s.recoverHost("ApplyConfig")

	s.cfg = cfg
	if s.closed {
		return 0
	}

	detached := s.teardownAll()
	s.syncHooks()
	attached := s.sweep()

	s.log.Info().Int("detached", detached).Int("attached", attached).Msg("Configuration applied")
	return attached
}

func (s *Service) adapterDeps() adapter.Deps {
	return adapter.Deps{
		Scheduler:   s.deps.Scheduler,
		Logger:      s.deps.Logger,
		Rand:        s.deps.Rand,
		Instruments: s.deps.Instruments,
		Recorder:    s.deps.Recorder,
		Now:         s.deps.Now,
	}
}

func (s *Service) attach(v host.Vehicle) (*adapter.WaterAdapter, error) {
	if v == nil || !v.IsAlive() {
		return nil, nil
	}
	if s.closed {
		s.log.Debug().Uint64("vehicle", v.ID()).Msg("Unloaded, not attaching")
		return nil, nil
	}
	if a, ok := s.deps.Cache.Get(v.ID()); ok {
		return a, nil
	}

	kind := core.KindFromTypeName(v.TypeName())
	if kind == core.KindUnknown {
		return nil, nil
	}

	vc := s.cfg.For(kind)
	if !vc.Enabled {
		return nil, nil
	}

	a, err := adapter.Attach(s.adapterDeps(), v, kind, vc.DragMultiplier)
	if err != nil {
		if errors.Is(err, adapter.ErrMissingCapability) {
			s.log.Debug().Err(err).Msg("Vehicle skipped")
		}
		return nil, fmt.Errorf("attaching to %s %d: %w", kind, v.ID(), err)
	}

	s.deps.Cache.Add(v.ID(), a)
	return a, nil
}

func (s *Service) detach(id uint64) bool {
	a, ok := s.deps.Cache.Remove(id)
	if !ok {
		return false
	}
	a.Teardown()
	return true
}

func (s *Service) lookup(v host.Vehicle) (*adapter.WaterAdapter, bool) {
	if v == nil {
		return nil, false
	}
	return s.deps.Cache.Get(v.ID())
}

// sweep attaches to every live vehicle and returns how many new adapters
// were created. A vehicle whose host object panics is skipped.
func (s *Service) sweep() int {
	if s.deps.World == nil {
		return 0
	}

	n := 0
	for _, v := range s.deps.World.Vehicles() {
		if s.sweepOne(v) {
			n++
		}
	}
	return n
}

func (s *Service) sweepOne(v host.Vehicle) (created bool) {
	defer s.recoverHost("sweep")

	if v == nil || s.deps.Cache.Has(v.ID()) {
		return false
	}
	a, err := s.attach(v)
	return err == nil && a != nil
}

func (s *Service) teardownAll() int {
	adapters := s.deps.Cache.Drain()
	for _, a := range adapters {
		s.teardownOne(a)
	}
	return len(adapters)
}

func (s *Service) teardownOne(a *adapter.WaterAdapter) {
	defer s.recoverHost("teardown")
	a.Teardown()
}

func (s *Service) syncHooks() {
	s.setHooks(s.cfg.AnyDragOverride())
}

func (s *Service) setHooks(on bool) {
	if s.deps.Hooks == nil || s.hooked == on {
		return
	}

	if on {
		s.deps.Hooks.Subscribe(host.HookEntityMounted)
		s.deps.Hooks.Subscribe(host.HookEntityDismounted)
	} else {
		s.deps.Hooks.Unsubscribe(host.HookEntityMounted)
		s.deps.Hooks.Unsubscribe(host.HookEntityDismounted)
	}
	s.hooked = on
}

// publish copies the cache counts into the counters. It runs on the host
// thread at the end of every entry point.
func (s *Service) publish() {
	s.deps.Counters.store(s.deps.Cache.Len(), s.deps.Cache.CountActive())
}

// recoverHost stops a panic raised by a host object from reaching the host.
func (s *Service) recoverHost(op string) {
	if r := recover(); r != nil {
		s.log.Error().Str("op", op).Interface("panic", r).Msg("Recovered from host panic")
	}
}

// CountByKind returns attached adapters per vehicle kind name.
func (s *Service) CountByKind() map[string]int {
	return s.deps.Cache.CountByKind()
}
