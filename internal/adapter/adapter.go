// Package adapter keeps one host vehicle from detecting water and, when a drag
// multiplier is configured, rewrites its drag while it is in use.
package adapter

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/OCAP2/underwater/pkg/core"
	"github.com/OCAP2/underwater/pkg/host"

	"github.com/rs/zerolog"
)

// ErrMissingCapability is returned when a vehicle exposes no water sample for its kind.
var ErrMissingCapability = errors.New("no water sample for vehicle kind")

// ParkingPoint is far above any playable volume, so a sample parked there is
// never submerged.
var ParkingPoint = core.Vector3{X: 0, Y: 1000, Z: 0}

// Recorder receives adapter lifecycle transitions. storage.Backend satisfies it.
type Recorder interface {
	RecordLifecycleEvent(e *core.LifecycleEvent) error
}

// Deps is the context an adapter runs in.
type Deps struct {
	Scheduler   host.Scheduler
	Logger      zerolog.Logger
	Rand        *rand.Rand
	Instruments *Instruments
	Recorder    Recorder
	Now         func() time.Time
}

// WaterAdapter is attached to exactly one live vehicle. It never owns the vehicle.
type WaterAdapter struct {
	deps Deps
	log  zerolog.Logger

	vehicle host.Vehicle
	id      uint64
	kind    core.VehicleKind

	sensor       host.Transform
	sensorOffset core.Vector3
	sensorMoved  bool

	dragMultiplier float32
	cancel         host.CancelFunc
	torndown       bool
}

// Attach parks the vehicle's water sample and, for a non-unity multiplier,
// starts drag correction if someone is already aboard. Callers must not attach
// twice to the same vehicle.
func Attach(deps Deps, vehicle host.Vehicle, kind core.VehicleKind, dragMultiplier float32) (*WaterAdapter, error) {
	sensor, err := waterSensor(vehicle, kind)
	if err != nil {
		return nil, err
	}

	if deps.Rand == nil {
		deps.Rand = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	id := vehicle.ID()
	a := &WaterAdapter{
		deps:           deps,
		vehicle:        vehicle,
		id:             id,
		kind:           kind,
		sensor:         sensor,
		dragMultiplier: dragMultiplier,
		log: deps.Logger.With().
			Uint64("vehicle", id).
			Str("kind", kind.String()).
			Logger(),
	}

	// read before anything is moved so a panic here leaves the vehicle untouched
	occupied := a.HasDragOverride() && vehicle.OccupantCount() > 0

	a.parkSensor()
	counted := false
	defer func() {
		if r := recover(); r != nil {
			a.abandon(counted)
			panic(r)
		}
	}()

	a.deps.Instruments.addAttached(kind, 1)
	counted = true
	a.record(core.EventAttached)
	a.log.Debug().Float32("dragMultiplier", dragMultiplier).Bool("sensorMoved", a.sensorMoved).Msg("Adapter attached")

	if occupied {
		a.EnableCorrectionTask()
	}

	return a, nil
}

// abandon undoes a partial attach after a host panic so the sample is not left
// parked with no adapter to restore it.
func (a *WaterAdapter) abandon(counted bool) {
	a.torndown = true
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
		a.deps.Instruments.addActive(a.kind, -1)
	}
	a.restoreSensor()
	if counted {
		a.deps.Instruments.addAttached(a.kind, -1)
		a.record(core.EventDetached)
	}
	a.log.Warn().Msg("Attach abandoned after host panic")
}

func waterSensor(vehicle host.Vehicle, kind core.VehicleKind) (host.Transform, error) {
	var sensor host.Transform

	if kind.Rotor() {
		if s, ok := vehicle.(host.RotorWaterSampler); ok {
			sensor = s.RotorWaterSample()
		}
	} else {
		if s, ok := vehicle.(host.WaterSampler); ok {
			sensor = s.WaterSample()
		}
	}

	if sensor == nil {
		return nil, fmt.Errorf("%s %d: %w", kind, vehicle.ID(), ErrMissingCapability)
	}
	return sensor, nil
}

// parkSensor moves the sample out of the water. A sample without a parent was
// already parked by an earlier attach and is left alone.
func (a *WaterAdapter) parkSensor() {
	if a.sensor.Parent() == nil {
		return
	}

	a.sensorOffset = a.sensor.LocalPosition()
	a.sensor.SetParent(nil)
	a.sensor.SetWorldPosition(ParkingPoint)
	a.sensorMoved = true
}

// EnableCorrectionTask takes over drag writes for the vehicle.
func (a *WaterAdapter) EnableCorrectionTask() {
	if a.cancel != nil || a.torndown || !a.HasDragOverride() || !a.vehicle.IsAlive() {
		return
	}

	// force the host's own check to be due so it cannot fight the first tick
	a.vehicle.SetTimeSinceWaterCheck(-math.MaxFloat32)
	a.cancel = a.deps.Scheduler.Repeat(CorrectionInterval, CorrectionJitter, a.correct)

	a.deps.Instruments.addActive(a.kind, 1)
	a.record(core.EventCorrectionEnabled)
	a.log.Debug().Msg("Drag correction enabled")
}

// DisableCorrectionTask hands drag writes back to the host.
func (a *WaterAdapter) DisableCorrectionTask() {
	if a.cancel == nil {
		return
	}

	a.cancel()
	a.cancel = nil

	if a.vehicle.IsAlive() {
		a.vehicle.SetTimeSinceWaterCheck(a.deps.Rand.Float32() * waterCheckInterval)
	}

	a.deps.Instruments.addActive(a.kind, -1)
	a.record(core.EventCorrectionDisabled)
	a.log.Debug().Msg("Drag correction disabled")
}

func (a *WaterAdapter) correct() {
	if a.cancel == nil || !a.vehicle.IsAlive() {
		return
	}
	if a.vehicle.OccupantCount() == 0 {
		return
	}

	body := a.vehicle.Body()
	if body == nil || body.IsSleeping() {
		return
	}

	in := DragInputs{
		WaterFactor:  a.vehicle.WaterFactor(),
		Throttle:     a.vehicle.ThrottleInput(),
		ModifiedDrag: a.vehicle.ModifiedDrag(),
	}
	in.TriggerDrag, in.HasTrigger = a.vehicle.FindDragTrigger()

	linear, angular := CorrectedDrag(in, a.dragMultiplier)
	body.SetDrag(linear)
	body.SetAngularDrag(angular)

	a.deps.Instruments.addTick(a.kind)
}

// OnOccupantMounted starts correction once the vehicle is occupied.
func (a *WaterAdapter) OnOccupantMounted() {
	if !a.HasDragOverride() || !a.vehicle.IsAlive() {
		return
	}
	if a.vehicle.OccupantCount() > 0 {
		a.EnableCorrectionTask()
	}
}

// OnOccupantDismounted stops correction when the last occupant leaves.
func (a *WaterAdapter) OnOccupantDismounted() {
	if a.cancel == nil {
		return
	}
	if !a.vehicle.IsAlive() || a.vehicle.OccupantCount() == 0 {
		a.DisableCorrectionTask()
	}
}

// Teardown restores the vehicle, or destroys the orphaned sample if the
// vehicle is gone. It is safe to call more than once.
func (a *WaterAdapter) Teardown() {
	if a.torndown {
		return
	}

	a.DisableCorrectionTask()
	a.torndown = true

	a.restoreSensor()

	a.deps.Instruments.addAttached(a.kind, -1)
	a.record(core.EventDetached)
	a.log.Debug().Msg("Adapter detached")
}

// restoreSensor puts the sample back under the vehicle. The sample is destroyed
// instead when the vehicle is gone or panics while being restored.
func (a *WaterAdapter) restoreSensor() {
	if !a.sensorMoved {
		return
	}
	a.sensorMoved = false

	if !a.vehicle.IsAlive() {
		a.sensor.Destroy()
		return
	}

	defer func() {
		if r := recover(); r != nil {
			a.log.Warn().Interface("panic", r).Msg("Sample restore failed, destroying it")
			a.sensor.Destroy()
		}
	}()
	a.sensor.SetParent(a.vehicle.Transform())
	a.sensor.SetLocalPosition(a.sensorOffset)
}

func (a *WaterAdapter) record(t core.LifecycleEventType) {
	if a.deps.Recorder == nil {
		return
	}

	e := &core.LifecycleEvent{
		VehicleID:  a.id,
		Kind:       a.kind,
		Type:       t,
		Multiplier: a.dragMultiplier,
		Time:       a.deps.Now(),
		Details: map[string]any{
			"sensorMoved": a.sensorMoved,
		},
	}
	if err := a.deps.Recorder.RecordLifecycleEvent(e); err != nil {
		a.log.Warn().Err(err).Str("event", string(t)).Msg("Failed to record lifecycle event")
	}
}

// Vehicle returns the vehicle the adapter is attached to.
func (a *WaterAdapter) Vehicle() host.Vehicle { return a.vehicle }

// Kind returns the kind resolved at attach time.
func (a *WaterAdapter) Kind() core.VehicleKind { return a.kind }

// DragMultiplier returns the multiplier captured at attach time.
func (a *WaterAdapter) DragMultiplier() float32 { return a.dragMultiplier }

// HasDragOverride reports whether the adapter ever runs a correction task.
func (a *WaterAdapter) HasDragOverride() bool { return a.dragMultiplier != 1.0 }

// CorrectionActive reports whether the correction task is scheduled.
func (a *WaterAdapter) CorrectionActive() bool { return a.cancel != nil }

// SensorOffset returns the local offset saved when the sample was parked.
func (a *WaterAdapter) SensorOffset() core.Vector3 { return a.sensorOffset }

// SensorMoved reports whether this adapter parked the sample and owes a restore.
func (a *WaterAdapter) SensorMoved() bool { return a.sensorMoved }
