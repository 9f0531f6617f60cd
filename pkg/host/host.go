// Package host declares what the extension consumes from the simulation host.
// Host objects are owned by the host; the extension only holds non-owning
// references and must check IsAlive before touching a vehicle.
package host

import (
	"time"

	"github.com/OCAP2/underwater/pkg/core"
)

// Transform is a node in the host scene graph.
type Transform interface {
	// Parent returns nil when the transform is not attached to anything.
	Parent() Transform
	SetParent(parent Transform)
	LocalPosition() core.Vector3
	SetLocalPosition(pos core.Vector3)
	// SetWorldPosition moves the transform and resets its rotation to identity.
	SetWorldPosition(pos core.Vector3)
	Destroy()
}

// Body is the physics rigid body of a vehicle.
type Body interface {
	IsSleeping() bool
	Drag() float32
	SetDrag(drag float32)
	AngularDrag() float32
	SetAngularDrag(drag float32)
}

// Vehicle is a live host vehicle entity.
type Vehicle interface {
	ID() uint64
	// TypeName is the host's concrete entity type, e.g. "ModularCar".
	TypeName() string
	IsAlive() bool
	Transform() Transform
	Body() Body

	// WaterFactor is the host's submersion term in [0,1].
	WaterFactor() float32
	// ThrottleInput is zero while the engine is off.
	ThrottleInput() float32
	// FindDragTrigger returns the drag of an overlapping trigger volume, if any.
	FindDragTrigger() (float32, bool)
	// ModifiedDrag is any other modifier drag the host already tracks.
	ModifiedDrag() float32

	TimeSinceWaterCheck() float32
	SetTimeSinceWaterCheck(seconds float32)

	OccupantCount() int
}

// WaterSampler is implemented by ground vehicles.
type WaterSampler interface {
	WaterSample() Transform
}

// RotorWaterSampler is implemented by rotor vehicles.
type RotorWaterSampler interface {
	RotorWaterSample() Transform
}

// CancelFunc stops a scheduled task. After it returns the task never fires again.
type CancelFunc func()

// Scheduler is the host timer facility.
type Scheduler interface {
	// Repeat runs fn every interval, each period offset by a uniform value in
	// [-jitter, +jitter].
	Repeat(interval, jitter time.Duration, fn func()) CancelFunc
}

// World enumerates live entities for the startup sweep.
type World interface {
	Vehicles() []Vehicle
}

// Hook names the extension can (un)subscribe.
const (
	HookEntityMounted    = "OnEntityMounted"
	HookEntityDismounted = "OnEntityDismounted"
)

// HookSubscriber is optionally implemented by hosts that charge for hook delivery.
type HookSubscriber interface {
	Subscribe(hook string)
	Unsubscribe(hook string)
}
