// Package hosttest provides in-memory host objects for tests.
package hosttest

import (
	"github.com/OCAP2/underwater/pkg/core"
	"github.com/OCAP2/underwater/pkg/host"
)

// Transform is a scene graph node with no rendering behind it.
type Transform struct {
	Name      string
	parent    *Transform
	Local     core.Vector3
	World     core.Vector3
	Destroyed bool
}

// NewTransform creates a transform attached to parent (which may be nil).
func NewTransform(name string, parent *Transform, local core.Vector3) *Transform {
	return &Transform{Name: name, parent: parent, Local: local}
}

func (t *Transform) Parent() host.Transform {
	if t.parent == nil {
		return nil
	}
	return t.parent
}

func (t *Transform) SetParent(p host.Transform) {
	if p == nil {
		t.parent = nil
		return
	}
	t.parent = p.(*Transform)
}

// ParentNode returns the concrete parent for assertions.
func (t *Transform) ParentNode() *Transform { return t.parent }

func (t *Transform) LocalPosition() core.Vector3       { return t.Local }
func (t *Transform) SetLocalPosition(pos core.Vector3) { t.Local = pos }
func (t *Transform) SetWorldPosition(pos core.Vector3) { t.World = pos }
func (t *Transform) Destroy()                          { t.Destroyed = true }

// Body records the drag values written to it.
type Body struct {
	Sleeping   bool
	Linear     float32
	Angular    float32
	DragWrites int
}

func (b *Body) IsSleeping() bool         { return b.Sleeping }
func (b *Body) Drag() float32            { return b.Linear }
func (b *Body) AngularDrag() float32     { return b.Angular }
func (b *Body) SetAngularDrag(d float32) { b.Angular = d }

func (b *Body) SetDrag(d float32) {
	b.Linear = d
	b.DragWrites++
}

// Vehicle is a ground vehicle exposing a water sample transform.
type Vehicle struct {
	VehicleID   uint64
	Type        string
	Alive       bool
	Root        *Transform
	Sample      *Transform
	RigidBody   *Body
	Water       float32
	Throttle    float32
	TriggerDrag float32
	HasTrigger  bool
	Modifier    float32
	WaterCheck  float32
	Occupants   int
	// Panic makes every capability call panic, simulating a half-destroyed entity.
	Panic bool
	// PanicOn makes only the named method panic, e.g. "OccupantCount".
	PanicOn string
}

// SampleOffset is where new vehicles carry their water sample.
var SampleOffset = core.Vector3{X: 0, Y: 0.4, Z: 1.2}

// NewVehicle builds a live vehicle of the given host type with its water
// sample parented under the vehicle root.
func NewVehicle(id uint64, typeName string) *Vehicle {
	root := NewTransform("root", nil, core.Vector3{})
	return &Vehicle{
		VehicleID: id,
		Type:      typeName,
		Alive:     true,
		Root:      root,
		Sample:    NewTransform("waterSample", root, SampleOffset),
		RigidBody: &Body{},
	}
}

func (v *Vehicle) check(method string) {
	if v.Panic || v.PanicOn == method {
		panic("entity destroyed")
	}
}

func (v *Vehicle) ID() uint64                   { return v.VehicleID }
func (v *Vehicle) TypeName() string             { return v.Type }
func (v *Vehicle) IsAlive() bool                { return v.Alive }
func (v *Vehicle) Transform() host.Transform    { v.check("Transform"); return v.Root }
func (v *Vehicle) Body() host.Body              { v.check("Body"); return v.RigidBody }
func (v *Vehicle) WaterFactor() float32         { v.check("WaterFactor"); return v.Water }
func (v *Vehicle) ThrottleInput() float32       { v.check("ThrottleInput"); return v.Throttle }
func (v *Vehicle) ModifiedDrag() float32        { v.check("ModifiedDrag"); return v.Modifier }
func (v *Vehicle) OccupantCount() int           { v.check("OccupantCount"); return v.Occupants }
func (v *Vehicle) TimeSinceWaterCheck() float32 { v.check("TimeSinceWaterCheck"); return v.WaterCheck }

func (v *Vehicle) SetTimeSinceWaterCheck(s float32) {
	v.check("SetTimeSinceWaterCheck")
	v.WaterCheck = s
}

func (v *Vehicle) FindDragTrigger() (float32, bool) {
	v.check("FindDragTrigger")
	return v.TriggerDrag, v.HasTrigger
}

// WaterSample implements host.WaterSampler.
func (v *Vehicle) WaterSample() host.Transform {
	v.check("WaterSample")
	return v.Sample
}

// Helicopter is a rotor vehicle; it deliberately lacks WaterSample.
type Helicopter struct {
	*Vehicle
}

// NewHelicopter builds a live rotor vehicle.
func NewHelicopter(id uint64, typeName string) *Helicopter {
	return &Helicopter{Vehicle: NewVehicle(id, typeName)}
}

// WaterSample hides the ground capability from the embedded vehicle.
func (h *Helicopter) WaterSample() {}

// RotorWaterSample implements host.RotorWaterSampler.
func (h *Helicopter) RotorWaterSample() host.Transform {
	h.check("RotorWaterSample")
	return h.Sample
}

// Bare is a supported type name that exposes no sampler at all.
type Bare struct {
	*Vehicle
}

// NewBare builds a vehicle without any water sample capability.
func NewBare(id uint64, typeName string) *Bare {
	return &Bare{Vehicle: NewVehicle(id, typeName)}
}

// WaterSample hides the ground capability from the embedded vehicle.
func (b *Bare) WaterSample() {}

// World is a mutable list of live vehicles.
type World struct {
	List []host.Vehicle
}

func (w *World) Vehicles() []host.Vehicle { return w.List }

// Hooks records hook subscription state.
type Hooks struct {
	Subscribed map[string]bool
}

// NewHooks returns a subscriber with every hook unsubscribed.
func NewHooks() *Hooks {
	return &Hooks{Subscribed: make(map[string]bool)}
}

func (h *Hooks) Subscribe(hook string)   { h.Subscribed[hook] = true }
func (h *Hooks) Unsubscribe(hook string) { h.Subscribed[hook] = false }

var (
	_ host.Vehicle           = (*Vehicle)(nil)
	_ host.WaterSampler      = (*Vehicle)(nil)
	_ host.Vehicle           = (*Helicopter)(nil)
	_ host.RotorWaterSampler = (*Helicopter)(nil)
	_ host.World             = (*World)(nil)
	_ host.HookSubscriber    = (*Hooks)(nil)
)
