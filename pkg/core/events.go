// pkg/core/events.go
package core

import "time"

// LifecycleEventType names a transition of a water adapter.
type LifecycleEventType string

const (
	EventAttached           LifecycleEventType = "attached"
	EventDetached           LifecycleEventType = "detached"
	EventCorrectionEnabled  LifecycleEventType = "correction_enabled"
	EventCorrectionDisabled LifecycleEventType = "correction_disabled"
)

// LifecycleEvent is a journal entry describing one adapter transition.
type LifecycleEvent struct {
	VehicleID  uint64
	Kind       VehicleKind
	Type       LifecycleEventType
	Multiplier float32
	Time       time.Time
	Details    map[string]any
}
