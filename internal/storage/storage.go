// Package storage journals water adapter lifecycle transitions for later
// diagnosis of vehicles that misbehave underwater.
package storage

import "github.com/OCAP2/underwater/pkg/core"

// Backend is the interface all storage implementations must satisfy
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// RecordLifecycleEvent appends one adapter transition to the journal.
	RecordLifecycleEvent(e *core.LifecycleEvent) error

	// LifecycleEvents returns up to limit events, newest first. A vehicleID
	// of zero matches every vehicle; a limit of zero or less means no limit.
	LifecycleEvents(vehicleID uint64, limit int) ([]core.LifecycleEvent, error)
}
