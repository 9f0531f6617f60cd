package adapter

import "time"

const (
	// CorrectionInterval matches the host's own water check cadence.
	CorrectionInterval = 250 * time.Millisecond
	// CorrectionJitter staggers tasks so many vehicles do not tick in the same frame.
	CorrectionJitter = 50 * time.Millisecond

	// IdleDragFloor is the minimum drag the host applies while coasting.
	IdleDragFloor float32 = 0.25

	// waterCheckInterval is CorrectionInterval in host time units.
	waterCheckInterval float32 = 0.25
)

// DragInputs are the host terms that feed one drag computation.
type DragInputs struct {
	WaterFactor  float32
	Throttle     float32
	TriggerDrag  float32
	HasTrigger   bool
	ModifiedDrag float32
}

// CorrectedDrag reproduces the host's drag formula with the water factor
// scaled by multiplier. The angular drag is derived from the drag before the
// idle floor is applied, exactly as the host does it.
func CorrectedDrag(in DragInputs, multiplier float32) (linear, angular float32) {
	waterFactor := in.WaterFactor * multiplier

	var drag float32
	if in.HasTrigger {
		drag = in.TriggerDrag
	}

	throttleDrag := IdleDragFloor
	if in.Throttle != 0 {
		throttleDrag = 0
	}

	drag = max(waterFactor, drag)
	drag = max(drag, in.ModifiedDrag)

	return max(throttleDrag, drag), drag * 0.5
}
