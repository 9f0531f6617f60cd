package adapter

import (
	"context"
	"fmt"

	uwotel "github.com/OCAP2/underwater/internal/otel"
	"github.com/OCAP2/underwater/pkg/core"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Instruments are the OTel metrics adapters report to. A nil *Instruments is
// valid and records nothing.
type Instruments struct {
	attached metric.Int64UpDownCounter
	active   metric.Int64UpDownCounter
	ticks    metric.Int64Counter
}

// NewInstruments creates the adapter metrics on the global meter provider
// (no-op if none is configured).
func NewInstruments() (*Instruments, error) {
	m := uwotel.Meter("adapter")

	var (
		i   Instruments
		err error
	)

	i.attached, err = m.Int64UpDownCounter(
		"adapter.attached",
		metric.WithDescription("Vehicles with a water adapter attached"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating attached counter: %w", err)
	}

	i.active, err = m.Int64UpDownCounter(
		"adapter.correction.active",
		metric.WithDescription("Drag correction tasks currently scheduled"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating active counter: %w", err)
	}

	i.ticks, err = m.Int64Counter(
		"adapter.correction.ticks",
		metric.WithDescription("Drag corrections written to physics bodies"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating ticks counter: %w", err)
	}

	return &i, nil
}

func kindAttr(kind core.VehicleKind) metric.MeasurementOption {
	return metric.WithAttributes(attribute.String("kind", kind.String()))
}

func (i *Instruments) addAttached(kind core.VehicleKind, n int64) {
	if i == nil {
		return
	}
	i.attached.Add(context.Background(), n, kindAttr(kind))
}

func (i *Instruments) addActive(kind core.VehicleKind, n int64) {
	if i == nil {
		return
	}
	i.active.Add(context.Background(), n, kindAttr(kind))
}

func (i *Instruments) addTick(kind core.VehicleKind) {
	if i == nil {
		return
	}
	i.ticks.Add(context.Background(), 1, kindAttr(kind))
}
