// Package metrics defines the observability records emitted by a run and the
// sink interfaces that receive them. Implementations live under infra/metrics
// and are built from configuration through the factory registry.
package metrics

import (
	"time"

	"github.com/kilianp07/busalloc/core/kpi"
	"github.com/kilianp07/busalloc/core/model"
	"github.com/kilianp07/busalloc/core/sim"
)

// AllocationEvent summarizes the optimizer outcome for one run.
type AllocationEvent struct {
	RunID      string
	Status     string
	Objective  float64
	Routes     int
	Slots      int
	BusesTotal int
	Suboptimal bool
	SolveTime  time.Duration
	Time       time.Time
}

// MetricsSink records allocation outcomes for observability purposes.
type MetricsSink interface {
	RecordAllocation(ev AllocationEvent) error
}

// TripEvent wraps a completed simulated trip.
type TripEvent struct {
	RunID string
	Trip  sim.TripRecord
	Time  time.Time
}

// TripRecorder records completed trips.
type TripRecorder interface {
	RecordTrips(evs []TripEvent) error
}

// KPIEvent carries the aggregated summary of one run.
type KPIEvent struct {
	RunID   string
	Summary kpi.Summary
	Time    time.Time
}

// KPIRecorder records run summaries.
type KPIRecorder interface {
	RecordKPI(ev KPIEvent) error
}

// InfeasibilityEvent records a run rejected before solving.
type InfeasibilityEvent struct {
	RunID  string
	Class  string
	Route  string
	Slot   model.TimeSlot
	Detail string
	Time   time.Time
}

// InfeasibilityRecorder records structural infeasibilities.
type InfeasibilityRecorder interface {
	RecordInfeasibility(ev InfeasibilityEvent) error
}

// NopSink implements every recorder interface with no-op methods.
type NopSink struct{}

func (NopSink) RecordAllocation(AllocationEvent) error       { return nil }
func (NopSink) RecordTrips([]TripEvent) error                { return nil }
func (NopSink) RecordKPI(KPIEvent) error                     { return nil }
func (NopSink) RecordInfeasibility(InfeasibilityEvent) error { return nil }
