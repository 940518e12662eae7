// Package store defines persistence for simulation event logs. A persisted
// log is sufficient to recompute every KPI, so stores are the input to the
// replay command.
package store

import (
	"context"

	"github.com/kilianp07/busalloc/core/factory"
	"github.com/kilianp07/busalloc/core/sim"
)

// EventStore persists event logs keyed by run ID.
type EventStore interface {
	// SaveEvents appends the run's full event log. Saving the same run
	// twice is an error.
	SaveEvents(ctx context.Context, runID string, events sim.EventLog) error
	// LoadEvents returns the log in its canonical order.
	LoadEvents(ctx context.Context, runID string) (sim.EventLog, error)
	// Runs lists the stored run IDs.
	Runs(ctx context.Context) ([]string, error)
	Close() error
}

var storeRegistry = factory.NewRegistry[EventStore]()

// RegisterEventStore adds an event store factory identified by name.
func RegisterEventStore(name string, f factory.Factory[EventStore]) error {
	return storeRegistry.Register(name, f)
}

// NewEventStore creates an EventStore from the provided configuration.
func NewEventStore(cfg factory.ModuleConfig) (EventStore, error) {
	return storeRegistry.Create(cfg)
}
