package store

import (
	"context"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/kilianp07/busalloc/core/factory"
	"github.com/kilianp07/busalloc/core/model"
	"github.com/kilianp07/busalloc/core/sim"
	corestore "github.com/kilianp07/busalloc/core/store"
)

func sampleEvents() sim.EventLog {
	slot := model.TimeSlot{Day: 0, Index: 8}
	return sim.EventLog{
		{Seq: 0, TimeMin: 480, Type: sim.EventArrival, TripID: "t1", Route: "R1", Slot: slot, StopID: "a"},
		{Seq: 1, TimeMin: 481.5, Type: sim.EventDeparture, TripID: "t1", Route: "R1", Slot: slot, StopID: "a", Boarded: 12, Load: 12, LoadFactor: 0.15},
	}
}

func testStores(t *testing.T) map[string]corestore.EventStore {
	t.Helper()
	dir := t.TempDir()
	jsonl, err := NewJSONLStore(filepath.Join(dir, "runs"))
	if err != nil {
		t.Fatalf("jsonl store: %v", err)
	}
	sqlite, err := NewSQLiteStore(filepath.Join(dir, "events.db"))
	if err != nil {
		t.Fatalf("sqlite store: %v", err)
	}
	return map[string]corestore.EventStore{"jsonl": jsonl, "sqlite": sqlite}
}

func TestStoresRoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, s := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			events := sampleEvents()
			if err := s.SaveEvents(ctx, "run-1", events); err != nil {
				t.Fatalf("save: %v", err)
			}
			got, err := s.LoadEvents(ctx, "run-1")
			if err != nil {
				t.Fatalf("load: %v", err)
			}
			if !reflect.DeepEqual(got, events) {
				t.Fatalf("round trip differs:\n%+v\n%+v", got, events)
			}
		})
	}
}

func TestStoresRejectDuplicateRun(t *testing.T) {
	ctx := context.Background()
	for name, s := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			if err := s.SaveEvents(ctx, "run-1", sampleEvents()); err != nil {
				t.Fatalf("save: %v", err)
			}
			if err := s.SaveEvents(ctx, "run-1", sampleEvents()); err == nil {
				t.Fatal("expected duplicate run error")
			}
		})
	}
}

func TestStoresListRuns(t *testing.T) {
	ctx := context.Background()
	for name, s := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			for _, id := range []string{"run-b", "run-a"} {
				if err := s.SaveEvents(ctx, id, sampleEvents()); err != nil {
					t.Fatalf("save %s: %v", id, err)
				}
			}
			runs, err := s.Runs(ctx)
			if err != nil {
				t.Fatalf("runs: %v", err)
			}
			if len(runs) != 2 || runs[0] != "run-a" || runs[1] != "run-b" {
				t.Fatalf("runs = %v, want sorted [run-a run-b]", runs)
			}
		})
	}
}

func TestStoresMissingRun(t *testing.T) {
	ctx := context.Background()
	for name, s := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			if _, err := s.LoadEvents(ctx, "nope"); err == nil {
				t.Fatal("expected error for missing run")
			}
		})
	}
}

func TestStoreFactoryBuiltins(t *testing.T) {
	dir := t.TempDir()
	s, err := corestore.NewEventStore(factory.ModuleConfig{
		Type: "jsonl", Conf: map[string]any{"dir": filepath.Join(dir, "runs")},
	})
	if err != nil {
		t.Fatalf("jsonl from factory: %v", err)
	}
	if _, ok := s.(*JSONLStore); !ok {
		t.Fatalf("expected JSONLStore, got %T", s)
	}
	s, err = corestore.NewEventStore(factory.ModuleConfig{
		Type: "sqlite", Conf: map[string]any{"path": filepath.Join(dir, "e.db")},
	})
	if err != nil {
		t.Fatalf("sqlite from factory: %v", err)
	}
	if _, ok := s.(*SQLiteStore); !ok {
		t.Fatalf("expected SQLiteStore, got %T", s)
	}
	if _, err := corestore.NewEventStore(factory.ModuleConfig{Type: "missing"}); err == nil {
		t.Fatal("expected unknown type error")
	}
}
