package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kilianp07/busalloc/core/kpi"
	coremetrics "github.com/kilianp07/busalloc/core/metrics"
	"github.com/kilianp07/busalloc/core/sim"
)

func TestPromSinkRecordsRunMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewPromSinkWithRegistry(reg)
	if err != nil {
		t.Fatalf("new sink: %v", err)
	}

	if err := sink.RecordAllocation(coremetrics.AllocationEvent{
		RunID: "r1", Status: "solved", Objective: 1234.5, BusesTotal: 17, Time: time.Now(),
	}); err != nil {
		t.Fatalf("record allocation: %v", err)
	}
	ps := sink.(*PromSink)
	if err := ps.RecordTrips([]coremetrics.TripEvent{
		{RunID: "r1", Trip: sim.TripRecord{TripID: "t1", Route: "R1", Spillover: 4, Overloaded: true}},
		{RunID: "r1", Trip: sim.TripRecord{TripID: "t2", Route: "R1"}},
	}); err != nil {
		t.Fatalf("record trips: %v", err)
	}
	if err := ps.RecordKPI(coremetrics.KPIEvent{
		RunID: "r1", Summary: kpi.Summary{AvgLoadFactor: 0.6, FleetUtilization: 0.8, AvgWaitMin: 12},
	}); err != nil {
		t.Fatalf("record kpi: %v", err)
	}
	if err := ps.RecordInfeasibility(coremetrics.InfeasibilityEvent{RunID: "r2", Class: "capacity"}); err != nil {
		t.Fatalf("record infeasibility: %v", err)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	byName := make(map[string]bool, len(families))
	for _, f := range families {
		byName[f.GetName()] = true
	}
	for _, name := range []string{
		"busalloc_runs_total",
		"busalloc_infeasible_runs_total",
		"busalloc_objective_cost",
		"busalloc_trips_total",
		"busalloc_spillover_passengers_total",
		"busalloc_avg_load_factor",
	} {
		if !byName[name] {
			t.Fatalf("metric %s not registered", name)
		}
	}
}

func TestPromSinkReusesExistingCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := NewPromSinkWithRegistry(reg); err != nil {
		t.Fatalf("first sink: %v", err)
	}
	if _, err := NewPromSinkWithRegistry(reg); err != nil {
		t.Fatalf("second sink on same registry: %v", err)
	}
}
