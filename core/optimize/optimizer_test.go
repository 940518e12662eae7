package optimize

import (
	"reflect"
	"testing"

	"github.com/kilianp07/busalloc/core/model"
)

func testConfig() Config {
	return Config{
		TotalFleetSize:          20,
		BusCapacity:             80,
		TimeSlotMinutes:         60,
		OperatingCostPerBusHour: 100,
		OverloadPenalty:         10,
		MinHeadwayMinutes:       10,
		MaxHeadwayMinutes:       60,
		SolverTimeoutSeconds:    30,
	}
}

func testTopology(t *testing.T, ids ...string) *model.Topology {
	t.Helper()
	routes := make([]model.Route, len(ids))
	for i, id := range ids {
		routes[i] = model.Route{ID: id, Stops: []model.Stop{
			{ID: id + "-A", Sequence: 0, TravelToNextMin: 12},
			{ID: id + "-B", Sequence: 1},
		}}
	}
	topo, err := model.NewTopology(routes)
	if err != nil {
		t.Fatalf("topology: %v", err)
	}
	return topo
}

func demandTable(t *testing.T, topo *model.Topology, recs []model.DemandRecord) *model.DemandTable {
	t.Helper()
	table, err := model.NewDemandTable(topo, recs)
	if err != nil {
		t.Fatalf("demand table: %v", err)
	}
	return table
}

func TestOptimizeZeroDemandAllocatesNothing(t *testing.T) {
	topo := testTopology(t, "R1", "R2")
	slots := model.SlotsForWindow(1, 3)
	opt, err := New(testConfig(), nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	res, err := opt.Optimize(topo, slots, demandTable(t, topo, nil))
	if err != nil {
		t.Fatalf("optimize: %v", err)
	}
	if res.Status != StatusSolved {
		t.Fatalf("status = %v, want solved", res.Status)
	}
	if len(res.Plan.Decisions) != 6 {
		t.Fatalf("got %d decisions, want one per cell (6)", len(res.Plan.Decisions))
	}
	for _, d := range res.Plan.Decisions {
		if d.Buses != 0 || d.Overload != 0 {
			t.Fatalf("cell (%s,%v) allocated %d buses", d.Route, d.Slot, d.Buses)
		}
	}
	if res.Plan.Objective != 0 {
		t.Fatalf("objective = %v, want 0", res.Plan.Objective)
	}
}

func TestOptimizeSingleRouteSmallDemand(t *testing.T) {
	topo := testTopology(t, "R1")
	slot := model.TimeSlot{Day: 0, Index: 8}
	demand := demandTable(t, topo, []model.DemandRecord{
		{Route: "R1", Stop: "R1-A", Slot: slot, Passengers: 50},
	})
	opt, err := New(testConfig(), nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	res, err := opt.Optimize(topo, []model.TimeSlot{slot}, demand)
	if err != nil {
		t.Fatalf("optimize: %v", err)
	}
	if !res.Solved() {
		t.Fatalf("status = %v, want solved", res.Status)
	}
	d := res.Plan.Decision("R1", slot)
	if d.Buses != 1 {
		t.Fatalf("decision = %+v, want 1 bus", d)
	}
	if d.Overload != 0 {
		t.Fatalf("overload = %v, want 0", d.Overload)
	}
	if res.Plan.Objective != 100 {
		t.Fatalf("objective = %v, want 100", res.Plan.Objective)
	}
}

func TestOptimizeHeadwayCapForcesInfeasible(t *testing.T) {
	// 500 passengers need 7 buses; a 10 minute headway floor allows 6.
	topo := testTopology(t, "R1")
	slot := model.TimeSlot{Day: 0, Index: 8}
	demand := demandTable(t, topo, []model.DemandRecord{
		{Route: "R1", Stop: "R1-A", Slot: slot, Passengers: 500},
	})
	opt, err := New(testConfig(), nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	res, err := opt.Optimize(topo, []model.TimeSlot{slot}, demand)
	if err != nil {
		t.Fatalf("optimize: %v", err)
	}
	if res.Status != StatusInfeasible {
		t.Fatalf("status = %v, want infeasible", res.Status)
	}
	if res.Infeasible == nil || res.Infeasible.Class != ConstraintCapacity {
		t.Fatalf("infeasible = %+v, want capacity class", res.Infeasible)
	}
	if res.Plan != nil {
		t.Fatal("infeasible result must not carry a plan")
	}
}

func TestOptimizeRelaxedHeadwayAllocatesSevenBuses(t *testing.T) {
	topo := testTopology(t, "R1")
	slot := model.TimeSlot{Day: 0, Index: 8}
	demand := demandTable(t, topo, []model.DemandRecord{
		{Route: "R1", Stop: "R1-A", Slot: slot, Passengers: 500},
	})
	cfg := testConfig()
	cfg.MinHeadwayMinutes = 5 // ceiling becomes 12 buses
	opt, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	res, err := opt.Optimize(topo, []model.TimeSlot{slot}, demand)
	if err != nil {
		t.Fatalf("optimize: %v", err)
	}
	if !res.Solved() {
		t.Fatalf("status = %v, want solved", res.Status)
	}
	if d := res.Plan.Decision("R1", slot); d.Buses != 7 {
		t.Fatalf("buses = %d, want 7", d.Buses)
	}
}

func TestOptimizeHeadwayBoundsCanCross(t *testing.T) {
	// Slot of 60 with both headway limits at 25: floor ceil(60/25)=3 exceeds
	// ceiling floor(60/25)=2, so any demand in the slot is unservable.
	topo := testTopology(t, "R1")
	slot := model.TimeSlot{Day: 0, Index: 8}
	demand := demandTable(t, topo, []model.DemandRecord{
		{Route: "R1", Stop: "R1-A", Slot: slot, Passengers: 10},
	})
	cfg := testConfig()
	cfg.MinHeadwayMinutes = 25
	cfg.MaxHeadwayMinutes = 25
	opt, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	res, err := opt.Optimize(topo, []model.TimeSlot{slot}, demand)
	if err != nil {
		t.Fatalf("optimize: %v", err)
	}
	if res.Status != StatusInfeasible || res.Infeasible.Class != ConstraintHeadway {
		t.Fatalf("result = %+v, want headway infeasibility", res)
	}
}

func TestOptimizeFleetTooSmallForHeadwayFloors(t *testing.T) {
	topo := testTopology(t, "R1", "R2", "R3")
	slot := model.TimeSlot{Day: 0, Index: 8}
	var recs []model.DemandRecord
	for _, r := range []string{"R1", "R2", "R3"} {
		recs = append(recs, model.DemandRecord{Route: r, Stop: r + "-A", Slot: slot, Passengers: 40})
	}
	cfg := testConfig()
	cfg.MaxHeadwayMinutes = 30 // floor of 2 buses per active route
	cfg.TotalFleetSize = 5
	opt, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	res, err := opt.Optimize(topo, []model.TimeSlot{slot}, demandTable(t, topo, recs))
	if err != nil {
		t.Fatalf("optimize: %v", err)
	}
	if res.Status != StatusInfeasible || res.Infeasible.Class != ConstraintFleet {
		t.Fatalf("result = %+v, want fleet infeasibility", res)
	}
}

func TestOptimizeLargerFleetNeverCostsMore(t *testing.T) {
	topo := testTopology(t, "R1")
	slot := model.TimeSlot{Day: 0, Index: 8}
	demand := demandTable(t, topo, []model.DemandRecord{
		{Route: "R1", Stop: "R1-A", Slot: slot, Passengers: 500},
	})

	objective := func(fleet int) float64 {
		cfg := testConfig()
		cfg.MinHeadwayMinutes = 5
		cfg.TotalFleetSize = fleet
		opt, err := New(cfg, nil)
		if err != nil {
			t.Fatalf("new: %v", err)
		}
		res, err := opt.Optimize(topo, []model.TimeSlot{slot}, demand)
		if err != nil {
			t.Fatalf("optimize: %v", err)
		}
		if !res.Solved() {
			t.Fatalf("fleet %d: status %v", fleet, res.Status)
		}
		return res.Plan.Objective
	}

	small, large := objective(3), objective(10)
	if large > small {
		t.Fatalf("objective grew with fleet: %v -> %v", small, large)
	}
}

func TestOptimizeZeroTimeoutReturnsIncumbent(t *testing.T) {
	topo := testTopology(t, "R1", "R2")
	slot := model.TimeSlot{Day: 0, Index: 8}
	demand := demandTable(t, topo, []model.DemandRecord{
		{Route: "R1", Stop: "R1-A", Slot: slot, Passengers: 300},
		{Route: "R2", Stop: "R2-A", Slot: slot, Passengers: 120},
	})
	cfg := testConfig()
	cfg.SolverTimeoutSeconds = 0
	opt, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	res, err := opt.Optimize(topo, []model.TimeSlot{slot}, demand)
	if err != nil {
		t.Fatalf("optimize: %v", err)
	}
	if res.Status != StatusTimedOut {
		t.Fatalf("status = %v, want timed_out", res.Status)
	}
	if res.Plan == nil || !res.Plan.Suboptimal {
		t.Fatalf("timed out result must carry a suboptimal plan, got %+v", res.Plan)
	}
	total := 0
	for _, d := range res.Plan.Decisions {
		if d.Buses < 0 {
			t.Fatalf("negative allocation %+v", d)
		}
		total += d.Buses
	}
	if total == 0 || total > cfg.TotalFleetSize {
		t.Fatalf("incumbent uses %d buses, fleet is %d", total, cfg.TotalFleetSize)
	}
}

func TestOptimizeIsDeterministic(t *testing.T) {
	topo := testTopology(t, "R1", "R2", "R3")
	slots := model.SlotsForWindow(1, 4)
	var recs []model.DemandRecord
	for i, r := range []string{"R1", "R2", "R3"} {
		for _, slot := range slots {
			recs = append(recs, model.DemandRecord{
				Route: r, Stop: r + "-A", Slot: slot, Passengers: float64(40 + 30*i),
			})
		}
	}
	demand := demandTable(t, topo, recs)
	opt, err := New(testConfig(), nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	first, err := opt.Optimize(topo, slots, demand)
	if err != nil {
		t.Fatalf("optimize: %v", err)
	}
	second, err := opt.Optimize(topo, slots, demand)
	if err != nil {
		t.Fatalf("optimize: %v", err)
	}
	if !reflect.DeepEqual(first.Plan, second.Plan) {
		t.Fatal("identical inputs produced different plans")
	}
}

func TestConfigValidation(t *testing.T) {
	cfg := testConfig()
	cfg.MaxHeadwayMinutes = 5 // below the minimum headway
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for max headway below min")
	}
	cfg = testConfig()
	cfg.BusCapacity = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for zero capacity")
	}
}
