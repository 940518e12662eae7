package model

// AllocationDecision fixes the bus count and accepted overload for one
// (route, time slot) cell. Decisions are immutable inputs to the simulator.
type AllocationDecision struct {
	Route    string   `json:"route_id"`
	Slot     TimeSlot `json:"time_slot"`
	Buses    int      `json:"buses_allocated"`
	Overload float64  `json:"overload_passengers"`
}

// AllocationPlan is the optimizer output for one analysis window.
type AllocationPlan struct {
	Decisions []AllocationDecision `json:"decisions"`
	// Objective is the total cost (bus hours cost + overload penalty).
	Objective float64 `json:"objective_value"`
	// Suboptimal is set when the solver timed out and Decisions hold the
	// best incumbent rather than a proven optimum.
	Suboptimal bool `json:"suboptimal"`
}

// Decision returns the decision for the given cell. Cells without an
// explicit decision carry zero buses.
func (p *AllocationPlan) Decision(route string, slot TimeSlot) AllocationDecision {
	for _, d := range p.Decisions {
		if d.Route == route && d.Slot == slot {
			return d
		}
	}
	return AllocationDecision{Route: route, Slot: slot}
}

// BusesInSlot sums allocated buses over all routes for one slot.
func (p *AllocationPlan) BusesInSlot(slot TimeSlot) int {
	total := 0
	for _, d := range p.Decisions {
		if d.Slot == slot {
			total += d.Buses
		}
	}
	return total
}
