package optimize

import (
	"fmt"

	"github.com/kilianp07/busalloc/core/model"
)

// Status is the outcome of one optimization window.
type Status int

const (
	// StatusSolved means the plan is proven optimal.
	StatusSolved Status = iota
	// StatusInfeasible means no allocation satisfies the constraints.
	StatusInfeasible
	// StatusTimedOut means the time budget elapsed; the plan holds the best
	// incumbent found and is flagged suboptimal.
	StatusTimedOut
)

func (s Status) String() string {
	switch s {
	case StatusSolved:
		return "solved"
	case StatusInfeasible:
		return "infeasible"
	case StatusTimedOut:
		return "timed_out"
	default:
		return "unknown"
	}
}

// ConstraintClass names the constraint family that made a window infeasible,
// so the caller can decide remediation (grow the fleet, relax headway).
type ConstraintClass string

const (
	ConstraintFleet    ConstraintClass = "fleet"
	ConstraintCapacity ConstraintClass = "capacity"
	ConstraintHeadway  ConstraintClass = "headway"
)

// InfeasibleError identifies the first violated constraint class and cell.
type InfeasibleError struct {
	Class  ConstraintClass
	Route  string
	Slot   model.TimeSlot
	Detail string
}

func (e *InfeasibleError) Error() string {
	return fmt.Sprintf("optimization infeasible (%s): route=%s day=%d slot=%d: %s",
		e.Class, e.Route, e.Slot.Day, e.Slot.Index, e.Detail)
}

// Result is the tagged outcome of an optimization run. Exactly one of Plan
// (StatusSolved, StatusTimedOut) or Infeasible (StatusInfeasible) is set.
type Result struct {
	Status     Status
	Plan       *model.AllocationPlan
	Infeasible *InfeasibleError
}

// Solved reports whether the result carries a proven optimal plan.
func (r *Result) Solved() bool { return r.Status == StatusSolved }
