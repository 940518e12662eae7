package optimize

import (
	"fmt"
	"math"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/kilianp07/busalloc/core/logger"
	"github.com/kilianp07/busalloc/core/model"
)

// Config holds the fleet and cost parameters of one optimization window.
type Config struct {
	TotalFleetSize          int     `json:"total_fleet_size" validate:"gt=0"`
	BusCapacity             int     `json:"bus_capacity" validate:"gt=0"`
	TimeSlotMinutes         int     `json:"time_slot_minutes" validate:"gt=0"`
	OperatingCostPerBusHour float64 `json:"operating_cost_per_bus_hour" validate:"gte=0"`
	OverloadPenalty         float64 `json:"overload_penalty" validate:"gte=0"`
	MinHeadwayMinutes       int     `json:"min_headway_minutes" validate:"gt=0"`
	MaxHeadwayMinutes       int     `json:"max_headway_minutes" validate:"gtecsfield=MinHeadwayMinutes"`
	SolverTimeoutSeconds    float64 `json:"solver_timeout_seconds" validate:"gte=0"`
}

// Validate checks the numeric bounds of the configuration.
func (c Config) Validate() error {
	return validator.New().Struct(c)
}

// Optimizer solves the bus allocation ILP for an analysis window.
type Optimizer struct {
	cfg Config
	log logger.Logger
}

// New creates an Optimizer after validating the configuration.
func New(cfg Config, log logger.Logger) (*Optimizer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("optimizer config: %w", err)
	}
	if log == nil {
		log = logger.Nop{}
	}
	return &Optimizer{cfg: cfg, log: log}, nil
}

// headwayBounds returns the bus count bounds implied by the headway limits
// for a cell with positive demand. Zero-demand cells carry no floor so the
// optimal allocation there is zero buses.
func (o *Optimizer) headwayBounds() (lo, hi int) {
	lo = int(math.Ceil(float64(o.cfg.TimeSlotMinutes) / float64(o.cfg.MaxHeadwayMinutes)))
	if lo < 0 {
		lo = 0
	}
	hi = o.cfg.TimeSlotMinutes / o.cfg.MinHeadwayMinutes
	return lo, hi
}

// Optimize produces an allocation decision for every (route, slot) cell of
// the window, or reports infeasibility naming the violated constraint class.
// On timeout the best incumbent is returned flagged suboptimal.
func (o *Optimizer) Optimize(topo *model.Topology, slots []model.TimeSlot, demand *model.DemandTable) (*Result, error) {
	routes := topo.RouteIDs()
	lo, hi := o.headwayBounds()

	if inf := o.checkFeasibility(routes, slots, demand, lo, hi); inf != nil {
		o.log.Warnf("optimization infeasible: %v", inf)
		return &Result{Status: StatusInfeasible, Infeasible: inf}, nil
	}

	deadline := time.Now().Add(time.Duration(o.cfg.SolverTimeoutSeconds * float64(time.Second)))
	busCost := float64(o.cfg.TimeSlotMinutes) / 60 * o.cfg.OperatingCostPerBusHour

	plan := &model.AllocationPlan{}
	timedOut := false
	for _, slot := range slots {
		var active []string
		for _, r := range routes {
			if demand.Cell(r, slot) > 0 {
				active = append(active, r)
			}
		}
		if len(active) == 0 {
			for _, r := range routes {
				plan.Decisions = append(plan.Decisions, model.AllocationDecision{Route: r, Slot: slot})
			}
			continue
		}

		p := slotProblem{
			demand:   make([]float64, len(active)),
			lo:       make([]int, len(active)),
			hi:       make([]int, len(active)),
			fleet:    o.cfg.TotalFleetSize,
			capacity: o.cfg.BusCapacity,
			busCost:  busCost,
			penalty:  o.cfg.OverloadPenalty,
		}
		for i, r := range active {
			p.demand[i] = demand.Cell(r, slot)
			p.lo[i] = lo
			p.hi[i] = hi
		}

		buses, obj, slotTimedOut := solveSlot(p, deadline)
		overloads := p.overloads(buses)
		timedOut = timedOut || slotTimedOut
		plan.Objective += obj

		i := 0
		for _, r := range routes {
			d := model.AllocationDecision{Route: r, Slot: slot}
			if i < len(active) && active[i] == r {
				d.Buses = buses[i]
				d.Overload = overloads[i]
				i++
			}
			plan.Decisions = append(plan.Decisions, d)
		}
	}

	status := StatusSolved
	if timedOut {
		status = StatusTimedOut
		plan.Suboptimal = true
		o.log.Warnf("solver deadline elapsed, returning incumbent (objective=%.2f)", plan.Objective)
	} else {
		o.log.Infof("optimization solved: %d cells, objective=%.2f", len(plan.Decisions), plan.Objective)
	}
	return &Result{Status: status, Plan: plan}, nil
}

// checkFeasibility performs the structural pre-solve checks. Overload is an
// economic choice for the solver; headway or fleet caps that force overload
// make the window infeasible. Cells are visited in window order then route
// order, so the first violation reported is deterministic.
func (o *Optimizer) checkFeasibility(routes []string, slots []model.TimeSlot, demand *model.DemandTable, lo, hi int) *InfeasibleError {
	for _, slot := range slots {
		floorSum := 0
		for _, r := range routes {
			d := demand.Cell(r, slot)
			if d <= 0 {
				continue
			}
			if lo > hi {
				return &InfeasibleError{Class: ConstraintHeadway, Route: r, Slot: slot,
					Detail: fmt.Sprintf("headway floor %d exceeds ceiling %d", lo, hi)}
			}
			if need := int(math.Ceil(d / float64(o.cfg.BusCapacity))); need > hi {
				return &InfeasibleError{Class: ConstraintCapacity, Route: r, Slot: slot,
					Detail: fmt.Sprintf("demand %.0f needs %d buses, headway ceiling is %d", d, need, hi)}
			}
			floorSum += lo
		}
		if floorSum > o.cfg.TotalFleetSize {
			return &InfeasibleError{Class: ConstraintFleet, Slot: slot,
				Detail: fmt.Sprintf("headway floors require %d buses, fleet is %d", floorSum, o.cfg.TotalFleetSize)}
		}
	}
	return nil
}
