package sim

import "github.com/kilianp07/busalloc/core/model"

// tripState follows Scheduled -> EnRoute -> AtStop (repeated) -> Completed.
type tripState int

const (
	tripScheduled tripState = iota
	tripEnRoute
	tripAtStop
	tripCompleted
)

// busTrip is the mutable state of one vehicle traversing a route. Trips live
// in a per-route arena keyed by id and are dropped once completed.
type busTrip struct {
	id        string
	route     model.Route
	slot      model.TimeSlot
	departMin float64
	state     tripState
	stopIdx   int
	load      int

	maxLoad    int
	boarded    int
	alighted   int
	spillover  int
	overloaded bool
	delayMin   float64
	// nominalMin is the scheduled arrival at the current stop, used to
	// compute cumulative delay.
	nominalMin float64
}

func (t *busTrip) atLastStop() bool { return t.stopIdx == len(t.route.Stops)-1 }

func (t *busTrip) currentStop() model.Stop { return t.route.Stops[t.stopIdx] }

func (t *busTrip) record() TripRecord {
	return TripRecord{
		TripID:        t.id,
		Route:         t.route.ID,
		Slot:          t.slot,
		DepartMin:     t.departMin,
		Stops:         len(t.route.Stops),
		MaxLoad:       t.maxLoad,
		TotalBoarded:  t.boarded,
		TotalAlighted: t.alighted,
		Spillover:     t.spillover,
		Overloaded:    t.overloaded,
		DelayMin:      t.delayMin,
	}
}
