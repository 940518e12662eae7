package model

// DemandRecord is the expected boarding count at one stop of a route during
// one time slot. Produced by the demand provider or the forecaster; read-only
// to the core.
type DemandRecord struct {
	Route      string
	Stop       string
	Slot       TimeSlot
	Passengers float64
}

// TrafficFactor is the multiplicative congestion factor applied to the
// nominal travel time of one inter-stop segment during one time slot.
// Factors are >= 1.0; 1.0 means free flow.
type TrafficFactor struct {
	Route    string
	FromStop string
	ToStop   string
	Slot     TimeSlot
	Factor   float64
}

type demandKey struct {
	route string
	stop  string
	slot  TimeSlot
}

type cellKey struct {
	route string
	slot  TimeSlot
}

// DemandTable is a validated, immutable lookup of boarding demand.
type DemandTable struct {
	stops map[demandKey]float64
	cells map[cellKey]float64
}

// NewDemandTable validates the records against the topology and indexes them.
// Negative demand or references to unknown routes/stops are rejected with a
// DataValidationError naming the offending cell.
func NewDemandTable(topo *Topology, recs []DemandRecord) (*DemandTable, error) {
	t := &DemandTable{
		stops: make(map[demandKey]float64, len(recs)),
		cells: make(map[cellKey]float64),
	}
	for _, rec := range recs {
		route, ok := topo.Route(rec.Route)
		if !ok {
			return nil, &DataValidationError{Table: "demand", Route: rec.Route, Stop: rec.Stop, Slot: rec.Slot, Reason: "unknown route"}
		}
		if !routeHasStop(route, rec.Stop) {
			return nil, &DataValidationError{Table: "demand", Route: rec.Route, Stop: rec.Stop, Slot: rec.Slot, Reason: "stop not on route"}
		}
		if rec.Passengers < 0 {
			return nil, &DataValidationError{Table: "demand", Route: rec.Route, Stop: rec.Stop, Slot: rec.Slot, Reason: "negative demand"}
		}
		t.stops[demandKey{rec.Route, rec.Stop, rec.Slot}] += rec.Passengers
		t.cells[cellKey{rec.Route, rec.Slot}] += rec.Passengers
	}
	return t, nil
}

// Stop returns the boarding demand for one stop cell, zero if absent.
func (t *DemandTable) Stop(route, stop string, slot TimeSlot) float64 {
	return t.stops[demandKey{route, stop, slot}]
}

// Cell returns the total route demand for one (route, slot) cell.
func (t *DemandTable) Cell(route string, slot TimeSlot) float64 {
	return t.cells[cellKey{route, slot}]
}

// TrafficTable is a validated, immutable lookup of congestion factors.
type TrafficTable struct {
	segments map[demandKey]float64 // keyed by (route, fromStop, slot)
}

// NewTrafficTable validates traffic factors against the topology. Factors
// below 1.0 are rejected; missing segments default to free flow.
func NewTrafficTable(topo *Topology, recs []TrafficFactor) (*TrafficTable, error) {
	t := &TrafficTable{segments: make(map[demandKey]float64, len(recs))}
	for _, rec := range recs {
		route, ok := topo.Route(rec.Route)
		if !ok {
			return nil, &DataValidationError{Table: "traffic", Route: rec.Route, Stop: rec.FromStop, Slot: rec.Slot, Reason: "unknown route"}
		}
		if !routeHasSegment(route, rec.FromStop, rec.ToStop) {
			return nil, &DataValidationError{Table: "traffic", Route: rec.Route, Stop: rec.FromStop, Slot: rec.Slot, Reason: "segment not on route"}
		}
		if rec.Factor < 1.0 {
			return nil, &DataValidationError{Table: "traffic", Route: rec.Route, Stop: rec.FromStop, Slot: rec.Slot, Reason: "traffic factor below 1.0"}
		}
		t.segments[demandKey{rec.Route, rec.FromStop, rec.Slot}] = rec.Factor
	}
	return t, nil
}

// Factor returns the congestion factor for the segment leaving fromStop,
// or 1.0 when no record exists.
func (t *TrafficTable) Factor(route, fromStop string, slot TimeSlot) float64 {
	if f, ok := t.segments[demandKey{route, fromStop, slot}]; ok {
		return f
	}
	return 1.0
}

func routeHasStop(r Route, stop string) bool {
	for _, s := range r.Stops {
		if s.ID == stop {
			return true
		}
	}
	return false
}

func routeHasSegment(r Route, from, to string) bool {
	for i := 0; i < len(r.Stops)-1; i++ {
		if r.Stops[i].ID == from && r.Stops[i+1].ID == to {
			return true
		}
	}
	return false
}
