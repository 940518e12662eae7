package sim

import "github.com/kilianp07/busalloc/core/model"

// EventType distinguishes the two points recorded per stop visit.
type EventType int

const (
	EventArrival EventType = iota
	EventDeparture
)

func (t EventType) String() string {
	if t == EventArrival {
		return "arrival"
	}
	return "departure"
}

// SimulationEvent is one entry of the event log. Arrival events carry the
// load on arrival; departure events carry the stop-visit outcome (boarding,
// alighting, spillover, load factor).
type SimulationEvent struct {
	Seq        int            `json:"seq"`
	TimeMin    float64        `json:"time_min"`
	Type       EventType      `json:"type"`
	TripID     string         `json:"trip_id"`
	Route      string         `json:"route_id"`
	Slot       model.TimeSlot `json:"time_slot"`
	StopID     string         `json:"stop_id"`
	StopSeq    int            `json:"stop_sequence"`
	Boarded    int            `json:"boarded"`
	Alighted   int            `json:"alighted"`
	Spillover  int            `json:"spillover"`
	Load       int            `json:"load"`
	LoadFactor float64        `json:"load_factor"`
	Overloaded bool           `json:"overloaded"`
	DelayMin   float64        `json:"delay_min"`
}

// EventLog is the ordered record of one simulation run. Order is by
// (timestamp, route, sequence) and is deterministic for a given seed.
type EventLog []SimulationEvent

// TripRecord summarizes one completed bus trip.
type TripRecord struct {
	TripID        string         `json:"trip_id"`
	Route         string         `json:"route_id"`
	Slot          model.TimeSlot `json:"time_slot"`
	DepartMin     float64        `json:"depart_min"`
	ArriveMin     float64        `json:"arrive_min"`
	Stops         int            `json:"stops"`
	MaxLoad       int            `json:"max_load"`
	TotalBoarded  int            `json:"total_boarded"`
	TotalAlighted int            `json:"total_alighted"`
	Spillover     int            `json:"spillover"`
	Overloaded    bool           `json:"overloaded"`
	DelayMin      float64        `json:"delay_min"`
}
