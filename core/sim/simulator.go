package sim

import (
	"container/heap"
	"fmt"
	"hash/fnv"
	"math"
	"math/rand"
	"sort"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/kilianp07/busalloc/core/logger"
	"github.com/kilianp07/busalloc/core/model"
)

// Dwell time model, minutes: a fixed stop penalty plus a per-passenger cost
// for boarding and alighting.
const (
	baseDwellMin         = 0.5
	perPassengerDwellMin = 0.1
)

// Config holds the simulation parameters.
type Config struct {
	BusCapacity     int     `json:"bus_capacity" validate:"gt=0"`
	TimeSlotMinutes int     `json:"time_slot_minutes" validate:"gt=0"`
	// AlightFraction is the mean share of onboard passengers leaving at an
	// intermediate stop. The realized share is jittered by the seeded RNG.
	AlightFraction float64 `json:"alight_fraction" validate:"gte=0,lte=1"`
	RandomSeed     int64   `json:"random_seed"`
	// Workers bounds the number of routes simulated concurrently.
	// Zero means one worker per route.
	Workers int `json:"workers" validate:"gte=0"`
}

// Validate checks the numeric bounds of the configuration.
func (c Config) Validate() error {
	return validator.New().Struct(c)
}

// Simulator replays an allocation plan as discrete events against the
// topology and demand tables. It never mutates the plan.
type Simulator struct {
	cfg     Config
	topo    *model.Topology
	demand  *model.DemandTable
	traffic *model.TrafficTable
	log     logger.Logger
}

// RunResult is the full output of one simulation run.
type RunResult struct {
	Events EventLog
	Trips  []TripRecord
}

// New creates a Simulator after validating the configuration.
func New(cfg Config, topo *model.Topology, demand *model.DemandTable, traffic *model.TrafficTable, log logger.Logger) (*Simulator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("simulator config: %w", err)
	}
	if log == nil {
		log = logger.Nop{}
	}
	return &Simulator{cfg: cfg, topo: topo, demand: demand, traffic: traffic, log: log}, nil
}

// Run simulates every trip the plan implies. Routes are independent and are
// simulated in parallel; results are merged into a single deterministic
// event log ordered by (timestamp, route, sequence).
func (s *Simulator) Run(plan *model.AllocationPlan) (*RunResult, error) {
	byRoute := make(map[string][]model.AllocationDecision)
	for _, d := range plan.Decisions {
		if _, ok := s.topo.Route(d.Route); !ok {
			return nil, &model.SimulationInconsistencyError{Route: d.Route, Detail: "allocation references route absent from topology"}
		}
		if d.Buses > 0 {
			byRoute[d.Route] = append(byRoute[d.Route], d)
		}
	}

	var active []string
	for _, id := range s.topo.RouteIDs() {
		if len(byRoute[id]) > 0 {
			active = append(active, id)
		}
	}

	workers := s.cfg.Workers
	if workers <= 0 || workers > len(active) {
		workers = len(active)
	}

	results := make([]routeResult, len(active))
	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				id := active[i]
				route, _ := s.topo.Route(id)
				results[i] = s.runRoute(route, byRoute[id])
			}
		}()
	}
	for i := range active {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	out := &RunResult{}
	for _, r := range results {
		out.Events = append(out.Events, r.events...)
		out.Trips = append(out.Trips, r.trips...)
	}
	sort.Slice(out.Events, func(i, j int) bool {
		a, b := out.Events[i], out.Events[j]
		if a.TimeMin != b.TimeMin {
			return a.TimeMin < b.TimeMin
		}
		if a.Route != b.Route {
			return a.Route < b.Route
		}
		return a.Seq < b.Seq
	})
	sort.Slice(out.Trips, func(i, j int) bool {
		a, b := out.Trips[i], out.Trips[j]
		if a.DepartMin != b.DepartMin {
			return a.DepartMin < b.DepartMin
		}
		return a.TripID < b.TripID
	})
	s.log.Infof("simulation completed: %d trips, %d events", len(out.Trips), len(out.Events))
	return out, nil
}

type routeResult struct {
	events EventLog
	trips  []TripRecord
}

// routeRNG derives a deterministic per-route generator so parallel route
// workers stay reproducible for a given run seed.
func (s *Simulator) routeRNG(routeID string) *rand.Rand {
	h := fnv.New64a()
	_, _ = h.Write([]byte(routeID))
	return rand.New(rand.NewSource(s.cfg.RandomSeed ^ int64(h.Sum64())))
}

// runRoute processes one route's event queue to exhaustion. A cell with zero
// buses or a route with no stops yields no trips and no events.
func (s *Simulator) runRoute(route model.Route, decisions []model.AllocationDecision) routeResult {
	var res routeResult
	if len(route.Stops) == 0 {
		return res
	}
	rng := s.routeRNG(route.ID)
	sort.Slice(decisions, func(i, j int) bool { return decisions[i].Slot.Before(decisions[j].Slot) })

	arena := make(map[string]*busTrip)
	busesPerCell := make(map[model.TimeSlot]int)
	q := &eventQueue{}
	seq := 0

	for _, d := range decisions {
		busesPerCell[d.Slot] = d.Buses
		headway := float64(s.cfg.TimeSlotMinutes) / float64(d.Buses)
		for b := 0; b < d.Buses; b++ {
			depart := d.Slot.StartMin(s.cfg.TimeSlotMinutes) + float64(b)*headway
			trip := &busTrip{
				id:         fmt.Sprintf("%s-d%d-t%03d-b%02d", route.ID, d.Slot.Day, d.Slot.Index, b),
				route:      route,
				slot:       d.Slot,
				departMin:  depart,
				state:      tripScheduled,
				nominalMin: depart,
			}
			arena[trip.id] = trip
			heap.Push(q, pending{timeMin: depart, seq: seq, tripID: trip.id, typ: EventArrival})
			seq++
		}
	}

	for q.Len() > 0 {
		ev := heap.Pop(q).(pending)
		trip := arena[ev.tripID]
		switch ev.typ {
		case EventArrival:
			trip.state = tripAtStop
			trip.delayMin = ev.timeMin - trip.nominalMin
			stop := trip.currentStop()
			res.events = append(res.events, SimulationEvent{
				Seq: ev.seq, TimeMin: ev.timeMin, Type: EventArrival,
				TripID: trip.id, Route: route.ID, Slot: trip.slot,
				StopID: stop.ID, StopSeq: trip.stopIdx,
				Load: trip.load, LoadFactor: float64(trip.load) / float64(s.cfg.BusCapacity),
				DelayMin: trip.delayMin,
			})

			boarded, alighted, spill := s.stopExchange(trip, busesPerCell[trip.slot], rng)
			dwell := baseDwellMin + perPassengerDwellMin*float64(boarded+alighted)
			heap.Push(q, pending{timeMin: ev.timeMin + dwell, seq: seq, tripID: trip.id, typ: EventDeparture})
			seq++

			res.events = append(res.events, SimulationEvent{
				Seq: seq - 1, TimeMin: ev.timeMin + dwell, Type: EventDeparture,
				TripID: trip.id, Route: route.ID, Slot: trip.slot,
				StopID: stop.ID, StopSeq: trip.stopIdx,
				Boarded: boarded, Alighted: alighted, Spillover: spill,
				Load: trip.load, LoadFactor: float64(trip.load) / float64(s.cfg.BusCapacity),
				Overloaded: spill > 0, DelayMin: trip.delayMin,
			})

		case EventDeparture:
			if trip.atLastStop() {
				trip.state = tripCompleted
				rec := trip.record()
				rec.ArriveMin = ev.timeMin
				res.trips = append(res.trips, rec)
				delete(arena, trip.id)
				continue
			}
			trip.state = tripEnRoute
			stop := trip.currentStop()
			travel := stop.TravelToNextMin * s.traffic.Factor(route.ID, stop.ID, trip.slot)
			trip.nominalMin += stop.TravelToNextMin
			trip.stopIdx++
			heap.Push(q, pending{timeMin: ev.timeMin + travel, seq: seq, tripID: trip.id, typ: EventArrival})
			seq++
		}
	}
	return res
}

// stopExchange applies alighting then boarding at the trip's current stop.
// Boarding is the trip's share of the stop demand for the cell, capped by
// remaining capacity; passengers that cannot board are spillover for this
// visit only and are never queued for a later trip.
func (s *Simulator) stopExchange(trip *busTrip, busesInCell int, rng *rand.Rand) (boarded, alighted, spill int) {
	switch {
	case trip.atLastStop():
		alighted = trip.load
	case trip.stopIdx > 0:
		frac := s.cfg.AlightFraction * (0.5 + rng.Float64())
		if frac > 1 {
			frac = 1
		}
		alighted = int(float64(trip.load) * frac)
	}
	trip.load -= alighted
	trip.alighted += alighted

	if !trip.atLastStop() && busesInCell > 0 {
		stopDemand := s.demand.Stop(trip.route.ID, trip.currentStop().ID, trip.slot)
		want := int(math.Round(stopDemand / float64(busesInCell)))
		boarded = want
		if room := s.cfg.BusCapacity - trip.load; boarded > room {
			boarded = room
		}
		spill = want - boarded
	}
	trip.load += boarded
	trip.boarded += boarded
	trip.spillover += spill
	if spill > 0 {
		trip.overloaded = true
	}
	if trip.load > trip.maxLoad {
		trip.maxLoad = trip.load
	}
	return boarded, alighted, spill
}
