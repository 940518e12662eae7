// Package kpi reduces a simulation event log into headline service metrics.
// Aggregation is a pure function of the log: re-running it on a persisted
// log reproduces identical results.
package kpi

import (
	"github.com/kilianp07/busalloc/core/model"
	"github.com/kilianp07/busalloc/core/sim"
)

// Config carries the run parameters the reduction needs.
type Config struct {
	TotalFleetSize  int `json:"total_fleet_size"`
	TimeSlotMinutes int `json:"time_slot_minutes"`
}

// Summary holds the headline metrics of one run.
type Summary struct {
	TotalTrips      int     `json:"total_trips"`
	TotalStopVisits int     `json:"total_stop_visits"`
	TotalBoarded    int     `json:"total_boarded"`
	TotalSpillover  int     `json:"total_spillover"`
	AvgLoadFactor   float64 `json:"avg_load_factor"`
	MaxLoadFactor   float64 `json:"max_load_factor"`
	// FleetUtilization is peak-slot based: the largest number of buses
	// dispatched in any single slot over the total fleet.
	FleetUtilization        float64 `json:"fleet_utilization"`
	PeakBusesDispatched     int     `json:"peak_buses_dispatched"`
	PercentOverloadedTrips  float64 `json:"percent_overloaded_trips"`
	PercentOverloadedVisits float64 `json:"percent_overloaded_visits"`
	AvgTripDurationMin      float64 `json:"avg_trip_duration_min"`
	AvgDwellMin             float64 `json:"avg_dwell_min"`
	AvgDelayMin             float64 `json:"avg_delay_min"`
	// AvgWaitMin estimates passenger waiting as half the effective headway,
	// averaged over all active (route, slot) cells.
	AvgWaitMin float64 `json:"avg_wait_min"`
}

type tripAgg struct {
	slot       model.TimeSlot
	route      string
	firstMin   float64
	lastMin    float64
	overloaded bool
	delayMin   float64
	seen       bool
}

// Aggregate reduces the event log to a Summary. Trips and cells are derived
// from the log itself so a persisted log is sufficient input.
func Aggregate(events sim.EventLog, cfg Config) Summary {
	var s Summary
	trips := make(map[string]*tripAgg)
	type visitKey struct {
		trip    string
		stopSeq int
	}
	arrivals := make(map[visitKey]float64)
	dwellSum, dwellN := 0.0, 0
	lfSum := 0.0

	for _, ev := range events {
		t := trips[ev.TripID]
		if t == nil {
			t = &tripAgg{slot: ev.Slot, route: ev.Route}
			trips[ev.TripID] = t
		}
		switch ev.Type {
		case sim.EventArrival:
			if !t.seen {
				t.firstMin = ev.TimeMin
				t.seen = true
			}
			arrivals[visitKey{ev.TripID, ev.StopSeq}] = ev.TimeMin
		case sim.EventDeparture:
			s.TotalStopVisits++
			s.TotalBoarded += ev.Boarded
			s.TotalSpillover += ev.Spillover
			lfSum += ev.LoadFactor
			if ev.LoadFactor > s.MaxLoadFactor {
				s.MaxLoadFactor = ev.LoadFactor
			}
			if ev.Overloaded {
				s.PercentOverloadedVisits++ // count, normalized below
				t.overloaded = true
			}
			if arr, ok := arrivals[visitKey{ev.TripID, ev.StopSeq}]; ok {
				dwellSum += ev.TimeMin - arr
				dwellN++
			}
			t.lastMin = ev.TimeMin
			t.delayMin = ev.DelayMin
		}
	}

	s.TotalTrips = len(trips)
	if s.TotalStopVisits > 0 {
		s.AvgLoadFactor = lfSum / float64(s.TotalStopVisits)
		s.PercentOverloadedVisits = s.PercentOverloadedVisits / float64(s.TotalStopVisits) * 100
	}
	if dwellN > 0 {
		s.AvgDwellMin = dwellSum / float64(dwellN)
	}
	if s.TotalTrips == 0 {
		return s
	}

	type cell struct {
		route string
		slot  model.TimeSlot
	}
	perCell := make(map[cell]int)
	perSlot := make(map[model.TimeSlot]int)
	durSum, delaySum := 0.0, 0.0
	overloadedTrips := 0
	for _, t := range trips {
		perCell[cell{t.route, t.slot}]++
		perSlot[t.slot]++
		durSum += t.lastMin - t.firstMin
		delaySum += t.delayMin
		if t.overloaded {
			overloadedTrips++
		}
	}
	s.AvgTripDurationMin = durSum / float64(s.TotalTrips)
	s.AvgDelayMin = delaySum / float64(s.TotalTrips)
	s.PercentOverloadedTrips = float64(overloadedTrips) / float64(s.TotalTrips) * 100

	for _, n := range perSlot {
		if n > s.PeakBusesDispatched {
			s.PeakBusesDispatched = n
		}
	}
	if cfg.TotalFleetSize > 0 {
		s.FleetUtilization = float64(s.PeakBusesDispatched) / float64(cfg.TotalFleetSize)
	}

	waitSum := 0.0
	for _, n := range perCell {
		waitSum += float64(cfg.TimeSlotMinutes) / float64(n) / 2
	}
	s.AvgWaitMin = waitSum / float64(len(perCell))
	return s
}
