// Package export writes run artifacts (plans, trips, summaries) for offline
// analysis.
package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"

	"github.com/kilianp07/busalloc/core/kpi"
	"github.com/kilianp07/busalloc/core/model"
	"github.com/kilianp07/busalloc/core/sim"
)

// WritePlanJSON writes the allocation plan to w in JSON format.
func WritePlanJSON(w io.Writer, plan *model.AllocationPlan) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(plan)
}

// WritePlanCSV writes one row per (route, slot) decision.
func WritePlanCSV(w io.Writer, plan *model.AllocationPlan) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"route", "day", "slot", "buses", "overload"}); err != nil {
		return err
	}
	for _, d := range plan.Decisions {
		rec := []string{
			d.Route,
			strconv.Itoa(d.Slot.Day),
			strconv.Itoa(d.Slot.Index),
			strconv.Itoa(d.Buses),
			strconv.FormatFloat(d.Overload, 'f', -1, 64),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteTripsCSV writes one row per completed trip.
func WriteTripsCSV(w io.Writer, trips []sim.TripRecord) error {
	cw := csv.NewWriter(w)
	header := []string{
		"trip_id", "route", "day", "slot", "depart_min", "arrive_min",
		"max_load", "boarded", "alighted", "spillover", "overloaded", "delay_min",
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, t := range trips {
		rec := []string{
			t.TripID,
			t.Route,
			strconv.Itoa(t.Slot.Day),
			strconv.Itoa(t.Slot.Index),
			strconv.FormatFloat(t.DepartMin, 'f', 2, 64),
			strconv.FormatFloat(t.ArriveMin, 'f', 2, 64),
			strconv.Itoa(t.MaxLoad),
			strconv.Itoa(t.TotalBoarded),
			strconv.Itoa(t.TotalAlighted),
			strconv.Itoa(t.Spillover),
			strconv.FormatBool(t.Overloaded),
			strconv.FormatFloat(t.DelayMin, 'f', 2, 64),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteEventsJSONL writes the event log to w, one JSON event per line.
func WriteEventsJSONL(w io.Writer, events sim.EventLog) error {
	enc := json.NewEncoder(w)
	for _, ev := range events {
		if err := enc.Encode(ev); err != nil {
			return err
		}
	}
	return nil
}

// WriteSummaryJSON writes the KPI summary to w.
func WriteSummaryJSON(w io.Writer, s kpi.Summary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}
