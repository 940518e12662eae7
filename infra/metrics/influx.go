package metrics

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/busalloc/core/metrics"
	"github.com/kilianp07/busalloc/infra/logger"
)

// InfluxSink writes run records to an InfluxDB instance using the official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(url, token, org, bucket string) *InfluxSink {
	base := strings.TrimSuffix(url, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and
// returns a NopSink if the health check fails.
func NewInfluxSinkWithFallback(url, token, org, bucket string) coremetrics.MetricsSink {
	sink := NewInfluxSink(url, token, org, bucket)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// RecordAllocation writes the allocation outcome as a single point.
func (s *InfluxSink) RecordAllocation(ev coremetrics.AllocationEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("allocation_run").
		AddTag("run_id", ev.RunID).
		AddTag("status", ev.Status).
		AddTag("suboptimal", strconv.FormatBool(ev.Suboptimal)).
		AddField("objective", round3(ev.Objective)).
		AddField("routes", ev.Routes).
		AddField("slots", ev.Slots).
		AddField("buses_total", ev.BusesTotal).
		AddField("solve_ms", round3(ev.SolveTime.Seconds()*1000)).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordTrips writes one point per completed trip.
func (s *InfluxSink) RecordTrips(evs []coremetrics.TripEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for _, ev := range evs {
		t := ev.Trip
		p := write.NewPointWithMeasurement("bus_trip").
			AddTag("run_id", ev.RunID).
			AddTag("route", t.Route).
			AddTag("trip_id", t.TripID).
			AddTag("overloaded", strconv.FormatBool(t.Overloaded)).
			AddField("depart_min", round3(t.DepartMin)).
			AddField("duration_min", round3(t.ArriveMin-t.DepartMin)).
			AddField("max_load", t.MaxLoad).
			AddField("boarded", t.TotalBoarded).
			AddField("spillover", t.Spillover).
			AddField("delay_min", round3(t.DelayMin)).
			SetTime(ev.Time)
		if err := s.writeAPI.WritePoint(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// RecordKPI writes the aggregated summary of a run.
func (s *InfluxSink) RecordKPI(ev coremetrics.KPIEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	k := ev.Summary
	p := write.NewPointWithMeasurement("run_kpi").
		AddTag("run_id", ev.RunID).
		AddField("total_trips", k.TotalTrips).
		AddField("total_boarded", k.TotalBoarded).
		AddField("total_spillover", k.TotalSpillover).
		AddField("avg_load_factor", round3(k.AvgLoadFactor)).
		AddField("max_load_factor", round3(k.MaxLoadFactor)).
		AddField("fleet_utilization", round3(k.FleetUtilization)).
		AddField("pct_overloaded_trips", round3(k.PercentOverloadedTrips)).
		AddField("avg_trip_duration_min", round3(k.AvgTripDurationMin)).
		AddField("avg_dwell_min", round3(k.AvgDwellMin)).
		AddField("avg_delay_min", round3(k.AvgDelayMin)).
		AddField("avg_wait_min", round3(k.AvgWaitMin)).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordInfeasibility writes a rejection event.
func (s *InfluxSink) RecordInfeasibility(ev coremetrics.InfeasibilityEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("infeasible_run").
		AddTag("run_id", ev.RunID).
		AddTag("class", ev.Class).
		AddTag("route", ev.Route).
		AddField("day", ev.Slot.Day).
		AddField("slot_index", ev.Slot.Index).
		AddField("detail", ev.Detail).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// Close releases the underlying client.
func (s *InfluxSink) Close() {
	s.client.Close()
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
