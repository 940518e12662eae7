package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/busalloc/core/metrics"
)

// PromSink records run outcomes in Prometheus metrics.
type PromSink struct {
	runs        *prometheus.CounterVec
	infeasible  *prometheus.CounterVec
	objective   prometheus.Gauge
	buses       prometheus.Gauge
	trips       *prometheus.CounterVec
	spillover   prometheus.Counter
	loadFactor  prometheus.Gauge
	utilization prometheus.Gauge
	avgWait     prometheus.Gauge
}

// NewPromSink registers allocation metrics on the default Prometheus registerer.
// The Prometheus server should be started separately using cfg.PrometheusAddr.
func NewPromSink() (coremetrics.MetricsSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (coremetrics.MetricsSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "busalloc_runs_total",
			Help: "Total number of allocation runs by solver status",
		}, []string{"status", "suboptimal"}),
		infeasible: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "busalloc_infeasible_runs_total",
			Help: "Runs rejected before solving, by violated constraint class",
		}, []string{"class"}),
		objective: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "busalloc_objective_cost",
			Help: "Objective value of the last solved allocation plan",
		}),
		buses: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "busalloc_buses_dispatched",
			Help: "Total bus dispatches across all cells of the last plan",
		}),
		trips: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "busalloc_trips_total",
			Help: "Simulated trips by route and overload flag",
		}, []string{"route", "overloaded"}),
		spillover: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "busalloc_spillover_passengers_total",
			Help: "Passengers unable to board across all simulated trips",
		}),
		loadFactor: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "busalloc_avg_load_factor",
			Help: "Average load factor over stop visits of the last run",
		}),
		utilization: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "busalloc_fleet_utilization",
			Help: "Peak-slot fleet utilization of the last run",
		}),
		avgWait: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "busalloc_avg_wait_min",
			Help: "Estimated average passenger wait in minutes for the last run",
		}),
	}

	collectors := []prometheus.Collector{
		s.runs, s.infeasible, s.objective, s.buses,
		s.trips, s.spillover, s.loadFactor, s.utilization, s.avgWait,
	}
	for i, c := range collectors {
		if err := reg.Register(c); err != nil {
			are, ok := err.(prometheus.AlreadyRegisteredError)
			if !ok {
				return nil, err
			}
			collectors[i] = are.ExistingCollector
		}
	}
	s.runs = collectors[0].(*prometheus.CounterVec)
	s.infeasible = collectors[1].(*prometheus.CounterVec)
	s.objective = collectors[2].(prometheus.Gauge)
	s.buses = collectors[3].(prometheus.Gauge)
	s.trips = collectors[4].(*prometheus.CounterVec)
	s.spillover = collectors[5].(prometheus.Counter)
	s.loadFactor = collectors[6].(prometheus.Gauge)
	s.utilization = collectors[7].(prometheus.Gauge)
	s.avgWait = collectors[8].(prometheus.Gauge)
	return s, nil
}

// RecordAllocation updates the run counter and plan gauges.
func (s *PromSink) RecordAllocation(ev coremetrics.AllocationEvent) error {
	s.runs.WithLabelValues(ev.Status, strconv.FormatBool(ev.Suboptimal)).Inc()
	s.objective.Set(ev.Objective)
	s.buses.Set(float64(ev.BusesTotal))
	return nil
}

// RecordTrips increments trip counters per route.
func (s *PromSink) RecordTrips(evs []coremetrics.TripEvent) error {
	for _, ev := range evs {
		s.trips.WithLabelValues(ev.Trip.Route, strconv.FormatBool(ev.Trip.Overloaded)).Inc()
		s.spillover.Add(float64(ev.Trip.Spillover))
	}
	return nil
}

// RecordKPI sets the summary gauges for the run.
func (s *PromSink) RecordKPI(ev coremetrics.KPIEvent) error {
	s.loadFactor.Set(ev.Summary.AvgLoadFactor)
	s.utilization.Set(ev.Summary.FleetUtilization)
	s.avgWait.Set(ev.Summary.AvgWaitMin)
	return nil
}

// RecordInfeasibility increments the rejection counter for the class.
func (s *PromSink) RecordInfeasibility(ev coremetrics.InfeasibilityEvent) error {
	s.infeasible.WithLabelValues(ev.Class).Inc()
	return nil
}
