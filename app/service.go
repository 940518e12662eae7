// Package app wires configuration, stores, sinks and the planning pipeline
// into a runnable service.
package app

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/busalloc/config"
	"github.com/kilianp07/busalloc/core/forecast"
	"github.com/kilianp07/busalloc/core/kpi"
	coremetrics "github.com/kilianp07/busalloc/core/metrics"
	"github.com/kilianp07/busalloc/core/model"
	"github.com/kilianp07/busalloc/core/optimize"
	"github.com/kilianp07/busalloc/core/sim"
	corestore "github.com/kilianp07/busalloc/core/store"
	"github.com/kilianp07/busalloc/core/synth"
	"github.com/kilianp07/busalloc/infra/gtfs"
	"github.com/kilianp07/busalloc/infra/logger"
	"github.com/kilianp07/busalloc/infra/metrics"
	"github.com/kilianp07/busalloc/infra/mqtt"
	_ "github.com/kilianp07/busalloc/infra/store"
	"github.com/kilianp07/busalloc/internal/eventbus"
	"github.com/kilianp07/busalloc/pkg/export"
)

// Synthetic network shape used when no GTFS source is configured.
const (
	synthRoutes        = 4
	synthStopsPerRoute = 8
)

// RunOutput is the result of one pipeline run.
type RunOutput struct {
	RunID   string
	Result  *optimize.Result
	Events  sim.EventLog
	Trips   []sim.TripRecord
	Summary kpi.Summary
}

// Service orchestrates the allocation pipeline.
type Service struct {
	cfg   *config.Config
	log   logger.Logger
	bus   eventbus.EventBus
	sink  coremetrics.MetricsSink
	store corestore.EventStore
	pub   *mqtt.Publisher
}

// New creates a Service from the configuration.
func New(cfg *config.Config) (*Service, error) {
	logg := logger.New("service")

	sink, err := coremetrics.NewMetricsSink(cfg.Metrics.Sinks)
	if err != nil {
		return nil, fmt.Errorf("metrics sink: %w", err)
	}
	store, err := corestore.NewEventStore(cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("event store: %w", err)
	}

	var pub *mqtt.Publisher
	if cfg.MQTT.Broker != "" {
		pub, err = mqtt.NewPublisher(cfg.MQTT)
		if err != nil {
			return nil, fmt.Errorf("mqtt publisher: %w", err)
		}
	}

	return &Service{
		cfg:   cfg,
		log:   logg,
		bus:   eventbus.New(),
		sink:  sink,
		store: store,
		pub:   pub,
	}, nil
}

// Bus exposes the progress event bus.
func (s *Service) Bus() eventbus.EventBus { return s.bus }

// Run executes the full pipeline once: load topology, build demand, optimize,
// simulate and aggregate. The returned output is also persisted and recorded
// through the configured sinks.
func (s *Service) Run(ctx context.Context) (*RunOutput, error) {
	runID := uuid.NewString()
	out := &RunOutput{RunID: runID}

	if s.cfg.Run.PrometheusAddr != "" {
		go func() {
			if err := metrics.StartPromServer(ctx, s.cfg.Run.PrometheusAddr); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}

	result, topo, demand, traffic, err := s.plan(runID)
	if err != nil {
		return nil, err
	}
	out.Result = result
	if result.Status == optimize.StatusInfeasible {
		return out, nil
	}
	plan := result.Plan

	s.stage(runID, "simulate", false, nil)
	simulator, err := sim.New(s.cfg.Simulator, topo, demand, traffic, s.log)
	if err != nil {
		return nil, err
	}
	simOut, err := simulator.Run(plan)
	s.stage(runID, "simulate", true, err)
	if err != nil {
		return nil, err
	}
	out.Events = simOut.Events
	out.Trips = simOut.Trips

	if err := s.store.SaveEvents(ctx, runID, simOut.Events); err != nil {
		return nil, fmt.Errorf("persist event log: %w", err)
	}
	if r, ok := s.sink.(coremetrics.TripRecorder); ok {
		evs := make([]coremetrics.TripEvent, len(simOut.Trips))
		now := time.Now()
		for i, t := range simOut.Trips {
			evs[i] = coremetrics.TripEvent{RunID: runID, Trip: t, Time: now}
		}
		if err := r.RecordTrips(evs); err != nil {
			s.log.Errorf("record trips: %v", err)
		}
	}

	out.Summary = kpi.Aggregate(simOut.Events, s.kpiConfig())
	if r, ok := s.sink.(coremetrics.KPIRecorder); ok {
		if err := r.RecordKPI(coremetrics.KPIEvent{RunID: runID, Summary: out.Summary, Time: time.Now()}); err != nil {
			s.log.Errorf("record kpi: %v", err)
		}
	}

	if s.pub != nil {
		if err := s.pub.PublishPlan(runID, plan); err != nil {
			s.log.Errorf("publish plan: %v", err)
		}
		if err := s.pub.PublishKPI(runID, out.Summary); err != nil {
			s.log.Errorf("publish kpi: %v", err)
		}
	}
	if s.cfg.Run.ExportDir != "" {
		if err := s.export(out); err != nil {
			return nil, fmt.Errorf("export: %w", err)
		}
	}
	return out, nil
}

// Plan runs only the optimization stage: topology, demand tables, solve. No
// simulation runs and nothing is persisted.
func (s *Service) Plan(ctx context.Context) (*RunOutput, error) {
	runID := uuid.NewString()
	out := &RunOutput{RunID: runID}
	result, _, _, _, err := s.plan(runID)
	if err != nil {
		return nil, err
	}
	out.Result = result
	return out, nil
}

// plan loads inputs, solves the allocation and records the outcome through
// the metrics sink. Infeasibility is a valid result, not an error.
func (s *Service) plan(runID string) (*optimize.Result, *model.Topology, *model.DemandTable, *model.TrafficTable, error) {
	topo, err := s.loadTopology()
	if err != nil {
		return nil, nil, nil, nil, err
	}
	slots := model.SlotsForWindow(s.cfg.Run.Days, s.cfg.Run.SlotsPerDay)
	s.log.Infof("run %s: %d routes, %d slots", runID, len(topo.RouteIDs()), len(slots))

	demand, traffic, err := s.buildTables(topo, slots)
	if err != nil {
		return nil, nil, nil, nil, err
	}

	s.stage(runID, "optimize", false, nil)
	opt, err := optimize.New(s.cfg.Optimizer, s.log)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	started := time.Now()
	result, err := opt.Optimize(topo, slots, demand)
	s.stage(runID, "optimize", true, err)
	if err != nil {
		return nil, nil, nil, nil, err
	}

	if result.Status == optimize.StatusInfeasible {
		inf := result.Infeasible
		if err := s.sink.RecordAllocation(coremetrics.AllocationEvent{
			RunID: runID, Status: result.Status.String(), Time: time.Now(),
		}); err != nil {
			s.log.Errorf("record allocation: %v", err)
		}
		if r, ok := s.sink.(coremetrics.InfeasibilityRecorder); ok {
			if err := r.RecordInfeasibility(coremetrics.InfeasibilityEvent{
				RunID: runID, Class: string(inf.Class), Route: inf.Route,
				Slot: inf.Slot, Detail: inf.Detail, Time: time.Now(),
			}); err != nil {
				s.log.Errorf("record infeasibility: %v", err)
			}
		}
		return result, topo, demand, traffic, nil
	}

	if err := s.sink.RecordAllocation(coremetrics.AllocationEvent{
		RunID:      runID,
		Status:     result.Status.String(),
		Objective:  result.Plan.Objective,
		Routes:     len(topo.RouteIDs()),
		Slots:      len(slots),
		BusesTotal: totalBuses(result.Plan),
		Suboptimal: result.Plan.Suboptimal,
		SolveTime:  time.Since(started),
		Time:       time.Now(),
	}); err != nil {
		s.log.Errorf("record allocation: %v", err)
	}
	return result, topo, demand, traffic, nil
}

// Replay recomputes the KPI summary from a persisted event log. The log is
// the only input, so the result matches the original run exactly.
func (s *Service) Replay(ctx context.Context, runID string) (kpi.Summary, error) {
	events, err := s.store.LoadEvents(ctx, runID)
	if err != nil {
		return kpi.Summary{}, err
	}
	s.log.Infof("replaying run %s: %d events", runID, len(events))
	return kpi.Aggregate(events, s.kpiConfig()), nil
}

// Runs lists persisted run IDs.
func (s *Service) Runs(ctx context.Context) ([]string, error) {
	return s.store.Runs(ctx)
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	s.bus.Close()
	s.pub.Disconnect()
	return s.store.Close()
}

func (s *Service) kpiConfig() kpi.Config {
	return kpi.Config{
		TotalFleetSize:  s.cfg.Optimizer.TotalFleetSize,
		TimeSlotMinutes: s.cfg.Optimizer.TimeSlotMinutes,
	}
}

func (s *Service) loadTopology() (*model.Topology, error) {
	if src := s.cfg.Run.GTFSSource; src != "" {
		s.log.Infof("loading topology from GTFS feed %s", src)
		return gtfs.LoadTopology(src)
	}
	return synth.Network(synthRoutes, synthStopsPerRoute, s.cfg.Synth.Seed)
}

func (s *Service) buildTables(topo *model.Topology, slots []model.TimeSlot) (*model.DemandTable, *model.TrafficTable, error) {
	slotMinutes := s.cfg.Optimizer.TimeSlotMinutes
	recs := synth.Demand(topo, slots, slotMinutes, s.cfg.Synth)

	if s.cfg.Run.UseForecast {
		f, err := forecast.New(s.cfg.Forecast)
		if err != nil {
			return nil, nil, err
		}
		forecasted := f.ForecastStops(recs, slotMinutes)
		acc := f.Accuracy(recs, forecasted)
		s.log.Infof("forecast accuracy: mae=%.2f rmse=%.2f mape=%.1f%% over %d cells",
			acc.MAE, acc.RMSE, acc.MAPE, acc.Samples)
		if len(forecasted) > 0 {
			recs = forecasted
		}
	}

	demand, err := model.NewDemandTable(topo, recs)
	if err != nil {
		return nil, nil, err
	}
	traffic, err := model.NewTrafficTable(topo, synth.Traffic(topo, slots, slotMinutes, s.cfg.Synth))
	if err != nil {
		return nil, nil, err
	}
	return demand, traffic, nil
}

func (s *Service) stage(runID, name string, done bool, err error) {
	s.bus.Publish(eventbus.StageEvent{RunID: runID, Stage: name, Done: done, Err: err})
}

func (s *Service) export(out *RunOutput) error {
	dir := filepath.Join(s.cfg.Run.ExportDir, out.RunID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	files := []struct {
		name  string
		write func(*os.File) error
	}{
		{"plan.json", func(f *os.File) error { return export.WritePlanJSON(f, out.Result.Plan) }},
		{"plan.csv", func(f *os.File) error { return export.WritePlanCSV(f, out.Result.Plan) }},
		{"trips.csv", func(f *os.File) error { return export.WriteTripsCSV(f, out.Trips) }},
		{"events.jsonl", func(f *os.File) error { return export.WriteEventsJSONL(f, out.Events) }},
		{"summary.json", func(f *os.File) error { return export.WriteSummaryJSON(f, out.Summary) }},
	}
	for _, spec := range files {
		f, err := os.Create(filepath.Join(dir, spec.name))
		if err != nil {
			return err
		}
		if err := spec.write(f); err != nil {
			_ = f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
	}
	s.log.Infof("exported run artifacts to %s", dir)
	return nil
}

func totalBuses(plan *model.AllocationPlan) int {
	n := 0
	for _, d := range plan.Decisions {
		n += d.Buses
	}
	return n
}

// MarshalSummary renders a summary for CLI output.
func MarshalSummary(s kpi.Summary) (string, error) {
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}
