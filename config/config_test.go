package config

import (
	"os"
	"path/filepath"
	"testing"
)

const sampleJSON = `{
  "run": {"days": 1, "slots_per_day": 6},
  "optimizer": {
    "total_fleet_size": 20,
    "bus_capacity": 80,
    "time_slot_minutes": 60,
    "operating_cost_per_bus_hour": 100,
    "overload_penalty": 10,
    "min_headway_minutes": 10,
    "max_headway_minutes": 60,
    "solver_timeout_seconds": 30
  },
  "simulator": {"random_seed": 42},
  "metrics": {"sinks": [{"type": "nop"}]}
}`

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadJSONAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "config.json", sampleJSON))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Simulator.TimeSlotMinutes != 60 || cfg.Simulator.BusCapacity != 80 {
		t.Fatalf("simulator did not inherit optimizer values: %+v", cfg.Simulator)
	}
	if cfg.Simulator.AlightFraction != 0.3 {
		t.Fatalf("alight fraction default = %v", cfg.Simulator.AlightFraction)
	}
	if cfg.Store.Type != "jsonl" {
		t.Fatalf("store default = %+v", cfg.Store)
	}
	if cfg.Forecast.WindowSlots != 3 {
		t.Fatalf("forecast default = %+v", cfg.Forecast)
	}
	if len(cfg.Metrics.Sinks) != 1 || cfg.Metrics.Sinks[0].Type != "nop" {
		t.Fatalf("sinks = %+v", cfg.Metrics.Sinks)
	}
}

func TestLoadYAML(t *testing.T) {
	yaml := `
run:
  days: 2
optimizer:
  total_fleet_size: 10
  bus_capacity: 60
  time_slot_minutes: 30
  operating_cost_per_bus_hour: 80
  overload_penalty: 5
  min_headway_minutes: 5
  max_headway_minutes: 30
  solver_timeout_seconds: 10
simulator:
  random_seed: 7
`
	cfg, err := Load(writeConfig(t, "config.yaml", yaml))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Run.Days != 2 {
		t.Fatalf("days = %d", cfg.Run.Days)
	}
	if cfg.Run.SlotsPerDay != 48 {
		t.Fatalf("slots per day = %d, want 48 for 30 minute slots", cfg.Run.SlotsPerDay)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("BA_OPTIMIZER__BUS_CAPACITY", "90")
	cfg, err := Load(writeConfig(t, "config.json", sampleJSON))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Optimizer.BusCapacity != 90 {
		t.Fatalf("capacity = %d, want env override 90", cfg.Optimizer.BusCapacity)
	}
	if cfg.Simulator.BusCapacity != 90 {
		t.Fatalf("simulator capacity = %d, want inherited 90", cfg.Simulator.BusCapacity)
	}
}

func TestLoadRejectsUnknownExtension(t *testing.T) {
	if _, err := Load(writeConfig(t, "config.toml", "x = 1")); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestValidateRejectsMismatchedSections(t *testing.T) {
	cfg, err := Load(writeConfig(t, "config.json", sampleJSON))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	cfg.Simulator.BusCapacity = 50
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected mismatch error")
	}
}

func TestLoadRejectsInvalidOptimizer(t *testing.T) {
	bad := `{
  "optimizer": {
    "total_fleet_size": 0,
    "bus_capacity": 80,
    "time_slot_minutes": 60,
    "operating_cost_per_bus_hour": 100,
    "overload_penalty": 10,
    "min_headway_minutes": 10,
    "max_headway_minutes": 60
  },
  "simulator": {"random_seed": 1}
}`
	if _, err := Load(writeConfig(t, "config.json", bad)); err == nil {
		t.Fatal("expected validation error for zero fleet")
	}
}
