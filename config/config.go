// Package config loads the composed run configuration from a JSON or YAML
// file with optional environment overrides.
package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/busalloc/core/factory"
	"github.com/kilianp07/busalloc/core/forecast"
	"github.com/kilianp07/busalloc/core/metrics"
	"github.com/kilianp07/busalloc/core/optimize"
	"github.com/kilianp07/busalloc/core/sim"
	"github.com/kilianp07/busalloc/core/synth"
	"github.com/kilianp07/busalloc/infra/mqtt"
)

// RunConfig scopes the planning horizon and input sources of a run.
type RunConfig struct {
	// Days is the number of service days planned and simulated.
	Days int `json:"days"`
	// SlotsPerDay defaults to a full day divided into optimizer slots.
	SlotsPerDay int `json:"slots_per_day"`
	// GTFSSource optionally points at a static feed (zip path or URL).
	// Empty means the synthetic network is used.
	GTFSSource string `json:"gtfs_source"`
	// UseForecast feeds the optimizer forecasted demand instead of the
	// observed table.
	UseForecast bool `json:"use_forecast"`
	// ExportDir receives plan, trip and summary files. Empty disables export.
	ExportDir string `json:"export_dir"`
	// PrometheusAddr is the scrape endpoint address, e.g. ":9090".
	// Empty disables the server.
	PrometheusAddr string `json:"prometheus_addr"`
}

// Config is the composed configuration of all pipeline stages.
type Config struct {
	Run       RunConfig            `json:"run"`
	Optimizer optimize.Config      `json:"optimizer"`
	Simulator sim.Config           `json:"simulator"`
	Forecast  forecast.Config      `json:"forecast"`
	Synth     synth.Config         `json:"synth"`
	Metrics   metrics.Config       `json:"metrics"`
	Store     factory.ModuleConfig `json:"store"`
	MQTT      mqtt.Config          `json:"mqtt"`
}

// Load reads the file at path and applies BA_ environment overrides, e.g.
// BA_OPTIMIZER__BUS_CAPACITY=90 overrides optimizer.bus_capacity.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	if err := k.Load(env.Provider("BA_", "__", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "ba_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SetDefaults fills unset fields. Capacity and slot length are shared by the
// optimizer and the simulator; the optimizer section is authoritative.
func (c *Config) SetDefaults() {
	if c.Optimizer.TimeSlotMinutes == 0 {
		c.Optimizer.TimeSlotMinutes = 60
	}
	if c.Simulator.TimeSlotMinutes == 0 {
		c.Simulator.TimeSlotMinutes = c.Optimizer.TimeSlotMinutes
	}
	if c.Simulator.BusCapacity == 0 {
		c.Simulator.BusCapacity = c.Optimizer.BusCapacity
	}
	if c.Simulator.AlightFraction == 0 {
		c.Simulator.AlightFraction = 0.3
	}
	if c.Run.Days == 0 {
		c.Run.Days = 1
	}
	if c.Run.SlotsPerDay == 0 {
		c.Run.SlotsPerDay = 24 * 60 / c.Optimizer.TimeSlotMinutes
	}
	if c.Forecast.WindowSlots == 0 {
		c.Forecast.WindowSlots = 3
	}
	if c.Synth.DemandMean == 0 {
		c.Synth.DemandMean = 20
	}
	if c.Synth.DemandStd == 0 {
		c.Synth.DemandStd = 5
	}
	if c.Store.Type == "" {
		c.Store = factory.ModuleConfig{Type: "jsonl", Conf: map[string]any{"dir": "runs"}}
	}
}

// Validate checks cross-section consistency on top of per-stage validation.
func (c *Config) Validate() error {
	if err := c.Optimizer.Validate(); err != nil {
		return err
	}
	if err := c.Simulator.Validate(); err != nil {
		return err
	}
	if c.Simulator.TimeSlotMinutes != c.Optimizer.TimeSlotMinutes {
		return fmt.Errorf("simulator slot length %d differs from optimizer %d",
			c.Simulator.TimeSlotMinutes, c.Optimizer.TimeSlotMinutes)
	}
	if c.Simulator.BusCapacity != c.Optimizer.BusCapacity {
		return fmt.Errorf("simulator capacity %d differs from optimizer %d",
			c.Simulator.BusCapacity, c.Optimizer.BusCapacity)
	}
	if c.Run.Days <= 0 || c.Run.SlotsPerDay <= 0 {
		return fmt.Errorf("run horizon must be positive")
	}
	return nil
}
