// Package forecast provides a moving-average demand forecaster with
// hour-of-day seasonal adjustment. It stands in for a pluggable ML model:
// its output has the same shape as observed demand, and the optimizer does
// not distinguish the two.
package forecast

import (
	"fmt"
	"math"
	"sort"

	"github.com/go-playground/validator/v10"

	"github.com/kilianp07/busalloc/core/model"
)

// Config holds the forecaster parameters.
type Config struct {
	// WindowSlots is the number of historical slots averaged per forecast.
	WindowSlots int `json:"window_slots" validate:"gt=0"`
}

// Forecaster produces per-stop demand forecasts from historical records.
type Forecaster struct {
	cfg Config
}

// New creates a Forecaster after validating the configuration.
func New(cfg Config) (*Forecaster, error) {
	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("forecast config: %w", err)
	}
	return &Forecaster{cfg: cfg}, nil
}

// ForecastStops forecasts demand for every slot that has a full history
// window before it, per (route, stop) series. Earlier slots are skipped.
func (f *Forecaster) ForecastStops(history []model.DemandRecord, slotMinutes int) []model.DemandRecord {
	type series struct{ route, stop string }
	bySeries := make(map[series][]model.DemandRecord)
	var order []series
	for _, rec := range history {
		k := series{rec.Route, rec.Stop}
		if _, ok := bySeries[k]; !ok {
			order = append(order, k)
		}
		bySeries[k] = append(bySeries[k], rec)
	}
	sort.Slice(order, func(i, j int) bool {
		if order[i].route != order[j].route {
			return order[i].route < order[j].route
		}
		return order[i].stop < order[j].stop
	})

	var out []model.DemandRecord
	for _, k := range order {
		recs := bySeries[k]
		sort.Slice(recs, func(i, j int) bool { return recs[i].Slot.Before(recs[j].Slot) })
		for i := f.cfg.WindowSlots; i < len(recs); i++ {
			sum := 0.0
			for _, h := range recs[i-f.cfg.WindowSlots : i] {
				sum += h.Passengers
			}
			avg := sum / float64(f.cfg.WindowSlots)
			adj := avg * SeasonalFactor(recs[i].Slot.HourOfDay(slotMinutes))
			if adj < 0 {
				adj = 0
			}
			out = append(out, model.DemandRecord{
				Route:      k.route,
				Stop:       k.stop,
				Slot:       recs[i].Slot,
				Passengers: math.Round(adj*10) / 10,
			})
		}
	}
	return out
}

// ForecastRoutes aggregates stop-level forecasts to per (route, slot)
// totals, for route-level planning views.
func (f *Forecaster) ForecastRoutes(history []model.DemandRecord, slotMinutes int) []model.DemandRecord {
	type cell struct {
		route string
		slot  model.TimeSlot
	}
	totals := make(map[cell]float64)
	var order []cell
	for _, rec := range f.ForecastStops(history, slotMinutes) {
		k := cell{rec.Route, rec.Slot}
		if _, ok := totals[k]; !ok {
			order = append(order, k)
		}
		totals[k] += rec.Passengers
	}
	out := make([]model.DemandRecord, 0, len(order))
	for _, k := range order {
		out = append(out, model.DemandRecord{
			Route:      k.route,
			Slot:       k.slot,
			Passengers: math.Round(totals[k]*10) / 10,
		})
	}
	return out
}

// SeasonalFactor scales a moving average by the expected demand level for
// the hour of day: morning and evening rush are boosted, night suppressed.
func SeasonalFactor(hour float64) float64 {
	switch {
	case hour >= 7 && hour <= 9:
		return 1.3
	case hour >= 17 && hour <= 19:
		return 1.4
	case hour >= 10 && hour <= 16:
		return 1.1
	case hour >= 20 && hour <= 22:
		return 1.0
	default:
		return 0.6
	}
}

// Accuracy compares forecasts against observed demand.
type Accuracy struct {
	MAE     float64 `json:"mae"`
	RMSE    float64 `json:"rmse"`
	MAPE    float64 `json:"mape"`
	Samples int     `json:"samples"`
}

// Accuracy computes MAE, RMSE and MAPE over cells present in both series.
func (f *Forecaster) Accuracy(actual, forecast []model.DemandRecord) Accuracy {
	type key struct {
		route, stop string
		slot        model.TimeSlot
	}
	obs := make(map[key]float64, len(actual))
	for _, rec := range actual {
		obs[key{rec.Route, rec.Stop, rec.Slot}] = rec.Passengers
	}

	var acc Accuracy
	sqSum := 0.0
	for _, rec := range forecast {
		a, ok := obs[key{rec.Route, rec.Stop, rec.Slot}]
		if !ok {
			continue
		}
		diff := a - rec.Passengers
		acc.MAE += math.Abs(diff)
		sqSum += diff * diff
		// +1 in the denominator avoids division by zero on empty cells.
		acc.MAPE += math.Abs(diff/(a+1)) * 100
		acc.Samples++
	}
	if acc.Samples > 0 {
		n := float64(acc.Samples)
		acc.MAE /= n
		acc.RMSE = math.Sqrt(sqSum / n)
		acc.MAPE /= n
	}
	return acc
}
