// Package synth generates seeded synthetic demand and traffic tables shaped
// like a real service day, with rush-hour peaks and congestion bands. It is
// the default demand provider for CLI runs and tests.
package synth

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/kilianp07/busalloc/core/model"
)

// Config holds the generator parameters.
type Config struct {
	Seed int64 `json:"seed"`
	// DemandMean is the average boarding count per stop per slot before the
	// hour-of-day multiplier is applied.
	DemandMean float64 `json:"demand_mean" validate:"gte=0"`
	DemandStd  float64 `json:"demand_std" validate:"gte=0"`
}

// demandMultiplier shapes demand over the day: strong morning and evening
// rush, moderate daytime, quiet nights.
func demandMultiplier(hour float64) float64 {
	switch {
	case hour >= 7 && hour <= 9, hour >= 17 && hour <= 19:
		return 2.5
	case hour >= 10 && hour <= 16:
		return 1.2
	case hour >= 20 && hour <= 22:
		return 1.3
	default:
		return 0.3
	}
}

// trafficBand returns the congestion factor range for an hour of day.
// Factors are multiplicative on nominal travel time and never below 1.0.
func trafficBand(hour float64) (lo, hi float64) {
	switch {
	case hour >= 7 && hour <= 9, hour >= 17 && hour <= 19:
		return 1.4, 2.2
	case hour >= 22, hour <= 5:
		return 1.0, 1.1
	default:
		return 1.0, 1.4
	}
}

// Demand generates one boarding record per (route, stop, slot).
func Demand(topo *model.Topology, slots []model.TimeSlot, slotMinutes int, cfg Config) []model.DemandRecord {
	rng := rand.New(rand.NewSource(cfg.Seed))
	var out []model.DemandRecord
	for _, route := range topo.Routes() {
		for _, stop := range route.Stops {
			for _, slot := range slots {
				mean := cfg.DemandMean * demandMultiplier(slot.HourOfDay(slotMinutes))
				d := math.Round(rng.NormFloat64()*cfg.DemandStd + mean)
				if d < 0 {
					d = 0
				}
				out = append(out, model.DemandRecord{
					Route:      route.ID,
					Stop:       stop.ID,
					Slot:       slot,
					Passengers: d,
				})
			}
		}
	}
	return out
}

// Traffic generates one congestion factor per inter-stop segment per slot.
func Traffic(topo *model.Topology, slots []model.TimeSlot, slotMinutes int, cfg Config) []model.TrafficFactor {
	rng := rand.New(rand.NewSource(cfg.Seed + 1))
	var out []model.TrafficFactor
	for _, route := range topo.Routes() {
		for i := 0; i < len(route.Stops)-1; i++ {
			for _, slot := range slots {
				lo, hi := trafficBand(slot.HourOfDay(slotMinutes))
				out = append(out, model.TrafficFactor{
					Route:    route.ID,
					FromStop: route.Stops[i].ID,
					ToStop:   route.Stops[i+1].ID,
					Slot:     slot,
					Factor:   math.Round((lo+rng.Float64()*(hi-lo))*1000) / 1000,
				})
			}
		}
	}
	return out
}

// Network builds a synthetic route network: nRoutes routes of stopsPerRoute
// stops with seeded travel times between 2 and 8 minutes. Every second route
// is marked inbound.
func Network(nRoutes, stopsPerRoute int, seed int64) (*model.Topology, error) {
	rng := rand.New(rand.NewSource(seed))
	routes := make([]model.Route, 0, nRoutes)
	for r := 0; r < nRoutes; r++ {
		stops := make([]model.Stop, 0, stopsPerRoute)
		for s := 0; s < stopsPerRoute; s++ {
			stop := model.Stop{
				ID:       fmt.Sprintf("R%02d-S%02d", r+1, s+1),
				Sequence: s,
			}
			if s < stopsPerRoute-1 {
				stop.TravelToNextMin = math.Round((2+rng.Float64()*6)*10) / 10
			}
			stops = append(stops, stop)
		}
		routes = append(routes, model.Route{
			ID:      fmt.Sprintf("R%02d", r+1),
			Inbound: r%2 == 1,
			Stops:   stops,
		})
	}
	return model.NewTopology(routes)
}
