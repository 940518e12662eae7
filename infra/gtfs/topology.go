// Package gtfs builds a route topology from a GTFS static feed, letting runs
// target a real network instead of the synthetic generator.
package gtfs

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/jamespfennell/gtfs"

	"github.com/kilianp07/busalloc/core/model"
)

// LoadTopology reads a GTFS static feed from a local zip or a URL and
// converts it to a route topology. For each route the trip with the most
// stop times is taken as the representative stop pattern; inter-stop travel
// times come from the scheduled arrival time differences.
func LoadTopology(source string) (*model.Topology, error) {
	b, err := rawFeed(source)
	if err != nil {
		return nil, err
	}
	static, err := gtfs.ParseStatic(b, gtfs.ParseStaticOptions{})
	if err != nil {
		return nil, fmt.Errorf("parse gtfs feed: %w", err)
	}
	return FromStatic(static)
}

func rawFeed(source string) ([]byte, error) {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		resp, err := http.Get(source)
		if err != nil {
			return nil, fmt.Errorf("download gtfs feed: %w", err)
		}
		defer func() { _ = resp.Body.Close() }()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("download gtfs feed: status %s", resp.Status)
		}
		return io.ReadAll(resp.Body)
	}
	b, err := os.ReadFile(source)
	if err != nil {
		return nil, fmt.Errorf("read gtfs feed: %w", err)
	}
	return b, nil
}

// FromStatic converts parsed feed data to a topology.
func FromStatic(static *gtfs.Static) (*model.Topology, error) {
	best := make(map[string]*gtfs.ScheduledTrip)
	for i := range static.Trips {
		t := &static.Trips[i]
		if t.Route == nil || len(t.StopTimes) < 2 {
			continue
		}
		cur := best[t.Route.Id]
		if cur == nil || len(t.StopTimes) > len(cur.StopTimes) {
			best[t.Route.Id] = t
		}
	}
	if len(best) == 0 {
		return nil, fmt.Errorf("gtfs feed contains no usable trips")
	}

	ids := make([]string, 0, len(best))
	for id := range best {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	routes := make([]model.Route, 0, len(ids))
	for _, id := range ids {
		t := best[id]
		stops := make([]model.Stop, 0, len(t.StopTimes))
		for i, st := range t.StopTimes {
			s := model.Stop{ID: st.Stop.Id, Sequence: i}
			if i < len(t.StopTimes)-1 {
				gap := time.Duration(t.StopTimes[i+1].ArrivalTime - st.ArrivalTime)
				if gap <= 0 {
					// Feeds with second-level rounding can repeat arrival
					// times; keep segments strictly positive.
					gap = 30 * time.Second
				}
				s.TravelToNextMin = gap.Minutes()
			}
			stops = append(stops, s)
		}
		routes = append(routes, model.Route{
			ID:      id,
			Inbound: t.DirectionId == 1,
			Stops:   stops,
		})
	}
	return model.NewTopology(routes)
}
