package model

import "fmt"

// Stop is one position in a route's ordered stop sequence.
type Stop struct {
	ID string
	// Sequence is the zero-based position of the stop on its route.
	Sequence int
	// TravelToNextMin is the nominal travel time to the following stop in
	// minutes. It is zero for the final stop of a route.
	TravelToNextMin float64
}

// Route is an ordered sequence of stops. Routes are immutable once loaded.
type Route struct {
	ID      string
	Inbound bool
	Stops   []Stop
}

// Validate checks that the stop sequence is consistent.
func (r Route) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("route id is empty")
	}
	for i, s := range r.Stops {
		if s.Sequence != i {
			return fmt.Errorf("route %s: stop %s has sequence %d, want %d", r.ID, s.ID, s.Sequence, i)
		}
		if s.TravelToNextMin < 0 {
			return fmt.Errorf("route %s: stop %s has negative travel time", r.ID, s.ID)
		}
		if i < len(r.Stops)-1 && s.TravelToNextMin == 0 {
			return fmt.Errorf("route %s: stop %s has zero travel time to next stop", r.ID, s.ID)
		}
	}
	return nil
}

// Topology holds the loaded route network. Lookup is by route id; iteration
// order is the load order, kept stable for deterministic runs.
type Topology struct {
	routes map[string]Route
	order  []string
}

// NewTopology builds a Topology from the given routes, rejecting duplicates
// and inconsistent stop sequences.
func NewTopology(routes []Route) (*Topology, error) {
	t := &Topology{routes: make(map[string]Route, len(routes))}
	for _, r := range routes {
		if err := r.Validate(); err != nil {
			return nil, err
		}
		if _, ok := t.routes[r.ID]; ok {
			return nil, fmt.Errorf("duplicate route %s", r.ID)
		}
		t.routes[r.ID] = r
		t.order = append(t.order, r.ID)
	}
	return t, nil
}

// Route returns the route with the given id.
func (t *Topology) Route(id string) (Route, bool) {
	r, ok := t.routes[id]
	return r, ok
}

// Routes returns all routes in load order.
func (t *Topology) Routes() []Route {
	out := make([]Route, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, t.routes[id])
	}
	return out
}

// RouteIDs returns the route ids in load order.
func (t *Topology) RouteIDs() []string {
	out := make([]string, len(t.order))
	copy(out, t.order)
	return out
}
