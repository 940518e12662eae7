package metrics

// MultiSink fans records out to several sinks.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink returns a sink writing to all provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordAllocation forwards the record to all sinks, returning the first error encountered.
func (m *MultiSink) RecordAllocation(ev AllocationEvent) error {
	for _, s := range m.Sinks {
		if err := s.RecordAllocation(ev); err != nil {
			return err
		}
	}
	return nil
}

// RecordTrips forwards completed trips to sinks implementing TripRecorder.
func (m *MultiSink) RecordTrips(evs []TripEvent) error {
	for _, s := range m.Sinks {
		if r, ok := s.(TripRecorder); ok {
			if err := r.RecordTrips(evs); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordKPI forwards the run summary to sinks implementing KPIRecorder.
func (m *MultiSink) RecordKPI(ev KPIEvent) error {
	for _, s := range m.Sinks {
		if r, ok := s.(KPIRecorder); ok {
			if err := r.RecordKPI(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordInfeasibility forwards the event to sinks implementing InfeasibilityRecorder.
func (m *MultiSink) RecordInfeasibility(ev InfeasibilityEvent) error {
	for _, s := range m.Sinks {
		if r, ok := s.(InfeasibilityRecorder); ok {
			if err := r.RecordInfeasibility(ev); err != nil {
				return err
			}
		}
	}
	return nil
}
