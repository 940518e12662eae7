package model

import "fmt"

// DataValidationError reports a malformed input cell rejected at ingestion.
// Demand and traffic tables are validated before the optimizer or simulator
// ever see them; a run carrying one of these errors is fatal.
type DataValidationError struct {
	Table  string
	Route  string
	Stop   string
	Slot   TimeSlot
	Reason string
}

func (e *DataValidationError) Error() string {
	return fmt.Sprintf("%s: route=%s stop=%s day=%d slot=%d: %s",
		e.Table, e.Route, e.Stop, e.Slot.Day, e.Slot.Index, e.Reason)
}

// SimulationInconsistencyError indicates an allocation plan references a
// route or stop absent from the topology. This is an upstream contract
// violation and aborts the run before any event is processed.
type SimulationInconsistencyError struct {
	Route  string
	Detail string
}

func (e *SimulationInconsistencyError) Error() string {
	return fmt.Sprintf("simulation inconsistency: route %s: %s", e.Route, e.Detail)
}
