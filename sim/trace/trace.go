package trace

// SimulationTrace collects decision and arrival records during an episode.
type SimulationTrace struct {
	Decisions []DecisionRecord
	Arrivals  []ArrivalRecord
}

// NewSimulationTrace creates a SimulationTrace ready for recording.
func NewSimulationTrace() *SimulationTrace {
	return &SimulationTrace{
		Decisions: make([]DecisionRecord, 0),
		Arrivals:  make([]ArrivalRecord, 0),
	}
}

// RecordDecision appends a decision record.
func (st *SimulationTrace) RecordDecision(record DecisionRecord) {
	st.Decisions = append(st.Decisions, record)
}

// RecordArrival appends an arrival record.
func (st *SimulationTrace) RecordArrival(record ArrivalRecord) {
	st.Arrivals = append(st.Arrivals, record)
}
