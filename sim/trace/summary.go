package trace

// TraceSummary aggregates statistics from a SimulationTrace.
type TraceSummary struct {
	TotalDecisions     int            `json:"total_decisions"`
	AutomaticDecisions int            `json:"automatic_decisions"`
	TotalArrivals      int            `json:"total_arrivals"`
	InfeasiblePickups  int            `json:"infeasible_pickups"`
	OutcomeCounts      map[string]int `json:"outcome_counts"`       // outcome → count of arrivals
	DecisionsByVehicle map[int]int    `json:"decisions_by_vehicle"` // vehicle ID → count of decisions
}

// Summarize computes aggregate statistics from a SimulationTrace.
// Safe for nil or empty traces (returns zero-value fields).
func Summarize(st *SimulationTrace) *TraceSummary {
	summary := &TraceSummary{
		OutcomeCounts:      make(map[string]int),
		DecisionsByVehicle: make(map[int]int),
	}
	if st == nil {
		return summary
	}

	summary.TotalDecisions = len(st.Decisions)
	for _, d := range st.Decisions {
		if d.Automatic {
			summary.AutomaticDecisions++
		}
		summary.DecisionsByVehicle[d.VehicleID]++
	}

	summary.TotalArrivals = len(st.Arrivals)
	for _, a := range st.Arrivals {
		summary.OutcomeCounts[a.Outcome]++
		if !a.Feasible {
			summary.InfeasiblePickups++
		}
	}
	return summary
}
