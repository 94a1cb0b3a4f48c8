// Tracks episode-wide routing cost and service-quality counters.

package sim

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Metrics aggregates statistics about one episode.
// TotalCost is the routing cost the step reward is derived from:
// fleet distance plus the configured penalties.
type Metrics struct {
	TotalDistance float64 // Distance covered by the whole fleet
	TotalCost     float64 // TotalDistance + penalties

	PickedUp           int // Successful pickups
	Delivered          int // Successful dropoffs
	CapacityRejections int // Pickups refused because the trunk was full
	WindowRejections   int // Pickups refused because the pickup window was missed

	DropoffWindowViolations int // Deliveries outside the end window
	RideTimeViolations      int // Deliveries whose ride time exceeded MaxRideTime
	RouteDurationViolations int // Vehicles finishing beyond MaxRouteDuration

	RideTimes      []float64 // One entry per delivered request
	RouteDurations []float64 // One entry per finished vehicle

	Decisions    int     // Decisions accepted
	SimEndedTime float64 // Clock at the last time advancement
}

// NewMetrics returns an empty Metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		RideTimes:      make([]float64, 0),
		RouteDurations: make([]float64, 0),
	}
}

func (m *Metrics) addDistance(d float64) {
	m.TotalDistance += d
	m.TotalCost += d
}

func (m *Metrics) addPenalty(p float64) {
	m.TotalCost += p
}

// InfeasiblePickups returns the number of refused pickups.
func (m *Metrics) InfeasiblePickups() int {
	return m.CapacityRejections + m.WindowRejections
}

// MeanRideTime returns the average ride time of delivered requests, 0 if none.
func (m *Metrics) MeanRideTime() float64 {
	if len(m.RideTimes) == 0 {
		return 0
	}
	return stat.Mean(m.RideTimes, nil)
}

// MeanRouteDuration returns the average route duration of finished vehicles, 0 if none.
func (m *Metrics) MeanRouteDuration() float64 {
	if len(m.RouteDurations) == 0 {
		return 0
	}
	return stat.Mean(m.RouteDurations, nil)
}

// RideTimeQuantile returns the p-quantile (0 < p ≤ 1) of ride times, 0 if none.
func (m *Metrics) RideTimeQuantile(p float64) float64 {
	if len(m.RideTimes) == 0 {
		return 0
	}
	sorted := append([]float64(nil), m.RideTimes...)
	sort.Float64s(sorted)
	return stat.Quantile(p, stat.Empirical, sorted, nil)
}

// MetricsOutput is the JSON form of Metrics written by SaveResults.
type MetricsOutput struct {
	EpisodeID               string  `json:"episode_id"`
	Decisions               int     `json:"decisions"`
	SimEndedTime            float64 `json:"sim_ended_time"`
	TotalDistance           float64 `json:"total_distance"`
	TotalCost               float64 `json:"total_cost"`
	PickedUp                int     `json:"picked_up"`
	Delivered               int     `json:"delivered"`
	CapacityRejections      int     `json:"capacity_rejections"`
	WindowRejections        int     `json:"window_rejections"`
	DropoffWindowViolations int     `json:"dropoff_window_violations"`
	RideTimeViolations      int     `json:"ride_time_violations"`
	RouteDurationViolations int     `json:"route_duration_violations"`
	MeanRideTime            float64 `json:"mean_ride_time"`
	P90RideTime             float64 `json:"p90_ride_time"`
	MeanRouteDuration       float64 `json:"mean_route_duration"`
}

// Output converts m to its JSON form.
func (m *Metrics) Output(episodeID string) MetricsOutput {
	return MetricsOutput{
		EpisodeID:               episodeID,
		Decisions:               m.Decisions,
		SimEndedTime:            m.SimEndedTime,
		TotalDistance:           m.TotalDistance,
		TotalCost:               m.TotalCost,
		PickedUp:                m.PickedUp,
		Delivered:               m.Delivered,
		CapacityRejections:      m.CapacityRejections,
		WindowRejections:        m.WindowRejections,
		DropoffWindowViolations: m.DropoffWindowViolations,
		RideTimeViolations:      m.RideTimeViolations,
		RouteDurationViolations: m.RouteDurationViolations,
		MeanRideTime:            m.MeanRideTime(),
		P90RideTime:             m.RideTimeQuantile(0.9),
		MeanRouteDuration:       m.MeanRouteDuration(),
	}
}

// SaveResults prints the metrics JSON to stdout and, if outputFilePath is
// non-empty, also writes it to that file.
func (m *Metrics) SaveResults(episodeID string, outputFilePath string) error {
	data, err := json.MarshalIndent(m.Output(episodeID), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal metrics: %w", err)
	}
	fmt.Println("=== Simulation Metrics ===")
	fmt.Println(string(data))

	if outputFilePath == "" {
		return nil
	}
	if err := os.WriteFile(outputFilePath, data, 0o644); err != nil {
		return fmt.Errorf("write metrics to %s: %w", outputFilePath, err)
	}
	return nil
}
