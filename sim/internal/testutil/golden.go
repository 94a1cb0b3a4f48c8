// Package testutil provides shared test infrastructure for the DARP simulator.
// It consolidates golden dataset types, fixture paths and assertion helpers
// used across the sim/ sub-package tests. It does not import sim.
package testutil

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// GoldenDataset represents the structure of testdata/goldendataset.json.
type GoldenDataset struct {
	Instances []GoldenInstance `json:"instances"`
}

// GoldenInstance describes one Cordeau fixture and, when Policy is set, the
// metrics that policy must reproduce on it.
type GoldenInstance struct {
	File             string     `json:"file"` // relative to testdata/
	Vehicles         int        `json:"vehicles"`
	Requests         int        `json:"requests"`
	Capacity         int        `json:"capacity"`
	MaxRouteDuration float64    `json:"max_route_duration"`
	MaxRideTime      float64    `json:"max_ride_time"`
	Horizon          float64    `json:"horizon"`
	StartDepot       [2]float64 `json:"start_depot"`
	EndDepot         [2]float64 `json:"end_depot"`

	Policy  string         `json:"policy,omitempty"`
	Metrics *GoldenMetrics `json:"metrics,omitempty"`
}

// GoldenMetrics represents the expected metrics of a golden episode.
type GoldenMetrics struct {
	// Exact match metrics (integers)
	Decisions         int `json:"decisions"`
	PickedUp          int `json:"picked_up"`
	Delivered         int `json:"delivered"`
	InfeasiblePickups int `json:"infeasible_pickups"`

	// Deterministic floating-point metrics (derived from simulation clock)
	TotalDistance float64 `json:"total_distance"`
	TotalCost     float64 `json:"total_cost"`
	SimEndedTime  float64 `json:"sim_ended_time"`
}

// TestdataPath returns the absolute path of a file under the repo's testdata/.
// The path is resolved relative to this source file: sim/internal/testutil/ → testdata/.
func TestdataPath(t *testing.T, elem ...string) string {
	t.Helper()
	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("Failed to get current file path")
	}
	parts := append([]string{filepath.Dir(thisFile), "..", "..", "..", "testdata"}, elem...)
	return filepath.Join(parts...)
}

// LoadGoldenDataset loads the golden dataset from the testdata directory.
func LoadGoldenDataset(t *testing.T) *GoldenDataset {
	t.Helper()
	data, err := os.ReadFile(TestdataPath(t, "goldendataset.json"))
	if err != nil {
		t.Fatalf("Failed to read golden dataset: %v", err)
	}

	var dataset GoldenDataset
	if err := json.Unmarshal(data, &dataset); err != nil {
		t.Fatalf("Failed to parse golden dataset: %v", err)
	}

	return &dataset
}

// AssertFloat64Equal compares two float64 values with relative tolerance.
func AssertFloat64Equal(t *testing.T, name string, want, got, relTol float64) {
	t.Helper()
	if want == 0 && got == 0 {
		return
	}
	diff := math.Abs(want - got)
	maxVal := math.Max(math.Abs(want), math.Abs(got))
	if diff/maxVal > relTol {
		t.Errorf("%s: got %v, want %v (diff=%v, relDiff=%v)", name, got, want, diff, diff/maxVal)
	}
}
