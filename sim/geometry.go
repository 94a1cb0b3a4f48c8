package sim

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

const (
	// DefaultSpeed is the implied vehicle speed in distance units per time unit.
	// Distances and times are directly comparable only because this is 1.
	DefaultSpeed = 1.0

	// Epsilon is the absolute tolerance for time-window bounds and arrival detection.
	Epsilon = 0.001
)

// Point is a location in the plane.
type Point = r2.Vec

// Distance returns the Euclidean distance between p and q.
func Distance(p, q Point) float64 {
	return r2.Norm(r2.Sub(p, q))
}

// towards returns the point reached after covering step along the segment p→q.
// step must be strictly less than Distance(p, q).
func towards(p, q Point, step float64) Point {
	return r2.Add(p, r2.Scale(step, r2.Unit(r2.Sub(q, p))))
}

func floatEqual(a, b, eps float64) bool {
	return math.Abs(a-b) < eps
}
