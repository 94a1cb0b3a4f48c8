package workload

import (
	"bytes"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

// Upper bounds on generated instance sizes. A spec arrives from untrusted
// HTTP bodies as well as files, and Generate allocates per request and vehicle.
const (
	MaxGeneratedRequests = 10000
	MaxGeneratedVehicles = 1000
)

// GeneratorSpec is the configuration of a random DARP instance.
// Loaded from YAML via LoadGeneratorSpec(path).
type GeneratorSpec struct {
	Seed             int64   `yaml:"seed" json:"seed"`
	Size             float64 `yaml:"size" json:"size"` // coordinates drawn from [-size, size]²
	NbRequests       int     `yaml:"nb_requests" json:"nb_requests"`
	NbVehicles       int     `yaml:"nb_vehicles" json:"nb_vehicles"`
	Capacity         int     `yaml:"capacity" json:"capacity"`
	MaxRouteDuration float64 `yaml:"max_route_duration,omitempty" json:"max_route_duration,omitempty"` // 0 = unbounded
	MaxRideTime      float64 `yaml:"max_ride_time,omitempty" json:"max_ride_time,omitempty"`           // 0 = unbounded
	TimeEnd          float64 `yaml:"time_end" json:"time_end"`
	WindowWidth      float64 `yaml:"window_width,omitempty" json:"window_width,omitempty"` // 0 = every window is [0, time_end]
}

// LoadGeneratorSpec reads and parses a YAML generator specification file.
// Uses strict parsing: unrecognized keys (typos) are rejected.
func LoadGeneratorSpec(path string) (*GeneratorSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading generator spec: %w", err)
	}
	var spec GeneratorSpec
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&spec); err != nil {
		return nil, fmt.Errorf("parsing generator spec: %w", err)
	}
	return &spec, nil
}

// Validate checks that all fields in the spec are usable.
func (s *GeneratorSpec) Validate() error {
	if err := validateFinitePositive("size", s.Size); err != nil {
		return err
	}
	if err := validateFinitePositive("time_end", s.TimeEnd); err != nil {
		return err
	}
	if s.NbVehicles <= 0 {
		return fmt.Errorf("nb_vehicles must be positive, got %d", s.NbVehicles)
	}
	if s.NbVehicles > MaxGeneratedVehicles {
		return fmt.Errorf("nb_vehicles must be at most %d, got %d", MaxGeneratedVehicles, s.NbVehicles)
	}
	if s.NbRequests < 0 {
		return fmt.Errorf("nb_requests must be non-negative, got %d", s.NbRequests)
	}
	if s.NbRequests > MaxGeneratedRequests {
		return fmt.Errorf("nb_requests must be at most %d, got %d", MaxGeneratedRequests, s.NbRequests)
	}
	if s.Capacity <= 0 {
		return fmt.Errorf("capacity must be positive, got %d", s.Capacity)
	}
	for name, val := range map[string]float64{
		"max_route_duration": s.MaxRouteDuration,
		"max_ride_time":      s.MaxRideTime,
		"window_width":       s.WindowWidth,
	} {
		if math.IsNaN(val) || math.IsInf(val, 0) || val < 0 {
			return fmt.Errorf("%s must be a finite non-negative number, got %f", name, val)
		}
	}
	if s.WindowWidth > s.TimeEnd {
		return fmt.Errorf("window_width %f exceeds time_end %f", s.WindowWidth, s.TimeEnd)
	}
	return nil
}

func validateFinitePositive(name string, val float64) error {
	if math.IsNaN(val) || math.IsInf(val, 0) {
		return fmt.Errorf("%s must be a finite number, got %f", name, val)
	}
	if val <= 0 {
		return fmt.Errorf("%s must be positive, got %f", name, val)
	}
	return nil
}
