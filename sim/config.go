package sim

import (
	"fmt"
	"math"
)

// Penalties groups the cost charged for infeasible or late service.
// Every penalty is added to the routing cost when the event is observed.
type Penalties struct {
	InfeasiblePickup float64 `yaml:"infeasible_pickup" json:"infeasible_pickup"` // pickup rejected for capacity or window
	DropoffWindow    float64 `yaml:"dropoff_window" json:"dropoff_window"`       // dropoff outside the end window
	RideTime         float64 `yaml:"ride_time" json:"ride_time"`                 // ride time above MaxRideTime
	RouteDuration    float64 `yaml:"route_duration" json:"route_duration"`       // route longer than MaxRouteDuration
}

// DefaultPenalties charges only for infeasible pickups.
func DefaultPenalties() Penalties {
	return Penalties{InfeasiblePickup: 10}
}

// Config groups the episode parameters of a Simulator.
type Config struct {
	TimeEnd   float64   // Episode end time; always a candidate event instant
	MaxStep   int       // Decision count at which the episode terminates (must be > 0)
	Speed     float64   // Distance units per time unit (DefaultSpeed if zero)
	Penalties Penalties // Cost model add-ons
	Trace     bool      // Record decisions and arrivals into Simulator.Trace
}

// NewConfig returns a Config with default speed and penalties.
func NewConfig(timeEnd float64, maxStep int) Config {
	return Config{
		TimeEnd:   timeEnd,
		MaxStep:   maxStep,
		Speed:     DefaultSpeed,
		Penalties: DefaultPenalties(),
	}
}

// Validate checks the fields and fills a zero Speed with DefaultSpeed.
func (c *Config) Validate() error {
	if math.IsNaN(c.TimeEnd) || c.TimeEnd <= 0 {
		return fmt.Errorf("time end must be positive, got %v", c.TimeEnd)
	}
	if c.MaxStep <= 0 {
		return fmt.Errorf("max step must be positive, got %d", c.MaxStep)
	}
	if c.Speed == 0 {
		c.Speed = DefaultSpeed
	}
	if math.IsNaN(c.Speed) || math.IsInf(c.Speed, 0) || c.Speed < 0 {
		return fmt.Errorf("speed must be a finite positive number, got %v", c.Speed)
	}
	p := c.Penalties
	for name, v := range map[string]float64{
		"infeasible_pickup": p.InfeasiblePickup,
		"dropoff_window":    p.DropoffWindow,
		"ride_time":         p.RideTime,
		"route_duration":    p.RouteDuration,
	} {
		if math.IsNaN(v) || v < 0 {
			return fmt.Errorf("penalty %s must be non-negative, got %v", name, v)
		}
	}
	return nil
}
