package sim

import "fmt"

// RequestBuilder assembles a Request whose halves arrive separately,
// as in Cordeau files where pickup rows precede dropoff rows.
// Build refuses to yield a Request until both halves are set.
type RequestBuilder struct {
	id          int
	maxRideTime float64

	pickup      Point
	startWindow TimeWindow
	hasPickup   bool

	dropoff    Point
	endWindow  TimeWindow
	hasDropoff bool
}

// NewRequestBuilder starts a builder for the request with the given id.
func NewRequestBuilder(id int, maxRideTime float64) *RequestBuilder {
	return &RequestBuilder{id: id, maxRideTime: maxRideTime}
}

// ID returns the id the built request will carry.
func (b *RequestBuilder) ID() int {
	return b.id
}

// WithPickup sets the pickup half.
func (b *RequestBuilder) WithPickup(p Point, w TimeWindow) *RequestBuilder {
	b.pickup, b.startWindow, b.hasPickup = p, w, true
	return b
}

// WithDropoff sets the dropoff half.
func (b *RequestBuilder) WithDropoff(p Point, w TimeWindow) *RequestBuilder {
	b.dropoff, b.endWindow, b.hasDropoff = p, w, true
	return b
}

// Build returns the fully formed request, or ErrIncompleteRequest when a half
// is missing or one of its windows is undefined.
func (b *RequestBuilder) Build() (*Request, error) {
	switch {
	case !b.hasPickup:
		return nil, fmt.Errorf("request %d: pickup half missing: %w", b.id, ErrIncompleteRequest)
	case !b.hasDropoff:
		return nil, fmt.Errorf("request %d: dropoff half missing: %w", b.id, ErrIncompleteRequest)
	case !b.startWindow.Defined():
		return nil, fmt.Errorf("request %d: start window %v undefined: %w", b.id, b.startWindow, ErrIncompleteRequest)
	case !b.endWindow.Defined():
		return nil, fmt.Errorf("request %d: end window %v undefined: %w", b.id, b.endWindow, ErrIncompleteRequest)
	}
	return NewRequest(b.id, b.pickup, b.dropoff, b.startWindow, b.endWindow, b.maxRideTime), nil
}
