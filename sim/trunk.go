// Implements the Trunk, which holds the requests a vehicle is carrying.
// Requests are enqueued on pickup and leave from the front on dropoff.

package sim

import (
	"fmt"
	"strings"
)

// Trunk is the FIFO queue of requests on board a vehicle.
// The front of the queue is the next request to be dropped off.
type Trunk struct {
	queue []*Request
}

// Enqueue adds a request to the back of the trunk.
func (t *Trunk) Enqueue(r *Request) {
	t.queue = append(t.queue, r)
}

// Dequeue removes and returns the request at the front of the trunk.
// Returns nil if the trunk is empty.
func (t *Trunk) Dequeue() *Request {
	if len(t.queue) == 0 {
		return nil
	}
	front := t.queue[0]
	t.queue[0] = nil
	t.queue = t.queue[1:]
	return front
}

// Peek returns the request at the front of the trunk without removing it.
// Returns nil if the trunk is empty.
func (t *Trunk) Peek() *Request {
	if len(t.queue) == 0 {
		return nil
	}
	return t.queue[0]
}

// Len returns the number of requests on board.
func (t *Trunk) Len() int {
	return len(t.queue)
}

// Items returns the trunk contents in dropoff order.
// The returned slice is the trunk's internal storage: callers MUST NOT modify it.
func (t *Trunk) Items() []*Request {
	return t.queue
}

func (t *Trunk) String() string {
	var sb strings.Builder
	sb.WriteString("[")
	for i, val := range t.queue {
		sb.WriteString(fmt.Sprint(val))
		if i < len(t.queue)-1 {
			sb.WriteString(" ")
		}
	}
	sb.WriteString("]")
	return sb.String()
}
