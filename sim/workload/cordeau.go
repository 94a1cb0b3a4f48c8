package workload

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/hbenedek/dial-a-ride/sim"
)

// Cordeau-2006 DARP benchmark format:
//
//	nbVehicles nbRequests maxRouteDuration capacity maxRideTime
//	0     x y service load twStart twEnd        start depot
//	1..n  x y service load twStart twEnd        pickups
//	n+1..2n x y service load twStart twEnd      dropoffs, same order as pickups
//	2n+1  x y service load twStart twEnd        end depot (optional)
//
// Service durations and loads are read but not modelled.

// Dataset is an instance loaded from a Cordeau file together with the
// header values that are not carried per entity.
type Dataset struct {
	Instance         *sim.Instance
	Horizon          float64 // depot window end; the natural episode end time
	Capacity         int
	MaxRouteDuration float64
	MaxRideTime      float64
}

type cordeauNode struct {
	id     int
	point  sim.Point
	window sim.TimeWindow
}

// LoadCordeau reads and parses the Cordeau file at path.
func LoadCordeau(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening cordeau instance: %w", err)
	}
	defer f.Close()
	ds, err := ParseCordeau(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return ds, nil
}

// ParseCordeau parses a Cordeau-format instance. Row counts that disagree with
// the header yield sim.ErrInstanceMismatch.
func ParseCordeau(r io.Reader) (*Dataset, error) {
	scanner := bufio.NewScanner(r)
	lineNum := 0
	var header []string
	var nodes []cordeauNode
	for scanner.Scan() {
		lineNum++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if header == nil {
			header = fields
			continue
		}
		node, err := parseNode(fields, lineNum)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, node)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading cordeau instance: %w", err)
	}
	if header == nil {
		return nil, fmt.Errorf("cordeau instance is empty")
	}

	ds, nbVehicles, nbRequests, err := parseHeader(header)
	if err != nil {
		return nil, err
	}
	if len(nodes) != 2*nbRequests+1 && len(nodes) != 2*nbRequests+2 {
		return nil, fmt.Errorf("%w: header declares %d requests, found %d node rows (want %d or %d)",
			sim.ErrInstanceMismatch, nbRequests, len(nodes), 2*nbRequests+1, 2*nbRequests+2)
	}

	depot := nodes[0]
	ds.Horizon = depot.window.Latest
	endDepot := depot.point
	if len(nodes) == 2*nbRequests+2 {
		endDepot = nodes[len(nodes)-1].point
	}

	builders := make([]*sim.RequestBuilder, nbRequests)
	for i := 0; i < nbRequests; i++ {
		p := nodes[1+i]
		builders[i] = sim.NewRequestBuilder(p.id, ds.MaxRideTime).WithPickup(p.point, p.window)
	}
	for i := 0; i < nbRequests; i++ {
		d := nodes[1+nbRequests+i]
		builders[i].WithDropoff(d.point, d.window)
	}
	requests := make([]*sim.Request, nbRequests)
	for i, b := range builders {
		req, err := b.Build()
		if err != nil {
			return nil, err
		}
		requests[i] = req
	}

	vehicles := make([]*sim.Vehicle, nbVehicles)
	for i := range vehicles {
		vehicles[i] = sim.NewVehicle(i, depot.point, ds.Capacity, ds.MaxRouteDuration)
	}

	inst, err := sim.NewInstance(depot.point, endDepot, vehicles, requests,
		sim.InstanceSize{Vehicles: nbVehicles, Requests: nbRequests})
	if err != nil {
		return nil, err
	}
	ds.Instance = inst
	return ds, nil
}

func parseHeader(fields []string) (*Dataset, int, int, error) {
	if len(fields) < 5 {
		return nil, 0, 0, fmt.Errorf("cordeau header: want 5 fields, got %d", len(fields))
	}
	nbVehicles, err := strconv.Atoi(fields[0])
	if err != nil {
		return nil, 0, 0, fmt.Errorf("cordeau header: vehicles: %w", err)
	}
	nbRequests, err := strconv.Atoi(fields[1])
	if err != nil {
		return nil, 0, 0, fmt.Errorf("cordeau header: requests: %w", err)
	}
	maxRouteDuration, err := strconv.ParseFloat(fields[2], 64)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("cordeau header: max route duration: %w", err)
	}
	capacity, err := strconv.Atoi(fields[3])
	if err != nil {
		return nil, 0, 0, fmt.Errorf("cordeau header: capacity: %w", err)
	}
	maxRideTime, err := strconv.ParseFloat(fields[4], 64)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("cordeau header: max ride time: %w", err)
	}
	if nbVehicles <= 0 {
		return nil, 0, 0, fmt.Errorf("cordeau header: vehicle count must be positive, got %d", nbVehicles)
	}
	if nbRequests < 0 {
		return nil, 0, 0, fmt.Errorf("cordeau header: negative request count %d", nbRequests)
	}
	if capacity <= 0 {
		return nil, 0, 0, fmt.Errorf("cordeau header: capacity must be positive, got %d", capacity)
	}
	for name, v := range map[string]float64{
		"max route duration": maxRouteDuration,
		"max ride time":      maxRideTime,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return nil, 0, 0, fmt.Errorf("cordeau header: %s must be a finite non-negative number, got %v", name, v)
		}
	}
	return &Dataset{
		Capacity:         capacity,
		MaxRouteDuration: maxRouteDuration,
		MaxRideTime:      maxRideTime,
	}, nbVehicles, nbRequests, nil
}

func parseNode(fields []string, lineNum int) (cordeauNode, error) {
	if len(fields) < 7 {
		return cordeauNode{}, fmt.Errorf("line %d: want 7 columns, got %d", lineNum, len(fields))
	}
	id, err := strconv.Atoi(fields[0])
	if err != nil {
		return cordeauNode{}, fmt.Errorf("line %d: id: %w", lineNum, err)
	}
	var vals [6]float64
	for i := range vals {
		vals[i], err = strconv.ParseFloat(fields[i+1], 64)
		if err != nil {
			return cordeauNode{}, fmt.Errorf("line %d: column %d: %w", lineNum, i+2, err)
		}
	}
	for i, v := range vals {
		if math.IsNaN(v) || (i < 2 && math.IsInf(v, 0)) {
			return cordeauNode{}, fmt.Errorf("line %d: column %d: %v is not a usable value", lineNum, i+2, v)
		}
	}
	return cordeauNode{
		id:     id,
		point:  sim.Point{X: vals[0], Y: vals[1]},
		window: sim.TimeWindow{Earliest: vals[4], Latest: vals[5]},
	}, nil
}

// WriteCordeau writes inst in Cordeau format with the given depot horizon.
// Header capacity, route duration and ride time come from the first vehicle
// and the first request. Pickup rows are numbered by request ID, so instances
// whose IDs are 1..n survive a write/parse round trip unchanged.
func WriteCordeau(w io.Writer, inst *sim.Instance, horizon float64) error {
	n := len(inst.Requests)
	capacity, maxRouteDuration, maxRideTime := 0, 0.0, 0.0
	if len(inst.Vehicles) > 0 {
		capacity = inst.Vehicles[0].Capacity
		maxRouteDuration = inst.Vehicles[0].MaxRouteDuration
	}
	if n > 0 {
		maxRideTime = inst.Requests[0].MaxRideTime
	}

	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%d %d %s %d %s\n", len(inst.Vehicles), n, ftoa(maxRouteDuration), capacity, ftoa(maxRideTime))
	writeNode(bw, 0, inst.StartDepot, 0, sim.TimeWindow{Earliest: 0, Latest: horizon})
	for _, r := range inst.Requests {
		writeNode(bw, r.ID, r.Pickup, 1, r.StartWindow)
	}
	for _, r := range inst.Requests {
		writeNode(bw, n+r.ID, r.Dropoff, -1, r.EndWindow)
	}
	writeNode(bw, 2*n+1, inst.EndDepot, 0, sim.TimeWindow{Earliest: 0, Latest: horizon})
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("writing cordeau instance: %w", err)
	}
	return nil
}

func writeNode(w io.Writer, id int, p sim.Point, load int, tw sim.TimeWindow) {
	fmt.Fprintf(w, "%d %s %s 0 %d %s %s\n", id, ftoa(p.X), ftoa(p.Y), load, ftoa(tw.Earliest), ftoa(tw.Latest))
}

func ftoa(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
