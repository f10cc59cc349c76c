// Package router builds per-truck delivery routes: a deadline-aware
// nearest-neighbor construction followed by a bounded 2-opt improvement
// pass. The result is a heuristic, not an exact TSP solution.
package router

import (
	"fmt"
	"time"

	"fleetsim/internal/distance"
)

// latePenaltyPerMinute biases the greedy step toward stops whose deadline
// would otherwise be missed. One late minute weighs as much as five miles.
const latePenaltyPerMinute = 5.0

type Options struct {
	DepartAt time.Time
	SpeedMPH float64

	// Deadlines maps a stop to the earliest deadline among the packages
	// delivered there. Stops without deadlines are scored by distance alone.
	Deadlines map[string]time.Time

	// TwoOptLimit caps the number of accepted 2-opt reversals. Zero disables
	// the improvement pass entirely.
	TwoOptLimit int
}

// Route is an ordered drive starting and ending at the same location.
type Route struct {
	Stops []string // start, each stop once, start
	Miles float64
}

// BuildRoute orders stops into a closed route from start. Duplicate stops
// and the start itself are dropped from the input; every remaining stop is
// visited exactly once. The 2-opt pass only replaces the greedy order when
// it is strictly shorter and does not miss more deadlines.
func BuildRoute(g *distance.Graph, start string, stops []string, opts Options) (Route, error) {
	if !g.Contains(start) {
		return Route{}, fmt.Errorf("%w: %q", distance.ErrUnknownLocation, start)
	}
	if opts.SpeedMPH <= 0 {
		return Route{}, fmt.Errorf("route speed must be positive, got %v", opts.SpeedMPH)
	}

	seen := map[string]bool{start: true}
	unique := make([]string, 0, len(stops))
	for _, s := range stops {
		if !g.Contains(s) {
			return Route{}, fmt.Errorf("%w: %q", distance.ErrUnknownLocation, s)
		}
		if !seen[s] {
			seen[s] = true
			unique = append(unique, s)
		}
	}

	if len(unique) == 0 {
		return Route{Stops: []string{start}}, nil
	}

	order := nearestNeighbor(g, start, unique, opts)

	if opts.TwoOptLimit > 0 && len(order) >= 4 {
		improved := twoOpt(g, start, order, opts)
		if miles(g, start, improved) < miles(g, start, order)-1e-9 &&
			lateCount(g, start, improved, opts) <= lateCount(g, start, order, opts) {
			order = improved
		}
	}

	framed := make([]string, 0, len(order)+2)
	framed = append(framed, start)
	framed = append(framed, order...)
	framed = append(framed, start)

	return Route{Stops: framed, Miles: miles(g, start, order)}, nil
}

// nearestNeighbor repeatedly steps to the unvisited stop with the lowest
// score: distance plus a lateness penalty for deadline stops. Equal scores
// break toward the lexicographically smaller name so runs are reproducible.
func nearestNeighbor(g *distance.Graph, start string, stops []string, opts Options) []string {
	remaining := append([]string(nil), stops...)
	order := make([]string, 0, len(stops))

	cur := start
	now := opts.DepartAt

	for len(remaining) > 0 {
		bestIdx := -1
		bestScore := 0.0
		var bestMiles float64

		for i, candidate := range remaining {
			d, _ := g.Distance(cur, candidate)
			arrival := now.Add(travelTime(d, opts.SpeedMPH))

			score := d
			if deadline, ok := opts.Deadlines[candidate]; ok && arrival.After(deadline) {
				score += arrival.Sub(deadline).Minutes() * latePenaltyPerMinute
			}

			if bestIdx < 0 || score < bestScore ||
				(score == bestScore && candidate < remaining[bestIdx]) {
				bestIdx = i
				bestScore = score
				bestMiles = d
			}
		}

		next := remaining[bestIdx]
		order = append(order, next)
		remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)
		now = now.Add(travelTime(bestMiles, opts.SpeedMPH))
		cur = next
	}
	return order
}

// twoOpt reverses route segments while each reversal strictly shortens the
// closed tour, up to opts.TwoOptLimit accepted reversals. A sweep with no
// improvement ends the pass early.
func twoOpt(g *distance.Graph, start string, order []string, opts Options) []string {
	route := append([]string(nil), order...)
	best := miles(g, start, route)
	accepted := 0

	improved := true
	for improved && accepted < opts.TwoOptLimit {
		improved = false
		n := len(route)
		for i := 0; i < n-2; i++ {
			for j := i + 1; j < n-1; j++ {
				candidate := append([]string(nil), route...)
				reverse(candidate[i : j+1])
				if m := miles(g, start, candidate); m < best-1e-9 {
					route = candidate
					best = m
					accepted++
					improved = true
					if accepted >= opts.TwoOptLimit {
						return route
					}
				}
			}
		}
	}
	return route
}

func reverse(s []string) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}

// miles totals the closed tour start -> order... -> start.
func miles(g *distance.Graph, start string, order []string) float64 {
	total := 0.0
	cur := start
	for _, stop := range order {
		d, _ := g.Distance(cur, stop)
		total += d
		cur = stop
	}
	d, _ := g.Distance(cur, start)
	return total + d
}

// lateCount replays the order at fixed speed and counts stops arrived at
// after their deadline.
func lateCount(g *distance.Graph, start string, order []string, opts Options) int {
	late := 0
	cur := start
	now := opts.DepartAt
	for _, stop := range order {
		d, _ := g.Distance(cur, stop)
		now = now.Add(travelTime(d, opts.SpeedMPH))
		if deadline, ok := opts.Deadlines[stop]; ok && now.After(deadline) {
			late++
		}
		cur = stop
	}
	return late
}

// travelTime rounds a leg to whole minutes; the whole simulation keeps
// minute granularity so reruns are bit-identical.
func travelTime(miles float64, mph float64) time.Duration {
	minutes := int(miles/mph*60.0 + 0.5)
	return time.Duration(minutes) * time.Minute
}
