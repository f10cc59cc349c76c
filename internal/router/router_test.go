package router

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fleetsim/internal/distance"
)

var depart = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

func opts() Options {
	return Options{DepartAt: depart, SpeedMPH: 18, TwoOptLimit: 32}
}

func grid(t *testing.T) *distance.Graph {
	t.Helper()
	// Points on a line: HUB=0, A=1, B=2, C=3, D=10. Nearest-neighbor already
	// finds the optimal sweep here.
	g, err := distance.NewGraph(
		[]string{"HUB", "A", "B", "C", "D"},
		[][]float64{
			{0, 0, 0, 0, 0},
			{1, 0, 0, 0, 0},
			{2, 1, 0, 0, 0},
			{3, 2, 1, 0, 0},
			{10, 9, 8, 7, 0},
		},
	)
	require.NoError(t, err)
	return g
}

func TestRouteIsPermutationFramedByStart(t *testing.T) {
	g := grid(t)
	stops := []string{"C", "A", "D", "B"}

	route, err := BuildRoute(g, "HUB", stops, opts())
	require.NoError(t, err)

	require.Len(t, route.Stops, len(stops)+2)
	assert.Equal(t, "HUB", route.Stops[0])
	assert.Equal(t, "HUB", route.Stops[len(route.Stops)-1])

	visited := map[string]int{}
	for _, s := range route.Stops[1 : len(route.Stops)-1] {
		visited[s]++
	}
	for _, s := range stops {
		assert.Equal(t, 1, visited[s], "stop %s must be visited exactly once", s)
	}
}

func TestEmptyStops(t *testing.T) {
	g := grid(t)
	route, err := BuildRoute(g, "HUB", nil, opts())
	require.NoError(t, err)
	assert.Equal(t, []string{"HUB"}, route.Stops)
	assert.Zero(t, route.Miles)
}

func TestDuplicateStopsCollapsed(t *testing.T) {
	g := grid(t)
	route, err := BuildRoute(g, "HUB", []string{"A", "A", "B", "HUB"}, opts())
	require.NoError(t, err)
	assert.Equal(t, []string{"HUB", "A", "B", "HUB"}, route.Stops)
}

func TestUnknownStopRejected(t *testing.T) {
	g := grid(t)
	_, err := BuildRoute(g, "HUB", []string{"A", "Z"}, opts())
	assert.ErrorIs(t, err, distance.ErrUnknownLocation)

	_, err = BuildRoute(g, "Z", []string{"A"}, opts())
	assert.ErrorIs(t, err, distance.ErrUnknownLocation)
}

func TestNearestNeighborOrder(t *testing.T) {
	g := grid(t)
	o := opts()
	o.TwoOptLimit = 0

	route, err := BuildRoute(g, "HUB", []string{"D", "C", "B", "A"}, o)
	require.NoError(t, err)
	assert.Equal(t, []string{"HUB", "A", "B", "C", "D", "HUB"}, route.Stops)
	assert.Equal(t, 3.0+7.0+10.0, route.Miles)
}

func TestTwoOptNeverWorseThanGreedy(t *testing.T) {
	// Crossing layout where plain nearest-neighbor is suboptimal: greedy from
	// HUB goes A first (1.0), then the cheap chain pulls it across the map.
	g, err := distance.NewGraph(
		[]string{"HUB", "A", "B", "C", "D"},
		[][]float64{
			{0, 0, 0, 0, 0},
			{1.0, 0, 0, 0, 0},
			{1.2, 5.0, 0, 0, 0},
			{5.0, 1.1, 4.8, 0, 0},
			{4.9, 5.1, 1.3, 5.2, 0},
		},
	)
	require.NoError(t, err)

	stops := []string{"A", "B", "C", "D"}

	greedyOpts := opts()
	greedyOpts.TwoOptLimit = 0
	greedy, err := BuildRoute(g, "HUB", stops, greedyOpts)
	require.NoError(t, err)

	improved, err := BuildRoute(g, "HUB", stops, opts())
	require.NoError(t, err)

	assert.LessOrEqual(t, improved.Miles, greedy.Miles)
}

func TestDeterministicTieBreak(t *testing.T) {
	// B and C are equidistant from everywhere; the smaller name must win.
	g, err := distance.NewGraph(
		[]string{"HUB", "B", "C"},
		[][]float64{
			{0, 0, 0},
			{2, 0, 0},
			{2, 3, 0},
		},
	)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		route, err := BuildRoute(g, "HUB", []string{"C", "B"}, opts())
		require.NoError(t, err)
		assert.Equal(t, "B", route.Stops[1])
	}
}

func TestLatenessPenaltyBreaksDistanceTie(t *testing.T) {
	// A and B are equidistant from the hub. The plain tie-break prefers A,
	// but a blown deadline at A penalizes it, so B is visited first.
	g, err := distance.NewGraph(
		[]string{"HUB", "A", "B"},
		[][]float64{
			{0, 0, 0},
			{2, 0, 0},
			{2, 3, 0},
		},
	)
	require.NoError(t, err)

	o := Options{DepartAt: depart, SpeedMPH: 18, TwoOptLimit: 0}
	route, err := BuildRoute(g, "HUB", []string{"A", "B"}, o)
	require.NoError(t, err)
	assert.Equal(t, "A", route.Stops[1])

	o.Deadlines = map[string]time.Time{"A": depart.Add(-10 * time.Minute)}
	route, err = BuildRoute(g, "HUB", []string{"A", "B"}, o)
	require.NoError(t, err)
	assert.Equal(t, "B", route.Stops[1])
}
