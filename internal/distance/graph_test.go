package distance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testGraph(t *testing.T) *Graph {
	t.Helper()
	g, err := NewGraph(
		[]string{"HUB", "A", "B"},
		[][]float64{
			{0, 0, 0},
			{2.5, 0, 0},
			{4.0, 1.5, 0},
		},
	)
	require.NoError(t, err)
	return g
}

func TestLowerTriangleMirrored(t *testing.T) {
	g := testGraph(t)

	d, err := g.Distance("HUB", "B")
	require.NoError(t, err)
	assert.Equal(t, 4.0, d)

	rev, err := g.Distance("B", "HUB")
	require.NoError(t, err)
	assert.Equal(t, d, rev)
}

func TestDiagonalZero(t *testing.T) {
	g := testGraph(t)
	d, err := g.Distance("A", "A")
	require.NoError(t, err)
	assert.Zero(t, d)
}

func TestUnknownLocation(t *testing.T) {
	g := testGraph(t)

	_, err := g.Distance("HUB", "nowhere")
	assert.ErrorIs(t, err, ErrUnknownLocation)

	_, err = g.Distance("nowhere", "HUB")
	assert.ErrorIs(t, err, ErrUnknownLocation)
}

func TestHubIsFirstListed(t *testing.T) {
	g := testGraph(t)
	assert.Equal(t, "HUB", g.Hub())
}

func TestNegativeDistanceRejected(t *testing.T) {
	_, err := NewGraph(
		[]string{"HUB", "A"},
		[][]float64{
			{0, 0},
			{-1, 0},
		},
	)
	assert.Error(t, err)
}

func TestDimensionMismatchRejected(t *testing.T) {
	_, err := NewGraph([]string{"HUB", "A"}, [][]float64{{0, 0}})
	assert.Error(t, err)

	_, err = NewGraph([]string{"HUB", "A"}, [][]float64{{0}, {1, 0, 9}})
	assert.Error(t, err)
}

func TestJaggedLowerTriangleAccepted(t *testing.T) {
	g, err := NewGraph(
		[]string{"HUB", "A", "B"},
		[][]float64{
			{0},
			{2.5, 0},
			{4.0, 1.5, 0},
		},
	)
	require.NoError(t, err)

	d, err := g.Distance("A", "B")
	require.NoError(t, err)
	assert.Equal(t, 1.5, d)

	rev, err := g.Distance("B", "A")
	require.NoError(t, err)
	assert.Equal(t, d, rev)

	d, err = g.Distance("HUB", "B")
	require.NoError(t, err)
	assert.Equal(t, 4.0, d)
}

func TestMatchNormalizedSubstring(t *testing.T) {
	g, err := NewGraph(
		[]string{
			"Western Governors University 4001 South 700 East, Salt Lake City, UT 84107",
			"Sugar House Park 1330 2100 S, Salt Lake City, UT 84106",
		},
		[][]float64{
			{0, 0},
			{3.8, 0},
		},
	)
	require.NoError(t, err)

	name, ok := g.Match("4001 South 700 East")
	require.True(t, ok)
	assert.Contains(t, name, "4001 South 700 East")

	name, ok = g.Match("1330 2100 S.")
	require.True(t, ok)
	assert.Contains(t, name, "Sugar House")

	_, ok = g.Match("500 Nowhere Ln")
	assert.False(t, ok)
}
