// Package distance holds the symmetric mileage matrix between named
// delivery locations. The graph is built once by the loader and read-only
// afterwards.
package distance

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var ErrUnknownLocation = errors.New("unknown location")

// Graph is an N×N symmetric non-negative mile matrix over location names.
// Index 0 is the hub.
type Graph struct {
	names  []string
	index  map[string]int
	matrix [][]float64
}

// NewGraph validates and mirrors the source matrix. The input may be
// lower-triangular; missing upper-triangle cells are filled from their
// mirror. The diagonal is forced to zero.
func NewGraph(names []string, matrix [][]float64) (*Graph, error) {
	n := len(names)
	if n == 0 {
		return nil, errors.New("distance graph needs at least one location")
	}
	if len(matrix) != n {
		return nil, fmt.Errorf("distance matrix has %d rows for %d locations", len(matrix), n)
	}

	// Rows may be shorter than n (lower-triangular input); short rows are
	// zero-padded and the mirroring pass below fills the gaps.
	m := make([][]float64, n)
	for i := range matrix {
		if len(matrix[i]) > n {
			return nil, fmt.Errorf("distance matrix row %d has %d columns, want at most %d", i, len(matrix[i]), n)
		}
		m[i] = make([]float64, n)
		copy(m[i], matrix[i])
	}

	index := make(map[string]int, n)
	for i, name := range names {
		if _, dup := index[name]; dup {
			return nil, fmt.Errorf("duplicate location name %q", name)
		}
		index[name] = i
	}

	for i := 0; i < n; i++ {
		m[i][i] = 0
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			if m[i][j] < 0 || m[j][i] < 0 {
				return nil, fmt.Errorf("negative distance between %q and %q", names[i], names[j])
			}
			if m[i][j] == 0 && m[j][i] != 0 {
				m[i][j] = m[j][i]
			} else if m[j][i] == 0 && m[i][j] != 0 {
				m[j][i] = m[i][j]
			}
		}
	}

	return &Graph{names: names, index: index, matrix: m}, nil
}

// Distance returns the miles between two named locations, symmetric in its
// arguments.
func (g *Graph) Distance(a, b string) (float64, error) {
	i, ok := g.index[a]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownLocation, a)
	}
	j, ok := g.index[b]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownLocation, b)
	}
	return g.matrix[i][j], nil
}

// Hub is the first listed location, the start and end of every route.
func (g *Graph) Hub() string {
	return g.names[0]
}

// Locations returns the location names in table order.
func (g *Graph) Locations() []string {
	out := make([]string, len(g.names))
	copy(out, g.names)
	return out
}

func (g *Graph) Contains(name string) bool {
	_, ok := g.index[name]
	return ok
}

var nonAlnum = regexp.MustCompile(`[^a-z0-9 ]+`)

// normalize lowercases and strips punctuation so street addresses can be
// matched against the wordier table names (which often carry a building name
// or city suffix).
func normalize(s string) string {
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", " ")
	s = nonAlnum.ReplaceAllString(s, " ")
	return strings.Join(strings.Fields(s), " ")
}

// Match resolves a street address to a location name by normalized substring
// match. The first table entry containing the address wins, so repeated runs
// resolve identically.
func (g *Graph) Match(address string) (string, bool) {
	key := normalize(address)
	if key == "" {
		return "", false
	}
	for _, name := range g.names {
		if strings.Contains(normalize(name), key) {
			return name, true
		}
	}
	return "", false
}
