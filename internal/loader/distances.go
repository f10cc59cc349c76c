package loader

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	"fleetsim/internal/distance"
)

// LoadDistances reads a distance-table CSV into a Graph. Spreadsheet exports
// of these tables are messy: metadata rows above the header, embedded
// newlines inside location names, label columns shifting the numbers right,
// and only the lower triangle filled in. The loader locates the real table,
// parses what it can, and leaves mirroring to the graph constructor.
func LoadDistances(path string) (*distance.Graph, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open distances file: %w", err)
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: distances file: %v", ErrMalformedInput, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: distances file is empty", ErrMalformedInput)
	}

	headerRow := findHeaderRow(rows)
	if headerRow < 0 {
		return nil, fmt.Errorf("%w: no distance-table header row found", ErrMalformedInput)
	}

	var names []string
	for _, cell := range rows[headerRow][1:] {
		if name := cleanName(cell); name != "" {
			names = append(names, name)
		}
	}
	n := len(names)

	body := collectBodyRows(rows, headerRow+1, n)
	if len(body) < n {
		return nil, fmt.Errorf("%w: header lists %d locations but only %d data rows follow", ErrMalformedInput, n, len(body))
	}

	matrix := make([][]float64, n)
	for i := 0; i < n; i++ {
		matrix[i] = make([]float64, n)
		row := body[i]

		// Some exports insert a label column before the numbers; start at
		// the first numeric cell.
		start := -1
		for k := 1; k < len(row); k++ {
			if _, ok := toFloat(row[k]); ok {
				start = k
				break
			}
		}
		if start < 0 {
			continue
		}

		for j := 0; j < n && start+j < len(row); j++ {
			if v, ok := toFloat(row[start+j]); ok {
				matrix[i][j] = v
			}
		}
	}

	g, err := distance.NewGraph(names, matrix)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}
	return g, nil
}

// findHeaderRow scores each row by how many non-numeric, non-empty cells it
// has after column 0 and picks the densest candidate. Real tables have a
// header full of location names; metadata rows do not. Tables need at least
// three locations: shorter rows cannot be told apart from title or metadata
// lines.
func findHeaderRow(rows [][]string) int {
	best, bestScore := -1, -1
	for i, row := range rows {
		if len(row) < 4 {
			continue
		}
		score := 0
		for _, cell := range row[1:] {
			s := strings.TrimSpace(cell)
			if s == "" {
				continue
			}
			if _, numeric := toFloat(s); !numeric {
				score++
			}
		}
		if score >= 2 && score > bestScore {
			bestScore = score
			best = i
		}
	}
	return best
}

func collectBodyRows(rows [][]string, from, want int) [][]string {
	var body [][]string
	for i := from; i < len(rows) && len(body) < want; i++ {
		row := rows[i]
		if len(row) > 0 && strings.TrimSpace(row[0]) != "" {
			body = append(body, row)
		}
	}
	return body
}

func toFloat(cell string) (float64, bool) {
	s := strings.TrimSpace(strings.ReplaceAll(cell, `"`, ""))
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func cleanName(cell string) string {
	s := strings.ReplaceAll(cell, "\n", " ")
	s = strings.ReplaceAll(s, "\r", " ")
	return strings.Join(strings.Fields(s), " ")
}
