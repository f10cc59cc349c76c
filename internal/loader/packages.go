// Package loader reads the package manifest and the distance table from CSV
// exports. Both files commonly come out of spreadsheets, so parsing is
// forgiving about header variants and stray formatting; anything that still
// fails to parse aborts the run with ErrMalformedInput.
package loader

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"fleetsim/internal/distance"
	"fleetsim/internal/models"
)

var ErrMalformedInput = errors.New("malformed input")

var (
	clockPattern     = regexp.MustCompile(`(\d{1,2}):(\d{2})\s*(am|pm|AM|PM)?`)
	intPattern       = regexp.MustCompile(`\d+`)
	onlyTruckPattern = regexp.MustCompile(`(?i)only be on truck (\d+)`)
	correctedPattern = regexp.MustCompile(`(?i)corrected to (.+?)(?:\s+at\s+\d{1,2}:\d{2}\s*(?:am|pm)?)?\s*$`)
)

// LoadPackages reads the package manifest CSV. Deadlines and note times are
// anchored to day (the simulated date). Expected columns:
// ID, Address, City, Zip, Deadline, Weight, Note; minor header variations
// are tolerated.
func LoadPackages(path string, day time.Time) ([]*models.Package, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open packages file: %w", err)
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: packages file has no header", ErrMalformedInput)
	}
	cols := headerIndex(header)

	var packages []*models.Package
	line := 1
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("%w: packages line %d: %v", ErrMalformedInput, line, err)
		}

		pkg, err := parsePackageRow(record, cols, day)
		if err != nil {
			return nil, fmt.Errorf("%w: packages line %d: %v", ErrMalformedInput, line, err)
		}
		packages = append(packages, pkg)
	}

	if len(packages) == 0 {
		return nil, fmt.Errorf("%w: packages file contains no records", ErrMalformedInput)
	}
	return packages, nil
}

func headerIndex(header []string) map[string]int {
	cols := make(map[string]int, len(header))
	for i, h := range header {
		key := strings.ToLower(strings.Join(strings.Fields(h), " "))
		switch key {
		case "id", "packageid", "package id", "package":
			cols["id"] = i
		case "address", "delivery address":
			cols["address"] = i
		case "city":
			cols["city"] = i
		case "zip", "zip code":
			cols["zip"] = i
		case "deadline", "delivery deadline":
			cols["deadline"] = i
		case "weight", "mass kilo", "weight kilo":
			cols["weight"] = i
		case "note", "notes", "special note", "special notes":
			cols["note"] = i
		}
	}
	return cols
}

func field(record []string, cols map[string]int, name string) string {
	i, ok := cols[name]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

func parsePackageRow(record []string, cols map[string]int, day time.Time) (*models.Package, error) {
	id, err := strconv.Atoi(field(record, cols, "id"))
	if err != nil || id <= 0 {
		return nil, fmt.Errorf("bad package ID %q", field(record, cols, "id"))
	}

	address := field(record, cols, "address")
	if address == "" {
		return nil, fmt.Errorf("package %d has no address", id)
	}

	deadline, err := ParseDeadline(field(record, cols, "deadline"), day)
	if err != nil {
		return nil, fmt.Errorf("package %d: %v", id, err)
	}

	weight := 0.0
	if w := field(record, cols, "weight"); w != "" {
		weight, err = strconv.ParseFloat(w, 64)
		if err != nil {
			return nil, fmt.Errorf("package %d: bad weight %q", id, w)
		}
	}

	note := field(record, cols, "note")
	constraint, err := ParseNote(note, day)
	if err != nil {
		return nil, fmt.Errorf("package %d: %v", id, err)
	}

	return &models.Package{
		ID:         id,
		Address:    address,
		City:       field(record, cols, "city"),
		Zip:        field(record, cols, "zip"),
		Deadline:   deadline,
		Weight:     weight,
		Note:       note,
		Constraint: constraint,
		Status:     models.StatusAtHub,
	}, nil
}

// ParseDeadline turns the manifest deadline column into a concrete time on
// the simulated day. "EOD" / "End of Day" / empty mean no deadline (nil).
func ParseDeadline(s string, day time.Time) (*time.Time, error) {
	trimmed := strings.ToUpper(strings.TrimSpace(s))
	if trimmed == "" || trimmed == "EOD" || trimmed == "END OF DAY" {
		return nil, nil
	}
	t, ok := parseClock(s, day)
	if !ok {
		return nil, fmt.Errorf("bad deadline %q", s)
	}
	return &t, nil
}

// parseClock extracts the first HH:MM (with optional am/pm) from s and
// anchors it to day.
func parseClock(s string, day time.Time) (time.Time, bool) {
	m := clockPattern.FindStringSubmatch(s)
	if m == nil {
		return time.Time{}, false
	}
	hour, _ := strconv.Atoi(m[1])
	minute, _ := strconv.Atoi(m[2])
	switch strings.ToLower(m[3]) {
	case "pm":
		if hour != 12 {
			hour += 12
		}
	case "am":
		if hour == 12 {
			hour = 0
		}
	}
	if hour > 23 || minute > 59 {
		return time.Time{}, false
	}
	return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, day.Location()), true
}

// ParseNote converts a free-text special note into a tagged constraint. The
// note text is kept on the package for display, but nothing downstream ever
// re-parses it.
func ParseNote(note string, day time.Time) (models.Constraint, error) {
	low := strings.ToLower(strings.TrimSpace(note))
	if low == "" {
		return models.Constraint{Kind: models.NoConstraint}, nil
	}

	if m := onlyTruckPattern.FindStringSubmatch(note); m != nil {
		truck, _ := strconv.Atoi(m[1])
		return models.Constraint{Kind: models.OnlyTruck, TruckID: truck}, nil
	}

	if strings.Contains(low, "must be delivered with") {
		ids := intPattern.FindAllString(note, -1)
		group := make([]int, 0, len(ids))
		for _, raw := range ids {
			id, _ := strconv.Atoi(raw)
			group = append(group, id)
		}
		if len(group) == 0 {
			return models.Constraint{}, fmt.Errorf("deliver-with note lists no package IDs: %q", note)
		}
		return models.Constraint{Kind: models.GroupWith, GroupIDs: group}, nil
	}

	if strings.Contains(low, "wrong address") {
		// The correction time and address may be spelled out in the note;
		// fall back to the depot's standing 10:20 correction when absent.
		at, ok := parseClock(note, day)
		if !ok {
			at = time.Date(day.Year(), day.Month(), day.Day(), 10, 20, 0, 0, day.Location())
		}
		c := models.Constraint{Kind: models.WrongAddressUntil, AvailableAt: at}
		if m := correctedPattern.FindStringSubmatch(note); m != nil {
			c.NewAddress = strings.TrimSpace(m[1])
		}
		return c, nil
	}

	if strings.Contains(low, "delayed") || strings.Contains(low, "will not arrive") {
		// Delay notes without an explicit time use the depot's usual 9:05
		// flight arrival.
		at, ok := parseClock(note, day)
		if !ok {
			at = time.Date(day.Year(), day.Month(), day.Day(), 9, 5, 0, 0, day.Location())
		}
		return models.Constraint{Kind: models.AvailableAfter, AvailableAt: at}, nil
	}

	// Unrecognized notes carry no routing constraint.
	return models.Constraint{Kind: models.NoConstraint}, nil
}

// ResolveLocations matches every package address (and any corrected address)
// to a distance-table location. Unmatched addresses fall back to the hub so
// imperfect exports still simulate.
func ResolveLocations(packages []*models.Package, graph *distance.Graph) {
	for _, p := range packages {
		if name, ok := graph.Match(p.Address); ok {
			p.Location = name
		} else {
			p.Location = graph.Hub()
		}
	}
}
