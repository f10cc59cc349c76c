package models

import "time"

// ConstraintKind tags the special-handling variants parsed from package notes.
type ConstraintKind int

const (
	NoConstraint ConstraintKind = iota
	GroupWith                   // must travel with the listed package IDs
	OnlyTruck                   // must be loaded on a specific truck
	AvailableAfter              // not at the hub before the given time
	WrongAddressUntil           // undeliverable until the address is corrected
)

// Constraint is the parsed form of a package note. Notes are parsed once at
// load time; nothing downstream re-reads the free text.
type Constraint struct {
	Kind        ConstraintKind
	GroupIDs    []int     // GroupWith
	TruckID     int       // OnlyTruck
	AvailableAt time.Time // AvailableAfter, WrongAddressUntil
	NewAddress  string    // WrongAddressUntil
	NewZip      string    // WrongAddressUntil
}

// Package is a deliverable item. PackageStore owns every Package record;
// the simulator and query façade mutate packages through store pointers only.
type Package struct {
	ID       int
	Address  string
	City     string
	Zip      string
	Deadline *time.Time // nil means end of day
	Weight   float64
	Note     string

	Constraint Constraint

	// Location is the distance-table name the delivery address resolved to.
	Location string

	// Populated by the simulator.
	Status      string // AT_HUB | EN_ROUTE | DELIVERED
	TruckID     int
	DepartedAt  *time.Time
	DeliveredAt *time.Time
}

// StatusAt reports the package state as of a given simulated instant.
func (p *Package) StatusAt(at time.Time) (string, *time.Time) {
	if p.DeliveredAt != nil && !p.DeliveredAt.After(at) {
		return StatusDelivered, p.DeliveredAt
	}
	if p.DepartedAt != nil && !p.DepartedAt.After(at) {
		return StatusEnRoute, nil
	}
	return StatusAtHub, nil
}

// DeadlineMinutes returns the deadline as minutes since midnight, or a large
// sentinel for end-of-day packages so they sort last.
func (p *Package) DeadlineMinutes() int {
	if p.Deadline == nil {
		return 24 * 60
	}
	return p.Deadline.Hour()*60 + p.Deadline.Minute()
}
