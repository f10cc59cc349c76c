package models

import (
	"fmt"
	"time"
)

// Truck carries assigned packages and drives a computed route.
type Truck struct {
	ID       int
	SpeedMPH float64
	Capacity int
	State    string // LOADING | DISPATCHED | RETURNED

	Carried []int // package IDs in load order

	DepartAt time.Time
	ReturnAt time.Time
	Route    []string // location names, hub at both ends
	Miles    float64
}

func NewTruck(id int, capacity int, speedMPH float64) *Truck {
	return &Truck{
		ID:       id,
		Capacity: capacity,
		SpeedMPH: speedMPH,
		State:    TruckStateLoading,
	}
}

// Load adds a package ID, enforcing the capacity bound.
func (t *Truck) Load(packageID int) error {
	if len(t.Carried) >= t.Capacity {
		return fmt.Errorf("load truck %d: at full capacity (%d)", t.ID, t.Capacity)
	}
	t.Carried = append(t.Carried, packageID)
	return nil
}

// TravelTime converts a leg distance to drive time at the truck's fixed speed.
// Times are rounded to whole minutes so repeated runs stay bit-identical.
func (t *Truck) TravelTime(miles float64) time.Duration {
	minutes := int(miles/t.SpeedMPH*60.0 + 0.5)
	return time.Duration(minutes) * time.Minute
}
