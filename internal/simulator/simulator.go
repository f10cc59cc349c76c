// Package simulator runs the one-day fleet simulation: it partitions
// packages into truck loads, honors note constraints, builds a route per
// truck, and replays the routes against a simulated clock. The replay yields
// per-package delivery timestamps, per-truck mileage, and a chronological
// event stream.
package simulator

import (
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/lucsky/cuid"

	"fleetsim/internal/distance"
	"fleetsim/internal/models"
	"fleetsim/internal/router"
	"fleetsim/internal/store"
)

type Simulator struct {
	Config *models.Config
	Store  *store.PackageStore
	Graph  *distance.Graph

	Trucks []*models.Truck
	Events []*models.Event // chronological after Run

	RunID      string
	DayStart   time.Time
	TotalMiles float64

	ran bool
}

func NewSimulator(cfg *models.Config, st *store.PackageStore, g *distance.Graph) (*Simulator, error) {
	dayStart, err := cfg.DayStartTime()
	if err != nil {
		return nil, err
	}
	return &Simulator{
		Config:   cfg,
		Store:    st,
		Graph:    g,
		RunID:    cuid.New(),
		DayStart: dayStart,
	}, nil
}

// Run executes the whole pipeline. Assignment errors abort before any route
// is built; a run that starts always completes, and late deliveries are
// reported rather than failed.
func (s *Simulator) Run() error {
	if s.ran {
		return fmt.Errorf("simulation already ran")
	}

	ids := s.Store.IDs()
	if len(ids) == 0 {
		return fmt.Errorf("no packages loaded")
	}
	packages := make(map[int]*models.Package, len(ids))
	for _, id := range ids {
		p, err := s.Store.Get(id)
		if err != nil {
			return err
		}
		packages[id] = p
	}

	units, err := buildUnits(packages, ids)
	if err != nil {
		return err
	}
	loads, err := assignLoads(units, s.Config.TruckCount, s.Config.TruckCapacity, s.DayStart)
	if err != nil {
		return err
	}

	queue := models.NewEventQueue()

	s.Trucks = make([]*models.Truck, s.Config.TruckCount)
	for i := range s.Trucks {
		truck := models.NewTruck(i+1, s.Config.TruckCapacity, s.Config.SpeedMPH)
		for _, id := range loads[i] {
			if err := truck.Load(id); err != nil {
				return fmt.Errorf("%w: %v", ErrUnassignableConstraint, err)
			}
		}
		s.Trucks[i] = truck
	}

	// Trucks beyond the driver pool wait for the earliest returning driver.
	driversFree := make([]time.Time, s.Config.DriverCount)
	for i := range driversFree {
		driversFree[i] = s.DayStart
	}

	for _, truck := range s.Trucks {
		if len(truck.Carried) == 0 {
			continue
		}
		di := earliestDriver(driversFree)
		departAt := driversFree[di]
		if gate := latestGate(truck.Carried, packages); gate.After(departAt) {
			departAt = gate
		}

		s.applyCorrections(truck, packages, departAt, queue)

		if err := s.dispatch(truck, packages, departAt, queue); err != nil {
			return err
		}
		driversFree[di] = truck.ReturnAt
		s.TotalMiles += truck.Miles
	}

	for event := queue.Dequeue(); event != nil; event = queue.Dequeue() {
		s.Events = append(s.Events, event)
	}

	s.ran = true
	log.Printf("run %s complete: %d trucks, %d packages, %.2f miles",
		s.RunID, len(s.Trucks), len(ids), s.TotalMiles)
	return nil
}

func earliestDriver(free []time.Time) int {
	best := 0
	for i := 1; i < len(free); i++ {
		if free[i].Before(free[best]) {
			best = i
		}
	}
	return best
}

func latestGate(ids []int, packages map[int]*models.Package) time.Time {
	var latest time.Time
	for _, id := range ids {
		c := packages[id].Constraint
		if c.Kind == models.AvailableAfter || c.Kind == models.WrongAddressUntil {
			if c.AvailableAt.After(latest) {
				latest = c.AvailableAt
			}
		}
	}
	return latest
}

// applyCorrections rewrites wrong addresses that become effective by the
// truck's departure. Assignment keeps such packages on trucks departing
// after the correction time, so routes are always built against the final
// address.
func (s *Simulator) applyCorrections(truck *models.Truck, packages map[int]*models.Package, departAt time.Time, queue *models.EventQueue) {
	for _, id := range truck.Carried {
		p := packages[id]
		c := p.Constraint
		if c.Kind != models.WrongAddressUntil || c.NewAddress == "" {
			continue
		}
		if c.AvailableAt.After(departAt) {
			continue
		}
		oldAddress := p.Address
		p.Address = c.NewAddress
		if c.NewZip != "" {
			p.Zip = c.NewZip
		}
		if name, ok := s.Graph.Match(p.Address); ok {
			p.Location = name
		}
		p.Constraint.NewAddress = "" // applied exactly once

		queue.Enqueue(&models.Event{
			Time: c.AvailableAt,
			Type: models.EventAddressCorrected,
			Data: &AddressCorrection{PackageID: id, OldAddress: oldAddress, NewAddress: p.Address, At: c.AvailableAt},
		})
	}
}

// dispatch builds the truck's route and replays it, stamping departure and
// delivery times on every carried package.
func (s *Simulator) dispatch(truck *models.Truck, packages map[int]*models.Package, departAt time.Time, queue *models.EventQueue) error {
	byLocation := make(map[string][]int)
	for _, id := range truck.Carried {
		loc := packages[id].Location
		byLocation[loc] = append(byLocation[loc], id)
	}

	stops := make([]string, 0, len(byLocation))
	for loc := range byLocation {
		stops = append(stops, loc)
	}
	sort.Strings(stops)

	deadlines := make(map[string]time.Time)
	for loc, idsHere := range byLocation {
		for _, id := range idsHere {
			d := packages[id].Deadline
			if d == nil {
				continue
			}
			if cur, ok := deadlines[loc]; !ok || d.Before(cur) {
				deadlines[loc] = *d
			}
		}
	}

	route, err := router.BuildRoute(s.Graph, s.Graph.Hub(), stops, router.Options{
		DepartAt:    departAt,
		SpeedMPH:    truck.SpeedMPH,
		Deadlines:   deadlines,
		TwoOptLimit: s.Config.TwoOptLimit,
	})
	if err != nil {
		return fmt.Errorf("route truck %d: %w", truck.ID, err)
	}

	truck.DepartAt = departAt
	truck.Route = route.Stops
	truck.State = models.TruckStateDispatched

	for _, id := range truck.Carried {
		p := packages[id]
		at := departAt
		p.DepartedAt = &at
		p.Status = models.StatusEnRoute
		p.TruckID = truck.ID
	}
	queue.Enqueue(&models.Event{
		Time: departAt,
		Type: models.EventTruckDeparted,
		Data: &TruckDeparture{TruckID: truck.ID, At: departAt, Packages: len(truck.Carried)},
	})

	now := departAt
	cur := s.Graph.Hub()
	for _, stop := range route.Stops[1:] {
		leg, err := s.Graph.Distance(cur, stop)
		if err != nil {
			return err
		}
		now = now.Add(truck.TravelTime(leg))

		for _, id := range byLocation[stop] {
			p := packages[id]
			at := now
			p.DeliveredAt = &at
			p.Status = models.StatusDelivered

			late := p.Deadline != nil && now.After(*p.Deadline)
			queue.Enqueue(&models.Event{
				Time: now,
				Type: models.EventPackageDelivered,
				Data: &PackageDelivery{PackageID: id, TruckID: truck.ID, Location: stop, At: now, Late: late},
			})
		}
		cur = stop
	}

	// A route with no stops beyond the hub still delivers hub-resolved
	// packages at the departure instant.
	for _, id := range byLocation[cur] {
		p := packages[id]
		if p.DeliveredAt != nil {
			continue
		}
		at := now
		p.DeliveredAt = &at
		p.Status = models.StatusDelivered
		queue.Enqueue(&models.Event{
			Time: now,
			Type: models.EventPackageDelivered,
			Data: &PackageDelivery{PackageID: id, TruckID: truck.ID, Location: cur, At: now},
		})
	}

	truck.Miles = route.Miles
	truck.ReturnAt = now
	truck.State = models.TruckStateReturned
	queue.Enqueue(&models.Event{
		Time: now,
		Type: models.EventTruckReturned,
		Data: &TruckReturn{TruckID: truck.ID, At: now, Miles: truck.Miles},
	})
	return nil
}
