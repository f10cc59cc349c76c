package simulator

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"fleetsim/internal/models"
)

// ErrUnassignableConstraint is returned when no feasible truck partition
// exists: a pinned truck that does not exist, a deliver-together group larger
// than a truck, conflicting pins inside one group, or plain overflow.
var ErrUnassignableConstraint = errors.New("unassignable constraint")

const eodMinutes = 24 * 60

// groupUnit is an indivisible set of packages that must share a truck.
// Singletons are units of one.
type groupUnit struct {
	ids             []int     // sorted
	deadlineMinutes int       // earliest deadline among members, eodMinutes if none
	pinned          int       // required truck ID, 0 if unconstrained
	gate            time.Time // latest earliest-available among members, zero if none
}

func (u *groupUnit) urgent() bool { return u.deadlineMinutes < eodMinutes }

// buildUnits merges deliver-together groups with union-find and folds each
// member's deadline, pin, and availability gate into its unit.
func buildUnits(packages map[int]*models.Package, ids []int) ([]*groupUnit, error) {
	parent := make(map[int]int, len(ids))
	var find func(int) int
	find = func(x int) int {
		if _, ok := parent[x]; !ok {
			parent[x] = x
		}
		if parent[x] != x {
			parent[x] = find(parent[x])
		}
		return parent[x]
	}
	union := func(a, b int) {
		ra, rb := find(a), find(b)
		if ra != rb {
			parent[rb] = ra
		}
	}

	for _, id := range ids {
		p := packages[id]
		if p.Constraint.Kind != models.GroupWith {
			continue
		}
		for _, other := range p.Constraint.GroupIDs {
			if _, ok := packages[other]; !ok {
				return nil, fmt.Errorf("%w: package %d grouped with unknown package %d", ErrUnassignableConstraint, id, other)
			}
			union(id, other)
		}
	}

	byRoot := make(map[int][]int)
	for _, id := range ids {
		root := find(id)
		byRoot[root] = append(byRoot[root], id)
	}

	roots := make([]int, 0, len(byRoot))
	for root := range byRoot {
		roots = append(roots, root)
	}
	sort.Ints(roots)

	units := make([]*groupUnit, 0, len(byRoot))
	for _, root := range roots {
		members := byRoot[root]
		sort.Ints(members)

		u := &groupUnit{ids: members, deadlineMinutes: eodMinutes}
		for _, id := range members {
			p := packages[id]
			if m := p.DeadlineMinutes(); m < u.deadlineMinutes {
				u.deadlineMinutes = m
			}
			switch p.Constraint.Kind {
			case models.OnlyTruck:
				if u.pinned != 0 && u.pinned != p.Constraint.TruckID {
					return nil, fmt.Errorf("%w: group %v pinned to trucks %d and %d", ErrUnassignableConstraint, members, u.pinned, p.Constraint.TruckID)
				}
				u.pinned = p.Constraint.TruckID
			case models.AvailableAfter, models.WrongAddressUntil:
				if p.Constraint.AvailableAt.After(u.gate) {
					u.gate = p.Constraint.AvailableAt
				}
			}
		}
		units = append(units, u)
	}
	return units, nil
}

// loadPlan holds one truck's package IDs during assignment.
type loadPlan struct {
	ids   []int
	units []*groupUnit
}

func (l *loadPlan) fits(u *groupUnit, capacity int) bool {
	return len(l.ids)+len(u.ids) <= capacity
}

func (l *loadPlan) add(u *groupUnit) {
	l.ids = append(l.ids, u.ids...)
	l.units = append(l.units, u)
}

func (l *loadPlan) remove(u *groupUnit) {
	kept := l.ids[:0]
	member := make(map[int]bool, len(u.ids))
	for _, id := range u.ids {
		member[id] = true
	}
	for _, id := range l.ids {
		if !member[id] {
			kept = append(kept, id)
		}
	}
	l.ids = kept

	keptUnits := l.units[:0]
	for _, other := range l.units {
		if other != u {
			keptUnits = append(keptUnits, other)
		}
	}
	l.units = keptUnits
}

// assignLoads partitions units across truckCount trucks of the given
// capacity. dayStart anchors the gating thresholds.
func assignLoads(units []*groupUnit, truckCount, capacity int, dayStart time.Time) ([][]int, error) {
	for _, u := range units {
		if len(u.ids) > capacity {
			return nil, fmt.Errorf("%w: group %v exceeds truck capacity %d", ErrUnassignableConstraint, u.ids, capacity)
		}
		if u.pinned > truckCount {
			return nil, fmt.Errorf("%w: group %v pinned to truck %d but only %d trucks exist", ErrUnassignableConstraint, u.ids, u.pinned, truckCount)
		}
	}

	plans := make([]*loadPlan, truckCount)
	for i := range plans {
		plans[i] = &loadPlan{}
	}

	var pinnedUnits, urgentUnits, normalUnits []*groupUnit
	for _, u := range units {
		switch {
		case u.pinned != 0:
			pinnedUnits = append(pinnedUnits, u)
		case u.urgent():
			urgentUnits = append(urgentUnits, u)
		default:
			normalUnits = append(normalUnits, u)
		}
	}
	sort.Slice(urgentUnits, func(i, j int) bool {
		a, b := urgentUnits[i], urgentUnits[j]
		if a.deadlineMinutes != b.deadlineMinutes {
			return a.deadlineMinutes < b.deadlineMinutes
		}
		return a.ids[0] < b.ids[0]
	})
	sort.Slice(normalUnits, func(i, j int) bool {
		return normalUnits[i].ids[0] < normalUnits[j].ids[0]
	})
	sort.Slice(pinnedUnits, func(i, j int) bool {
		return pinnedUnits[i].ids[0] < pinnedUnits[j].ids[0]
	})

	// Pinned units have no alternative truck.
	for _, u := range pinnedUnits {
		plan := plans[u.pinned-1]
		if !plan.fits(u, capacity) {
			return nil, fmt.Errorf("%w: truck %d cannot hold all packages pinned to it", ErrUnassignableConstraint, u.pinned)
		}
		plan.add(u)
	}

	// Urgent units go to the emptiest truck that fits, earlier trucks first
	// on ties, so tight deadlines ride trucks that leave early.
	for _, u := range urgentUnits {
		if err := placeEmptiest(plans, u, capacity); err != nil {
			return nil, err
		}
	}
	for _, u := range normalUnits {
		if err := placeFirstFit(plans, u, capacity); err != nil {
			return nil, err
		}
	}

	rebalanceGated(plans, capacity, dayStart)
	promoteUrgent(plans, capacity, dayStart)

	loads := make([][]int, truckCount)
	for i, plan := range plans {
		if len(plan.ids) > capacity {
			return nil, fmt.Errorf("%w: truck %d overflows capacity %d", ErrUnassignableConstraint, i+1, capacity)
		}
		ids := append([]int(nil), plan.ids...)
		sort.Ints(ids)
		loads[i] = ids
	}
	return loads, nil
}

func placeEmptiest(plans []*loadPlan, u *groupUnit, capacity int) error {
	best := -1
	for i, plan := range plans {
		if !plan.fits(u, capacity) {
			continue
		}
		if best < 0 || len(plan.ids) < len(plans[best].ids) {
			best = i
		}
	}
	if best < 0 {
		return fmt.Errorf("%w: no truck can hold group %v", ErrUnassignableConstraint, u.ids)
	}
	plans[best].add(u)
	return nil
}

func placeFirstFit(plans []*loadPlan, u *groupUnit, capacity int) error {
	for _, plan := range plans {
		if plan.fits(u, capacity) {
			plan.add(u)
			return nil
		}
	}
	return fmt.Errorf("%w: no truck can hold group %v", ErrUnassignableConstraint, u.ids)
}

// rebalanceGated moves units that are not available at day start off the
// first truck so it can leave on time. Late gates (two hours or more into
// the day) go to the last truck; short delays prefer the second truck.
func rebalanceGated(plans []*loadPlan, capacity int, dayStart time.Time) {
	if len(plans) < 2 {
		return
	}
	first := plans[0]
	last := plans[len(plans)-1]
	lateGate := dayStart.Add(2 * time.Hour)

	for _, u := range append([]*groupUnit(nil), first.units...) {
		if u.gate.IsZero() || !u.gate.After(dayStart) || u.pinned != 0 {
			continue
		}
		var target *loadPlan
		if !u.gate.Before(lateGate) {
			if last.fits(u, capacity) {
				target = last
			}
		} else if plans[1] != first && plans[1].fits(u, capacity) {
			target = plans[1]
		} else if last.fits(u, capacity) {
			target = last
		}
		if target != nil && target != first {
			first.remove(u)
			target.add(u)
		}
	}
}

// promoteUrgent pulls early-deadline, ungated, unpinned units onto the first
// truck, donating end-of-day units to the last truck to make room. A single
// pass keeps this polynomial; it is a heuristic fix-up, not a search.
func promoteUrgent(plans []*loadPlan, capacity int, dayStart time.Time) {
	if len(plans) < 2 {
		return
	}
	first := plans[0]
	last := plans[len(plans)-1]
	earlyDeadline := int(dayStart.Sub(startOfDay(dayStart)).Minutes()) + 150 // 10:30 for an 8:00 day

	for i := 1; i < len(plans); i++ {
		donor := plans[i]
		for _, u := range append([]*groupUnit(nil), donor.units...) {
			if u.deadlineMinutes > earlyDeadline || u.pinned != 0 {
				continue
			}
			if !u.gate.IsZero() && u.gate.After(dayStart) {
				continue
			}
			if !first.fits(u, capacity) {
				makeRoom(first, last, u, capacity, dayStart)
			}
			if first.fits(u, capacity) && donor != first {
				donor.remove(u)
				first.add(u)
			}
		}
	}
}

func makeRoom(first, last *loadPlan, incoming *groupUnit, capacity int, dayStart time.Time) {
	if first == last {
		return
	}
	for _, u := range append([]*groupUnit(nil), first.units...) {
		if first.fits(incoming, capacity) {
			return
		}
		if u.urgent() || u.pinned != 0 {
			continue
		}
		if !u.gate.IsZero() && u.gate.After(dayStart) {
			continue
		}
		if last.fits(u, capacity) {
			first.remove(u)
			last.add(u)
		}
	}
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
