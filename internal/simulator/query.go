package simulator

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"fleetsim/internal/models"
)

// PackageStatus is a point-in-time view of a single package.
type PackageStatus struct {
	PackageID int
	Address   string
	Deadline  *time.Time
	TruckID   int
	Status    string
	// DeliveredAt is set only when Status is DELIVERED at the queried time.
	DeliveredAt *time.Time
}

// TruckSummary is one truck's line in the completion report.
type TruckSummary struct {
	TruckID  int
	Packages int
	Miles    float64
	DepartAt time.Time
	ReturnAt time.Time
}

// CompletionReport summarizes a finished day.
type CompletionReport struct {
	RunID      string
	Trucks     []TruckSummary
	Packages   int
	Delivered  int
	Late       int
	TotalMiles float64
}

// StatusAt reports one package's state as of the given instant. Returns
// store.ErrNotFound (wrapped) for an unknown ID.
func (s *Simulator) StatusAt(id int, at time.Time) (PackageStatus, error) {
	p, err := s.Store.Get(id)
	if err != nil {
		return PackageStatus{}, fmt.Errorf("package %d: %w", id, err)
	}
	return statusOf(p, at), nil
}

// AllStatusesAt reports every package's state at the given instant, ordered
// by ascending package ID.
func (s *Simulator) AllStatusesAt(at time.Time) []PackageStatus {
	ids := s.Store.IDs()
	statuses := make([]PackageStatus, 0, len(ids))
	for _, id := range ids {
		p, err := s.Store.Get(id)
		if err != nil {
			continue
		}
		statuses = append(statuses, statusOf(p, at))
	}
	return statuses
}

func statusOf(p *models.Package, at time.Time) PackageStatus {
	status, deliveredAt := p.StatusAt(at)
	st := PackageStatus{
		PackageID:   p.ID,
		Address:     p.Address,
		Deadline:    p.Deadline,
		Status:      status,
		DeliveredAt: deliveredAt,
	}
	if status != models.StatusAtHub {
		st.TruckID = p.TruckID
	}
	return st
}

// Report builds the end-of-day completion report. It is only meaningful
// after Run.
func (s *Simulator) Report() (CompletionReport, error) {
	if !s.ran {
		return CompletionReport{}, fmt.Errorf("simulation has not run")
	}

	report := CompletionReport{
		RunID:      s.RunID,
		TotalMiles: s.TotalMiles,
	}
	for _, truck := range s.Trucks {
		if len(truck.Carried) == 0 {
			continue
		}
		report.Trucks = append(report.Trucks, TruckSummary{
			TruckID:  truck.ID,
			Packages: len(truck.Carried),
			Miles:    truck.Miles,
			DepartAt: truck.DepartAt,
			ReturnAt: truck.ReturnAt,
		})
	}
	sort.Slice(report.Trucks, func(i, j int) bool { return report.Trucks[i].TruckID < report.Trucks[j].TruckID })

	for _, id := range s.Store.IDs() {
		p, err := s.Store.Get(id)
		if err != nil {
			continue
		}
		report.Packages++
		if p.DeliveredAt != nil {
			report.Delivered++
			if p.Deadline != nil && p.DeliveredAt.After(*p.Deadline) {
				report.Late++
			}
		}
	}
	return report, nil
}

// FormatReport renders a completion report as fixed-width text for the CLI.
func FormatReport(r CompletionReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Run %s\n", r.RunID)
	fmt.Fprintf(&b, "%-8s %-10s %-10s %-10s %s\n", "Truck", "Packages", "Depart", "Return", "Miles")
	for _, t := range r.Trucks {
		fmt.Fprintf(&b, "%-8d %-10d %-10s %-10s %.1f\n",
			t.TruckID, t.Packages, t.DepartAt.Format("15:04"), t.ReturnAt.Format("15:04"), t.Miles)
	}
	fmt.Fprintf(&b, "Delivered %d of %d packages (%d late), %.1f miles total\n",
		r.Delivered, r.Packages, r.Late, r.TotalMiles)
	return b.String()
}
