// Package factories generates synthetic delivery datasets for load testing
// and demos, keyed off the configured seed so runs are repeatable.
package factories

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/jaswdr/faker"

	"fleetsim/internal/distance"
	"fleetsim/internal/models"
)

type PackageFactory struct {
	rng  *rand.Rand
	fake faker.Faker
}

func NewPackageFactory(seed int) *PackageFactory {
	return &PackageFactory{
		rng:  rand.New(rand.NewSource(int64(seed))),
		fake: faker.NewWithSeed(rand.NewSource(int64(seed))),
	}
}

// CreatePackages builds n synthetic packages addressed at the graph's known
// locations. Roughly a fifth get a morning deadline and a tenth a truck pin
// or availability gate, echoing the shape of a real manifest.
func (pf *PackageFactory) CreatePackages(n int, g *distance.Graph, dayStart time.Time) []*models.Package {
	locations := g.Locations()
	packages := make([]*models.Package, 0, n)

	for i := 1; i <= n; i++ {
		loc := locations[pf.rng.Intn(len(locations))]
		p := &models.Package{
			ID:       i,
			Address:  loc,
			City:     pf.fake.Address().City(),
			Zip:      pf.fake.Address().PostCode(),
			Weight:   float64(1 + pf.rng.Intn(40)),
			Location: loc,
			Status:   models.StatusAtHub,
		}

		switch roll := pf.rng.Float64(); {
		case roll < 0.2:
			deadline := dayStart.Add(time.Duration(90+pf.rng.Intn(150)) * time.Minute)
			p.Deadline = &deadline
		case roll < 0.25:
			truckID := 1 + pf.rng.Intn(models.DefaultTruckCount)
			p.Note = fmt.Sprintf("Can only be on truck %d", truckID)
			p.Constraint = models.Constraint{Kind: models.OnlyTruck, TruckID: truckID}
		case roll < 0.3:
			gate := dayStart.Add(time.Duration(30+pf.rng.Intn(90)) * time.Minute)
			p.Note = fmt.Sprintf("Delayed on flight---will not arrive to depot until %s", gate.Format("3:04 pm"))
			p.Constraint = models.Constraint{Kind: models.AvailableAfter, AvailableAt: gate}
		}

		packages = append(packages, p)
	}
	return packages
}
