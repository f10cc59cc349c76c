package simulator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fleetsim/internal/distance"
	"fleetsim/internal/models"
	"fleetsim/internal/store"
)

const testHub = "4001 South 700 East"

func testGraph(t *testing.T) *distance.Graph {
	t.Helper()
	names := []string{
		testHub,
		"1060 Dalton Ave S",
		"1330 2100 S",
		"177 W Price Ave",
		"195 W Oakland Ave",
		"2010 W 500 S",
	}
	matrix := [][]float64{
		{0},
		{7.2, 0},
		{3.8, 7.1, 0},
		{11.0, 6.4, 9.2, 0},
		{2.2, 6.0, 4.4, 5.6, 0},
		{3.5, 4.8, 2.8, 6.9, 1.9, 0},
	}
	g, err := distance.NewGraph(names, matrix)
	require.NoError(t, err)
	return g
}

func testConfig() *models.Config {
	return &models.Config{
		StartDate:     time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		DayStart:      "08:00",
		SpeedMPH:      models.DefaultSpeedMPH,
		TruckCapacity: models.DefaultTruckCapacity,
		TruckCount:    models.DefaultTruckCount,
		DriverCount:   models.DefaultDriverCount,
		TwoOptLimit:   models.DefaultTwoOptLimit,
		StoreBuckets:  models.DefaultStoreBuckets,
	}
}

func deliveryPackage(id int, location string) *models.Package {
	return &models.Package{
		ID:       id,
		Address:  location,
		Location: location,
		Status:   models.StatusAtHub,
	}
}

func storeOf(pkgs ...*models.Package) *store.PackageStore {
	st := store.New(models.DefaultStoreBuckets)
	for _, p := range pkgs {
		st.Put(p.ID, p)
	}
	return st
}

func runSimulation(t *testing.T, cfg *models.Config, st *store.PackageStore, g *distance.Graph) *Simulator {
	t.Helper()
	sim, err := NewSimulator(cfg, st, g)
	require.NoError(t, err)
	require.NoError(t, sim.Run())
	return sim
}

func TestRunDeliversEveryPackage(t *testing.T) {
	g := testGraph(t)
	st := storeOf(
		deliveryPackage(1, "1060 Dalton Ave S"),
		deliveryPackage(2, "1330 2100 S"),
		deliveryPackage(3, "177 W Price Ave"),
		deliveryPackage(4, "195 W Oakland Ave"),
		deliveryPackage(5, "2010 W 500 S"),
	)
	sim := runSimulation(t, testConfig(), st, g)

	for _, id := range st.IDs() {
		p, err := st.Get(id)
		require.NoError(t, err)
		assert.Equal(t, models.StatusDelivered, p.Status, "package %d", id)
		require.NotNil(t, p.DeliveredAt, "package %d", id)
		assert.True(t, p.DeliveredAt.After(sim.DayStart))
		assert.Positive(t, p.TruckID)
	}
	assert.Positive(t, sim.TotalMiles)
}

func TestAllAtHubBeforeAnyDeparture(t *testing.T) {
	g := testGraph(t)
	st := storeOf(
		deliveryPackage(1, "1060 Dalton Ave S"),
		deliveryPackage(2, "1330 2100 S"),
	)
	sim := runSimulation(t, testConfig(), st, g)

	before := sim.DayStart.Add(-time.Minute)
	for _, status := range sim.AllStatusesAt(before) {
		assert.Equal(t, models.StatusAtHub, status.Status)
		assert.Zero(t, status.TruckID)
		assert.Nil(t, status.DeliveredAt)
	}
}

func TestAllDeliveredAtEndOfDay(t *testing.T) {
	g := testGraph(t)
	st := storeOf(
		deliveryPackage(1, "1060 Dalton Ave S"),
		deliveryPackage(2, "177 W Price Ave"),
		deliveryPackage(3, "2010 W 500 S"),
	)
	sim := runSimulation(t, testConfig(), st, g)

	endOfDay := sim.DayStart.Add(16 * time.Hour)
	for _, status := range sim.AllStatusesAt(endOfDay) {
		assert.Equal(t, models.StatusDelivered, status.Status)
		require.NotNil(t, status.DeliveredAt)
		assert.False(t, status.DeliveredAt.After(endOfDay))
	}
}

// Sixteen unconstrained packages on one truck: the reported mileage must be
// exactly the route length the route builder computed.
func TestSingleTruckMileageMatchesRoute(t *testing.T) {
	g := testGraph(t)

	locations := g.Locations()[1:]
	pkgs := make([]*models.Package, 0, 16)
	for i := 1; i <= 16; i++ {
		pkgs = append(pkgs, deliveryPackage(i, locations[(i-1)%len(locations)]))
	}

	cfg := testConfig()
	cfg.TruckCount = 1
	cfg.DriverCount = 1
	sim := runSimulation(t, cfg, storeOf(pkgs...), g)

	require.Len(t, sim.Trucks, 1)
	truck := sim.Trucks[0]
	assert.Equal(t, truck.Miles, sim.TotalMiles)
	assert.Equal(t, 16, len(truck.Carried))
	assert.Equal(t, testHub, truck.Route[0])
	assert.Equal(t, testHub, truck.Route[len(truck.Route)-1])
}

func TestRunIsDeterministic(t *testing.T) {
	run := func() ([]PackageStatus, float64) {
		g := testGraph(t)
		st := storeOf(
			deliveryPackage(4, "195 W Oakland Ave"),
			deliveryPackage(1, "1060 Dalton Ave S"),
			deliveryPackage(3, "177 W Price Ave"),
			deliveryPackage(2, "1330 2100 S"),
		)
		sim := runSimulation(t, testConfig(), st, g)
		return sim.AllStatusesAt(sim.DayStart.Add(12 * time.Hour)), sim.TotalMiles
	}

	statuses1, miles1 := run()
	statuses2, miles2 := run()
	assert.Equal(t, statuses1, statuses2)
	assert.Equal(t, miles1, miles2)
}

func TestGatedPackageDepartsAfterGate(t *testing.T) {
	g := testGraph(t)
	gate := time.Date(2024, 3, 1, 9, 5, 0, 0, time.UTC)
	delayed := deliveryPackage(6, "2010 W 500 S")
	delayed.Constraint = models.Constraint{Kind: models.AvailableAfter, AvailableAt: gate}

	st := storeOf(
		deliveryPackage(1, "1060 Dalton Ave S"),
		delayed,
	)
	sim := runSimulation(t, testConfig(), st, g)

	p, err := st.Get(6)
	require.NoError(t, err)
	require.NotNil(t, p.DepartedAt)
	assert.False(t, p.DepartedAt.Before(gate), "departed %v before gate %v", p.DepartedAt, gate)

	truck := sim.Trucks[p.TruckID-1]
	assert.False(t, truck.DepartAt.Before(gate))
	assert.Equal(t, *p.DepartedAt, truck.DepartAt)
}

func TestAddressCorrectionAppliedBeforeRouting(t *testing.T) {
	g := testGraph(t)
	correctAt := time.Date(2024, 3, 1, 10, 20, 0, 0, time.UTC)
	wrong := deliveryPackage(9, "1060 Dalton Ave S")
	wrong.Constraint = models.Constraint{
		Kind:        models.WrongAddressUntil,
		AvailableAt: correctAt,
		NewAddress:  "2010 W 500 S",
	}

	st := storeOf(deliveryPackage(1, "1330 2100 S"), wrong)
	sim := runSimulation(t, testConfig(), st, g)

	p, err := st.Get(9)
	require.NoError(t, err)
	assert.Equal(t, "2010 W 500 S", p.Address)
	assert.Equal(t, "2010 W 500 S", p.Location)
	require.NotNil(t, p.DepartedAt)
	assert.False(t, p.DepartedAt.Before(correctAt))
	assert.Equal(t, models.StatusDelivered, p.Status)

	var corrected bool
	for _, event := range sim.Events {
		if event.Type == models.EventAddressCorrected {
			corrected = true
		}
	}
	assert.True(t, corrected)
}

func TestPinnedPackageRidesItsTruck(t *testing.T) {
	g := testGraph(t)
	pinned := deliveryPackage(3, "177 W Price Ave")
	pinned.Constraint = models.Constraint{Kind: models.OnlyTruck, TruckID: 2}

	st := storeOf(deliveryPackage(1, "1060 Dalton Ave S"), pinned)
	sim := runSimulation(t, testConfig(), st, g)

	p, err := st.Get(3)
	require.NoError(t, err)
	assert.Equal(t, 2, p.TruckID)
	assert.Contains(t, sim.Trucks[1].Carried, 3)
}

func TestEventsAreChronological(t *testing.T) {
	g := testGraph(t)
	st := storeOf(
		deliveryPackage(1, "1060 Dalton Ave S"),
		deliveryPackage(2, "1330 2100 S"),
		deliveryPackage(3, "177 W Price Ave"),
	)
	sim := runSimulation(t, testConfig(), st, g)

	require.NotEmpty(t, sim.Events)
	for i := 1; i < len(sim.Events); i++ {
		assert.False(t, sim.Events[i].Time.Before(sim.Events[i-1].Time),
			"event %d out of order", i)
	}
}

func TestRunRefusesSecondInvocation(t *testing.T) {
	g := testGraph(t)
	st := storeOf(deliveryPackage(1, "1060 Dalton Ave S"))
	sim := runSimulation(t, testConfig(), st, g)

	assert.Error(t, sim.Run())
}
