package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTruckLoadEnforcesCapacity(t *testing.T) {
	truck := NewTruck(1, 2, DefaultSpeedMPH)

	require.NoError(t, truck.Load(10))
	require.NoError(t, truck.Load(11))
	assert.Error(t, truck.Load(12))
	assert.Equal(t, []int{10, 11}, truck.Carried)
}

func TestTruckTravelTimeRoundsToMinutes(t *testing.T) {
	truck := NewTruck(1, 16, 18.0)

	// 3 miles at 18 mph is exactly 10 minutes.
	assert.Equal(t, 10*time.Minute, truck.TravelTime(3.0))
	// 2.2 miles is 7.33 minutes, rounds down.
	assert.Equal(t, 7*time.Minute, truck.TravelTime(2.2))
	// 2.3 miles is 7.67 minutes, rounds up.
	assert.Equal(t, 8*time.Minute, truck.TravelTime(2.3))
}

func TestPackageStatusAt(t *testing.T) {
	departed := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	delivered := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	p := &Package{ID: 1, Status: StatusDelivered, DepartedAt: &departed, DeliveredAt: &delivered}

	status, ts := p.StatusAt(departed.Add(-time.Minute))
	assert.Equal(t, StatusAtHub, status)
	assert.Nil(t, ts)

	status, ts = p.StatusAt(departed)
	assert.Equal(t, StatusEnRoute, status)
	assert.Nil(t, ts)

	status, ts = p.StatusAt(delivered)
	assert.Equal(t, StatusDelivered, status)
	require.NotNil(t, ts)
	assert.Equal(t, delivered, *ts)
}

func TestDeadlineMinutes(t *testing.T) {
	eod := &Package{ID: 1}
	assert.Equal(t, 24*60, eod.DeadlineMinutes())

	d := time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC)
	timed := &Package{ID: 2, Deadline: &d}
	assert.Equal(t, 10*60+30, timed.DeadlineMinutes())
}

func TestEventQueueOrdersByTime(t *testing.T) {
	q := NewEventQueue()
	base := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)

	q.Enqueue(&Event{Time: base.Add(30 * time.Minute), Type: EventPackageDelivered})
	q.Enqueue(&Event{Time: base, Type: EventTruckDeparted})
	q.Enqueue(&Event{Time: base.Add(10 * time.Minute), Type: EventPackageDelivered})

	assert.Equal(t, 3, q.Len())
	assert.Equal(t, base, q.Peek().Time)

	var times []time.Time
	for event := q.Dequeue(); event != nil; event = q.Dequeue() {
		times = append(times, event.Time)
	}
	require.Len(t, times, 3)
	assert.True(t, times[0].Before(times[1]) && times[1].Before(times[2]))
	assert.True(t, q.IsEmpty())
}

func TestConfigValidateClampsDrivers(t *testing.T) {
	cfg := &Config{
		StartDate:     time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		DayStart:      "08:00",
		SpeedMPH:      18,
		TruckCapacity: 16,
		TruckCount:    3,
		DriverCount:   5,
	}
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 3, cfg.DriverCount)

	cfg.SpeedMPH = 0
	assert.Error(t, cfg.Validate())
}

func TestDayStartTime(t *testing.T) {
	cfg := &Config{
		StartDate: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		DayStart:  "08:00",
	}
	start, err := cfg.DayStartTime()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC), start)

	cfg.DayStart = "not a time"
	_, err = cfg.DayStartTime()
	assert.Error(t, err)
}
