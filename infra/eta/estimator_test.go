package eta

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/aapatcall/roadassist/core/model"
)

// fakeClock advances by step on every read.
type fakeClock struct {
	t    time.Time
	step time.Duration
}

func (c *fakeClock) now() time.Time {
	c.t = c.t.Add(c.step)
	return c.t
}

func TestEstimateNeedsHistory(t *testing.T) {
	e := NewEstimator()
	_, ok := e.Estimate("m1", model.Coordinates{Lat: 23.2, Lng: 77.4})
	assert.False(t, ok)

	e.Observe("m1", model.Coordinates{Lat: 23.2, Lng: 77.4})
	_, ok = e.Estimate("m1", model.Coordinates{Lat: 23.21, Lng: 77.4})
	assert.False(t, ok, "single report carries no speed")
}

func TestEstimateFromSteadyMovement(t *testing.T) {
	e := NewEstimator()
	clock := &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC), step: time.Minute}
	e.now = clock.now

	// Roughly 1.11 km north per minute, about 66 km/h.
	lat := 23.2
	for i := 0; i < 5; i++ {
		e.Observe("m1", model.Coordinates{Lat: lat, Lng: 77.4})
		lat += 0.01
	}

	// Destination is ~11 km further north, expect around 10 minutes.
	d, ok := e.Estimate("m1", model.Coordinates{Lat: lat + 0.09, Lng: 77.4})
	assert.True(t, ok)
	assert.InDelta(t, (10 * time.Minute).Seconds(), d.Seconds(), (2 * time.Minute).Seconds())
}

func TestStationaryMechanicGetsNoEstimate(t *testing.T) {
	e := NewEstimator()
	clock := &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC), step: time.Minute}
	e.now = clock.now

	for i := 0; i < 5; i++ {
		e.Observe("m1", model.Coordinates{Lat: 23.2, Lng: 77.4})
	}
	_, ok := e.Estimate("m1", model.Coordinates{Lat: 23.3, Lng: 77.4})
	assert.False(t, ok)
}

func TestForgetDropsHistory(t *testing.T) {
	e := NewEstimator()
	clock := &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC), step: time.Minute}
	e.now = clock.now

	lat := 23.2
	for i := 0; i < 4; i++ {
		e.Observe("m1", model.Coordinates{Lat: lat, Lng: 77.4})
		lat += 0.01
	}
	_, ok := e.Estimate("m1", model.Coordinates{Lat: 24, Lng: 77.4})
	assert.True(t, ok)

	e.Forget("m1")
	_, ok = e.Estimate("m1", model.Coordinates{Lat: 24, Lng: 77.4})
	assert.False(t, ok)
}
