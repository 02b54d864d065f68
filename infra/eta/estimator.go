// Package eta estimates a mechanic's arrival time from their recent movement.
// Each location report contributes a speed sample; the estimate is the
// remaining distance over the mean observed speed. Mechanics without enough
// history get no estimate rather than a misleading one.
package eta

import (
	"math"
	"sync"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/aapatcall/roadassist/core/model"
	"github.com/aapatcall/roadassist/core/rank"
)

const (
	// minSamples before an estimate is produced.
	minSamples = 2
	// maxSamples bounds the per-mechanic speed window.
	maxSamples = 20
	// minSpeedKmh below which movement is treated as standing still.
	minSpeedKmh = 1.0
)

type track struct {
	last     model.Coordinates
	lastSeen time.Time
	speeds   []float64
}

// Estimator keeps a speed window per mechanic.
type Estimator struct {
	mu     sync.Mutex
	tracks map[string]*track
	now    func() time.Time
}

func NewEstimator() *Estimator {
	return &Estimator{tracks: make(map[string]*track), now: time.Now}
}

// Observe records a location report for a mechanic and updates their speed
// window. Reports closer together than a second are ignored, they carry more
// clock noise than signal.
func (e *Estimator) Observe(mechanicID string, loc model.Coordinates) {
	now := e.now()
	e.mu.Lock()
	defer e.mu.Unlock()

	tr, ok := e.tracks[mechanicID]
	if !ok {
		e.tracks[mechanicID] = &track{last: loc, lastSeen: now}
		return
	}
	elapsed := now.Sub(tr.lastSeen)
	if elapsed < time.Second {
		return
	}
	km := rank.DistanceKm(tr.last, loc)
	speed := km / elapsed.Hours()
	tr.last = loc
	tr.lastSeen = now
	if speed < minSpeedKmh {
		return
	}
	tr.speeds = append(tr.speeds, speed)
	if len(tr.speeds) > maxSamples {
		tr.speeds = tr.speeds[len(tr.speeds)-maxSamples:]
	}
}

// Estimate returns the expected travel time from the mechanic's last known
// position to dest. ok is false when there is not enough movement history.
func (e *Estimator) Estimate(mechanicID string, dest model.Coordinates) (time.Duration, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	tr, ok := e.tracks[mechanicID]
	if !ok || len(tr.speeds) < minSamples {
		return 0, false
	}
	speed := stat.Mean(tr.speeds, nil)
	if speed < minSpeedKmh || math.IsNaN(speed) {
		return 0, false
	}
	km := rank.DistanceKm(tr.last, dest)
	hours := km / speed
	return time.Duration(hours * float64(time.Hour)).Round(time.Second), true
}

// Forget drops a mechanic's history, used when they go offline.
func (e *Estimator) Forget(mechanicID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.tracks, mechanicID)
}
