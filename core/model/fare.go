package model

import (
	"math"
	"time"
)

// FareSchedule defines the pricing parameters for a completed job.
type FareSchedule struct {
	BaseFare  float64 `json:"base_fare"`
	PerKm     float64 `json:"per_km"`
	PerMinute float64 `json:"per_minute"`
}

// DefaultFareSchedule returns the standard pricing used when no schedule is
// configured.
func DefaultFareSchedule() FareSchedule {
	return FareSchedule{BaseFare: 50, PerKm: 20, PerMinute: 5}
}

// Compute returns the fare for the given distance and on-job duration,
// rounded to two decimals.
func (f FareSchedule) Compute(distanceKm float64, duration time.Duration) float64 {
	fare := f.BaseFare + distanceKm*f.PerKm + duration.Minutes()*f.PerMinute
	return math.Round(fare*100) / 100
}
