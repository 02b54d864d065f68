// Package rank orders candidate mechanics for a service request by
// great-circle distance from the requester.
package rank

import (
	"errors"
	"math"
	"sort"

	"github.com/aapatcall/roadassist/core/model"
)

// earthRadiusKm is the mean Earth radius used for haversine distances.
const earthRadiusKm = 6371

// ErrInvalidOrigin is returned when the requester coordinates are missing or
// outside the WGS84 range. Callers must validate input before ranking; the
// ranker never falls back to returning the whole registry.
var ErrInvalidOrigin = errors.New("rank: invalid origin coordinates")

// DistanceKm returns the haversine distance between two positions in km.
func DistanceKm(a, b model.Coordinates) float64 {
	dLat := radians(b.Lat - a.Lat)
	dLng := radians(b.Lng - a.Lng)
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(radians(a.Lat))*math.Cos(radians(b.Lat))*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return earthRadiusKm * c
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }

// Rank returns the IDs of available mechanics ordered by ascending distance
// from origin. When vehicleType is not the wildcard, mechanics servicing other
// vehicle classes are excluded. Mechanics without a known position sort after
// every ranked mechanic, keeping their relative registry order (stable sort).
func Rank(origin model.Coordinates, vehicleType model.VehicleType, mechanics []model.Mechanic) ([]string, error) {
	if !origin.Valid() {
		return nil, ErrInvalidOrigin
	}
	type entry struct {
		id       string
		distance float64
		ranked   bool
	}
	entries := make([]entry, 0, len(mechanics))
	for _, m := range mechanics {
		if !m.Available || !m.Services(vehicleType) {
			continue
		}
		e := entry{id: m.ID}
		if m.HasLocation {
			e.distance = DistanceKm(origin, m.Location)
			e.ranked = true
		}
		entries = append(entries, e)
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].ranked != entries[j].ranked {
			return entries[i].ranked
		}
		if !entries[i].ranked {
			return false
		}
		return entries[i].distance < entries[j].distance
	})
	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.id
	}
	return ids, nil
}
