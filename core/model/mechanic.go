package model

import (
	"math"
	"time"
)

// VehicleType identifies the class of vehicles a mechanic services.
type VehicleType string

const (
	VehicleAny        VehicleType = ""
	VehicleTwoWheeler VehicleType = "2W"
	VehicleFourWheel  VehicleType = "4W"
	VehicleEV         VehicleType = "EV"
)

// Valid reports whether t is a known vehicle type or the any-type wildcard.
func (t VehicleType) Valid() bool {
	switch t {
	case VehicleAny, VehicleTwoWheeler, VehicleFourWheel, VehicleEV:
		return true
	}
	return false
}

// Coordinates is a WGS84 position.
type Coordinates struct {
	Lat float64 `json:"latitude"`
	Lng float64 `json:"longitude"`
}

// Valid reports whether the coordinates are usable: finite and inside the
// WGS84 range. The zero value is not considered a position.
func (c Coordinates) Valid() bool {
	if math.IsNaN(c.Lat) || math.IsNaN(c.Lng) || math.IsInf(c.Lat, 0) || math.IsInf(c.Lng, 0) {
		return false
	}
	if c.Lat == 0 && c.Lng == 0 {
		return false
	}
	return c.Lat >= -90 && c.Lat <= 90 && c.Lng >= -180 && c.Lng <= 180
}

// Mechanic is a snapshot of a registered mechanic as seen by the dispatch
// engine. The registry owns the authoritative record; the engine only reads.
type Mechanic struct {
	ID          string
	Name        string
	Phone       string
	Location    Coordinates
	HasLocation bool
	Available   bool
	VehicleType VehicleType
	Rating      float64
	LastSeen    time.Time
}

// Services reports whether the mechanic can service the given vehicle type.
// The any-type wildcard matches every mechanic.
func (m Mechanic) Services(t VehicleType) bool {
	return t == VehicleAny || m.VehicleType == t
}
