// Package mechanics exposes the mechanic registry over HTTP.
package mechanics

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/aapatcall/roadassist/core/model"
	"github.com/aapatcall/roadassist/core/registry"
)

type statusRequest struct {
	MechanicID  string   `json:"mechanic_id"`
	Name        string   `json:"name"`
	Phone       string   `json:"phone"`
	Available   bool     `json:"available"`
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
	VehicleType string   `json:"vehicle_type"`
}

// NewStatusHandler returns an HTTP handler for mechanic availability and
// location reports via POST /api/mechanics/status. Unknown mechanics are
// registered on first report when they carry a name.
func NewStatusHandler(store registry.Store) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req statusRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid body", http.StatusBadRequest)
			return
		}
		if req.MechanicID == "" {
			http.Error(w, "mechanic_id is required", http.StatusBadRequest)
			return
		}
		vt := model.VehicleType(req.VehicleType)
		if !vt.Valid() {
			http.Error(w, "unknown vehicle type", http.StatusBadRequest)
			return
		}
		var pos model.Coordinates
		if req.Latitude != nil && req.Longitude != nil {
			pos = model.Coordinates{Lat: *req.Latitude, Lng: *req.Longitude}
			if !pos.Valid() {
				http.Error(w, "invalid coordinates", http.StatusBadRequest)
				return
			}
		}
		now := time.Now().UTC()
		if !store.SetAvailability(req.MechanicID, req.Available, pos, now) {
			if req.Name == "" {
				http.Error(w, "unknown mechanic", http.StatusNotFound)
				return
			}
			m := model.Mechanic{
				ID:          req.MechanicID,
				Name:        req.Name,
				Phone:       req.Phone,
				Available:   req.Available,
				VehicleType: vt,
				LastSeen:    now,
			}
			if pos.Valid() {
				m.Location = pos
				m.HasLocation = true
			}
			store.Upsert(m)
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(map[string]string{"status": "ok"}); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})
}

type mechanicView struct {
	MechanicID  string    `json:"mechanic_id"`
	Name        string    `json:"name"`
	Phone       string    `json:"phone"`
	Available   bool      `json:"available"`
	Latitude    float64   `json:"latitude,omitempty"`
	Longitude   float64   `json:"longitude,omitempty"`
	VehicleType string    `json:"vehicle_type,omitempty"`
	Rating      float64   `json:"rating,omitempty"`
	LastSeen    time.Time `json:"last_seen"`
}

// NewGetHandler returns an HTTP handler exposing a single mechanic via
// GET /api/mechanics/{id}.
func NewGetHandler(store registry.Store) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]
		m, ok := store.Get(id)
		if !ok {
			http.Error(w, "unknown mechanic", http.StatusNotFound)
			return
		}
		v := mechanicView{
			MechanicID:  m.ID,
			Name:        m.Name,
			Phone:       m.Phone,
			Available:   m.Available,
			VehicleType: string(m.VehicleType),
			Rating:      m.Rating,
			LastSeen:    m.LastSeen,
		}
		if m.HasLocation {
			v.Latitude = m.Location.Lat
			v.Longitude = m.Location.Lng
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(v); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})
}

// NewListHandler returns an HTTP handler exposing registered mechanics via
// GET /api/mechanics.
func NewListHandler(store registry.Store) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f := registry.Filter{
			Available:   r.URL.Query().Get("available") == "true",
			VehicleType: model.VehicleType(r.URL.Query().Get("vehicle_type")),
		}
		if !f.VehicleType.Valid() {
			http.Error(w, "unknown vehicle type", http.StatusBadRequest)
			return
		}
		mechanics := store.List(f)
		views := make([]mechanicView, 0, len(mechanics))
		for _, m := range mechanics {
			v := mechanicView{
				MechanicID:  m.ID,
				Name:        m.Name,
				Phone:       m.Phone,
				Available:   m.Available,
				VehicleType: string(m.VehicleType),
				Rating:      m.Rating,
				LastSeen:    m.LastSeen,
			}
			if m.HasLocation {
				v.Latitude = m.Location.Lat
				v.Longitude = m.Location.Lng
			}
			views = append(views, v)
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(views); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})
}
