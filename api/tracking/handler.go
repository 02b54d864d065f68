// Package tracking exposes job intake, job milestones, and live location
// relay over HTTP.
package tracking

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/aapatcall/roadassist/core/jobs"
	"github.com/aapatcall/roadassist/core/model"
	"github.com/aapatcall/roadassist/core/rank"
	"github.com/aapatcall/roadassist/core/relay"
	"github.com/aapatcall/roadassist/infra/eta"
)

type createJobRequest struct {
	UserID       string  `json:"user_id"`
	Problem      string  `json:"problem"`
	LocationText string  `json:"location_text"`
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	VehicleType  string  `json:"vehicle_type"`
}

// NewJobHandler returns an HTTP handler creating a job via POST /api/jobs.
func NewJobHandler(store jobs.Store) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req createJobRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid body", http.StatusBadRequest)
			return
		}
		loc := model.Coordinates{Lat: req.Latitude, Lng: req.Longitude}
		if !loc.Valid() {
			http.Error(w, "coordinates are required", http.StatusBadRequest)
			return
		}
		vt := model.VehicleType(req.VehicleType)
		if !vt.Valid() {
			http.Error(w, "unknown vehicle type", http.StatusBadRequest)
			return
		}
		job := model.Job{
			ID:           uuid.NewString(),
			UserID:       req.UserID,
			Problem:      req.Problem,
			LocationText: req.LocationText,
			Location:     loc,
			VehicleType:  vt,
			Status:       model.JobPending,
			RequestedAt:  time.Now().UTC(),
		}
		if err := store.Create(r.Context(), job); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]string{
			"job_id": job.ID,
			"status": string(job.Status),
		})
	})
}

type jobStatusRequest struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

// NewJobStatusHandler returns an HTTP handler for job milestone transitions
// via POST /api/jobs/status. Completion broadcasts the computed fare to the
// job's tracking group.
func NewJobStatusHandler(store jobs.Store, bus *relay.Bus, fares model.FareSchedule) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req jobStatusRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid body", http.StatusBadRequest)
			return
		}
		job, err := store.Get(r.Context(), req.JobID)
		if errors.Is(err, jobs.ErrNotFound) {
			http.Error(w, "unknown job", http.StatusNotFound)
			return
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if err := job.TransitionTo(model.JobStatus(req.Status), fares, time.Now().UTC()); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := store.Update(r.Context(), job); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if job.Status == model.JobCompleted {
			bus.Publish(relay.TrackingGroup(job.ID), relay.Message{
				Type: relay.TypeJobCompleted,
				Fields: map[string]any{
					"job_id": job.ID,
					"fare":   job.Fare,
					"status": string(job.Status),
				},
			})
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"job_id": job.ID,
			"status": string(job.Status),
			"fare":   job.Fare,
		})
	})
}

type locationRequest struct {
	JobID      string  `json:"job_id"`
	MechanicID string  `json:"mechanic_id"`
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
	Status     string  `json:"status"`
}

// NewLocationHandler returns an HTTP handler broadcasting mechanic positions
// via POST /api/tracking/location. The broadcast carries remaining distance
// and, when the mechanic has enough movement history, an arrival estimate.
func NewLocationHandler(store jobs.Store, bus *relay.Bus, est *eta.Estimator) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req locationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid body", http.StatusBadRequest)
			return
		}
		pos := model.Coordinates{Lat: req.Latitude, Lng: req.Longitude}
		if !pos.Valid() {
			http.Error(w, "invalid coordinates", http.StatusBadRequest)
			return
		}
		job, err := store.Get(r.Context(), req.JobID)
		if errors.Is(err, jobs.ErrNotFound) {
			http.Error(w, "unknown job", http.StatusNotFound)
			return
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		fields := map[string]any{
			"latitude":  pos.Lat,
			"longitude": pos.Lng,
			"status":    req.Status,
		}
		if est != nil && req.MechanicID != "" {
			est.Observe(req.MechanicID, pos)
			if d, ok := est.Estimate(req.MechanicID, job.Location); ok {
				fields["eta_seconds"] = int(d.Seconds())
			}
		}
		if job.Location.Valid() {
			fields["distance_km"] = rank.DistanceKm(pos, job.Location)
		}
		delivered := bus.Publish(relay.TrackingGroup(req.JobID), relay.Message{
			Type:   relay.TypeLocationUpdate,
			Sender: req.MechanicID,
			Fields: fields,
		})
		writeJSON(w, http.StatusOK, map[string]any{"delivered": delivered})
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
