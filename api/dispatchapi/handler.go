// Package dispatchapi exposes the dispatch engine over HTTP.
package dispatchapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/aapatcall/roadassist/core/dispatch"
	"github.com/aapatcall/roadassist/core/dispatch/audit"
	"github.com/aapatcall/roadassist/core/model"
)

type createRequest struct {
	JobID       string  `json:"job_id"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	VehicleType string  `json:"vehicle_type"`
}

type respondRequest struct {
	RequestID  string `json:"request_id"`
	MechanicID string `json:"mechanic_id"`
}

// NewCreateHandler returns an HTTP handler starting a dispatch via
// POST /api/dispatch.
func NewCreateHandler(engine *dispatch.Engine) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req createRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid body", http.StatusBadRequest)
			return
		}
		origin := model.Coordinates{Lat: req.Latitude, Lng: req.Longitude}
		id, count, err := engine.CreateDispatch(r.Context(), req.JobID, origin, model.VehicleType(req.VehicleType))
		if err != nil {
			writeEngineError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"request_id":   id,
			"nearby_count": count,
		})
	})
}

// NewAcceptHandler returns an HTTP handler for a mechanic claiming a request
// via POST /api/dispatch/accept.
func NewAcceptHandler(engine *dispatch.Engine) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req respondRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid body", http.StatusBadRequest)
			return
		}
		err := engine.Accept(r.Context(), req.RequestID, req.MechanicID)
		if errors.Is(err, dispatch.ErrAlreadyClaimed) {
			writeJSON(w, http.StatusConflict, map[string]any{"status": "already_claimed"})
			return
		}
		if err != nil {
			writeEngineError(w, err)
			return
		}
		snap, _ := engine.Snapshot(req.RequestID)
		writeJSON(w, http.StatusOK, map[string]any{
			"status": "accepted",
			"job_id": snap.JobID,
		})
	})
}

// NewDeclineHandler returns an HTTP handler for a mechanic passing on a
// request via POST /api/dispatch/decline.
func NewDeclineHandler(engine *dispatch.Engine) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req respondRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid body", http.StatusBadRequest)
			return
		}
		transferred, err := engine.Decline(r.Context(), req.RequestID, req.MechanicID)
		if err != nil {
			writeEngineError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"status":              "declined",
			"transferred_to_next": transferred,
		})
	})
}

// NewCancelHandler returns an HTTP handler withdrawing a request via
// POST /api/dispatch/cancel.
func NewCancelHandler(engine *dispatch.Engine) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req respondRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid body", http.StatusBadRequest)
			return
		}
		err := engine.Cancel(r.Context(), req.RequestID)
		if errors.Is(err, dispatch.ErrAlreadyClaimed) {
			writeJSON(w, http.StatusConflict, map[string]any{"status": "already_claimed"})
			return
		}
		if err != nil {
			writeEngineError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "cancelled"})
	})
}

// NewAuditHandler returns an HTTP handler exposing dispatch audit records via
// GET /api/dispatch/audit. Requests must include an Authorization header with
// "Bearer <token>" when token is non-empty.
func NewAuditHandler(store audit.Store, token string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if token != "" {
			auth := r.Header.Get("Authorization")
			if auth != "Bearer "+token {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		}
		q := audit.Query{}
		if s := r.URL.Query().Get("start"); s != "" {
			if t, err := time.Parse(time.RFC3339, s); err == nil {
				q.Start = t
			}
		}
		if s := r.URL.Query().Get("end"); s != "" {
			if t, err := time.Parse(time.RFC3339, s); err == nil {
				q.End = t
			}
		}
		q.JobID = r.URL.Query().Get("job_id")
		q.MechanicID = r.URL.Query().Get("mechanic_id")
		q.Outcome = r.URL.Query().Get("outcome")
		records, err := store.Query(r.Context(), q)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, records)
	})
}

func writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, dispatch.ErrInvalidArgument):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, dispatch.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, dispatch.ErrExhausted):
		http.Error(w, err.Error(), http.StatusGone)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
