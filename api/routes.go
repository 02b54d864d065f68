// Package api assembles the HTTP surface of the service.
package api

import (
	"github.com/gorilla/mux"

	"github.com/aapatcall/roadassist/api/dispatchapi"
	"github.com/aapatcall/roadassist/api/mechanics"
	"github.com/aapatcall/roadassist/api/tracking"
	"github.com/aapatcall/roadassist/core/dispatch"
	"github.com/aapatcall/roadassist/core/dispatch/audit"
	"github.com/aapatcall/roadassist/core/jobs"
	"github.com/aapatcall/roadassist/core/model"
	"github.com/aapatcall/roadassist/core/registry"
	"github.com/aapatcall/roadassist/core/relay"
	"github.com/aapatcall/roadassist/infra/eta"
)

// Deps carries everything the route table needs.
type Deps struct {
	Engine     *dispatch.Engine
	Registry   registry.Store
	Jobs       jobs.Store
	Relay      *relay.Bus
	Audit      audit.Store
	ETA        *eta.Estimator
	Fares      model.FareSchedule
	AuditToken string
}

func SetupRoutes(d Deps) *mux.Router {
	r := mux.NewRouter()

	// Middleware chain
	r.Use(LoggingMiddleware)
	r.Use(RecoveryMiddleware)

	r.HandleFunc("/health", HealthHandler).Methods("GET")

	r.Handle("/api/dispatch", dispatchapi.NewCreateHandler(d.Engine)).Methods("POST")
	r.Handle("/api/dispatch/accept", dispatchapi.NewAcceptHandler(d.Engine)).Methods("POST")
	r.Handle("/api/dispatch/decline", dispatchapi.NewDeclineHandler(d.Engine)).Methods("POST")
	r.Handle("/api/dispatch/cancel", dispatchapi.NewCancelHandler(d.Engine)).Methods("POST")
	r.Handle("/api/dispatch/audit", dispatchapi.NewAuditHandler(d.Audit, d.AuditToken)).Methods("GET")

	r.Handle("/api/mechanics", mechanics.NewListHandler(d.Registry)).Methods("GET")
	r.Handle("/api/mechanics/status", mechanics.NewStatusHandler(d.Registry)).Methods("POST")
	r.Handle("/api/mechanics/{id}", mechanics.NewGetHandler(d.Registry)).Methods("GET")

	r.Handle("/api/jobs", tracking.NewJobHandler(d.Jobs)).Methods("POST")
	r.Handle("/api/jobs/status", tracking.NewJobStatusHandler(d.Jobs, d.Relay, d.Fares)).Methods("POST")
	r.Handle("/api/tracking/location", tracking.NewLocationHandler(d.Jobs, d.Relay, d.ETA)).Methods("POST")

	return r
}
