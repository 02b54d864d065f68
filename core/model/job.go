package model

import (
	"fmt"
	"time"
)

// JobStatus tracks a job through its lifecycle.
type JobStatus string

const (
	JobPending   JobStatus = "PENDING"
	JobAccepted  JobStatus = "ACCEPTED"
	JobEnRoute   JobStatus = "EN_ROUTE"
	JobOnSite    JobStatus = "ON_SITE"
	JobCompleted JobStatus = "COMPLETED"
	JobCancelled JobStatus = "CANCELLED"
)

// Valid reports whether s is a known job status.
func (s JobStatus) Valid() bool {
	switch s {
	case JobPending, JobAccepted, JobEnRoute, JobOnSite, JobCompleted, JobCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further transitions are allowed from s.
func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobCancelled
}

// Job represents one roadside-assistance request from a stranded vehicle owner.
type Job struct {
	ID           string
	UserID       string
	Problem      string
	LocationText string
	Location     Coordinates
	VehicleType  VehicleType
	Status       JobStatus
	MechanicID   string // empty until a mechanic claims the job

	RequestedAt time.Time
	AcceptedAt  time.Time
	StartedAt   time.Time // mechanic started moving or arrived, whichever first
	CompletedAt time.Time

	DistanceKm float64
	Fare       float64
}

// Assign marks the job as accepted by the given mechanic.
func (j *Job) Assign(mechanicID string, now time.Time) {
	j.MechanicID = mechanicID
	j.Status = JobAccepted
	j.AcceptedAt = now
}

// TransitionTo moves the job to the given status, applying the milestone
// timestamp rules. EN_ROUTE and ON_SITE both set StartedAt if it is not set
// yet, COMPLETED stamps CompletedAt and computes the fare from the elapsed
// on-job duration.
func (j *Job) TransitionTo(status JobStatus, fares FareSchedule, now time.Time) error {
	if !status.Valid() {
		return fmt.Errorf("unknown job status %q", status)
	}
	if j.Status.Terminal() {
		return fmt.Errorf("job %s is %s, no further transitions", j.ID, j.Status)
	}
	switch status {
	case JobEnRoute, JobOnSite:
		if j.StartedAt.IsZero() {
			j.StartedAt = now
		}
	case JobCompleted:
		j.CompletedAt = now
		var duration time.Duration
		if !j.StartedAt.IsZero() {
			duration = j.CompletedAt.Sub(j.StartedAt)
		}
		j.Fare = fares.Compute(j.DistanceKm, duration)
	}
	j.Status = status
	return nil
}
