package relay

import "fmt"

// Group naming follows the entity the connections listen on behalf of.
// Mechanics and users get one group per identity; tracking and call groups
// are scoped to a job.

func MechanicGroup(mechanicID string) string { return fmt.Sprintf("mechanic_%s", mechanicID) }
func UserGroup(userID string) string         { return fmt.Sprintf("user_%s", userID) }
func TrackingGroup(jobID string) string      { return fmt.Sprintf("tracking_%s", jobID) }
func CallGroup(jobID string) string          { return fmt.Sprintf("call_%s", jobID) }
