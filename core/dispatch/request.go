package dispatch

import "time"

// State is the lifecycle position of a dispatch request.
type State int

const (
	// Open means no winner yet and candidates remain.
	Open State = iota
	// Matched means a mechanic claimed the request. Terminal.
	Matched
	// Exhausted means the queue ran out (or the request expired) with no
	// winner. Terminal.
	Exhausted
	// Cancelled means the requester withdrew the job. Terminal, treated like
	// Exhausted for state-machine purposes.
	Cancelled
)

func (s State) String() string {
	switch s {
	case Open:
		return "open"
	case Matched:
		return "matched"
	case Exhausted:
		return "exhausted"
	case Cancelled:
		return "cancelled"
	}
	return "unknown"
}

// Request is one mechanic-matching attempt for a job. The queue is immutable
// once computed; only the cursor and the winner fields ever change, and the
// engine linearizes every mutation behind the per-request lock.
type Request struct {
	ID     string
	JobID  string
	Queue  []string // ranked candidate mechanic IDs, nearest first
	Cursor int      // index of the current offeree; len(Queue) means exhausted

	Winner    string
	ClaimedAt time.Time

	CreatedAt time.Time
	ExpiresAt time.Time

	cancelled bool
	expired   bool
}

// State derives the lifecycle position from the stored fields.
func (r *Request) State() State {
	switch {
	case r.Winner != "":
		return Matched
	case r.cancelled:
		return Cancelled
	case r.expired, r.Cursor >= len(r.Queue):
		return Exhausted
	}
	return Open
}

// Resolved reports whether the request reached a terminal state.
func (r *Request) Resolved() bool { return r.State() != Open }

// CurrentOfferee returns the candidate at the cursor, or false when the
// request is not open.
func (r *Request) CurrentOfferee() (string, bool) {
	if r.State() != Open {
		return "", false
	}
	return r.Queue[r.Cursor], true
}

// claim records the winner. The caller must hold the request lock and have
// verified the request is still open; the winner never changes afterwards.
func (r *Request) claim(mechanicID string, now time.Time) {
	r.Winner = mechanicID
	r.ClaimedAt = now
}

// advance moves the cursor past the current offeree. The cursor is
// monotonically non-decreasing and never exceeds the queue length.
func (r *Request) advance() {
	if r.Cursor < len(r.Queue) {
		r.Cursor++
	}
}
