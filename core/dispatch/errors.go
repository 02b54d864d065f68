package dispatch

import "errors"

// The dispatch error taxonomy. All are returned synchronously to the caller;
// none trigger retries inside the engine.
var (
	// ErrInvalidArgument signals malformed or missing caller input. No state
	// was changed.
	ErrInvalidArgument = errors.New("dispatch: invalid argument")

	// ErrNotFound signals an unknown job, request or mechanic ID.
	ErrNotFound = errors.New("dispatch: not found")

	// ErrAlreadyClaimed signals a lost accept race: another mechanic already
	// holds the job. Callers should stop retrying.
	ErrAlreadyClaimed = errors.New("dispatch: already claimed")

	// ErrExhausted signals a request with no remaining candidates (or one
	// cancelled by the requester). Terminal; re-dispatching is a caller
	// decision.
	ErrExhausted = errors.New("dispatch: no remaining candidates")
)
