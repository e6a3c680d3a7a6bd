package lifecycle

import (
	"errors"
	"fmt"

	"github.com/civicgrid/grievance-engine/internal/database"
)

// ErrConcurrentModification signals that another transition committed between
// this caller's read and write. The caller must re-read the complaint and
// retry; conflicting writes are never merged.
var ErrConcurrentModification = errors.New("lifecycle: concurrent modification, re-read and retry")

// InvalidTransitionError is returned when the attempted move is not legal from
// the complaint's current state. Reason carries the specific cause so the
// caller can surface it verbatim (these are audited workflow steps).
type InvalidTransitionError struct {
	ComplaintID string
	From        database.Status
	Event       string
	Reason      string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition on %s: %s from %q: %s",
		e.ComplaintID, e.Event, e.From, e.Reason)
}

// UnauthorizedError is returned when the actor is not entitled to act on the
// complaint (wrong role, department, or assignment).
type UnauthorizedError struct {
	ComplaintID string
	ActorID     string
	Reason      string
}

func (e *UnauthorizedError) Error() string {
	return fmt.Sprintf("actor %s not authorized on %s: %s", e.ActorID, e.ComplaintID, e.Reason)
}

// ValidationError is returned when a mandatory field is missing or malformed.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Reason)
}

// translateStoreErr maps storage sentinels onto the engine's taxonomy.
func translateStoreErr(err error) error {
	if errors.Is(err, database.ErrVersionConflict) {
		return ErrConcurrentModification
	}
	return err
}
