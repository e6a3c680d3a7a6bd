package database

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when no complaint row exists for the identifier.
	ErrNotFound = errors.New("database: complaint not found")
	// ErrVersionConflict signals an optimistic-concurrency check failure. The
	// caller must re-read the complaint and retry the transition.
	ErrVersionConflict = errors.New("database: version conflict")
)

// ComplaintStore is the storage contract the lifecycle engine, escalation
// scheduler, and review gate operate against. Implementations must apply
// UpdateComplaint and its timeline appends atomically.
type ComplaintStore interface {
	// CreateComplaint persists a new complaint, allocates its public GG-#####
	// identifier, and appends the initial timeline entry in one atomic write.
	CreateComplaint(ctx context.Context, complaint *Complaint, initial TimelineEvent) error

	// GetComplaint returns the complaint or ErrNotFound.
	GetComplaint(ctx context.Context, id string) (*Complaint, error)

	// UpdateComplaint writes the complaint only if the stored version still
	// equals expectedVersion, bumps the version, and appends the given timeline
	// events in order. Returns ErrVersionConflict on a stale version.
	UpdateComplaint(ctx context.Context, complaint *Complaint, expectedVersion int, events ...TimelineEvent) error

	// ListComplaints returns complaints matching the filter, newest first.
	ListComplaints(ctx context.Context, filter Filter) ([]*Complaint, error)

	// ListSLAOverdue returns clock-running complaints whose SLA deadline has
	// passed, excluding awaiting_supervisor and already-flagged rows. The
	// exclusions make the scheduler scan idempotent.
	ListSLAOverdue(ctx context.Context, now time.Time, limit int) ([]*Complaint, error)

	// ListReviewOverdue returns awaiting_supervisor complaints whose review
	// deadline has passed and that are not yet flagged overdue.
	ListReviewOverdue(ctx context.Context, now time.Time, limit int) ([]*Complaint, error)

	// Timeline returns the complaint's audit trail in append order.
	Timeline(ctx context.Context, complaintID string) ([]*TimelineEvent, error)

	// CountActiveByAssignee returns, per staff id, the number of non-terminal
	// complaints currently assigned to them (officer, worker, or supervisor
	// slot). Workload is always derived from this query, never maintained as a
	// separate counter.
	CountActiveByAssignee(ctx context.Context) (map[string]int, error)
}

// RosterStore supplies the staff and department configuration the assignment
// resolver works from.
type RosterStore interface {
	ListStaff(ctx context.Context) ([]*Staff, error)
	GetStaff(ctx context.Context, id string) (*Staff, error)
	ListDepartments(ctx context.Context) ([]*Department, error)
}
