package review

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/civicgrid/grievance-engine/internal/clock"
	"github.com/civicgrid/grievance-engine/internal/database"
	"github.com/civicgrid/grievance-engine/internal/lifecycle"
)

// Decision is a supervisor's verdict on an escalated complaint.
type Decision string

const (
	DecisionApprove Decision = "APPROVE"
	DecisionReject  Decision = "REJECT"
)

// Metrics records review outcomes.
type Metrics interface {
	ReviewDecided(decision string)
}

type nopMetrics struct{}

func (nopMetrics) ReviewDecided(string) {}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, lifecycle.Event) {}

type nopNotifier struct{}

func (nopNotifier) NotifyCitizen(context.Context, string, string, string) {}
func (nopNotifier) NotifyStaff(context.Context, string, string, string)  {}

// Gate is the terminal approval step for escalated complaints. Approve closes
// the complaint; Reject sends it back to the assigned officer with mandatory
// remarks. Only the complaint's assigned supervisor may decide.
type Gate struct {
	store     database.ComplaintStore
	clock     clock.Clock
	logger    *slog.Logger
	publisher lifecycle.EventPublisher
	notifier  lifecycle.Notifier
	metrics   Metrics
}

// Option configures optional gate collaborators.
type Option func(*Gate)

// WithPublisher attaches a lifecycle event publisher.
func WithPublisher(p lifecycle.EventPublisher) Option {
	return func(g *Gate) { g.publisher = p }
}

// WithNotifier attaches a notification dispatcher.
func WithNotifier(n lifecycle.Notifier) Option {
	return func(g *Gate) { g.notifier = n }
}

// WithMetrics attaches a metrics recorder.
func WithMetrics(m Metrics) Option {
	return func(g *Gate) { g.metrics = m }
}

// NewGate creates a supervisor review gate
func NewGate(store database.ComplaintStore, clk clock.Clock, logger *slog.Logger, opts ...Option) *Gate {
	gate := &Gate{
		store:     store,
		clock:     clk,
		logger:    logger,
		publisher: nopPublisher{},
		notifier:  nopNotifier{},
		metrics:   nopMetrics{},
	}
	for _, opt := range opts {
		opt(gate)
	}
	return gate
}

// Review applies the supervisor's decision. APPROVE closes the complaint and
// clears the SLA clock; REJECT requires non-empty remarks, returns the
// complaint to in_progress under the original officer, and logs the remarks
// verbatim. The original SLA deadline is preserved on rejection; if it was
// breached, it stays breached.
func (g *Gate) Review(ctx context.Context, complaintID string, actor lifecycle.Actor, decision Decision, remarks string) (*database.Complaint, error) {
	switch decision {
	case DecisionApprove, DecisionReject:
	default:
		return nil, &lifecycle.ValidationError{Field: "decision", Reason: "decision must be APPROVE or REJECT"}
	}
	if decision == DecisionReject && remarks == "" {
		return nil, &lifecycle.ValidationError{Field: "remarks", Reason: "remarks are required to reject a resolution"}
	}

	complaint, err := g.store.GetComplaint(ctx, complaintID)
	if err != nil {
		return nil, err
	}
	if complaint.Status != database.StatusAwaitingSupervisor {
		return nil, &lifecycle.InvalidTransitionError{ComplaintID: complaintID, From: complaint.Status,
			Event: "review", Reason: "complaint is not awaiting supervisor review"}
	}
	if actor.Role != database.RoleSupervisor ||
		complaint.SupervisorID == nil || *complaint.SupervisorID != actor.ID {
		return nil, &lifecycle.UnauthorizedError{ComplaintID: complaintID, ActorID: actor.ID,
			Reason: "complaint is assigned to a different supervisor"}
	}

	now := g.clock.Now()
	var event database.TimelineEvent

	switch decision {
	case DecisionApprove:
		approved := database.ReviewApproved
		complaint.Status = database.StatusClosed
		complaint.SupervisorStatus = &approved
		complaint.ResolvedAt = &now
		complaint.ClosedAt = &now
		complaint.SLADeadline = nil
		complaint.SupervisorOverdue = false

		var details *string
		if remarks != "" {
			details = &remarks
		}
		event = g.event(actor, lifecycle.ActionSupervisorApproved, details, now)

	case DecisionReject:
		rejected := database.ReviewRejected
		complaint.Status = database.StatusInProgress
		complaint.SupervisorStatus = &rejected
		complaint.SupervisorOverdue = false
		// SLADeadline deliberately untouched: the original deadline stands.

		event = g.event(actor, lifecycle.ActionSupervisorRejected, &remarks, now)
	}

	if err := g.store.UpdateComplaint(ctx, complaint, complaint.Version, event); err != nil {
		return nil, translateStoreErr(err)
	}
	g.metrics.ReviewDecided(string(decision))

	g.publisher.Publish(ctx, lifecycle.Event{
		Type:        lifecycle.EventReviewed,
		ComplaintID: complaint.ID,
		Status:      complaint.Status,
		Actor:       actor,
		OccurredAt:  now,
		Details:     string(decision),
	})

	switch decision {
	case DecisionApprove:
		g.notifier.NotifyCitizen(ctx, complaint.ID, complaint.CitizenRef,
			fmt.Sprintf("Complaint %s has been closed", complaint.ID))
	case DecisionReject:
		if complaint.AssignedOfficerID != nil {
			g.notifier.NotifyStaff(ctx, complaint.ID, *complaint.AssignedOfficerID,
				fmt.Sprintf("Resolution of %s rejected: %s", complaint.ID, remarks))
		}
	}

	g.logger.Info("Supervisor review decided",
		"complaint_id", complaint.ID,
		"decision", decision,
		"supervisor", actor.ID)
	return complaint, nil
}

func (g *Gate) event(actor lifecycle.Actor, action string, details *string, at time.Time) database.TimelineEvent {
	return database.TimelineEvent{
		ID:        uuid.New().String(),
		Actor:     actor.ID,
		ActorRole: actor.Role,
		Action:    action,
		Details:   details,
		CreatedAt: at,
	}
}

func translateStoreErr(err error) error {
	if errors.Is(err, database.ErrVersionConflict) {
		return lifecycle.ErrConcurrentModification
	}
	return err
}
