package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/civicgrid/grievance-engine/internal/assignment"
	"github.com/civicgrid/grievance-engine/internal/clock"
	"github.com/civicgrid/grievance-engine/internal/config"
	"github.com/civicgrid/grievance-engine/internal/database"
)

// Actor is the caller-supplied identity for every engine operation. It is
// always passed explicitly; the engine holds no ambient session state.
type Actor struct {
	ID   string
	Role string
}

// SystemActor is used by the escalation scheduler and other internal callers.
var SystemActor = Actor{ID: "system", Role: database.RoleSystem}

// Event is a lifecycle occurrence published to downstream consumers after the
// owning transition has committed.
type Event struct {
	Type        string
	ComplaintID string
	Status      database.Status
	Actor       Actor
	OccurredAt  time.Time
	Details     string
}

// Lifecycle event types
const (
	EventSubmitted = "complaint.submitted"
	EventEscalated = "complaint.escalated"
	EventResolved  = "complaint.resolved"
	EventReviewed  = "complaint.reviewed"
)

// EventPublisher delivers lifecycle events asynchronously. Implementations
// must not block the caller; the engine never holds a complaint version while
// an external collaborator is in flight.
type EventPublisher interface {
	Publish(ctx context.Context, event Event)
}

// Notifier dispatches human-facing notifications asynchronously.
type Notifier interface {
	NotifyCitizen(ctx context.Context, complaintID, citizenRef, message string)
	NotifyStaff(ctx context.Context, complaintID, staffID, message string)
}

// Metrics records engine activity for the metrics collector.
type Metrics interface {
	ComplaintSubmitted(category, severity string)
	TransitionApplied(from, to database.Status)
	EscalationTriggered(auto bool)
	SLABreachFlagged()
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, Event) {}

type nopNotifier struct{}

func (nopNotifier) NotifyCitizen(context.Context, string, string, string) {}
func (nopNotifier) NotifyStaff(context.Context, string, string, string)  {}

type nopMetrics struct{}

func (nopMetrics) ComplaintSubmitted(string, string)                {}
func (nopMetrics) TransitionApplied(database.Status, database.Status) {}
func (nopMetrics) EscalationTriggered(bool)                         {}
func (nopMetrics) SLABreachFlagged()                                {}

// Engine is the complaint state machine. Every status change goes through it:
// it validates transition legality and actor entitlement, computes SLA
// deadlines, and appends timeline entries atomically with the status write.
type Engine struct {
	store     database.ComplaintStore
	roster    *assignment.RosterService
	sla       config.SLAConfig
	clock     clock.Clock
	logger    *slog.Logger
	publisher EventPublisher
	notifier  Notifier
	metrics   Metrics
}

// Option configures optional engine collaborators.
type Option func(*Engine)

// WithPublisher attaches a lifecycle event publisher.
func WithPublisher(p EventPublisher) Option {
	return func(e *Engine) { e.publisher = p }
}

// WithNotifier attaches a notification dispatcher.
func WithNotifier(n Notifier) Option {
	return func(e *Engine) { e.notifier = n }
}

// WithMetrics attaches a metrics recorder.
func WithMetrics(m Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// NewEngine creates a lifecycle engine
func NewEngine(
	store database.ComplaintStore,
	roster *assignment.RosterService,
	sla config.SLAConfig,
	clk clock.Clock,
	logger *slog.Logger,
	opts ...Option,
) *Engine {
	engine := &Engine{
		store:     store,
		roster:    roster,
		sla:       sla,
		clock:     clk,
		logger:    logger,
		publisher: nopPublisher{},
		notifier:  nopNotifier{},
		metrics:   nopMetrics{},
	}
	for _, opt := range opts {
		opt(engine)
	}
	return engine
}

// SubmitRequest carries a new complaint. Classification (category, severity)
// has already happened upstream; the engine does not classify.
type SubmitRequest struct {
	Category         string
	Severity         string
	Description      string
	Location         database.Location
	Ward             string
	AffectedAreaType string
	DurationBucket   string
	Visibility       database.VisibilityFlags
	CitizenRef       string
}

func (r SubmitRequest) validate() error {
	if r.Category == "" {
		return &ValidationError{Field: "category", Reason: "category is required"}
	}
	switch r.Severity {
	case database.SeverityLow, database.SeverityMedium, database.SeverityHigh:
	default:
		return &ValidationError{Field: "severity", Reason: "severity must be Low, Medium, or High"}
	}
	if r.Description == "" {
		return &ValidationError{Field: "description", Reason: "description is required"}
	}
	if r.CitizenRef == "" {
		return &ValidationError{Field: "citizen_ref", Reason: "citizen reference is required"}
	}
	return nil
}

// SubmitComplaint creates the complaint, routes it through the assignment
// resolver, and starts the SLA clock when an officer was found. When nobody is
// available the complaint persists in reported state for manual assignment,
// which is a valid outcome, not an error.
func (e *Engine) SubmitComplaint(ctx context.Context, req SubmitRequest) (*database.Complaint, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	now := e.clock.Now()
	complaint := &database.Complaint{
		Category:         req.Category,
		Severity:         req.Severity,
		Description:      req.Description,
		Location:         req.Location,
		Ward:             req.Ward,
		AffectedAreaType: req.AffectedAreaType,
		DurationBucket:   req.DurationBucket,
		VisibilityFlags:  req.Visibility,
		CitizenRef:       req.CitizenRef,
		Status:           database.StatusReported,
	}

	snap, err := e.roster.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("submit: %w", err)
	}

	result, err := assignment.Resolve(snap, req.Category, req.Ward, req.Severity)
	switch {
	case err == nil:
		deadline := now.Add(e.sla.Deadline(req.Category))
		complaint.Status = database.StatusAssigned
		complaint.AssignedOfficerID = &result.StaffID
		complaint.AssignedDepartment = &result.Department
		complaint.SLADeadline = &deadline
	case errors.Is(err, assignment.ErrNoCandidateAvailable):
		e.logger.Warn("No assignment candidate, complaint stays reported",
			"category", req.Category, "ward", req.Ward)
	default:
		return nil, fmt.Errorf("submit: resolve assignment: %w", err)
	}

	initial := e.event(Actor{ID: req.CitizenRef, Role: database.RoleCitizen}, ActionSubmitted, nil, now)
	if err := e.store.CreateComplaint(ctx, complaint, initial); err != nil {
		return nil, fmt.Errorf("submit: %w", err)
	}
	e.roster.Invalidate()
	e.metrics.ComplaintSubmitted(complaint.Category, complaint.Severity)

	e.publisher.Publish(ctx, Event{
		Type:        EventSubmitted,
		ComplaintID: complaint.ID,
		Status:      complaint.Status,
		Actor:       Actor{ID: req.CitizenRef, Role: database.RoleCitizen},
		OccurredAt:  now,
	})
	if complaint.AssignedOfficerID != nil {
		e.notifier.NotifyStaff(ctx, complaint.ID, *complaint.AssignedOfficerID,
			fmt.Sprintf("New %s complaint %s assigned to you", complaint.Category, complaint.ID))
	}
	e.notifier.NotifyCitizen(ctx, complaint.ID, complaint.CitizenRef,
		fmt.Sprintf("Complaint %s registered", complaint.ID))

	return complaint, nil
}

// UpdateStatus applies a generic status transition requested by the assigned
// officer or worker. Moves that carry extra policy (assignment, duplicates,
// escalation, supervisor review) have dedicated operations and are rejected
// here.
func (e *Engine) UpdateStatus(ctx context.Context, complaintID string, actor Actor, next database.Status, reason string) (*database.Complaint, error) {
	if !next.Valid() {
		return nil, &ValidationError{Field: "status", Reason: fmt.Sprintf("unknown status %q", next)}
	}

	complaint, err := e.store.GetComplaint(ctx, complaintID)
	if err != nil {
		return nil, err
	}

	switch next {
	case database.StatusAssigned:
		return nil, &InvalidTransitionError{ComplaintID: complaintID, From: complaint.Status,
			Event: "update_status", Reason: "assignment goes through the assign operation"}
	case database.StatusDuplicate:
		return nil, &InvalidTransitionError{ComplaintID: complaintID, From: complaint.Status,
			Event: "update_status", Reason: "duplicates go through the mark-duplicate operation"}
	case database.StatusAwaitingSupervisor:
		return nil, &InvalidTransitionError{ComplaintID: complaintID, From: complaint.Status,
			Event: "update_status", Reason: "escalation goes through the escalate operation"}
	}

	if complaint.Status == database.StatusAwaitingSupervisor {
		return nil, &InvalidTransitionError{ComplaintID: complaintID, From: complaint.Status,
			Event: "update_status", Reason: "complaint is pending supervisor review"}
	}
	if !CanTransition(complaint.Status, next) {
		return nil, &InvalidTransitionError{ComplaintID: complaintID, From: complaint.Status,
			Event: "update_status", Reason: fmt.Sprintf("cannot move to %q", next)}
	}
	// Reported complaints have no assignee yet; triage moves out of reported
	// (reject, unverified) are open to any officer or supervisor.
	if complaint.Status == database.StatusReported {
		switch actor.Role {
		case database.RoleOfficer, database.RoleSupervisor, database.RoleSystem:
		default:
			return nil, &UnauthorizedError{ComplaintID: complaintID, ActorID: actor.ID,
				Reason: "only staff may triage a reported complaint"}
		}
	} else if err := e.authorizeAssignee(complaint, actor); err != nil {
		return nil, err
	}

	now := e.clock.Now()
	from := complaint.Status
	complaint.Status = next

	var action string
	switch next {
	case database.StatusInProgress:
		action = ActionWorkStarted
	case database.StatusResolved:
		action = ActionResolved
		complaint.ResolvedAt = &now
		complaint.SLADeadline = nil
	case database.StatusClosed:
		action = ActionClosed
		complaint.ClosedAt = &now
	case database.StatusRejected:
		action = ActionMarkedRejected
		complaint.SLADeadline = nil
	case database.StatusUnverified:
		action = ActionMarkedUnverified
		complaint.SLADeadline = nil
	}

	var details *string
	if reason != "" {
		details = &reason
	}
	event := e.event(actor, action, details, now)

	if err := e.store.UpdateComplaint(ctx, complaint, complaint.Version, event); err != nil {
		return nil, translateStoreErr(err)
	}
	e.roster.Invalidate()
	e.metrics.TransitionApplied(from, next)

	if next == database.StatusResolved {
		e.publisher.Publish(ctx, Event{
			Type: EventResolved, ComplaintID: complaint.ID, Status: next,
			Actor: actor, OccurredAt: now, Details: reason,
		})
		e.notifier.NotifyCitizen(ctx, complaint.ID, complaint.CitizenRef,
			fmt.Sprintf("Complaint %s marked resolved", complaint.ID))
	}

	e.logger.Info("Status updated",
		"complaint_id", complaint.ID,
		"from", from,
		"to", next,
		"actor", actor.ID)
	return complaint, nil
}

// Assign moves a reported complaint to an officer and starts the SLA clock.
// Used for manual assignment after the resolver found no candidate.
func (e *Engine) Assign(ctx context.Context, complaintID string, actor Actor, officerID string) (*database.Complaint, error) {
	if officerID == "" {
		return nil, &ValidationError{Field: "officer_id", Reason: "officer id is required"}
	}

	complaint, err := e.store.GetComplaint(ctx, complaintID)
	if err != nil {
		return nil, err
	}
	if complaint.Status != database.StatusReported {
		return nil, &InvalidTransitionError{ComplaintID: complaintID, From: complaint.Status,
			Event: "assign", Reason: "only reported complaints can be assigned"}
	}

	snap, err := e.roster.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("assign: %w", err)
	}
	officer, ok := findStaff(snap, officerID)
	if !ok || !officer.Active || officer.Role != database.RoleOfficer {
		return nil, &ValidationError{Field: "officer_id", Reason: "no active officer with this id"}
	}

	now := e.clock.Now()
	deadline := now.Add(e.sla.Deadline(complaint.Category))
	from := complaint.Status
	complaint.Status = database.StatusAssigned
	complaint.AssignedOfficerID = &officerID
	complaint.AssignedDepartment = &officer.Department
	complaint.SLADeadline = &deadline

	details := fmt.Sprintf("assigned to %s", officerID)
	event := e.event(actor, ActionAssigned, &details, now)
	if err := e.store.UpdateComplaint(ctx, complaint, complaint.Version, event); err != nil {
		return nil, translateStoreErr(err)
	}
	e.roster.Invalidate()
	e.metrics.TransitionApplied(from, complaint.Status)

	e.notifier.NotifyStaff(ctx, complaint.ID, officerID,
		fmt.Sprintf("Complaint %s assigned to you", complaint.ID))
	return complaint, nil
}

// Escalate moves an assigned or in-progress complaint into supervisor review.
// Escalating an already-escalated or terminal complaint fails explicitly so
// the officer-facing caller can distinguish a mistake from a no-op.
func (e *Engine) Escalate(ctx context.Context, complaintID string, actor Actor) (*database.Complaint, error) {
	complaint, err := e.store.GetComplaint(ctx, complaintID)
	if err != nil {
		return nil, err
	}

	if complaint.Status == database.StatusAwaitingSupervisor {
		return nil, &InvalidTransitionError{ComplaintID: complaintID, From: complaint.Status,
			Event: "escalate", Reason: "already escalated"}
	}
	if complaint.Status.IsTerminal() {
		return nil, &InvalidTransitionError{ComplaintID: complaintID, From: complaint.Status,
			Event: "escalate", Reason: "complaint is terminal"}
	}
	if !CanTransition(complaint.Status, database.StatusAwaitingSupervisor) {
		return nil, &InvalidTransitionError{ComplaintID: complaintID, From: complaint.Status,
			Event: "escalate", Reason: "only assigned or in-progress complaints can be escalated"}
	}
	if actor.Role != database.RoleSystem {
		if err := e.authorizeOfficer(complaint, actor); err != nil {
			return nil, err
		}
	}
	if complaint.AssignedDepartment == nil {
		return nil, &InvalidTransitionError{ComplaintID: complaintID, From: complaint.Status,
			Event: "escalate", Reason: "complaint has no department"}
	}

	snap, err := e.roster.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("escalate: %w", err)
	}
	supervisor, err := assignment.ResolveSupervisor(snap, *complaint.AssignedDepartment)
	if err != nil {
		return nil, fmt.Errorf("escalate %s: %w", complaintID, err)
	}

	now := e.clock.Now()
	reviewDeadline := now.Add(e.sla.ReviewWindow)
	pending := database.ReviewPending
	from := complaint.Status
	complaint.Status = database.StatusAwaitingSupervisor
	complaint.SupervisorID = &supervisor.StaffID
	complaint.SupervisorStatus = &pending
	complaint.SupervisorDeadline = &reviewDeadline
	complaint.SupervisorOverdue = false

	details := fmt.Sprintf("review by %s due %s", supervisor.StaffID, reviewDeadline.Format(time.RFC3339))
	event := e.event(actor, ActionEscalated, &details, now)
	if err := e.store.UpdateComplaint(ctx, complaint, complaint.Version, event); err != nil {
		return nil, translateStoreErr(err)
	}
	e.roster.Invalidate()
	e.metrics.TransitionApplied(from, complaint.Status)
	e.metrics.EscalationTriggered(actor.Role == database.RoleSystem)

	e.publisher.Publish(ctx, Event{
		Type: EventEscalated, ComplaintID: complaint.ID, Status: complaint.Status,
		Actor: actor, OccurredAt: now, Details: supervisor.StaffID,
	})
	e.notifier.NotifyStaff(ctx, complaint.ID, supervisor.StaffID,
		fmt.Sprintf("Complaint %s escalated for your review", complaint.ID))

	return complaint, nil
}

// Reassign changes the field worker on a non-terminal complaint.
func (e *Engine) Reassign(ctx context.Context, complaintID string, actor Actor, workerID string) (*database.Complaint, error) {
	if workerID == "" {
		return nil, &ValidationError{Field: "worker_id", Reason: "worker id is required"}
	}

	complaint, err := e.store.GetComplaint(ctx, complaintID)
	if err != nil {
		return nil, err
	}
	if complaint.Status.IsTerminal() {
		return nil, &InvalidTransitionError{ComplaintID: complaintID, From: complaint.Status,
			Event: "reassign", Reason: "complaint is terminal"}
	}
	if err := e.authorizeOfficer(complaint, actor); err != nil {
		return nil, err
	}

	snap, err := e.roster.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("reassign: %w", err)
	}
	worker, ok := findStaff(snap, workerID)
	if !ok || !worker.Active || worker.Role != database.RoleWorker {
		return nil, &ValidationError{Field: "worker_id", Reason: "no active worker with this id"}
	}

	now := e.clock.Now()
	complaint.AssignedWorkerID = &workerID

	details := fmt.Sprintf("worker %s", workerID)
	event := e.event(actor, ActionReassigned, &details, now)
	if err := e.store.UpdateComplaint(ctx, complaint, complaint.Version, event); err != nil {
		return nil, translateStoreErr(err)
	}
	e.roster.Invalidate()

	e.notifier.NotifyStaff(ctx, complaint.ID, workerID,
		fmt.Sprintf("Complaint %s assigned to you for field work", complaint.ID))
	return complaint, nil
}

// MarkDuplicate closes the complaint as a duplicate of a canonical one.
func (e *Engine) MarkDuplicate(ctx context.Context, complaintID string, actor Actor, canonicalID string) (*database.Complaint, error) {
	if canonicalID == "" {
		return nil, &ValidationError{Field: "canonical_id", Reason: "canonical complaint id is required"}
	}
	if canonicalID == complaintID {
		return nil, &ValidationError{Field: "canonical_id", Reason: "complaint cannot duplicate itself"}
	}

	complaint, err := e.store.GetComplaint(ctx, complaintID)
	if err != nil {
		return nil, err
	}
	if complaint.Status.IsTerminal() {
		return nil, &InvalidTransitionError{ComplaintID: complaintID, From: complaint.Status,
			Event: "mark_duplicate", Reason: "complaint is terminal"}
	}
	if complaint.Status != database.StatusReported {
		if err := e.authorizeOfficer(complaint, actor); err != nil {
			return nil, err
		}
	}
	if _, err := e.store.GetComplaint(ctx, canonicalID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, &ValidationError{Field: "canonical_id", Reason: "canonical complaint does not exist"}
		}
		return nil, err
	}

	now := e.clock.Now()
	from := complaint.Status
	complaint.Status = database.StatusDuplicate
	complaint.CanonicalID = &canonicalID
	complaint.SLADeadline = nil

	details := fmt.Sprintf("duplicate of %s", canonicalID)
	event := e.event(actor, ActionMarkedDuplicate, &details, now)
	if err := e.store.UpdateComplaint(ctx, complaint, complaint.Version, event); err != nil {
		return nil, translateStoreErr(err)
	}
	e.roster.Invalidate()
	e.metrics.TransitionApplied(from, complaint.Status)

	return complaint, nil
}

// FlagSLABreach marks a clock-running complaint as past its SLA deadline.
// Re-flagging an already-flagged complaint is a no-op, not a duplicate
// timeline entry.
func (e *Engine) FlagSLABreach(ctx context.Context, complaintID string) (bool, error) {
	complaint, err := e.store.GetComplaint(ctx, complaintID)
	if err != nil {
		return false, err
	}
	if complaint.SLABreached {
		return false, nil
	}
	if complaint.Status != database.StatusAssigned && complaint.Status != database.StatusInProgress {
		return false, nil
	}
	now := e.clock.Now()
	if complaint.SLADeadline == nil || !complaint.SLADeadline.Before(now) {
		return false, nil
	}

	complaint.SLABreached = true
	details := fmt.Sprintf("deadline was %s", complaint.SLADeadline.Format(time.RFC3339))
	event := e.event(SystemActor, ActionSLABreached, &details, now)
	if err := e.store.UpdateComplaint(ctx, complaint, complaint.Version, event); err != nil {
		return false, translateStoreErr(err)
	}
	e.metrics.SLABreachFlagged()

	e.logger.Warn("SLA breached",
		"complaint_id", complaint.ID,
		"category", complaint.Category,
		"deadline", complaint.SLADeadline)
	return true, nil
}

// FlagSupervisorOverdue raises the overdue-review signal on an
// awaiting_supervisor complaint. No state transition happens; a human must act.
func (e *Engine) FlagSupervisorOverdue(ctx context.Context, complaintID string) (bool, error) {
	complaint, err := e.store.GetComplaint(ctx, complaintID)
	if err != nil {
		return false, err
	}
	if complaint.SupervisorOverdue || complaint.Status != database.StatusAwaitingSupervisor {
		return false, nil
	}
	now := e.clock.Now()
	if complaint.SupervisorDeadline == nil || !complaint.SupervisorDeadline.Before(now) {
		return false, nil
	}

	complaint.SupervisorOverdue = true
	event := e.event(SystemActor, ActionSupervisorOverdue, nil, now)
	if err := e.store.UpdateComplaint(ctx, complaint, complaint.Version, event); err != nil {
		return false, translateStoreErr(err)
	}

	if complaint.SupervisorID != nil {
		e.notifier.NotifyStaff(ctx, complaint.ID, *complaint.SupervisorID,
			fmt.Sprintf("Review of complaint %s is overdue", complaint.ID))
	}
	return true, nil
}

// GetComplaint returns the complaint with breach flags recomputed against now,
// so dashboards never see a stale flag between scheduler ticks.
func (e *Engine) GetComplaint(ctx context.Context, complaintID string) (*database.Complaint, error) {
	complaint, err := e.store.GetComplaint(ctx, complaintID)
	if err != nil {
		return nil, err
	}
	now := e.clock.Now()
	complaint.SLABreached = complaint.EffectiveSLABreached(now)
	complaint.SupervisorOverdue = complaint.EffectiveSupervisorOverdue(now)
	return complaint, nil
}

// ListComplaints returns complaints matching the filter with recomputed flags.
func (e *Engine) ListComplaints(ctx context.Context, filter database.Filter) ([]*database.Complaint, error) {
	now := e.clock.Now()
	filter.Now = now
	complaints, err := e.store.ListComplaints(ctx, filter)
	if err != nil {
		return nil, err
	}
	for _, complaint := range complaints {
		complaint.SLABreached = complaint.EffectiveSLABreached(now)
		complaint.SupervisorOverdue = complaint.EffectiveSupervisorOverdue(now)
	}
	return complaints, nil
}

// Timeline returns the complaint's audit trail.
func (e *Engine) Timeline(ctx context.Context, complaintID string) ([]*database.TimelineEvent, error) {
	if _, err := e.store.GetComplaint(ctx, complaintID); err != nil {
		return nil, err
	}
	return e.store.Timeline(ctx, complaintID)
}

// authorizeAssignee permits the assigned officer, the assigned worker, or the
// system actor.
func (e *Engine) authorizeAssignee(complaint *database.Complaint, actor Actor) error {
	if actor.Role == database.RoleSystem {
		return nil
	}
	if actor.Role == database.RoleOfficer &&
		complaint.AssignedOfficerID != nil && *complaint.AssignedOfficerID == actor.ID {
		return nil
	}
	if actor.Role == database.RoleWorker &&
		complaint.AssignedWorkerID != nil && *complaint.AssignedWorkerID == actor.ID {
		return nil
	}
	return &UnauthorizedError{ComplaintID: complaint.ID, ActorID: actor.ID,
		Reason: "actor is not assigned to this complaint"}
}

// authorizeOfficer permits only the assigned officer (or system).
func (e *Engine) authorizeOfficer(complaint *database.Complaint, actor Actor) error {
	if actor.Role == database.RoleSystem {
		return nil
	}
	if actor.Role == database.RoleOfficer &&
		complaint.AssignedOfficerID != nil && *complaint.AssignedOfficerID == actor.ID {
		return nil
	}
	return &UnauthorizedError{ComplaintID: complaint.ID, ActorID: actor.ID,
		Reason: "only the assigned officer may perform this action"}
}

func (e *Engine) event(actor Actor, action string, details *string, at time.Time) database.TimelineEvent {
	return database.TimelineEvent{
		ID:        uuid.New().String(),
		Actor:     actor.ID,
		ActorRole: actor.Role,
		Action:    action,
		Details:   details,
		CreatedAt: at,
	}
}

func findStaff(snap assignment.Snapshot, id string) (*database.Staff, bool) {
	for _, member := range snap.Staff {
		if member.ID == id {
			return member, true
		}
	}
	return nil, false
}
