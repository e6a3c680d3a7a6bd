package lifecycle

import "github.com/civicgrid/grievance-engine/internal/database"

// Timeline actions written by the engine and its collaborators.
const (
	ActionSubmitted          = "submitted"
	ActionAssigned           = "assigned"
	ActionWorkStarted        = "work_started"
	ActionReassigned         = "reassigned"
	ActionEscalated          = "escalated_to_supervisor"
	ActionResolved           = "resolved"
	ActionClosed             = "closed"
	ActionMarkedRejected     = "marked_rejected"
	ActionMarkedUnverified   = "marked_unverified"
	ActionMarkedDuplicate    = "marked_duplicate"
	ActionSLABreached        = "sla_breached"
	ActionSupervisorOverdue  = "supervisor_review_overdue"
	ActionSupervisorApproved = "supervisor_approved"
	ActionSupervisorRejected = "supervisor_rejected"
)

// transitionTable maps each status to the statuses reachable from it. Moves
// out of awaiting_supervisor happen only through the review gate; moves into
// assigned and duplicate only through their dedicated operations.
var transitionTable = map[database.Status][]database.Status{
	database.StatusReported: {
		database.StatusAssigned, database.StatusDuplicate,
		database.StatusUnverified, database.StatusRejected,
	},
	database.StatusAssigned: {
		database.StatusInProgress, database.StatusResolved,
		database.StatusAwaitingSupervisor, database.StatusDuplicate,
		database.StatusRejected,
	},
	database.StatusInProgress: {
		database.StatusResolved, database.StatusAwaitingSupervisor,
		database.StatusDuplicate, database.StatusRejected,
	},
	database.StatusAwaitingSupervisor: {
		database.StatusClosed, database.StatusInProgress,
	},
	database.StatusResolved: {
		database.StatusClosed,
	},
}

// CanTransition reports whether the state machine allows from -> to.
func CanTransition(from, to database.Status) bool {
	for _, allowed := range transitionTable[from] {
		if allowed == to {
			return true
		}
	}
	return false
}
