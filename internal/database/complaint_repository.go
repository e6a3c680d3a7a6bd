package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// ComplaintRepository is the Postgres-backed ComplaintStore.
type ComplaintRepository struct {
	BaseRepository
	logger *slog.Logger
}

// NewComplaintRepository creates a new complaint repository
func NewComplaintRepository(db *sqlx.DB, logger *slog.Logger) *ComplaintRepository {
	return &ComplaintRepository{
		BaseRepository: BaseRepository{db: db},
		logger:         logger,
	}
}

const complaintColumns = `
	id, category, severity, description, latitude, longitude, address, area_label,
	ward, affected_area_type, duration_bucket, visibility_flags, citizen_ref,
	status, assigned_officer_id, assigned_worker_id, assigned_department,
	sla_deadline, sla_breached, supervisor_id, supervisor_status,
	supervisor_deadline, supervisor_overdue, canonical_id, resolved_at, closed_at,
	version, created_at, updated_at`

// CreateComplaint persists a new complaint and its initial timeline entry.
// The public GG-##### identifier is allocated from the complaint sequence
// inside the same transaction.
func (r *ComplaintRepository) CreateComplaint(ctx context.Context, complaint *Complaint, initial TimelineEvent) error {
	return r.Transaction(func(tx *sqlx.Tx) error {
		var seq int64
		if err := tx.GetContext(ctx, &seq, `SELECT nextval('complaint_id_seq')`); err != nil {
			return fmt.Errorf("failed to allocate complaint id: %w", err)
		}
		complaint.ID = fmt.Sprintf("GG-%05d", seq)
		complaint.Version = 1
		complaint.CreatedAt = time.Now().UTC()
		complaint.UpdatedAt = complaint.CreatedAt

		query := `
			INSERT INTO complaints (` + complaintColumns + `
			) VALUES (
				:id, :category, :severity, :description, :latitude, :longitude,
				:address, :area_label, :ward, :affected_area_type, :duration_bucket,
				:visibility_flags, :citizen_ref, :status, :assigned_officer_id,
				:assigned_worker_id, :assigned_department, :sla_deadline,
				:sla_breached, :supervisor_id, :supervisor_status,
				:supervisor_deadline, :supervisor_overdue, :canonical_id,
				:resolved_at, :closed_at, :version, :created_at, :updated_at
			)`

		if _, err := tx.NamedExecContext(ctx, query, complaint); err != nil {
			r.logger.Error("Failed to create complaint", "complaint_id", complaint.ID, "error", err)
			return fmt.Errorf("failed to create complaint: %w", err)
		}

		initial.ComplaintID = complaint.ID
		if err := r.appendEvents(ctx, tx, complaint.ID, initial); err != nil {
			return err
		}

		r.logger.Info("Complaint created",
			"complaint_id", complaint.ID,
			"category", complaint.Category,
			"status", complaint.Status)
		return nil
	})
}

// GetComplaint retrieves a complaint by its public identifier
func (r *ComplaintRepository) GetComplaint(ctx context.Context, id string) (*Complaint, error) {
	query := `SELECT ` + complaintColumns + ` FROM complaints WHERE id = $1`

	var complaint Complaint
	err := r.db.GetContext(ctx, &complaint, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		r.logger.Error("Failed to get complaint", "complaint_id", id, "error", err)
		return nil, fmt.Errorf("failed to get complaint: %w", err)
	}

	return &complaint, nil
}

// UpdateComplaint writes the complaint guarded by the version check and appends
// the timeline events in the same transaction.
func (r *ComplaintRepository) UpdateComplaint(ctx context.Context, complaint *Complaint, expectedVersion int, events ...TimelineEvent) error {
	return r.Transaction(func(tx *sqlx.Tx) error {
		complaint.Version = expectedVersion + 1
		complaint.UpdatedAt = time.Now().UTC()

		query := `
			UPDATE complaints SET
				status = :status,
				assigned_officer_id = :assigned_officer_id,
				assigned_worker_id = :assigned_worker_id,
				assigned_department = :assigned_department,
				sla_deadline = :sla_deadline,
				sla_breached = :sla_breached,
				supervisor_id = :supervisor_id,
				supervisor_status = :supervisor_status,
				supervisor_deadline = :supervisor_deadline,
				supervisor_overdue = :supervisor_overdue,
				canonical_id = :canonical_id,
				resolved_at = :resolved_at,
				closed_at = :closed_at,
				version = :version,
				updated_at = :updated_at
			WHERE id = :id AND version = :expected_version`

		updateData := struct {
			*Complaint
			ExpectedVersion int `db:"expected_version"`
		}{Complaint: complaint, ExpectedVersion: expectedVersion}

		result, err := tx.NamedExecContext(ctx, query, updateData)
		if err != nil {
			r.logger.Error("Failed to update complaint", "complaint_id", complaint.ID, "error", err)
			return fmt.Errorf("failed to update complaint: %w", err)
		}

		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rowsAffected == 0 {
			var exists bool
			if err := tx.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM complaints WHERE id = $1)`, complaint.ID); err != nil {
				return fmt.Errorf("failed to check complaint existence: %w", err)
			}
			if !exists {
				return ErrNotFound
			}
			return ErrVersionConflict
		}

		if err := r.appendEvents(ctx, tx, complaint.ID, events...); err != nil {
			return err
		}

		r.logger.Info("Complaint updated",
			"complaint_id", complaint.ID,
			"status", complaint.Status,
			"version", complaint.Version)
		return nil
	})
}

// appendEvents inserts timeline entries with per-complaint sequence numbers.
// The UPDATE (or INSERT) earlier in the transaction serializes writers on the
// complaint row, so the max-seq read is safe.
func (r *ComplaintRepository) appendEvents(ctx context.Context, tx *sqlx.Tx, complaintID string, events ...TimelineEvent) error {
	if len(events) == 0 {
		return nil
	}

	var maxSeq int
	if err := tx.GetContext(ctx, &maxSeq,
		`SELECT COALESCE(MAX(seq), 0) FROM timeline_events WHERE complaint_id = $1`, complaintID); err != nil {
		return fmt.Errorf("failed to read timeline sequence: %w", err)
	}

	query := `
		INSERT INTO timeline_events (id, complaint_id, seq, actor, actor_role, action, details, created_at)
		VALUES (:id, :complaint_id, :seq, :actor, :actor_role, :action, :details, :created_at)`

	for i := range events {
		events[i].ComplaintID = complaintID
		events[i].Seq = maxSeq + i + 1
		if _, err := tx.NamedExecContext(ctx, query, events[i]); err != nil {
			return fmt.Errorf("failed to append timeline event: %w", err)
		}
	}

	return nil
}

// ListComplaints retrieves complaints matching the filter, newest first
func (r *ComplaintRepository) ListComplaints(ctx context.Context, filter Filter) ([]*Complaint, error) {
	whereClause, args, argIndex := r.buildWhereClause(filter)
	limitClause := r.buildLimitClause(filter, &argIndex, &args)

	query := fmt.Sprintf(`SELECT %s FROM complaints %s ORDER BY created_at DESC %s`,
		complaintColumns, whereClause, limitClause)

	var complaints []*Complaint
	if err := r.db.SelectContext(ctx, &complaints, query, args...); err != nil {
		r.logger.Error("Failed to list complaints", "error", err)
		return nil, fmt.Errorf("failed to list complaints: %w", err)
	}

	return complaints, nil
}

// ListSLAOverdue retrieves clock-running complaints past their SLA deadline,
// skipping awaiting_supervisor and already-flagged rows.
func (r *ComplaintRepository) ListSLAOverdue(ctx context.Context, now time.Time, limit int) ([]*Complaint, error) {
	query := `
		SELECT ` + complaintColumns + ` FROM complaints
		WHERE sla_deadline IS NOT NULL
		AND sla_deadline < $1
		AND sla_breached = false
		AND status IN ('assigned', 'in_progress')
		ORDER BY sla_deadline ASC
		LIMIT $2`

	var complaints []*Complaint
	if err := r.db.SelectContext(ctx, &complaints, query, now, limit); err != nil {
		r.logger.Error("Failed to list SLA-overdue complaints", "error", err)
		return nil, fmt.Errorf("failed to list SLA-overdue complaints: %w", err)
	}

	return complaints, nil
}

// ListReviewOverdue retrieves awaiting_supervisor complaints past their review deadline.
func (r *ComplaintRepository) ListReviewOverdue(ctx context.Context, now time.Time, limit int) ([]*Complaint, error) {
	query := `
		SELECT ` + complaintColumns + ` FROM complaints
		WHERE status = 'awaiting_supervisor'
		AND supervisor_deadline IS NOT NULL
		AND supervisor_deadline < $1
		AND supervisor_overdue = false
		ORDER BY supervisor_deadline ASC
		LIMIT $2`

	var complaints []*Complaint
	if err := r.db.SelectContext(ctx, &complaints, query, now, limit); err != nil {
		r.logger.Error("Failed to list review-overdue complaints", "error", err)
		return nil, fmt.Errorf("failed to list review-overdue complaints: %w", err)
	}

	return complaints, nil
}

// Timeline retrieves the audit trail for a complaint in append order
func (r *ComplaintRepository) Timeline(ctx context.Context, complaintID string) ([]*TimelineEvent, error) {
	query := `
		SELECT id, complaint_id, seq, actor, actor_role, action, details, created_at
		FROM timeline_events
		WHERE complaint_id = $1
		ORDER BY seq ASC`

	var events []*TimelineEvent
	if err := r.db.SelectContext(ctx, &events, query, complaintID); err != nil {
		r.logger.Error("Failed to get timeline", "complaint_id", complaintID, "error", err)
		return nil, fmt.Errorf("failed to get timeline: %w", err)
	}

	return events, nil
}

// CountActiveByAssignee derives current workload per staff id from non-terminal
// complaint counts.
func (r *ComplaintRepository) CountActiveByAssignee(ctx context.Context) (map[string]int, error) {
	query := `
		SELECT assignee, COUNT(*) AS active FROM (
			SELECT assigned_officer_id AS assignee FROM complaints
				WHERE assigned_officer_id IS NOT NULL AND status NOT IN ('resolved', 'closed', 'rejected', 'duplicate', 'unverified')
			UNION ALL
			SELECT assigned_worker_id FROM complaints
				WHERE assigned_worker_id IS NOT NULL AND status NOT IN ('resolved', 'closed', 'rejected', 'duplicate', 'unverified')
			UNION ALL
			SELECT supervisor_id FROM complaints
				WHERE supervisor_id IS NOT NULL AND status = 'awaiting_supervisor'
		) assignments
		GROUP BY assignee`

	rows, err := r.db.QueryxContext(ctx, query)
	if err != nil {
		r.logger.Error("Failed to count active complaints by assignee", "error", err)
		return nil, fmt.Errorf("failed to count active complaints: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var assignee string
		var active int
		if err := rows.Scan(&assignee, &active); err != nil {
			return nil, fmt.Errorf("failed to scan workload row: %w", err)
		}
		counts[assignee] = active
	}

	return counts, rows.Err()
}

// Helper methods

func (r *ComplaintRepository) buildWhereClause(filter Filter) (string, []interface{}, int) {
	var conditions []string
	var args []interface{}
	argIndex := 0

	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			statuses[i] = string(s)
		}
		argIndex++
		conditions = append(conditions, fmt.Sprintf("status = ANY($%d)", argIndex))
		args = append(args, pq.Array(statuses))
	}

	if filter.Department != "" {
		argIndex++
		conditions = append(conditions, fmt.Sprintf("assigned_department = $%d", argIndex))
		args = append(args, filter.Department)
	}

	if filter.Ward != "" {
		argIndex++
		conditions = append(conditions, fmt.Sprintf("ward = $%d", argIndex))
		args = append(args, filter.Ward)
	}

	if filter.Category != "" {
		argIndex++
		conditions = append(conditions, fmt.Sprintf("category = $%d", argIndex))
		args = append(args, filter.Category)
	}

	if filter.SLABreached != nil {
		now := filter.Now
		if now.IsZero() {
			now = time.Now().UTC()
		}
		argIndex++
		// A deadline in the past counts as breached even if the scheduler
		// has not flagged the row yet.
		breached := fmt.Sprintf(
			"(sla_breached OR (sla_deadline IS NOT NULL AND sla_deadline < $%d AND status IN ('assigned', 'in_progress', 'awaiting_supervisor')))",
			argIndex)
		if !*filter.SLABreached {
			breached = "NOT " + breached
		}
		conditions = append(conditions, breached)
		args = append(args, now)
	}

	if filter.DateFrom != nil {
		argIndex++
		conditions = append(conditions, fmt.Sprintf("created_at >= $%d", argIndex))
		args = append(args, *filter.DateFrom)
	}

	if filter.DateTo != nil {
		argIndex++
		conditions = append(conditions, fmt.Sprintf("created_at <= $%d", argIndex))
		args = append(args, *filter.DateTo)
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	return whereClause, args, argIndex
}

func (r *ComplaintRepository) buildLimitClause(filter Filter, argIndex *int, args *[]interface{}) string {
	if filter.Limit <= 0 {
		return ""
	}

	*argIndex++
	limitClause := fmt.Sprintf("LIMIT $%d", *argIndex)
	*args = append(*args, filter.Limit)

	if filter.Offset > 0 {
		*argIndex++
		limitClause += fmt.Sprintf(" OFFSET $%d", *argIndex)
		*args = append(*args, filter.Offset)
	}

	return limitClause
}
