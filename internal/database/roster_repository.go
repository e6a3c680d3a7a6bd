package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
)

// RosterRepository reads staff and department configuration. Roster data is
// managed outside the engine; this repository only queries it.
type RosterRepository struct {
	BaseRepository
	logger *slog.Logger
}

// NewRosterRepository creates a new roster repository
func NewRosterRepository(db *sqlx.DB, logger *slog.Logger) *RosterRepository {
	return &RosterRepository{
		BaseRepository: BaseRepository{db: db},
		logger:         logger,
	}
}

// ListStaff retrieves all staff records
func (r *RosterRepository) ListStaff(ctx context.Context) ([]*Staff, error) {
	query := `
		SELECT id, name, role, department, ward, rating, active
		FROM staff
		ORDER BY id ASC`

	var staff []*Staff
	if err := r.db.SelectContext(ctx, &staff, query); err != nil {
		r.logger.Error("Failed to list staff", "error", err)
		return nil, fmt.Errorf("failed to list staff: %w", err)
	}

	return staff, nil
}

// GetStaff retrieves a staff member by id
func (r *RosterRepository) GetStaff(ctx context.Context, id string) (*Staff, error) {
	query := `
		SELECT id, name, role, department, ward, rating, active
		FROM staff
		WHERE id = $1`

	var member Staff
	if err := r.db.GetContext(ctx, &member, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		r.logger.Error("Failed to get staff member", "staff_id", id, "error", err)
		return nil, fmt.Errorf("failed to get staff member: %w", err)
	}

	return &member, nil
}

// ListDepartments retrieves all departments with the categories they handle
func (r *RosterRepository) ListDepartments(ctx context.Context) ([]*Department, error) {
	query := `
		SELECT id, name, categories
		FROM departments
		ORDER BY id ASC`

	var departments []*Department
	if err := r.db.SelectContext(ctx, &departments, query); err != nil {
		r.logger.Error("Failed to list departments", "error", err)
		return nil, fmt.Errorf("failed to list departments: %w", err)
	}

	return departments, nil
}
