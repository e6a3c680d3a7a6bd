package assignment

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/civicgrid/grievance-engine/internal/database"
)

const snapshotCacheKey = "roster_snapshot"

// RosterService builds workload snapshots for the resolver. Snapshots are
// cached briefly so a burst of submissions does not recount workloads per
// request; workload itself is always derived from non-terminal complaint
// counts, never maintained as a separate counter.
type RosterService struct {
	roster     database.RosterStore
	complaints database.ComplaintStore
	cache      *gocache.Cache
	logger     *slog.Logger
}

// NewRosterService creates a roster service with the given snapshot TTL.
func NewRosterService(
	roster database.RosterStore,
	complaints database.ComplaintStore,
	ttl, cleanup time.Duration,
	logger *slog.Logger,
) *RosterService {
	return &RosterService{
		roster:     roster,
		complaints: complaints,
		cache:      gocache.New(ttl, cleanup),
		logger:     logger,
	}
}

// Snapshot returns a current roster/workload snapshot, from cache when fresh.
func (s *RosterService) Snapshot(ctx context.Context) (Snapshot, error) {
	if cached, ok := s.cache.Get(snapshotCacheKey); ok {
		return cached.(Snapshot), nil
	}

	staff, err := s.roster.ListStaff(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to load staff roster: %w", err)
	}

	departments, err := s.roster.ListDepartments(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to load departments: %w", err)
	}

	workloads, err := s.complaints.CountActiveByAssignee(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to derive workloads: %w", err)
	}

	snap := Snapshot{
		Staff:       staff,
		Departments: departments,
		Workloads:   workloads,
	}
	s.cache.SetDefault(snapshotCacheKey, snap)

	s.logger.Debug("Roster snapshot refreshed",
		"staff", len(staff),
		"departments", len(departments))
	return snap, nil
}

// Invalidate drops the cached snapshot so the next read recounts workloads.
// Called after transitions that change assignment state.
func (s *RosterService) Invalidate() {
	s.cache.Delete(snapshotCacheKey)
}
