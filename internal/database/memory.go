package database

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-memory ComplaintStore and RosterStore. It backs unit
// tests and the embedded (database-less) mode, and honors the same atomicity
// and version-check semantics as the Postgres repositories.
type MemoryStore struct {
	mu          sync.RWMutex
	seq         int64
	complaints  map[string]*Complaint
	timelines   map[string][]*TimelineEvent
	staff       map[string]*Staff
	departments map[string]*Department
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		complaints:  make(map[string]*Complaint),
		timelines:   make(map[string][]*TimelineEvent),
		staff:       make(map[string]*Staff),
		departments: make(map[string]*Department),
	}
}

// SeedStaff loads staff records, replacing any with the same id.
func (m *MemoryStore) SeedStaff(staff ...*Staff) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, member := range staff {
		copied := *member
		m.staff[member.ID] = &copied
	}
}

// SeedDepartments loads department records, replacing any with the same id.
func (m *MemoryStore) SeedDepartments(departments ...*Department) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, dept := range departments {
		copied := *dept
		m.departments[dept.ID] = &copied
	}
}

func (m *MemoryStore) CreateComplaint(_ context.Context, complaint *Complaint, initial TimelineEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.seq++
	complaint.ID = fmt.Sprintf("GG-%05d", m.seq)
	complaint.Version = 1
	now := time.Now().UTC()
	complaint.CreatedAt = now
	complaint.UpdatedAt = now

	stored := *complaint
	m.complaints[complaint.ID] = &stored
	m.appendLocked(complaint.ID, initial)
	return nil
}

func (m *MemoryStore) GetComplaint(_ context.Context, id string) (*Complaint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stored, ok := m.complaints[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *stored
	return &copied, nil
}

func (m *MemoryStore) UpdateComplaint(_ context.Context, complaint *Complaint, expectedVersion int, events ...TimelineEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.complaints[complaint.ID]
	if !ok {
		return ErrNotFound
	}
	if stored.Version != expectedVersion {
		return ErrVersionConflict
	}

	complaint.Version = expectedVersion + 1
	complaint.UpdatedAt = time.Now().UTC()
	complaint.CreatedAt = stored.CreatedAt

	updated := *complaint
	m.complaints[complaint.ID] = &updated
	m.appendLocked(complaint.ID, events...)
	return nil
}

func (m *MemoryStore) appendLocked(complaintID string, events ...TimelineEvent) {
	existing := m.timelines[complaintID]
	seq := len(existing)
	for _, event := range events {
		seq++
		event.ComplaintID = complaintID
		event.Seq = seq
		if event.CreatedAt.IsZero() {
			event.CreatedAt = time.Now().UTC()
		}
		copied := event
		m.timelines[complaintID] = append(m.timelines[complaintID], &copied)
	}
}

func (m *MemoryStore) ListComplaints(_ context.Context, filter Filter) ([]*Complaint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var matched []*Complaint
	for _, complaint := range m.complaints {
		if !matchesFilter(complaint, filter) {
			continue
		}
		copied := *complaint
		matched = append(matched, &copied)
	}

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID > matched[j].ID
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(matched) {
			return nil, nil
		}
		matched = matched[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(matched) {
		matched = matched[:filter.Limit]
	}

	return matched, nil
}

func matchesFilter(c *Complaint, filter Filter) bool {
	if len(filter.Statuses) > 0 {
		found := false
		for _, s := range filter.Statuses {
			if c.Status == s {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if filter.Department != "" && (c.AssignedDepartment == nil || *c.AssignedDepartment != filter.Department) {
		return false
	}
	if filter.Ward != "" && c.Ward != filter.Ward {
		return false
	}
	if filter.Category != "" && c.Category != filter.Category {
		return false
	}
	if filter.SLABreached != nil {
		now := filter.Now
		if now.IsZero() {
			now = time.Now().UTC()
		}
		if c.EffectiveSLABreached(now) != *filter.SLABreached {
			return false
		}
	}
	if filter.DateFrom != nil && c.CreatedAt.Before(*filter.DateFrom) {
		return false
	}
	if filter.DateTo != nil && c.CreatedAt.After(*filter.DateTo) {
		return false
	}
	return true
}

func (m *MemoryStore) ListSLAOverdue(_ context.Context, now time.Time, limit int) ([]*Complaint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var overdue []*Complaint
	for _, complaint := range m.complaints {
		if complaint.SLADeadline == nil || complaint.SLABreached {
			continue
		}
		if complaint.Status != StatusAssigned && complaint.Status != StatusInProgress {
			continue
		}
		if !complaint.SLADeadline.Before(now) {
			continue
		}
		copied := *complaint
		overdue = append(overdue, &copied)
	}

	sort.Slice(overdue, func(i, j int) bool {
		return overdue[i].SLADeadline.Before(*overdue[j].SLADeadline)
	})
	if limit > 0 && limit < len(overdue) {
		overdue = overdue[:limit]
	}

	return overdue, nil
}

func (m *MemoryStore) ListReviewOverdue(_ context.Context, now time.Time, limit int) ([]*Complaint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var overdue []*Complaint
	for _, complaint := range m.complaints {
		if complaint.Status != StatusAwaitingSupervisor || complaint.SupervisorOverdue {
			continue
		}
		if complaint.SupervisorDeadline == nil || !complaint.SupervisorDeadline.Before(now) {
			continue
		}
		copied := *complaint
		overdue = append(overdue, &copied)
	}

	sort.Slice(overdue, func(i, j int) bool {
		return overdue[i].SupervisorDeadline.Before(*overdue[j].SupervisorDeadline)
	})
	if limit > 0 && limit < len(overdue) {
		overdue = overdue[:limit]
	}

	return overdue, nil
}

func (m *MemoryStore) Timeline(_ context.Context, complaintID string) ([]*TimelineEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	events := m.timelines[complaintID]
	copied := make([]*TimelineEvent, len(events))
	for i, event := range events {
		e := *event
		copied[i] = &e
	}
	return copied, nil
}

func (m *MemoryStore) CountActiveByAssignee(_ context.Context) (map[string]int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	counts := make(map[string]int)
	for _, complaint := range m.complaints {
		if complaint.Status.IsTerminal() {
			continue
		}
		if complaint.AssignedOfficerID != nil {
			counts[*complaint.AssignedOfficerID]++
		}
		if complaint.AssignedWorkerID != nil {
			counts[*complaint.AssignedWorkerID]++
		}
		if complaint.SupervisorID != nil && complaint.Status == StatusAwaitingSupervisor {
			counts[*complaint.SupervisorID]++
		}
	}
	return counts, nil
}

func (m *MemoryStore) ListStaff(_ context.Context) ([]*Staff, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	staff := make([]*Staff, 0, len(m.staff))
	for _, member := range m.staff {
		copied := *member
		staff = append(staff, &copied)
	}
	sort.Slice(staff, func(i, j int) bool { return staff[i].ID < staff[j].ID })
	return staff, nil
}

func (m *MemoryStore) GetStaff(_ context.Context, id string) (*Staff, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	member, ok := m.staff[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *member
	return &copied, nil
}

func (m *MemoryStore) ListDepartments(_ context.Context) ([]*Department, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	departments := make([]*Department, 0, len(m.departments))
	for _, dept := range m.departments {
		copied := *dept
		departments = append(departments, &copied)
	}
	sort.Slice(departments, func(i, j int) bool { return departments[i].ID < departments[j].ID })
	return departments, nil
}
