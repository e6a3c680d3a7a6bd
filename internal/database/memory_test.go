package database

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newComplaint(status Status) *Complaint {
	return &Complaint{
		Category:    "Streetlight",
		Severity:    SeverityMedium,
		Description: "test complaint",
		Ward:        "ward-1",
		CitizenRef:  "citizen-1",
		Status:      status,
	}
}

func TestCreateComplaintAssignsSequentialIDs(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	first := newComplaint(StatusReported)
	require.NoError(t, store.CreateComplaint(ctx, first, TimelineEvent{Action: "submitted"}))
	second := newComplaint(StatusReported)
	require.NoError(t, store.CreateComplaint(ctx, second, TimelineEvent{Action: "submitted"}))

	assert.Equal(t, "GG-00001", first.ID)
	assert.Equal(t, "GG-00002", second.ID)
	assert.Equal(t, 1, first.Version)
}

func TestUpdateComplaintVersionCheck(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	complaint := newComplaint(StatusReported)
	require.NoError(t, store.CreateComplaint(ctx, complaint, TimelineEvent{Action: "submitted"}))

	// A write with the current version succeeds and bumps it.
	complaint.Status = StatusAssigned
	require.NoError(t, store.UpdateComplaint(ctx, complaint, 1, TimelineEvent{Action: "assigned"}))
	assert.Equal(t, 2, complaint.Version)

	// A write carrying the old version is rejected untouched.
	stale := *complaint
	stale.Status = StatusRejected
	err := store.UpdateComplaint(ctx, &stale, 1, TimelineEvent{Action: "marked_rejected"})
	assert.ErrorIs(t, err, ErrVersionConflict)

	current, err := store.GetComplaint(ctx, complaint.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusAssigned, current.Status)

	timeline, err := store.Timeline(ctx, complaint.ID)
	require.NoError(t, err)
	assert.Len(t, timeline, 2, "the conflicting write appended nothing")
}

func TestUpdateUnknownComplaint(t *testing.T) {
	store := NewMemoryStore()

	missing := newComplaint(StatusReported)
	missing.ID = "GG-00042"
	err := store.UpdateComplaint(context.Background(), missing, 1)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.GetComplaint(context.Background(), "GG-00042")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTimelineSequencing(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	complaint := newComplaint(StatusReported)
	require.NoError(t, store.CreateComplaint(ctx, complaint, TimelineEvent{Action: "submitted"}))
	require.NoError(t, store.UpdateComplaint(ctx, complaint, 1,
		TimelineEvent{Action: "assigned"}, TimelineEvent{Action: "work_started"}))

	timeline, err := store.Timeline(ctx, complaint.ID)
	require.NoError(t, err)
	require.Len(t, timeline, 3)
	for i, event := range timeline {
		assert.Equal(t, i+1, event.Seq)
		assert.Equal(t, complaint.ID, event.ComplaintID)
	}
}

func TestListComplaintsFiltering(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	reported := newComplaint(StatusReported)
	require.NoError(t, store.CreateComplaint(ctx, reported, TimelineEvent{Action: "submitted"}))

	assigned := newComplaint(StatusAssigned)
	assigned.Ward = "ward-2"
	require.NoError(t, store.CreateComplaint(ctx, assigned, TimelineEvent{Action: "submitted"}))

	byStatus, err := store.ListComplaints(ctx, Filter{Statuses: []Status{StatusAssigned}})
	require.NoError(t, err)
	require.Len(t, byStatus, 1)
	assert.Equal(t, assigned.ID, byStatus[0].ID)

	byWard, err := store.ListComplaints(ctx, Filter{Ward: "ward-1"})
	require.NoError(t, err)
	require.Len(t, byWard, 1)
	assert.Equal(t, reported.ID, byWard[0].ID)

	all, err := store.ListComplaints(ctx, Filter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	limited, err := store.ListComplaints(ctx, Filter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestListComplaintsBreachFilterUsesDeadline(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	now := time.Date(2025, 3, 12, 10, 0, 0, 0, time.UTC)

	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	lapsed := newComplaint(StatusAssigned)
	lapsed.SLADeadline = &past
	require.NoError(t, store.CreateComplaint(ctx, lapsed, TimelineEvent{Action: "submitted"}))

	onTime := newComplaint(StatusAssigned)
	onTime.SLADeadline = &future
	require.NoError(t, store.CreateComplaint(ctx, onTime, TimelineEvent{Action: "submitted"}))

	flagged := newComplaint(StatusInProgress)
	flagged.SLADeadline = &past
	flagged.SLABreached = true
	require.NoError(t, store.CreateComplaint(ctx, flagged, TimelineEvent{Action: "submitted"}))

	breached := true
	results, err := store.ListComplaints(ctx, Filter{SLABreached: &breached, Now: now})
	require.NoError(t, err)
	require.Len(t, results, 2, "a lapsed deadline matches even before the scan flags it")
	assert.ElementsMatch(t, []string{lapsed.ID, flagged.ID}, []string{results[0].ID, results[1].ID})

	notBreached := false
	results, err = store.ListComplaints(ctx, Filter{SLABreached: &notBreached, Now: now})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, onTime.ID, results[0].ID)
}

func TestListSLAOverdue(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	now := time.Date(2025, 3, 12, 10, 0, 0, 0, time.UTC)

	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	overdue := newComplaint(StatusAssigned)
	overdue.SLADeadline = &past
	require.NoError(t, store.CreateComplaint(ctx, overdue, TimelineEvent{Action: "submitted"}))

	onTime := newComplaint(StatusInProgress)
	onTime.SLADeadline = &future
	require.NoError(t, store.CreateComplaint(ctx, onTime, TimelineEvent{Action: "submitted"}))

	alreadyFlagged := newComplaint(StatusAssigned)
	alreadyFlagged.SLADeadline = &past
	alreadyFlagged.SLABreached = true
	require.NoError(t, store.CreateComplaint(ctx, alreadyFlagged, TimelineEvent{Action: "submitted"}))

	awaiting := newComplaint(StatusAwaitingSupervisor)
	awaiting.SLADeadline = &past
	require.NoError(t, store.CreateComplaint(ctx, awaiting, TimelineEvent{Action: "submitted"}))

	results, err := store.ListSLAOverdue(ctx, now, 100)
	require.NoError(t, err)
	require.Len(t, results, 1, "only unflagged assigned/in_progress complaints qualify")
	assert.Equal(t, overdue.ID, results[0].ID)
}

func TestCountActiveByAssignee(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	officer := "off-1"
	worker := "wrk-1"

	active := newComplaint(StatusInProgress)
	active.AssignedOfficerID = &officer
	active.AssignedWorkerID = &worker
	require.NoError(t, store.CreateComplaint(ctx, active, TimelineEvent{Action: "submitted"}))

	closed := newComplaint(StatusClosed)
	closed.AssignedOfficerID = &officer
	require.NoError(t, store.CreateComplaint(ctx, closed, TimelineEvent{Action: "submitted"}))

	counts, err := store.CountActiveByAssignee(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, counts[officer], "terminal complaints do not count as load")
	assert.Equal(t, 1, counts[worker])
}

func TestStoreReturnsCopies(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	complaint := newComplaint(StatusReported)
	require.NoError(t, store.CreateComplaint(ctx, complaint, TimelineEvent{Action: "submitted"}))

	fetched, err := store.GetComplaint(ctx, complaint.ID)
	require.NoError(t, err)
	fetched.Status = StatusClosed

	again, err := store.GetComplaint(ctx, complaint.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusReported, again.Status, "mutating a returned copy must not leak into the store")
}
