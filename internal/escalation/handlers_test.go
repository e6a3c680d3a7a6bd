package escalation

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civicgrid/grievance-engine/internal/assignment"
	"github.com/civicgrid/grievance-engine/internal/clock"
	"github.com/civicgrid/grievance-engine/internal/config"
	"github.com/civicgrid/grievance-engine/internal/database"
	"github.com/civicgrid/grievance-engine/internal/lifecycle"
)

var testStart = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

type scanFixture struct {
	store  *database.MemoryStore
	engine *lifecycle.Engine
	clock  *clock.Fake
	sla    config.SLAConfig
	logger *slog.Logger
}

func newScanFixture(t *testing.T, autoEscalate bool) *scanFixture {
	t.Helper()

	store := database.NewMemoryStore()
	store.SeedDepartments(
		&database.Department{ID: "electrical", Name: "Electrical", Categories: []string{"Streetlight"}},
	)
	store.SeedStaff(
		&database.Staff{ID: "off-1", Role: database.RoleOfficer, Department: "electrical", Ward: "ward-12", Rating: 4.2, Active: true},
		&database.Staff{ID: "sup-1", Role: database.RoleSupervisor, Department: "electrical", Ward: "ward-12", Rating: 4.5, Active: true},
	)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	roster := assignment.NewRosterService(store, store, time.Minute, 5*time.Minute, logger)
	clk := clock.NewFake(testStart)
	sla := config.SLAConfig{
		CategoryHours: map[string]int{"Streetlight": 48},
		DefaultHours:  120,
		ReviewWindow:  24 * time.Hour,
		AutoEscalate:  autoEscalate,
	}
	engine := lifecycle.NewEngine(store, roster, sla, clk, logger)

	return &scanFixture{store: store, engine: engine, clock: clk, sla: sla, logger: logger}
}

func (f *scanFixture) submit(t *testing.T) *database.Complaint {
	t.Helper()
	complaint, err := f.engine.SubmitComplaint(context.Background(), lifecycle.SubmitRequest{
		Category:    "Streetlight",
		Severity:    database.SeverityMedium,
		Description: "Dark stretch near the market",
		Ward:        "ward-12",
		CitizenRef:  "citizen-5",
	})
	require.NoError(t, err)
	return complaint
}

func TestSLAScanFlagsAndAutoEscalates(t *testing.T) {
	f := newScanFixture(t, true)
	complaint := f.submit(t)

	handler := NewSLAScanHandler(f.store, f.engine, f.sla, 100, f.clock, f.logger)

	// Before the deadline the scan finds nothing.
	require.NoError(t, handler.Execute(context.Background()))
	current, err := f.engine.GetComplaint(context.Background(), complaint.ID)
	require.NoError(t, err)
	assert.Equal(t, database.StatusAssigned, current.Status)

	f.clock.Advance(49 * time.Hour)

	require.NoError(t, handler.Execute(context.Background()))

	current, err = f.engine.GetComplaint(context.Background(), complaint.ID)
	require.NoError(t, err)
	assert.True(t, current.SLABreached)
	assert.Equal(t, database.StatusAwaitingSupervisor, current.Status)
	require.NotNil(t, current.SupervisorID)
	assert.Equal(t, "sup-1", *current.SupervisorID)
	require.NotNil(t, current.SupervisorDeadline)
	assert.Equal(t, f.clock.Now().Add(24*time.Hour), *current.SupervisorDeadline)
}

func TestSLAScanIsIdempotent(t *testing.T) {
	f := newScanFixture(t, true)
	complaint := f.submit(t)
	handler := NewSLAScanHandler(f.store, f.engine, f.sla, 100, f.clock, f.logger)

	f.clock.Advance(49 * time.Hour)
	require.NoError(t, handler.Execute(context.Background()))
	require.NoError(t, handler.Execute(context.Background()))
	require.NoError(t, handler.Execute(context.Background()))

	timeline, err := f.store.Timeline(context.Background(), complaint.ID)
	require.NoError(t, err)

	breaches, escalations := 0, 0
	for _, event := range timeline {
		switch event.Action {
		case lifecycle.ActionSLABreached:
			breaches++
		case lifecycle.ActionEscalated:
			escalations++
		}
	}
	assert.Equal(t, 1, breaches, "repeat scans write no duplicate breach entries")
	assert.Equal(t, 1, escalations)
}

func TestSLAScanWithoutAutoEscalate(t *testing.T) {
	f := newScanFixture(t, false)
	complaint := f.submit(t)
	handler := NewSLAScanHandler(f.store, f.engine, f.sla, 100, f.clock, f.logger)

	f.clock.Advance(49 * time.Hour)
	require.NoError(t, handler.Execute(context.Background()))

	current, err := f.engine.GetComplaint(context.Background(), complaint.ID)
	require.NoError(t, err)
	assert.True(t, current.SLABreached)
	assert.Equal(t, database.StatusAssigned, current.Status, "breach flag only, escalation left to humans")
}

func TestSLAScanSkipsResolvedComplaints(t *testing.T) {
	f := newScanFixture(t, true)
	complaint := f.submit(t)
	handler := NewSLAScanHandler(f.store, f.engine, f.sla, 100, f.clock, f.logger)

	officer := lifecycle.Actor{ID: "off-1", Role: database.RoleOfficer}
	_, err := f.engine.UpdateStatus(context.Background(), complaint.ID, officer, database.StatusInProgress, "")
	require.NoError(t, err)
	_, err = f.engine.UpdateStatus(context.Background(), complaint.ID, officer, database.StatusResolved, "fixed")
	require.NoError(t, err)

	f.clock.Advance(100 * time.Hour)
	require.NoError(t, handler.Execute(context.Background()))

	current, err := f.engine.GetComplaint(context.Background(), complaint.ID)
	require.NoError(t, err)
	assert.False(t, current.SLABreached)
	assert.Equal(t, database.StatusResolved, current.Status)
}

func TestSupervisorScanFlagsOverdueReviews(t *testing.T) {
	f := newScanFixture(t, false)
	complaint := f.submit(t)

	officer := lifecycle.Actor{ID: "off-1", Role: database.RoleOfficer}
	_, err := f.engine.Escalate(context.Background(), complaint.ID, officer)
	require.NoError(t, err)

	handler := NewSupervisorScanHandler(f.store, f.engine, 100, f.clock, f.logger)

	// Within the review window: nothing to flag.
	require.NoError(t, handler.Execute(context.Background()))
	current, err := f.engine.GetComplaint(context.Background(), complaint.ID)
	require.NoError(t, err)
	assert.False(t, current.SupervisorOverdue)

	f.clock.Advance(25 * time.Hour)

	require.NoError(t, handler.Execute(context.Background()))
	require.NoError(t, handler.Execute(context.Background()))

	current, err = f.engine.GetComplaint(context.Background(), complaint.ID)
	require.NoError(t, err)
	assert.True(t, current.SupervisorOverdue)
	assert.Equal(t, database.StatusAwaitingSupervisor, current.Status,
		"overdue review never transitions the complaint")

	timeline, err := f.store.Timeline(context.Background(), complaint.ID)
	require.NoError(t, err)
	overdueEvents := 0
	for _, event := range timeline {
		if event.Action == lifecycle.ActionSupervisorOverdue {
			overdueEvents++
		}
	}
	assert.Equal(t, 1, overdueEvents)
}

func TestSchedulerRunTaskNow(t *testing.T) {
	f := newScanFixture(t, true)
	complaint := f.submit(t)

	slaScan := NewSLAScanHandler(f.store, f.engine, f.sla, 100, f.clock, f.logger)
	scheduler, err := NewScheduler(config.SchedulerConfig{
		SLAScanSchedule: "@every 1m",
		ScanBatchSize:   100,
	}, f.logger, nil, Task{Schedule: "@every 1m", Handler: slaScan})
	require.NoError(t, err)

	f.clock.Advance(49 * time.Hour)
	require.NoError(t, scheduler.RunTaskNow("sla_breach_scan"))

	current, err := f.engine.GetComplaint(context.Background(), complaint.ID)
	require.NoError(t, err)
	assert.True(t, current.SLABreached)

	stats := scheduler.Stats()
	require.Contains(t, stats, "sla_breach_scan")
	assert.EqualValues(t, 1, stats["sla_breach_scan"]["run_count"])

	assert.Error(t, scheduler.RunTaskNow("no_such_task"))
}

func TestSchedulerRejectsDuplicateTask(t *testing.T) {
	f := newScanFixture(t, true)
	slaScan := NewSLAScanHandler(f.store, f.engine, f.sla, 100, f.clock, f.logger)

	_, err := NewScheduler(config.SchedulerConfig{}, f.logger, nil,
		Task{Schedule: "@every 1m", Handler: slaScan},
		Task{Schedule: "@every 5m", Handler: slaScan},
	)
	assert.Error(t, err)
}
