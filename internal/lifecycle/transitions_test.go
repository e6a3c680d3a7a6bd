package lifecycle

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/civicgrid/grievance-engine/internal/database"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from    database.Status
		to      database.Status
		allowed bool
	}{
		{database.StatusReported, database.StatusAssigned, true},
		{database.StatusReported, database.StatusUnverified, true},
		{database.StatusReported, database.StatusInProgress, false},
		{database.StatusReported, database.StatusResolved, false},

		{database.StatusAssigned, database.StatusInProgress, true},
		{database.StatusAssigned, database.StatusResolved, true},
		{database.StatusAssigned, database.StatusAwaitingSupervisor, true},
		{database.StatusAssigned, database.StatusClosed, false},
		{database.StatusAssigned, database.StatusReported, false},

		{database.StatusInProgress, database.StatusResolved, true},
		{database.StatusInProgress, database.StatusAwaitingSupervisor, true},
		{database.StatusInProgress, database.StatusAssigned, false},

		{database.StatusAwaitingSupervisor, database.StatusClosed, true},
		{database.StatusAwaitingSupervisor, database.StatusInProgress, true},
		{database.StatusAwaitingSupervisor, database.StatusResolved, false},

		{database.StatusResolved, database.StatusClosed, true},
		{database.StatusResolved, database.StatusInProgress, false},

		// Terminal states go nowhere.
		{database.StatusClosed, database.StatusInProgress, false},
		{database.StatusRejected, database.StatusReported, false},
		{database.StatusDuplicate, database.StatusAssigned, false},
		{database.StatusUnverified, database.StatusAssigned, false},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.allowed, CanTransition(tc.from, tc.to),
			"%s -> %s", tc.from, tc.to)
	}
}

func TestTerminalStatuses(t *testing.T) {
	terminal := []database.Status{
		database.StatusResolved, database.StatusClosed, database.StatusRejected,
		database.StatusDuplicate, database.StatusUnverified,
	}
	for _, status := range terminal {
		assert.True(t, status.IsTerminal(), "%s", status)
		assert.False(t, status.ClockRunning(), "%s", status)
	}

	running := []database.Status{
		database.StatusAssigned, database.StatusInProgress, database.StatusAwaitingSupervisor,
	}
	for _, status := range running {
		assert.False(t, status.IsTerminal(), "%s", status)
		assert.True(t, status.ClockRunning(), "%s", status)
	}

	assert.False(t, database.StatusReported.IsTerminal())
	assert.False(t, database.StatusReported.ClockRunning())
}
