package deploy

import (
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttemptID(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	a1 := NewAttempt("shop", "v1.3.0", Plan{}, now)
	a2 := NewAttempt("shop", "v1.3.0", Plan{}, now.Add(time.Millisecond))

	assert.Len(t, a1.ID.String(), 26, "ULIDs are 26 characters")
	assert.NotEqual(t, a1.ID, a2.ID)
	assert.Greater(t, a2.ID.String(), a1.ID.String(), "IDs sort by start time")
	assert.Equal(t, StateStart, a1.State)
}

func TestExitCodeOf(t *testing.T) {
	assert.Equal(t, 0, ExitCodeOf(nil))
	assert.Equal(t, 1, ExitCodeOf(errors.New("boom")))
	assert.Equal(t, 4, ExitCodeOf(&ExitError{Code: ExitMigrationFailed}))
	assert.Equal(t, 3, ExitCodeOf(fmt.Errorf("wrapped: %w", &ExitError{Code: ExitManualIntervention})))
}

func TestExitCodeFor(t *testing.T) {
	tests := []struct {
		state State
		plan  Plan
		want  int
	}{
		{StateSuccess, Plan{}, 0},
		{StateFailed, Plan{}, 1},
		{StateRollbackSuccess, Plan{}, 2},
		{StateRollbackSuccess, Plan{Explicit: true}, 0},
		{StateManualIntervention, Plan{}, 3},
		{StateManualIntervention, Plan{Explicit: true}, 3},
		{StateMigrationFailed, Plan{}, 4},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, exitCodeFor(tt.state, tt.plan), "%s explicit=%v", tt.state, tt.plan.Explicit)
	}
}

func TestRollbackState(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".rollback_state")
	s := NewRollbackState(path)

	tag, found, err := s.Read()
	require.NoError(t, err)
	assert.False(t, found)
	assert.Empty(t, tag)
	assert.NoFileExists(t, path)

	require.NoError(t, s.Write("v1.2.0"))
	assert.FileExists(t, path)
	tag, found, err = s.Read()
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "v1.2.0", tag)

	require.NoError(t, s.Write("v1.3.0"))
	tag, _, err = s.Read()
	require.NoError(t, err)
	assert.Equal(t, "v1.3.0", tag)

	require.NoError(t, s.Remove())
	assert.NoFileExists(t, path)
	require.NoError(t, s.Remove(), "removing a missing file is fine")
}

func TestLockIsSingleFlight(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".deploy.lock")
	first := NewLock(path)
	second := NewLock(path)

	require.NoError(t, first.Acquire())
	assert.ErrorIs(t, second.Acquire(), ErrLocked)

	require.NoError(t, first.Release())
	require.NoError(t, second.Acquire())
	require.NoError(t, second.Release())

	var unset *Lock
	assert.NoError(t, unset.Release())
}
