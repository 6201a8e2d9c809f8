package deploy

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTransition(t *testing.T) {
	okResult := Result{Status: ResultOK}
	failed := Result{Status: ResultFatal, Err: errors.New("boom")}
	degradedResult := Result{Status: ResultDegraded, Err: errors.New("meh")}
	skippedResult := Result{Status: ResultSkipped}
	explicit := Plan{Explicit: true}

	tests := []struct {
		name  string
		state State
		res   Result
		plan  Plan
		want  State
	}{
		{"start", StateStart, okResult, Plan{}, StateValidate},
		{"validate ok", StateValidate, okResult, Plan{}, StateSnapshot},
		{"validate fails", StateValidate, failed, Plan{}, StateFailed},
		{"snapshot ok", StateSnapshot, okResult, Plan{}, StateBackup},
		{"snapshot explicit rollback", StateSnapshot, okResult, explicit, StateRollback},
		{"snapshot fails", StateSnapshot, failed, Plan{}, StateFailed},
		{"backup ok", StateBackup, okResult, Plan{}, StateTagUpdate},
		{"backup degraded continues", StateBackup, degradedResult, Plan{}, StateTagUpdate},
		{"backup skipped continues", StateBackup, skippedResult, Plan{}, StateTagUpdate},
		{"tag update ok", StateTagUpdate, okResult, Plan{}, StatePull},
		{"tag update fails", StateTagUpdate, failed, Plan{}, StateFailed},
		{"pull ok", StatePull, okResult, Plan{}, StateMigrate},
		{"pull fails", StatePull, failed, Plan{}, StateFailed},
		{"migrate ok", StateMigrate, okResult, Plan{}, StateSwitch},
		{"migrate skipped", StateMigrate, skippedResult, Plan{}, StateSwitch},
		{"migrate fails", StateMigrate, failed, Plan{}, StateMigrationFailed},
		{"switch ok", StateSwitch, okResult, Plan{}, StateCollectAssets},
		{"switch fails rolls back", StateSwitch, failed, Plan{}, StateRollback},
		{"assets degraded continues", StateCollectAssets, degradedResult, Plan{}, StateProbe},
		{"probe ok", StateProbe, okResult, Plan{}, StateSuccess},
		{"probe fails", StateProbe, failed, Plan{}, StateRollback},
		{"rollback ok", StateRollback, okResult, Plan{}, StateRollbackProbe},
		{"rollback fails", StateRollback, failed, Plan{}, StateManualIntervention},
		{"rollback probe ok", StateRollbackProbe, okResult, Plan{}, StateRollbackSuccess},
		{"rollback probe fails", StateRollbackProbe, failed, Plan{}, StateManualIntervention},
		{"terminal stays", StateSuccess, failed, Plan{}, StateSuccess},
		{"manual intervention stays", StateManualIntervention, okResult, Plan{}, StateManualIntervention},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Transition(tt.state, tt.res, tt.plan))
		})
	}
}

func TestTransitionReachesTerminalState(t *testing.T) {
	for _, plan := range []Plan{{}, {Explicit: true}} {
		for _, status := range []ResultStatus{ResultOK, ResultFatal, ResultDegraded, ResultSkipped} {
			state := StateStart
			for i := 0; i < 20 && !state.Terminal(); i++ {
				state = Transition(state, Result{Status: status}, plan)
			}
			assert.True(t, state.Terminal(), "plan=%+v status=%s ended in %s", plan, status, state)
		}
	}
}

func TestStateProperties(t *testing.T) {
	assert.Equal(t, "tag_update", StateTagUpdate.String())
	assert.Equal(t, "unknown", State(99).String())

	assert.False(t, StateProbe.Terminal())
	assert.True(t, StateMigrationFailed.Terminal())

	assert.False(t, StateMigrate.TouchesTraffic())
	assert.True(t, StateSwitch.TouchesTraffic())
	assert.True(t, StateRollback.TouchesTraffic())
}
