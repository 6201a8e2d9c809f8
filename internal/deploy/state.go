package deploy

import "fmt"

// State is one step of a rollout.
type State int

const (
	StateStart State = iota
	StateValidate
	StateSnapshot
	StateBackup
	StateTagUpdate
	StatePull
	StateMigrate
	StateSwitch
	StateCollectAssets
	StateProbe
	StateRollback
	StateRollbackProbe

	// Terminal states.
	StateSuccess
	StateRollbackSuccess
	StateManualIntervention
	StateFailed
	StateMigrationFailed
)

var stateNames = map[State]string{
	StateStart:              "start",
	StateValidate:           "validate",
	StateSnapshot:           "snapshot",
	StateBackup:             "backup",
	StateTagUpdate:          "tag_update",
	StatePull:               "pull",
	StateMigrate:            "migrate",
	StateSwitch:             "switch",
	StateCollectAssets:      "collect_assets",
	StateProbe:              "probe",
	StateRollback:           "rollback",
	StateRollbackProbe:      "rollback_probe",
	StateSuccess:            "success",
	StateRollbackSuccess:    "rollback_success",
	StateManualIntervention: "manual_intervention",
	StateFailed:             "failed",
	StateMigrationFailed:    "migration_failed",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

func (s State) Terminal() bool {
	return s >= StateSuccess
}

// TouchesTraffic reports whether live containers may have been replaced once
// the rollout has reached s.
func (s State) TouchesTraffic() bool {
	switch s {
	case StateSwitch, StateCollectAssets, StateProbe, StateRollback, StateRollbackProbe:
		return true
	}
	return false
}

// ResultStatus classifies how a phase ended.
type ResultStatus int

const (
	ResultOK ResultStatus = iota
	// ResultDegraded is a failure the rollout continues past.
	ResultDegraded
	ResultFatal
	ResultSkipped
)

func (s ResultStatus) String() string {
	switch s {
	case ResultOK:
		return "ok"
	case ResultDegraded:
		return "degraded"
	case ResultFatal:
		return "fatal"
	case ResultSkipped:
		return "skipped"
	}
	return "unknown"
}

// Result is what a phase reports back to the orchestrator. Code is the exit
// code of the external command the phase ran, when there was one.
type Result struct {
	Status  ResultStatus
	Code    int
	Message string
	Err     error
}

func ok(format string, args ...any) Result {
	return Result{Status: ResultOK, Message: fmt.Sprintf(format, args...)}
}

func skipped(format string, args ...any) Result {
	return Result{Status: ResultSkipped, Message: fmt.Sprintf(format, args...)}
}

func degraded(err error, format string, args ...any) Result {
	return Result{Status: ResultDegraded, Message: fmt.Sprintf(format, args...), Err: err}
}

func fatal(err error, format string, args ...any) Result {
	return Result{Status: ResultFatal, Message: fmt.Sprintf(format, args...), Err: err}
}

func (r Result) Fatal() bool {
	return r.Status == ResultFatal
}

// Plan holds the per-run flags that change the path through the states.
type Plan struct {
	// Explicit is set when the operator asked for a specific release to be
	// restored. The run goes straight from SNAPSHOT to ROLLBACK.
	Explicit bool
}

// Transition returns the state that follows s given the result of running
// it. Terminal states map to themselves.
func Transition(s State, r Result, p Plan) State {
	switch s {
	case StateStart:
		return StateValidate
	case StateValidate:
		if r.Fatal() {
			return StateFailed
		}
		return StateSnapshot
	case StateSnapshot:
		if r.Fatal() {
			return StateFailed
		}
		if p.Explicit {
			return StateRollback
		}
		return StateBackup
	case StateBackup:
		return StateTagUpdate
	case StateTagUpdate:
		if r.Fatal() {
			return StateFailed
		}
		return StatePull
	case StatePull:
		if r.Fatal() {
			return StateFailed
		}
		return StateMigrate
	case StateMigrate:
		if r.Fatal() {
			return StateMigrationFailed
		}
		return StateSwitch
	case StateSwitch:
		if r.Fatal() {
			return StateRollback
		}
		return StateCollectAssets
	case StateCollectAssets:
		return StateProbe
	case StateProbe:
		if r.Fatal() {
			return StateRollback
		}
		return StateSuccess
	case StateRollback:
		if r.Fatal() {
			return StateManualIntervention
		}
		return StateRollbackProbe
	case StateRollbackProbe:
		if r.Fatal() {
			return StateManualIntervention
		}
		return StateRollbackSuccess
	}
	return s
}
