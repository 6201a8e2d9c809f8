package deploy

import (
	"errors"
	"fmt"
)

// Process exit codes.
const (
	ExitOK                 = 0
	ExitFailure            = 1
	ExitRolledBack         = 2
	ExitManualIntervention = 3
	ExitMigrationFailed    = 4
)

var (
	ErrStaleRollbackState = errors.New("rollback state from an earlier run is still present")
	ErrLocked             = errors.New("another deployment is already running")
	ErrNoPreviousTag      = errors.New("no previous release tag is known")
)

// ExitError carries the exit code a rollout ended with.
type ExitError struct {
	Code  int
	State State
	Err   error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("deployment ended in state %s (exit code %d)", e.State, e.Code)
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// ExitCodeOf maps err to a process exit code: 0 for nil, the carried code
// for an *ExitError and 1 for anything else.
func ExitCodeOf(err error) int {
	if err == nil {
		return ExitOK
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// exitCodeFor maps a terminal state to the process exit code.
func exitCodeFor(s State, p Plan) int {
	switch s {
	case StateSuccess:
		return ExitOK
	case StateRollbackSuccess:
		if p.Explicit {
			return ExitOK
		}
		return ExitRolledBack
	case StateManualIntervention:
		return ExitManualIntervention
	case StateMigrationFailed:
		return ExitMigrationFailed
	}
	return ExitFailure
}
