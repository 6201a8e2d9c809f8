package deploy

import (
	"crypto/rand"
	"time"

	"github.com/ameistad/deployctl/internal/audit"
	"github.com/ameistad/deployctl/internal/db"
	"github.com/oklog/ulid"
)

type Outcome string

const (
	OutcomeSuccess            Outcome = db.OutcomeSuccess
	OutcomeRolledBack         Outcome = db.OutcomeRolledBack
	OutcomeManualIntervention Outcome = db.OutcomeManualIntervention
	OutcomeFailed             Outcome = db.OutcomeFailed
	OutcomeMigrationFailed    Outcome = db.OutcomeMigrationFailed
)

func outcomeFor(s State) Outcome {
	switch s {
	case StateSuccess:
		return OutcomeSuccess
	case StateRollbackSuccess:
		return OutcomeRolledBack
	case StateManualIntervention:
		return OutcomeManualIntervention
	case StateMigrationFailed:
		return OutcomeMigrationFailed
	}
	return OutcomeFailed
}

// Attempt is one execution of the orchestrator.
type Attempt struct {
	ID          ulid.ULID
	App         string
	PreviousTag string
	TargetTag   string
	Plan        Plan
	StartedAt   time.Time
	FinishedAt  time.Time

	State    State
	Outcome  Outcome
	ExitCode int
	Events   []audit.Event

	// Failure is the result that sent the run off the happy path.
	Failure *Result

	snapshotTaken bool
	tagUpdated    bool
	// The raw tag line in the env file before the run, used to restore it
	// exactly when the run stops before any container was touched.
	configuredLine   string
	tagWasConfigured bool
}

func NewAttempt(app, targetTag string, plan Plan, now time.Time) *Attempt {
	return &Attempt{
		ID:        ulid.MustNew(ulid.Timestamp(now), rand.Reader),
		App:       app,
		TargetTag: targetTag,
		Plan:      plan,
		StartedAt: now,
		State:     StateStart,
	}
}

func (a *Attempt) Duration() time.Duration {
	if a.FinishedAt.IsZero() {
		return 0
	}
	return a.FinishedAt.Sub(a.StartedAt)
}

func (a *Attempt) record() db.Attempt {
	detail := ""
	if a.Failure != nil {
		detail = a.Failure.Message
	}
	return db.Attempt{
		ID:          a.ID.String(),
		AppName:     a.App,
		PreviousTag: a.PreviousTag,
		TargetTag:   a.TargetTag,
		Outcome:     string(a.Outcome),
		ExitCode:    a.ExitCode,
		Detail:      detail,
		StartedAt:   a.StartedAt,
		FinishedAt:  a.FinishedAt,
	}
}
