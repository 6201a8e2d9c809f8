// Package deploy drives one rollout of a compose application through its
// phases and, when the new release is unhealthy, back to the previous one.
package deploy

import (
	"context"
	"fmt"
	"time"

	"github.com/ameistad/deployctl/internal/audit"
	"github.com/ameistad/deployctl/internal/config"
	"github.com/ameistad/deployctl/internal/docker"
	"github.com/ameistad/deployctl/internal/logging"
	"github.com/ameistad/deployctl/internal/metrics"
	"github.com/juju/clock"
)

// Dependencies are the collaborators of an Orchestrator. Pruner, Backup,
// History and Metrics are optional.
type Dependencies struct {
	Services ServiceController
	Pruner   ImagePruner
	Prober   Prober
	Backup   BackupAgent
	Migrator Migrator
	History  HistoryStore
	Metrics  *metrics.Recorder
	Clock    clock.Clock
}

type Orchestrator struct {
	opts  *config.Options
	deps  Dependencies
	clock clock.Clock

	env   *config.EnvFile
	state *RollbackState
	audit *audit.Writer
	lock  *Lock

	descriptor *docker.Descriptor
}

// New returns an orchestrator for opts, which must already be normalized.
func New(opts *config.Options, deps Dependencies) *Orchestrator {
	clk := deps.Clock
	if clk == nil {
		clk = clock.WallClock
	}
	return &Orchestrator{
		opts:  opts,
		deps:  deps,
		clock: clk,
		env:   config.NewEnvFile(opts.EnvFilePath()),
		state: NewRollbackState(opts.RollbackStatePath()),
		audit: audit.NewWriter(opts.AuditLogPath()),
	}
}

// Run executes one rollout and returns the attempt. The error is nil when the
// run ended with exit code 0 and an *ExitError otherwise.
//
// Cancelling ctx before SWITCH stops the run at the next phase boundary and
// reverts the tag. Once SWITCH has begun cancellation is ignored and the run
// always reaches a terminal state.
func (o *Orchestrator) Run(ctx context.Context) (*Attempt, error) {
	plan := Plan{Explicit: o.opts.IsRollback()}
	a := NewAttempt(o.opts.AppName, o.opts.TargetTag(), plan, o.clock.Now())

	logger := logging.ForAttempt(*logging.Ctx(ctx), a.App, a.ID.String())
	ctx = logging.WithLogger(ctx, logger)
	defer o.releaseLock(ctx)

	logger.Info().Str(logging.LogFieldTag, a.TargetTag).Bool("explicit_rollback", plan.Explicit).Msg("Starting rollout")

	state := Transition(StateStart, Result{}, plan)
	for !state.Terminal() {
		a.State = state
		if err := ctx.Err(); err != nil && !state.TouchesTraffic() {
			interrupted := fatal(err, "interrupted before %s", state)
			o.report(ctx, state, interrupted)
			if a.Failure == nil {
				a.Failure = &interrupted
			}
			state = StateFailed
			break
		}
		if state.TouchesTraffic() {
			ctx = context.WithoutCancel(ctx)
		}

		o.announce(state, plan)
		started := o.clock.Now()
		result := o.runPhase(ctx, a, state)
		o.observePhase(a, state, o.clock.Now().Sub(started))
		o.report(ctx, state, result)

		if result.Fatal() && a.Failure == nil {
			failure := result
			a.Failure = &failure
		}
		if o.opts.DryRun && state == StateValidate && !result.Fatal() {
			o.describePlan(a)
			a.Outcome = OutcomeSuccess
			return a, nil
		}
		state = Transition(state, result, plan)
	}

	a.State = state
	return a, o.finish(ctx, a)
}

func (o *Orchestrator) runPhase(ctx context.Context, a *Attempt, s State) Result {
	ctx = logging.WithLogger(ctx, logging.Ctx(ctx).With().Str(logging.LogFieldPhase, s.String()).Logger())
	switch s {
	case StateValidate:
		return o.validate(ctx)
	case StateSnapshot:
		return o.snapshot(ctx, a)
	case StateBackup:
		return o.backup(ctx, a)
	case StateTagUpdate:
		return o.tagUpdate(a)
	case StatePull:
		return o.pull(ctx)
	case StateMigrate:
		return o.migrate(ctx, a)
	case StateSwitch:
		return o.switchServices(ctx)
	case StateCollectAssets:
		return o.collectAssets(ctx)
	case StateProbe:
		return o.probe(ctx, a)
	case StateRollback:
		return o.rollback(ctx, a)
	case StateRollbackProbe:
		return o.rollbackProbe(ctx, a)
	}
	return fatal(fmt.Errorf("no phase for state %s", s), "internal error")
}

// event appends one audit record and keeps it on the attempt. Audit failures
// are logged and do not change the outcome. Dry runs only keep it in memory.
func (o *Orchestrator) event(ctx context.Context, a *Attempt, action audit.Action, status audit.Status, tag, detail string) {
	e := audit.Event{
		Timestamp: o.clock.Now().UTC(),
		App:       a.App,
		Tag:       tag,
		Action:    action,
		Status:    status,
		Detail:    detail,
	}
	if o.opts.DryRun {
		a.Events = append(a.Events, e)
		return
	}
	e, err := o.audit.Append(e)
	if err != nil {
		logging.Ctx(ctx).Error().Err(err).Str("action", string(action)).Msg("Failed to write audit event")
	}
	a.Events = append(a.Events, e)
}

func (o *Orchestrator) releaseLock(ctx context.Context) {
	if err := o.lock.Release(); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("Failed to release deploy lock")
	}
}

func (o *Orchestrator) observePhase(a *Attempt, s State, d time.Duration) {
	if o.deps.Metrics != nil {
		o.deps.Metrics.ObservePhase(a.App, s.String(), d)
	}
}
