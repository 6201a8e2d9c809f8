package deploy

import (
	"context"
	"fmt"

	"github.com/ameistad/deployctl/internal/audit"
	"github.com/ameistad/deployctl/internal/constants"
	"github.com/ameistad/deployctl/internal/logging"
	"github.com/ameistad/deployctl/internal/ui"
)

// finish writes the terminal audit event, puts the env file back when no
// container was touched, removes the rollback state and records the attempt.
func (o *Orchestrator) finish(ctx context.Context, a *Attempt) error {
	ctx = context.WithoutCancel(ctx)
	logger := logging.Ctx(ctx)

	a.FinishedAt = o.clock.Now()
	a.Outcome = outcomeFor(a.State)
	a.ExitCode = exitCodeFor(a.State, a.Plan)

	switch a.State {
	case StateSuccess:
		o.event(ctx, a, audit.ActionDeploy, audit.StatusOK, a.TargetTag, fmt.Sprintf("%s -> %s", a.PreviousTag, a.TargetTag))
		o.pruneImages(ctx)
	case StateRollbackSuccess:
		tag := rollbackTag(a)
		detail := fmt.Sprintf("%s failed, restored %s", a.TargetTag, tag)
		if a.Plan.Explicit {
			detail = fmt.Sprintf("%s -> %s (requested)", a.PreviousTag, tag)
		}
		o.event(ctx, a, audit.ActionRollback, audit.StatusOK, tag, detail)
	case StateManualIntervention:
		o.event(ctx, a, audit.ActionRollback, audit.StatusFailed, rollbackTag(a), failureDetail(a))
	case StateMigrationFailed:
		o.restoreTag(ctx, a)
		o.event(ctx, a, audit.ActionMigrate, audit.StatusFailed, a.TargetTag, failureDetail(a))
	default:
		o.restoreTag(ctx, a)
		o.event(ctx, a, audit.ActionDeploy, audit.StatusFailed, a.TargetTag, failureDetail(a))
	}

	// A rollback state that predates this run is evidence for the operator
	// and is only replaced by SNAPSHOT, never removed here.
	if a.snapshotTaken {
		if err := o.state.Remove(); err != nil {
			logger.Error().Err(err).Msg("Failed to remove rollback state")
		}
	}

	o.saveHistory(ctx, a)
	o.writeMetrics(ctx, a)
	o.summarize(a)

	logger.Info().
		Str("state", a.State.String()).
		Str("outcome", string(a.Outcome)).
		Int("exit_code", a.ExitCode).
		Dur("elapsed", a.Duration()).
		Msg("Rollout finished")

	if a.ExitCode == ExitOK {
		return nil
	}
	return &ExitError{Code: a.ExitCode, State: a.State, Err: failureError(a)}
}

// restoreTag reverts TAG_UPDATE. It only runs on paths where no container was
// recreated. The original tag line is written back verbatim, or removed when
// the run appended it.
func (o *Orchestrator) restoreTag(ctx context.Context, a *Attempt) {
	if !a.tagUpdated {
		return
	}
	var err error
	if a.tagWasConfigured {
		err = o.env.SetLine(o.opts.TagKey, a.configuredLine)
	} else {
		err = o.env.Unset(o.opts.TagKey)
	}
	if err != nil {
		logging.Ctx(ctx).Error().Err(err).Msg("Failed to restore previous tag")
		ui.Error("Could not restore %s in %s: %v", o.opts.TagKey, o.env.Path(), err)
		return
	}
	a.tagUpdated = false
	logging.Ctx(ctx).Info().Str(logging.LogFieldTag, a.PreviousTag).Msg("Restored previous tag")
}

func (o *Orchestrator) pruneImages(ctx context.Context) {
	if o.deps.Pruner == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, PruneTimeout)
	defer cancel()

	reclaimed, err := o.deps.Pruner.PruneImages(ctx)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("Failed to prune dangling images")
		return
	}
	logging.Ctx(ctx).Info().Uint64("reclaimed_bytes", reclaimed).Msg("Pruned dangling images")
}

func (o *Orchestrator) saveHistory(ctx context.Context, a *Attempt) {
	if o.deps.History == nil {
		return
	}
	logger := logging.Ctx(ctx)
	if err := o.deps.History.SaveAttempt(a.record()); err != nil {
		logger.Warn().Err(err).Msg("Failed to save deployment history")
		return
	}
	pruned, err := o.deps.History.PruneOldAttempts(a.App, constants.DefaultHistoryEntriesToKeep)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to prune deployment history")
	} else if pruned > 0 {
		logger.Debug().Int64("pruned", pruned).Msg("Pruned old history entries")
	}
}

func (o *Orchestrator) writeMetrics(ctx context.Context, a *Attempt) {
	if o.deps.Metrics == nil || o.opts.DryRun {
		return
	}
	o.deps.Metrics.ObserveFinish(a.App, a.ExitCode, a.FinishedAt)
	if o.opts.MetricsFile == "" {
		return
	}
	if err := o.deps.Metrics.WriteTextfile(o.opts.MetricsFile); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("Failed to write metrics")
	}
}

func failureDetail(a *Attempt) string {
	if a.Failure == nil {
		return ""
	}
	if a.Failure.Err == nil {
		return a.Failure.Message
	}
	return fmt.Sprintf("%s: %v", a.Failure.Message, a.Failure.Err)
}

func failureError(a *Attempt) error {
	switch a.State {
	case StateRollbackSuccess:
		return fmt.Errorf("%s failed health checks; rolled back to %s", a.TargetTag, rollbackTag(a))
	case StateManualIntervention:
		return fmt.Errorf("rollback to %s failed, manual intervention required: %s", rollbackTag(a), failureDetail(a))
	case StateMigrationFailed:
		return fmt.Errorf("migration failed, containers not restarted: %s", failureDetail(a))
	}
	if a.Failure != nil && a.Failure.Err != nil {
		return fmt.Errorf("%s: %w", a.Failure.Message, a.Failure.Err)
	}
	return fmt.Errorf("deployment of %s failed", a.TargetTag)
}
