package deploy

import (
	"context"
	"fmt"

	"github.com/ameistad/deployctl/internal/constants"
	"github.com/ameistad/deployctl/internal/logging"
)

// rollbackTag is the release the rollback sub-path restores.
func rollbackTag(a *Attempt) string {
	if a.Plan.Explicit {
		return a.TargetTag
	}
	return a.PreviousTag
}

func (o *Orchestrator) rollback(ctx context.Context, a *Attempt) Result {
	logger := logging.Ctx(ctx)
	tag := rollbackTag(a)

	if tag == "" || tag == constants.UnknownTag {
		return fatal(ErrNoPreviousTag, "cannot roll back")
	}
	if !a.Plan.Explicit && tag == a.TargetTag {
		return fatal(fmt.Errorf("previous tag %s is the failing release: %w", tag, ErrNoPreviousTag), "cannot roll back")
	}

	if err := o.env.Set(o.opts.TagKey, tag); err != nil {
		return fatal(err, "could not restore %s=%s", o.opts.TagKey, tag)
	}
	if err := o.deps.Services.Pull(ctx, o.opts.WebService); err != nil {
		return fatal(err, "could not pull %s for %s", tag, o.opts.WebService)
	}
	if err := o.deps.Services.Recreate(ctx, o.opts.WebService); err != nil {
		return fatal(err, "could not recreate %s on %s", o.opts.WebService, tag)
	}

	if o.hasWorker() {
		if a.Plan.Explicit || o.opts.ShouldRollbackWorker() {
			if err := o.deps.Services.Recreate(ctx, o.opts.WorkerService); err != nil {
				return fatal(err, "could not recreate %s on %s", o.opts.WorkerService, tag)
			}
		} else {
			logger.Warn().Str("service", o.opts.WorkerService).Msg("Worker rollback disabled, worker keeps running the failed release")
		}
	}

	logger.Info().Dur("settle_delay", o.opts.SettleDelay).Msg("Waiting for rolled back services to settle")
	select {
	case <-ctx.Done():
		return fatal(ctx.Err(), "interrupted while waiting for services to settle")
	case <-o.clock.After(o.opts.SettleDelay):
	}
	return ok("switched back to %s", tag)
}

func (o *Orchestrator) rollbackProbe(ctx context.Context, a *Attempt) Result {
	tag := rollbackTag(a)
	url := o.healthURL(ctx)
	verdict := o.deps.Prober.Probe(ctx, url, o.opts.Health.Retries, o.opts.Health.Interval)
	if o.deps.Metrics != nil {
		o.deps.Metrics.ObserveProbe(a.App, StateRollbackProbe.String(), verdict.Attempts)
	}

	if verdict.Healthy {
		return ok("%s is healthy", tag)
	}
	return fatal(
		fmt.Errorf("%s not healthy after %d attempt(s), last status %d", url, verdict.Attempts, verdict.StatusCode),
		"%s is not healthy either", tag)
}
