package deploy

import (
	"context"
	"fmt"

	"github.com/ameistad/deployctl/internal/constants"
	"github.com/ameistad/deployctl/internal/helpers"
	"github.com/ameistad/deployctl/internal/logging"
	"github.com/ameistad/deployctl/internal/ui"
	"github.com/rs/zerolog"
)

var stateLabels = map[State]string{
	StateValidate:      "Validating inputs",
	StateSnapshot:      "Recording rollback state",
	StateBackup:        "Backing up database",
	StateTagUpdate:     "Updating release tag",
	StatePull:          "Pulling image",
	StateMigrate:       "Running migrations",
	StateSwitch:        "Switching services",
	StateCollectAssets: "Collecting static assets",
	StateProbe:         "Probing health",
	StateRollback:      "Rolling back",
	StateRollbackProbe: "Probing restored release",
}

var (
	forwardPath  = []State{StateValidate, StateSnapshot, StateBackup, StateTagUpdate, StatePull, StateMigrate, StateSwitch, StateCollectAssets, StateProbe}
	rollbackPath = []State{StateValidate, StateSnapshot, StateRollback, StateRollbackProbe}
)

func (o *Orchestrator) announce(s State, p Plan) {
	path := forwardPath
	if p.Explicit {
		path = rollbackPath
	}
	for i, step := range path {
		if step == s {
			ui.Step(i+1, len(path), stateLabels[s])
			return
		}
	}
	ui.Warn("%s", stateLabels[s])
}

func (o *Orchestrator) report(ctx context.Context, s State, r Result) {
	level := zerolog.InfoLevel
	switch r.Status {
	case ResultFatal:
		level = zerolog.ErrorLevel
		ui.Error("%s: %v", r.Message, r.Err)
	case ResultDegraded:
		level = zerolog.WarnLevel
		ui.Warn("%s: %v", r.Message, r.Err)
	case ResultSkipped:
		ui.Info("%s", r.Message)
	default:
		ui.Success("%s", r.Message)
	}
	logging.Ctx(ctx).WithLevel(level).
		Str(logging.LogFieldPhase, s.String()).
		Str("status", r.Status.String()).
		Err(r.Err).
		Msg(r.Message)
}

func (o *Orchestrator) summarize(a *Attempt) {
	elapsed := helpers.FormatElapsed(a.Duration())
	switch a.State {
	case StateSuccess:
		ui.Success("Deployed %s (was %s) in %s", a.TargetTag, a.PreviousTag, elapsed)
	case StateRollbackSuccess:
		if a.Plan.Explicit {
			ui.Success("Rolled back to %s in %s", a.TargetTag, elapsed)
		} else {
			ui.Warn("%s was unhealthy; %s is live again (%s)", a.TargetTag, a.PreviousTag, elapsed)
		}
	case StateManualIntervention:
		ui.Error("Rollback failed. Manual intervention required; see %s", o.audit.Path())
	case StateMigrationFailed:
		ui.Error("Migrations failed; %s restored, no container was restarted", a.PreviousTag)
	default:
		ui.Error("Deployment of %s failed", a.TargetTag)
	}
}

// describePlan prints what a real run would do after VALIDATE.
func (o *Orchestrator) describePlan(a *Attempt) {
	current := o.env.ReadTag(o.opts.TagKey)
	lines := []string{
		fmt.Sprintf("record %s=%s in %s", constants.RollbackStateKey, current, o.state.Path()),
	}

	if a.Plan.Explicit {
		lines = append(lines, fmt.Sprintf("set %s=%s in %s", o.opts.TagKey, a.TargetTag, o.env.Path()))
		lines = append(lines, fmt.Sprintf("pull and recreate %s", o.opts.WebService))
		if o.hasWorker() {
			lines = append(lines, fmt.Sprintf("recreate %s", o.opts.WorkerService))
		}
		lines = append(lines, fmt.Sprintf("wait %s, then probe %s", o.opts.SettleDelay, o.opts.Health.Path))
		ui.Section(fmt.Sprintf("Dry run: roll back %s from %s to %s", a.App, current, a.TargetTag), lines)
		return
	}

	if o.opts.SkipBackup {
		lines = append(lines, "skip database backup")
	} else {
		lines = append(lines, fmt.Sprintf("back up the database to %s", o.opts.BackupsDir()))
	}
	lines = append(lines,
		fmt.Sprintf("set %s=%s in %s", o.opts.TagKey, a.TargetTag, o.env.Path()),
		fmt.Sprintf("pull the image for %s", o.opts.WebService),
	)
	if o.opts.SkipMigrate {
		lines = append(lines, "skip migrations")
	} else {
		lines = append(lines, fmt.Sprintf("run %v in a throwaway %s container", o.opts.MigrateCommand, o.opts.WebService))
	}
	switched := o.opts.WebService
	if o.hasWorker() {
		switched += " and " + o.opts.WorkerService
	}
	lines = append(lines,
		fmt.Sprintf("recreate %s", switched),
		fmt.Sprintf("run %v in %s", o.opts.CollectStaticCommand, o.opts.WebService),
		fmt.Sprintf("probe %s up to %d times every %s", o.opts.Health.Path, o.opts.Health.Retries, o.opts.Health.Interval),
		fmt.Sprintf("on failure restore %s", current),
	)
	ui.Section(fmt.Sprintf("Dry run: deploy %s %s -> %s", a.App, current, a.TargetTag), lines)
}
