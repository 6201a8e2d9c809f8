package deployctl

import (
	"context"
	"io"
	"os"

	"github.com/ameistad/deployctl/internal/backup"
	"github.com/ameistad/deployctl/internal/config"
	"github.com/ameistad/deployctl/internal/db"
	"github.com/ameistad/deployctl/internal/deploy"
	"github.com/ameistad/deployctl/internal/docker"
	"github.com/ameistad/deployctl/internal/health"
	"github.com/ameistad/deployctl/internal/helpers"
	"github.com/ameistad/deployctl/internal/logging"
	"github.com/ameistad/deployctl/internal/metrics"
	"github.com/ameistad/deployctl/internal/migrate"
)

// newDependencies wires the real collaborators for opts. The returned func
// releases them.
func newDependencies(ctx context.Context, opts *config.Options, debug bool) (deploy.Dependencies, func(), error) {
	dockerClient, err := docker.NewClient()
	if err != nil {
		return deploy.Dependencies{}, nil, err
	}

	var output io.Writer = io.Discard
	var prefixed *helpers.PrefixWriter
	if debug {
		prefixed = helpers.NewPrefixWriter(os.Stderr, "  | ")
		output = prefixed
	}

	compose := docker.NewCompose(opts.DeployDir, opts.ComposeFilePath(), opts.EnvFilePath(), docker.ExecRunner{Output: output}, dockerClient)
	deps := deploy.Dependencies{
		Services: compose,
		Pruner:   compose,
		Prober:   health.NewProber(opts.Health.Timeout, nil),
		Migrator: migrate.NewGate(compose, opts.WebService, opts.MigrateCommand, opts.CollectStaticCommand),
	}
	if !opts.SkipBackup {
		deps.Backup = backup.NewAgent(compose, opts.BackupsDir(), opts.BackupRetention, opts.DBServicePatterns, nil)
	}
	if opts.MetricsFile != "" {
		deps.Metrics = metrics.NewRecorder()
	}

	var history *db.DB
	if !opts.DryRun {
		if info, err := os.Stat(opts.DeployDir); err == nil && info.IsDir() {
			history, err = db.New(opts.HistoryDBPath())
			if err != nil {
				logging.Ctx(ctx).Warn().Err(err).Msg("Deployment history unavailable")
				history = nil
			} else {
				deps.History = history
			}
		}
	}

	cleanup := func() {
		if prefixed != nil {
			prefixed.Flush()
		}
		if history != nil {
			history.Close()
		}
		dockerClient.Close()
	}
	return deps, cleanup, nil
}

func runRollout(ctx context.Context, opts *config.Options, rf *rootFlags) error {
	deps, cleanup, err := newDependencies(ctx, opts, rf.debug)
	if err != nil {
		return err
	}
	defer cleanup()

	_, err = deploy.New(opts, deps).Run(ctx)
	return err
}
