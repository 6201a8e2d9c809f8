package deployctl

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/ameistad/deployctl/internal/config"
	"github.com/ameistad/deployctl/internal/constants"
	"github.com/spf13/cobra"
)

// optionFlags receives the command line values. Only flags the user actually
// set override the defaults file.
type optionFlags struct {
	configPath string
	opts       config.Options

	healthIntervalSeconds int
	rollbackWorker        bool
}

type flagSetter func(dst *config.Options, f *optionFlags)

var flagSetters = map[string]flagSetter{
	"app":              func(dst *config.Options, f *optionFlags) { dst.AppName = f.opts.AppName },
	"tag":              func(dst *config.Options, f *optionFlags) { dst.Tag = f.opts.Tag },
	"compose-file":     func(dst *config.Options, f *optionFlags) { dst.ComposeFile = f.opts.ComposeFile },
	"env-file":         func(dst *config.Options, f *optionFlags) { dst.EnvFile = f.opts.EnvFile },
	"deploy-dir":       func(dst *config.Options, f *optionFlags) { dst.DeployDir = f.opts.DeployDir },
	"web-service":      func(dst *config.Options, f *optionFlags) { dst.WebService = f.opts.WebService },
	"worker-service":   func(dst *config.Options, f *optionFlags) { dst.WorkerService = f.opts.WorkerService },
	"tag-key":          func(dst *config.Options, f *optionFlags) { dst.TagKey = f.opts.TagKey },
	"skip-migrate":     func(dst *config.Options, f *optionFlags) { dst.SkipMigrate = f.opts.SkipMigrate },
	"skip-backup":      func(dst *config.Options, f *optionFlags) { dst.SkipBackup = f.opts.SkipBackup },
	"dry-run":          func(dst *config.Options, f *optionFlags) { dst.DryRun = f.opts.DryRun },
	"force":            func(dst *config.Options, f *optionFlags) { dst.Force = f.opts.Force },
	"rollback-to":      func(dst *config.Options, f *optionFlags) { dst.RollbackTo = f.opts.RollbackTo },
	"health-path":      func(dst *config.Options, f *optionFlags) { dst.Health.Path = f.opts.Health.Path },
	"health-host":      func(dst *config.Options, f *optionFlags) { dst.Health.Host = f.opts.Health.Host },
	"health-port":      func(dst *config.Options, f *optionFlags) { dst.Health.Port = f.opts.Health.Port },
	"health-retries":   func(dst *config.Options, f *optionFlags) { dst.Health.Retries = f.opts.Health.Retries },
	"probe-timeout":    func(dst *config.Options, f *optionFlags) { dst.Health.Timeout = f.opts.Health.Timeout },
	"settle-delay":     func(dst *config.Options, f *optionFlags) { dst.SettleDelay = f.opts.SettleDelay },
	"backup-retention": func(dst *config.Options, f *optionFlags) { dst.BackupRetention = f.opts.BackupRetention },
	"metrics-file":     func(dst *config.Options, f *optionFlags) { dst.MetricsFile = f.opts.MetricsFile },
	"health-interval": func(dst *config.Options, f *optionFlags) {
		dst.Health.Interval = time.Duration(f.healthIntervalSeconds) * time.Second
	},
	"rollback-worker": func(dst *config.Options, f *optionFlags) {
		v := f.rollbackWorker
		dst.RollbackWorker = &v
	},
}

// bindLocationFlags registers the flags that identify an application and its files.
func bindLocationFlags(cmd *cobra.Command, f *optionFlags) {
	cmd.Flags().StringVarP(&f.configPath, "config", "c", "", "Path to a deployctl.{yaml,json,toml} defaults file (default: <deploy-dir>/deployctl.*)")
	cmd.Flags().StringVarP(&f.opts.AppName, "app", "a", "", "Application name")
	cmd.Flags().StringVarP(&f.opts.DeployDir, "deploy-dir", "d", "", "Deploy directory (default: /opt/<app>)")
	cmd.Flags().StringVarP(&f.opts.ComposeFile, "compose-file", "f", constants.DefaultComposeFile, "Compose file, relative to the deploy directory")
	cmd.Flags().StringVarP(&f.opts.EnvFile, "env-file", "e", constants.DefaultEnvFile, "Environment file holding the release tag, relative to the deploy directory")
	cmd.Flags().StringVar(&f.opts.TagKey, "tag-key", constants.DefaultTagKey, "Environment variable holding the release tag")
}

// bindRolloutFlags registers everything a rollout can be tuned with.
func bindRolloutFlags(cmd *cobra.Command, f *optionFlags) {
	bindLocationFlags(cmd, f)

	flags := cmd.Flags()
	flags.StringVar(&f.opts.WebService, "web-service", constants.DefaultWebService, "Service serving HTTP traffic")
	flags.StringVar(&f.opts.WorkerService, "worker-service", constants.DefaultWorkerService, "Background worker service, switched with the web service when declared")
	flags.BoolVar(&f.opts.SkipMigrate, "skip-migrate", false, "Do not run database migrations")
	flags.BoolVar(&f.opts.SkipBackup, "skip-backup", false, "Do not back up the database")
	flags.BoolVar(&f.opts.DryRun, "dry-run", false, "Validate and print the plan without changing anything")
	flags.BoolVar(&f.opts.Force, "force", false, "Proceed even though an earlier run left rollback state behind")
	flags.BoolVar(&f.rollbackWorker, "rollback-worker", true, "Switch the worker service back too when rolling back")
	flags.StringVar(&f.opts.Health.Path, "health-path", constants.DefaultHealthPath, "Liveness endpoint path")
	flags.StringVar(&f.opts.Health.Host, "health-host", constants.DefaultHealthHost, "Host the liveness endpoint is reached on")
	flags.IntVar(&f.opts.Health.Port, "health-port", constants.DefaultHealthPort, "Container port of the liveness endpoint")
	flags.IntVar(&f.opts.Health.Retries, "health-retries", constants.DefaultHealthRetries, "Number of health probe attempts")
	flags.IntVar(&f.healthIntervalSeconds, "health-interval", int(constants.DefaultHealthInterval/time.Second), "Seconds to wait before each health probe attempt")
	flags.DurationVar(&f.opts.Health.Timeout, "probe-timeout", constants.DefaultProbeTimeout, "Timeout of a single health probe request")
	flags.DurationVar(&f.opts.SettleDelay, "settle-delay", constants.DefaultSettleDelay, "Wait after a rollback before probing again")
	flags.IntVar(&f.opts.BackupRetention, "backup-retention", constants.DefaultBackupRetention, "Number of database backups to keep")
	flags.StringVar(&f.opts.MetricsFile, "metrics-file", "", "Write prometheus metrics for node-exporter's textfile collector to this path")
}

// resolveOptions merges the defaults file with the flags set on cmd and fills
// in defaults. It does not validate.
func resolveOptions(cmd *cobra.Command, f *optionFlags) (*config.Options, error) {
	path := f.configPath
	if path == "" {
		deployDir := f.opts.DeployDir
		if deployDir == "" && f.opts.AppName != "" {
			deployDir = filepath.Join(constants.DefaultDeployDirRoot, f.opts.AppName)
		}
		found, err := config.FindConfigFile(deployDir)
		if err != nil {
			return nil, fmt.Errorf("failed to look for a config file: %w", err)
		}
		path = found
	}

	merged, err := config.LoadFile(path)
	if err != nil {
		return nil, err
	}
	for name, set := range flagSetters {
		if cmd.Flags().Lookup(name) != nil && cmd.Flags().Changed(name) {
			set(merged, f)
		}
	}

	return merged.Normalize()
}
