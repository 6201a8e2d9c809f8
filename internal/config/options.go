package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/ameistad/deployctl/internal/constants"
	"github.com/ameistad/deployctl/internal/helpers"
	"github.com/jinzhu/copier"
)

// Options holds everything one orchestrator run needs. Values come from the
// optional deployctl.{yaml,json,toml} file in the deploy directory, then flags.
type Options struct {
	Tag         string `koanf:"tag"`
	AppName     string `koanf:"app"`
	ComposeFile string `koanf:"compose_file"`
	EnvFile     string `koanf:"env_file"`
	DeployDir   string `koanf:"deploy_dir"`

	WebService    string `koanf:"web_service"`
	WorkerService string `koanf:"worker_service"`
	TagKey        string `koanf:"tag_key"`

	SkipMigrate bool `koanf:"skip_migrate"`
	SkipBackup  bool `koanf:"skip_backup"`
	DryRun      bool `koanf:"dry_run"`
	Force       bool `koanf:"force"`

	// RollbackTo switches the run straight into the rollback path.
	RollbackTo string `koanf:"rollback_to"`
	// RollbackWorker controls whether the worker service is switched back
	// together with the web service. Defaults to true.
	RollbackWorker *bool `koanf:"rollback_worker"`

	Health HealthOptions `koanf:"health"`

	SettleDelay          time.Duration `koanf:"settle_delay"`
	BackupRetention      int           `koanf:"backup_retention"`
	DBServicePatterns    []string      `koanf:"db_service_patterns"`
	MigrateCommand       []string      `koanf:"migrate_command"`
	CollectStaticCommand []string      `koanf:"collectstatic_command"`
	MetricsFile          string        `koanf:"metrics_file"`
}

type HealthOptions struct {
	Path     string        `koanf:"path"`
	Host     string        `koanf:"host"`
	Port     int           `koanf:"port"`
	Retries  int           `koanf:"retries"`
	Interval time.Duration `koanf:"interval"`
	Timeout  time.Duration `koanf:"timeout"`
}

// Normalize returns a copy of o with defaults filled in.
func (o *Options) Normalize() (*Options, error) {
	var normalized Options
	if err := copier.CopyWithOption(&normalized, o, copier.Option{DeepCopy: true}); err != nil {
		return nil, fmt.Errorf("failed to copy options: %w", err)
	}

	if normalized.ComposeFile == "" {
		normalized.ComposeFile = constants.DefaultComposeFile
	}
	if normalized.EnvFile == "" {
		normalized.EnvFile = constants.DefaultEnvFile
	}
	if normalized.DeployDir == "" && normalized.AppName != "" {
		normalized.DeployDir = filepath.Join(constants.DefaultDeployDirRoot, normalized.AppName)
	}
	if normalized.WebService == "" {
		normalized.WebService = constants.DefaultWebService
	}
	if normalized.WorkerService == "" {
		normalized.WorkerService = constants.DefaultWorkerService
	}
	if normalized.TagKey == "" {
		normalized.TagKey = constants.DefaultTagKey
	}
	if normalized.RollbackWorker == nil {
		rollbackWorker := true
		normalized.RollbackWorker = &rollbackWorker
	}

	h := &normalized.Health
	if h.Path == "" {
		h.Path = constants.DefaultHealthPath
	}
	if h.Host == "" {
		h.Host = constants.DefaultHealthHost
	}
	if h.Port == 0 {
		h.Port = constants.DefaultHealthPort
	}
	if h.Retries == 0 {
		h.Retries = constants.DefaultHealthRetries
	}
	if h.Interval == 0 {
		h.Interval = constants.DefaultHealthInterval
	}
	if h.Timeout == 0 {
		h.Timeout = constants.DefaultProbeTimeout
	}

	if normalized.SettleDelay == 0 {
		normalized.SettleDelay = constants.DefaultSettleDelay
	}
	if normalized.BackupRetention == 0 {
		normalized.BackupRetention = constants.DefaultBackupRetention
	}
	if len(normalized.DBServicePatterns) == 0 {
		normalized.DBServicePatterns = append([]string(nil), constants.DefaultDBServicePatterns...)
	}
	if len(normalized.MigrateCommand) == 0 {
		normalized.MigrateCommand = append([]string(nil), constants.DefaultMigrateCommand...)
	}
	if len(normalized.CollectStaticCommand) == 0 {
		normalized.CollectStaticCommand = append([]string(nil), constants.DefaultCollectStaticCommand...)
	}
	return &normalized, nil
}

// Validate checks the inputs that do not require touching the filesystem.
func (o *Options) Validate() error {
	var errs []error

	if o.AppName == "" {
		errs = append(errs, errors.New("application name is required"))
	} else if !helpers.IsValidAppName(o.AppName) {
		errs = append(errs, fmt.Errorf("invalid app name '%s'; must contain only alphanumeric characters, hyphens, and underscores", o.AppName))
	}

	if o.IsRollback() {
		if o.Tag != "" {
			errs = append(errs, fmt.Errorf("a release tag (%s) and a rollback target (%s) cannot be combined", o.Tag, o.RollbackTo))
		}
		if !helpers.IsValidTag(o.RollbackTo) {
			errs = append(errs, fmt.Errorf("invalid rollback tag '%s'", o.RollbackTo))
		}
	} else if o.Tag == "" {
		errs = append(errs, errors.New("target release tag is required"))
	} else if !helpers.IsValidTag(o.Tag) {
		errs = append(errs, fmt.Errorf("invalid release tag '%s'", o.Tag))
	}

	if o.WebService == "" {
		errs = append(errs, errors.New("web service name cannot be empty"))
	}
	if err := helpers.ValidateURLPath(o.Health.Path); err != nil {
		errs = append(errs, fmt.Errorf("invalid health path: %w", err))
	}
	if o.Health.Retries < 1 {
		errs = append(errs, fmt.Errorf("health retries must be at least 1, got %d", o.Health.Retries))
	}
	if o.Health.Interval < 0 {
		errs = append(errs, fmt.Errorf("health interval cannot be negative"))
	}
	if o.Health.Port < 1 || o.Health.Port > 65535 {
		errs = append(errs, fmt.Errorf("health port %d is out of range", o.Health.Port))
	}
	if o.BackupRetention < 1 {
		errs = append(errs, fmt.Errorf("backup retention must be at least 1, got %d", o.BackupRetention))
	}

	return errors.Join(errs...)
}

// IsRollback reports whether the run was started with an explicit rollback target.
func (o *Options) IsRollback() bool {
	return o.RollbackTo != ""
}

// TargetTag is the release the run tries to put live.
func (o *Options) TargetTag() string {
	if o.IsRollback() {
		return o.RollbackTo
	}
	return o.Tag
}

func (o *Options) ShouldRollbackWorker() bool {
	return o.RollbackWorker == nil || *o.RollbackWorker
}

func (o *Options) ComposeFilePath() string {
	return o.resolve(o.ComposeFile)
}

func (o *Options) EnvFilePath() string {
	return o.resolve(o.EnvFile)
}

func (o *Options) RollbackStatePath() string {
	return filepath.Join(o.DeployDir, constants.RollbackStateFileName)
}

func (o *Options) AuditLogPath() string {
	return filepath.Join(o.DeployDir, constants.AuditLogFileName)
}

func (o *Options) HistoryDBPath() string {
	return filepath.Join(o.DeployDir, constants.HistoryDBFileName)
}

func (o *Options) LockPath() string {
	return filepath.Join(o.DeployDir, constants.LockFileName)
}

func (o *Options) BackupsDir() string {
	return filepath.Join(o.DeployDir, constants.BackupsDirName)
}

func (o *Options) resolve(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(o.DeployDir, path)
}
