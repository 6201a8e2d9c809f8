package constants

import (
	"os"
	"time"
)

const (
	Version = "0.3.0"

	DefaultComposeFile          = "docker-compose.prod.yml"
	DefaultEnvFile              = ".env.prod"
	DefaultDeployDirRoot        = "/opt"
	DefaultWebService           = "web"
	DefaultWorkerService        = "worker"
	DefaultTagKey               = "IMAGE_TAG"
	DefaultHealthPath           = "/livez/"
	DefaultHealthHost           = "localhost"
	DefaultHealthPort           = 8000
	DefaultHealthRetries        = 12
	DefaultHealthInterval       = 5 * time.Second
	DefaultProbeTimeout         = 5 * time.Second
	DefaultSettleDelay          = 10 * time.Second
	DefaultBackupRetention      = 10
	DefaultAuditEventsShown     = 10
	DefaultHistoryEntriesShown  = 20
	DefaultHistoryEntriesToKeep = 200
	UnknownTag                  = "unknown"

	// Environment variables
	EnvVarConfigDir = "DEPLOYCTL_CONFIG_DIR"
	EnvVarDebug     = "DEPLOYCTL_DEBUG"

	// File names inside the deploy directory.
	RollbackStateFileName = ".rollback_state"
	AuditLogFileName      = "deployments.jsonl"
	HistoryDBFileName     = "deployments.db"
	LockFileName          = ".deploy.lock"
	BackupsDirName        = "backups"
	BackupFilePrefix      = "pre_deploy_"
	BackupFileSuffix      = ".sql.gz"
	ConfigFileBaseName    = "deployctl"
	ConfigEnvFileName     = ".env"

	RollbackStateKey = "PREVIOUS_TAG"
)

var (
	DefaultMigrateCommand       = []string{"python", "manage.py", "migrate", "--noinput"}
	DefaultCollectStaticCommand = []string{"python", "manage.py", "collectstatic", "--noinput"}
	DefaultDBServicePatterns    = []string{"db", "postgres", "database"}
	SupportedConfigExtensions   = []string{".yaml", ".yml", ".json", ".toml"}
)

// File and directory permissions
const (
	ModeFileSecret  os.FileMode = 0o600 // secrets: .env, dumps
	ModeFileDefault os.FileMode = 0o644 // non-secret state
	ModeDirPrivate  os.FileMode = 0o700 // private dirs
)
