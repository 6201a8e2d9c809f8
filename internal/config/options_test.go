package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ameistad/deployctl/internal/constants"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeDefaults(t *testing.T) {
	opts := &Options{Tag: "v1.3.0", AppName: "shop"}
	normalized, err := opts.Normalize()
	require.NoError(t, err)

	assert.Equal(t, "/opt/shop", normalized.DeployDir)
	assert.Equal(t, constants.DefaultComposeFile, normalized.ComposeFile)
	assert.Equal(t, constants.DefaultEnvFile, normalized.EnvFile)
	assert.Equal(t, "web", normalized.WebService)
	assert.Equal(t, "worker", normalized.WorkerService)
	assert.Equal(t, "IMAGE_TAG", normalized.TagKey)
	assert.Equal(t, "/livez/", normalized.Health.Path)
	assert.Equal(t, 12, normalized.Health.Retries)
	assert.Equal(t, 5*time.Second, normalized.Health.Interval)
	assert.Equal(t, 10, normalized.BackupRetention)
	assert.True(t, normalized.ShouldRollbackWorker())
	assert.Equal(t, constants.DefaultMigrateCommand, normalized.MigrateCommand)

	// The receiver is left untouched.
	assert.Empty(t, opts.DeployDir)
	assert.Nil(t, opts.RollbackWorker)
}

func TestNormalizeKeepsExplicitValues(t *testing.T) {
	noWorker := false
	opts := &Options{
		Tag:            "v2",
		AppName:        "shop",
		DeployDir:      "/srv/shop",
		RollbackWorker: &noWorker,
		Health:         HealthOptions{Retries: 3, Path: "/healthz/"},
	}
	normalized, err := opts.Normalize()
	require.NoError(t, err)

	assert.Equal(t, "/srv/shop", normalized.DeployDir)
	assert.Equal(t, 3, normalized.Health.Retries)
	assert.Equal(t, "/healthz/", normalized.Health.Path)
	assert.False(t, normalized.ShouldRollbackWorker())
	assert.Equal(t, "/srv/shop/docker-compose.prod.yml", normalized.ComposeFilePath())
	assert.Equal(t, "/srv/shop/.env.prod", normalized.EnvFilePath())
	assert.Equal(t, "/srv/shop/.rollback_state", normalized.RollbackStatePath())
	assert.Equal(t, "/srv/shop/deployments.jsonl", normalized.AuditLogPath())
	assert.Equal(t, "/srv/shop/backups", normalized.BackupsDir())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		opts    Options
		wantErr string
	}{
		{name: "valid deploy", opts: Options{Tag: "v1.3.0", AppName: "shop"}},
		{name: "valid rollback without tag", opts: Options{RollbackTo: "v1.2.0", AppName: "shop"}},
		{name: "tag with rollback target", opts: Options{Tag: "v1.3.0", RollbackTo: "v1.2.0", AppName: "shop"}, wantErr: "cannot be combined"},
		{name: "missing tag", opts: Options{AppName: "shop"}, wantErr: "target release tag is required"},
		{name: "missing app", opts: Options{Tag: "v1"}, wantErr: "application name is required"},
		{name: "bad app", opts: Options{Tag: "v1", AppName: "my shop"}, wantErr: "invalid app name"},
		{name: "bad tag", opts: Options{Tag: "v1:2", AppName: "shop"}, wantErr: "invalid release tag"},
		{name: "bad health path", opts: Options{Tag: "v1", AppName: "shop", Health: HealthOptions{Path: "livez"}}, wantErr: "invalid health path"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			normalized, err := tt.opts.Normalize()
			require.NoError(t, err)
			err = normalized.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestTargetTag(t *testing.T) {
	assert.Equal(t, "v2", (&Options{Tag: "v2"}).TargetTag())
	assert.Equal(t, "v1", (&Options{Tag: "v2", RollbackTo: "v1"}).TargetTag())
}

func TestLoadFile(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{
			name: "yaml",
			file: "deployctl.yaml",
			content: `app: shop
web_service: django
skip_backup: true
settle_delay: 3s
db_service_patterns: [pg]
health:
  retries: 4
  interval: 2s
  port: 8080
`,
		},
		{
			name:    "json",
			file:    "deployctl.json",
			content: `{"app":"shop","web_service":"django","skip_backup":true,"settle_delay":3,"db_service_patterns":["pg"],"health":{"retries":4,"interval":"2s","port":8080}}`,
		},
		{
			name: "toml",
			file: "deployctl.toml",
			content: `app = "shop"
web_service = "django"
skip_backup = true
settle_delay = "3s"
db_service_patterns = ["pg"]

[health]
retries = 4
interval = "2s"
port = 8080
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), tt.file)
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))

			opts, err := LoadFile(path)
			require.NoError(t, err)
			assert.Equal(t, "shop", opts.AppName)
			assert.Equal(t, "django", opts.WebService)
			assert.True(t, opts.SkipBackup)
			assert.Equal(t, 3*time.Second, opts.SettleDelay)
			assert.Equal(t, []string{"pg"}, opts.DBServicePatterns)
			assert.Equal(t, 4, opts.Health.Retries)
			assert.Equal(t, 2*time.Second, opts.Health.Interval)
			assert.Equal(t, 8080, opts.Health.Port)
		})
	}
}

func TestLoadFileRejectsUnknownField(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deployctl.yml")
	require.NoError(t, os.WriteFile(path, []byte("app: shop\nreplicas: 3\n"), 0o644))

	_, err := LoadFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown field 'replicas'")
}

func TestLoadFileUnsupportedExtension(t *testing.T) {
	_, err := LoadFile("deployctl.ini")
	assert.ErrorContains(t, err, "unsupported config file type")
}

func TestFindConfigFile(t *testing.T) {
	t.Setenv(constants.EnvVarConfigDir, t.TempDir())

	deployDir := t.TempDir()
	found, err := FindConfigFile(deployDir)
	require.NoError(t, err)
	assert.Empty(t, found)

	path := filepath.Join(deployDir, "deployctl.toml")
	require.NoError(t, os.WriteFile(path, []byte(`app = "shop"`), 0o644))
	found, err = FindConfigFile(deployDir)
	require.NoError(t, err)
	assert.Equal(t, path, found)
}
