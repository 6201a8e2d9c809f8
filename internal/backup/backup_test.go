package backup

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/juju/clock"
	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeServices struct {
	running []string
	dump    string
	execErr error
	execed  []string
}

func (f *fakeServices) RunningServices(context.Context) ([]string, error) {
	return f.running, nil
}

func (f *fakeServices) Exec(_ context.Context, service string, stdout io.Writer, _ []string) error {
	f.execed = append(f.execed, service)
	if f.execErr != nil {
		return f.execErr
	}
	_, err := io.WriteString(stdout, f.dump)
	return err
}

// steppingClock advances one second every time Now is read.
type steppingClock struct {
	clock.Clock
	now time.Time
}

func (c *steppingClock) Now() time.Time {
	c.now = c.now.Add(time.Second)
	return c.now
}

func newClock() *steppingClock {
	return &steppingClock{now: time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)}
}

func TestRunWritesCompressedDump(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "backups")
	services := &fakeServices{running: []string{"web", "worker", "db"}, dump: "CREATE TABLE t (id int);\n"}
	agent := NewAgent(services, dir, 10, []string{"db", "postgres"}, newClock())

	outcome, err := agent.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatusCreated, outcome.Status)
	assert.Equal(t, "db", outcome.Service)
	assert.Equal(t, []string{"db"}, services.execed)

	info, err := os.Stat(outcome.Path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	f, err := os.Open(outcome.Path)
	require.NoError(t, err)
	defer f.Close()
	zr, err := gzip.NewReader(f)
	require.NoError(t, err)
	content, err := io.ReadAll(zr)
	require.NoError(t, err)
	assert.Equal(t, services.dump, string(content))
}

func TestRunSkipsWithoutDatabaseService(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "backups")
	services := &fakeServices{running: []string{"web", "worker"}}
	agent := NewAgent(services, dir, 10, []string{"db", "postgres", "database"}, newClock())

	outcome, err := agent.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatusSkipped, outcome.Status)
	assert.Empty(t, services.execed)
	assert.NoDirExists(t, dir)
}

func TestRunDumpFailureRemovesPartialFile(t *testing.T) {
	dir := t.TempDir()
	services := &fakeServices{running: []string{"postgres"}, execErr: errors.New("pg_dump: connection refused")}
	agent := NewAgent(services, dir, 10, []string{"postgres"}, newClock())

	_, err := agent.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")

	names, err := Artifacts(dir)
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestRetentionKeepsNewest(t *testing.T) {
	const retention = 4
	dir := t.TempDir()
	clk := newClock()
	services := &fakeServices{running: []string{"db"}, dump: "--"}
	agent := NewAgent(services, dir, retention, []string{"db"}, clk)

	var created []string
	for i := 0; i < retention+3; i++ {
		outcome, err := agent.Run(context.Background())
		require.NoError(t, err)
		created = append(created, filepath.Base(outcome.Path))
	}

	names, err := Artifacts(dir)
	require.NoError(t, err)
	require.Len(t, names, retention)

	var newest []string
	for i := len(created) - 1; i >= len(created)-retention; i-- {
		newest = append(newest, created[i])
	}
	assert.Equal(t, newest, names)
}

func TestPruneIgnoresForeignFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), nil, 0o644))
	for _, name := range []string{
		"pre_deploy_20260101_000000_000000.sql.gz",
		"pre_deploy_20260102_000000_000000.sql.gz",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o600))
	}

	pruned, err := Prune(dir, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"pre_deploy_20260101_000000_000000.sql.gz"}, pruned)
	assert.FileExists(t, filepath.Join(dir, "notes.txt"))
}

func TestMatchDatabaseService(t *testing.T) {
	patterns := []string{"db", "postgres", "database"}
	tests := []struct {
		running []string
		want    string
	}{
		{[]string{"web", "db"}, "db"},
		{[]string{"web", "Postgres16"}, "Postgres16"},
		{[]string{"web", "worker"}, ""},
		{nil, ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, MatchDatabaseService(tt.running, patterns), "running=%v", tt.running)
	}
}

func TestArtifactName(t *testing.T) {
	ts := time.Date(2026, 3, 14, 9, 26, 53, 589793000, time.UTC)
	assert.Equal(t, "pre_deploy_20260314_092653_589793.sql.gz", ArtifactName(ts))
}
