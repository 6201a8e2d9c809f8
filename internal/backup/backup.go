package backup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/ameistad/deployctl/internal/constants"
	"github.com/ameistad/deployctl/internal/logging"
	"github.com/juju/clock"
	"github.com/klauspost/compress/gzip"
)

// DumpCommand produces a plain SQL dump on stdout inside the database container.
// The credentials come from the container's own environment.
var DumpCommand = []string{"sh", "-c", `pg_dump -U "$POSTGRES_USER" "$POSTGRES_DB"`}

// Services is what the agent needs from the service controller.
type Services interface {
	RunningServices(ctx context.Context) ([]string, error)
	Exec(ctx context.Context, service string, stdout io.Writer, command []string) error
}

type Status string

const (
	StatusCreated Status = "created"
	StatusSkipped Status = "skipped"
)

// Outcome describes one backup run.
type Outcome struct {
	Status  Status
	Service string
	Path    string
	Size    int64
	Pruned  []string
}

type Agent struct {
	services  Services
	dir       string
	retention int
	patterns  []string
	clock     clock.Clock
}

// NewAgent returns an agent writing artifacts to dir and keeping the newest
// retention of them. A nil clk uses the wall clock.
func NewAgent(services Services, dir string, retention int, patterns []string, clk clock.Clock) *Agent {
	if clk == nil {
		clk = clock.WallClock
	}
	if retention < 1 {
		retention = 1
	}
	return &Agent{
		services:  services,
		dir:       dir,
		retention: retention,
		patterns:  patterns,
		clock:     clk,
	}
}

// Run dumps the first running database service and rotates old artifacts.
// When no database service is running the outcome is StatusSkipped and err is nil.
func (a *Agent) Run(ctx context.Context) (Outcome, error) {
	logger := logging.Ctx(ctx)

	running, err := a.services.RunningServices(ctx)
	if err != nil {
		return Outcome{}, fmt.Errorf("failed to list running services: %w", err)
	}
	service := MatchDatabaseService(running, a.patterns)
	if service == "" {
		logger.Debug().Strs("running", running).Msg("No database service running, skipping backup")
		return Outcome{Status: StatusSkipped}, nil
	}

	if err := os.MkdirAll(a.dir, constants.ModeDirPrivate); err != nil {
		return Outcome{}, fmt.Errorf("failed to create backup directory: %w", err)
	}

	path := filepath.Join(a.dir, ArtifactName(a.clock.Now()))
	size, err := a.dump(ctx, service, path)
	if err != nil {
		return Outcome{}, err
	}
	logger.Info().Str("service", service).Str("path", path).Int64("bytes", size).Msg("Database backup written")

	pruned, err := Prune(a.dir, a.retention)
	if err != nil {
		return Outcome{}, fmt.Errorf("backup written but pruning failed: %w", err)
	}

	return Outcome{Status: StatusCreated, Service: service, Path: path, Size: size, Pruned: pruned}, nil
}

func (a *Agent) dump(ctx context.Context, service, path string) (int64, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, constants.ModeFileSecret)
	if err != nil {
		return 0, fmt.Errorf("failed to create backup file: %w", err)
	}

	zw := gzip.NewWriter(f)
	dumpErr := a.services.Exec(ctx, service, zw, DumpCommand)
	closeErr := errors.Join(zw.Close(), f.Sync(), f.Close())
	if err := errors.Join(dumpErr, closeErr); err != nil {
		os.Remove(path)
		return 0, fmt.Errorf("failed to dump database from %s: %w", service, err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// MatchDatabaseService returns the first service whose name contains one of
// patterns, or "" when none does.
func MatchDatabaseService(services, patterns []string) string {
	for _, service := range services {
		name := strings.ToLower(service)
		for _, pattern := range patterns {
			if pattern != "" && strings.Contains(name, strings.ToLower(pattern)) {
				return service
			}
		}
	}
	return ""
}

// ArtifactName names a dump by its creation time. Microseconds keep names
// unique across back-to-back runs and make lexical order creation order.
func ArtifactName(t time.Time) string {
	t = t.UTC()
	return fmt.Sprintf("%s%s_%06d%s", constants.BackupFilePrefix, t.Format("20060102_150405"), t.Nanosecond()/1000, constants.BackupFileSuffix)
}

// Artifacts lists the backup files in dir, newest first.
func Artifacts(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read backup directory: %w", err)
	}

	var names []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.Type().IsRegular() && strings.HasPrefix(name, constants.BackupFilePrefix) && strings.HasSuffix(name, constants.BackupFileSuffix) {
			names = append(names, name)
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	return names, nil
}

// Prune deletes all but the keep newest artifacts in dir and returns the
// deleted file names.
func Prune(dir string, keep int) ([]string, error) {
	names, err := Artifacts(dir)
	if err != nil {
		return nil, err
	}
	if len(names) <= keep {
		return nil, nil
	}

	var pruned []string
	for _, name := range names[keep:] {
		if err := os.Remove(filepath.Join(dir, name)); err != nil {
			return pruned, fmt.Errorf("failed to remove old backup %s: %w", name, err)
		}
		pruned = append(pruned, name)
	}
	return pruned, nil
}
