package deploy

import (
	"context"
	"time"

	"github.com/ameistad/deployctl/internal/backup"
	"github.com/ameistad/deployctl/internal/db"
	"github.com/ameistad/deployctl/internal/health"
)

// ServiceController is the container control plane as the orchestrator sees
// it. *docker.Compose implements it.
type ServiceController interface {
	Reachable(ctx context.Context) error
	Pull(ctx context.Context, service string) error
	Recreate(ctx context.Context, service string) error
	RunningServices(ctx context.Context) ([]string, error)
	ContainerID(ctx context.Context, service string) (string, error)
	PublishedPort(ctx context.Context, containerID string, internalPort int) (int, error)
}

// ImagePruner removes dangling images after a successful rollout.
type ImagePruner interface {
	PruneImages(ctx context.Context) (uint64, error)
}

type Prober interface {
	Probe(ctx context.Context, url string, retries int, interval time.Duration) health.Verdict
}

type BackupAgent interface {
	Run(ctx context.Context) (backup.Outcome, error)
}

type Migrator interface {
	Run(ctx context.Context) error
	CollectStatic(ctx context.Context) error
}

// HistoryStore persists finished attempts. *db.DB implements it.
type HistoryStore interface {
	SaveAttempt(a db.Attempt) error
	PruneOldAttempts(appName string, attemptsToKeep int) (int64, error)
	LastGoodTag(appName string) (string, error)
}
