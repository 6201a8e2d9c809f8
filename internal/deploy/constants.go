package deploy

import "time"

const (
	// PruneTimeout bounds the best-effort image cleanup after a successful rollout.
	PruneTimeout = 2 * time.Minute
)
