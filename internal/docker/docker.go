package docker

import (
	"fmt"

	"github.com/docker/docker/client"
)

// NewClient returns an Engine API client configured from the environment
// (DOCKER_HOST and friends). It does not contact the daemon; Compose.Reachable
// does that as part of validation.
func NewClient() (*client.Client, error) {
	dockerClient, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create Docker client: %w", err)
	}
	return dockerClient, nil
}
