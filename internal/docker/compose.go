package docker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ameistad/deployctl/internal/helpers"
	"github.com/ameistad/deployctl/internal/logging"
	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/go-connections/nat"
)

var (
	ErrServiceNotRunning = errors.New("service is not running")
	ErrPortNotPublished  = errors.New("port is not published")
)

// EngineAPI is the part of the Docker Engine client the controller uses.
// *client.Client satisfies it.
type EngineAPI interface {
	Ping(ctx context.Context) (types.Ping, error)
	ContainerInspect(ctx context.Context, containerID string) (container.InspectResponse, error)
	ImagesPrune(ctx context.Context, pruneFilters filters.Args) (image.PruneReport, error)
}

// Compose controls the services of one compose project. Lifecycle operations
// shell out to `docker compose`; inspection goes through the Engine API.
// Nothing is retried here; every failure is returned to the caller.
type Compose struct {
	dir         string
	composeFile string
	envFile     string
	runner      CommandRunner
	api         EngineAPI
}

func NewCompose(dir, composeFile, envFile string, runner CommandRunner, api EngineAPI) *Compose {
	return &Compose{
		dir:         dir,
		composeFile: composeFile,
		envFile:     envFile,
		runner:      runner,
		api:         api,
	}
}

// Reachable verifies the container engine answers.
func (c *Compose) Reachable(ctx context.Context) error {
	if c.api == nil {
		return errors.New("no Docker client configured")
	}
	if _, err := c.api.Ping(ctx); err != nil {
		return fmt.Errorf("failed to reach Docker daemon: %w", err)
	}
	return nil
}

func (c *Compose) Pull(ctx context.Context, service string) error {
	if err := c.compose(ctx, nil, "pull", service); err != nil {
		return fmt.Errorf("failed to pull image for %s: %w", service, err)
	}
	return nil
}

// Recreate replaces the running container of service with a new one built
// from the currently configured image, whether or not anything changed.
func (c *Compose) Recreate(ctx context.Context, service string) error {
	if err := c.compose(ctx, nil, "up", "--detach", "--no-deps", "--force-recreate", service); err != nil {
		return fmt.Errorf("failed to recreate %s: %w", service, err)
	}
	return nil
}

// RunOnce runs command in a throwaway container of service that is removed
// afterwards. No other service is started.
func (c *Compose) RunOnce(ctx context.Context, service string, command []string) error {
	args := append([]string{"run", "--rm", "--no-deps", service}, command...)
	return c.compose(ctx, nil, args...)
}

// Exec runs command inside the running container of service. Standard output
// goes to stdout when it is non-nil.
func (c *Compose) Exec(ctx context.Context, service string, stdout io.Writer, command []string) error {
	args := append([]string{"exec", "-T", service}, command...)
	return c.compose(ctx, stdout, args...)
}

func (c *Compose) RunningServices(ctx context.Context) ([]string, error) {
	var out bytes.Buffer
	if err := c.compose(ctx, &out, "ps", "--services", "--filter", "status=running"); err != nil {
		return nil, fmt.Errorf("failed to list running services: %w", err)
	}
	return splitLines(out.String()), nil
}

func (c *Compose) ContainerID(ctx context.Context, service string) (string, error) {
	var out bytes.Buffer
	if err := c.compose(ctx, &out, "ps", "--quiet", service); err != nil {
		return "", fmt.Errorf("failed to find container for %s: %w", service, err)
	}
	ids := splitLines(out.String())
	if len(ids) == 0 {
		return "", fmt.Errorf("%s: %w", service, ErrServiceNotRunning)
	}
	return ids[0], nil
}

// PublishedPort returns the host port bound to internalPort/tcp of the container.
func (c *Compose) PublishedPort(ctx context.Context, containerID string, internalPort int) (int, error) {
	if c.api == nil {
		return 0, errors.New("no Docker client configured")
	}
	info, err := c.api.ContainerInspect(ctx, containerID)
	if err != nil {
		return 0, fmt.Errorf("failed to inspect container %s: %w", helpers.SafeIDPrefix(containerID), err)
	}
	if info.NetworkSettings == nil {
		return 0, fmt.Errorf("container %s has no network settings: %w", helpers.SafeIDPrefix(containerID), ErrPortNotPublished)
	}
	return publishedPort(info.NetworkSettings.Ports, internalPort)
}

// PruneImages removes dangling images and returns the reclaimed bytes.
func (c *Compose) PruneImages(ctx context.Context) (uint64, error) {
	if c.api == nil {
		return 0, errors.New("no Docker client configured")
	}
	report, err := c.api.ImagesPrune(ctx, filters.NewArgs(filters.Arg("dangling", "true")))
	if err != nil {
		return 0, fmt.Errorf("failed to prune dangling images: %w", err)
	}
	return report.SpaceReclaimed, nil
}

func (c *Compose) compose(ctx context.Context, stdout io.Writer, args ...string) error {
	full := append([]string{"compose", "--file", c.composeFile, "--env-file", c.envFile}, args...)
	cmd := Command{Dir: c.dir, Name: "docker", Args: full, Stdout: stdout}
	logging.Ctx(ctx).Debug().Str("command", cmd.String()).Msg("Running compose command")
	return c.runner.Run(ctx, cmd)
}

func publishedPort(ports nat.PortMap, internalPort int) (int, error) {
	port, err := nat.NewPort("tcp", strconv.Itoa(internalPort))
	if err != nil {
		return 0, err
	}
	for _, binding := range ports[port] {
		if binding.HostPort == "" {
			continue
		}
		hostPort, err := strconv.Atoi(binding.HostPort)
		if err != nil {
			return 0, fmt.Errorf("invalid host port %q: %w", binding.HostPort, err)
		}
		return hostPort, nil
	}
	return 0, fmt.Errorf("%s: %w", port, ErrPortNotPublished)
}

func splitLines(s string) []string {
	var lines []string
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
