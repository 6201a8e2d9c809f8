package docker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/go-connections/nat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingRunner struct {
	commands []Command
	stdout   map[string]string
	err      error
}

func (r *recordingRunner) Run(_ context.Context, c Command) error {
	r.commands = append(r.commands, c)
	if c.Stdout != nil {
		if out, ok := r.stdout[c.Args[len(c.Args)-1]]; ok {
			_, _ = io.WriteString(c.Stdout, out)
		}
	}
	return r.err
}

type fakeEngine struct {
	pingErr  error
	inspect  container.InspectResponse
	pruneArg filters.Args
}

func (f *fakeEngine) Ping(context.Context) (types.Ping, error) {
	return types.Ping{}, f.pingErr
}

func (f *fakeEngine) ContainerInspect(context.Context, string) (container.InspectResponse, error) {
	return f.inspect, nil
}

func (f *fakeEngine) ImagesPrune(_ context.Context, args filters.Args) (image.PruneReport, error) {
	f.pruneArg = args
	return image.PruneReport{SpaceReclaimed: 1024}, nil
}

func newTestCompose(runner CommandRunner, api EngineAPI) *Compose {
	return NewCompose("/opt/shop", "docker-compose.prod.yml", ".env.prod", runner, api)
}

func TestComposeCommands(t *testing.T) {
	prefix := []string{"compose", "--file", "docker-compose.prod.yml", "--env-file", ".env.prod"}

	tests := []struct {
		name string
		call func(c *Compose) error
		want []string
	}{
		{"pull", func(c *Compose) error { return c.Pull(context.Background(), "web") }, []string{"pull", "web"}},
		{"recreate", func(c *Compose) error { return c.Recreate(context.Background(), "worker") },
			[]string{"up", "--detach", "--no-deps", "--force-recreate", "worker"}},
		{"run once", func(c *Compose) error {
			return c.RunOnce(context.Background(), "web", []string{"python", "manage.py", "migrate"})
		}, []string{"run", "--rm", "--no-deps", "web", "python", "manage.py", "migrate"}},
		{"exec", func(c *Compose) error {
			return c.Exec(context.Background(), "web", nil, []string{"python", "manage.py", "collectstatic"})
		}, []string{"exec", "-T", "web", "python", "manage.py", "collectstatic"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &recordingRunner{}
			require.NoError(t, tt.call(newTestCompose(runner, nil)))
			require.Len(t, runner.commands, 1)
			cmd := runner.commands[0]
			assert.Equal(t, "docker", cmd.Name)
			assert.Equal(t, "/opt/shop", cmd.Dir)
			assert.Equal(t, append(append([]string{}, prefix...), tt.want...), cmd.Args)
		})
	}
}

func TestComposeErrorsAreReturned(t *testing.T) {
	runner := &recordingRunner{err: errors.New("boom")}
	c := newTestCompose(runner, nil)

	err := c.Pull(context.Background(), "web")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to pull image for web")
	assert.Len(t, runner.commands, 1, "failures are not retried")
}

func TestRunningServices(t *testing.T) {
	runner := &recordingRunner{stdout: map[string]string{"status=running": "web\nworker\n\ndb\n"}}
	services, err := newTestCompose(runner, nil).RunningServices(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"web", "worker", "db"}, services)
}

func TestContainerID(t *testing.T) {
	runner := &recordingRunner{stdout: map[string]string{"web": "3f2a9c1b7d6e\n"}}
	id, err := newTestCompose(runner, nil).ContainerID(context.Background(), "web")
	require.NoError(t, err)
	assert.Equal(t, "3f2a9c1b7d6e", id)

	_, err = newTestCompose(&recordingRunner{}, nil).ContainerID(context.Background(), "web")
	assert.ErrorIs(t, err, ErrServiceNotRunning)
}

func TestPublishedPort(t *testing.T) {
	engine := &fakeEngine{}
	engine.inspect.NetworkSettings = &container.NetworkSettings{}
	engine.inspect.NetworkSettings.Ports = nat.PortMap{
		"8000/tcp": []nat.PortBinding{{HostIP: "0.0.0.0", HostPort: "18000"}},
	}
	c := newTestCompose(&recordingRunner{}, engine)

	port, err := c.PublishedPort(context.Background(), "abc", 8000)
	require.NoError(t, err)
	assert.Equal(t, 18000, port)

	_, err = c.PublishedPort(context.Background(), "abc", 9000)
	assert.ErrorIs(t, err, ErrPortNotPublished)
}

func TestPublishedPortSkipsEmptyBindings(t *testing.T) {
	port, err := publishedPort(nat.PortMap{
		"8000/tcp": []nat.PortBinding{{HostIP: "::"}, {HostIP: "0.0.0.0", HostPort: "8001"}},
	}, 8000)
	require.NoError(t, err)
	assert.Equal(t, 8001, port)
}

func TestReachableAndPrune(t *testing.T) {
	engine := &fakeEngine{}
	c := newTestCompose(&recordingRunner{}, engine)
	require.NoError(t, c.Reachable(context.Background()))

	reclaimed, err := c.PruneImages(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(1024), reclaimed)
	assert.Equal(t, []string{"true"}, engine.pruneArg.Get("dangling"))

	engine.pingErr = errors.New("connection refused")
	assert.ErrorContains(t, c.Reachable(context.Background()), "failed to reach Docker daemon")

	assert.Error(t, newTestCompose(&recordingRunner{}, nil).Reachable(context.Background()))
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, ExitCode(nil))
	assert.Equal(t, -1, ExitCode(errors.New("plain")))

	err := exec.Command("sh", "-c", "exit 3").Run()
	assert.Equal(t, 3, ExitCode(fmt.Errorf("wrapped: %w", err)))
}

func TestExecRunnerIncludesStderr(t *testing.T) {
	err := ExecRunner{}.Run(context.Background(), Command{Name: "sh", Args: []string{"-c", "echo nope >&2; exit 2"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nope")
	assert.Equal(t, 2, ExitCode(err))
}

func TestLoadDescriptor(t *testing.T) {
	path := filepath.Join(t.TempDir(), "docker-compose.prod.yml")
	content := `services:
  web:
    image: registry.example.com/shop:${IMAGE_TAG}
    ports: ["8000:8000"]
  worker:
    image: registry.example.com/shop:${IMAGE_TAG:-latest}
  db:
    image: postgres:16
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	d, err := LoadDescriptor(path)
	require.NoError(t, err)
	assert.True(t, d.HasService("web"))
	assert.False(t, d.HasService("api"))
	assert.Equal(t, []string{"db", "web", "worker"}, d.ServiceNames())
	assert.True(t, d.ImageUsesVariable("web", "IMAGE_TAG"))
	assert.True(t, d.ImageUsesVariable("worker", "IMAGE_TAG"))
	assert.False(t, d.ImageUsesVariable("db", "IMAGE_TAG"))
}

func TestLoadDescriptorErrors(t *testing.T) {
	dir := t.TempDir()
	_, err := LoadDescriptor(filepath.Join(dir, "missing.yml"))
	assert.Error(t, err)

	empty := filepath.Join(dir, "empty.yml")
	require.NoError(t, os.WriteFile(empty, []byte("version: '3'\n"), 0o644))
	_, err = LoadDescriptor(empty)
	assert.ErrorContains(t, err, "declares no services")
}
