package migrate

import (
	"context"
	"errors"
	"io"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRunner struct {
	runOnceErr error
	execErr    error
	calls      []string
}

func (f *fakeRunner) RunOnce(_ context.Context, service string, command []string) error {
	f.calls = append(f.calls, "run "+service+" "+command[0])
	return f.runOnceErr
}

func (f *fakeRunner) Exec(_ context.Context, service string, _ io.Writer, command []string) error {
	f.calls = append(f.calls, "exec "+service+" "+command[0])
	return f.execErr
}

func TestGateRun(t *testing.T) {
	runner := &fakeRunner{}
	gate := NewGate(runner, "web", []string{"python", "manage.py", "migrate"}, nil)

	require.NoError(t, gate.Run(context.Background()))
	assert.Equal(t, []string{"run web python"}, runner.calls)
}

func TestGateRunFailureCarriesExitCode(t *testing.T) {
	exitErr := exec.Command("sh", "-c", "exit 1").Run()
	runner := &fakeRunner{runOnceErr: exitErr}
	gate := NewGate(runner, "web", []string{"python", "manage.py", "migrate"}, nil)

	err := gate.Run(context.Background())
	require.Error(t, err)

	var migrateErr *Error
	require.True(t, errors.As(err, &migrateErr))
	assert.Equal(t, 1, migrateErr.ExitCode)
	assert.Contains(t, err.Error(), "exited with code 1")
}

func TestGateRunFailureWithoutProcess(t *testing.T) {
	runner := &fakeRunner{runOnceErr: errors.New("docker: not found")}
	err := NewGate(runner, "web", []string{"migrate"}, nil).Run(context.Background())

	var migrateErr *Error
	require.ErrorAs(t, err, &migrateErr)
	assert.Equal(t, -1, migrateErr.ExitCode)
	assert.Contains(t, err.Error(), "docker: not found")
}

func TestCollectStatic(t *testing.T) {
	runner := &fakeRunner{}
	gate := NewGate(runner, "web", nil, []string{"python", "manage.py", "collectstatic"})
	require.NoError(t, gate.CollectStatic(context.Background()))
	assert.Equal(t, []string{"exec web python"}, runner.calls)

	runner.execErr = errors.New("no such file")
	assert.ErrorContains(t, gate.CollectStatic(context.Background()), "failed to collect static assets")

	empty := NewGate(&fakeRunner{}, "web", nil, nil)
	assert.NoError(t, empty.CollectStatic(context.Background()))
}
