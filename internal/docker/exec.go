package docker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
)

// Command is one external process invocation.
type Command struct {
	Dir    string
	Name   string
	Args   []string
	Stdout io.Writer
}

func (c Command) String() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// CommandRunner runs a command to completion.
type CommandRunner interface {
	Run(ctx context.Context, cmd Command) error
}

// ExecRunner runs commands with os/exec. Stderr is echoed to Output and kept
// so failures carry the tail of what the tool printed.
type ExecRunner struct {
	Output io.Writer
}

const maxErrorOutput = 2048

func (r ExecRunner) Run(ctx context.Context, c Command) error {
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir

	output := r.Output
	if output == nil {
		output = io.Discard
	}

	var stderr bytes.Buffer
	cmd.Stderr = io.MultiWriter(&stderr, output)
	cmd.Stdout = output
	if c.Stdout != nil {
		cmd.Stdout = c.Stdout
	}

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if len(msg) > maxErrorOutput {
			msg = "..." + msg[len(msg)-maxErrorOutput:]
		}
		if msg != "" {
			return fmt.Errorf("%s: %w\nOutput: %s", c, err, msg)
		}
		return fmt.Errorf("%s: %w", c, err)
	}
	return nil
}

// ExitCode extracts the process exit code from an error returned by Run.
// It returns -1 when the error did not come from a process exit.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}
