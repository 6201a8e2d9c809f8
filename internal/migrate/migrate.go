// Package migrate runs the hosted application's schema migrations in a
// throwaway container before traffic is switched, and collects static assets
// afterwards.
package migrate

import (
	"context"
	"fmt"
	"io"

	"github.com/ameistad/deployctl/internal/docker"
	"github.com/ameistad/deployctl/internal/logging"
)

type Runner interface {
	RunOnce(ctx context.Context, service string, command []string) error
	Exec(ctx context.Context, service string, stdout io.Writer, command []string) error
}

// Error is returned when the migration command ran but exited non-zero.
type Error struct {
	ExitCode int
	Err      error
}

func (e *Error) Error() string {
	if e.ExitCode > 0 {
		return fmt.Sprintf("migration exited with code %d: %v", e.ExitCode, e.Err)
	}
	return fmt.Sprintf("migration failed: %v", e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

type Gate struct {
	runner        Runner
	service       string
	migrate       []string
	collectStatic []string
}

func NewGate(runner Runner, service string, migrateCommand, collectStaticCommand []string) *Gate {
	return &Gate{
		runner:        runner,
		service:       service,
		migrate:       migrateCommand,
		collectStatic: collectStaticCommand,
	}
}

// Run executes the migration command in a new, removed-after-use container of
// the configured service. Any failure is returned as *Error.
func (g *Gate) Run(ctx context.Context) error {
	logging.Ctx(ctx).Info().Str("service", g.service).Strs("command", g.migrate).Msg("Running migrations")
	if err := g.runner.RunOnce(ctx, g.service, g.migrate); err != nil {
		return &Error{ExitCode: docker.ExitCode(err), Err: err}
	}
	return nil
}

// CollectStatic runs the asset collection command inside the live container.
// Callers treat the error as a warning.
func (g *Gate) CollectStatic(ctx context.Context) error {
	if len(g.collectStatic) == 0 {
		return nil
	}
	if err := g.runner.Exec(ctx, g.service, nil, g.collectStatic); err != nil {
		return fmt.Errorf("failed to collect static assets: %w", err)
	}
	return nil
}
