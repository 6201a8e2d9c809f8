package deploy

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ameistad/deployctl/internal/audit"
	"github.com/ameistad/deployctl/internal/backup"
	"github.com/ameistad/deployctl/internal/constants"
	"github.com/ameistad/deployctl/internal/docker"
	"github.com/ameistad/deployctl/internal/logging"
	"github.com/ameistad/deployctl/internal/migrate"
)

func (o *Orchestrator) validate(ctx context.Context) Result {
	logger := logging.Ctx(ctx)

	if err := o.opts.Validate(); err != nil {
		return fatal(err, "invalid deployment options")
	}

	info, err := os.Stat(o.opts.DeployDir)
	if err != nil {
		return fatal(err, "deploy directory %s is not accessible", o.opts.DeployDir)
	}
	if !info.IsDir() {
		return fatal(fmt.Errorf("%s is not a directory", o.opts.DeployDir), "deploy directory %s is not usable", o.opts.DeployDir)
	}

	descriptor, err := docker.LoadDescriptor(o.opts.ComposeFilePath())
	if err != nil {
		return fatal(err, "compose file is not usable")
	}
	if !descriptor.HasService(o.opts.WebService) {
		return fatal(
			fmt.Errorf("service '%s' is not declared in %s (found: %s)", o.opts.WebService, o.opts.ComposeFilePath(), strings.Join(descriptor.ServiceNames(), ", ")),
			"web service not found")
	}
	if !descriptor.ImageUsesVariable(o.opts.WebService, o.opts.TagKey) {
		logger.Warn().
			Str("service", o.opts.WebService).
			Str("key", o.opts.TagKey).
			Msg("Image of the web service does not reference the tag variable; changing it may have no effect")
	}
	o.descriptor = descriptor

	exists, err := o.env.Exists()
	if err != nil {
		return fatal(err, "environment file is not accessible")
	}
	if !exists {
		return fatal(fmt.Errorf("%s does not exist", o.env.Path()), "environment file not found")
	}

	if err := o.deps.Services.Reachable(ctx); err != nil {
		return fatal(err, "container engine is not reachable")
	}

	lock := NewLock(o.opts.LockPath())
	if err := lock.Acquire(); err != nil {
		return fatal(err, "could not take the deploy lock")
	}
	o.lock = lock

	previous, found, err := o.state.Read()
	if err != nil {
		return fatal(err, "could not read rollback state")
	}
	if found {
		if !o.opts.Force {
			return fatal(
				fmt.Errorf("%s records previous tag %q: %w", o.state.Path(), previous, ErrStaleRollbackState),
				"an earlier deployment did not finish; inspect the services and the audit log, then rerun with --force")
		}
		logger.Warn().Str("previous_tag", previous).Msg("Ignoring rollback state left by an earlier run")
	}

	return ok("inputs valid, container engine reachable")
}

func (o *Orchestrator) snapshot(ctx context.Context, a *Attempt) Result {
	line, present, err := o.env.Line(o.opts.TagKey)
	if err != nil {
		return fatal(err, "could not read current tag")
	}
	a.configuredLine, a.tagWasConfigured = line, present

	tag := o.env.ReadTag(o.opts.TagKey)
	if tag == constants.UnknownTag && o.deps.History != nil {
		last, err := o.deps.History.LastGoodTag(a.App)
		if err != nil {
			logging.Ctx(ctx).Warn().Err(err).Msg("Could not read deployment history")
		} else if last != "" {
			logging.Ctx(ctx).Info().Str(logging.LogFieldTag, last).Msg("Tag not configured, using last good release from history")
			tag = last
		}
	}
	a.PreviousTag = tag

	if err := o.state.Write(tag); err != nil {
		return fatal(err, "could not record rollback state")
	}
	a.snapshotTaken = true
	return ok("previous release %s recorded", tag)
}

func (o *Orchestrator) backup(ctx context.Context, a *Attempt) Result {
	if o.opts.SkipBackup || o.deps.Backup == nil {
		o.event(ctx, a, audit.ActionBackup, audit.StatusOK, a.PreviousTag, "skipped")
		return skipped("database backup disabled")
	}

	outcome, err := o.deps.Backup.Run(ctx)
	if err != nil {
		o.event(ctx, a, audit.ActionBackup, audit.StatusFailed, a.PreviousTag, err.Error())
		return degraded(err, "database backup failed, continuing without it")
	}
	if outcome.Status == backup.StatusSkipped {
		o.event(ctx, a, audit.ActionBackup, audit.StatusOK, a.PreviousTag, "skipped: no database service running")
		return skipped("no database service running")
	}

	if o.deps.Metrics != nil {
		o.deps.Metrics.ObserveBackup(a.App, outcome.Size)
	}
	name := filepath.Base(outcome.Path)
	if len(outcome.Pruned) > 0 {
		logging.Ctx(ctx).Info().Strs("pruned", outcome.Pruned).Msg("Removed old database backups")
	}
	o.event(ctx, a, audit.ActionBackup, audit.StatusOK, a.PreviousTag, name)
	return ok("database %s backed up to %s", outcome.Service, name)
}

func (o *Orchestrator) tagUpdate(a *Attempt) Result {
	if err := o.env.Set(o.opts.TagKey, a.TargetTag); err != nil {
		return fatal(err, "could not update %s", o.opts.TagKey)
	}
	a.tagUpdated = true
	return ok("%s=%s", o.opts.TagKey, a.TargetTag)
}

func (o *Orchestrator) pull(ctx context.Context) Result {
	if err := o.deps.Services.Pull(ctx, o.opts.WebService); err != nil {
		return fatal(err, "image pull failed, no container was touched")
	}
	return ok("image for %s pulled", o.opts.WebService)
}

func (o *Orchestrator) migrate(ctx context.Context, a *Attempt) Result {
	if o.opts.SkipMigrate {
		return skipped("migrations disabled")
	}

	if err := o.deps.Migrator.Run(ctx); err != nil {
		result := fatal(err, "migrations failed, no container was restarted")
		var migrateErr *migrate.Error
		if errors.As(err, &migrateErr) {
			result.Code = migrateErr.ExitCode
		}
		return result
	}
	o.event(ctx, a, audit.ActionMigrate, audit.StatusOK, a.TargetTag, "")
	return ok("migrations applied")
}

func (o *Orchestrator) switchServices(ctx context.Context) Result {
	services := []string{o.opts.WebService}
	if o.hasWorker() {
		services = append(services, o.opts.WorkerService)
	}
	for _, service := range services {
		if err := o.deps.Services.Recreate(ctx, service); err != nil {
			return fatal(err, "could not recreate %s", service)
		}
	}
	return ok("recreated %s", strings.Join(services, ", "))
}

func (o *Orchestrator) collectAssets(ctx context.Context) Result {
	if err := o.deps.Migrator.CollectStatic(ctx); err != nil {
		return degraded(err, "static asset collection failed, continuing")
	}
	return ok("static assets collected")
}

func (o *Orchestrator) probe(ctx context.Context, a *Attempt) Result {
	url := o.healthURL(ctx)
	verdict := o.deps.Prober.Probe(ctx, url, o.opts.Health.Retries, o.opts.Health.Interval)
	if o.deps.Metrics != nil {
		o.deps.Metrics.ObserveProbe(a.App, StateProbe.String(), verdict.Attempts)
	}

	if verdict.Healthy {
		o.event(ctx, a, audit.ActionHealthcheck, audit.StatusOK, a.TargetTag, fmt.Sprintf("%s healthy after %d attempt(s)", url, verdict.Attempts))
		return ok("%s is healthy", a.TargetTag)
	}

	detail := fmt.Sprintf("%s not healthy after %d attempt(s), last status %d", url, verdict.Attempts, verdict.StatusCode)
	o.event(ctx, a, audit.ActionHealthcheck, audit.StatusFailed, a.TargetTag, detail)
	return fatal(errors.New(detail), "health check failed")
}

// healthURL resolves the host port published for the web container's health
// port. When that is not possible the configured port is used as is.
func (o *Orchestrator) healthURL(ctx context.Context) string {
	logger := logging.Ctx(ctx)
	port := o.opts.Health.Port

	id, err := o.deps.Services.ContainerID(ctx, o.opts.WebService)
	if err != nil {
		logger.Warn().Err(err).Int("port", port).Msg("Could not find web container, assuming default health port")
	} else if published, err := o.deps.Services.PublishedPort(ctx, id, o.opts.Health.Port); err != nil {
		logger.Warn().Err(err).Int("port", port).Msg("Could not resolve published port, assuming default health port")
	} else {
		port = published
	}

	return "http://" + net.JoinHostPort(o.opts.Health.Host, strconv.Itoa(port)) + o.opts.Health.Path
}

func (o *Orchestrator) hasWorker() bool {
	worker := o.opts.WorkerService
	return o.descriptor != nil && worker != "" && worker != o.opts.WebService && o.descriptor.HasService(worker)
}
