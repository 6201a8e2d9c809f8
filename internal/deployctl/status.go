package deployctl

import (
	"errors"
	"fmt"
	"time"

	"github.com/ameistad/deployctl/internal/audit"
	"github.com/ameistad/deployctl/internal/backup"
	"github.com/ameistad/deployctl/internal/config"
	"github.com/ameistad/deployctl/internal/constants"
	"github.com/ameistad/deployctl/internal/deploy"
	"github.com/ameistad/deployctl/internal/helpers"
	"github.com/ameistad/deployctl/internal/ui"
	"github.com/spf13/cobra"
)

func StatusCmd() *cobra.Command {
	flags := &optionFlags{}
	var eventCount int

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the configured release, leftover rollback state and recent events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts, err := resolveOptions(cmd, flags)
			if err != nil {
				return err
			}
			if opts.AppName == "" {
				return errors.New("application name is required (--app)")
			}

			ui.Section(fmt.Sprintf("Status of %s", opts.AppName), statusLines(opts))

			events, err := audit.ReadEvents(opts.AuditLogPath())
			if err != nil {
				return err
			}
			recent := audit.Tail(events, opts.AppName, eventCount)
			if len(recent) == 0 {
				ui.Info("No audit events recorded yet")
				return nil
			}

			now := time.Now()
			rows := make([][]string, 0, len(recent))
			for i := len(recent) - 1; i >= 0; i-- {
				e := recent[i]
				rows = append(rows, []string{
					helpers.RelativeTime(e.Timestamp, now),
					string(e.Action),
					e.Tag,
					ui.Colorize(string(e.Status)),
					e.Detail,
				})
			}
			fmt.Fprintln(ui.Out, ui.Table([]string{"WHEN", "ACTION", "TAG", "STATUS", "DETAIL"}, rows))
			return nil
		},
	}

	bindLocationFlags(cmd, flags)
	cmd.Flags().IntVarP(&eventCount, "events", "n", constants.DefaultAuditEventsShown, "Number of audit events to show")

	return cmd
}

func statusLines(opts *config.Options) []string {
	env := config.NewEnvFile(opts.EnvFilePath())
	lines := []string{
		fmt.Sprintf("Deploy directory: %s", opts.DeployDir),
		fmt.Sprintf("Configured tag:   %s", env.ReadTag(opts.TagKey)),
	}

	state := deploy.NewRollbackState(opts.RollbackStatePath())
	previous, found, err := state.Read()
	switch {
	case err != nil:
		lines = append(lines, fmt.Sprintf("Rollback state:   unreadable (%v)", err))
	case found:
		lines = append(lines, fmt.Sprintf("Rollback state:   %s=%s left by an unfinished run, inspect before deploying", constants.RollbackStateKey, previous))
	default:
		lines = append(lines, "Rollback state:   none")
	}

	lock := deploy.NewLock(opts.LockPath())
	if err := lock.Acquire(); errors.Is(err, deploy.ErrLocked) {
		lines = append(lines, "Deployment:       in progress")
	} else if err == nil {
		lock.Release()
	}

	if names, err := backup.Artifacts(opts.BackupsDir()); err == nil {
		if len(names) == 0 {
			lines = append(lines, "Backups:          none")
		} else {
			lines = append(lines, fmt.Sprintf("Backups:          %d, newest %s", len(names), names[0]))
		}
	}
	return lines
}
