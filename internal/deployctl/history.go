package deployctl

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/ameistad/deployctl/internal/constants"
	"github.com/ameistad/deployctl/internal/db"
	"github.com/ameistad/deployctl/internal/helpers"
	"github.com/ameistad/deployctl/internal/ui"
	"github.com/spf13/cobra"
)

func HistoryCmd() *cobra.Command {
	flags := &optionFlags{}
	var limit int

	cmd := &cobra.Command{
		Use:   "history [attempt-id]",
		Short: "List past deployment attempts, or show one in detail",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := resolveOptions(cmd, flags)
			if err != nil {
				return err
			}
			if opts.AppName == "" {
				return errors.New("application name is required (--app)")
			}

			if _, err := os.Stat(opts.HistoryDBPath()); errors.Is(err, os.ErrNotExist) {
				ui.Info("No deployment history for %s", opts.AppName)
				return nil
			}

			database, err := db.New(opts.HistoryDBPath())
			if err != nil {
				return err
			}
			defer database.Close()

			if len(args) == 1 {
				attempt, err := database.GetAttempt(args[0])
				if err != nil {
					return err
				}
				ui.Section(fmt.Sprintf("Attempt %s", attempt.ID), attemptDetailLines(attempt, time.Now()))
				return nil
			}

			attempts, err := database.GetAttemptHistory(opts.AppName, limit)
			if err != nil {
				return err
			}
			if len(attempts) == 0 {
				ui.Info("No deployment history for %s", opts.AppName)
				return nil
			}

			fmt.Fprintln(ui.Out, ui.Table(
				[]string{"ATTEMPT", "STARTED", "CHANGE", "OUTCOME", "EXIT", "TOOK"},
				historyRows(attempts, time.Now()),
			))
			return nil
		},
	}

	bindLocationFlags(cmd, flags)
	cmd.Flags().IntVarP(&limit, "limit", "n", constants.DefaultHistoryEntriesShown, "Number of attempts to show")

	return cmd
}

func historyRows(attempts []db.Attempt, now time.Time) [][]string {
	rows := make([][]string, 0, len(attempts))
	for _, a := range attempts {
		rows = append(rows, []string{
			a.ID,
			helpers.RelativeTime(a.StartedAt, now),
			fmt.Sprintf("%s -> %s", a.PreviousTag, a.TargetTag),
			ui.Colorize(a.Outcome),
			strconv.Itoa(a.ExitCode),
			helpers.FormatElapsed(a.FinishedAt.Sub(a.StartedAt)),
		})
	}
	return rows
}

func attemptDetailLines(a db.Attempt, now time.Time) []string {
	lines := []string{
		fmt.Sprintf("App:        %s", a.AppName),
		fmt.Sprintf("Change:     %s -> %s", a.PreviousTag, a.TargetTag),
		fmt.Sprintf("Outcome:    %s (exit %d)", ui.Colorize(a.Outcome), a.ExitCode),
		fmt.Sprintf("Started:    %s (%s)", a.StartedAt.Local().Format(time.DateTime), helpers.RelativeTime(a.StartedAt, now)),
		fmt.Sprintf("Took:       %s", helpers.FormatElapsed(a.FinishedAt.Sub(a.StartedAt))),
	}
	if a.Detail != "" {
		lines = append(lines, fmt.Sprintf("Detail:     %s", a.Detail))
	}
	return lines
}
