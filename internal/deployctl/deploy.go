package deployctl

import (
	"github.com/spf13/cobra"
)

func DeployCmd(rf *rootFlags) *cobra.Command {
	flags := &optionFlags{}

	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Deploy a release of an application",
		Long: `Deploy a release: back up the database, switch the release tag, pull the image,
run migrations in a throwaway container, recreate the services and probe the
liveness endpoint. When the probe fails the previous release is restored.

Exit codes:
  0  deployed
  1  validation or pull failed, nothing changed
  2  health check failed, previous release restored
  3  rollback failed, manual intervention required
  4  migrations failed, no container restarted`,
		Example: `  deployctl deploy --app shop --tag v1.3.0
  deployctl deploy -a shop -t v1.3.0 --skip-backup --health-retries 20`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts, err := resolveOptions(cmd, flags)
			if err != nil {
				return err
			}
			// A tag from the defaults file does not conflict with --rollback-to.
			if cmd.Flags().Changed("rollback-to") && !cmd.Flags().Changed("tag") {
				opts.Tag = ""
			}
			return runRollout(cmd.Context(), opts, rf)
		},
	}

	bindRolloutFlags(cmd, flags)
	cmd.Flags().StringVarP(&flags.opts.Tag, "tag", "t", "", "Release tag to deploy")
	cmd.Flags().StringVar(&flags.opts.RollbackTo, "rollback-to", "", "Restore this release instead of deploying a new one")

	return cmd
}
