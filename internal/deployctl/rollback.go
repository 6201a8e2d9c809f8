package deployctl

import (
	"github.com/spf13/cobra"
)

func RollbackCmd(rf *rootFlags) *cobra.Command {
	flags := &optionFlags{}

	cmd := &cobra.Command{
		Use:   "rollback <tag>",
		Short: "Restore a previous release",
		Long: `Put an earlier release back in place without backup or migrations and verify
it with the liveness endpoint. Exits 0 when the release is healthy and 3 when
manual intervention is required.`,
		Example: "  deployctl rollback v1.2.0 --app shop",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := resolveOptions(cmd, flags)
			if err != nil {
				return err
			}
			opts.Tag = ""
			opts.RollbackTo = args[0]
			return runRollout(cmd.Context(), opts, rf)
		},
	}

	bindRolloutFlags(cmd, flags)

	return cmd
}
