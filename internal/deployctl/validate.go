package deployctl

import (
	"github.com/spf13/cobra"
)

func ValidateCmd(rf *rootFlags) *cobra.Command {
	flags := &optionFlags{}

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check that a deployment could run and print its plan",
		Long:  "Run the validation phase of a deployment, including the container engine check, and print what a real run would do. Nothing is changed.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts, err := resolveOptions(cmd, flags)
			if err != nil {
				return err
			}
			opts.DryRun = true
			return runRollout(cmd.Context(), opts, rf)
		},
	}

	bindRolloutFlags(cmd, flags)
	cmd.Flags().StringVarP(&flags.opts.Tag, "tag", "t", "", "Release tag that would be deployed")

	return cmd
}
