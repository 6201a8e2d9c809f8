package deployctl

import (
	"fmt"

	"github.com/ameistad/deployctl/internal/constants"
	"github.com/spf13/cobra"
)

func VersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print the current version of deployctl",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "deployctl %s\n", constants.Version)
		},
	}

	return cmd
}
