package deployctl

import (
	"os"
	"strconv"

	"github.com/ameistad/deployctl/internal/config"
	"github.com/ameistad/deployctl/internal/constants"
	"github.com/ameistad/deployctl/internal/logging"
	"github.com/spf13/cobra"
)

type rootFlags struct {
	debug   bool
	logJSON bool
}

func NewRootCmd() *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:   "deployctl",
		Short: "deployctl rolls a docker compose application forward and back",
		Long: `deployctl updates the release tag of a docker compose application, gates the
switch on database migrations, verifies the new release over HTTP and restores
the previous release when verification fails.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			config.LoadEnvFiles() // DOCKER_HOST and friends may live in .env

			if v, err := strconv.ParseBool(os.Getenv(constants.EnvVarDebug)); err == nil && v {
				flags.debug = true
			}
			logger := logging.Init(logging.Config{Debug: flags.debug, JSONOutput: flags.logJSON})
			cmd.SetContext(logging.WithLogger(cmd.Context(), logger))
		},
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	cmd.PersistentFlags().BoolVar(&flags.debug, "debug", false, "Enable debug logging, including every compose command")
	cmd.PersistentFlags().BoolVar(&flags.logJSON, "log-json", false, "Write diagnostic logs to stderr as JSON")

	cmd.AddCommand(
		DeployCmd(flags),
		RollbackCmd(flags),
		ValidateCmd(flags),
		StatusCmd(),
		HistoryCmd(),
		VersionCmd(),
		CompletionCmd(),
	)

	return cmd
}
