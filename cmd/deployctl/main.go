package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ameistad/deployctl/internal/deploy"
	"github.com/ameistad/deployctl/internal/deployctl"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	rootCmd := deployctl.NewRootCmd()
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		// Print error once, then exit with the code the rollout ended with.
		fmt.Fprintln(os.Stderr, err)
		os.Exit(deploy.ExitCodeOf(err))
	}
}
