// Command git-sync-world synchronizes an external world with the state
// recorded at a revision of a Git source tree.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/git-sync-world/git-sync-world/cli"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	rootCmd := cli.NewRootCmd()
	err := rootCmd.ExecuteContext(ctx)

	if err != nil {
		var silent *cli.SilentError
		var usage *cli.UsageError

		switch {
		case errors.As(err, &silent):
			// Already printed via the git-sync-world: ERROR - convention.
		case errors.As(err, &usage) && usage.FlagError:
			fmt.Fprint(rootCmd.OutOrStderr(), rootCmd.UsageString())
			fmt.Fprintf(rootCmd.OutOrStderr(), "\ngit-sync-world: ERROR - %v\n", err)
			cancel()
			os.Exit(2)
		case errors.As(err, &usage):
			fmt.Fprintf(rootCmd.OutOrStderr(), "git-sync-world: ERROR - %v\n", err)
			cancel()
			os.Exit(1)
		default:
			fmt.Fprintln(rootCmd.OutOrStderr(), err)
		}

		cancel()
		os.Exit(1)
	}
	cancel()
}
