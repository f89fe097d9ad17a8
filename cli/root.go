package cli

import (
	"context"
	"io"
	"time"

	"github.com/git-sync-world/git-sync-world/logging"
	"github.com/git-sync-world/git-sync-world/paths"
	"github.com/git-sync-world/git-sync-world/settings"
	"github.com/git-sync-world/git-sync-world/telemetry"
	"github.com/git-sync-world/git-sync-world/versioncheck"
	"github.com/spf13/cobra"
)

// NewRootCmd builds the single, subcommand-free root command: behavior is
// selected by at most one of --status/--continue/--skip/--abort, per
// spec.md §6.
func NewRootCmd() *cobra.Command {
	var statusFlag, continueFlag, skipFlag, abortFlag, versionFlag bool

	cmd := &cobra.Command{
		Use:   "git-sync-world",
		Short: "Synchronize an external world with a version-controlled source tree",
		// main.go handles error printing to avoid duplication.
		SilenceErrors: true,
		SilenceUsage:  true,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			if versionFlag {
				return nil
			}
			set := 0
			for _, f := range []bool{statusFlag, continueFlag, skipFlag, abortFlag} {
				if f {
					set++
				}
			}
			if set > 1 {
				cmd.SilenceUsage = false
				return flagUsageErrorf("at most one of --status, --continue, --skip, --abort may be given")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			if versionFlag {
				versioncheck.PrintVersion(cmd.OutOrStdout())
				return nil
			}
			return run(cmd, statusFlag, continueFlag, skipFlag, abortFlag)
		},
	}

	cmd.Flags().BoolVar(&statusFlag, "status", false, "print status and exit")
	cmd.Flags().BoolVar(&continueFlag, "continue", false, "resume a mid-session sync")
	cmd.Flags().BoolVar(&skipFlag, "skip", false, "drop the current front revision and resume")
	cmd.Flags().BoolVar(&abortFlag, "abort", false, "end the session without further hook execution")
	cmd.Flags().BoolVar(&versionFlag, "version", false, "print version information and exit")
	cmd.Flags().BoolP("help", "?", false, "print usage")

	return cmd
}

func run(cmd *cobra.Command, statusFlag, continueFlag, skipFlag, abortFlag bool) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	w := cmd.OutOrStdout()

	rootDir, err := paths.RepoRoot(ctx)
	if err != nil {
		rootDir = "."
	}
	loaded, _ := settings.Load(rootDir)
	_ = logging.Init(rootDir, time.Now().Format("20060102T150405.000000000"), func() string {
		if loaded != nil {
			return loaded.LogLevel
		}
		return ""
	})
	defer logging.Close()

	var telemetryEnabled *bool
	if loaded != nil {
		telemetryEnabled = loaded.Telemetry
	}
	telemetryClient := telemetry.NewClient(versioncheck.Version, telemetryEnabled)
	defer telemetryClient.Close()

	name, outcome, err := dispatch(ctx, w, statusFlag, continueFlag, skipFlag, abortFlag)
	telemetryClient.TrackCommand(telemetry.Event{
		Command:       name,
		Outcome:       outcome.Result,
		RollbackCount: outcome.RollbackCount,
		CommitCount:   outcome.CommitCount,
	})

	if err != nil {
		if _, ok := err.(*UsageError); ok {
			return err
		}
		printError(w, "%s", err.Error())
		return NewSilentError(err)
	}
	return nil
}

// dispatch builds Configuration once (status needs it even with no session;
// every other command needs it to open the repository and hooks) and routes
// to the matching session-controller function.
func dispatch(ctx context.Context, w io.Writer, statusFlag, continueFlag, skipFlag, abortFlag bool) (string, Outcome, error) {
	cfg, err := NewConfiguration(ctx)
	if err != nil {
		return commandName(statusFlag, continueFlag, skipFlag, abortFlag), Outcome{Result: "config-error"}, err
	}

	switch {
	case statusFlag:
		outcome, err := Status(ctx, w, cfg)
		return "status", outcome, err
	case continueFlag:
		outcome, err := Continue(ctx, w, cfg)
		return "continue", outcome, err
	case skipFlag:
		outcome, err := Skip(ctx, w, cfg)
		return "skip", outcome, err
	case abortFlag:
		outcome, err := Abort(ctx, w, cfg)
		return "abort", outcome, err
	default:
		outcome, err := Sync(ctx, w, cfg)
		return "sync", outcome, err
	}
}

func commandName(statusFlag, continueFlag, skipFlag, abortFlag bool) string {
	switch {
	case statusFlag:
		return "status"
	case continueFlag:
		return "continue"
	case skipFlag:
		return "skip"
	case abortFlag:
		return "abort"
	default:
		return "sync"
	}
}
