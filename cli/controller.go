package cli

import (
	"context"
	"errors"
	"io"

	"github.com/git-sync-world/git-sync-world/internal/redact"
	"github.com/git-sync-world/git-sync-world/logging"
	"github.com/git-sync-world/git-sync-world/plan"
	"github.com/git-sync-world/git-sync-world/store"
	"github.com/git-sync-world/git-sync-world/walk"
)

// Outcome summarizes how a command ended, for telemetry and nothing else.
type Outcome struct {
	Result        string // "ok", "walk-error", "config-error", "usage-error"
	RollbackCount int
	CommitCount   int
}

// Status prints World ID / Git ID and session state, per spec.md §4.6. It
// never mutates state.
func Status(ctx context.Context, w io.Writer, cfg *Configuration) (Outcome, error) {
	printLine(w, "World ID: %s", displayID(cfg.WorldID))
	printLine(w, "Git ID: %s", cfg.LocalID)

	st := store.New(cfg.SessionDir)
	exists, err := st.Exists()
	if err != nil {
		return Outcome{Result: "config-error"}, configErrorf("checking session state: %v", err)
	}

	switch {
	case exists:
		printLine(w, "A sync session is in progress. Use --continue, --skip, or --abort.")
	case cfg.WorldID == cfg.LocalID:
		printLine(w, "Already synced.")
	default:
		printLine(w, "A sync is pending. Run with no flags to start it.")
	}

	return Outcome{Result: "ok"}, nil
}

// Sync starts a new session, per spec.md §4.6. It refuses if the world is
// already synced, or if a session is already in progress.
func Sync(ctx context.Context, w io.Writer, cfg *Configuration) (Outcome, error) {
	st := store.New(cfg.SessionDir)

	exists, err := st.Exists()
	if err != nil {
		return Outcome{Result: "config-error"}, configErrorf("checking session state: %v", err)
	}
	if exists {
		return Outcome{Result: "usage-error"}, usageErrorf("a sync session is already in progress; use --continue, --skip, or --abort")
	}

	if cfg.WorldID == cfg.LocalID {
		printLine(w, "Already synced.")
		return Outcome{Result: "ok"}, nil
	}

	lists, err := plan.Compute(cfg.Repo, cfg.WorldID, cfg.LocalID)
	if err != nil {
		return Outcome{Result: "config-error"}, configErrorf("computing sync plan: %v", err)
	}
	if lists.AlreadySynced() {
		printLine(w, "Already synced.")
		return Outcome{Result: "ok"}, nil
	}

	sym, err := cfg.Repo.SymbolicHead()
	if err != nil {
		return Outcome{Result: "config-error"}, configErrorf("resolving symbolic head: %v", err)
	}

	if err := st.Begin(); err != nil {
		return Outcome{Result: "config-error"}, configErrorf("starting session: %v", err)
	}
	if err := st.SaveOriginalHead(sym); err != nil {
		return Outcome{Result: "config-error"}, configErrorf("saving original head: %v", err)
	}
	if err := st.WriteQueue(store.Rollback, lists.Rollback); err != nil {
		return Outcome{Result: "config-error"}, configErrorf("writing rollback queue: %v", err)
	}
	if err := st.WriteQueue(store.Commit, lists.Commit); err != nil {
		return Outcome{Result: "config-error"}, configErrorf("writing commit queue: %v", err)
	}

	logging.Info("sync session started",
		"world_id", redact.String(cfg.WorldID),
		"local_id", redact.String(cfg.LocalID),
		"rollback_count", len(lists.Rollback),
		"commit_count", len(lists.Commit),
	)

	return drain(ctx, w, cfg, st, len(lists.Rollback), len(lists.Commit))
}

// Continue resumes an in-progress session.
func Continue(ctx context.Context, w io.Writer, cfg *Configuration) (Outcome, error) {
	st := store.New(cfg.SessionDir)
	if err := requireSession(st); err != nil {
		return Outcome{Result: "usage-error"}, err
	}
	return drain(ctx, w, cfg, st, -1, -1)
}

// Skip discards the revision at the front of the current queue without
// checking it out, per spec.md §4.6.
func Skip(ctx context.Context, w io.Writer, cfg *Configuration) (Outcome, error) {
	st := store.New(cfg.SessionDir)
	if err := requireSession(st); err != nil {
		return Outcome{Result: "usage-error"}, err
	}

	kind := store.Rollback
	rev, ok, err := st.PopFront(kind)
	if err != nil {
		return Outcome{Result: "config-error"}, configErrorf("popping rollback queue: %v", err)
	}
	if !ok {
		kind = store.Commit
		rev, ok, err = st.PopFront(kind)
		if err != nil {
			return Outcome{Result: "config-error"}, configErrorf("popping commit queue: %v", err)
		}
	}
	if ok {
		printLine(w, "Skipped %s at %s", kind, rev)
		logging.Info("revision skipped", "phase", string(kind), "revision", redact.String(rev))
	}

	return drain(ctx, w, cfg, st, -1, -1)
}

// Abort ends the session immediately without applying anything more, per
// spec.md §4.6.
func Abort(ctx context.Context, w io.Writer, cfg *Configuration) (Outcome, error) {
	st := store.New(cfg.SessionDir)
	if err := requireSession(st); err != nil {
		return Outcome{Result: "usage-error"}, err
	}
	logging.Info("sync session aborted")
	if err := finish(w, cfg, st); err != nil {
		return Outcome{Result: "config-error"}, err
	}
	return Outcome{Result: "ok"}, nil
}

func requireSession(st *store.Store) error {
	exists, err := st.Exists()
	if err != nil {
		return configErrorf("checking session state: %v", err)
	}
	if !exists {
		return usageErrorf("no sync session is in progress")
	}
	return nil
}

// drain walks the rollback queue, then the commit queue, to exhaustion or
// the first failure, per spec.md §4.6. rollbackTotal/commitTotal are used
// only for telemetry counts; -1 means "unknown, this is a resume" and the
// caller's Outcome counts are left at zero.
func drain(ctx context.Context, w io.Writer, cfg *Configuration, st *store.Store, rollbackTotal, commitTotal int) (Outcome, error) {
	walker := walk.New(cfg.Repo, cfg.Hooks)
	if rollbackTotal < 0 {
		rollbackTotal = 0
	}
	if commitTotal < 0 {
		commitTotal = 0
	}

	for {
		rev, ok, err := st.PopFront(store.Rollback)
		if err != nil {
			return Outcome{Result: "config-error"}, configErrorf("popping rollback queue: %v", err)
		}
		if ok {
			if err := stepAndReport(ctx, w, st, walker, store.Rollback, walk.PhaseRollback, rev); err != nil {
				return Outcome{Result: "walk-error", RollbackCount: rollbackTotal, CommitCount: commitTotal}, err
			}
			continue
		}

		rev, ok, err = st.PopFront(store.Commit)
		if err != nil {
			return Outcome{Result: "config-error"}, configErrorf("popping commit queue: %v", err)
		}
		if ok {
			if err := stepAndReport(ctx, w, st, walker, store.Commit, walk.PhaseCommit, rev); err != nil {
				return Outcome{Result: "walk-error", RollbackCount: rollbackTotal, CommitCount: commitTotal}, err
			}
			continue
		}

		break
	}

	if err := finish(w, cfg, st); err != nil {
		return Outcome{Result: "config-error"}, err
	}
	return Outcome{Result: "ok", RollbackCount: rollbackTotal, CommitCount: commitTotal}, nil
}

func stepAndReport(ctx context.Context, w io.Writer, st *store.Store, walker *walk.Walker, kind store.Kind, phase walk.Phase, rev string) error {
	result, err := walker.Step(ctx, phase, rev)
	if err != nil {
		var failure *walk.Failure
		if errors.As(err, &failure) {
			if pushErr := st.PushFront(kind, rev); pushErr != nil {
				printError(w, "%s (additionally, failed to restore queue state: %v)", failure.Message, pushErr)
				return &WalkError{Message: failure.Message}
			}
			printError(w, "%s", failure.Message)
			logging.Error("walk step failed", "phase", string(phase), "revision", redact.String(rev), "detail", redact.String(failure.Message))
			return &WalkError{Message: failure.Message}
		}
		return err
	}

	printLine(w, "%s", result.Message)
	logging.Info("walk step completed", "phase", string(phase), "revision", redact.String(rev), "action", result.Action.String())
	return nil
}

// finish checks out the original symbolic head and removes session state,
// per spec.md §4.6. If the checkout fails, the session directory is left
// intact so the operator can retry.
func finish(w io.Writer, cfg *Configuration, st *store.Store) error {
	sym, err := st.LoadOriginalHead()
	if err != nil {
		return configErrorf("loading original head: %v", err)
	}
	if err := cfg.Repo.Checkout(sym); err != nil {
		return configErrorf("restoring original head %s: %v; the session directory was left intact", sym, err)
	}
	if err := st.Destroy(); err != nil {
		return configErrorf("removing session state: %v", err)
	}
	printLine(w, "Done.")
	return nil
}

func displayID(id string) string {
	if id == "" {
		return "(pre-tracking)"
	}
	return id
}
