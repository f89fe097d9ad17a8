// Package walk implements the per-revision state machine that drives the
// hook quintet: checkout, the no-op check, hook-completeness validation, and
// the phase-specific commit/rollback body, with the push-back-on-failure
// discipline spec.md §4.5 and §7 require.
package walk

import (
	"context"
	"fmt"

	"github.com/git-sync-world/git-sync-world/hooks"
	"github.com/git-sync-world/git-sync-world/vcs"
)

// Phase names which half of a session a revision is being walked in.
type Phase string

const (
	PhaseRollback Phase = "rollback"
	PhaseCommit   Phase = "commit"
)

func (p Phase) String() string { return string(p) }

// Action names what happened to a revision as a result of a step. Step
// produces ActionApplied and ActionReportNoop; a failing step returns a
// *Failure error instead of an Action. ActionConsumeOnly and
// ActionPushBackAndFail are declared but not produced anywhere in this
// module, and the session controller's --skip command reports without an
// Action.
type Action int

const (
	ActionApplied Action = iota
	ActionReportNoop
	ActionConsumeOnly
	ActionPushBackAndFail
)

func (a Action) String() string {
	switch a {
	case ActionApplied:
		return "Applied"
	case ActionReportNoop:
		return "ReportNoop"
	case ActionConsumeOnly:
		return "ConsumeOnly"
	case ActionPushBackAndFail:
		return "PushBackAndFail"
	default:
		return fmt.Sprintf("Action(%d)", int(a))
	}
}

// Result is the outcome of walking one revision.
type Result struct {
	Action  Action
	Message string
}

// Failure wraps a walk-error message (spec.md §7 kind 2). The revision that
// failed must be restored to the head of its queue by the caller — the
// walker never touches the session store.
type Failure struct {
	Message string
}

func (f *Failure) Error() string { return f.Message }

// Walker drives the hook quintet against repo via runner.
type Walker struct {
	Repo  vcs.Repository
	Hooks *hooks.Runner
}

func New(repo vcs.Repository, runner *hooks.Runner) *Walker {
	return &Walker{Repo: repo, Hooks: runner}
}

// Step walks revision R in the given phase, per spec.md §4.5. A non-nil
// *Failure return means R must be pushed back to the front of its queue; the
// Result is meaningless in that case. A nil error means R is fully consumed
// (applied or reported a no-op); the Result describes which.
func (w *Walker) Step(ctx context.Context, phase Phase, rev string) (Result, error) {
	// 1. Checkout.
	if err := w.Repo.Checkout(rev); err != nil {
		return Result{}, &Failure{Message: fmt.Sprintf("checkout of %s failed: %v", rev, err)}
	}

	// 2. Noop check.
	if !w.Hooks.AnyChangeHookPresent() {
		return Result{Action: ActionReportNoop, Message: fmt.Sprintf("nothing to do at %s", rev)}, nil
	}

	// 3. Hook validation.
	if !w.Hooks.AllPerRevisionHooksValid() {
		return Result{}, &Failure{Message: fmt.Sprintf(
			"incomplete or non-executable hook set at %s: all of commit, rollback, verify-commit, "+
				"verify-rollback, set-change-id must exist and be executable once any one of them does", rev)}
	}

	switch phase {
	case PhaseCommit:
		return w.stepCommit(ctx, rev)
	case PhaseRollback:
		return w.stepRollback(ctx, rev)
	default:
		return Result{}, &Failure{Message: fmt.Sprintf("unknown phase %q", phase)}
	}
}

func (w *Walker) stepCommit(ctx context.Context, rev string) (Result, error) {
	if status, err := w.Hooks.Run(ctx, hooks.Commit); err != nil || status != 0 {
		return Result{}, &Failure{Message: fmt.Sprintf(
			"commit failed at %s (exit %d); the system may be dirty", rev, status)}
	}

	if status, err := w.Hooks.Run(ctx, hooks.SetChangeID, rev); err != nil || status != 0 {
		return Result{}, &Failure{Message: fmt.Sprintf(
			"set-change-id %s failed (exit %d); the system may be dirty: commit succeeded but the "+
				"change id was not updated", rev, status)}
	}

	if status, err := w.Hooks.Run(ctx, hooks.VerifyCommit); err != nil || status != 0 {
		msg := fmt.Sprintf("verify-commit failed at %s (exit %d); the system may be dirty", rev, status)
		if worldID, _, capErr := w.Hooks.Capture(ctx, hooks.GetChangeID); capErr == nil && worldID != "" {
			msg += fmt.Sprintf("; the world currently reports change id %s — roll back to that id, not %s", worldID, rev)
		}
		return Result{}, &Failure{Message: msg}
	}

	return Result{Action: ActionApplied, Message: fmt.Sprintf("Applied commit at %s", rev)}, nil
}

func (w *Walker) stepRollback(ctx context.Context, rev string) (Result, error) {
	if status, err := w.Hooks.Run(ctx, hooks.Rollback); err != nil || status != 0 {
		return Result{}, &Failure{Message: fmt.Sprintf("rollback failed at %s (exit %d)", rev, status)}
	}

	if status, err := w.Hooks.Run(ctx, hooks.VerifyRollback); err != nil || status != 0 {
		return Result{}, &Failure{Message: fmt.Sprintf("verify-rollback failed at %s (exit %d)", rev, status)}
	}

	isRoot, err := w.Repo.IsRootCommit()
	if err != nil {
		return Result{}, &Failure{Message: fmt.Sprintf("could not determine whether %s is the root commit: %v", rev, err)}
	}

	if isRoot {
		// Rolling back the root commit returns the world to the pre-tracking
		// state: there is nothing before it to point the change id at.
		if status, err := w.Hooks.Run(ctx, hooks.SetChangeID, ""); err != nil || status != 0 {
			return Result{}, &Failure{Message: fmt.Sprintf(
				"set-change-id failed at %s (exit %d); the system may be dirty, rollback succeeded", rev, status)}
		}
		return Result{Action: ActionApplied, Message: fmt.Sprintf("Applied rollback at %s", rev)}, nil
	}

	// Checkout of HEAD^ failing is treated as success for this step: the
	// revision is considered complete and the walker moves on, trusting the
	// next iteration to observe whatever HEAD actually is. This mirrors a
	// documented edge case in spec.md §9 rather than a deliberate design —
	// it is preserved, not "fixed".
	if err := w.Repo.Checkout("HEAD^"); err == nil {
		newHead, err := w.Repo.HeadRevision()
		if err != nil {
			return Result{}, &Failure{Message: fmt.Sprintf("could not read HEAD after rollback past %s: %v", rev, err)}
		}
		if status, err := w.Hooks.Run(ctx, hooks.SetChangeID, newHead); err != nil || status != 0 {
			return Result{}, &Failure{Message: fmt.Sprintf(
				"set-change-id %s failed (exit %d) after rollback past %s", newHead, status, rev)}
		}
	}

	return Result{Action: ActionApplied, Message: fmt.Sprintf("Applied rollback at %s", rev)}, nil
}
