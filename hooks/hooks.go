// Package hooks locates and invokes the user-supplied hook quintet
// (commit, rollback, verify-commit, verify-rollback, set-change-id) plus the
// tree-wide get-change-id hook. It owns the existence/executable-bit
// precheck so the revision state machine never has to shell out directly.
package hooks

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Names of the six hooks, matching the filenames under user_hooks_dir.
const (
	Commit         = "commit"
	Rollback       = "rollback"
	VerifyCommit   = "verify-commit"
	VerifyRollback = "verify-rollback"
	SetChangeID    = "set-change-id"
	GetChangeID    = "get-change-id"
)

// ChangeHooks is the per-revision four-tuple whose presence (any one implies
// all) triggers the completeness rule of spec.md §3.
var ChangeHooks = []string{Commit, VerifyCommit, Rollback, VerifyRollback}

// PerRevisionHooks is the full per-revision five-tuple that must exist and be
// executable once any ChangeHooks member is present.
var PerRevisionHooks = []string{Commit, Rollback, VerifyCommit, VerifyRollback, SetChangeID}

// Runner locates hooks under dir and invokes them with the repository root
// as working directory.
type Runner struct {
	dir     string
	workDir string
}

func NewRunner(hooksDir, workDir string) *Runner {
	return &Runner{dir: hooksDir, workDir: workDir}
}

func (r *Runner) path(name string) string {
	return filepath.Join(r.dir, name)
}

// Exists reports whether name is present under user_hooks_dir, regardless of
// permissions.
func (r *Runner) Exists(name string) bool {
	_, err := os.Stat(r.path(name))
	return err == nil
}

// IsExecutable reports whether name exists and has the executable bit set.
func (r *Runner) IsExecutable(name string) bool {
	info, err := os.Stat(r.path(name))
	if err != nil {
		return false
	}
	return info.Mode().Perm()&0o111 != 0
}

// AnyChangeHookPresent reports whether any of the four change-specific hooks
// exist, the trigger for the completeness rule.
func (r *Runner) AnyChangeHookPresent() bool {
	for _, name := range ChangeHooks {
		if r.Exists(name) {
			return true
		}
	}
	return false
}

// AllPerRevisionHooksValid reports whether all five per-revision hooks exist
// and are executable.
func (r *Runner) AllPerRevisionHooksValid() bool {
	for _, name := range PerRevisionHooks {
		if !r.IsExecutable(name) {
			return false
		}
	}
	return true
}

// Run invokes name with args, forwarding stdin/stdout/stderr to the tool's
// own streams, and returns the exit status. No timeout is imposed: per
// spec.md §5, a stuck hook hangs the tool by design.
func (r *Runner) Run(ctx context.Context, name string, args ...string) (int, error) {
	cmd := exec.CommandContext(ctx, r.path(name), args...)
	cmd.Dir = r.workDir
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return runAndStatus(cmd)
}

// Capture invokes name, capturing its standard output, trimmed of trailing
// whitespace. Used only for get-change-id, whose raw output becomes the
// world id in Configuration — callers that log this value are
// responsible for redacting it first, via internal/redact; Capture must not
// alter the business value it returns.
func (r *Runner) Capture(ctx context.Context, name string) (stdout string, status int, err error) {
	cmd := exec.CommandContext(ctx, r.path(name))
	cmd.Dir = r.workDir
	cmd.Stdin = os.Stdin
	cmd.Stderr = os.Stderr
	out, runErr := cmd.Output()
	status, err = statusFromErr(runErr)
	return strings.TrimRight(string(out), " \t\r\n"), status, err
}

func runAndStatus(cmd *exec.Cmd) (int, error) {
	return statusFromErr(cmd.Run())
}

func statusFromErr(err error) (int, error) {
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	return -1, fmt.Errorf("running hook: %w", err)
}
