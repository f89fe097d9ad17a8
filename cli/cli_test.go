package cli_test

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/git-sync-world/git-sync-world/cli"
	"github.com/git-sync-world/git-sync-world/paths"
	"github.com/git-sync-world/git-sync-world/testutil"
)

// worldFixture wires the hook quintet to a plain directory on disk: commit
// touches a file named after the revision's short hash, rollback removes
// it, and the change id lives in a single text file holding the full
// (resolvable) revision id. verify-commit fails at any revision whose
// fail-<full id> file exists in worldDir, until an unblock file appears
// there; tests steer it through worldDir so the committed hooks stay
// untouched and the working tree stays clean.
func worldFixture(t *testing.T, repoDir, worldDir string) {
	t.Helper()
	testutil.WriteHook(t, repoDir, "get-change-id", fmt.Sprintf(
		`cat %q/change_id.txt 2>/dev/null; exit 0`, worldDir))
	testutil.WriteHook(t, repoDir, "set-change-id", fmt.Sprintf(
		`printf '%%s' "$1" > %q/change_id.txt`, worldDir))
	testutil.WriteHook(t, repoDir, "commit", fmt.Sprintf(
		`h=$(git rev-parse --short HEAD); touch %q/"$h.txt"`, worldDir))
	testutil.WriteHook(t, repoDir, "rollback", fmt.Sprintf(
		`h=$(git rev-parse --short HEAD); rm -f %q/"$h.txt"`, worldDir))
	testutil.WriteHook(t, repoDir, "verify-commit", fmt.Sprintf(
		`h=$(git rev-parse HEAD); if [ -f %q/"fail-$h" ] && [ ! -f %q/unblock ]; then exit 1; fi; exit 0`,
		worldDir, worldDir))
	testutil.WriteHook(t, repoDir, "verify-rollback", `exit 0`)
}

// markerFor returns the short-hash filename the commit/rollback hooks above
// use for ref, restoring the working tree to returnTo afterward.
func markerFor(t *testing.T, repoDir, returnTo, ref string) string {
	t.Helper()
	testutil.Checkout(t, repoDir, ref)
	full := testutil.CurrentHead(t, repoDir)
	testutil.Checkout(t, repoDir, returnTo)
	return full[:7] + ".txt"
}

// fullIDFor returns the full, resolvable revision id for ref, restoring the
// working tree to returnTo afterward.
func fullIDFor(t *testing.T, repoDir, returnTo, ref string) string {
	t.Helper()
	testutil.Checkout(t, repoDir, ref)
	full := testutil.CurrentHead(t, repoDir)
	testutil.Checkout(t, repoDir, returnTo)
	return full
}

func setChangeID(t *testing.T, worldDir, id string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(worldDir, "change_id.txt"), []byte(id), 0o644))
}

func readChangeID(t *testing.T, worldDir string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(worldDir, "change_id.txt"))
	require.NoError(t, err)
	return string(data)
}

// chdir switches the process into dir for the duration of the test,
// clearing the cached repository root so a later test in a different
// directory doesn't observe a stale cache entry.
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	paths.ResetCache()
	t.Cleanup(func() {
		_ = os.Chdir(prev)
		paths.ResetCache()
	})
}

func execRoot(t *testing.T, args ...string) (stdout string, err error) {
	t.Helper()
	cmd := cli.NewRootCmd()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(args)
	err = cmd.ExecuteContext(context.Background())
	return buf.String(), err
}

// linearRepo builds D<-E<-F<-G on the default branch, all reachable from
// HEAD (G) at the end.
func linearRepo(t *testing.T) (repoDir, worldDir string) {
	t.Helper()
	repoDir = t.TempDir()
	worldDir = t.TempDir()
	testutil.InitRepo(t, repoDir)
	worldFixture(t, repoDir, worldDir)

	testutil.WriteFile(t, repoDir, "d.txt", "d")
	testutil.GitAddCommit(t, repoDir, "D")
	testutil.WriteFile(t, repoDir, "e.txt", "e")
	testutil.GitAddCommit(t, repoDir, "E")
	testutil.WriteFile(t, repoDir, "f.txt", "f")
	testutil.GitAddCommit(t, repoDir, "F")
	testutil.WriteFile(t, repoDir, "g.txt", "g")
	testutil.GitAddCommit(t, repoDir, "G")
	return repoDir, worldDir
}

func currentBranch(t *testing.T, repoDir string) string {
	t.Helper()
	head, err := os.ReadFile(filepath.Join(repoDir, ".git", "HEAD"))
	require.NoError(t, err)
	return string(head)
}

func TestSync_LinearForward(t *testing.T) {
	repoDir, worldDir := linearRepo(t)
	head := testutil.CurrentHead(t, repoDir) // G, also current branch tip
	branch := "master"
	dID := fullIDFor(t, repoDir, branch, "HEAD~3")
	eMarker := markerFor(t, repoDir, branch, "HEAD~2")
	fMarker := markerFor(t, repoDir, branch, "HEAD~1")
	gMarker := head[:7] + ".txt"
	setChangeID(t, worldDir, dID)

	chdir(t, repoDir)
	out, err := execRoot(t)
	require.NoError(t, err)
	assert.Contains(t, out, "Done.")

	assert.True(t, testutil.FileExists(worldDir, eMarker))
	assert.True(t, testutil.FileExists(worldDir, fMarker))
	assert.True(t, testutil.FileExists(worldDir, gMarker))
	assert.Equal(t, head, readChangeID(t, worldDir))
	assert.Contains(t, currentBranch(t, repoDir), branch)
}

func TestSync_LinearReverse(t *testing.T) {
	repoDir, worldDir := linearRepo(t)
	branch := "master"
	gID := testutil.CurrentHead(t, repoDir)
	eMarker := markerFor(t, repoDir, branch, "HEAD~2")
	fMarker := markerFor(t, repoDir, branch, "HEAD~1")
	gMarker := gID[:7] + ".txt"
	setChangeID(t, worldDir, gID)
	for _, m := range []string{eMarker, fMarker, gMarker} {
		require.NoError(t, os.WriteFile(filepath.Join(worldDir, m), nil, 0o644))
	}

	dID := fullIDFor(t, repoDir, branch, "HEAD~3")
	testutil.Checkout(t, repoDir, "HEAD~3") // detach at D

	chdir(t, repoDir)
	out, err := execRoot(t)
	require.NoError(t, err)
	assert.Contains(t, out, "Done.")

	assert.False(t, testutil.FileExists(worldDir, eMarker))
	assert.False(t, testutil.FileExists(worldDir, fMarker))
	assert.False(t, testutil.FileExists(worldDir, gMarker))
	assert.Equal(t, dID, readChangeID(t, worldDir))
}

func TestSync_PreTrackingSentinel(t *testing.T) {
	repoDir, worldDir := linearRepo(t)
	branch := "master"
	head := testutil.CurrentHead(t, repoDir) // G
	dMarker := markerFor(t, repoDir, branch, "HEAD~3")
	eMarker := markerFor(t, repoDir, branch, "HEAD~2")
	fMarker := markerFor(t, repoDir, branch, "HEAD~1")
	gMarker := head[:7] + ".txt"
	// No change_id.txt yet: get-change-id's `cat ... 2>/dev/null; exit 0`
	// idiom must print nothing and still exit zero, the pre-tracking
	// sentinel of spec.md §4.4.

	chdir(t, repoDir)
	out, err := execRoot(t)
	require.NoError(t, err)
	assert.Contains(t, out, "Done.")

	assert.True(t, testutil.FileExists(worldDir, dMarker))
	assert.True(t, testutil.FileExists(worldDir, eMarker))
	assert.True(t, testutil.FileExists(worldDir, fMarker))
	assert.True(t, testutil.FileExists(worldDir, gMarker))
	assert.Equal(t, head, readChangeID(t, worldDir))
}

func TestSync_AlreadySynced(t *testing.T) {
	repoDir, worldDir := linearRepo(t)
	gID := testutil.CurrentHead(t, repoDir)
	setChangeID(t, worldDir, gID)

	chdir(t, repoDir)
	out, err := execRoot(t)
	require.NoError(t, err)
	assert.Contains(t, out, "Already synced.")

	_, statErr := os.Stat(filepath.Join(repoDir, ".git", "git-sync-world"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestSync_BranchCrossover(t *testing.T) {
	repoDir := t.TempDir()
	worldDir := t.TempDir()
	testutil.InitRepo(t, repoDir)
	worldFixture(t, repoDir, worldDir)

	testutil.WriteFile(t, repoDir, "d.txt", "d")
	testutil.GitAddCommit(t, repoDir, "D")
	testutil.WriteFile(t, repoDir, "e.txt", "e")
	testutil.GitAddCommit(t, repoDir, "E")
	testutil.CheckoutBranch(t, repoDir, "topic")
	testutil.WriteFile(t, repoDir, "a.txt", "a")
	testutil.GitAddCommit(t, repoDir, "A")
	testutil.WriteFile(t, repoDir, "b.txt", "b")
	testutil.GitAddCommit(t, repoDir, "B")
	testutil.WriteFile(t, repoDir, "c.txt", "c")
	testutil.GitAddCommit(t, repoDir, "C")
	testutil.Checkout(t, repoDir, "master")
	testutil.WriteFile(t, repoDir, "f.txt", "f")
	testutil.GitAddCommit(t, repoDir, "F")
	testutil.WriteFile(t, repoDir, "g.txt", "g")
	testutil.GitAddCommit(t, repoDir, "G")

	gID := testutil.CurrentHead(t, repoDir)
	fMarker := markerFor(t, repoDir, "master", "HEAD~1")
	eMarker := markerFor(t, repoDir, "master", "HEAD~2")
	gMarker := gID[:7] + ".txt"
	for _, m := range []string{gMarker, fMarker, eMarker} {
		require.NoError(t, os.WriteFile(filepath.Join(worldDir, m), nil, 0o644))
	}
	setChangeID(t, worldDir, gID)

	cID := fullIDFor(t, repoDir, "master", "topic")
	testutil.Checkout(t, repoDir, "topic")

	chdir(t, repoDir)
	out, err := execRoot(t)
	require.NoError(t, err)
	assert.Contains(t, out, "Done.")

	assert.False(t, testutil.FileExists(worldDir, gMarker))
	assert.False(t, testutil.FileExists(worldDir, fMarker))
	assert.Equal(t, cID, readChangeID(t, worldDir))
}

func TestSync_FailureMidCommitThenContinue(t *testing.T) {
	repoDir, worldDir := linearRepo(t)
	branch := "master"
	dID := fullIDFor(t, repoDir, branch, "HEAD~3")
	fID := fullIDFor(t, repoDir, branch, "HEAD~1")
	fMarker := fID[:7] + ".txt"
	setChangeID(t, worldDir, dID)

	require.NoError(t, os.WriteFile(filepath.Join(worldDir, "fail-"+fID), nil, 0o644))

	chdir(t, repoDir)
	_, err := execRoot(t)
	require.Error(t, err)

	sessionDir := filepath.Join(repoDir, ".git", "git-sync-world")
	rollbackData, rerr := os.ReadFile(filepath.Join(sessionDir, "rollback"))
	assert.True(t, os.IsNotExist(rerr) || len(rollbackData) == 0)

	commitData, cerr := os.ReadFile(filepath.Join(sessionDir, "commit"))
	require.NoError(t, cerr)
	assert.Contains(t, string(commitData), fID)

	require.NoError(t, os.WriteFile(filepath.Join(worldDir, "unblock"), nil, 0o644))
	out, err := execRoot(t, "--continue")
	require.NoError(t, err)
	assert.Contains(t, out, "Done.")

	gID := testutil.CurrentHead(t, repoDir)
	assert.True(t, testutil.FileExists(worldDir, fMarker))
	assert.Equal(t, gID, readChangeID(t, worldDir))
}

func TestSync_FailureThenSkip(t *testing.T) {
	repoDir, worldDir := linearRepo(t)
	branch := "master"
	dID := fullIDFor(t, repoDir, branch, "HEAD~3")
	fID := fullIDFor(t, repoDir, branch, "HEAD~1")
	fMarker := fID[:7] + ".txt"
	gID := testutil.CurrentHead(t, repoDir)
	gMarker := gID[:7] + ".txt"
	setChangeID(t, worldDir, dID)

	require.NoError(t, os.WriteFile(filepath.Join(worldDir, "fail-"+fID), nil, 0o644))

	chdir(t, repoDir)
	_, err := execRoot(t)
	require.Error(t, err)

	out, err := execRoot(t, "--skip")
	require.NoError(t, err)
	assert.Contains(t, out, "Done.")

	assert.False(t, testutil.FileExists(worldDir, fMarker))
	assert.True(t, testutil.FileExists(worldDir, gMarker))
	assert.Equal(t, gID, readChangeID(t, worldDir))
}

func TestSync_FailureThenAbort(t *testing.T) {
	repoDir, worldDir := linearRepo(t)
	branch := "master"
	dID := fullIDFor(t, repoDir, branch, "HEAD~3")
	fID := fullIDFor(t, repoDir, branch, "HEAD~1")
	setChangeID(t, worldDir, dID)

	require.NoError(t, os.WriteFile(filepath.Join(worldDir, "fail-"+fID), nil, 0o644))

	chdir(t, repoDir)
	_, err := execRoot(t)
	require.Error(t, err)

	out, err := execRoot(t, "--abort")
	require.NoError(t, err)
	assert.Contains(t, out, "Done.")

	_, statErr := os.Stat(filepath.Join(repoDir, ".git", "git-sync-world"))
	assert.True(t, os.IsNotExist(statErr))
	assert.Contains(t, currentBranch(t, repoDir), branch)
}

func TestConflictingFlags_IsUsageErrorExitingTwo(t *testing.T) {
	repoDir, _ := linearRepo(t)
	chdir(t, repoDir)
	_, err := execRoot(t, "--status", "--abort")
	require.Error(t, err)
	var usageErr *cli.UsageError
	require.ErrorAs(t, err, &usageErr)
	assert.True(t, usageErr.FlagError)
}

func TestConfiguration_HeadSentinelIsConfigError(t *testing.T) {
	repoDir := t.TempDir()
	testutil.InitRepo(t, repoDir)
	testutil.WriteFile(t, repoDir, "a.txt", "a")
	testutil.GitAddCommit(t, repoDir, "A")
	testutil.WriteHook(t, repoDir, "get-change-id", `echo -n HEAD`)
	testutil.WriteHook(t, repoDir, "set-change-id", `exit 0`)
	testutil.WriteHook(t, repoDir, "commit", `exit 0`)
	testutil.WriteHook(t, repoDir, "rollback", `exit 0`)
	testutil.WriteHook(t, repoDir, "verify-commit", `exit 0`)
	testutil.WriteHook(t, repoDir, "verify-rollback", `exit 0`)
	testutil.GitAddCommit(t, repoDir, "hooks")

	chdir(t, repoDir)
	_, err := execRoot(t, "--status")
	require.Error(t, err)
	var cfgErr *cli.ConfigError
	require.ErrorAs(t, err, &cfgErr)
}
