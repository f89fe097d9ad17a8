package cli

import (
	"context"
	"os"

	"github.com/git-sync-world/git-sync-world/hooks"
	"github.com/git-sync-world/git-sync-world/paths"
	"github.com/git-sync-world/git-sync-world/vcs"
)

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// Configuration is derived freshly at every invocation, per spec.md §3. It
// is never persisted.
type Configuration struct {
	RootDir      string
	SessionDir   string
	UserHooksDir string
	WorldID      string
	LocalID      string

	Repo  vcs.Repository
	Hooks *hooks.Runner
}

// NewConfiguration derives Configuration, enforcing the fatal invariants of
// spec.md §3: the working tree must be clean, user_hooks_dir must exist, and
// get-change-id must exist, be executable, exit zero, and print either the
// empty string or a revision id other than the literal "HEAD".
func NewConfiguration(ctx context.Context) (*Configuration, error) {
	rootDir, err := paths.RepoRoot(ctx)
	if err != nil {
		return nil, configErrorf("not a git repository: %v", err)
	}

	repo, err := vcs.OpenRepository(rootDir)
	if err != nil {
		return nil, configErrorf("opening repository: %v", err)
	}

	clean, err := repo.IsClean()
	if err != nil {
		return nil, configErrorf("checking working tree state: %v", err)
	}
	if !clean {
		return nil, configErrorf("working tree is dirty; commit or stash changes before syncing")
	}

	metadataDir, err := paths.MetadataDir(ctx, rootDir)
	if err != nil {
		return nil, configErrorf("resolving metadata directory: %v", err)
	}

	userHooksDir := paths.UserHooksDir(rootDir)
	if !dirExists(userHooksDir) {
		return nil, configErrorf("hook directory %s does not exist", userHooksDir)
	}
	runner := hooks.NewRunner(userHooksDir, rootDir)

	if !runner.IsExecutable(hooks.GetChangeID) {
		return nil, configErrorf("hook %s is missing or not executable", hooks.GetChangeID)
	}

	worldID, status, err := runner.Capture(ctx, hooks.GetChangeID)
	if err != nil {
		return nil, configErrorf("running %s: %v", hooks.GetChangeID, err)
	}
	if status != 0 {
		return nil, configErrorf("%s exited with status %d", hooks.GetChangeID, status)
	}
	if worldID == "HEAD" {
		return nil, configErrorf("%s returned the reserved value \"HEAD\"", hooks.GetChangeID)
	}
	if worldID != "" {
		// Canonicalize to the full revision id: get-change-id is free to
		// print any resolvable ref form (an abbreviation, a tag, a branch
		// name), but the planner's ancestry and merge-base queries need the
		// canonical id to compare against HeadRevision and each other.
		resolved, err := repo.Resolve(worldID)
		if err != nil {
			return nil, configErrorf("%s returned %q, which does not resolve to a known revision: %v", hooks.GetChangeID, worldID, err)
		}
		worldID = resolved
	}

	localID, err := repo.HeadRevision()
	if err != nil {
		return nil, configErrorf("resolving HEAD: %v", err)
	}

	return &Configuration{
		RootDir:      rootDir,
		SessionDir:   paths.SessionDir(metadataDir),
		UserHooksDir: userHooksDir,
		WorldID:      worldID,
		LocalID:      localID,
		Repo:         repo,
		Hooks:        runner,
	}, nil
}
