package vcs

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/git-sync-world/git-sync-world/logging"
)

// gitRepository is a Repository backed by a real Git working tree. Graph
// queries (ancestry, merge-base, root-commit check) go through go-git
// directly. Checkout and the clean-tree check shell out to the git binary:
// go-git's Worktree.Checkout is known to delete untracked files
// (go-git/go-git#970), and go-git's status does not honor core.excludesfile,
// so neither is trustworthy for the working-tree mutations this tool
// performs against a user's real checkout.
type gitRepository struct {
	repo *git.Repository
	dir  string
}

// OpenRepository opens the Git repository containing dir (or the current
// directory's ancestry, if dir is empty), searching upward for .git the way
// plain `git` itself does.
func OpenRepository(dir string) (Repository, error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, newError("open", err)
	}
	return &gitRepository{repo: repo, dir: dir}, nil
}

func (g *gitRepository) RootDir() (string, error) {
	wt, err := g.repo.Worktree()
	if err != nil {
		return "", newError("root-dir", err)
	}
	return wt.Filesystem.Root(), nil
}

func (g *gitRepository) Resolve(ref string) (string, error) {
	hash, err := g.repo.ResolveRevision(plumbing.Revision(ref))
	if err != nil {
		if err == plumbing.ErrReferenceNotFound {
			return "", ErrNotFound
		}
		return "", newError("resolve", err)
	}
	return hash.String(), nil
}

func (g *gitRepository) HeadRevision() (string, error) {
	head, err := g.repo.Head()
	if err != nil {
		return "", newError("head-revision", err)
	}
	return head.Hash().String(), nil
}

func (g *gitRepository) SymbolicHead() (string, error) {
	head, err := g.repo.Head()
	if err != nil {
		return "", newError("symbolic-head", err)
	}
	if head.Name().IsBranch() {
		return head.Name().Short(), nil
	}
	return head.Hash().String(), nil
}

func (g *gitRepository) Checkout(ref string) error {
	ctx := context.Background()
	cmd := exec.CommandContext(ctx, "git", "checkout", ref)
	cmd.Dir = g.dir
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("checkout %s failed: %s: %w", ref, strings.TrimSpace(string(output)), err)
	}
	return nil
}

// IsClean leaves the tool's own log directory (logging.LogsDir) out of the
// check: every invocation writes a log file there before Configuration is
// derived.
func (g *gitRepository) IsClean() (bool, error) {
	ctx := context.Background()
	cmd := exec.CommandContext(ctx, "git", "status", "--porcelain", "--", ".", ":(exclude)"+logging.LogsDir)
	cmd.Dir = g.dir
	output, err := cmd.Output()
	if err != nil {
		return false, newError("is-clean", err)
	}
	return len(strings.TrimSpace(string(output))) == 0, nil
}

func (g *gitRepository) IsRootCommit() (bool, error) {
	head, err := g.repo.Head()
	if err != nil {
		return false, newError("is-root-commit", err)
	}
	commit, err := g.repo.CommitObject(head.Hash())
	if err != nil {
		return false, newError("is-root-commit", err)
	}
	return commit.NumParents() == 0, nil
}

// ancestorsNewestFirst walks the first-parent-inclusive ancestry of start in
// commit order (newest first), calling visit for each commit. visit returns
// false to prune that branch of the walk (its parents are not visited).
func (g *gitRepository) ancestorsNewestFirst(start plumbing.Hash, visit func(plumbing.Hash) bool) error {
	commit, err := g.repo.CommitObject(start)
	if err != nil {
		return err
	}
	seen := make(map[plumbing.Hash]bool)
	var walk func(c *object.Commit) error
	walk = func(c *object.Commit) error {
		if seen[c.Hash] {
			return nil
		}
		seen[c.Hash] = true
		if !visit(c.Hash) {
			return nil
		}
		return c.Parents().ForEach(func(p *object.Commit) error {
			return walk(p)
		})
	}
	return walk(commit)
}

// reachableSet returns every ancestor of from (from included), by hash.
func (g *gitRepository) reachableSet(from string) (map[string]bool, error) {
	hash := plumbing.NewHash(from)
	set := make(map[string]bool)
	err := g.ancestorsNewestFirst(hash, func(h plumbing.Hash) bool {
		set[h.String()] = true
		return true
	})
	if err != nil {
		return nil, newError("ancestry", err)
	}
	return set, nil
}

func (g *gitRepository) AncestorsExcluding(from, to string) ([]string, error) {
	exclude, err := g.reachableSet(to)
	if err != nil {
		return nil, err
	}
	var result []string
	err = g.ancestorsNewestFirst(plumbing.NewHash(from), func(h plumbing.Hash) bool {
		if exclude[h.String()] {
			return false
		}
		result = append(result, h.String())
		return true
	})
	if err != nil {
		return nil, newError("ancestors-excluding", err)
	}
	return result, nil
}

func (g *gitRepository) AncestorsExcludingReverse(from, to string) ([]string, error) {
	forward, err := g.AncestorsExcluding(from, to)
	if err != nil {
		return nil, err
	}
	reversed := make([]string, len(forward))
	for i, id := range forward {
		reversed[len(forward)-1-i] = id
	}
	return reversed, nil
}

func (g *gitRepository) FullHistoryOldestFirst(to string) ([]string, error) {
	var forward []string
	err := g.ancestorsNewestFirst(plumbing.NewHash(to), func(h plumbing.Hash) bool {
		forward = append(forward, h.String())
		return true
	})
	if err != nil {
		return nil, newError("full-history", err)
	}
	reversed := make([]string, len(forward))
	for i, id := range forward {
		reversed[len(forward)-1-i] = id
	}
	return reversed, nil
}

func (g *gitRepository) MergeBase(a, b string) (string, error) {
	commitA, err := g.repo.CommitObject(plumbing.NewHash(a))
	if err != nil {
		return "", newError("merge-base", err)
	}
	commitB, err := g.repo.CommitObject(plumbing.NewHash(b))
	if err != nil {
		return "", newError("merge-base", err)
	}
	bases, err := commitA.MergeBase(commitB)
	if err != nil {
		return "", newError("merge-base", err)
	}
	if len(bases) == 0 {
		return "", newError("merge-base", fmt.Errorf("no common ancestor between %s and %s", a, b))
	}
	return bases[0].Hash.String(), nil
}
