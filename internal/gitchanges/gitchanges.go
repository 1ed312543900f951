// Package gitchanges lists files with uncommitted changes in a git working
// tree.
package gitchanges

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/go-git/go-git/v5"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/ctxpack/internal/bundle"
	"github.com/fyrsmithlabs/ctxpack/internal/fsys"
)

// Repo is a bundle.ChangeSource backed by go-git.
type Repo struct {
	logger *zap.Logger
}

// New creates a Repo. A nil logger discards output.
func New(logger *zap.Logger) *Repo {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Repo{logger: logger}
}

var _ bundle.ChangeSource = (*Repo)(nil)

// Changed returns the absolute paths of staged, modified and untracked
// files under projectRoot, sorted. Deleted files are left out. A project
// that is not inside a git repository has no changes.
func (r *Repo) Changed(ctx context.Context, projectRoot string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	repo, err := git.PlainOpenWithOptions(projectRoot, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			r.logger.Debug("not a git repository", zap.String("project_root", projectRoot))
			return nil, nil
		}
		return nil, fmt.Errorf("opening repository: %w", err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		if errors.Is(err, git.ErrIsBareRepository) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening worktree: %w", err)
	}
	status, err := wt.Status()
	if err != nil {
		return nil, fmt.Errorf("reading status: %w", err)
	}

	wtRoot := wt.Filesystem.Root()
	root := filepath.Clean(projectRoot)
	var changed []string
	for rel, st := range status {
		if st.Staging == git.Deleted || st.Worktree == git.Deleted {
			continue
		}
		if st.Staging == git.Unmodified && st.Worktree == git.Unmodified {
			continue
		}
		// In a monorepo only the project's own subtree counts.
		abs := filepath.Join(wtRoot, filepath.FromSlash(rel))
		if fsys.Within(abs, root) {
			changed = append(changed, abs)
		}
	}
	sort.Strings(changed)

	r.logger.Debug("git changes",
		zap.String("worktree", wtRoot),
		zap.Int("changed", len(changed)))
	return changed, nil
}

// Branch returns the checked-out branch name, or "" for a detached HEAD or
// a directory outside any repository.
func Branch(projectRoot string) string {
	repo, err := git.PlainOpenWithOptions(projectRoot, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return ""
	}
	head, err := repo.Head()
	if err != nil || !head.Name().IsBranch() {
		return ""
	}
	return head.Name().Short()
}
