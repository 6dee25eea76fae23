package git

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/crmarques/orgsync/faults"
	"github.com/crmarques/orgsync/state"
)

var _ state.Committer = (*StateCommitter)(nil)

const (
	defaultAuthorName  = "orgsync"
	defaultAuthorEmail = "orgsync@local"
)

// StateCommitter records snapshots of the state directory in a local git
// repository, initializing it on first use.
type StateCommitter struct {
	baseDir string
	now     func() time.Time
}

func NewStateCommitter(baseDir string) *StateCommitter {
	return &StateCommitter{baseDir: filepath.Clean(baseDir), now: time.Now}
}

// Commit stages every change under the state directory and commits it.
// It returns false when the worktree is already clean.
func (c *StateCommitter) Commit(ctx context.Context, message string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	repo, err := c.openRepository()
	if err != nil {
		return false, err
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return false, internalError("failed to open git worktree", err)
	}

	status, err := worktree.Status()
	if err != nil {
		return false, internalError("failed to inspect git worktree status", err)
	}
	if status.IsClean() {
		return false, nil
	}

	if err := worktree.AddGlob("."); err != nil {
		return false, internalError("failed to stage state changes", err)
	}

	commitMessage := strings.TrimSpace(message)
	if commitMessage == "" {
		commitMessage = "orgsync: update resource state"
	}

	if _, err := worktree.Commit(commitMessage, &gogit.CommitOptions{
		Author: &object.Signature{
			Name:  defaultAuthorName,
			Email: defaultAuthorEmail,
			When:  c.now(),
		},
	}); err != nil {
		return false, internalError("failed to commit state changes", err)
	}

	return true, nil
}

func (c *StateCommitter) openRepository() (*gogit.Repository, error) {
	repo, err := gogit.PlainOpen(c.baseDir)
	if err == nil {
		return repo, nil
	}
	if !errors.Is(err, gogit.ErrRepositoryNotExists) {
		return nil, internalError("failed to open git repository", err)
	}

	if err := os.MkdirAll(c.baseDir, 0o755); err != nil {
		return nil, internalError("failed to create state directory", err)
	}
	repo, err = gogit.PlainInit(c.baseDir, false)
	if err != nil {
		return nil, internalError("failed to initialize git repository", err)
	}
	return repo, nil
}

func internalError(message string, cause error) error {
	return faults.NewTypedError(faults.InternalError, message, cause)
}
