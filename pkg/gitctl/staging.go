package gitctl

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
)

// maxLocalCommitWalk caps how far ListLocalCommits walks from HEAD before
// concluding the repository is in an unexpected state.
const maxLocalCommitWalk = 100

// ListChangedFiles returns the work-dir-relative paths under the given
// pathspecs where the working tree differs from HEAD, including untracked
// files. A pathspec of "." matches everything. Paths that resolve outside
// the repository root are silently excluded.
func (c *Controller) ListChangedFiles(pathspecs []string) ([]string, error) {
	if len(pathspecs) == 0 {
		pathspecs = []string{"."}
	}

	r, err := c.repo()
	if err != nil {
		return nil, err
	}
	w, err := r.Worktree()
	if err != nil {
		return nil, fmt.Errorf("list changed files: %w", err)
	}
	status, err := w.Status()
	if err != nil {
		return nil, fmt.Errorf("list changed files: %w", err)
	}

	var out []string
	for p, st := range status {
		if st.Staging == git.Unmodified && st.Worktree == git.Unmodified {
			continue
		}
		if !c.insideWorkDir(p) {
			continue
		}
		if !matchesAnySpec(p, pathspecs) {
			continue
		}
		out = append(out, p)
	}
	sort.Strings(out)
	return out, nil
}

// insideWorkDir reports whether the slash-relative path stays within the
// repository root once resolved. Guards against "..".
func (c *Controller) insideWorkDir(rel string) bool {
	abs := filepath.Join(c.workDir, filepath.FromSlash(rel))
	resolved, err := filepath.Rel(c.workDir, abs)
	if err != nil {
		return false
	}
	return resolved != ".." && !strings.HasPrefix(resolved, ".."+string(filepath.Separator))
}

func matchesAnySpec(p string, specs []string) bool {
	for _, spec := range specs {
		spec = strings.TrimSuffix(filepath.ToSlash(spec), "/")
		if spec == "." || spec == "" {
			return true
		}
		if p == spec || strings.HasPrefix(p, spec+"/") {
			return true
		}
	}
	return false
}

// Stage adds the given paths to the index. Low-level primitive: callers are
// expected to hold the staging lock via StageAndCommit.
func (c *Controller) Stage(paths []string) error {
	r, err := c.repo()
	if err != nil {
		return err
	}
	w, err := r.Worktree()
	if err != nil {
		return fmt.Errorf("stage: %w", err)
	}
	for _, p := range paths {
		if err := w.AddWithOptions(&git.AddOptions{Path: p}); err != nil {
			return fmt.Errorf("stage %q: %w", p, err)
		}
	}
	return nil
}

// Commit records the current index as a commit. Fails with
// ErrMissingIdentity when no author identity is configured.
func (c *Controller) Commit(message string) (string, error) {
	name, email := c.identity()
	if name == "" || email == "" {
		return "", ErrMissingIdentity
	}

	r, err := c.repo()
	if err != nil {
		return "", err
	}
	w, err := r.Worktree()
	if err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	h, err := w.Commit(message, &git.CommitOptions{
		Author: &object.Signature{Name: name, Email: email, When: time.Now()},
	})
	if err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	return h.String(), nil
}

// StageAndCommit is the atomic write path: under the staging lock it
// computes the changed subset of paths, and when there is anything to
// record it unstages everything, stages exactly the changed paths, and
// commits with message. Returns the number of files that had pending
// changes; zero means no commit was made.
func (c *Controller) StageAndCommit(ctx context.Context, paths []string, message string) (int, error) {
	if err := c.lock.acquire(ctx); err != nil {
		return 0, err
	}
	defer c.lock.release()

	changed, err := c.ListChangedFiles(paths)
	if err != nil {
		return 0, err
	}
	if len(changed) == 0 {
		return 0, nil
	}

	// Drop anything already staged so the commit contains exactly the
	// intended paths.
	if err := c.unstageAll(); err != nil {
		return 0, err
	}
	if err := c.Stage(changed); err != nil {
		return 0, err
	}
	if _, err := c.Commit(message); err != nil {
		return 0, err
	}
	return len(changed), nil
}

// unstageAll resets the index to HEAD without touching the working tree.
func (c *Controller) unstageAll() error {
	r, err := c.repo()
	if err != nil {
		return err
	}
	w, err := r.Worktree()
	if err != nil {
		return fmt.Errorf("unstage: %w", err)
	}
	if err := w.Reset(&git.ResetOptions{Mode: git.MixedReset}); err != nil {
		return fmt.Errorf("unstage: %w", err)
	}
	return nil
}

// ResetFiles force-checkouts the given paths from HEAD, discarding local
// changes: tracked files are restored to their committed content, files
// unknown to HEAD are deleted. With no paths, every changed file is reset.
func (c *Controller) ResetFiles(ctx context.Context, paths ...string) error {
	if err := c.lock.acquire(ctx); err != nil {
		return err
	}
	defer c.lock.release()

	if len(paths) == 0 {
		var err error
		paths, err = c.ListChangedFiles(nil)
		if err != nil {
			return err
		}
		if len(paths) == 0 {
			return nil
		}
	}
	return c.resetFilesLocked(paths)
}

func (c *Controller) resetFilesLocked(paths []string) error {
	r, err := c.repo()
	if err != nil {
		return err
	}
	head, err := r.Head()
	if err != nil {
		return fmt.Errorf("reset files: %w", err)
	}
	commit, err := r.CommitObject(head.Hash())
	if err != nil {
		return fmt.Errorf("reset files: %w", err)
	}

	for _, p := range paths {
		if !c.insideWorkDir(p) {
			return fmt.Errorf("reset files: path %q escapes repository root", p)
		}
		abs := filepath.Join(c.workDir, filepath.FromSlash(p))

		f, err := commit.File(p)
		if errors.Is(err, object.ErrFileNotFound) {
			// Not in HEAD: the change being discarded is the file's
			// existence.
			if err := os.Remove(abs); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("reset files: remove %q: %w", p, err)
			}
			continue
		}
		if err != nil {
			return fmt.Errorf("reset files: %q: %w", p, err)
		}

		contents, err := f.Contents()
		if err != nil {
			return fmt.Errorf("reset files: %q: %w", p, err)
		}
		perm := os.FileMode(0o644)
		if f.Mode == filemode.Executable {
			perm = 0o755
		}
		if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
			return fmt.Errorf("reset files: %q: %w", p, err)
		}
		if err := os.WriteFile(abs, []byte(contents), perm); err != nil {
			return fmt.Errorf("reset files: restore %q: %w", p, err)
		}
	}

	// Index entries for the reset paths must match HEAD again. Between
	// operations nothing stays staged, so a full unstage is equivalent.
	return c.unstageAll()
}

// LocalCommit describes a commit present locally but not on origin.
type LocalCommit struct {
	Hash    string
	Message string
	Author  string
	Time    time.Time
}

// ListLocalCommits walks from HEAD (newest first, capped at 100 commits)
// and returns the commits not yet reachable from origin's branch head. The
// walk stops at the first commit that is an ancestor of the remote head;
// hitting the cap without finding one is an error, signalling a repository
// in an unexpected state.
func (c *Controller) ListLocalCommits(ctx context.Context) ([]LocalCommit, error) {
	if err := c.lock.acquire(ctx); err != nil {
		return nil, err
	}
	defer c.lock.release()

	r, err := c.repo()
	if err != nil {
		return nil, err
	}
	head, err := r.Head()
	if err != nil {
		return nil, fmt.Errorf("list local commits: %w", err)
	}
	remoteRef, err := r.Reference(plumbing.NewRemoteReferenceName(OriginRemote, c.branch), true)
	if err != nil {
		return nil, fmt.Errorf("list local commits: remote head %s/%s: %w", OriginRemote, c.branch, err)
	}
	remoteCommit, err := r.CommitObject(remoteRef.Hash())
	if err != nil {
		return nil, fmt.Errorf("list local commits: %w", err)
	}

	iter, err := r.Log(&git.LogOptions{From: head.Hash()})
	if err != nil {
		return nil, fmt.Errorf("list local commits: %w", err)
	}
	defer iter.Close()

	var out []LocalCommit
	walked := 0
	foundAncestor := false
	err = iter.ForEach(func(commit *object.Commit) error {
		walked++
		if walked > maxLocalCommitWalk {
			return storer.ErrStop
		}
		reachable, err := commit.IsAncestor(remoteCommit)
		if err != nil {
			return err
		}
		if reachable {
			foundAncestor = true
			return storer.ErrStop
		}
		out = append(out, LocalCommit{
			Hash:    commit.Hash.String(),
			Message: commit.Message,
			Author:  commit.Author.Name,
			Time:    commit.Author.When,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list local commits: %w", err)
	}
	if !foundAncestor {
		return nil, fmt.Errorf("list local commits: no commit within %d of HEAD is on %s/%s", maxLocalCommitWalk, OriginRemote, c.branch)
	}
	return out, nil
}
