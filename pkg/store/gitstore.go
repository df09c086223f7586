package store

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/golang/glog"

	"github.com/odvcencio/shelf/pkg/backend"
	"github.com/odvcencio/shelf/pkg/gitctl"
)

// GitStore is a versioned object store for one content type: a filesystem
// backend for the bytes, a git controller for history. Constructed once per
// content type; the backend's base directory must live strictly inside the
// controller's working directory so every file the backend touches is
// something git can track.
type GitStore[T Indexable] struct {
	backend backend.Backend[T]
	ctl     *gitctl.Controller
	label   string
	baseRel string

	mu    sync.Mutex
	index Index[T] // lazily built; refreshed by GetIndex, patched on writes
}

// NewGitStore validates the backend/controller pairing and returns the
// store. label names the content type in generated commit messages
// ("create <label> <id>").
func NewGitStore[T Indexable](b backend.Backend[T], ctl *gitctl.Controller, label string) (*GitStore[T], error) {
	if label == "" {
		return nil, fmt.Errorf("git store: label is required")
	}
	rel, err := filepath.Rel(ctl.WorkDir(), b.BaseDir())
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return nil, fmt.Errorf("git store: backend base %q is not inside git work dir %q", b.BaseDir(), ctl.WorkDir())
	}
	return &GitStore[T]{
		backend: b,
		ctl:     ctl,
		label:   label,
		baseRel: filepath.ToSlash(rel),
	}, nil
}

// Read loads the object stored under id.
func (s *GitStore[T]) Read(id string) (T, error) {
	return s.backend.Read(id)
}

// GetIndex rebuilds the id→object index from disk and caches it. The cache
// is only guaranteed fresh as of this call; a concurrent pull can change
// the tree underneath it.
func (s *GitStore[T]) GetIndex() (Index[T], error) {
	objs, err := s.backend.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("get index: %w", err)
	}
	ix := make(Index[T], len(objs))
	for _, obj := range objs {
		ix[obj.ObjectID()] = obj
	}

	s.mu.Lock()
	s.index = ix
	s.mu.Unlock()

	// Hand out a copy so callers cannot mutate the cache.
	out := make(Index[T], len(ix))
	for k, v := range ix {
		out[k] = v
	}
	return out, nil
}

// Create stores a new object. Fails with IDTakenError when an object with
// the same id already exists: ids are unique and create never overwrites.
// When commit is true the write is recorded with message, or with a
// generated "create <label> <id>" when message is empty.
func (s *GitStore[T]) Create(ctx context.Context, obj T, commit bool, message string) error {
	id := obj.ObjectID()
	exists, err := s.backend.Exists(id)
	if err != nil {
		return fmt.Errorf("create %q: %w", id, err)
	}
	if exists {
		return &IDTakenError{ID: id}
	}

	paths, err := s.backend.Write(id, &obj)
	if err != nil {
		return fmt.Errorf("create %q: %w", id, err)
	}
	s.patchIndex(id, &obj)

	if commit {
		return s.autoCommit(ctx, "create", id, paths, message)
	}
	return nil
}

// Update replaces the object stored under id. The new object must carry the
// same id: object identity is immutable once created, renames are
// unsupported.
func (s *GitStore[T]) Update(ctx context.Context, id string, obj T, commit bool, message string) error {
	if obj.ObjectID() != id {
		return fmt.Errorf("update %q: updating object ids is not supported (got %q)", id, obj.ObjectID())
	}

	paths, err := s.backend.Write(id, &obj)
	if err != nil {
		return fmt.Errorf("update %q: %w", id, err)
	}
	s.patchIndex(id, &obj)

	if commit {
		return s.autoCommit(ctx, "update", id, paths, message)
	}
	return nil
}

// Delete removes the object stored under id.
func (s *GitStore[T]) Delete(ctx context.Context, id string, commit bool, message string) error {
	paths, err := s.backend.Write(id, nil)
	if err != nil {
		return fmt.Errorf("delete %q: %w", id, err)
	}
	s.patchIndex(id, nil)

	if commit {
		return s.autoCommit(ctx, "delete", id, paths, message)
	}
	return nil
}

// Commit records the pending changes of the given objects with message.
// Objects without pending changes are silently ignored; when nothing is
// pending no commit is made.
func (s *GitStore[T]) Commit(ctx context.Context, ids []string, message string) error {
	paths, err := s.changedPathsFor(ids)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return nil
	}
	if _, err := s.ctl.StageAndCommit(ctx, paths, message); err != nil {
		return &CommitError{Kind: gitctl.Classify(err), Op: "commit", Err: err}
	}
	return nil
}

// Discard resets the pending changes of the given objects back to HEAD.
func (s *GitStore[T]) Discard(ctx context.Context, ids []string) error {
	paths, err := s.changedPathsFor(ids)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return nil
	}
	if err := s.ctl.ResetFiles(ctx, paths...); err != nil {
		return fmt.Errorf("discard: %w", err)
	}
	return nil
}

// ListUncommitted returns the ids of objects with uncommitted changes,
// deduplicated and sorted. Changed files under the store's tree that do not
// map to any object (orphans) are excluded from the result and proactively
// reset: they cannot be attributed to a commit, so they are never left
// behind as silent uncommitted cruft.
func (s *GitStore[T]) ListUncommitted(ctx context.Context) ([]string, error) {
	changed, err := s.ctl.ListChangedFiles([]string{s.baseRel})
	if err != nil {
		return nil, fmt.Errorf("list uncommitted: %w", err)
	}

	seen := make(map[string]bool)
	var ids []string
	var orphans []string
	for _, p := range changed {
		id, ok := s.backend.ResolveObjectID(p)
		if !ok {
			orphans = append(orphans, p)
			continue
		}
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}

	if len(orphans) > 0 {
		glog.Warningf("store %s: resetting %d orphaned file(s): %v", s.label, len(orphans), orphans)
		if err := s.ctl.ResetFiles(ctx, orphans...); err != nil {
			return nil, fmt.Errorf("list uncommitted: reset orphans: %w", err)
		}
	}

	sort.Strings(ids)
	return ids, nil
}

// changedPathsFor intersects the store's changed files with the files owned
// by the given ids.
func (s *GitStore[T]) changedPathsFor(ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}

	changed, err := s.ctl.ListChangedFiles([]string{s.baseRel})
	if err != nil {
		return nil, fmt.Errorf("changed paths: %w", err)
	}
	var out []string
	for _, p := range changed {
		if id, ok := s.backend.ResolveObjectID(p); ok && want[id] {
			out = append(out, p)
		}
	}
	return out, nil
}

// autoCommit stages and commits the touched paths, generating the message
// when the caller did not supply one.
func (s *GitStore[T]) autoCommit(ctx context.Context, verb, id string, paths []string, message string) error {
	if message == "" {
		message = fmt.Sprintf("%s %s %s", verb, s.label, id)
	}
	if _, err := s.ctl.StageAndCommit(ctx, paths, message); err != nil {
		return &CommitError{Kind: gitctl.Classify(err), Op: verb + " " + id, Err: err}
	}
	return nil
}

// patchIndex keeps the cached index coherent after a write without a full
// rescan. A nil obj removes the entry.
func (s *GitStore[T]) patchIndex(id string, obj *T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.index == nil {
		return
	}
	if obj == nil {
		delete(s.index, id)
		return
	}
	s.index[id] = *obj
}
