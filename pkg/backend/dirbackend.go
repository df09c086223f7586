package backend

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/odvcencio/shelf/pkg/pathlock"
	"github.com/odvcencio/shelf/pkg/yamlcodec"
)

const metaFileName = "meta" + yamlExt

// DirBackend stores one object per directory: <baseDir>/<id>/meta.yaml holds
// the whitelisted meta fields, and every other field lives in its own
// <baseDir>/<id>/<field>.yaml file. Reading merges meta.yaml with its
// siblings keyed by file basename; the split recombines losslessly.
type DirBackend[T ~map[string]any] struct {
	baseDir    string
	workDir    string
	locks      *pathlock.Map
	metaFields map[string]bool
}

// NewDirBackend returns a DirBackend rooted at baseDir. metaFields names the
// object fields that belong in meta.yaml; all other fields get their own
// file. Field names must themselves be valid ids ("meta" is reserved).
func NewDirBackend[T ~map[string]any](baseDir, workDir string, locks *pathlock.Map, metaFields []string) (*DirBackend[T], error) {
	if !filepath.IsAbs(baseDir) || !filepath.IsAbs(workDir) {
		return nil, fmt.Errorf("dir backend: baseDir and workDir must be absolute, got %q, %q", baseDir, workDir)
	}
	if locks == nil {
		locks = pathlock.New()
	}
	meta := make(map[string]bool, len(metaFields))
	for _, f := range metaFields {
		if !validID(f) || f == "meta" {
			return nil, fmt.Errorf("dir backend: invalid meta field name %q", f)
		}
		meta[f] = true
	}
	return &DirBackend[T]{
		baseDir:    filepath.Clean(baseDir),
		workDir:    filepath.Clean(workDir),
		locks:      locks,
		metaFields: meta,
	}, nil
}

func (b *DirBackend[T]) BaseDir() string { return b.baseDir }
func (b *DirBackend[T]) WorkDir() string { return b.workDir }

// ExpandPath returns the absolute path of the directory for id.
func (b *DirBackend[T]) ExpandPath(id string) string {
	return filepath.Join(b.baseDir, id)
}

// ResolveObjectID maps a work-dir-relative path to the id of the object
// directory containing it.
func (b *DirBackend[T]) ResolveObjectID(relPath string) (string, bool) {
	baseRel, err := workRel(b.workDir, b.baseDir)
	if err != nil {
		return "", false
	}
	relPath = path.Clean(filepath.ToSlash(relPath))
	inside := strings.TrimPrefix(relPath, baseRel+"/")
	if inside == relPath {
		return "", false
	}
	id, _, found := strings.Cut(inside, "/")
	if !found {
		// A bare file directly under baseDir belongs to no object.
		return "", false
	}
	if !b.IsValidID(id) {
		return "", false
	}
	return id, true
}

// IsValidID reports whether candidate maps to a slot of this backend.
func (b *DirBackend[T]) IsValidID(candidate string) bool {
	return validID(candidate)
}

// Read loads and merges meta.yaml with every sibling YAML file.
func (b *DirBackend[T]) Read(id string) (T, error) {
	if !b.IsValidID(id) {
		return nil, fmt.Errorf("read %q: invalid object id", id)
	}
	dir := b.ExpandPath(id)
	merged := make(map[string]any)

	err := b.locks.With(dir, func() error {
		metaRaw, err := os.ReadFile(filepath.Join(dir, metaFileName))
		if err != nil {
			return fmt.Errorf("read %q: %w", id, err)
		}
		if err := yamlcodec.Unmarshal(metaRaw, &merged); err != nil {
			return fmt.Errorf("read %q: meta: %w", id, err)
		}

		entries, err := os.ReadDir(dir)
		if err != nil {
			return fmt.Errorf("read %q: %w", id, err)
		}
		for _, e := range entries {
			name := e.Name()
			if e.IsDir() || name == metaFileName || !strings.HasSuffix(name, yamlExt) {
				continue
			}
			raw, err := os.ReadFile(filepath.Join(dir, name))
			if err != nil {
				return fmt.Errorf("read %q: %w", id, err)
			}
			var val any
			if err := yamlcodec.Unmarshal(raw, &val); err != nil {
				return fmt.Errorf("read %q: field %q: %w", id, name, err)
			}
			merged[strings.TrimSuffix(name, yamlExt)] = val
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return T(merged), nil
}

// Write partitions obj into meta and per-field files and writes each. Field
// files left over from a previous version of the object are removed. When
// obj is nil the whole directory is deleted. Every touched path is returned.
func (b *DirBackend[T]) Write(id string, obj *T) ([]string, error) {
	if !b.IsValidID(id) {
		return nil, fmt.Errorf("write %q: invalid object id", id)
	}
	dir := b.ExpandPath(id)

	var touched []string
	addTouched := func(abs string) error {
		rel, err := workRel(b.workDir, abs)
		if err != nil {
			return err
		}
		touched = append(touched, rel)
		return nil
	}

	err := b.locks.With(dir, func() error {
		if obj == nil {
			// Record the files the deletion removes, then drop the dir.
			entries, err := os.ReadDir(dir)
			if err != nil {
				if os.IsNotExist(err) {
					return nil
				}
				return fmt.Errorf("delete %q: %w", id, err)
			}
			for _, e := range entries {
				if err := addTouched(filepath.Join(dir, e.Name())); err != nil {
					return fmt.Errorf("delete %q: %w", id, err)
				}
			}
			if err := os.RemoveAll(dir); err != nil {
				return fmt.Errorf("delete %q: %w", id, err)
			}
			return nil
		}

		meta := make(map[string]any)
		fields := make(map[string]any)
		for k, v := range map[string]any(*obj) {
			if b.metaFields[k] {
				meta[k] = v
				continue
			}
			if !validID(k) || k == "meta" {
				return fmt.Errorf("write %q: field %q cannot name a file", id, k)
			}
			fields[k] = v
		}

		metaData, err := yamlcodec.Marshal(meta)
		if err != nil {
			return fmt.Errorf("write %q: meta: %w", id, err)
		}
		metaPath := filepath.Join(dir, metaFileName)
		if err := writeFileAtomic(metaPath, metaData); err != nil {
			return fmt.Errorf("write %q: meta: %w", id, err)
		}
		if err := addTouched(metaPath); err != nil {
			return fmt.Errorf("write %q: %w", id, err)
		}

		for k, v := range fields {
			data, err := yamlcodec.Marshal(v)
			if err != nil {
				return fmt.Errorf("write %q: field %q: %w", id, k, err)
			}
			p := filepath.Join(dir, k+yamlExt)
			if err := writeFileAtomic(p, data); err != nil {
				return fmt.Errorf("write %q: field %q: %w", id, k, err)
			}
			if err := addTouched(p); err != nil {
				return fmt.Errorf("write %q: %w", id, err)
			}
		}

		// Remove field files whose field no longer exists on the object.
		entries, err := os.ReadDir(dir)
		if err != nil {
			return fmt.Errorf("write %q: %w", id, err)
		}
		for _, e := range entries {
			name := e.Name()
			if e.IsDir() || name == metaFileName || !strings.HasSuffix(name, yamlExt) {
				continue
			}
			field := strings.TrimSuffix(name, yamlExt)
			if _, keep := fields[field]; keep {
				continue
			}
			p := filepath.Join(dir, name)
			if err := os.Remove(p); err != nil {
				return fmt.Errorf("write %q: prune %q: %w", id, name, err)
			}
			if err := addTouched(p); err != nil {
				return fmt.Errorf("write %q: %w", id, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return touched, nil
}

// Exists reports whether an object directory is stored under id.
func (b *DirBackend[T]) Exists(id string) (bool, error) {
	if !b.IsValidID(id) {
		return false, nil
	}
	info, err := os.Stat(b.ExpandPath(id))
	if err == nil {
		return info.IsDir(), nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("exists %q: %w", id, err)
}

// ReadAll loads every object directory under the base directory.
func (b *DirBackend[T]) ReadAll() ([]T, error) {
	entries, err := os.ReadDir(b.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read all: %w", err)
	}

	var out []T
	for _, e := range entries {
		if !e.IsDir() || !b.IsValidID(e.Name()) {
			continue
		}
		obj, err := b.Read(e.Name())
		if err != nil {
			return nil, fmt.Errorf("read all: %w", err)
		}
		out = append(out, obj)
	}
	return out, nil
}
