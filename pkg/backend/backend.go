// Package backend implements durable filesystem storage for logical objects.
//
// A backend owns a base directory and maps object ids to paths under it, one
// logical object per "slot". Two layouts are provided: FileBackend stores an
// object as a single YAML file, DirBackend as a directory of YAML files. All
// file I/O for a given object happens under a per-object lock so a slot is
// never concurrently read and written.
package backend

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Backend is the storage contract for one logical object type.
//
// Write paths (the returned string slices) are slash-separated and relative
// to the git working directory, which is exactly the form the git layer
// stages them in.
type Backend[T any] interface {
	// Read loads the object stored under id. Reading an id that does not
	// exist returns an error wrapping fs.ErrNotExist.
	Read(id string) (T, error)

	// Write stores obj under id, or deletes the slot when obj is nil.
	// It returns every path it touched.
	Write(id string, obj *T) ([]string, error)

	// ReadAll loads every object in the base directory, skipping entries
	// that are not valid object ids.
	ReadAll() ([]T, error)

	// Exists reports whether an object is stored under id.
	Exists(id string) (bool, error)

	// ExpandPath returns the absolute path of the slot for id.
	ExpandPath(id string) string

	// ResolveObjectID maps a work-dir-relative path back to the id of the
	// object owning it. ok is false for paths not owned by this backend.
	ResolveObjectID(relPath string) (id string, ok bool)

	// IsValidID reports whether candidate can name an object in this
	// backend. Used to exclude stray filesystem entries (.DS_Store and
	// friends) from ReadAll.
	IsValidID(candidate string) bool

	// BaseDir returns the absolute base directory.
	BaseDir() string

	// WorkDir returns the git working directory write paths are relative to.
	WorkDir() string
}

// validID rejects ids that cannot round-trip through a filesystem path:
// empty strings, dotfiles, and anything containing a path separator.
func validID(id string) bool {
	if id == "" || strings.HasPrefix(id, ".") {
		return false
	}
	if strings.ContainsAny(id, `/\`) {
		return false
	}
	return filepath.Clean(id) == id
}

// workRel converts an absolute path to the slash-separated form relative to
// workDir.
func workRel(workDir, abs string) (string, error) {
	rel, err := filepath.Rel(workDir, abs)
	if err != nil {
		return "", fmt.Errorf("path %q outside work dir %q: %w", abs, workDir, err)
	}
	return filepath.ToSlash(rel), nil
}

// writeFileAtomic writes data to path via a temp file and rename, creating
// parent directories as needed.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %q: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".write-tmp-*")
	if err != nil {
		return fmt.Errorf("tmpfile: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}
