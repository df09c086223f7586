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

const yamlExt = ".yaml"

// FileBackend stores one object per <baseDir>/<id>.yaml file.
type FileBackend[T any] struct {
	baseDir string
	workDir string
	locks   *pathlock.Map
}

// NewFileBackend returns a FileBackend rooted at baseDir. workDir is the git
// working directory returned paths are made relative to. Both must be
// absolute; baseDir is created lazily on first write.
func NewFileBackend[T any](baseDir, workDir string, locks *pathlock.Map) (*FileBackend[T], error) {
	if !filepath.IsAbs(baseDir) || !filepath.IsAbs(workDir) {
		return nil, fmt.Errorf("file backend: baseDir and workDir must be absolute, got %q, %q", baseDir, workDir)
	}
	if locks == nil {
		locks = pathlock.New()
	}
	return &FileBackend[T]{
		baseDir: filepath.Clean(baseDir),
		workDir: filepath.Clean(workDir),
		locks:   locks,
	}, nil
}

func (b *FileBackend[T]) BaseDir() string { return b.baseDir }
func (b *FileBackend[T]) WorkDir() string { return b.workDir }

// ExpandPath returns the absolute path of the YAML file for id.
func (b *FileBackend[T]) ExpandPath(id string) string {
	return filepath.Join(b.baseDir, id+yamlExt)
}

// ResolveObjectID maps a work-dir-relative path to the id whose file it is.
func (b *FileBackend[T]) ResolveObjectID(relPath string) (string, bool) {
	baseRel, err := workRel(b.workDir, b.baseDir)
	if err != nil {
		return "", false
	}
	relPath = path.Clean(filepath.ToSlash(relPath))
	if path.Dir(relPath) != baseRel {
		return "", false
	}
	name := path.Base(relPath)
	if !strings.HasSuffix(name, yamlExt) {
		return "", false
	}
	id := strings.TrimSuffix(name, yamlExt)
	if !b.IsValidID(id) {
		return "", false
	}
	return id, true
}

// IsValidID reports whether candidate maps to a slot of this backend.
func (b *FileBackend[T]) IsValidID(candidate string) bool {
	return validID(candidate)
}

// Read loads the object stored under id.
func (b *FileBackend[T]) Read(id string) (T, error) {
	var obj T
	if !b.IsValidID(id) {
		return obj, fmt.Errorf("read %q: invalid object id", id)
	}
	p := b.ExpandPath(id)

	err := b.locks.With(p, func() error {
		data, err := os.ReadFile(p)
		if err != nil {
			return fmt.Errorf("read %q: %w", id, err)
		}
		if err := yamlcodec.Unmarshal(data, &obj); err != nil {
			return fmt.Errorf("read %q: %w", id, err)
		}
		return nil
	})
	return obj, err
}

// Write stores obj under id, or deletes the file when obj is nil. The
// returned path list names every file touched, relative to the work dir.
func (b *FileBackend[T]) Write(id string, obj *T) ([]string, error) {
	if !b.IsValidID(id) {
		return nil, fmt.Errorf("write %q: invalid object id", id)
	}
	p := b.ExpandPath(id)
	rel, err := workRel(b.workDir, p)
	if err != nil {
		return nil, fmt.Errorf("write %q: %w", id, err)
	}

	err = b.locks.With(p, func() error {
		if obj == nil {
			if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("delete %q: %w", id, err)
			}
			return nil
		}
		data, err := yamlcodec.Marshal(obj)
		if err != nil {
			return fmt.Errorf("write %q: %w", id, err)
		}
		if err := writeFileAtomic(p, data); err != nil {
			return fmt.Errorf("write %q: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return []string{rel}, nil
}

// Exists reports whether a file is stored under id.
func (b *FileBackend[T]) Exists(id string) (bool, error) {
	if !b.IsValidID(id) {
		return false, nil
	}
	_, err := os.Stat(b.ExpandPath(id))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("exists %q: %w", id, err)
}

// ReadAll loads every object under the base directory. A missing base
// directory yields an empty result, not an error.
func (b *FileBackend[T]) ReadAll() ([]T, error) {
	entries, err := os.ReadDir(b.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read all: %w", err)
	}

	var out []T
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), yamlExt) {
			continue
		}
		id := strings.TrimSuffix(e.Name(), yamlExt)
		if !b.IsValidID(id) {
			continue
		}
		obj, err := b.Read(id)
		if err != nil {
			return nil, fmt.Errorf("read all: %w", err)
		}
		out = append(out, obj)
	}
	return out, nil
}
