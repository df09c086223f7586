package backend

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/odvcencio/shelf/pkg/pathlock"
)

type note struct {
	ID    string `yaml:"id"`
	Title string `yaml:"title"`
	Body  string `yaml:"body,omitempty"`
}

func tempFileBackend(t *testing.T) *FileBackend[note] {
	t.Helper()
	work := t.TempDir()
	b, err := NewFileBackend[note](filepath.Join(work, "notes"), work, pathlock.New())
	if err != nil {
		t.Fatalf("NewFileBackend: %v", err)
	}
	return b
}

func TestFileBackendRoundTrip(t *testing.T) {
	b := tempFileBackend(t)

	in := note{ID: "a", Title: "first", Body: "text"}
	paths, err := b.Write("a", &in)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if len(paths) != 1 || paths[0] != "notes/a.yaml" {
		t.Fatalf("touched paths = %v, want [notes/a.yaml]", paths)
	}

	out, err := b.Read("a")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if out != in {
		t.Fatalf("round trip mismatch: %+v != %+v", out, in)
	}
}

func TestFileBackendReadMissing(t *testing.T) {
	b := tempFileBackend(t)
	_, err := b.Read("nope")
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected fs.ErrNotExist, got %v", err)
	}
}

func TestFileBackendDelete(t *testing.T) {
	b := tempFileBackend(t)
	if _, err := b.Write("a", &note{ID: "a"}); err != nil {
		t.Fatalf("Write: %v", err)
	}

	paths, err := b.Write("a", nil)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(paths) != 1 || paths[0] != "notes/a.yaml" {
		t.Fatalf("touched paths = %v", paths)
	}
	if _, err := os.Stat(b.ExpandPath("a")); !os.IsNotExist(err) {
		t.Fatalf("file still present after delete, stat err=%v", err)
	}

	ok, err := b.Exists("a")
	if err != nil || ok {
		t.Fatalf("Exists after delete = %v, %v", ok, err)
	}
}

func TestFileBackendPathMappingInverse(t *testing.T) {
	b := tempFileBackend(t)

	for _, id := range []string{"a", "long-id", "with.dots"} {
		abs := b.ExpandPath(id)
		rel, err := workRel(b.WorkDir(), abs)
		if err != nil {
			t.Fatalf("workRel: %v", err)
		}
		got, ok := b.ResolveObjectID(rel)
		if !ok || got != id {
			t.Fatalf("ResolveObjectID(%q) = %q, %v; want %q", rel, got, ok, id)
		}
	}

	for _, rel := range []string{"notes/.hidden.yaml", "notes/sub/a.yaml", "elsewhere/a.yaml", "notes/a.txt"} {
		if id, ok := b.ResolveObjectID(rel); ok {
			t.Fatalf("ResolveObjectID(%q) = %q, want no match", rel, id)
		}
	}
}

func TestFileBackendReadAllSkipsStrays(t *testing.T) {
	b := tempFileBackend(t)
	for _, id := range []string{"a", "b"} {
		if _, err := b.Write(id, &note{ID: id}); err != nil {
			t.Fatalf("Write(%q): %v", id, err)
		}
	}
	// Stray entries that must not surface as objects.
	if err := os.WriteFile(filepath.Join(b.BaseDir(), ".DS_Store"), []byte("junk"), 0o644); err != nil {
		t.Fatalf("write stray: %v", err)
	}
	if err := os.WriteFile(filepath.Join(b.BaseDir(), "readme.txt"), []byte("junk"), 0o644); err != nil {
		t.Fatalf("write stray: %v", err)
	}

	all, err := b.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("ReadAll returned %d objects, want 2: %+v", len(all), all)
	}
}

func TestFileBackendRejectsInvalidIDs(t *testing.T) {
	b := tempFileBackend(t)
	for _, id := range []string{"", ".hidden", "a/b", `a\b`, ".."} {
		if b.IsValidID(id) {
			t.Fatalf("IsValidID(%q) = true, want false", id)
		}
		if _, err := b.Write(id, &note{}); err == nil {
			t.Fatalf("Write(%q) succeeded, want error", id)
		}
	}
}
