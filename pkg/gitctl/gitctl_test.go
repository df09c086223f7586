package gitctl

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	git "github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport/client"
	"github.com/go-git/go-git/v5/plumbing/transport/server"
)

func init() {
	// Local-path remotes served in-process, so fixtures need no git
	// binary and no network.
	client.InstallProtocol("file", server.NewClient(server.DefaultLoader))
}

var testSig = &object.Signature{Name: "Seed", Email: "seed@example.com", When: time.Unix(1700000000, 0)}

// newBareRemote creates a bare repository seeded with one commit on master
// and returns its path.
func newBareRemote(t *testing.T) string {
	t.Helper()

	bare := filepath.Join(t.TempDir(), "origin.git")
	if _, err := git.PlainInit(bare, true); err != nil {
		t.Fatalf("init bare: %v", err)
	}

	seed := filepath.Join(t.TempDir(), "seed")
	r, err := git.PlainInit(seed, false)
	if err != nil {
		t.Fatalf("init seed: %v", err)
	}
	w, err := r.Worktree()
	if err != nil {
		t.Fatalf("seed worktree: %v", err)
	}
	if err := os.WriteFile(filepath.Join(seed, "README"), []byte("seed\n"), 0o644); err != nil {
		t.Fatalf("seed write: %v", err)
	}
	if _, err := w.Add("README"); err != nil {
		t.Fatalf("seed add: %v", err)
	}
	if _, err := w.Commit("seed", &git.CommitOptions{Author: testSig}); err != nil {
		t.Fatalf("seed commit: %v", err)
	}
	if _, err := r.CreateRemote(&gitconfig.RemoteConfig{Name: "origin", URLs: []string{bare}}); err != nil {
		t.Fatalf("seed remote: %v", err)
	}
	if err := r.Push(&git.PushOptions{RemoteName: "origin"}); err != nil {
		t.Fatalf("seed push: %v", err)
	}
	return bare
}

// addRemoteCommit pushes one more commit to the bare remote through a
// scratch clone, simulating activity by another writer.
func addRemoteCommit(t *testing.T, bare, file, content string) {
	t.Helper()

	scratch := filepath.Join(t.TempDir(), "scratch")
	r, err := git.PlainClone(scratch, false, &git.CloneOptions{URL: bare})
	if err != nil {
		t.Fatalf("scratch clone: %v", err)
	}
	w, err := r.Worktree()
	if err != nil {
		t.Fatalf("scratch worktree: %v", err)
	}
	if err := os.WriteFile(filepath.Join(scratch, file), []byte(content), 0o644); err != nil {
		t.Fatalf("scratch write: %v", err)
	}
	if _, err := w.Add(file); err != nil {
		t.Fatalf("scratch add: %v", err)
	}
	if _, err := w.Commit("remote change", &git.CommitOptions{Author: testSig}); err != nil {
		t.Fatalf("scratch commit: %v", err)
	}
	if err := r.Push(&git.PushOptions{}); err != nil {
		t.Fatalf("scratch push: %v", err)
	}
}

// newTestController clones the bare remote into a fresh work dir.
func newTestController(t *testing.T, bare string, opts func(*Options)) *Controller {
	t.Helper()

	o := Options{
		WorkDir:    filepath.Join(t.TempDir(), "work"),
		OriginURL:  bare,
		CloneDepth: -1, // full history so fixtures can assert on ancestry
	}
	if opts != nil {
		opts(&o)
	}
	c, err := New(o)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := c.ForceInitialize(context.Background()); err != nil {
		t.Fatalf("ForceInitialize: %v", err)
	}
	c.SetIdentity("Test User", "test@example.com")
	return c
}

// writeWorkFile writes a file under the controller's work dir and returns
// its work-dir-relative slash path.
func writeWorkFile(t *testing.T, c *Controller, rel, content string) string {
	t.Helper()
	abs := filepath.Join(c.WorkDir(), filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(abs, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return rel
}

// headCommit returns the HEAD commit of the controller's repository.
func headCommit(t *testing.T, c *Controller) *object.Commit {
	t.Helper()
	r, err := git.PlainOpen(c.WorkDir())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	head, err := r.Head()
	if err != nil {
		t.Fatalf("head: %v", err)
	}
	commit, err := r.CommitObject(head.Hash())
	if err != nil {
		t.Fatalf("commit object: %v", err)
	}
	return commit
}

// bareHead returns the master hash of the bare remote.
func bareHead(t *testing.T, bare string) plumbing.Hash {
	t.Helper()
	r, err := git.PlainOpen(bare)
	if err != nil {
		t.Fatalf("open bare: %v", err)
	}
	ref, err := r.Reference(plumbing.NewBranchReferenceName("master"), true)
	if err != nil {
		t.Fatalf("bare master: %v", err)
	}
	return ref.Hash()
}
