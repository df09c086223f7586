package config

import (
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	in := &Config{
		WorkDir: "/home/user/.shelf/db",
		Remote: RemoteConfig{
			Origin:   "https://example.com/user/db.git",
			Upstream: "https://example.com/canonical/db.git",
			Username: "user",
		},
		Author:              AuthorConfig{Name: "A User", Email: "user@example.com"},
		SyncIntervalSeconds: 300,
	}

	if err := Save(path, in); err != nil {
		t.Fatalf("Save: %v", err)
	}
	out, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(out, in) {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", out, in)
	}
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("Load missing: %v", err)
	}
	if cfg.WorkDir != "" {
		t.Fatalf("expected empty config, got %+v", cfg)
	}
}

func TestValidateListsAllMissing(t *testing.T) {
	err := (&Config{}).Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"workdir", "remote.origin", "author.name", "author.email"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("error %q does not mention %q", err, want)
		}
	}
}

func TestValidateRejectsRelativeWorkDir(t *testing.T) {
	cfg := &Config{
		WorkDir: "relative/path",
		Remote:  RemoteConfig{Origin: "https://example.com/r.git"},
		Author:  AuthorConfig{Name: "n", Email: "e"},
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for relative workdir")
	}
}
