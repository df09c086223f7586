package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/odvcencio/shelf/pkg/backend"
	"github.com/odvcencio/shelf/pkg/config"
	"github.com/odvcencio/shelf/pkg/gitctl"
	"github.com/odvcencio/shelf/pkg/pathlock"
	"github.com/odvcencio/shelf/pkg/store"
)

// Record is the object shape the CLI stores: free-form YAML fields with a
// required string "id".
type Record map[string]any

// ObjectID returns the record's id field, or "" when absent.
func (r Record) ObjectID() string {
	id, _ := r["id"].(string)
	return id
}

// app bundles the loaded settings and the git controller every command
// works through.
type app struct {
	cfg   *config.Config
	ctl   *gitctl.Controller
	locks *pathlock.Map
}

// loadApp reads the settings file, validates it, and builds the controller.
// The password, if any, comes from SHELF_PASSWORD and stays in memory.
func loadApp() (*app, error) {
	path, err := config.DefaultPath()
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w (edit %s)", err, path)
	}

	ctl, err := gitctl.New(gitctl.Options{
		WorkDir:     cfg.WorkDir,
		OriginURL:   cfg.Remote.Origin,
		UpstreamURL: cfg.Remote.Upstream,
	})
	if err != nil {
		return nil, err
	}
	ctl.SetIdentity(cfg.Author.Name, cfg.Author.Email)
	if cfg.Remote.Username != "" {
		ctl.SetAuth(cfg.Remote.Username, os.Getenv("SHELF_PASSWORD"))
	}

	return &app{cfg: cfg, ctl: ctl, locks: pathlock.New()}, nil
}

// requireInitialized fails with a hint when the working directory has no
// repository yet.
func (a *app) requireInitialized() error {
	if !a.ctl.IsInitialized() {
		return fmt.Errorf("no repository at %s (run \"shelf init\" first)", a.cfg.WorkDir)
	}
	return nil
}

// storeFor opens the named collection as a git-backed store. Each collection
// is a flat directory of <id>.yaml files directly under the working
// directory.
func (a *app) storeFor(collection string) (*store.GitStore[Record], error) {
	if collection == "" || strings.ContainsAny(collection, "/\\") || strings.HasPrefix(collection, ".") {
		return nil, fmt.Errorf("invalid collection name %q", collection)
	}
	b, err := backend.NewFileBackend[Record](filepath.Join(a.cfg.WorkDir, collection), a.cfg.WorkDir, a.locks)
	if err != nil {
		return nil, err
	}
	return store.NewGitStore[Record](b, a.ctl, collection)
}
