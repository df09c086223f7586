// Package gitctl owns a git working tree and serializes every operation that
// mutates it.
//
// One Controller manages one repository with an origin remote (the user's
// read-write fork) and an optional read-only upstream remote, tracking a
// single branch. All index- and HEAD-mutating operations (StageAndCommit,
// ResetFiles, ListLocalCommits, Synchronize) queue on the controller's
// staging lock so they never interleave.
package gitctl

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	git "github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/golang/glog"
)

const (
	// OriginRemote is the user's writable fork.
	OriginRemote = "origin"
	// UpstreamRemote is the read-only canonical source, when configured.
	UpstreamRemote = "upstream"

	defaultBranch      = "master"
	defaultMaxPending  = 10
	defaultLockTimeout = 2 * time.Minute
)

// Options configures a Controller.
type Options struct {
	// WorkDir is the absolute path of the git working directory.
	WorkDir string
	// OriginURL is the URL of the origin remote. Required.
	OriginURL string
	// UpstreamURL, when non-empty, is added as the upstream remote on clone.
	UpstreamURL string
	// Branch is the single tracked branch. Defaults to master.
	Branch string
	// CloneDepth controls history depth on ForceInitialize: 0 means the
	// default shallow depth of 1, negative means a full clone.
	CloneDepth int
	// ProbeHost overrides the DNS name used by the connectivity probe.
	// Defaults to the hostname of OriginURL.
	ProbeHost string
	// Notifier receives synchronization status broadcasts. Optional.
	Notifier Notifier
	// MaxPending bounds how many callers may queue on the staging lock.
	MaxPending int
	// LockTimeout bounds how long a queued caller waits for the lock.
	LockTimeout time.Duration
}

// Controller wraps one git working tree.
type Controller struct {
	workDir     string
	originURL   string
	upstreamURL string
	branch      string
	cloneDepth  int
	probeHost   string
	notifier    Notifier

	lock *stageLock

	mu          sync.Mutex // guards credentials and identity
	username    string
	password    string
	sshAuth     transport.AuthMethod
	authorName  string
	authorEmail string
}

// New creates a Controller. The working directory does not need to exist
// yet; ForceInitialize creates it.
func New(opts Options) (*Controller, error) {
	if opts.WorkDir == "" || !filepath.IsAbs(opts.WorkDir) {
		return nil, fmt.Errorf("gitctl: WorkDir must be an absolute path, got %q", opts.WorkDir)
	}
	if opts.OriginURL == "" {
		return nil, fmt.Errorf("gitctl: OriginURL is required")
	}
	branch := opts.Branch
	if branch == "" {
		branch = defaultBranch
	}
	depth := opts.CloneDepth
	if depth == 0 {
		depth = 1
	} else if depth < 0 {
		depth = 0 // go-git convention: zero depth clones full history
	}
	maxPending := opts.MaxPending
	if maxPending <= 0 {
		maxPending = defaultMaxPending
	}
	timeout := opts.LockTimeout
	if timeout <= 0 {
		timeout = defaultLockTimeout
	}

	return &Controller{
		workDir:     filepath.Clean(opts.WorkDir),
		originURL:   opts.OriginURL,
		upstreamURL: opts.UpstreamURL,
		branch:      branch,
		cloneDepth:  depth,
		probeHost:   opts.ProbeHost,
		notifier:    opts.Notifier,
		lock:        newStageLock(maxPending, timeout),
	}, nil
}

// WorkDir returns the absolute path of the managed working directory.
func (c *Controller) WorkDir() string { return c.workDir }

// Branch returns the tracked branch name.
func (c *Controller) Branch() string { return c.branch }

// SetIdentity sets the author/committer identity used for commits.
func (c *Controller) SetIdentity(name, email string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.authorName = name
	c.authorEmail = email
}

func (c *Controller) identity() (name, email string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.authorName, c.authorEmail
}

// repo opens the working directory as a git repository.
func (c *Controller) repo() (*git.Repository, error) {
	r, err := git.PlainOpen(c.workDir)
	if err != nil {
		return nil, fmt.Errorf("open repository %q: %w", c.workDir, err)
	}
	return r, nil
}

// IsInitialized reports whether the working directory holds a git repository.
func (c *Controller) IsInitialized() bool {
	info, err := os.Stat(filepath.Join(c.workDir, git.GitDirName))
	if err != nil || !info.IsDir() {
		return false
	}
	_, err = git.PlainOpen(c.workDir)
	return err == nil
}

// IsUsingRemoteURLs reports whether the repository's origin (and upstream,
// when expected) match the given URLs. Used to decide whether a destructive
// re-clone is needed.
func (c *Controller) IsUsingRemoteURLs(originURL, upstreamURL string) bool {
	r, err := c.repo()
	if err != nil {
		return false
	}

	origin, err := r.Remote(OriginRemote)
	if err != nil || len(origin.Config().URLs) == 0 || origin.Config().URLs[0] != originURL {
		return false
	}

	if upstreamURL == "" {
		return true
	}
	upstream, err := r.Remote(UpstreamRemote)
	if err != nil || len(upstream.Config().URLs) == 0 {
		return false
	}
	return upstream.Config().URLs[0] == upstreamURL
}

// ForceInitialize wipes the working directory and clones origin from
// scratch, adding the upstream remote when one is configured. Destructive:
// any local state is lost.
func (c *Controller) ForceInitialize(ctx context.Context) error {
	glog.Warningf("gitctl: force-initializing %s from %s", c.workDir, c.originURL)

	if err := os.RemoveAll(c.workDir); err != nil {
		return fmt.Errorf("force initialize: clear %q: %w", c.workDir, err)
	}
	if err := os.MkdirAll(c.workDir, 0o755); err != nil {
		return fmt.Errorf("force initialize: create %q: %w", c.workDir, err)
	}

	r, err := git.PlainCloneContext(ctx, c.workDir, false, &git.CloneOptions{
		URL:           c.originURL,
		RemoteName:    OriginRemote,
		ReferenceName: plumbing.NewBranchReferenceName(c.branch),
		SingleBranch:  true,
		Depth:         c.cloneDepth,
		Tags:          git.NoTags,
		Auth:          c.authMethod(),
	})
	if err != nil {
		return fmt.Errorf("force initialize: clone %q: %w", c.originURL, err)
	}

	if c.upstreamURL != "" {
		_, err = r.CreateRemote(&gitconfig.RemoteConfig{
			Name: UpstreamRemote,
			URLs: []string{c.upstreamURL},
		})
		if err != nil {
			return fmt.Errorf("force initialize: add upstream %q: %w", c.upstreamURL, err)
		}
	}
	return nil
}

// ConfigSet writes a dotted git config key (e.g. "user.name") to the
// repository's local configuration.
func (c *Controller) ConfigSet(prop, value string) error {
	section, subsection, key, err := splitConfigKey(prop)
	if err != nil {
		return err
	}
	r, err := c.repo()
	if err != nil {
		return err
	}
	cfg, err := r.Config()
	if err != nil {
		return fmt.Errorf("config set %q: %w", prop, err)
	}
	if subsection == "" {
		cfg.Raw.Section(section).SetOption(key, value)
	} else {
		cfg.Raw.Section(section).Subsection(subsection).SetOption(key, value)
	}
	if err := r.SetConfig(cfg); err != nil {
		return fmt.Errorf("config set %q: %w", prop, err)
	}
	return nil
}

// ConfigGet reads a dotted git config key from the repository's local
// configuration. Missing keys return an empty string and no error.
func (c *Controller) ConfigGet(prop string) (string, error) {
	section, subsection, key, err := splitConfigKey(prop)
	if err != nil {
		return "", err
	}
	r, err := c.repo()
	if err != nil {
		return "", err
	}
	cfg, err := r.Config()
	if err != nil {
		return "", fmt.Errorf("config get %q: %w", prop, err)
	}
	if subsection == "" {
		return cfg.Raw.Section(section).Option(key), nil
	}
	return cfg.Raw.Section(section).Subsection(subsection).Option(key), nil
}

// splitConfigKey parses "section.key" or "section.subsection.key".
func splitConfigKey(prop string) (section, subsection, key string, err error) {
	parts := strings.Split(prop, ".")
	switch len(parts) {
	case 2:
		return parts[0], "", parts[1], nil
	case 3:
		return parts[0], parts[1], parts[2], nil
	default:
		return "", "", "", fmt.Errorf("config key %q: want section.key or section.subsection.key", prop)
	}
}
