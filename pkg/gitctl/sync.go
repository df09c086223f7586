package gitctl

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/golang/glog"
)

// RemoteStatus is the synchronization state broadcast to all interested
// surfaces. Status transitions are fire-and-forget: the steady-state sync
// runs on a timer with no single caller awaiting a result.
type RemoteStatus struct {
	IsOffline       bool
	HasLocalChanges bool
	NeedsPassword   bool
	IsMisconfigured bool
	IsPushing       bool
	IsPulling       bool

	// StatusRelativeToLocal is one of "updated", "diverged", or empty when
	// the relation is unknown (sync stopped before pull/push).
	StatusRelativeToLocal string
}

// Notifier receives remote status broadcasts.
type Notifier interface {
	NotifyStatus(RemoteStatus)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(RemoteStatus)

func (f NotifierFunc) NotifyStatus(s RemoteStatus) { f(s) }

func (c *Controller) notify(s RemoteStatus) {
	if c.notifier != nil {
		c.notifier.NotifyStatus(s)
	}
}

const probeTimeout = 5 * time.Second

// syncState carries the workflow's accumulated status between stages.
type syncState struct {
	initialized bool
	status      RemoteStatus
}

// syncStage runs one step of the synchronization workflow. Returning
// stop=true ends the workflow after the stage's own broadcast; a non-nil
// error ends it with an unclassified failure.
type syncStage struct {
	name string
	run  func(ctx context.Context, st *syncState) (stop bool, err error)
}

// Synchronize runs the full reconciliation workflow under the staging lock:
// local-changes check, connectivity probe, credential check, then ff-only
// pull followed by push (or an initial clone when the working directory has
// no repository yet). Outcomes are broadcast through the Notifier; only
// unclassified errors are returned.
func (c *Controller) Synchronize(ctx context.Context) error {
	if err := c.lock.acquire(ctx); err != nil {
		return err
	}
	defer c.lock.release()

	st := &syncState{initialized: c.IsInitialized()}
	if st.initialized {
		c.loadAuthFromConfig()
	}

	stages := []syncStage{
		{"check-uncommitted", c.syncCheckUncommitted},
		{"check-online", c.syncCheckOnline},
		{"check-credentials", c.syncCheckCredentials},
		{"pull-push", c.syncPullPush},
	}
	for _, stage := range stages {
		stop, err := stage.run(ctx, st)
		if err != nil {
			return fmt.Errorf("synchronize: %s: %w", stage.name, err)
		}
		if stop {
			glog.V(1).Infof("gitctl: sync stopped at %s: %+v", stage.name, st.status)
			return nil
		}
	}
	return nil
}

// syncCheckUncommitted stops the workflow when uncommitted local changes
// exist: syncing over dirty state is never attempted, the caller must
// commit or discard first. An uninitialized repository trivially has no
// local changes.
func (c *Controller) syncCheckUncommitted(_ context.Context, st *syncState) (bool, error) {
	if !st.initialized {
		return false, nil
	}
	changed, err := c.ListChangedFiles(nil)
	if err != nil {
		return false, err
	}
	if len(changed) > 0 {
		st.status.HasLocalChanges = true
		c.notify(st.status)
		return true, nil
	}
	return false, nil
}

// syncCheckOnline probes connectivity with a DNS lookup of the remote host.
// Remotes without a DNS name (local paths) are assumed reachable.
func (c *Controller) syncCheckOnline(ctx context.Context, st *syncState) (bool, error) {
	host := c.probeHostname()
	if host == "" {
		return false, nil
	}
	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	if _, err := net.DefaultResolver.LookupHost(probeCtx, host); err != nil {
		st.status.IsOffline = true
		c.notify(st.status)
		return true, nil
	}
	return false, nil
}

// syncCheckCredentials stops the workflow when the origin needs a password
// that is not configured. Only HTTP(S) remotes require one; SSH remotes are
// satisfied by a loaded key, local paths by nothing.
func (c *Controller) syncCheckCredentials(_ context.Context, st *syncState) (bool, error) {
	if !remoteNeedsPassword(c.originURL) {
		return false, nil
	}
	if !c.HasCredentials() {
		st.status.NeedsPassword = true
		c.notify(st.status)
		return true, nil
	}
	return false, nil
}

// syncPullPush performs the pull+push pair, or the initial clone for a
// repository that has never been initialized. On success every failure flag
// is cleared and the status is "updated".
func (c *Controller) syncPullPush(ctx context.Context, st *syncState) (bool, error) {
	if !st.initialized {
		if err := c.ForceInitialize(ctx); err != nil {
			return c.syncFail(st, err)
		}
		st.status = RemoteStatus{StatusRelativeToLocal: "updated"}
		c.notify(st.status)
		return true, nil
	}

	st.status.IsPulling = true
	c.notify(st.status)
	err := c.pull(ctx)
	st.status.IsPulling = false
	if err != nil {
		return c.syncFail(st, err)
	}
	c.notify(st.status)

	st.status.IsPushing = true
	c.notify(st.status)
	err = c.push(ctx)
	st.status.IsPushing = false
	if err != nil {
		return c.syncFail(st, err)
	}

	st.status = RemoteStatus{StatusRelativeToLocal: "updated"}
	c.notify(st.status)
	return true, nil
}

// syncFail classifies err into the status flags. Recognized kinds become
// broadcasts and end the workflow cleanly; unrecognized errors propagate.
func (c *Controller) syncFail(st *syncState, err error) (bool, error) {
	switch Classify(err) {
	case KindDiverged:
		st.status.StatusRelativeToLocal = "diverged"
	case KindMisconfigured:
		st.status.IsMisconfigured = true
	case KindNeedsPassword:
		c.clearPassword()
		st.status.NeedsPassword = true
	default:
		return false, err
	}
	glog.Warningf("gitctl: sync failed (%s): %v", Classify(err), err)
	c.notify(st.status)
	return true, nil
}

// pull fast-forwards the local branch from origin. Already-up-to-date is
// not an error.
func (c *Controller) pull(ctx context.Context) error {
	r, err := c.repo()
	if err != nil {
		return err
	}
	w, err := r.Worktree()
	if err != nil {
		return fmt.Errorf("pull: %w", err)
	}
	err = w.PullContext(ctx, &git.PullOptions{
		RemoteName:    OriginRemote,
		ReferenceName: plumbing.NewBranchReferenceName(c.branch),
		SingleBranch:  true,
		Auth:          c.authMethod(),
	})
	if errors.Is(err, git.NoErrAlreadyUpToDate) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("pull: %w", err)
	}
	return nil
}

// push publishes local commits to origin. Already-up-to-date is not an
// error.
func (c *Controller) push(ctx context.Context) error {
	r, err := c.repo()
	if err != nil {
		return err
	}
	err = r.PushContext(ctx, &git.PushOptions{
		RemoteName: OriginRemote,
		Auth:       c.authMethod(),
	})
	if errors.Is(err, git.NoErrAlreadyUpToDate) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("push: %w", err)
	}
	return nil
}

// loadAuthFromConfig picks up the username stored in the repository config
// (credentials.username) when none was set explicitly.
func (c *Controller) loadAuthFromConfig() {
	c.mu.Lock()
	have := c.username != ""
	c.mu.Unlock()
	if have {
		return
	}
	username, err := c.ConfigGet("credentials.username")
	if err != nil || username == "" {
		return
	}
	c.mu.Lock()
	c.username = username
	c.mu.Unlock()
}

// probeHostname returns the DNS name to resolve for the connectivity probe.
func (c *Controller) probeHostname() string {
	if c.probeHost != "" {
		return c.probeHost
	}
	return remoteHostname(c.originURL)
}

// remoteHostname extracts the host from a remote URL. Returns "" for local
// paths and file:// URLs.
func remoteHostname(remote string) string {
	if u, err := url.Parse(remote); err == nil && u.Host != "" {
		switch u.Scheme {
		case "http", "https", "ssh", "git":
			return u.Hostname()
		}
	}
	// scp-like syntax: user@host:path
	if at := strings.Index(remote, "@"); at >= 0 {
		rest := remote[at+1:]
		if colon := strings.Index(rest, ":"); colon > 0 {
			return rest[:colon]
		}
	}
	return ""
}

// remoteNeedsPassword reports whether the remote URL uses a transport that
// authenticates with a password.
func remoteNeedsPassword(remote string) bool {
	u, err := url.Parse(remote)
	if err != nil {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}
