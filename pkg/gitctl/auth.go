package gitctl

import (
	"fmt"
	"os"

	"github.com/go-git/go-git/v5/plumbing/transport"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
	gitssh "github.com/go-git/go-git/v5/plumbing/transport/ssh"
	"golang.org/x/crypto/ssh"
)

// SetAuth stores HTTP basic credentials in memory. They are never persisted
// to disk or logged; an authentication failure during sync clears the
// password so the caller can re-prompt.
func (c *Controller) SetAuth(username, password string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.username = username
	c.password = password
}

// SetSSHKey loads an SSH private key for transport authentication.
// passphrase may be empty for unencrypted keys.
func (c *Controller) SetSSHKey(path, passphrase string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read ssh key %q: %w", path, err)
	}

	var signer ssh.Signer
	if passphrase == "" {
		signer, err = ssh.ParsePrivateKey(raw)
	} else {
		signer, err = ssh.ParsePrivateKeyWithPassphrase(raw, []byte(passphrase))
	}
	if err != nil {
		return fmt.Errorf("parse ssh key %q: %w", path, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.sshAuth = &gitssh.PublicKeys{User: "git", Signer: signer}
	return nil
}

// HasCredentials reports whether a password or SSH key is available.
func (c *Controller) HasCredentials() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.password != "" || c.sshAuth != nil
}

// Username returns the configured remote username.
func (c *Controller) Username() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.username
}

// authMethod returns the transport auth to use for remote operations, or
// nil when none is configured (anonymous access, local-path remotes).
func (c *Controller) authMethod() transport.AuthMethod {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sshAuth != nil {
		return c.sshAuth
	}
	if c.username != "" || c.password != "" {
		return &githttp.BasicAuth{Username: c.username, Password: c.password}
	}
	return nil
}

// clearPassword drops the cached password after an authentication failure
// so the next sync reports that a password is needed instead of failing
// silently in a loop.
func (c *Controller) clearPassword() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.password = ""
}
