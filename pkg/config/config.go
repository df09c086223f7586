// Package config loads and saves shelf's user settings: where the working
// copy lives, which remotes it tracks, and who the author is.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config is the TOML settings file.
type Config struct {
	// WorkDir is the git working directory holding the object database.
	WorkDir string `toml:"workdir"`

	Remote RemoteConfig `toml:"remote"`
	Author AuthorConfig `toml:"author"`

	// SyncIntervalSeconds drives the background synchronization timer.
	// Zero disables timed sync.
	SyncIntervalSeconds int `toml:"sync_interval_seconds,omitempty"`
}

// RemoteConfig names the repositories the store synchronizes with.
type RemoteConfig struct {
	// Origin is the user's writable fork. Required.
	Origin string `toml:"origin"`
	// Upstream is the read-only canonical source. Optional.
	Upstream string `toml:"upstream,omitempty"`
	// Username authenticates against origin. Stored here; the password
	// never is.
	Username string `toml:"username,omitempty"`
}

// AuthorConfig is the commit identity.
type AuthorConfig struct {
	Name  string `toml:"name"`
	Email string `toml:"email"`
}

// DefaultPath returns the settings file location, honoring SHELF_CONFIG.
func DefaultPath() (string, error) {
	if p := os.Getenv("SHELF_CONFIG"); p != "" {
		return p, nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("config path: %w", err)
	}
	return filepath.Join(dir, "shelf", "config.toml"), nil
}

// Load reads the settings file at path. A missing file returns an empty
// config and no error; Validate decides whether that is acceptable.
func Load(path string) (*Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &cfg, nil
		}
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("load config %q: %w", path, err)
	}
	return &cfg, nil
}

// Validate reports every missing required setting at once so a first-run
// user fixes the file in one pass.
func (c *Config) Validate() error {
	var missing []string
	if c.WorkDir == "" {
		missing = append(missing, "workdir")
	} else if !filepath.IsAbs(c.WorkDir) {
		return fmt.Errorf("config: workdir must be an absolute path, got %q", c.WorkDir)
	}
	if c.Remote.Origin == "" {
		missing = append(missing, "remote.origin")
	}
	if c.Author.Name == "" {
		missing = append(missing, "author.name")
	}
	if c.Author.Email == "" {
		missing = append(missing, "author.email")
	}
	if len(missing) > 0 {
		return fmt.Errorf("config: missing required settings: %s", strings.Join(missing, ", "))
	}
	return nil
}

// Save atomically writes the settings file, creating parent directories as
// needed.
func Save(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("save config: mkdir %q: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".config-tmp-*")
	if err != nil {
		return fmt.Errorf("save config: tmpfile: %w", err)
	}
	tmpName := tmp.Name()

	if err := toml.NewEncoder(tmp).Encode(cfg); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("save config: encode: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("save config: close: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("save config: rename: %w", err)
	}
	return nil
}
