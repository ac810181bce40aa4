// Package config handles configuration file loading and parsing.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/pelletier/go-toml/v2"
)

// AppName names the XDG config and state subdirectories.
const AppName = "displayctl"

// Default configuration values.
const (
	DefaultBackend       = "auto"
	DefaultNotifyTimeout = "5s"
	DefaultLogLevel      = "warn"
	DefaultStoreFile     = "disabled-displays"
)

// Config represents the displayctl configuration.
type Config struct {
	Backend string       `toml:"backend"` // auto, randr, sim
	Store   StoreConfig  `toml:"store"`
	Apply   ApplyConfig  `toml:"apply"`
	Notify  NotifyConfig `toml:"notify"`
	Log     LogConfig    `toml:"log"`
	Sim     SimConfig    `toml:"sim"`
}

// StoreConfig locates the disabled-display record.
type StoreConfig struct {
	Path string `toml:"path"` // Empty = $XDG_STATE_HOME/displayctl/disabled-displays
}

// ApplyConfig controls how configuration changes are committed.
type ApplyConfig struct {
	Permanent bool `toml:"permanent"` // Keep changes beyond the current session
}

// NotifyConfig controls desktop notifications after a change.
type NotifyConfig struct {
	Enabled bool   `toml:"enabled"`
	Timeout string `toml:"timeout"` // Popup expiry, Go duration
}

// LogConfig holds logging options.
type LogConfig struct {
	Level string `toml:"level"` // debug, info, warn, error
}

// SimConfig describes the displays of the simulated backend.
type SimConfig struct {
	Displays []SimDisplayConfig `toml:"displays"`
}

// SimDisplayConfig is one simulated display. Displays start enabled and
// connected unless stated otherwise.
type SimDisplayConfig struct {
	Handle       uint32 `toml:"handle"`
	UUID         string `toml:"uuid"`
	Name         string `toml:"name"`
	X            int    `toml:"x"`
	Y            int    `toml:"y"`
	Width        int    `toml:"width"`
	Height       int    `toml:"height"`
	Main         bool   `toml:"main"`
	Disabled     bool   `toml:"disabled"`
	Disconnected bool   `toml:"disconnected"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Backend: DefaultBackend,
		Apply: ApplyConfig{
			Permanent: true,
		},
		Notify: NotifyConfig{
			Enabled: true,
			Timeout: DefaultNotifyTimeout,
		},
		Log: LogConfig{
			Level: DefaultLogLevel,
		},
	}
}

// ConfigPath returns the default path of the config file.
func ConfigPath() string {
	return filepath.Join(xdg.ConfigHome, AppName, "config.toml")
}

// StatePath returns the state directory.
func StatePath() string {
	return filepath.Join(xdg.StateHome, AppName)
}

// StorePath returns the path of the disabled-display record, honoring
// [store].path when set.
func (c *Config) StorePath() string {
	if c.Store.Path != "" {
		return expandHome(c.Store.Path)
	}
	return filepath.Join(StatePath(), DefaultStoreFile)
}

func expandHome(path string) string {
	rest, ok := strings.CutPrefix(path, "~/")
	if !ok {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, rest)
}

// LoadConfig loads configuration from the specified path.
// If path is empty, uses the default config path.
// Returns default config if file doesn't exist.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		path = ConfigPath()
	}

	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, err
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return cfg, nil
}

// Validate checks values that cannot be expressed in the TOML types.
func (c *Config) Validate() error {
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}
	if _, err := c.NotifyTimeout(); err != nil {
		return err
	}
	seen := make(map[uint32]bool, len(c.Sim.Displays))
	for _, d := range c.Sim.Displays {
		if seen[d.Handle] {
			return fmt.Errorf("sim display handle %d defined twice", d.Handle)
		}
		seen[d.Handle] = true
	}
	return nil
}

// NotifyTimeout parses [notify].timeout. An empty value means the default.
func (c *Config) NotifyTimeout() (time.Duration, error) {
	raw := c.Notify.Timeout
	if raw == "" {
		raw = DefaultNotifyTimeout
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("notify timeout: %w", err)
	}
	if d < 0 {
		return 0, fmt.Errorf("notify timeout must not be negative: %s", raw)
	}
	return d, nil
}

// ParseLevel converts a level name into a slog.Level. An empty name means
// the default level.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "", "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", name)
	}
}

// Save writes the configuration to the specified path.
// Creates parent directories if needed.
func (c *Config) Save(path string) error {
	if path == "" {
		path = ConfigPath()
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
