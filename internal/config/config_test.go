package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "auto", cfg.Backend)
	assert.Empty(t, cfg.Store.Path)
	assert.True(t, cfg.Apply.Permanent)
	assert.True(t, cfg.Notify.Enabled)
	assert.Equal(t, "5s", cfg.Notify.Timeout)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Empty(t, cfg.Sim.Displays)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfig_DefaultsWhenNoFile(t *testing.T) {
	cfg, err := LoadConfig("/nonexistent/path/config.toml")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfig_ParsesTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	content := `
backend = "sim"

[store]
path = "/var/tmp/displayctl/disabled"

[apply]
permanent = false

[notify]
enabled = false
timeout = "2s"

[log]
level = "debug"

[[sim.displays]]
handle = 1
uuid = "37D8832A-2D66-02CA-B9F7-8F30A301B230"
name = "Panel"
width = 1512
height = 982
main = true

[[sim.displays]]
handle = 2
name = "Projector"
x = 1512
width = 1920
height = 1080
disconnected = true
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "sim", cfg.Backend)
	assert.Equal(t, "/var/tmp/displayctl/disabled", cfg.StorePath())
	assert.False(t, cfg.Apply.Permanent)
	assert.False(t, cfg.Notify.Enabled)

	timeout, err := cfg.NotifyTimeout()
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, timeout)

	level, err := ParseLevel(cfg.Log.Level)
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)

	require.Len(t, cfg.Sim.Displays, 2)
	assert.Equal(t, uint32(1), cfg.Sim.Displays[0].Handle)
	assert.True(t, cfg.Sim.Displays[0].Main)
	assert.Equal(t, 1512, cfg.Sim.Displays[1].X)
	assert.True(t, cfg.Sim.Displays[1].Disconnected)
	assert.False(t, cfg.Sim.Displays[1].Disabled)
}

func TestLoadConfig_PartialKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[log]\nlevel = \"info\"\n"), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "auto", cfg.Backend)
	assert.True(t, cfg.Apply.Permanent)
}

func TestLoadConfig_InvalidTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("backend = [unterminated"), 0644))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestLoadConfig_InvalidValues(t *testing.T) {
	tests := map[string]string{
		"level":     "[log]\nlevel = \"loud\"\n",
		"timeout":   "[notify]\ntimeout = \"soon\"\n",
		"negative":  "[notify]\ntimeout = \"-1s\"\n",
		"duplicate": "[[sim.displays]]\nhandle = 1\n[[sim.displays]]\nhandle = 1\n",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			require.NoError(t, os.WriteFile(path, []byte(content), 0644))

			_, err := LoadConfig(path)
			assert.Error(t, err)
		})
	}
}

func TestStorePath(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, filepath.Join(StatePath(), DefaultStoreFile), cfg.StorePath())

	home, err := os.UserHomeDir()
	require.NoError(t, err)
	cfg.Store.Path = "~/displays/off"
	assert.Equal(t, filepath.Join(home, "displays", "off"), cfg.StorePath())
}

func TestParseLevel(t *testing.T) {
	for name, want := range map[string]slog.Level{
		"":        slog.LevelWarn,
		"DEBUG":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
	} {
		got, err := ParseLevel(name)
		require.NoError(t, err)
		assert.Equal(t, want, got, name)
	}
}

func TestConfig_SaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	cfg := DefaultConfig()
	cfg.Backend = "sim"
	cfg.Sim.Displays = []SimDisplayConfig{{Handle: 3, Name: "TV", Width: 3840, Height: 2160}}

	require.NoError(t, cfg.Save(path))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}
