package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/displayctl/internal/backend"
	"github.com/jmylchreest/displayctl/internal/config"
	"github.com/jmylchreest/displayctl/internal/model"
)

const testConfig = `
backend = "sim"

[notify]
enabled = false

[[sim.displays]]
handle = 1
uuid = "37D8832A-2D66-02CA-B9F7-8F30A301B230"
name = "Panel"
width = 1512
height = 982
main = true

[[sim.displays]]
handle = 724
name = "Projector"
x = 1512
width = 1920
height = 1080
`

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := executeRoot()
	return out.String(), err
}

func testEnv(t *testing.T) (configPath, storePath string) {
	t.Helper()
	dir := t.TempDir()
	configPath = filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(configPath, []byte(testConfig), 0644))
	return configPath, filepath.Join(dir, "state", "disabled-displays")
}

func TestSimDisplays(t *testing.T) {
	assert.Nil(t, simDisplays(config.DefaultConfig()))

	cfg := config.DefaultConfig()
	cfg.Sim.Displays = []config.SimDisplayConfig{
		{Handle: 3, Name: "TV", X: 10, Width: 3840, Height: 2160, Disconnected: true},
	}
	displays := simDisplays(cfg)
	require.Len(t, displays, 1)
	assert.Equal(t, model.Handle(3), displays[0].Handle)
	assert.Equal(t, model.Rect{X: 10, Width: 3840, Height: 2160}, displays[0].Bounds)
	assert.True(t, displays[0].Enabled)
	assert.False(t, displays[0].Connected)
}

func TestParseFormat(t *testing.T) {
	format, err := parseFormat("json")
	require.NoError(t, err)
	assert.Equal(t, "json", string(format))

	_, err = parseFormat("xml")
	assert.Error(t, err)
}

func TestCLI_DisableStatusRestore(t *testing.T) {
	configPath, storePath := testEnv(t)
	global := []string{"--config", configPath, "--store", storePath}

	out, err := execute(t, append(global, "list", "--format", "ids")...)
	require.NoError(t, err)
	assert.Equal(t, "37D8832A-2D66-02CA-B9F7-8F30A301B230\nDISPLAY_ID_724\n", out)

	out, err = execute(t, append(global, "disable", "projector")...)
	require.NoError(t, err)
	assert.Contains(t, out, "Disabled Projector (#724)")
	assert.Contains(t, out, "DISPLAY_ID_724")

	data, err := os.ReadFile(storePath)
	require.NoError(t, err)
	assert.Equal(t, "DISPLAY_ID_724\n", string(data))

	out, err = execute(t, append(global, "status", "--format", "ids")...)
	require.NoError(t, err)
	assert.Equal(t, "DISPLAY_ID_724\n", out)

	// Each run starts a fresh simulated backend, so the projector is back
	// on, and the fallback id still resolves to its handle.
	out, err = execute(t, append(global, "restore")...)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "Restored 1 display"))

	data, err = os.ReadFile(storePath)
	require.NoError(t, err)
	assert.Empty(t, string(data))
}

func TestCLI_UnknownReference(t *testing.T) {
	configPath, storePath := testEnv(t)

	_, err := execute(t, "--config", configPath, "--store", storePath, "disable", "HDMI-9")
	assert.Error(t, err)
	assert.Nil(t, session, "backend is released after a failed command")
	assert.Nil(t, notifier)
	_, statErr := os.Stat(storePath)
	assert.True(t, os.IsNotExist(statErr))
}

func TestCLI_UnavailableBackend(t *testing.T) {
	configPath, storePath := testEnv(t)
	t.Cleanup(func() { globalOpts.backend = "" })

	_, err := execute(t, "--config", configPath, "--store", storePath, "--backend", "bogus", "list")
	require.Error(t, err)
	assert.True(t, errors.Is(err, backend.ErrUnavailable))
}

func TestCLI_ConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "displayctl", "config.toml")
	t.Cleanup(func() { configOpts.force = false })

	out, err := execute(t, "--config", path, "config", "init")
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote "+path)

	loaded, err := config.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultBackend, loaded.Backend)
	assert.True(t, loaded.Apply.Permanent)
	assert.Equal(t, config.DefaultLogLevel, loaded.Log.Level)

	_, err = execute(t, "--config", path, "config", "init")
	assert.ErrorContains(t, err, "already exists")

	_, err = execute(t, "--config", path, "config", "init", "--force")
	assert.NoError(t, err)
}
