package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/displayctl/internal/backend"
	"github.com/jmylchreest/displayctl/internal/config"
	"github.com/jmylchreest/displayctl/internal/core"
	"github.com/jmylchreest/displayctl/internal/dbus"
	"github.com/jmylchreest/displayctl/internal/identity"
	"github.com/jmylchreest/displayctl/internal/model"
	"github.com/jmylchreest/displayctl/internal/store"
)

// Build-time variables (set via ldflags)
var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

// ExitCapabilityUnavailable is the exit status when no display
// configuration capability can be resolved.
const ExitCapabilityUnavailable = 3

// Global configuration and state
var (
	cfg        *config.Config
	globalOpts struct {
		verbose    bool
		configPath string
		storePath  string
		backend    string
	}
	logger   *slog.Logger
	logLevel = new(slog.LevelVar)

	// disabledStore is the on-disk disabled-display record.
	disabledStore *store.FilePersistence
	notifier      *dbus.Notifier

	// session is opened on demand by commands that touch displays.
	session *displaySession
)

// displaySession bundles the resolved backend with the manager built on it.
type displaySession struct {
	backend  backend.Backend
	resolver *identity.Resolver
	manager  *core.Manager
}

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "displayctl",
	Short: "Disable and restore physical displays",
	Long: `displayctl turns individual display outputs off and remembers which ones
it turned off, so they can all be restored later, even after a restart.

Displays are remembered by a stable identifier derived from the monitor's
EDID. Displays without one are remembered by their current numeric id.

Running displayctl without a subcommand launches the text menu.`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildTime),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Setup logging
		setupLogger()
		session = nil

		// Load configuration
		var err error
		cfg, err = config.LoadConfig(globalOpts.configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if !globalOpts.verbose {
			level, err := config.ParseLevel(cfg.Log.Level)
			if err != nil {
				return err
			}
			logLevel.Set(level)
		}

		storePath := globalOpts.storePath
		if storePath == "" {
			storePath = cfg.StorePath()
		}
		disabledStore = store.NewFilePersistence(storePath, logger)

		timeout, err := cfg.NotifyTimeout()
		if err != nil {
			return err
		}
		notifier = dbus.NewNotifier(cfg.Notify.Enabled, timeout, logger)

		return nil
	},
	// Default to the text menu when no subcommand is provided
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMenu(cmd, args)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := executeRoot(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		if errors.Is(err, backend.ErrUnavailable) {
			os.Exit(ExitCapabilityUnavailable)
		}
		os.Exit(1)
	}
}

// executeRoot runs the command line and releases the backend and session
// bus afterwards. Cobra skips post-run hooks when a command fails, so the
// cleanup happens here.
func executeRoot() error {
	err := rootCmd.Execute()
	if cerr := closeResources(); err == nil {
		err = cerr
	}
	return err
}

func closeResources() error {
	if notifier != nil {
		if err := notifier.Close(); err != nil && logger != nil {
			logger.Debug("failed to close session bus", "error", err)
		}
		notifier = nil
	}
	if session != nil {
		err := session.backend.Close()
		session = nil
		return err
	}
	return nil
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&globalOpts.verbose, "verbose", "v", false,
		"Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&globalOpts.configPath, "config", "",
		"Path to config file (default: ~/.config/displayctl/config.toml)")
	rootCmd.PersistentFlags().StringVar(&globalOpts.storePath, "store", "",
		"Path to the disabled-display record (default: ~/.local/state/displayctl/disabled-displays)")
	rootCmd.PersistentFlags().StringVar(&globalOpts.backend, "backend", "",
		fmt.Sprintf("Display backend %v (default from config, else auto)", append([]string{backend.Auto}, backend.Names()...)))
}

// setupLogger configures the global slog logger.
func setupLogger() {
	logLevel.Set(slog.LevelWarn)
	if globalOpts.verbose {
		logLevel.Set(slog.LevelDebug)
	}

	opts := &slog.HandlerOptions{
		Level: logLevel,
	}

	// Log to stderr so stdout is clean for output
	handler := slog.NewTextHandler(os.Stderr, opts)
	logger = slog.New(handler)
	slog.SetDefault(logger)
}

// openSession resolves the display capability once per process.
func openSession() (*displaySession, error) {
	if session != nil {
		return session, nil
	}

	name := globalOpts.backend
	if name == "" {
		name = cfg.Backend
	}

	b, err := backend.Open(name, backend.Options{SimDisplays: simDisplays(cfg)}, logger)
	if err != nil {
		return nil, err
	}

	resolver := identity.NewResolver(b, logger)
	session = &displaySession{
		backend:  b,
		resolver: resolver,
		manager: core.NewManager(b, resolver, disabledStore,
			core.WithPermanent(cfg.Apply.Permanent),
			core.WithLogger(logger)),
	}
	return session, nil
}

// simDisplays converts [[sim.displays]] into backend displays. An empty
// list leaves the simulated backend on its built-in layout.
func simDisplays(c *config.Config) []backend.SimDisplay {
	if len(c.Sim.Displays) == 0 {
		return nil
	}
	displays := make([]backend.SimDisplay, 0, len(c.Sim.Displays))
	for _, d := range c.Sim.Displays {
		displays = append(displays, backend.SimDisplay{
			Handle:    model.Handle(d.Handle),
			UUID:      d.UUID,
			Name:      d.Name,
			Bounds:    model.Rect{X: d.X, Y: d.Y, Width: d.Width, Height: d.Height},
			Main:      d.Main,
			Enabled:   !d.Disabled,
			Connected: !d.Disconnected,
		})
	}
	return displays
}

// notify sends a desktop notification, ignoring an unreachable bus.
func notify(summary, body string) {
	if notifier == nil || !notifier.Enabled() {
		return
	}
	if err := notifier.Notify(summary, body); err != nil {
		logger.Debug("desktop notification failed", "error", err)
	}
}
