package main

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/displayctl/internal/tui"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch the interactive display picker",
	Long: `Launch the interactive terminal user interface for disabling displays.

The picker refreshes when the disabled-display record changes on disk.

Key bindings:
  j/k, ↑/↓    Navigate list
  enter, d    Disable the selected display
  R           Restore all disabled displays
  r           Refresh the display list
  ?           Show help
  q           Quit`,
	Args: cobra.NoArgs,
	RunE: runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}

	// The watcher needs the directory to exist.
	watchPath := disabledStore.Path()
	if err := os.MkdirAll(filepath.Dir(watchPath), 0700); err != nil {
		logger.Warn("cannot watch disabled-display record", "path", watchPath, "error", err)
		watchPath = ""
	}

	opts := tui.RunOptions{
		Displays:  s.backend,
		Operator:  s.manager,
		Record:    disabledStore,
		Identify:  s.resolver.IdentityFor,
		Logger:    logger,
		WatchPath: watchPath,
	}
	if notifier.Enabled() {
		opts.Notifier = notifier
	}
	return tui.Run(opts)
}
