package tui

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jmylchreest/displayctl/internal/model"
	"github.com/jmylchreest/displayctl/internal/store"
)

// RunOptions configures the TUI.
type RunOptions struct {
	Displays Enumerator
	Operator Operator
	Record   Record
	Identify func(model.Handle) model.StableID
	Notifier Notifier
	Logger   *slog.Logger

	// WatchPath is the store file to watch for changes (empty = no watching).
	WatchPath string

	// Input and Output default to the terminal.
	Input  io.Reader
	Output io.Writer
}

// Run starts the TUI with the given options.
func Run(opts RunOptions) error {
	modelOpts := []Option{WithIdentify(opts.Identify), WithLogger(opts.Logger)}
	if opts.Notifier != nil {
		modelOpts = append(modelOpts, WithNotifier(opts.Notifier))
	}

	var watcher *store.FileWatcher
	if opts.WatchPath != "" {
		var err error
		watcher, err = store.NewFileWatcher(opts.WatchPath, opts.Logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to create file watcher: %v\n", err)
		} else if err := watcher.Start(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to start file watcher: %v\n", err)
		} else {
			modelOpts = append(modelOpts, WithWatcher(watcher.Events()))
		}
	}

	m := New(opts.Displays, opts.Operator, opts.Record, modelOpts...)

	programOpts := []tea.ProgramOption{tea.WithAltScreen()}
	if opts.Input != nil {
		programOpts = append(programOpts, tea.WithInput(opts.Input))
	}
	if opts.Output != nil {
		programOpts = append(programOpts, tea.WithOutput(opts.Output))
	}

	_, err := tea.NewProgram(m, programOpts...).Run()

	if watcher != nil {
		if err := watcher.Stop(); err != nil && opts.Logger != nil {
			opts.Logger.Debug("failed to stop file watcher", "error", err)
		}
	}

	return err
}
