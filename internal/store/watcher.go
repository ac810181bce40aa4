package store

import (
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// ChangeEvent reports that the store file was written, renamed into place,
// or removed.
type ChangeEvent struct {
	Path    string
	Removed bool
}

// FileWatcher watches the store file for out-of-band changes.
type FileWatcher struct {
	watcher  *fsnotify.Watcher
	filePath string
	events   chan ChangeEvent
	done     chan struct{}
	mu       sync.Mutex
	running  bool
	logger   *slog.Logger
}

// NewFileWatcher creates a new file watcher for filePath.
func NewFileWatcher(filePath string, logger *slog.Logger) (*FileWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &FileWatcher{
		watcher:  watcher,
		filePath: filePath,
		events:   make(chan ChangeEvent, 16),
		done:     make(chan struct{}),
		logger:   logger,
	}, nil
}

// Events returns the channel change notifications are delivered on.
func (fw *FileWatcher) Events() <-chan ChangeEvent {
	return fw.events
}

// Start begins watching the file for changes.
func (fw *FileWatcher) Start() error {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	if fw.running {
		return nil
	}

	// Watch the directory containing the file; Rewrite replaces the file by
	// rename, which drops watches placed on the file itself.
	dir := filepath.Dir(fw.filePath)
	if err := fw.watcher.Add(dir); err != nil {
		return err
	}

	fw.running = true
	go fw.watch()
	return nil
}

func (fw *FileWatcher) watch() {
	filename := filepath.Base(fw.filePath)

	for {
		select {
		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != filename {
				continue
			}

			var ev ChangeEvent
			switch {
			case event.Has(fsnotify.Write), event.Has(fsnotify.Create):
				ev = ChangeEvent{Path: fw.filePath}
			case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
				ev = ChangeEvent{Path: fw.filePath, Removed: true}
			default:
				continue
			}

			fw.logger.Debug("disabled-display store changed", "file", fw.filePath, "op", event.Op.String())
			select {
			case fw.events <- ev:
			default:
				// A pending event already tells the reader to reload.
			}

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			fw.logger.Warn("file watcher error", "error", err)

		case <-fw.done:
			return
		}
	}
}

// Stop stops the file watcher.
func (fw *FileWatcher) Stop() error {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	if !fw.running {
		return fw.watcher.Close()
	}

	fw.running = false
	close(fw.done)
	return fw.watcher.Close()
}
