// Package store persists the set of displays displayctl believes it has
// disabled.
package store

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/jmylchreest/displayctl/internal/model"
)

// Persistence defines the interface for disabled-set storage.
type Persistence interface {
	// Load returns the stored identifiers in file order. Read failures
	// degrade to an empty result.
	Load() []model.StableID

	// AppendOne adds a single identifier. Duplicates are not filtered.
	AppendOne(id model.StableID) error

	// Rewrite replaces the stored identifiers with ids.
	Rewrite(ids []model.StableID) error
}

// FilePersistence stores one identifier per line in a plain text file.
type FilePersistence struct {
	path   string
	logger *slog.Logger
}

var _ Persistence = (*FilePersistence)(nil)

// NewFilePersistence creates a FilePersistence for path. The file is not
// created until the first write.
func NewFilePersistence(path string, logger *slog.Logger) *FilePersistence {
	if logger == nil {
		logger = slog.Default()
	}
	return &FilePersistence{path: path, logger: logger}
}

// Path returns the backing file path.
func (p *FilePersistence) Path() string {
	return p.path
}

// ModTime returns when the store file was last written. ok is false when
// the file does not exist.
func (p *FilePersistence) ModTime() (t time.Time, ok bool) {
	info, err := os.Stat(p.path)
	if err != nil {
		return time.Time{}, false
	}
	return info.ModTime(), true
}

// Load reads all identifiers from the store file.
func (p *FilePersistence) Load() []model.StableID {
	f, err := os.Open(p.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			p.logger.Warn("failed to open disabled-display store, treating as empty", "path", p.path, "error", err)
		}
		return nil
	}
	defer f.Close()

	ids, skipped, err := readLines(f)
	if err != nil {
		p.logger.Warn("failed to read disabled-display store, treating as empty", "path", p.path, "error", err)
		return nil
	}
	if skipped > 0 {
		p.logger.Warn("ignored over-long lines in disabled-display store", "path", p.path, "lines", skipped)
	}
	return ids
}

// MaxIDLength bounds a stored identifier. Longer lines cannot be a UUID or
// a fallback id and are skipped on load.
const MaxIDLength = 256

// readLines parses newline-delimited identifiers, dropping empty and
// over-long lines. It returns how many over-long lines were dropped.
func readLines(r io.Reader) ([]model.StableID, int, error) {
	var ids []model.StableID
	skipped := 0
	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, 0, err
		}
		line = strings.TrimSuffix(strings.TrimSuffix(line, "\n"), "\r")
		switch {
		case line == "":
		case len(line) > MaxIDLength:
			skipped++
		default:
			ids = append(ids, model.StableID(line))
		}
		if err != nil {
			return ids, skipped, nil
		}
	}
}

// AppendOne appends id as a new line, creating the file if needed.
func (p *FilePersistence) AppendOne(id model.StableID) error {
	if err := id.Validate(); err != nil {
		return err
	}
	if err := p.ensureDir(); err != nil {
		return err
	}

	f, err := os.OpenFile(p.path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0600)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", p.path, err)
	}

	if _, err := f.WriteString(string(id) + "\n"); err != nil {
		f.Close()
		return fmt.Errorf("failed to append to %s: %w", p.path, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("failed to sync %s: %w", p.path, err)
	}
	return f.Close()
}

// Rewrite replaces the file contents with ids. The new contents are written
// to a temp file in the same directory and renamed into place, so a crash
// leaves either the old or the new record.
func (p *FilePersistence) Rewrite(ids []model.StableID) error {
	for _, id := range ids {
		if err := id.Validate(); err != nil {
			return err
		}
	}
	if err := p.ensureDir(); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(p.path), filepath.Base(p.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	cleanup := func() {
		tmp.Close()
		os.Remove(tmpPath)
	}

	w := bufio.NewWriter(tmp)
	for _, id := range ids {
		if _, err := w.WriteString(string(id) + "\n"); err != nil {
			cleanup()
			return fmt.Errorf("failed to write temp file: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		cleanup()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Chmod(0600); err != nil {
		cleanup()
		return err
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}

	if err := os.Rename(tmpPath, p.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace %s: %w", p.path, err)
	}
	return nil
}

func (p *FilePersistence) ensureDir() error {
	dir := filepath.Dir(p.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return nil
}

// MemoryPersistence is an in-memory Persistence. AppendErr and RewriteErr,
// when set, are returned instead of performing the write.
type MemoryPersistence struct {
	mu  sync.Mutex
	ids []model.StableID

	AppendErr  error
	RewriteErr error
}

var _ Persistence = (*MemoryPersistence)(nil)

// NewMemoryPersistence creates a MemoryPersistence seeded with ids.
func NewMemoryPersistence(ids ...model.StableID) *MemoryPersistence {
	return &MemoryPersistence{ids: append([]model.StableID(nil), ids...)}
}

// Load returns a copy of the stored identifiers.
func (m *MemoryPersistence) Load() []model.StableID {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.StableID(nil), m.ids...)
}

// AppendOne appends id.
func (m *MemoryPersistence) AppendOne(id model.StableID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.AppendErr != nil {
		return m.AppendErr
	}
	if err := id.Validate(); err != nil {
		return err
	}
	m.ids = append(m.ids, id)
	return nil
}

// Rewrite replaces the stored identifiers.
func (m *MemoryPersistence) Rewrite(ids []model.StableID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.RewriteErr != nil {
		return m.RewriteErr
	}
	m.ids = append([]model.StableID(nil), ids...)
	return nil
}
