// Package core provides the display state manager and display lookup logic.
package core

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmylchreest/displayctl/internal/identity"
	"github.com/jmylchreest/displayctl/internal/model"
	"github.com/jmylchreest/displayctl/internal/store"
	"github.com/jmylchreest/displayctl/internal/txn"
)

// Manager errors.
var (
	// ErrTransactionOpen is returned when an operation starts while another
	// still holds the configuration transaction.
	ErrTransactionOpen = errors.New("a display configuration is already in progress")

	// ErrStoreInconsistent wraps store write failures. The displays were
	// reconfigured but the on-disk record no longer matches.
	ErrStoreInconsistent = errors.New("disabled-display record may be stale")
)

// Manager orchestrates disable and restore operations against a capability,
// keeping the disabled-display store in step with what succeeded.
type Manager struct {
	capability txn.Capability
	resolver   *identity.Resolver
	store      store.Persistence
	permanent  bool
	logger     *slog.Logger

	busy bool
}

// Option configures a Manager.
type Option func(*Manager)

// WithPermanent sets whether committed changes outlive the session.
// The default is true.
func WithPermanent(permanent bool) Option {
	return func(m *Manager) { m.permanent = permanent }
}

// WithLogger sets the manager's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewManager creates a Manager.
func NewManager(capability txn.Capability, resolver *identity.Resolver, st store.Persistence, opts ...Option) *Manager {
	m := &Manager{
		capability: capability,
		resolver:   resolver,
		store:      st,
		permanent:  true,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// DisableResult describes a completed DisableOne call.
type DisableResult struct {
	Handle model.Handle
	ID     model.StableID
}

// DisableOne turns off the display behind h and records its stable
// identifier. The store is only written when the toggle and the commit both
// succeeded.
func (m *Manager) DisableOne(h model.Handle) (DisableResult, error) {
	result := DisableResult{Handle: h}

	if err := m.acquire(); err != nil {
		return result, err
	}
	defer m.release()

	tx, err := txn.Begin(m.capability, m.logger)
	if err != nil {
		return result, err
	}

	toggleErr := tx.Toggle(h, false)
	// The envelope is closed even when the toggle failed.
	commitErr := tx.Complete(m.permanent)
	if toggleErr != nil {
		return result, toggleErr
	}
	if commitErr != nil {
		m.logger.Warn("disable commit failed, display state unknown", "handles", appliedHandles(tx.Results()), "error", commitErr)
		return result, commitErr
	}

	result.ID = m.resolver.IdentityFor(h)
	if err := m.store.AppendOne(result.ID); err != nil {
		m.logger.Warn("display disabled but not recorded", "handle", h, "id", result.ID, "error", err)
		return result, fmt.Errorf("%w: failed to record %s: %w", ErrStoreInconsistent, result.ID, err)
	}

	m.logger.Info("display disabled", "handle", h, "id", result.ID, "txn", tx.ID())
	return result, nil
}

// ItemFailure is a candidate whose re-enable did not succeed.
type ItemFailure struct {
	ID  model.StableID
	Err error
}

// RestoreReport summarizes a RestoreAll pass.
type RestoreReport struct {
	// Candidates are the deduplicated store entries, in first-seen order.
	Candidates []model.StableID

	// Restored are the identifiers whose displays were re-enabled and
	// committed.
	Restored []model.StableID

	// Failed are the resolvable candidates that were not restored.
	Failed []ItemFailure

	// Unresolved are candidates that no longer map to a connected display.
	Unresolved []model.StableID

	// CommitErr is set when the commit failed. The physical state of every
	// toggled display is then unknown.
	CommitErr error

	// Remaining is the store content after the pass.
	Remaining []model.StableID
}

// Changed reports whether any display was restored.
func (r RestoreReport) Changed() bool {
	return len(r.Restored) > 0
}

// RestoreAll re-enables every display in the store that can still be
// resolved, in a single transaction, and rewrites the store to hold only
// the entries that were not restored.
func (m *Manager) RestoreAll() (RestoreReport, error) {
	var report RestoreReport

	if err := m.acquire(); err != nil {
		return report, err
	}
	defer m.release()

	entries := m.store.Load()
	report.Remaining = entries
	if len(entries) == 0 {
		return report, nil
	}
	report.Candidates = model.Dedupe(entries)

	tx, err := txn.Begin(m.capability, m.logger)
	if err != nil {
		return report, err
	}

	var toggled []model.StableID
	for _, id := range report.Candidates {
		h, err := m.resolver.HandleFor(id)
		if err != nil {
			m.logger.Warn("skipping display that is no longer connected", "id", id, "error", err)
			report.Unresolved = append(report.Unresolved, id)
			continue
		}
		if err := tx.Toggle(h, true); err != nil {
			report.Failed = append(report.Failed, ItemFailure{ID: id, Err: err})
			continue
		}
		toggled = append(toggled, id)
	}

	if err := tx.Complete(m.permanent); err != nil {
		m.logger.Warn("restore commit failed, display state unknown", "handles", appliedHandles(tx.Results()), "error", err)
		report.CommitErr = err
		for _, id := range toggled {
			report.Failed = append(report.Failed, ItemFailure{ID: id, Err: err})
		}
		return report, nil
	}
	report.Restored = toggled

	if !report.Changed() {
		return report, nil
	}

	restored := make(map[model.StableID]struct{}, len(report.Restored))
	for _, id := range report.Restored {
		restored[id] = struct{}{}
	}
	remaining := make([]model.StableID, 0, len(entries))
	for _, id := range entries {
		if _, ok := restored[id]; !ok {
			remaining = append(remaining, id)
		}
	}

	if err := m.store.Rewrite(remaining); err != nil {
		m.logger.Warn("displays restored but record not updated", "restored", len(report.Restored), "error", err)
		return report, fmt.Errorf("%w: failed to rewrite record: %w", ErrStoreInconsistent, err)
	}
	report.Remaining = remaining

	m.logger.Info("displays restored", "restored", len(report.Restored), "remaining", len(remaining), "txn", tx.ID())
	return report, nil
}

// appliedHandles lists the handles whose toggle was accepted, which a failed
// commit may have left in either state.
func appliedHandles(results []txn.ToggleResult) []model.Handle {
	var handles []model.Handle
	for _, r := range results {
		if r.Status.OK() {
			handles = append(handles, r.Handle)
		}
	}
	return handles
}

func (m *Manager) acquire() error {
	if m.busy {
		return ErrTransactionOpen
	}
	m.busy = true
	return nil
}

func (m *Manager) release() {
	m.busy = false
}
