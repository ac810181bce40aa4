// Package txn wraps the privileged display toggle capability in a
// begin/toggle/complete envelope.
package txn

import (
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/jmylchreest/displayctl/internal/model"
)

// Token is the capability's opaque handle for an open configuration.
type Token uint64

// Status is the integer result of a capability call. Zero means success.
type Status int32

// Status codes returned by capabilities.
const (
	StatusSuccess           Status = 0
	StatusFailure           Status = 1000
	StatusIllegalArgument   Status = 1001
	StatusInvalidConnection Status = 1002
	StatusInvalidContext    Status = 1003
	StatusCannotComplete    Status = 1004
	StatusNotImplemented    Status = 1006
	StatusRangeCheck        Status = 1007
	StatusTypeCheck         Status = 1008
	StatusInvalidOperation  Status = 1010
)

var statusNames = map[Status]string{
	StatusSuccess:           "success",
	StatusFailure:           "failure",
	StatusIllegalArgument:   "illegal argument",
	StatusInvalidConnection: "invalid connection",
	StatusInvalidContext:    "invalid context",
	StatusCannotComplete:    "cannot complete",
	StatusNotImplemented:    "not implemented",
	StatusRangeCheck:        "range check",
	StatusTypeCheck:         "type check",
	StatusInvalidOperation:  "invalid operation",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return fmt.Sprintf("%s (%d)", name, int32(s))
	}
	return fmt.Sprintf("status %d", int32(s))
}

// OK reports whether s is StatusSuccess.
func (s Status) OK() bool {
	return s == StatusSuccess
}

// Capability is the privileged display configuration API, resolved once at
// start-up.
type Capability interface {
	BeginConfiguration() (Token, Status)
	SetDisplayEnabled(tok Token, h model.Handle, enabled bool) Status
	CompleteConfiguration(tok Token, permanent bool) Status
}

// Operation errors. StatusError values match these with errors.Is.
var (
	ErrBeginFailed  = errors.New("failed to begin display configuration")
	ErrToggleFailed = errors.New("failed to toggle display")
	ErrCommitFailed = errors.New("failed to complete display configuration")
	ErrClosed       = errors.New("transaction already completed")
)

// StatusError carries the failing status of a capability call.
type StatusError struct {
	Op     error
	Handle model.Handle
	Status Status
}

func (e *StatusError) Error() string {
	if errors.Is(e.Op, ErrToggleFailed) {
		return fmt.Sprintf("%v %d: %s", e.Op, e.Handle, e.Status)
	}
	return fmt.Sprintf("%v: %s", e.Op, e.Status)
}

func (e *StatusError) Unwrap() error {
	return e.Op
}

// ToggleResult records the outcome of one Toggle call.
type ToggleResult struct {
	Handle  model.Handle
	Enabled bool
	Status  Status
}

// Transaction is one open configuration. It is single use: Complete closes
// it and no further calls are accepted.
type Transaction struct {
	capability Capability
	token      Token
	id         ulid.ULID
	results    []ToggleResult
	closed     bool
	logger     *slog.Logger
}

// Begin opens a configuration on capability.
func Begin(capability Capability, logger *slog.Logger) (*Transaction, error) {
	if logger == nil {
		logger = slog.Default()
	}

	id, err := ulid.New(ulid.Timestamp(time.Now()), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate transaction id: %w", err)
	}
	logger = logger.With("txn", id.String())

	tok, status := capability.BeginConfiguration()
	if !status.OK() {
		logger.Debug("begin configuration failed", "status", status)
		return nil, &StatusError{Op: ErrBeginFailed, Status: status}
	}
	logger.Debug("configuration begun")

	return &Transaction{
		capability: capability,
		token:      tok,
		id:         id,
		logger:     logger,
	}, nil
}

// ID returns the transaction's log correlation id.
func (t *Transaction) ID() string {
	return t.id.String()
}

// Toggle requests that h be enabled or disabled when the transaction
// completes. A failure is recorded and returned but leaves the transaction
// open for further toggles.
func (t *Transaction) Toggle(h model.Handle, enabled bool) error {
	if t.closed {
		return ErrClosed
	}

	status := t.capability.SetDisplayEnabled(t.token, h, enabled)
	t.results = append(t.results, ToggleResult{Handle: h, Enabled: enabled, Status: status})
	t.logger.Debug("toggle display", "handle", h, "enabled", enabled, "status", status)

	if !status.OK() {
		return &StatusError{Op: ErrToggleFailed, Handle: h, Status: status}
	}
	return nil
}

// Results returns the recorded toggle outcomes in call order.
func (t *Transaction) Results() []ToggleResult {
	return append([]ToggleResult(nil), t.results...)
}

// Complete commits every queued toggle. The transaction is closed whatever
// the outcome.
func (t *Transaction) Complete(permanent bool) error {
	if t.closed {
		return ErrClosed
	}
	t.closed = true

	status := t.capability.CompleteConfiguration(t.token, permanent)
	t.logger.Debug("complete configuration", "permanent", permanent, "toggles", len(t.results), "status", status)
	if !status.OK() {
		return &StatusError{Op: ErrCommitFailed, Status: status}
	}
	return nil
}
