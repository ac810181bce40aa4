// Package identity converts transient display handles into stable
// identifiers that survive reboots and topology changes, and back.
package identity

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/jmylchreest/displayctl/internal/model"
)

// ErrNotFound is returned when a stable identifier does not map to any
// currently connected display.
var ErrNotFound = errors.New("display not found")

// UUIDSource is the platform lookup between handles and display UUIDs.
type UUIDSource interface {
	// UUIDFor returns the UUID for the display behind h, if the platform can
	// produce one.
	UUIDFor(h model.Handle) (string, bool)

	// HandleForUUID returns the current handle of the display with the given
	// UUID, if one is connected.
	HandleForUUID(id string) (model.Handle, bool)
}

// Resolver maps between handles and stable identifiers.
type Resolver struct {
	src    UUIDSource
	logger *slog.Logger
}

// NewResolver creates a resolver backed by src.
func NewResolver(src UUIDSource, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{src: src, logger: logger}
}

// IdentityFor returns the stable identifier for h. When no usable UUID is
// available it degrades to the DISPLAY_ID_<handle> form; it never fails.
func (r *Resolver) IdentityFor(h model.Handle) model.StableID {
	if r.src != nil {
		if raw, ok := r.src.UUIDFor(h); ok {
			if _, err := uuid.Parse(raw); err == nil {
				return model.StableID(strings.ToUpper(raw))
			}
			r.logger.Debug("ignoring malformed display uuid", "handle", h, "uuid", raw)
		}
	}
	return model.FallbackID(h)
}

// HandleFor resolves id to a current handle.
//
// Fallback identifiers return their embedded handle verbatim without checking
// that the display is still online.
func (r *Resolver) HandleFor(id model.StableID) (model.Handle, error) {
	if h, ok := id.Fallback(); ok {
		return h, nil
	}
	if _, err := uuid.Parse(string(id)); err != nil {
		return 0, fmt.Errorf("%w: %q is neither a uuid nor a %s identifier", ErrNotFound, string(id), model.FallbackPrefix)
	}
	if r.src == nil {
		return 0, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	h, ok := r.src.HandleForUUID(string(id))
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return h, nil
}
