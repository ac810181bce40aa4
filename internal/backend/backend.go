// Package backend provides the platform display capabilities: enumeration,
// UUID lookup, and the privileged enable/disable configuration API.
package backend

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/jmylchreest/displayctl/internal/identity"
	"github.com/jmylchreest/displayctl/internal/model"
	"github.com/jmylchreest/displayctl/internal/txn"
)

// ErrUnavailable is returned by Open when no display configuration
// capability can be resolved on this system.
var ErrUnavailable = errors.New("display configuration capability unavailable")

// Backend is a resolved display capability.
type Backend interface {
	identity.UUIDSource
	txn.Capability

	// Name returns the backend's registry name.
	Name() string

	// Displays returns the currently online displays.
	Displays() ([]model.Display, error)

	// Close releases the backend's resources.
	Close() error
}

// Options carries backend settings from configuration.
type Options struct {
	SimDisplays []SimDisplay
}

// Opener constructs a backend.
type Opener func(opts Options, logger *slog.Logger) (Backend, error)

// Auto selects the first available registered backend.
const Auto = "auto"

var (
	registry = map[string]Opener{}
	// autoOrder lists the backends Auto tries, in order.
	autoOrder []string
)

func register(name string, opener Opener, auto bool) {
	registry[name] = opener
	if auto {
		autoOrder = append(autoOrder, name)
	}
}

// Names returns the registered backend names, sorted.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Open resolves the named backend. Every failure to resolve a capability
// matches ErrUnavailable.
func Open(name string, opts Options, logger *slog.Logger) (Backend, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if name == "" || name == Auto {
		var errs []error
		for _, candidate := range autoOrder {
			b, err := registry[candidate](opts, logger)
			if err == nil {
				logger.Debug("selected display backend", "backend", candidate)
				return b, nil
			}
			logger.Debug("display backend unavailable", "backend", candidate, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", candidate, err))
		}
		if len(errs) == 0 {
			return nil, fmt.Errorf("%w: no backends for this platform", ErrUnavailable)
		}
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, errors.Join(errs...))
	}

	opener, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown backend %q (available: %v)", ErrUnavailable, name, Names())
	}
	b, err := opener(opts, logger)
	if err != nil {
		if errors.Is(err, ErrUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s: %w", ErrUnavailable, name, err)
	}
	return b, nil
}
