package core

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jmylchreest/displayctl/internal/identity"
	"github.com/jmylchreest/displayctl/internal/model"
)

// ErrNoSuchDisplay is returned when a reference matches no online display.
var ErrNoSuchDisplay = errors.New("no such display")

// LookupByIndex finds a display by its 0-based menu index.
// Returns nil if index is out of bounds.
func LookupByIndex(displays []model.Display, index int) *model.Display {
	if index < 0 || index >= len(displays) {
		return nil
	}
	return &displays[index]
}

// LookupByHandle finds a display by its handle.
func LookupByHandle(displays []model.Display, h model.Handle) *model.Display {
	for i := range displays {
		if displays[i].Handle == h {
			return &displays[i]
		}
	}
	return nil
}

// FindDisplay resolves an operator reference to an online display. ref may
// be a menu index ("1"), a handle ("#724"), a stable identifier, or an
// output name (case-insensitive).
func FindDisplay(displays []model.Display, ref string, resolver *identity.Resolver) (*model.Display, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, fmt.Errorf("%w: empty reference", ErrNoSuchDisplay)
	}

	if n, err := strconv.Atoi(ref); err == nil {
		if d := LookupByIndex(displays, n); d != nil {
			return d, nil
		}
		return nil, fmt.Errorf("%w: index %d out of range [0, %d)", ErrNoSuchDisplay, n, len(displays))
	}

	if rest, ok := strings.CutPrefix(ref, "#"); ok {
		n, err := strconv.ParseUint(rest, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid handle %q", ErrNoSuchDisplay, ref)
		}
		if d := LookupByHandle(displays, model.Handle(n)); d != nil {
			return d, nil
		}
		return nil, fmt.Errorf("%w: handle %s is not online", ErrNoSuchDisplay, rest)
	}

	if resolver != nil {
		for i := range displays {
			if strings.EqualFold(string(resolver.IdentityFor(displays[i].Handle)), ref) {
				return &displays[i], nil
			}
		}
	}

	for i := range displays {
		if displays[i].Name != "" && strings.EqualFold(displays[i].Name, ref) {
			return &displays[i], nil
		}
	}

	return nil, fmt.Errorf("%w: %q", ErrNoSuchDisplay, ref)
}
