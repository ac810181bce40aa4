// Package model defines the core data structures for displayctl.
package model

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// FallbackPrefix marks a stable identifier synthesized from a raw display
// handle because no UUID could be obtained for the display.
const FallbackPrefix = "DISPLAY_ID_"

// Handle is the platform's transient identifier for an online display.
// It is only valid for the topology snapshot it was enumerated from.
type Handle uint32

// String returns the handle in decimal form.
func (h Handle) String() string {
	return strconv.FormatUint(uint64(h), 10)
}

// Rect describes a rectangular region in global screen coordinates.
type Rect struct {
	X      int `json:"x" yaml:"x"`
	Y      int `json:"y" yaml:"y"`
	Width  int `json:"width" yaml:"width"`
	Height int `json:"height" yaml:"height"`
}

// String renders the rect as "x, y, width, height".
func (r Rect) String() string {
	return fmt.Sprintf("%d, %d, %d, %d", r.X, r.Y, r.Width, r.Height)
}

// Display is one entry of a live display enumeration.
type Display struct {
	Handle Handle `json:"handle" yaml:"handle"`
	Name   string `json:"name,omitempty" yaml:"name,omitempty"`
	Bounds Rect   `json:"bounds" yaml:"bounds"`
	Main   bool   `json:"main" yaml:"main"`
}

// Label returns a short human-readable description of the display.
func (d Display) Label() string {
	var b strings.Builder
	if d.Name != "" {
		fmt.Fprintf(&b, "%s (#%d)", d.Name, d.Handle)
	} else {
		fmt.Fprintf(&b, "Display #%d", d.Handle)
	}
	fmt.Fprintf(&b, " [%s]", d.Bounds)
	if d.Main {
		b.WriteString(" main")
	}
	return b.String()
}

// StableID is a persistence-safe name for a physical display. It is either a
// UUID string tied to the display's EDID, or a FallbackPrefix form carrying
// the raw numeric handle.
type StableID string

// ErrEmptyStableID is returned when an empty identifier is validated.
var ErrEmptyStableID = errors.New("stable id cannot be empty")

// FallbackID returns the synthetic identifier for h.
func FallbackID(h Handle) StableID {
	return StableID(FallbackPrefix + h.String())
}

// Fallback parses a FallbackPrefix identifier and returns the embedded
// handle. ok is false for UUID-form or malformed identifiers.
func (s StableID) Fallback() (h Handle, ok bool) {
	rest, found := strings.CutPrefix(string(s), FallbackPrefix)
	if !found || rest == "" {
		return 0, false
	}
	n, err := strconv.ParseUint(rest, 10, 32)
	if err != nil {
		return 0, false
	}
	return Handle(n), true
}

// IsFallback reports whether s is a well-formed synthetic identifier.
func (s StableID) IsFallback() bool {
	_, ok := s.Fallback()
	return ok
}

// Validate checks that the identifier can be written as a single store line.
func (s StableID) Validate() error {
	if s == "" {
		return ErrEmptyStableID
	}
	if strings.ContainsAny(string(s), "\r\n") {
		return fmt.Errorf("stable id %q contains a line break", string(s))
	}
	return nil
}

// Dedupe returns ids with duplicates removed, keeping first-seen order.
func Dedupe(ids []StableID) []StableID {
	seen := make(map[StableID]struct{}, len(ids))
	out := make([]StableID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
