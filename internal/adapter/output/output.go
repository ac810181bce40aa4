// Package output provides output formatters for displays and the
// disabled-display record.
package output

import (
	"io"
	"time"

	"github.com/jmylchreest/displayctl/internal/model"
)

// DisplayEntry is one enumerated display together with its menu index and
// stable identifier.
type DisplayEntry struct {
	Index   int            `json:"index" yaml:"index"`
	Display model.Display  `json:"display" yaml:"display"`
	ID      model.StableID `json:"id" yaml:"id"`
}

// Record describes the persisted disabled-display record.
type Record struct {
	Path      string           `json:"path" yaml:"path"`
	UpdatedAt time.Time        `json:"updated_at,omitzero" yaml:"updated_at,omitempty"`
	Entries   []model.StableID `json:"entries" yaml:"entries"`
}

// Formatter renders displays and the disabled-display record.
type Formatter interface {
	// FormatDisplays writes the live display list.
	FormatDisplays(w io.Writer, entries []DisplayEntry) error

	// FormatRecord writes the disabled-display record.
	FormatRecord(w io.Writer, rec Record) error
}

// FormatType represents an output format type.
type FormatType string

const (
	FormatPlain FormatType = "plain"
	FormatJSON  FormatType = "json"
	FormatYAML  FormatType = "yaml"
	FormatDmenu FormatType = "dmenu"
	FormatIDs   FormatType = "ids"
)

// FormatTypes lists the supported format names.
func FormatTypes() []FormatType {
	return []FormatType{FormatPlain, FormatJSON, FormatYAML, FormatDmenu, FormatIDs}
}

// NewFormatter creates a formatter for the specified format type.
func NewFormatter(format FormatType) Formatter {
	switch format {
	case FormatJSON:
		return NewJSONFormatter()
	case FormatYAML:
		return NewYAMLFormatter()
	case FormatDmenu:
		return NewDmenuFormatter(" | ")
	case FormatIDs:
		return NewIDsFormatter()
	case FormatPlain:
		fallthrough
	default:
		return NewPlainFormatter(time.Now)
	}
}

// Entries pairs displays with their menu index and stable identifier.
func Entries(displays []model.Display, identify func(model.Handle) model.StableID) []DisplayEntry {
	entries := make([]DisplayEntry, len(displays))
	for i, d := range displays {
		entries[i] = DisplayEntry{Index: i, Display: d, ID: identify(d.Handle)}
	}
	return entries
}
