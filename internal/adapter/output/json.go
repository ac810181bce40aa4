package output

import (
	"encoding/json"
	"io"

	"github.com/jmylchreest/displayctl/internal/model"
)

// JSONFormatter formats output as indented JSON.
type JSONFormatter struct{}

// NewJSONFormatter creates a new JSON formatter.
func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{}
}

// FormatDisplays writes the entries as a JSON array.
func (f *JSONFormatter) FormatDisplays(w io.Writer, entries []DisplayEntry) error {
	if entries == nil {
		entries = []DisplayEntry{}
	}
	return encodeJSON(w, entries)
}

// FormatRecord writes the record as a JSON object.
func (f *JSONFormatter) FormatRecord(w io.Writer, rec Record) error {
	if rec.Entries == nil {
		rec.Entries = []model.StableID{}
	}
	return encodeJSON(w, rec)
}

func encodeJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
