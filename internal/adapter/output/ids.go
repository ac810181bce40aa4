package output

import (
	"fmt"
	"io"
)

// IDsFormatter outputs just the stable identifiers, one per line.
// The record form is byte-compatible with the store file.
type IDsFormatter struct{}

// NewIDsFormatter creates a new IDs formatter.
func NewIDsFormatter() *IDsFormatter {
	return &IDsFormatter{}
}

// FormatDisplays writes each display's stable identifier.
func (f *IDsFormatter) FormatDisplays(w io.Writer, entries []DisplayEntry) error {
	for _, e := range entries {
		if _, err := fmt.Fprintln(w, e.ID); err != nil {
			return err
		}
	}
	return nil
}

// FormatRecord writes the recorded identifiers.
func (f *IDsFormatter) FormatRecord(w io.Writer, rec Record) error {
	for _, id := range rec.Entries {
		if _, err := fmt.Fprintln(w, id); err != nil {
			return err
		}
	}
	return nil
}
