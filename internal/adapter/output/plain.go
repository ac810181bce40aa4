package output

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// PlainFormatter formats output as human-readable text.
type PlainFormatter struct {
	now func() time.Time
}

// NewPlainFormatter creates a new plain text formatter. now supplies the
// reference time for relative timestamps.
func NewPlainFormatter(now func() time.Time) *PlainFormatter {
	if now == nil {
		now = time.Now
	}
	return &PlainFormatter{now: now}
}

// FormatDisplays writes the display count followed by one block per display.
func (f *PlainFormatter) FormatDisplays(w io.Writer, entries []DisplayEntry) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Number of active displays: %d\n", len(entries))
	for _, e := range entries {
		d := e.Display
		fmt.Fprintf(&sb, "[%d] Display ID: %d", e.Index, d.Handle)
		if d.Name != "" {
			fmt.Fprintf(&sb, " (%s)", d.Name)
		}
		if d.Main {
			sb.WriteString(" main")
		}
		sb.WriteString("\n")
		fmt.Fprintf(&sb, "    %s\n", d.Bounds)
		fmt.Fprintf(&sb, "    %s\n", e.ID)
	}
	_, err := io.WriteString(w, sb.String())
	return err
}

// FormatRecord writes the record path, age, and entries.
func (f *PlainFormatter) FormatRecord(w io.Writer, rec Record) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Record: %s\n", rec.Path)
	if rec.UpdatedAt.IsZero() {
		sb.WriteString("Updated: never\n")
	} else {
		fmt.Fprintf(&sb, "Updated: %s\n", humanize.RelTime(rec.UpdatedAt, f.now(), "ago", "from now"))
	}

	if len(rec.Entries) == 0 {
		sb.WriteString("No displays are recorded as disabled.\n")
	} else {
		fmt.Fprintf(&sb, "Disabled displays (%d):\n", len(rec.Entries))
		for _, id := range rec.Entries {
			fmt.Fprintf(&sb, "  %s\n", id)
		}
	}
	_, err := io.WriteString(w, sb.String())
	return err
}
