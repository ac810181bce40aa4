package output

import (
	"fmt"
	"io"
	"strings"
)

// DmenuFormatter writes one line per item for dmenu/rofi pickers. The first
// field is what `displayctl disable` accepts as a reference.
type DmenuFormatter struct {
	separator string
}

// NewDmenuFormatter creates a new dmenu formatter.
func NewDmenuFormatter(separator string) *DmenuFormatter {
	if separator == "" {
		separator = " | "
	}
	return &DmenuFormatter{separator: separator}
}

// FormatDisplays writes "index | label | id" lines.
func (f *DmenuFormatter) FormatDisplays(w io.Writer, entries []DisplayEntry) error {
	for _, e := range entries {
		fields := []string{fmt.Sprint(e.Index), sanitize(e.Display.Label()), string(e.ID)}
		if _, err := fmt.Fprintln(w, strings.Join(fields, f.separator)); err != nil {
			return err
		}
	}
	return nil
}

// FormatRecord writes one identifier per line, like the ids format.
func (f *DmenuFormatter) FormatRecord(w io.Writer, rec Record) error {
	return NewIDsFormatter().FormatRecord(w, rec)
}

// sanitize keeps a field on a single line.
func sanitize(s string) string {
	return strings.NewReplacer("\n", " ", "\r", " ", "\t", " ").Replace(s)
}
