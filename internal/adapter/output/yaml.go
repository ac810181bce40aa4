package output

import (
	"io"

	"gopkg.in/yaml.v3"
)

// YAMLFormatter formats output as YAML.
type YAMLFormatter struct{}

// NewYAMLFormatter creates a new YAML formatter.
func NewYAMLFormatter() *YAMLFormatter {
	return &YAMLFormatter{}
}

// FormatDisplays writes the entries as a YAML sequence.
func (f *YAMLFormatter) FormatDisplays(w io.Writer, entries []DisplayEntry) error {
	return encodeYAML(w, entries)
}

// FormatRecord writes the record as a YAML mapping.
func (f *YAMLFormatter) FormatRecord(w io.Writer, rec Record) error {
	return encodeYAML(w, rec)
}

func encodeYAML(w io.Writer, v any) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(v); err != nil {
		return err
	}
	return encoder.Close()
}
