package core

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize/english"
)

// Summary renders the report as a single line suitable for a status bar or
// a desktop notification body.
func (r RestoreReport) Summary() string {
	if len(r.Candidates) == 0 {
		return "No displays were recorded as disabled"
	}

	parts := []string{fmt.Sprintf("Restored %s", english.Plural(len(r.Restored), "display", ""))}
	if len(r.Failed) > 0 {
		parts = append(parts, fmt.Sprintf("%d failed", len(r.Failed)))
	}
	if len(r.Unresolved) > 0 {
		parts = append(parts, fmt.Sprintf("%d not connected", len(r.Unresolved)))
	}
	if len(r.Remaining) > 0 {
		parts = append(parts, fmt.Sprintf("%d still recorded", len(r.Remaining)))
	}
	return strings.Join(parts, ", ")
}

// Warnings lists the conditions an operator should know about after a
// restore pass.
func (r RestoreReport) Warnings() []string {
	var warnings []string
	if r.CommitErr != nil {
		warnings = append(warnings, fmt.Sprintf("commit failed, display state is unknown: %v", r.CommitErr))
	}
	for _, f := range r.Failed {
		if r.CommitErr != nil && f.Err == r.CommitErr {
			continue
		}
		warnings = append(warnings, fmt.Sprintf("could not restore %s: %v", f.ID, f.Err))
	}
	for _, id := range r.Unresolved {
		warnings = append(warnings, fmt.Sprintf("%s is not connected, kept for later", id))
	}
	return warnings
}
