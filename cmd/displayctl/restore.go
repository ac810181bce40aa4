package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/displayctl/internal/core"
)

var restoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "Re-enable every display displayctl turned off",
	Long: `Re-enable every remembered display that is still connected, in a single
configuration change.

Displays that are not connected stay remembered and are restored by a
later run. If the change cannot be committed, the record is left as it was.`,
	Args: cobra.NoArgs,
	RunE: runRestore,
}

func init() {
	rootCmd.AddCommand(restoreCmd)
}

func runRestore(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}

	report, err := s.manager.RestoreAll()
	if err != nil && !errors.Is(err, core.ErrStoreInconsistent) {
		return fmt.Errorf("failed to restore displays: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, report.Summary())
	for _, id := range report.Restored {
		fmt.Fprintf(out, "  restored   %s\n", id)
	}
	for _, f := range report.Failed {
		fmt.Fprintf(out, "  failed     %s\n", f.ID)
	}
	for _, id := range report.Unresolved {
		fmt.Fprintf(out, "  not found  %s\n", id)
	}

	errOut := cmd.ErrOrStderr()
	for _, w := range report.Warnings() {
		fmt.Fprintf(errOut, "Warning: %s\n", w)
	}
	if err != nil {
		fmt.Fprintf(errOut, "Warning: %v\n", err)
	}

	if report.Changed() {
		notify("Displays restored", report.Summary())
	}
	if report.CommitErr != nil {
		return report.CommitErr
	}
	return nil
}
