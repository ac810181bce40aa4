package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/displayctl/internal/core"
)

var disableCmd = &cobra.Command{
	Use:   "disable <index|#handle|id|name>",
	Short: "Disable one display",
	Long: `Disable one display and remember it for "restore".

The display can be referenced by its index in "list", by its current
handle prefixed with '#', by its stable identifier, or by its output name.

Examples:
  displayctl disable 1
  displayctl disable '#724'
  displayctl disable HDMI-1`,
	Args: cobra.ExactArgs(1),
	RunE: runDisable,
}

func init() {
	rootCmd.AddCommand(disableCmd)
}

func runDisable(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}

	displays, err := s.backend.Displays()
	if err != nil {
		return fmt.Errorf("failed to enumerate displays: %w", err)
	}

	d, err := core.FindDisplay(displays, args[0], s.resolver)
	if err != nil {
		return err
	}

	result, err := s.manager.DisableOne(d.Handle)
	if err != nil && !errors.Is(err, core.ErrStoreInconsistent) {
		return fmt.Errorf("failed to disable %s: %w", d.Label(), err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Disabled %s as %s\n", d.Label(), result.ID)
	notify("Display disabled", d.Label())
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %v\n", err)
	}
	return nil
}
