package main

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/displayctl/internal/adapter/output"
)

var listOpts struct {
	format string
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the active displays",
	Long: `List the active displays with their stable identifiers.

The index shown for each display is the one accepted by "disable" and the
text menu. The main display is marked.

Examples:
  displayctl list
  displayctl list --format json
  displayctl list --format ids`,
	Args: cobra.NoArgs,
	RunE: runList,
}

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().StringVarP(&listOpts.format, "format", "f", string(output.FormatPlain),
		fmt.Sprintf("Output format %v", output.FormatTypes()))
}

func runList(cmd *cobra.Command, args []string) error {
	format, err := parseFormat(listOpts.format)
	if err != nil {
		return err
	}

	s, err := openSession()
	if err != nil {
		return err
	}

	displays, err := s.backend.Displays()
	if err != nil {
		return fmt.Errorf("failed to enumerate displays: %w", err)
	}

	entries := output.Entries(displays, s.resolver.IdentityFor)
	return output.NewFormatter(format).FormatDisplays(cmd.OutOrStdout(), entries)
}

func parseFormat(name string) (output.FormatType, error) {
	format := output.FormatType(name)
	if !slices.Contains(output.FormatTypes(), format) {
		return "", fmt.Errorf("unknown format %q (available: %v)", name, output.FormatTypes())
	}
	return format, nil
}
