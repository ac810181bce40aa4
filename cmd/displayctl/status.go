package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/displayctl/internal/adapter/output"
)

var statusOpts struct {
	format string
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the remembered disabled displays",
	Long: `Show the displays displayctl remembers as disabled, the location of the
record, and when it was last written.

This reads the record only. It does not contact the display server.`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().StringVarP(&statusOpts.format, "format", "f", string(output.FormatPlain),
		fmt.Sprintf("Output format %v", output.FormatTypes()))
}

func runStatus(cmd *cobra.Command, args []string) error {
	format, err := parseFormat(statusOpts.format)
	if err != nil {
		return err
	}

	record := output.Record{
		Path:    disabledStore.Path(),
		Entries: disabledStore.Load(),
	}
	if t, ok := disabledStore.ModTime(); ok {
		record.UpdatedAt = t
	}

	return output.NewFormatter(format).FormatRecord(cmd.OutOrStdout(), record)
}
