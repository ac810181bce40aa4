package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/displayctl/internal/menu"
)

var menuCmd = &cobra.Command{
	Use:   "menu",
	Short: "Run the numbered text menu",
	Long: `Run the numbered text menu on stdin/stdout.

Each prompt lists the active displays followed by two actions:

  [0..N-1]  Disable that display
  [N]       Restore every display displayctl turned off
  [N+1]     Exit

The display list is refreshed before every prompt. End of input exits.`,
	Args: cobra.NoArgs,
	RunE: runMenu,
}

func init() {
	rootCmd.AddCommand(menuCmd)
}

func runMenu(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}

	opts := []menu.Option{menu.WithLogger(logger)}
	if notifier.Enabled() {
		opts = append(opts, menu.WithNotifier(notifier))
	}

	return menu.New(os.Stdin, cmd.OutOrStdout(), s.backend, s.manager, opts...).Run()
}
