package commands

import (
	"github.com/spf13/cobra"
	"go.leadline.dev/loadstate/internal/app"
)

func (c *CLI) newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [sections...]",
		Short: "Load configured sections and render the dashboard",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			outputMode, _ := cmd.Flags().GetString("output-mode")
			ci, _ := cmd.Flags().GetBool("ci")
			watch, _ := cmd.Flags().GetBool("watch")
			noRetry, _ := cmd.Flags().GetBool("no-retry")

			// If --ci is set, override output-mode to "linear"
			if ci {
				outputMode = "linear"
			}

			return c.app.Run(cmd.Context(), app.RunOptions{
				Sections:   args,
				OutputMode: outputMode,
				Watch:      watch,
				NoRetry:    noRetry,
			})
		},
	}
	cmd.Flags().StringP("output-mode", "o", "auto", "Output mode: auto, tui, or linear")
	cmd.Flags().Bool("ci", false, "Use linear output mode (shorthand for --output-mode=linear)")
	cmd.Flags().BoolP("watch", "w", false, "Keep running and follow configuration changes")
	cmd.Flags().Bool("no-retry", false, "Disable retry on transient load failures")
	return cmd
}
