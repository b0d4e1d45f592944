package cmd

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vnykmshr/tempo/internal/simulate"
)

var outputFormat string

var simulateCmd = &cobra.Command{
	Use:   "simulate <trace.yaml>",
	Short: "Replay a call trace through a debounce or throttle control",
	Long: `Replay a recorded call trace on a virtual clock and report which calls
executed and when.

A trace names the control and its timing, followed by the calls:

  name: search-box
  control: debounce        # or throttle
  policy: basic            # throttle only: basic or leading-trailing
  delay: 50                # milliseconds
  max_wait: 0              # debounce only
  leading: false           # debounce only
  events:
    - {at: 0, arg: t}
    - {at: 20, arg: te}`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		trace, err := simulate.Load(args[0])
		if err != nil {
			return err
		}

		report, err := simulate.Run(trace, cliLogger)
		if err != nil {
			return err
		}
		cliLogger.Debug("Simulation finished",
			zap.String("trace", args[0]),
			zap.Int("calls", report.Calls),
			zap.Int("executions", len(report.Executions)))

		return simulate.Render(cmd.OutOrStdout(), report, outputFormat)
	},
}

func init() {
	rootCmd.AddCommand(simulateCmd)
	simulateCmd.Flags().StringVarP(&outputFormat, "format", "f", simulate.FormatTable, "output format (table, yaml)")
}
