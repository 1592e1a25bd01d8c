package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newMetricsCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "metrics",
		Short: "Show host CPU and memory usage with the busiest processes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			stack, err := newLocalStack(cmd, false)
			if err != nil {
				return err
			}
			defer stack.Close()

			if err := stack.service.Prime(cmd.Context(), sampleWindow); err != nil {
				return err
			}
			snap, err := stack.service.SystemMetrics(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(snap)
			}
			fmt.Fprintf(out, "CPU: %.1f%%  Memory: %.1f%%  Processes: %d\n\n", snap.CPUPercent, snap.MemoryPercent, snap.ProcessCount)
			printProcessTable(out, snap.TopProcesses)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the snapshot as JSON")
	return cmd
}
