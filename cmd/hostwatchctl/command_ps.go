package main

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"
)

var sortKeys = map[string]func(a, b processRow) int{
	"cpu": func(a, b processRow) int { return cmp.Compare(b.CPUPercent, a.CPUPercent) },
	"mem": func(a, b processRow) int { return cmp.Compare(b.MemoryPercent, a.MemoryPercent) },
	"pid": func(a, b processRow) int { return cmp.Compare(a.PID, b.PID) },
}

func newPsCmd() *cobra.Command {
	var (
		top    int
		sortBy string
		filter string
	)
	cmd := &cobra.Command{
		Use:   "ps",
		Short: "List host processes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			less, ok := sortKeys[sortBy]
			if !ok {
				return fmt.Errorf("unknown sort key %q (use cpu, mem or pid)", sortBy)
			}
			stack, err := newLocalStack(cmd, false)
			if err != nil {
				return err
			}
			defer stack.Close()

			if err := stack.service.Prime(cmd.Context(), sampleWindow); err != nil {
				return err
			}
			procs, err := stack.service.ListProcesses(cmd.Context())
			if err != nil {
				return err
			}
			procs = slices.Clone(procs)
			if filter != "" {
				needle := strings.ToLower(filter)
				procs = slices.DeleteFunc(procs, func(p processRow) bool {
					return !strings.Contains(strings.ToLower(p.Name), needle)
				})
			}
			slices.SortStableFunc(procs, less)
			if top > 0 && len(procs) > top {
				procs = procs[:top]
			}
			printProcessTable(cmd.OutOrStdout(), procs)
			return nil
		},
	}
	cmd.Flags().IntVar(&top, "top", 0, "Show only the first N rows")
	cmd.Flags().StringVar(&sortBy, "sort", "cpu", "Sort by cpu, mem or pid")
	cmd.Flags().StringVar(&filter, "name", "", "Only show processes whose name contains this text")
	return cmd
}
