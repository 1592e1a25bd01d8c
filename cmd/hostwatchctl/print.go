package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/dustin/go-humanize"

	"hostwatch/internal/models"
)

type processRow = models.ProcessSnapshot

func printProcessTable(w io.Writer, procs []processRow) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PID\tNAME\tUSER\tCPU%\tMEM%\tTHREADS\tSTATUS\tSTARTED")
	for _, p := range procs {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%.1f\t%.1f\t%d\t%s\t%s\n",
			p.PID, p.Name, deref(p.Username), p.CPUPercent, p.MemoryPercent, p.NumThreads, p.Status, started(p))
	}
	tw.Flush()
}

func deref(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}

func started(p processRow) string {
	if p.CreateTime == nil {
		return "-"
	}
	return humanize.Time(*p.CreateTime)
}
