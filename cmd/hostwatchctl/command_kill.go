package main

import (
	"errors"
	"fmt"
	"os/user"
	"strconv"

	"github.com/spf13/cobra"

	"hostwatch/internal/hostproc"
)

func newKillCmd() *cobra.Command {
	var verbose bool
	cmd := &cobra.Command{
		Use:   "kill <pid>",
		Short: "Terminate a host process (graceful, then forced)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid pid %q", args[0])
			}
			pid, err := hostproc.ValidatePID(raw)
			if err != nil {
				return err
			}

			stack, err := newLocalStack(cmd, verbose)
			if err != nil {
				return err
			}
			defer stack.Close()

			result, err := stack.service.Terminate(cmd.Context(), pid, localActor())
			if err != nil {
				var denied *hostproc.TerminationDenied
				if errors.As(err, &denied) {
					return fmt.Errorf("denied: %s", denied.Reason)
				}
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d: %s\n", result.PID, result.Message)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Log each step to stderr")
	return cmd
}

func localActor() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return "cli:" + u.Username
	}
	return "cli"
}
