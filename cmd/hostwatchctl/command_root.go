package main

import (
	"github.com/spf13/cobra"

	"hostwatch/internal/version"
)

func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "hostwatchctl",
		Short:         "Inspect and manage host processes without the server",
		Version:       version.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("env-file", "", "Optional .env file to load before reading HOSTWATCH_* variables")

	root.AddCommand(newHashPasswordCmd())
	root.AddCommand(newTokenCmd())
	root.AddCommand(newPsCmd())
	root.AddCommand(newMetricsCmd())
	root.AddCommand(newKillCmd())

	return root
}
