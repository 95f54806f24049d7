package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "officectl",
		Short:        "Maintenance tasks for the office inventory API",
		SilenceUsage: true,
	}
	root.AddCommand(newSeedCmd(), newHashPasswordCmd(), newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the officectl version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "officectl version %s\n", version)
		},
	}
}
