package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/danmuck/dprint-plugin-csharpier/internal/worker"
)

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the plugin version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", worker.PluginName, version)
			return err
		},
	}
}
