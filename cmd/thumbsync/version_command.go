package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/five82/thumbsync/internal/processing"
)

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "%s version %s (%s backend)\n", appName, appVersion, processing.BackendName)
			return err
		},
	}
}
