package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   appName,
		Short: "Restore capture dates on chat-export video thumbnails",
		Long: `thumbsync finds the video each image in a "thumbnails" directory was cut
from and copies the video's capture date onto it with exiftool. The manifest
command writes the dates recorded in a messaging export's JSON files to the
exported photos and videos.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.AddCommand(newMatchCommand())
	rootCmd.AddCommand(newManifestCommand())
	rootCmd.AddCommand(newVersionCommand())

	return rootCmd
}
