package cmd

import (
	"github.com/spf13/cobra"
)

// Version is replaced at build time with -ldflags "-X ...cmd.Version=..."
var Version = "1.0.0-SNAPSHOT"

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show the version of the tool",
		Long:  `Show the version of the ccupdate command-line tool.`,
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Println("Version:", Version)
		},
	}
}
