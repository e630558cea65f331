package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// rootOptions holds the persistent flags shared by every command
type rootOptions struct {
	configPath  string
	launcherDir string
	logLevel    string
}

func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "ccupdate",
		Short: "ccupdate keeps the ClassiCube client up to date",
		Long: `ccupdate downloads the ClassiCube client into the launcher directory
when the published checksum differs from the installed file.`,
		SilenceUsage: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "config file (default is updater.yaml in the launcher directory)")
	flags.StringVar(&opts.launcherDir, "dir", "", "launcher directory override")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn or error (default from config)")

	root.AddCommand(newUpdateCommand(opts))
	root.AddCommand(newCheckCommand(opts))
	root.AddCommand(newStatusCommand(opts))
	root.AddCommand(newConfigCommand(opts))
	root.AddCommand(newVersionCommand())
	return root
}

// Execute runs the CLI and exits with a code describing the failure kind
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := NewRootCommand().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(ExitCode(err))
	}
}
