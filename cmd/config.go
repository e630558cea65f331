package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ProReality/ClassiCubeLauncher/config"
)

func newConfigCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage updater.yaml",
	}
	cmd.AddCommand(newConfigInitCommand(opts))
	cmd.AddCommand(newConfigSetCommand(opts))
	cmd.AddCommand(newConfigShowCommand(opts))
	return cmd
}

func newConfigInitCommand(opts *rootOptions) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write updater.yaml with the built-in settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := opts.configFile(opts.resolver())
			if err != nil {
				return err
			}

			if err := config.WriteDefault(path, force); err != nil {
				if errors.Is(err, config.ErrConfigExists) {
					return fmt.Errorf("%w, use --force to replace it", err)
				}
				return err
			}
			cmd.Printf("Configuration written to %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Replace an existing file")
	return cmd
}

func newConfigSetCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "set <key> <value>",
		Short:   "Change one setting, keeping the comments of the file",
		Example: "  ccupdate config set client.digest sha256",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := opts.configFile(opts.resolver())
			if err != nil {
				return err
			}

			if err := config.SetValue(path, args[0], args[1]); err != nil {
				return err
			}
			cmd.Printf("Set %s in %s\n", args[0], path)
			return nil
		},
	}
}

func newConfigShowCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := opts.env(cmd)
			if err != nil {
				return err
			}
			cmd.Println(e.config)
			return nil
		},
	}
}
