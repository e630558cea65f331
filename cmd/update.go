package cmd

import (
	"github.com/spf13/cobra"
)

func newUpdateCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "update",
		Short: "Download and install the client when the published checksum changed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := opts.env(cmd)
			if err != nil {
				return err
			}

			updated, err := e.service().CheckAndUpdate(cmd.Context())
			if err != nil {
				return err
			}
			if updated {
				cmd.Println("Client updated")
			} else {
				cmd.Println("No update installed")
			}
			return nil
		},
	}
}

func newCheckCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Report whether an update is required without downloading it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := opts.env(cmd)
			if err != nil {
				return err
			}

			result, err := e.service().Check(cmd.Context())
			if err != nil {
				return err
			}
			cmd.Println(result.String())
			if result.HashErr != nil {
				cmd.Println("Hash error:", result.HashErr)
			}
			return nil
		},
	}
}

func newStatusCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Describe the installed client",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := opts.env(cmd)
			if err != nil {
				return err
			}

			status, err := e.service().Status()
			if err != nil {
				return err
			}
			cmd.Println(status.String())
			if status.Receipt != nil {
				cmd.Println(status.Receipt.String())
			}
			return nil
		},
	}
}
