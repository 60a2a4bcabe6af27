package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCrashCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crash",
		Short: "Inspect or clear the crash flag",
	}
	cmd.AddCommand(newCrashStatusCmd(configPath))
	cmd.AddCommand(newCrashClearCmd(configPath))
	return cmd
}

func newCrashStatusCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show whether runs are blocked by a previous crash",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			set, err := a.flags.Exists(cmd.Context())
			if err != nil {
				return err
			}
			if !set {
				fmt.Fprintln(cmd.OutOrStdout(), "no crash flag")
				return nil
			}
			reason, err := a.flags.Reason(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "crash flag set: %s\n", reason)
			return nil
		},
	}
}

func newCrashClearCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Clear the crash flag so the next run proceeds",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.crashGuard(nil).Clear(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "crash flag cleared")
			return nil
		},
	}
}
