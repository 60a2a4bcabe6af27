package main

import (
	"fmt"

	"autobook/internal/models"

	"github.com/spf13/cobra"
)

func newIgnoreCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ignore",
		Short: "Manage listings that are never booked",
	}
	cmd.AddCommand(newIgnoreListCmd(configPath))
	cmd.AddCommand(newIgnoreAddCmd(configPath))
	return cmd
}

func newIgnoreListCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Print ignored listing ids",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			ids, err := a.ignore.List(cmd.Context())
			if err != nil {
				return err
			}
			for _, id := range ids {
				fmt.Fprintln(cmd.OutOrStdout(), id)
			}
			return nil
		},
	}
}

func newIgnoreAddCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "add ID...",
		Short: "Ignore listings by id",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			if _, err := a.ignore.Load(cmd.Context()); err != nil {
				return err
			}
			for _, arg := range args {
				if err := a.ignore.Add(cmd.Context(), models.ListingID(arg)); err != nil {
					return fmt.Errorf("ignore %s: %w", arg, err)
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d listing(s) ignored\n", len(args))
			return nil
		},
	}
}
