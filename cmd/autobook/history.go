package main

import (
	"fmt"
	"time"

	"autobook/internal/database"
	"autobook/internal/export"
	"autobook/internal/logging"
	"autobook/internal/models"

	"github.com/spf13/cobra"
)

func newHistoryCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Work with the attempt history database",
	}
	cmd.AddCommand(newHistoryExportCmd(configPath))
	cmd.AddCommand(newHistoryBackupCmd(configPath))
	return cmd
}

func newHistoryExportCmd(configPath *string) *cobra.Command {
	var (
		dir     string
		runID   string
		outcome string
		since   time.Duration
		limit   int
	)

	c := &cobra.Command{
		Use:   "export",
		Short: "Write attempt history to an XLSX workbook",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.requireHistory(); err != nil {
				return err
			}

			filter := database.AttemptFilter{
				RunID:   runID,
				Outcome: models.BookingOutcome(outcome),
				Limit:   limit,
			}
			if since > 0 {
				filter.Since = time.Now().Add(-since)
			}

			path, err := export.NewExporter(a.db, logging.Component(a.logger, "export")).Export(cmd.Context(), filter, dir)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}

	c.Flags().StringVar(&dir, "dir", "exports", "output directory")
	c.Flags().StringVar(&runID, "run", "", "only this run id")
	c.Flags().StringVar(&outcome, "outcome", "", "only this outcome")
	c.Flags().DurationVar(&since, "since", 0, "only attempts newer than this, e.g. 168h")
	c.Flags().IntVar(&limit, "limit", 0, "maximum number of rows")
	return c
}

func newHistoryBackupCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "backup",
		Short: "Snapshot the history database and prune old snapshots",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.requireHistory(); err != nil {
				return err
			}

			backups := database.NewBackupService(a.db, a.cfg.Database, logging.Component(a.logger, "backup"))
			path, err := backups.PerformBackup(cmd.Context())
			if err != nil {
				return err
			}
			removed := backups.CleanupOldBackups()
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%d old backup(s) removed)\n", path, removed)
			return nil
		},
	}
}
