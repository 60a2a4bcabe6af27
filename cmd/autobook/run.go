package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"autobook/internal/config"
	"autobook/internal/metrics"
	"autobook/internal/models"

	"github.com/spf13/cobra"
)

func newRunCmd(configPath *string) *cobra.Command {
	var only []string

	c := &cobra.Command{
		Use:   "run",
		Short: "Book every open class once and exit",
		Long: "Validates the token, lists each category in order and books every open class\n" +
			"that is neither booked nor ignored. Exit codes: 0 ok, 1 failure, 3 a previous\n" +
			"run crashed, 4 another run holds the lock.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := loadApp(ctx, *configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			categories, err := selectCategories(a.cfg, only)
			if err != nil {
				return err
			}

			m := metrics.New()
			bus := a.eventBus(m)
			n := a.notifier()

			rec, err := a.reconciler(n, bus)
			if err != nil {
				return err
			}

			report, runErr := rec.Run(ctx, categories)
			a.pruneHistory(context.WithoutCancel(ctx))

			if err := m.WriteTextfile(a.cfg.Monitoring.MetricsTextfile); err != nil {
				a.logger.Warn().Err(err).Msg("Metrics not written")
			}
			if report != nil {
				printReport(cmd.OutOrStdout(), report)
			}
			return runErr
		},
	}

	c.Flags().StringSliceVar(&only, "category", nil, "limit the run to these categories, in the given order")
	return c
}

// selectCategories keeps the configured order unless names are given.
func selectCategories(cfg *config.Config, names []string) ([]models.Category, error) {
	if len(names) == 0 {
		return cfg.Globish.Categories, nil
	}
	out := make([]models.Category, 0, len(names))
	for _, name := range names {
		cat, ok := cfg.Category(name)
		if !ok {
			return nil, fmt.Errorf("unknown category %q", name)
		}
		out = append(out, cat)
	}
	return out, config.ValidateCategories(out)
}

func printReport(w io.Writer, report *models.RunReport) {
	for _, cat := range report.Categories {
		fmt.Fprintf(w, "%s: booked=%d rejected=%d already_booked=%d ignored=%d\n",
			cat.Category,
			cat.Count(models.OutcomeBooked),
			cat.Count(models.OutcomeRejected),
			cat.Count(models.OutcomeSkippedAlreadyBooked),
			cat.Count(models.OutcomeSkippedIgnored),
		)
	}
}

