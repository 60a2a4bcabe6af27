package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"autobook/internal/domain"
	"autobook/internal/events"
	"autobook/internal/globish"
	"autobook/internal/logging"
	"autobook/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ReconcilerDeps wires a Reconciler. Notifier, EventBus and Lock may be nil.
type ReconcilerDeps struct {
	Guard    domain.CrashGuard
	Auth     domain.Authenticator
	Catalog  domain.CatalogClient
	Booking  domain.BookingClient
	Ignore   domain.IgnoreListStore
	Notifier domain.Notifier
	EventBus domain.EventPublisher
	Lock     domain.RunLocker
	Pacer    *Pacer
	// CrashOnTransportError raises the crash flag when a run aborts on a
	// non-authentication failure.
	CrashOnTransportError bool
}

// Reconciler books every open, not yet ignored listing of each category.
type Reconciler struct {
	deps   ReconcilerDeps
	logger *zerolog.Logger
	newID  func() string
}

func NewReconciler(deps ReconcilerDeps, logger *zerolog.Logger) *Reconciler {
	return &Reconciler{
		deps:   deps,
		logger: logger,
		newID:  func() string { return uuid.NewString() },
	}
}

// Run processes categories in order, one listing at a time. The report is
// returned also when the run aborts and holds everything decided so far.
func (r *Reconciler) Run(ctx context.Context, categories []models.Category) (*models.RunReport, error) {
	report := &models.RunReport{RunID: r.newID(), StartedAt: time.Now()}
	log := logging.WithRun(r.logger, report.RunID)

	if r.deps.Lock != nil {
		release, err := r.deps.Lock.Acquire(ctx)
		if errors.Is(err, domain.ErrLocked) {
			log.Warn().Err(err).Msg("Another run holds the lock, exiting")
			report.FinishedAt = time.Now()
			return report, fmt.Errorf("%w: %v", ErrAlreadyRunning, err)
		}
		if err != nil {
			return r.abort(ctx, log, report, fmt.Errorf("acquire run lock: %w", err))
		}
		defer func() {
			if err := release(); err != nil {
				log.Warn().Err(err).Msg("Failed to release run lock")
			}
		}()
	}

	crashed, err := r.deps.Guard.HasPriorCrash(ctx)
	if err != nil {
		return r.abort(ctx, log, report, err)
	}
	if crashed {
		log.Error().Msg("Prior crash detected, refusing to run")
		notify(ctx, r.deps.Notifier, log, "autobook did not run: a previous run crashed. Clear the flag with `autobook crash clear`.")
		report.FinishedAt = time.Now()
		r.publishRun(log, report, events.RunStatusPriorCrash, ErrPriorCrash)
		return report, ErrPriorCrash
	}

	if _, err := r.deps.Ignore.Load(ctx); err != nil {
		return r.abort(ctx, log, report, fmt.Errorf("load ignore list: %w", err))
	}

	for _, category := range categories {
		if err := r.deps.Auth.EnsureValid(ctx); err != nil {
			return r.abort(ctx, log, report, err)
		}

		catReport, err := r.reconcileCategory(ctx, log, report.RunID, category)
		report.Categories = append(report.Categories, catReport)
		if err != nil {
			return r.abort(ctx, log, report, err)
		}
	}

	report.FinishedAt = time.Now()
	log.Info().
		Int("booked", report.Count(models.OutcomeBooked)).
		Int("rejected", report.Count(models.OutcomeRejected)).
		Dur("duration", report.FinishedAt.Sub(report.StartedAt)).
		Msg("Run finished")
	r.publishRun(log, report, events.RunStatusOK, nil)
	return report, nil
}

func (r *Reconciler) reconcileCategory(
	ctx context.Context,
	log *zerolog.Logger,
	runID string,
	category models.Category,
) (models.CategoryReport, error) {
	catReport := models.CategoryReport{Category: category.Name}
	catLog := log.With().Str("category", category.Name).Logger()

	listings, err := r.deps.Catalog.ListClasses(ctx, r.deps.Auth.Session(), category)
	if werr := r.deps.Pacer.Wait(ctx); err == nil && werr != nil {
		err = werr
	}
	if err != nil {
		return catReport, err
	}
	catLog.Debug().Int("listings", len(listings)).Msg("Catalog fetched")

	record := func(listing models.ClassListing, outcome models.BookingOutcome, detail string) {
		catReport.Results = append(catReport.Results, models.ListingResult{Listing: listing, Outcome: outcome, Detail: detail})
		catLog.Info().
			Str("listing_id", listing.ID.String()).
			Str("topic", listing.Topic).
			Str("outcome", string(outcome)).
			Msg("Listing processed")
		publish(r.deps.EventBus, &catLog, events.OutcomeEventType(outcome), events.ListingEventPayload{
			RunID:     runID,
			Category:  category.Name,
			ListingID: listing.ID,
			Topic:     listing.Topic,
			Outcome:   outcome,
			Detail:    detail,
			At:        time.Now(),
		})
	}

	for _, listing := range listings {
		if listing.ID == "" {
			catLog.Warn().Str("topic", listing.Topic).Msg("Listing without id, skipping")
			continue
		}
		if listing.Booked {
			record(listing, models.OutcomeSkippedAlreadyBooked, "")
			continue
		}
		if r.deps.Ignore.Contains(listing.ID) {
			record(listing, models.OutcomeSkippedIgnored, "")
			continue
		}

		result, err := r.deps.Booking.Book(ctx, r.deps.Auth.Session(), listing.ID)
		if werr := r.deps.Pacer.Wait(ctx); err == nil && werr != nil {
			err = werr
		}
		if err != nil {
			return catReport, err
		}

		if result.Outcome == models.OutcomeBooked {
			notify(ctx, r.deps.Notifier, &catLog, fmt.Sprintf("Booked %s class %q (id %s)", category.Name, listing.Topic, listing.ID))
			record(listing, models.OutcomeBooked, "")
			continue
		}

		detail := string(result.Payload)
		notify(ctx, r.deps.Notifier, &catLog, fmt.Sprintf("Booking %s class %q (id %s) rejected, ignoring it from now on: %s",
			category.Name, listing.Topic, listing.ID, detail))
		if err := r.deps.Ignore.Add(ctx, listing.ID); err != nil {
			return catReport, fmt.Errorf("add %s to ignore list: %w", listing.ID, err)
		}
		record(listing, models.OutcomeRejected, detail)
	}

	return catReport, nil
}

// abort logs and notifies a terminal failure and applies the crash policy
// for transport errors. Authentication errors raised the flag already.
func (r *Reconciler) abort(ctx context.Context, log *zerolog.Logger, report *models.RunReport, err error) (*models.RunReport, error) {
	report.FinishedAt = time.Now()

	if isContextErr(err) {
		log.Warn().Err(err).Msg("Run interrupted")
		r.publishRun(log, report, events.RunStatusFailed, err)
		return report, err
	}

	var authErr *AuthenticationError
	var transportErr *globish.TransportError
	switch {
	case errors.As(err, &authErr):
	case errors.As(err, &transportErr):
		if r.deps.CrashOnTransportError {
			if rerr := r.deps.Guard.Raise(ctx, err.Error()); rerr != nil {
				log.Error().Err(rerr).Msg("Could not raise crash flag")
			}
		}
	}

	log.Error().Err(err).Msg("Run failed")
	notify(ctx, r.deps.Notifier, log, fmt.Sprintf("autobook run failed: %v", err))
	r.publishRun(log, report, events.RunStatusFailed, err)
	return report, err
}

func (r *Reconciler) publishRun(log *zerolog.Logger, report *models.RunReport, status string, err error) {
	payload := events.RunEventPayload{
		RunID:    report.RunID,
		Status:   status,
		Booked:   report.Count(models.OutcomeBooked),
		Rejected: report.Count(models.OutcomeRejected),
		Skipped:  report.Count(models.OutcomeSkippedAlreadyBooked) + report.Count(models.OutcomeSkippedIgnored),
		Duration: report.FinishedAt.Sub(report.StartedAt),
	}
	if err != nil {
		payload.Error = err.Error()
	}
	publish(r.deps.EventBus, log, events.EventRunFinished, payload)
}
