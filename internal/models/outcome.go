package models

import "time"

// BookingOutcome is computed per listing on each pass.
type BookingOutcome string

const (
	OutcomeBooked               BookingOutcome = "booked"
	OutcomeRejected             BookingOutcome = "rejected"
	OutcomeSkippedAlreadyBooked BookingOutcome = "skipped_already_booked"
	OutcomeSkippedIgnored       BookingOutcome = "skipped_ignored"
)

// Skipped reports whether no booking request was sent for the listing.
func (o BookingOutcome) Skipped() bool {
	return o == OutcomeSkippedAlreadyBooked || o == OutcomeSkippedIgnored
}

// ListingResult is the outcome for one listing in one run.
type ListingResult struct {
	Listing ClassListing   `json:"listing"`
	Outcome BookingOutcome `json:"outcome"`
	Detail  string         `json:"detail,omitempty"`
}

// CategoryReport collects the results for one category in service order.
type CategoryReport struct {
	Category string          `json:"category"`
	Results  []ListingResult `json:"results"`
}

// Count returns how many results have the given outcome.
func (r CategoryReport) Count(o BookingOutcome) int {
	n := 0
	for _, res := range r.Results {
		if res.Outcome == o {
			n++
		}
	}
	return n
}

// RunReport is returned by a reconciliation run, also when it aborts.
type RunReport struct {
	RunID      string           `json:"run_id"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at"`
	Categories []CategoryReport `json:"categories"`
}

// Count sums an outcome over all categories.
func (r *RunReport) Count(o BookingOutcome) int {
	if r == nil {
		return 0
	}
	n := 0
	for _, c := range r.Categories {
		n += c.Count(o)
	}
	return n
}

// Attempt is a persisted history row for a single listing decision.
type Attempt struct {
	ID        int64          `json:"id"`
	RunID     string         `json:"run_id"`
	Category  string         `json:"category"`
	ListingID ListingID      `json:"listing_id"`
	Topic     string         `json:"topic"`
	Outcome   BookingOutcome `json:"outcome"`
	Detail    string         `json:"detail"`
	CreatedAt time.Time      `json:"created_at"`
}
