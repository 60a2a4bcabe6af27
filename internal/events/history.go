package events

import (
	"context"
	"time"

	"autobook/internal/domain"
)

// ListingEventTypes lists every event carrying a ListingEventPayload.
var ListingEventTypes = []string{EventListingBooked, EventListingRejected, EventListingSkipped}

// RecordHistory subscribes recorder to all listing events so every
// decision ends up as an attempt row.
func RecordHistory(bus *EventBus, recorder domain.HistoryRecorder, timeout time.Duration) {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	handler := func(event *Event) error {
		var payload ListingEventPayload
		if err := event.Decode(&payload); err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return recorder.RecordAttempt(ctx, payload.Attempt())
	}
	for _, t := range ListingEventTypes {
		bus.Subscribe(t, handler)
	}
}
