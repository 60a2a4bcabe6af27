package events

import (
	"encoding/json"
	"sync"
	"time"

	"autobook/internal/models"
)

const (
	EventListingBooked   = "listing_booked"
	EventListingRejected = "listing_rejected"
	EventListingSkipped  = "listing_skipped"
	EventAuthRefreshed   = "auth_refreshed"
	EventRunFinished     = "run_finished"
)

// OutcomeEventType maps a booking outcome to the event announcing it.
func OutcomeEventType(o models.BookingOutcome) string {
	switch o {
	case models.OutcomeBooked:
		return EventListingBooked
	case models.OutcomeRejected:
		return EventListingRejected
	default:
		return EventListingSkipped
	}
}

// ListingEventPayload describes one listing decision.
type ListingEventPayload struct {
	RunID     string                `json:"run_id"`
	Category  string                `json:"category"`
	ListingID models.ListingID      `json:"listing_id"`
	Topic     string                `json:"topic"`
	Outcome   models.BookingOutcome `json:"outcome"`
	Detail    string                `json:"detail,omitempty"`
	At        time.Time             `json:"at"`
}

// Attempt converts the payload into a history row.
func (p ListingEventPayload) Attempt() *models.Attempt {
	return &models.Attempt{
		RunID:     p.RunID,
		Category:  p.Category,
		ListingID: p.ListingID,
		Topic:     p.Topic,
		Outcome:   p.Outcome,
		Detail:    p.Detail,
		CreatedAt: p.At,
	}
}

// AuthEventPayload is published after a token refresh.
type AuthEventPayload struct {
	RunID string    `json:"run_id,omitempty"`
	At    time.Time `json:"at"`
}

const (
	RunStatusOK         = "ok"
	RunStatusFailed     = "failed"
	RunStatusPriorCrash = "prior_crash"
)

// RunEventPayload summarizes a finished run.
type RunEventPayload struct {
	RunID    string        `json:"run_id"`
	Status   string        `json:"status"`
	Booked   int           `json:"booked"`
	Rejected int           `json:"rejected"`
	Skipped  int           `json:"skipped"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
}

// Event represents a lightweight domain event.
type Event struct {
	ID        int64
	Type      string
	Payload   []byte
	CreatedAt time.Time
}

// Decode unmarshals the JSON payload into v.
func (e *Event) Decode(v interface{}) error {
	return json.Unmarshal(e.Payload, v)
}

// EventHandler reacts to an event.
type EventHandler func(event *Event) error

// EventBus provides in-process pub/sub for events.
type EventBus struct {
	subscribers map[string][]EventHandler
	mu          sync.RWMutex
	seq         int64
	onError     func(event *Event, err error)
}

// NewEventBus constructs an empty bus.
func NewEventBus() *EventBus {
	return &EventBus{subscribers: make(map[string][]EventHandler)}
}

// OnError registers a callback for handler failures. Handlers never stop
// delivery to the rest of the subscribers.
func (b *EventBus) OnError(fn func(event *Event, err error)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onError = fn
}

// Subscribe registers a handler for a given event type.
func (b *EventBus) Subscribe(eventType string, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// Publish notifies subscribers of the event type.
func (b *EventBus) Publish(event *Event) {
	b.mu.Lock()
	b.seq++
	event.ID = b.seq
	handlers := append([]EventHandler(nil), b.subscribers[event.Type]...)
	onError := b.onError
	b.mu.Unlock()

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	for _, handler := range handlers {
		// Handlers run synchronously; caller decides concurrency model.
		if err := handler(event); err != nil && onError != nil {
			onError(event, err)
		}
	}
}

// PublishJSON serializes the payload and publishes an event.
func (b *EventBus) PublishJSON(eventType string, payload interface{}) error {
	if b == nil {
		return nil
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	b.Publish(&Event{Type: eventType, Payload: raw, CreatedAt: time.Now()})
	return nil
}
