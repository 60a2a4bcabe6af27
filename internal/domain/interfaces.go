package domain

import (
	"context"

	"autobook/internal/globish"
	"autobook/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// CredentialStore holds the current bearer token.
type CredentialStore interface {
	Get(ctx context.Context) (models.Credential, error)
	Update(ctx context.Context, token string) error
}

// IgnoreListStore is the persisted set of listings never to book again.
type IgnoreListStore interface {
	Load(ctx context.Context) (map[models.ListingID]struct{}, error)
	// Add persists id before it becomes visible in Contains. Idempotent.
	Add(ctx context.Context, id models.ListingID) error
	Contains(id models.ListingID) bool
	List(ctx context.Context) ([]models.ListingID, error)
}

// FlagStore persists the crash marker.
type FlagStore interface {
	Exists(ctx context.Context) (bool, error)
	Set(ctx context.Context, reason string) error
	// Reason returns the stored reason, empty when no flag is set.
	Reason(ctx context.Context) (string, error)
	Clear(ctx context.Context) error
}

// CrashGuard is the persisted circuit breaker gating every run.
type CrashGuard interface {
	HasPriorCrash(ctx context.Context) (bool, error)
	Raise(ctx context.Context, reason string) error
	Clear(ctx context.Context) error
}

// RunLocker guards against overlapping runs. Acquire fails with ErrLocked
// while another holder exists.
type RunLocker interface {
	Acquire(ctx context.Context) (release func() error, err error)
}

// CatalogClient fetches the class listings of a category.
type CatalogClient interface {
	ListClasses(ctx context.Context, sess globish.Session, category models.Category) ([]models.ClassListing, error)
}

// BookingClient submits a reservation for one listing.
type BookingClient interface {
	Book(ctx context.Context, sess globish.Session, id models.ListingID) (globish.BookResult, error)
}

// AuthClient is the part of the remote API the auth manager needs.
type AuthClient interface {
	NewSession(token string) globish.Session
	Probe(ctx context.Context, sess globish.Session) error
	Login(ctx context.Context, principal models.Principal) (string, error)
}

// Authenticator yields a session known to be valid for this run.
type Authenticator interface {
	EnsureValid(ctx context.Context) error
	Session() globish.Session
}

// Notifier delivers a human readable alert.
type Notifier interface {
	Send(ctx context.Context, text string) error
}

// EventPublisher publishes domain events.
type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

// HistoryRecorder persists attempt rows.
type HistoryRecorder interface {
	RecordAttempt(ctx context.Context, attempt *models.Attempt) error
}

// TelegramSender is the subset of the bot API used for notifications.
type TelegramSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}
