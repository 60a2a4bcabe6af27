package notify

import (
	"context"
	"errors"
	"time"

	"autobook/internal/domain"
	"autobook/internal/worker"

	"github.com/rs/zerolog"
)

// Multi fans a message out to every sink. All sinks are tried; their errors
// are joined.
type Multi []domain.Notifier

func (m Multi) Send(ctx context.Context, text string) error {
	var errs []error
	for _, n := range m {
		if err := n.Send(ctx, text); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogNotifier writes messages to the log. It is always part of the fan-out
// so alerts survive when no remote sink is configured.
type LogNotifier struct {
	logger *zerolog.Logger
}

func NewLogNotifier(logger *zerolog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (l *LogNotifier) Send(_ context.Context, text string) error {
	l.logger.Info().Str("notification", text).Msg("Notification")
	return nil
}

// BestEffort retries a sink with backoff and never returns an error.
type BestEffort struct {
	next   domain.Notifier
	policy worker.RetryPolicy
	logger *zerolog.Logger
}

func NewBestEffort(next domain.Notifier, policy worker.RetryPolicy, logger *zerolog.Logger) *BestEffort {
	if policy.MaxRetries <= 0 {
		policy.MaxRetries = 1
	}
	if policy.InitialDelay == 0 {
		policy.InitialDelay = 500 * time.Millisecond
	}
	if policy.MaxDelay == 0 {
		policy.MaxDelay = 5 * time.Second
	}
	return &BestEffort{next: next, policy: policy, logger: logger}
}

func (b *BestEffort) Send(ctx context.Context, text string) error {
	err := b.policy.Do(ctx, func(ctx context.Context) error {
		return b.next.Send(ctx, text)
	}, func(attempt int, delay time.Duration, err error) {
		b.logger.Debug().Err(err).Int("attempt", attempt).Dur("retry_in", delay).Msg("Notification failed, retrying")
	})
	if err != nil {
		b.logger.Warn().Err(err).Int("attempts", b.policy.Attempts()).Msg("Notification dropped")
	}
	return nil
}
