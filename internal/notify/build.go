package notify

import (
	"time"

	"autobook/internal/config"
	"autobook/internal/domain"
	"autobook/internal/logging"
	"autobook/internal/worker"

	"github.com/rs/zerolog"
)

// New assembles the sinks enabled in cfg. Remote sinks are retried and
// never fail the caller; the log sink is always present. bot may be nil
// when Telegram is not configured or could not be reached.
func New(cfg config.NotifyConfig, bot domain.TelegramSender, logger *zerolog.Logger) Multi {
	log := logging.Component(logger, "notify")
	policy := worker.RetryPolicy{
		MaxRetries:    cfg.Retries,
		InitialDelay:  time.Second,
		MaxDelay:      10 * time.Second,
		BackoffFactor: 2,
	}

	sinks := Multi{NewLogNotifier(log)}
	if bot != nil && cfg.Telegram.ChatID != 0 {
		tg := log.With().Str("sink", "telegram").Logger()
		sinks = append(sinks, NewBestEffort(NewTelegramNotifier(bot, cfg.Telegram.ChatID), policy, &tg))
	}
	if cfg.Slack.Token != "" {
		sl := log.With().Str("sink", "slack").Logger()
		sinks = append(sinks, NewBestEffort(NewSlackNotifier(cfg.Slack), policy, &sl))
	}
	return sinks
}
