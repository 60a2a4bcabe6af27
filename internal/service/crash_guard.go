package service

import (
	"context"
	"fmt"

	"autobook/internal/domain"

	"github.com/rs/zerolog"
)

// CrashGuard is the persisted circuit breaker. Once raised, every later run
// stops at the gate until an operator clears the flag.
type CrashGuard struct {
	flags    domain.FlagStore
	notifier domain.Notifier
	logger   *zerolog.Logger
}

func NewCrashGuard(flags domain.FlagStore, notifier domain.Notifier, logger *zerolog.Logger) *CrashGuard {
	return &CrashGuard{
		flags:    flags,
		notifier: notifier,
		logger:   logger,
	}
}

func (g *CrashGuard) HasPriorCrash(ctx context.Context) (bool, error) {
	exists, err := g.flags.Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("check crash flag: %w", err)
	}
	return exists, nil
}

// Raise persists the flag and alerts. Raising twice keeps the first reason.
func (g *CrashGuard) Raise(ctx context.Context, reason string) error {
	if err := g.flags.Set(ctx, reason); err != nil {
		g.logger.Error().Err(err).Str("reason", reason).Msg("Failed to persist crash flag")
		return fmt.Errorf("raise crash flag: %w", err)
	}

	g.logger.Error().Str("reason", reason).Msg("Crash flag raised")
	notify(ctx, g.notifier, g.logger, fmt.Sprintf("autobook halted: %s\nRuns are blocked until `autobook crash clear`.", reason))
	return nil
}

// Clear removes the flag. Only the operator command calls it.
func (g *CrashGuard) Clear(ctx context.Context) error {
	if err := g.flags.Clear(ctx); err != nil {
		return fmt.Errorf("clear crash flag: %w", err)
	}
	g.logger.Info().Msg("Crash flag cleared")
	return nil
}

func notify(ctx context.Context, n domain.Notifier, logger *zerolog.Logger, text string) {
	if n == nil {
		return
	}
	if err := n.Send(ctx, text); err != nil {
		logger.Warn().Err(err).Msg("Notification failed")
	}
}

func publish(bus domain.EventPublisher, logger *zerolog.Logger, eventType string, payload interface{}) {
	if bus == nil {
		return
	}
	if err := bus.PublishJSON(eventType, payload); err != nil {
		logger.Warn().Err(err).Str("event", eventType).Msg("Failed to publish event")
	}
}
