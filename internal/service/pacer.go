package service

import (
	"context"
	"time"
)

// Pacer inserts the fixed pause that follows every remote call.
type Pacer struct {
	delay time.Duration
	sleep func(ctx context.Context, d time.Duration) error
}

func NewPacer(delay time.Duration) *Pacer {
	return &Pacer{delay: delay, sleep: sleepContext}
}

// Wait blocks for the configured delay or until ctx is done.
func (p *Pacer) Wait(ctx context.Context) error {
	if p == nil || p.delay <= 0 {
		return ctx.Err()
	}
	return p.sleep(ctx, p.delay)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
