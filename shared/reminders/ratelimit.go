package reminders

import (
	"context"
	"math/rand/v2"
	"time"

	"golang.org/x/time/rate"
)

// PacingConfig bounds how fast notifications leave the process.
type PacingConfig struct {
	PerSecond float64
	Burst     int
	// Each send also waits a random spread in [MinSpread, MaxSpread).
	MinSpread time.Duration
	MaxSpread time.Duration
}

// DefaultPacingConfig stays under the Bot API's 30 messages per second.
func DefaultPacingConfig() PacingConfig {
	return PacingConfig{
		PerSecond: 20,
		Burst:     30,
		MinSpread: 50 * time.Millisecond,
		MaxSpread: 150 * time.Millisecond,
	}
}

// Pacer spaces out sends with a token bucket plus a random spread, so a
// batch of reminders due at the same minute doesn't go out as one spike.
type Pacer struct {
	limiter *rate.Limiter
	min     time.Duration
	max     time.Duration
}

func NewPacer(cfg PacingConfig) *Pacer {
	if cfg.PerSecond <= 0 {
		cfg.PerSecond = DefaultPacingConfig().PerSecond
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	return &Pacer{
		limiter: rate.NewLimiter(rate.Limit(cfg.PerSecond), cfg.Burst),
		min:     cfg.MinSpread,
		max:     cfg.MaxSpread,
	}
}

// Wait blocks until the next send may go out or ctx ends.
func (p *Pacer) Wait(ctx context.Context) error {
	if d := p.spread(); d > 0 {
		t := time.NewTimer(d)
		defer t.Stop()
		select {
		case <-t.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return p.limiter.Wait(ctx)
}

// TryAcquire takes a token without blocking or spreading.
func (p *Pacer) TryAcquire() bool {
	return p.limiter.Allow()
}

func (p *Pacer) spread() time.Duration {
	if p.max <= p.min {
		return p.min
	}
	return p.min + rand.N(p.max-p.min)
}
