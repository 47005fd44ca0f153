package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/xiaot623/gogo/insights/internal/config"
	"github.com/xiaot623/gogo/insights/internal/domain"
)

// DefaultPollInterval is the delay between run status checks.
const DefaultPollInterval = 2000 * time.Millisecond

// PollPolicy bounds how long and how often a run is polled.
type PollPolicy struct {
	// Interval is the first delay between checks.
	Interval time.Duration
	// Multiplier grows the delay after each check; values <= 1 keep it fixed.
	Multiplier float64
	// MaxInterval caps the delay. Zero means no cap.
	MaxInterval time.Duration
	// MaxAttempts caps the number of checks. Zero means unbounded.
	MaxAttempts int
	// MaxElapsed caps the total wait. Zero means unbounded.
	MaxElapsed time.Duration
}

// DefaultPollPolicy polls every two seconds for at most five minutes.
func DefaultPollPolicy() PollPolicy {
	return PollPolicy{
		Interval:   DefaultPollInterval,
		Multiplier: 1,
		MaxElapsed: 5 * time.Minute,
	}
}

// PollPolicyFromConfig builds a policy from configuration.
func PollPolicyFromConfig(cfg *config.Config) PollPolicy {
	p := DefaultPollPolicy()
	if cfg == nil {
		return p
	}
	if cfg.PollInterval > 0 {
		p.Interval = cfg.PollInterval
	}
	if cfg.PollMultiplier > 0 {
		p.Multiplier = cfg.PollMultiplier
	}
	p.MaxInterval = cfg.PollMaxInterval
	p.MaxAttempts = cfg.PollMaxAttempts
	p.MaxElapsed = cfg.RunTimeout
	return p
}

// Delay returns the wait after the given 1-based check.
func (p PollPolicy) Delay(attempt int) time.Duration {
	interval := p.Interval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	d := interval
	if p.Multiplier > 1 && attempt > 1 {
		d = time.Duration(float64(interval) * math.Pow(p.Multiplier, float64(attempt-1)))
	}
	if p.MaxInterval > 0 && d > p.MaxInterval {
		d = p.MaxInterval
	}
	return d
}

// PollFunc performs one check. It returns true once the awaited state is reached.
type PollFunc func(ctx context.Context, attempt int) (bool, error)

// Wait runs check until it reports done, fails, the context ends or the policy is
// exhausted. The first check runs immediately, so n checks sleep n-1 times.
// Exhaustion yields an error wrapping domain.ErrRunTimeout.
func (p PollPolicy) Wait(ctx context.Context, clock Clock, check PollFunc) error {
	start := clock.Now()
	for attempt := 1; ; attempt++ {
		done, err := check(ctx, attempt)
		if err != nil {
			return err
		}
		if done {
			return nil
		}

		if p.MaxAttempts > 0 && attempt >= p.MaxAttempts {
			return fmt.Errorf("%w: gave up after %d checks", domain.ErrRunTimeout, attempt)
		}
		delay := p.Delay(attempt)
		if p.MaxElapsed > 0 {
			elapsed := clock.Now().Sub(start)
			if elapsed >= p.MaxElapsed {
				return fmt.Errorf("%w: gave up after %s", domain.ErrRunTimeout, elapsed.Round(time.Millisecond))
			}
			if remaining := p.MaxElapsed - elapsed; delay > remaining {
				delay = remaining
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-clock.After(delay):
		}
	}
}
