package veneer

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	defaultRetryBaseDelay  = 200 * time.Millisecond
	defaultRetryMultiplier = 2.0
	defaultRetryMaxDelay   = 5 * time.Second
)

// RetryPolicy retries failed dispatches with capped exponential backoff:
// the nth retry waits min(BaseDelay * Multiplier^n, MaxDelay).
type RetryPolicy struct {
	// Attempts is the number of retries after the initial dispatch, so a
	// policy with Attempts=3 dispatches at most 4 times.
	Attempts int
	// BaseDelay is the wait before the first retry. Defaults to 200ms.
	BaseDelay time.Duration
	// Multiplier grows the delay between consecutive retries. Defaults to 2.
	Multiplier float64
	// MaxDelay caps the per-retry wait. Defaults to 5s.
	MaxDelay time.Duration
	// RetryIf decides whether an error is worth retrying.
	// Defaults to IsRetryable.
	RetryIf func(error) bool
}

func (p *RetryPolicy) shouldRetry(err error) bool {
	if p.RetryIf != nil {
		return p.RetryIf(err)
	}
	return IsRetryable(err)
}

// newBackOff builds the backoff schedule for one call. Randomization is
// disabled so the delay sequence is exactly the documented formula.
func (p *RetryPolicy) newBackOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.BaseDelay
	if b.InitialInterval <= 0 {
		b.InitialInterval = defaultRetryBaseDelay
	}
	b.Multiplier = p.Multiplier
	if b.Multiplier <= 0 {
		b.Multiplier = defaultRetryMultiplier
	}
	b.MaxInterval = p.MaxDelay
	if b.MaxInterval <= 0 {
		b.MaxInterval = defaultRetryMaxDelay
	}
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0
	b.Reset()

	attempts := p.Attempts
	if attempts < 0 {
		attempts = 0
	}
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(attempts)), ctx)
}
