// Package retry provides a single exponential-backoff-with-jitter
// combinator, with preset schedules for signer dispatch, RPC balance
// checks, webhook delivery and database writes. Nothing in this module
// calls Do outside its own tests.
package retry

import (
	"context"
	"math"
	"math/rand"
	"time"

	agentpayerrors "github.com/sardis-labs/agentpay/core/errors"
)

// Config parameterizes the backoff schedule and the retry/non-retry
// classification for a call site.
type Config struct {
	MaxRetries      int
	BaseDelay       time.Duration
	MaxDelay        time.Duration
	ExponentialBase float64
	Jitter          float64 // fraction of the computed delay, e.g. 0.1 = +/-10%

	// Retryable lists the error codes that trigger a retry. A nil slice
	// retries any error that is not in NonRetryable.
	Retryable []agentpayerrors.Code
	// NonRetryable takes precedence over Retryable.
	NonRetryable []agentpayerrors.Code
}

// Preset configurations mirrored from the source system's per-dependency
// tuning (MPC signer, chain RPC, database, webhook delivery).
var (
	MPCConfig = Config{
		MaxRetries: 3, BaseDelay: 200 * time.Millisecond, MaxDelay: 2 * time.Second,
		ExponentialBase: 2, Jitter: 0.1,
	}
	RPCConfig = Config{
		MaxRetries: 5, BaseDelay: 250 * time.Millisecond, MaxDelay: 5 * time.Second,
		ExponentialBase: 2, Jitter: 0.2,
	}
	DBConfig = Config{
		MaxRetries: 3, BaseDelay: 100 * time.Millisecond, MaxDelay: 1 * time.Second,
		ExponentialBase: 2, Jitter: 0.1,
	}
	WebhookConfig = Config{
		MaxRetries: 3, BaseDelay: time.Second, MaxDelay: 60 * time.Second,
		ExponentialBase: 2, Jitter: 0.1,
	}
)

func (c Config) delay(attempt int) time.Duration {
	base := float64(c.BaseDelay) * math.Pow(c.ExponentialBase, float64(attempt))
	if max := float64(c.MaxDelay); c.MaxDelay > 0 && base > max {
		base = max
	}
	if c.Jitter > 0 {
		span := base * c.Jitter
		base += (rand.Float64()*2 - 1) * span
	}
	if base < 0 {
		base = 0
	}
	return time.Duration(base)
}

func (c Config) shouldRetry(err error) bool {
	code := agentpayerrors.CodeOf(err)
	for _, nr := range c.NonRetryable {
		if nr == code {
			return false
		}
	}
	if len(c.Retryable) == 0 {
		return true
	}
	for _, r := range c.Retryable {
		if r == code {
			return true
		}
	}
	return false
}

// Stats reports what happened across a Do invocation.
type Stats struct {
	Attempts   int
	TotalDelay time.Duration
	Succeeded  bool
	LastErr    error
}

// Exhausted is returned when every retry attempt failed.
type Exhausted struct {
	Stats Stats
	Err   error
}

func (e *Exhausted) Error() string { return "retry attempts exhausted: " + e.Err.Error() }
func (e *Exhausted) Unwrap() error { return e.Err }

// Do runs fn, retrying on retryable failures per cfg. attempt 0 is the
// initial call; MaxRetries bounds the number of additional attempts.
// OnRetry, if non-nil, is invoked before each sleep with the attempt
// number (1-based), the error that triggered the retry, and the delay
// about to be slept.
func Do(ctx context.Context, cfg Config, onRetry func(attempt int, err error, delay time.Duration), fn func(ctx context.Context) error) (Stats, error) {
	stats := Stats{}
	var lastErr error
	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		stats.Attempts++
		err := fn(ctx)
		if err == nil {
			stats.Succeeded = true
			return stats, nil
		}
		lastErr = err
		stats.LastErr = err

		if attempt == cfg.MaxRetries || !cfg.shouldRetry(err) {
			break
		}

		d := cfg.delay(attempt)
		stats.TotalDelay += d
		if onRetry != nil {
			onRetry(attempt+1, err, d)
		}
		select {
		case <-ctx.Done():
			return stats, ctx.Err()
		case <-time.After(d):
		}
	}
	return stats, &Exhausted{Stats: stats, Err: lastErr}
}
