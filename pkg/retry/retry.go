package retry

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"time"

	"github.com/milkyway-analytics/milkyway/pkg/apperrors"
)

// Config defines retry behavior with exponential backoff.
type Config struct {
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	JitterFactor float64 // 0.0-1.0, spread applied to each delay
}

// DefaultConfig suits warehouse metadata lookups: 3 retries starting at
// 100ms, capped at 5s, doubling, with 10% jitter.
func DefaultConfig() *Config {
	return &Config{
		MaxRetries:   3,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		Multiplier:   2.0,
		JitterFactor: 0.1,
	}
}

// LLMConfig is used for hosted model calls, where rate limits clear slowly.
func LLMConfig() *Config {
	return &Config{
		MaxRetries:   2,
		InitialDelay: time.Second,
		MaxDelay:     10 * time.Second,
		Multiplier:   2.0,
		JitterFactor: 0.2,
	}
}

func applyJitter(delay time.Duration, jitterFactor float64) time.Duration {
	if jitterFactor <= 0 {
		return delay
	}
	jitter := float64(delay) * jitterFactor * (rand.Float64()*2 - 1)
	return time.Duration(float64(delay) + jitter)
}

// Do retries fn on every error until it succeeds or retries run out.
func Do(ctx context.Context, cfg *Config, fn func() error) error {
	_, err := DoWithResultIf(ctx, cfg, func(error) bool { return true }, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

// DoIfRetryable retries only errors that IsRetryable accepts; anything else
// is returned immediately.
func DoIfRetryable(ctx context.Context, cfg *Config, fn func() error) error {
	_, err := DoWithResultIf(ctx, cfg, IsRetryable, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

// DoWithResult retries fn on every error and returns its last result.
func DoWithResult[T any](ctx context.Context, cfg *Config, fn func() (T, error)) (T, error) {
	return DoWithResultIf(ctx, cfg, func(error) bool { return true }, fn)
}

// DoWithResultIf is the general form: shouldRetry decides per error whether
// another attempt is made. Context cancellation during a wait ends the loop
// with ctx.Err().
func DoWithResultIf[T any](ctx context.Context, cfg *Config, shouldRetry func(error) bool, fn func() (T, error)) (T, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	var (
		result  T
		lastErr error
	)
	delay := cfg.InitialDelay

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		r, err := fn()
		if err == nil {
			return r, nil
		}
		result, lastErr = r, err

		if !shouldRetry(err) || attempt == cfg.MaxRetries {
			break
		}

		select {
		case <-time.After(applyJitter(delay, cfg.JitterFactor)):
			delay = time.Duration(float64(delay) * cfg.Multiplier)
			if delay > cfg.MaxDelay {
				delay = cfg.MaxDelay
			}
		case <-ctx.Done():
			return result, ctx.Err()
		}
	}

	return result, lastErr
}

// RetryableError is implemented by errors that declare their own retryability,
// such as llm.Error.
type RetryableError interface {
	error
	IsRetryable() bool
}

var retryablePatterns = []string{
	"connection refused",
	"connection reset",
	"broken pipe",
	"no such host",
	"timeout",
	"timed out",
	"temporary failure",
	"too many connections",
	"deadlock",
	"network is unreachable",
	"429",
	"502",
	"503",
	"504",
	"rate limit",
	"overloaded",
	"service unavailable",
	"too many requests",
}

// IsRetryable determines if an error is transient and worth retrying.
// Checked in order: RetryableError, schema lookup kind, then message patterns.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var r RetryableError
	if errors.As(err, &r) {
		return r.IsRetryable()
	}

	var lookupErr *apperrors.SchemaLookupError
	if errors.As(err, &lookupErr) {
		return lookupErr.Kind == apperrors.SchemaLookupTransient
	}

	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	errStr := strings.ToLower(err.Error())
	for _, pattern := range retryablePatterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}
	return false
}
