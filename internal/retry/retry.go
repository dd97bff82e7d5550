// Package retry repeats fallible calls against external services with
// exponential backoff.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/picklr-io/domainctl/internal/logging"
)

// DefaultMaxAttempts is the number of tries, including the first one.
const DefaultMaxAttempts = 3

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Policy defines retry behavior for one kind of external call.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	// MaxDelay caps a single wait. Zero means uncapped.
	MaxDelay time.Duration
	// Jitter randomizes each wait within [delay/2, delay].
	Jitter bool
	// Sleep replaces the real timer, mainly in tests.
	Sleep SleepFunc
}

// DefaultPolicy returns a policy of 3 attempts starting at base.
func DefaultPolicy(base time.Duration) Policy {
	return Policy{
		MaxAttempts: DefaultMaxAttempts,
		BaseDelay:   base,
	}
}

// Backoff returns the wait after the given failed attempt (1-indexed):
// BaseDelay * 2^(failed-1), so the wait before attempt i is BaseDelay * 2^(i-2).
func (p Policy) Backoff(failed int) time.Duration {
	if failed < 1 {
		failed = 1
	}
	backoff := float64(p.BaseDelay) * math.Pow(2, float64(failed-1))
	if p.MaxDelay > 0 && backoff > float64(p.MaxDelay) {
		backoff = float64(p.MaxDelay)
	}
	if p.Jitter {
		backoff = backoff/2 + rand.Float64()*backoff/2
	}
	return time.Duration(backoff)
}

func (p Policy) sleep(ctx context.Context, d time.Duration) error {
	if p.Sleep != nil {
		return p.Sleep(ctx, d)
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Do runs op until it succeeds, returns a permanent error, or MaxAttempts is
// exhausted. Each failed attempt is logged with its ordinal.
func Do[T any](ctx context.Context, policy Policy, name string, op func(context.Context) (T, error)) (T, error) {
	var zero T
	attempts := policy.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		result, err := op(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if IsPermanent(err) {
			logging.Warn("operation failed permanently", "op", name, "attempt", attempt, "error", err)
			return zero, unwrapPermanent(err)
		}
		logging.Warn("operation failed", "op", name, "attempt", attempt, "max_attempts", attempts, "error", err)

		if attempt < attempts {
			if err := policy.sleep(ctx, policy.Backoff(attempt)); err != nil {
				return zero, fmt.Errorf("%s: retry cancelled after %d attempt(s): %w", name, attempt, errors.Join(err, lastErr))
			}
		}
	}

	return zero, fmt.Errorf("%s failed after %d attempt(s): %w", name, attempts, lastErr)
}

// Run is Do for operations without a result.
func Run(ctx context.Context, policy Policy, name string, op func(context.Context) error) error {
	_, err := Do(ctx, policy, name, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err, or anything it wraps, was marked with
// Permanent or implements Permanent() bool returning true.
func IsPermanent(err error) bool {
	var pe *permanentError
	if errors.As(err, &pe) {
		return true
	}
	var marker interface{ Permanent() bool }
	return errors.As(err, &marker) && marker.Permanent()
}

func unwrapPermanent(err error) error {
	var pe *permanentError
	if errors.As(err, &pe) && pe == err {
		return pe.err
	}
	return err
}
