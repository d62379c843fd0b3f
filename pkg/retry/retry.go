// Package retry provides bounded exponential-backoff retries for calls to
// external search and LLM backends.
package retry

import (
	"context"
	"errors"
	"time"
)

// Policy bounds a retried operation. Waits grow exponentially from Multiplier
// and are clamped to [MinWait, MaxWait].
type Policy struct {
	Attempts   int
	Multiplier time.Duration
	MinWait    time.Duration
	MaxWait    time.Duration
}

// DefaultPolicy matches the backoff used across all retrying services:
// 3 attempts, exponential wait with a 2s floor and a 10s ceiling.
func DefaultPolicy() Policy {
	return Policy{
		Attempts:   3,
		Multiplier: 1 * time.Second,
		MinWait:    2 * time.Second,
		MaxWait:    10 * time.Second,
	}
}

func (p Policy) withDefaults() Policy {
	if p.Attempts <= 0 {
		p.Attempts = 1
	}
	if p.Multiplier <= 0 {
		p.Multiplier = 1 * time.Second
	}
	if p.MinWait <= 0 {
		p.MinWait = 2 * time.Second
	}
	if p.MaxWait < p.MinWait {
		p.MaxWait = p.MinWait
	}
	return p
}

// permanentError marks an error that must not be retried, e.g. a missing
// credential or a malformed backend spec.
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent wraps err so that Do returns it immediately without retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var pe *permanentError
	return errors.As(err, &pe)
}

// Do runs fn until it succeeds, the attempt budget is exhausted, or the
// context is cancelled. The error returned after exhaustion is the last
// error produced by fn, not a wrapper, so callers can format stage-local
// error messages from the original failure.
func Do(ctx context.Context, policy Policy, fn func(context.Context) error) error {
	policy = policy.withDefaults()

	var lastErr error
	for attempt := 0; attempt < policy.Attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return lastErr
			}
			return err
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if IsPermanent(lastErr) {
			return lastErr
		}
		if attempt == policy.Attempts-1 {
			break
		}

		t := time.NewTimer(policy.wait(attempt))
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return lastErr
		}
	}
	return lastErr
}

// wait computes the sleep before retrying attempt n (0-based).
func (p Policy) wait(attempt int) time.Duration {
	sleep := p.Multiplier
	for i := 0; i < attempt && sleep < p.MaxWait; i++ {
		sleep *= 2
	}
	if sleep < p.MinWait {
		sleep = p.MinWait
	}
	if sleep > p.MaxWait {
		sleep = p.MaxWait
	}
	return sleep
}
