// Package retry runs operations with bounded exponential backoff.
package retry

import (
	"context"
	"errors"
	"time"
)

// Outcome describes how a retried operation finished.
type Outcome string

const (
	// Succeeded means an attempt returned without error.
	Succeeded Outcome = "success"
	// Exhausted means every attempt failed with a retryable error.
	Exhausted Outcome = "exhausted"
	// Aborted means a non-retryable error or context cancellation stopped retries.
	Aborted Outcome = "aborted"
)

// Policy bounds the retry loop.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	// Retryable decides whether an error warrants another attempt.
	// Nil retries every error.
	Retryable func(error) bool
}

// DefaultPolicy allows four attempts starting at one second, capped at 30 seconds.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 4,
		BaseDelay:   time.Second,
		MaxDelay:    30 * time.Second,
	}
}

// Result carries the final value along with how it was obtained.
type Result[T any] struct {
	Value    T
	Attempts int
	Outcome  Outcome
	Err      error
}

// OK reports whether the operation succeeded.
func (r Result[T]) OK() bool {
	return r.Outcome == Succeeded
}

// Do calls fn until it succeeds, returns a non-retryable error,
// the context is cancelled, or MaxAttempts is reached.
func Do[T any](ctx context.Context, p Policy, fn func(ctx context.Context) (T, error)) Result[T] {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}

	var res Result[T]
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		res.Attempts = attempt

		v, err := fn(ctx)
		if err == nil {
			res.Value = v
			res.Outcome = Succeeded
			res.Err = nil
			return res
		}
		res.Err = err

		if p.Retryable != nil && !p.Retryable(err) {
			res.Outcome = Aborted
			return res
		}
		if attempt == p.MaxAttempts {
			break
		}

		timer := time.NewTimer(p.Delay(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			res.Outcome = Aborted
			res.Err = errors.Join(err, ctx.Err())
			return res
		case <-timer.C:
		}
	}

	res.Outcome = Exhausted
	return res
}

// Delay returns the backoff before the attempt following the given one:
// BaseDelay doubled per prior attempt, capped at MaxDelay.
func (p Policy) Delay(attempt int) time.Duration {
	d := p.BaseDelay
	for i := 1; i < attempt; i++ {
		d *= 2
		if p.MaxDelay > 0 && d >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if p.MaxDelay > 0 && d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}
