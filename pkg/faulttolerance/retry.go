// Package faulttolerance provides retry with exponential backoff and a
// heartbeat watchdog for long-running operations.
package faulttolerance

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrNonRetryable wraps errors that must not be retried. Use Permanent() to
// mark an error as terminal from inside a retried function.
var ErrNonRetryable = errors.New("non-retryable error")

// Permanent marks err as terminal so the retryer fails fast instead of
// burning the remaining attempts.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrNonRetryable, err)
}

// RetryPolicy holds configuration for retry mechanisms.
type RetryPolicy struct {
	InitialInterval    time.Duration // Delay before the first retry
	BackoffCoefficient float64       // Multiplier for exponential backoff
	MaxInterval        time.Duration // Maximum delay between retries
	MaxAttempts        int           // Maximum number of attempts (including the first)
	JitterRange        float64       // Jitter range (0.0 to 1.0)
	Name               string        // Name for logging
}

// DefaultRetryPolicy returns a sensible default policy for external calls.
func DefaultRetryPolicy(name string) RetryPolicy {
	return RetryPolicy{
		InitialInterval:    1 * time.Second,
		BackoffCoefficient: 2.0,
		MaxInterval:        30 * time.Second,
		MaxAttempts:        3,
		JitterRange:        0.1,
		Name:               name,
	}
}

// RetryableFunc is a function that can be retried.
type RetryableFunc func(ctx context.Context) error

// Retryer handles retry logic with exponential backoff and jitter.
type Retryer struct {
	policy RetryPolicy
	logger *logrus.Logger
	rng    *rand.Rand
}

// NewRetryer creates a new retryer, filling in defaults for zero-valued
// policy fields.
func NewRetryer(policy RetryPolicy, logger *logrus.Logger) *Retryer {
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = 3
	}
	if policy.InitialInterval <= 0 {
		policy.InitialInterval = 1 * time.Second
	}
	if policy.MaxInterval <= 0 {
		policy.MaxInterval = 30 * time.Second
	}
	if policy.BackoffCoefficient <= 1.0 {
		policy.BackoffCoefficient = 2.0
	}
	if policy.JitterRange < 0 || policy.JitterRange > 1.0 {
		policy.JitterRange = 0.1
	}
	if policy.Name == "" {
		policy.Name = "Retryer"
	}

	return &Retryer{
		policy: policy,
		logger: logger,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Execute runs fn until it succeeds, the attempts are exhausted, the error is
// marked non-retryable, or the context is cancelled.
func (r *Retryer) Execute(ctx context.Context, fn RetryableFunc) error {
	var lastErr error

	for attempt := 1; attempt <= r.policy.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		err := fn(ctx)
		if err == nil {
			if attempt > 1 {
				r.logger.Infof("[%s] Operation succeeded on attempt %d", r.policy.Name, attempt)
			}
			return nil
		}

		lastErr = err

		if errors.Is(err, ErrNonRetryable) {
			r.logger.Errorf("[%s] Non-retryable error: %v", r.policy.Name, err)
			return err
		}

		if attempt == r.policy.MaxAttempts {
			r.logger.Errorf("[%s] All %d attempts failed, last error: %v", r.policy.Name, attempt, err)
			break
		}

		delay := r.calculateDelay(attempt)
		r.logger.Warnf("[%s] Attempt %d failed: %v. Retrying in %v...", r.policy.Name, attempt, err, delay)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
			continue
		}
	}

	return fmt.Errorf("max retry attempts (%d) exceeded: %w", r.policy.MaxAttempts, lastErr)
}

// calculateDelay calculates the delay for the next retry with exponential
// backoff and jitter.
func (r *Retryer) calculateDelay(attempt int) time.Duration {
	delay := float64(r.policy.InitialInterval) * math.Pow(r.policy.BackoffCoefficient, float64(attempt-1))

	if delay > float64(r.policy.MaxInterval) {
		delay = float64(r.policy.MaxInterval)
	}

	// Jitter avoids thundering-herd retries against a recovering dependency
	if r.policy.JitterRange > 0 {
		jitter := r.rng.Float64() * r.policy.JitterRange * delay
		if r.rng.Float64() < 0.5 {
			delay -= jitter
		} else {
			delay += jitter
		}
	}

	if delay < float64(r.policy.InitialInterval) {
		delay = float64(r.policy.InitialInterval)
	}

	return time.Duration(delay)
}
