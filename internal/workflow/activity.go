package workflow

import (
	"context"
	"time"

	"github.com/navid-fn/pulse/pkg/faulttolerance"
)

// ActivityOptions bound a single activity call.
type ActivityOptions struct {
	// StartToCloseTimeout limits one attempt end to end.
	StartToCloseTimeout time.Duration

	// HeartbeatTimeout, when set, fails an attempt early if the activity
	// stops heartbeating. Leave zero for short calls.
	HeartbeatTimeout time.Duration

	// RetryPolicy governs attempts. Zero-value fields get defaults.
	RetryPolicy faulttolerance.RetryPolicy
}

// DefaultActivityOptions suits most store and inference calls.
func DefaultActivityOptions() ActivityOptions {
	return ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy:         faulttolerance.RetryPolicy{MaxAttempts: 3},
	}
}

// ActivityFunc is one unit of non-deterministic work. Long-running activities
// call heartbeat periodically while making progress.
type ActivityFunc func(ctx context.Context, heartbeat func()) error

// Execute runs a single activity under its timeout, heartbeat, and retry
// policy. On exhaustion the terminal failure is returned to the workflow.
// This is the only place workflow code may perform I/O.
func (c *Context) Execute(name string, opts ActivityOptions, fn ActivityFunc) error {
	if opts.StartToCloseTimeout <= 0 {
		opts.StartToCloseTimeout = 30 * time.Second
	}
	policy := opts.RetryPolicy
	if policy.Name == "" {
		policy.Name = name
	}

	retryer := faulttolerance.NewRetryer(policy, c.runtime.ftLog)

	baseCtx, cancel := contextFromShutdown(c.runtime.shutdown)
	defer cancel()

	return retryer.Execute(baseCtx, func(ctx context.Context) error {
		attemptCtx, cancelAttempt := context.WithTimeout(ctx, opts.StartToCloseTimeout)
		defer cancelAttempt()

		heartbeat := func() {}
		if opts.HeartbeatTimeout > 0 {
			monitorCtx, monitor := faulttolerance.NewHeartbeatMonitor(attemptCtx, name, opts.HeartbeatTimeout, c.runtime.ftLog)
			defer monitor.Stop()
			attemptCtx = monitorCtx
			heartbeat = monitor.Beat
		}

		return fn(attemptCtx, heartbeat)
	})
}

// contextFromShutdown derives a context cancelled by runtime shutdown, so
// in-flight activities stop retrying when the worker exits.
func contextFromShutdown(shutdown <-chan struct{}) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		select {
		case <-shutdown:
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}
