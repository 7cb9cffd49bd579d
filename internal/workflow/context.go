package workflow

import (
	"fmt"
	"log/slog"
	"time"
)

// Context is the workflow-side API of one execution. It is confined to the
// instance goroutine and must not be shared across goroutines.
type Context struct {
	runtime   *Runtime
	handle    *Handle
	input     any
	runCount  int
	logger    *slog.Logger
	cancelled bool
}

// Input returns the value the instance was started (or continued) with.
func (c *Context) Input() any { return c.input }

// RunCount reports how many continue-as-new boundaries this instance has
// crossed; 0 for the first execution.
func (c *Context) RunCount() int { return c.runCount }

// InstanceID returns the stable instance id, unchanged across continuations.
func (c *Context) InstanceID() string { return c.handle.id }

// Logger returns a logger annotated with the instance identity.
func (c *Context) Logger() *slog.Logger { return c.logger }

// SetQueryHandler registers a synchronous query handler. The handler runs
// under the handle mutex concurrently with execution, so it must be quick and
// return a copy of any mutable state.
func (c *Context) SetQueryHandler(name string, fn func() any) {
	c.handle.setQueryHandler(name, fn)
}

// Signaled pops one queued payload for the named signal. Non-blocking; this
// is the cooperative checkpoint workflows poll at loop boundaries.
func (c *Context) Signaled(name string) (any, bool) {
	return c.handle.popSignal(name)
}

// CancelRequested reports whether a cooperative cancel signal arrived. The
// flag latches: once observed it stays set for the rest of the execution, so
// every later checkpoint sees it too.
func (c *Context) CancelRequested() bool {
	if c.cancelled {
		return true
	}
	if _, ok := c.Signaled(SignalCancel); ok {
		c.cancelled = true
	}
	return c.cancelled
}

// Sleep suspends the instance for d without holding a worker slot busy with
// computation. It returns ErrShuttingDown when the runtime stops first.
func (c *Context) Sleep(d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-c.runtime.shutdown:
		return ErrShuttingDown
	}
}

// ContinueAsNew ends the current execution and restarts the definition with
// carry as its fresh input. All other in-memory state is discarded, which is
// what bounds state growth for indefinitely-repeating workflows.
func (c *Context) ContinueAsNew(carry any) error {
	return &continueAsNewError{carry: carry}
}

type continueAsNewError struct {
	carry any
}

func (e *continueAsNewError) Error() string {
	return fmt.Sprintf("continue as new (carry=%v)", e.carry)
}
