package workflow

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrUnknownQuery is returned when no handler is registered for a query name.
var ErrUnknownQuery = errors.New("unknown query")

// ErrStillRunning is returned by Err while the instance has not finished.
var ErrStillRunning = errors.New("workflow instance still running")

// Handle is the external view of one workflow instance. Queries are
// synchronous and safe to call concurrently with execution; signals are
// queued and observed by the instance at its next cooperative checkpoint.
type Handle struct {
	id        string
	workflow  string
	startedAt time.Time

	mutex         sync.Mutex
	queryHandlers map[string]func() any
	signals       map[string][]any

	done chan struct{}
	err  error
}

func newHandle(id, workflowName string) *Handle {
	return &Handle{
		id:            id,
		workflow:      workflowName,
		startedAt:     time.Now(),
		queryHandlers: make(map[string]func() any),
		signals:       make(map[string][]any),
		done:          make(chan struct{}),
	}
}

// ID returns the instance id.
func (h *Handle) ID() string { return h.id }

// Workflow returns the workflow family name.
func (h *Handle) Workflow() string { return h.workflow }

// StartedAt returns when the instance was started.
func (h *Handle) StartedAt() time.Time { return h.startedAt }

// Query invokes the registered query handler and returns its result.
// Handlers run under the handle mutex, so they must be fast and must return
// copies of any mutable state.
func (h *Handle) Query(name string) (any, error) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	handler, ok := h.queryHandlers[name]
	if !ok {
		return nil, ErrUnknownQuery
	}
	return handler(), nil
}

// Signal queues a payload under the given name. Best effort: a finished
// instance silently drops the signal.
func (h *Handle) Signal(name string, payload any) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	select {
	case <-h.done:
		return
	default:
	}
	h.signals[name] = append(h.signals[name], payload)
}

// Done is closed once the instance finished (completed or failed).
func (h *Handle) Done() <-chan struct{} { return h.done }

// Err returns the terminal error, nil on success, or ErrStillRunning.
func (h *Handle) Err() error {
	select {
	case <-h.done:
		h.mutex.Lock()
		defer h.mutex.Unlock()
		return h.err
	default:
		return ErrStillRunning
	}
}

// Await blocks until the instance finishes or ctx is cancelled.
func (h *Handle) Await(ctx context.Context) error {
	select {
	case <-h.done:
		return h.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Running reports whether the instance is still executing.
func (h *Handle) Running() bool {
	select {
	case <-h.done:
		return false
	default:
		return true
	}
}

func (h *Handle) setQueryHandler(name string, fn func() any) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.queryHandlers[name] = fn
}

// resetQueryHandlers clears handlers between continue-as-new runs. Queued
// signals survive the boundary so a cancel sent during a sleep is not lost.
func (h *Handle) resetQueryHandlers() {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.queryHandlers = make(map[string]func() any)
}

func (h *Handle) popSignal(name string) (any, bool) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	queue := h.signals[name]
	if len(queue) == 0 {
		return nil, false
	}
	payload := queue[0]
	h.signals[name] = queue[1:]
	return payload, true
}

func (h *Handle) finish(err error) {
	h.mutex.Lock()
	h.err = err
	h.mutex.Unlock()
	close(h.done)
}
