// Package workflow implements a lightweight in-process orchestration runtime.
// A workflow definition is a logically single-threaded function that does all
// its non-deterministic work (I/O, external calls, time) through the activity
// executor, so failures can be retried without re-executing committed side
// effects. Instances support synchronous status queries, asynchronous signals,
// cooperative sleep, and continue-as-new for unbounded loops.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// SignalCancel is the well-known cooperative cancellation signal name.
const SignalCancel = "cancel"

// ErrShuttingDown is returned by Start once the runtime began shutting down.
var ErrShuttingDown = errors.New("runtime is shutting down")

// completedRetention is how many finished instances stay queryable. Once it is
// exceeded the oldest finished handles are dropped, so a long-lived worker
// does not accumulate one handle per triggered run forever.
const completedRetention = 256

// Definition is the body of a workflow. It must route all I/O through
// ctx.Execute and poll signals at loop boundaries.
type Definition func(ctx *Context) error

// Runtime owns workflow instances. Many instances run concurrently, each
// internally single-threaded; the semaphore bounds cross-instance parallelism.
type Runtime struct {
	logger *slog.Logger
	ftLog  *logrus.Logger
	sem    chan struct{}

	mutex     sync.RWMutex
	instances map[string]*Handle
	finished  []string

	shutdownOnce sync.Once
	shutdown     chan struct{}
	wg           sync.WaitGroup
}

// NewRuntime creates a runtime allowing up to maxConcurrent instances to
// execute in parallel.
func NewRuntime(logger *slog.Logger, maxConcurrent int) *Runtime {
	if maxConcurrent <= 0 {
		maxConcurrent = 64
	}

	ftLog := logrus.New()
	ftLog.SetLevel(logrus.WarnLevel)
	ftLog.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	return &Runtime{
		logger:    logger,
		ftLog:     ftLog,
		sem:       make(chan struct{}, maxConcurrent),
		instances: make(map[string]*Handle),
		shutdown:  make(chan struct{}),
	}
}

// Start launches a new instance of the definition and returns its handle.
// It blocks while the runtime is at its concurrency cap.
func (r *Runtime) Start(workflowName string, def Definition, input any) (*Handle, error) {
	select {
	case <-r.shutdown:
		return nil, ErrShuttingDown
	default:
	}

	select {
	case r.sem <- struct{}{}:
	case <-r.shutdown:
		return nil, ErrShuttingDown
	}

	h := newHandle(uuid.NewString(), workflowName)

	r.mutex.Lock()
	r.instances[h.id] = h
	r.mutex.Unlock()

	r.wg.Add(1)
	go r.run(h, def, input)

	r.logger.Info("Workflow instance started", "workflow", workflowName, "instance_id", h.id)
	return h, nil
}

// Get returns the handle for a known instance id.
func (r *Runtime) Get(instanceID string) (*Handle, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	h, ok := r.instances[instanceID]
	return h, ok
}

// Shutdown stops accepting new instances and waits for running ones to reach
// their next cooperative checkpoint, bounded by ctx.
func (r *Runtime) Shutdown(ctx context.Context) error {
	r.shutdownOnce.Do(func() { close(r.shutdown) })

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// run drives one instance, restarting the definition on continue-as-new with
// the carried value as the fresh input. Each restart resets the execution's
// state; only the carry survives.
func (r *Runtime) run(h *Handle, def Definition, input any) {
	defer r.wg.Done()
	defer func() { <-r.sem }()

	runCount := 0
	for {
		wfCtx := &Context{
			runtime:  r,
			handle:   h,
			input:    input,
			runCount: runCount,
			logger:   r.logger.With("workflow", h.workflow, "instance_id", h.id, "run", runCount),
		}

		err := r.safeExecute(def, wfCtx)

		var can *continueAsNewError
		if errors.As(err, &can) {
			input = can.carry
			runCount++
			h.resetQueryHandlers()
			r.logger.Info("Workflow continued as new", "workflow", h.workflow, "instance_id", h.id, "run", runCount)
			continue
		}

		if err != nil {
			r.logger.Error("Workflow instance failed", "workflow", h.workflow, "instance_id", h.id, "error", err)
		} else {
			r.logger.Info("Workflow instance completed", "workflow", h.workflow, "instance_id", h.id)
		}
		r.retire(h.id)
		h.finish(err)
		return
	}
}

// retire marks an instance as finished and evicts the oldest finished handles
// beyond the retention window.
func (r *Runtime) retire(id string) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.finished = append(r.finished, id)
	for len(r.finished) > completedRetention {
		delete(r.instances, r.finished[0])
		r.finished = r.finished[1:]
	}
}

// safeExecute converts a definition panic into an instance-level failure so
// one bad instance cannot take down the worker.
func (r *Runtime) safeExecute(def Definition, ctx *Context) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("workflow panic: %v", rec)
		}
	}()
	return def(ctx)
}
