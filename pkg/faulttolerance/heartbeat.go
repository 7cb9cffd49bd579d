package faulttolerance

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// HeartbeatMonitor watches a long-running operation and cancels it when no
// heartbeat arrives within the configured timeout. This fails a stalled
// operation early instead of waiting out its full execution timeout.
type HeartbeatMonitor struct {
	name    string
	timeout time.Duration
	logger  *logrus.Logger

	mutex    sync.Mutex
	lastBeat time.Time

	cancel  context.CancelCauseFunc
	done    chan struct{}
	stopped sync.Once
}

// ErrHeartbeatTimeout is the cancellation cause when an operation stalls.
var ErrHeartbeatTimeout = Permanent(errHeartbeatTimeout)

type heartbeatTimeoutError struct{}

func (heartbeatTimeoutError) Error() string { return "heartbeat timeout" }

var errHeartbeatTimeout = heartbeatTimeoutError{}

// NewHeartbeatMonitor wires a monitor onto ctx. The returned context is
// cancelled with ErrHeartbeatTimeout when beats stop arriving. Callers must
// invoke Stop once the operation finishes.
func NewHeartbeatMonitor(ctx context.Context, name string, timeout time.Duration, logger *logrus.Logger) (context.Context, *HeartbeatMonitor) {
	monitorCtx, cancel := context.WithCancelCause(ctx)

	hm := &HeartbeatMonitor{
		name:     name,
		timeout:  timeout,
		logger:   logger,
		lastBeat: time.Now(),
		cancel:   cancel,
		done:     make(chan struct{}),
	}

	go hm.watch(monitorCtx)
	return monitorCtx, hm
}

// Beat records liveness. Operations call this periodically while making
// progress.
func (hm *HeartbeatMonitor) Beat() {
	hm.mutex.Lock()
	hm.lastBeat = time.Now()
	hm.mutex.Unlock()
}

// Stop shuts the watchdog down without cancelling the operation.
func (hm *HeartbeatMonitor) Stop() {
	hm.stopped.Do(func() { close(hm.done) })
}

// watch checks the last beat at a quarter of the timeout interval.
func (hm *HeartbeatMonitor) watch(ctx context.Context) {
	interval := hm.timeout / 4
	if interval < 100*time.Millisecond {
		interval = 100 * time.Millisecond
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-hm.done:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			hm.mutex.Lock()
			stalled := time.Since(hm.lastBeat) > hm.timeout
			hm.mutex.Unlock()

			if stalled {
				hm.logger.Errorf("[%s] No heartbeat for %v, cancelling operation", hm.name, hm.timeout)
				hm.cancel(ErrHeartbeatTimeout)
				return
			}
		}
	}
}
