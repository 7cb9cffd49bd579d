package workflows

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/navid-fn/pulse/internal/inference"
	"github.com/navid-fn/pulse/internal/model"
	"github.com/navid-fn/pulse/internal/workflow"
	"github.com/navid-fn/pulse/pkg/faulttolerance"
)

func TestMarketMonitorSingleCycle(t *testing.T) {
	deps := newFakeDeps()
	deps.markets = []model.Market{
		{Symbol: "BTCUSDT", PrevPrice: 100, Price: 111, PrevVolume: 1000, Volume: 1100},
		{Symbol: "ETHUSDT", PrevPrice: 200, Price: 201, PrevVolume: 500, Volume: 1600},
		{Symbol: "ADAUSDT", PrevPrice: 50, Price: 50.5, PrevVolume: 300, Volume: 310},
	}

	w, rt := newTestWorker(t, deps, Config{MonitorInterval: time.Millisecond})
	h, err := rt.Start(WorkflowMarketMonitor, w.MarketMonitor, MonitorInput{})
	require.NoError(t, err)

	// A cancel queued up front is observed after the first cycle.
	h.Signal(workflow.SignalCancel, nil)
	require.NoError(t, awaitDone(t, h))

	stored := deps.storedSignals()
	require.Len(t, stored, 2)

	types := map[model.SignalType]string{}
	for _, sig := range stored {
		types[sig.Type] = sig.SourceID
	}
	assert.Equal(t, "BTCUSDT", types[model.SignalTypePriceAnomaly])
	assert.Equal(t, "ETHUSDT", types[model.SignalTypeVolumeAnomaly])

	// The 11% move is high severity, so it gets pushed.
	assert.Contains(t, deps.notifications(), "signal:price_anomaly")
	assert.Equal(t, 1, deps.expireCalls)
}

func TestMarketMonitorClassifiesBusyTraders(t *testing.T) {
	deps := newFakeDeps()
	for i := 0; i < 6; i++ {
		deps.trades = append(deps.trades, model.Trade{UserID: "whale", Symbol: "BTCUSDT", PnL: -40})
	}
	deps.trades = append(deps.trades, model.Trade{UserID: "minnow", Symbol: "BTCUSDT", PnL: 1})

	started := make(chan struct{})
	var handle *workflow.Handle
	classified := map[string]bool{}
	deps.classifyFn = func(userID string) (inference.BehaviorClassification, error) {
		classified[userID] = true
		// Stop after the first cycle.
		<-started
		handle.Signal(workflow.SignalCancel, nil)
		return inference.BehaviorClassification{RiskLevel: "high", Confidence: 0.9, Summary: "rapid leveraged entries"}, nil
	}

	w, rt := newTestWorker(t, deps, Config{MonitorInterval: time.Millisecond})
	h, err := rt.Start(WorkflowMarketMonitor, w.MarketMonitor, MonitorInput{})
	require.NoError(t, err)
	handle = h
	close(started)
	require.NoError(t, awaitDone(t, h))

	assert.True(t, classified["whale"])
	assert.False(t, classified["minnow"], "below the trade threshold")

	stored := deps.storedSignals()
	require.Len(t, stored, 1)
	assert.Equal(t, model.SignalTypeTraderBehavior, stored[0].Type)
	assert.Equal(t, "whale", stored[0].SourceID)
	assert.Contains(t, deps.notifications(), "behavior:whale")
}

func TestMarketMonitorCancelStopsClassificationSweep(t *testing.T) {
	deps := newFakeDeps()
	for _, user := range []string{"alpha", "beta"} {
		for i := 0; i < behaviorTradeThreshold; i++ {
			deps.trades = append(deps.trades, model.Trade{UserID: user, Symbol: "BTCUSDT"})
		}
	}

	started := make(chan struct{})
	var handle *workflow.Handle
	calls := 0
	deps.classifyFn = func(userID string) (inference.BehaviorClassification, error) {
		calls++
		<-started
		handle.Signal(workflow.SignalCancel, nil)
		return inference.BehaviorClassification{RiskLevel: "low"}, nil
	}

	w, rt := newTestWorker(t, deps, Config{MonitorInterval: time.Millisecond})
	h, err := rt.Start(WorkflowMarketMonitor, w.MarketMonitor, MonitorInput{})
	require.NoError(t, err)
	handle = h
	close(started)
	require.NoError(t, awaitDone(t, h))

	assert.Equal(t, 1, calls, "a cancel sent mid-sweep is observed before the next trader")
}

func TestMarketMonitorClassifiesTradersInStableOrder(t *testing.T) {
	deps := newFakeDeps()
	users := []string{"delta", "alpha", "charlie", "bravo", "echo"}
	for _, user := range users {
		for i := 0; i < behaviorTradeThreshold; i++ {
			deps.trades = append(deps.trades, model.Trade{UserID: user, Symbol: "BTCUSDT"})
		}
	}

	started := make(chan struct{})
	var handle *workflow.Handle
	var order []string
	deps.classifyFn = func(userID string) (inference.BehaviorClassification, error) {
		order = append(order, userID)
		if len(order) == len(users) {
			<-started
			handle.Signal(workflow.SignalCancel, nil)
		}
		return inference.BehaviorClassification{RiskLevel: "low"}, nil
	}

	w, rt := newTestWorker(t, deps, Config{MonitorInterval: time.Millisecond})
	h, err := rt.Start(WorkflowMarketMonitor, w.MarketMonitor, MonitorInput{})
	require.NoError(t, err)
	handle = h
	close(started)
	require.NoError(t, awaitDone(t, h))

	assert.Equal(t, []string{"alpha", "bravo", "charlie", "delta", "echo"}, order)
}

func TestMarketMonitorFailureStillSchedulesNextCycle(t *testing.T) {
	deps := newFakeDeps()

	calls := 0
	deps.activeMarketsFn = func() ([]model.Market, error) {
		calls++
		if calls == 1 {
			return nil, faulttolerance.Permanent(errors.New("store down"))
		}
		return nil, nil
	}

	w, rt := newTestWorker(t, deps, Config{MonitorInterval: time.Millisecond})
	h, err := rt.Start(WorkflowMarketMonitor, w.MarketMonitor, MonitorInput{})
	require.NoError(t, err)

	// The failed first cycle must not stop the second from running.
	require.Eventually(t, func() bool {
		for _, rec := range deps.auditRecords() {
			if rec.Event == model.AuditCompleted && rec.CycleCount >= 1 {
				return true
			}
		}
		return false
	}, 5*time.Second, 5*time.Millisecond)

	var sawFailure bool
	for _, rec := range deps.auditRecords() {
		if rec.Event == model.AuditFailed && rec.CycleCount == 0 {
			sawFailure = true
		}
	}
	assert.True(t, sawFailure, "first cycle failure is audited")

	h.Signal(workflow.SignalCancel, nil)
	require.NoError(t, awaitDone(t, h))
}

func TestMarketMonitorCarriesCycleCount(t *testing.T) {
	deps := newFakeDeps()

	w, rt := newTestWorker(t, deps, Config{MonitorInterval: time.Millisecond})
	h, err := rt.Start(WorkflowMarketMonitor, w.MarketMonitor, MonitorInput{CycleCount: 7})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		status, err := h.Query(QueryStatus)
		if err != nil {
			return false
		}
		return status.(model.RunStatus).CycleCount >= 9
	}, 5*time.Second, 5*time.Millisecond, "cycle counter keeps rising across continuations")

	h.Signal(workflow.SignalCancel, nil)
	require.NoError(t, awaitDone(t, h))
}
