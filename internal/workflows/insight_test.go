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

// insightCycleDef runs one insight cycle without the scheduling sleep, so
// tests exercise the daily body directly.
func insightCycleDef(w *Worker, tracker *statusTracker) workflow.Definition {
	return func(ctx *workflow.Context) error {
		registerStatusQuery(ctx, tracker)
		return w.runInsightCycle(ctx, tracker)
	}
}

func correlatedSeries() (a, b []float64) {
	for i := 0; i < 20; i++ {
		a = append(a, float64(i))
		b = append(b, float64(i)*2+5)
	}
	return a, b
}

func TestInsightCycleSavesCorrelations(t *testing.T) {
	deps := newFakeDeps()
	a, b := correlatedSeries()
	deps.prices["BTCUSDT"] = a
	deps.prices["ETHUSDT"] = b
	deps.prices["ADAUSDT"] = []float64{1, 1, 1, 1, 1}

	cfg := Config{InsightPairs: []MarketPair{
		{A: "BTCUSDT", B: "ETHUSDT"},
		{A: "BTCUSDT", B: "ADAUSDT"},
	}}
	w, rt := newTestWorker(t, deps, cfg)

	tracker := newStatusTracker(0)
	h, err := rt.Start("insight_cycle", insightCycleDef(w, tracker), nil)
	require.NoError(t, err)
	require.NoError(t, awaitDone(t, h))

	require.Len(t, deps.correlations, 2)

	perfect := deps.correlations[0]
	assert.InDelta(t, 1.0, perfect.Correlation, 1e-9)
	assert.Equal(t, model.StrengthVeryStrong, perfect.Strength)
	assert.Equal(t, 20, perfect.SampleSize)
	assert.NotEmpty(t, perfect.Explanation)

	flat := deps.correlations[1]
	assert.Zero(t, flat.Correlation)
	assert.Equal(t, model.StrengthWeak, flat.Strength)
	assert.Empty(t, flat.Explanation, "weak pairs skip the explanation call")

	// Only the very strong pair produces a signal.
	stored := deps.storedSignals()
	require.Len(t, stored, 1)
	assert.Equal(t, model.SignalTypeCorrelation, stored[0].Type)
	assert.ElementsMatch(t, []string{"BTCUSDT", "ETHUSDT"}, stored[0].RelatedMarkets)
}

func TestInsightCycleGeneratesPerUser(t *testing.T) {
	deps := newFakeDeps()
	deps.activeUsers = []string{"alice", "bob", "idle"}
	deps.positions["alice"] = []model.Position{{UserID: "alice", Symbol: "BTCUSDT", Side: "long", Size: 1}}
	deps.positions["bob"] = []model.Position{{UserID: "bob", Symbol: "ETHUSDT", Side: "short", Size: 2}}
	deps.recentSignals = []model.Signal{{ID: "s1", Type: model.SignalTypePriceAnomaly, Title: "move"}}
	deps.insightFn = func(summary model.PortfolioSummary) (inference.InsightDraft, error) {
		if summary.UserID == "alice" {
			return inference.InsightDraft{Title: "Concentration warning", Narrative: "one position dominates", Priority: "urgent"}, nil
		}
		return inference.InsightDraft{Title: "Daily review", Narrative: "steady as she goes", Priority: "normal"}, nil
	}

	w, rt := newTestWorker(t, deps, Config{})
	tracker := newStatusTracker(0)
	h, err := rt.Start("insight_cycle", insightCycleDef(w, tracker), nil)
	require.NoError(t, err)
	require.NoError(t, awaitDone(t, h))

	require.Len(t, deps.insights, 2, "no insight for users without open positions")
	users := map[string]model.InsightPriority{}
	for _, ins := range deps.insights {
		users[ins.UserID] = ins.Priority
	}
	assert.Equal(t, model.PriorityUrgent, users["alice"])
	assert.Equal(t, model.PriorityNormal, users["bob"])

	// Only high and urgent insights ping the user; the rest are saved quietly.
	assert.Contains(t, deps.notifications(), "insight:alice")
	assert.NotContains(t, deps.notifications(), "insight:bob")
}

func TestInsightCycleIsolatesUserFailures(t *testing.T) {
	deps := newFakeDeps()
	deps.activeUsers = []string{"alice", "bob"}
	deps.positions["alice"] = []model.Position{{UserID: "alice", Symbol: "BTCUSDT"}}
	deps.positions["bob"] = []model.Position{{UserID: "bob", Symbol: "ETHUSDT"}}
	deps.insightFn = func(summary model.PortfolioSummary) (inference.InsightDraft, error) {
		if summary.UserID == "alice" {
			return inference.InsightDraft{}, faulttolerance.Permanent(errors.New("generation failed"))
		}
		return inference.InsightDraft{Title: "ok", Priority: "high"}, nil
	}

	w, rt := newTestWorker(t, deps, Config{})
	tracker := newStatusTracker(0)
	h, err := rt.Start("insight_cycle", insightCycleDef(w, tracker), nil)
	require.NoError(t, err)
	require.NoError(t, awaitDone(t, h))

	require.Len(t, deps.insights, 1)
	assert.Equal(t, "bob", deps.insights[0].UserID)
	assert.Equal(t, model.PriorityHigh, deps.insights[0].Priority)
	assert.Contains(t, deps.notifications(), "insight:bob", "high priority still notifies")

	status := tracker.snapshot()
	assert.Equal(t, 1, status.ItemsProcessed)
	require.Len(t, status.Errors, 1)
	assert.Equal(t, "alice", status.Errors[0].ItemID)
}

func TestNextRunAt(t *testing.T) {
	base := time.Date(2026, time.March, 10, 4, 30, 0, 0, time.UTC)

	next := nextRunAt(base, 6)
	assert.Equal(t, time.Date(2026, time.March, 10, 6, 0, 0, 0, time.UTC), next)

	next = nextRunAt(base, 4)
	assert.Equal(t, time.Date(2026, time.March, 11, 4, 0, 0, 0, time.UTC), next, "a passed hour rolls to tomorrow")

	exact := time.Date(2026, time.March, 10, 6, 0, 0, 0, time.UTC)
	assert.Equal(t, exact.Add(24*time.Hour), nextRunAt(exact, 6), "strictly after now")
}
