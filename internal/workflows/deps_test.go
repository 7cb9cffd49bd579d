package workflows

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/navid-fn/pulse/internal/inference"
	"github.com/navid-fn/pulse/internal/model"
	"github.com/navid-fn/pulse/internal/workflow"
)

// fakeDeps is an in-memory Deps implementation. Fixture fields feed reads,
// recorder fields capture writes, and the optional fn hooks override specific
// calls for failure injection.
type fakeDeps struct {
	mu sync.Mutex

	markets       []model.Market
	trades        []model.Trade
	prices        map[string][]float64
	metrics       map[string]model.TraderMetrics
	badges        map[string][]model.Badge
	activeUsers   []string
	positions     map[string][]model.Position
	participants  []model.Participant
	priorSnapshot *model.LeaderboardSnapshot
	recentSignals []model.Signal

	activeMarketsFn func() ([]model.Market, error)
	metricsFn       func(userID string) (model.TraderMetrics, error)
	extractFn       func(item model.BatchItem) (*inference.ExtractionResult, error)
	classifyFn      func(userID string) (inference.BehaviorClassification, error)
	sentimentFn     func(content string) (inference.SentimentScore, error)
	insightFn       func(summary model.PortfolioSummary) (inference.InsightDraft, error)
	storeFn         func(signals []*model.Signal) error

	stored       []*model.Signal
	correlations []model.CorrelationResult
	insights     []model.Insight
	stats        []model.PeriodStats
	reputations  []model.ReputationScore
	awarded      []model.Badge
	snapshots    []*model.LeaderboardSnapshot
	history      []model.LeaderboardHistoryRow
	audits       []model.AuditRecord
	notified     []string
	expireCalls  int
}

func newFakeDeps() *fakeDeps {
	return &fakeDeps{
		prices:    make(map[string][]float64),
		metrics:   make(map[string]model.TraderMetrics),
		badges:    make(map[string][]model.Badge),
		positions: make(map[string][]model.Position),
	}
}

func (f *fakeDeps) ActiveMarkets(context.Context) ([]model.Market, error) {
	f.mu.Lock()
	fn := f.activeMarketsFn
	markets := f.markets
	f.mu.Unlock()
	if fn != nil {
		return fn()
	}
	return markets, nil
}

func (f *fakeDeps) RecentTrades(context.Context, time.Time) ([]model.Trade, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.trades, nil
}

func (f *fakeDeps) PriceHistory(_ context.Context, symbol string, _ time.Time) ([]float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.prices[symbol], nil
}

func (f *fakeDeps) StoreSignals(_ context.Context, signals []*model.Signal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.storeFn != nil {
		if err := f.storeFn(signals); err != nil {
			return err
		}
	}
	f.stored = append(f.stored, signals...)
	return nil
}

func (f *fakeDeps) ExpireSignals(context.Context, time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.expireCalls++
	return 0, nil
}

func (f *fakeDeps) RecentSignalsForMarkets(context.Context, []string, int) ([]model.Signal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.recentSignals, nil
}

func (f *fakeDeps) SaveCorrelation(_ context.Context, result model.CorrelationResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.correlations = append(f.correlations, result)
	return nil
}

func (f *fakeDeps) SaveInsight(_ context.Context, insight model.Insight) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.insights = append(f.insights, insight)
	return nil
}

func (f *fakeDeps) TradesForUser(_ context.Context, userID string, _, _ time.Time) ([]model.Trade, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Trade
	for _, t := range f.trades {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeDeps) TraderMetrics(_ context.Context, userID string) (model.TraderMetrics, error) {
	f.mu.Lock()
	fn := f.metricsFn
	m := f.metrics[userID]
	f.mu.Unlock()
	if fn != nil {
		return fn(userID)
	}
	return m, nil
}

func (f *fakeDeps) SavePeriodStats(_ context.Context, stats model.PeriodStats) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stats = append(f.stats, stats)
	return nil
}

func (f *fakeDeps) SaveReputation(_ context.Context, score model.ReputationScore) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reputations = append(f.reputations, score)
	return nil
}

func (f *fakeDeps) Badges(_ context.Context, userID string) ([]model.Badge, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.badges[userID], nil
}

func (f *fakeDeps) AwardBadges(_ context.Context, badges []model.Badge) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.awarded = append(f.awarded, badges...)
	for _, b := range badges {
		f.badges[b.UserID] = append(f.badges[b.UserID], b)
	}
	return nil
}

func (f *fakeDeps) ActiveUserIDs(context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.activeUsers, nil
}

func (f *fakeDeps) OpenPositions(_ context.Context, userID string) ([]model.Position, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.positions[userID], nil
}

func (f *fakeDeps) Participants(context.Context, model.Period, string, int) ([]model.Participant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.participants, nil
}

func (f *fakeDeps) LatestSnapshot(context.Context, model.LeaderboardMetric, model.Period, string) (*model.LeaderboardSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.priorSnapshot, nil
}

func (f *fakeDeps) SaveSnapshot(_ context.Context, snapshot *model.LeaderboardSnapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snapshots = append(f.snapshots, snapshot)
	f.priorSnapshot = snapshot
	return nil
}

func (f *fakeDeps) AppendLeaderboardHistory(_ context.Context, rows []model.LeaderboardHistoryRow) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.history = append(f.history, rows...)
	return nil
}

func (f *fakeDeps) ExtractSignal(_ context.Context, item model.BatchItem) (*inference.ExtractionResult, error) {
	f.mu.Lock()
	fn := f.extractFn
	f.mu.Unlock()
	if fn != nil {
		return fn(item)
	}
	return nil, nil
}

func (f *fakeDeps) ClassifyBehavior(_ context.Context, userID string, _ []model.Trade) (inference.BehaviorClassification, error) {
	f.mu.Lock()
	fn := f.classifyFn
	f.mu.Unlock()
	if fn != nil {
		return fn(userID)
	}
	return inference.BehaviorClassification{RiskLevel: "low"}, nil
}

func (f *fakeDeps) ScoreSentiment(_ context.Context, content string) (inference.SentimentScore, error) {
	f.mu.Lock()
	fn := f.sentimentFn
	f.mu.Unlock()
	if fn != nil {
		return fn(content)
	}
	return inference.SentimentScore{}, nil
}

func (f *fakeDeps) ExplainCorrelation(context.Context, string, string, float64, int) (string, error) {
	return "historically aligned order flow", nil
}

func (f *fakeDeps) GenerateInsight(_ context.Context, summary model.PortfolioSummary) (inference.InsightDraft, error) {
	f.mu.Lock()
	fn := f.insightFn
	f.mu.Unlock()
	if fn != nil {
		return fn(summary)
	}
	return inference.InsightDraft{Title: "Daily review", Narrative: "steady as she goes", Priority: "normal"}, nil
}

func (f *fakeDeps) NotifySignal(_ context.Context, signal *model.Signal) {
	f.note("signal:" + string(signal.Type))
}

func (f *fakeDeps) NotifyBehavior(_ context.Context, userID string, _ string) {
	f.note("behavior:" + userID)
}

func (f *fakeDeps) NotifyBadges(_ context.Context, userID string, badges []model.Badge) {
	for range badges {
		f.note("badge:" + userID)
	}
}

func (f *fakeDeps) NotifyInsight(_ context.Context, insight model.Insight) {
	f.note("insight:" + insight.UserID)
}

func (f *fakeDeps) RecordAudit(_ context.Context, record model.AuditRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.audits = append(f.audits, record)
	return nil
}

func (f *fakeDeps) note(kind string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notified = append(f.notified, kind)
}

func (f *fakeDeps) storedSignals() []*model.Signal {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*model.Signal, len(f.stored))
	copy(out, f.stored)
	return out
}

func (f *fakeDeps) auditRecords() []model.AuditRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.AuditRecord, len(f.audits))
	copy(out, f.audits)
	return out
}

func (f *fakeDeps) notifications() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.notified))
	copy(out, f.notified)
	return out
}

func newTestWorker(t *testing.T, deps Deps, cfg Config) (*Worker, *workflow.Runtime) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	rt := workflow.NewRuntime(logger, 8)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = rt.Shutdown(ctx)
	})

	return NewWorker(deps, cfg, logger), rt
}

func awaitDone(t *testing.T, h *workflow.Handle) error {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return h.Await(ctx)
}
