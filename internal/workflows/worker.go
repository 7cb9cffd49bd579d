// Package workflows contains the durable workflow definitions: market
// monitoring, batch signal extraction, reputation computation, leaderboard
// snapshotting, and daily insight generation. Definitions only touch the
// outside world through activities executed on the workflow context, so every
// side effect gets timeout and retry handling for free.
package workflows

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/navid-fn/pulse/internal/inference"
	"github.com/navid-fn/pulse/internal/model"
	"github.com/navid-fn/pulse/internal/workflow"
)

// Workflow names, as registered with the runtime and exposed over the API.
const (
	WorkflowMarketMonitor        = "market_monitor"
	WorkflowSignalExtraction     = "signal_extraction"
	WorkflowReputation           = "reputation"
	WorkflowReputationBatch      = "reputation_batch"
	WorkflowLeaderboard          = "leaderboard"
	WorkflowLeaderboardFull      = "leaderboard_full"
	WorkflowLeaderboardScheduled = "leaderboard_scheduled"
	WorkflowDailyInsight         = "daily_insight"
)

// QueryStatus is the query every workflow answers with its RunStatus.
const QueryStatus = "status"

// Deps is everything a workflow may ask an activity to do. The activities
// package provides the production implementation; tests substitute fakes.
type Deps interface {
	// Market reads.
	ActiveMarkets(ctx context.Context) ([]model.Market, error)
	RecentTrades(ctx context.Context, since time.Time) ([]model.Trade, error)
	PriceHistory(ctx context.Context, symbol string, since time.Time) ([]float64, error)

	// Signal persistence.
	StoreSignals(ctx context.Context, signals []*model.Signal) error
	ExpireSignals(ctx context.Context, cutoff time.Time) (int64, error)
	RecentSignalsForMarkets(ctx context.Context, markets []string, limit int) ([]model.Signal, error)
	SaveCorrelation(ctx context.Context, result model.CorrelationResult) error
	SaveInsight(ctx context.Context, insight model.Insight) error

	// Trader reads and reputation persistence.
	TradesForUser(ctx context.Context, userID string, start, end time.Time) ([]model.Trade, error)
	TraderMetrics(ctx context.Context, userID string) (model.TraderMetrics, error)
	SavePeriodStats(ctx context.Context, stats model.PeriodStats) error
	SaveReputation(ctx context.Context, score model.ReputationScore) error
	Badges(ctx context.Context, userID string) ([]model.Badge, error)
	AwardBadges(ctx context.Context, badges []model.Badge) error
	ActiveUserIDs(ctx context.Context) ([]string, error)
	OpenPositions(ctx context.Context, userID string) ([]model.Position, error)

	// Leaderboards.
	Participants(ctx context.Context, period model.Period, assetClass string, minTrades int) ([]model.Participant, error)
	LatestSnapshot(ctx context.Context, metric model.LeaderboardMetric, period model.Period, assetClass string) (*model.LeaderboardSnapshot, error)
	SaveSnapshot(ctx context.Context, snapshot *model.LeaderboardSnapshot) error
	AppendLeaderboardHistory(ctx context.Context, rows []model.LeaderboardHistoryRow) error

	// Inference.
	ExtractSignal(ctx context.Context, item model.BatchItem) (*inference.ExtractionResult, error)
	ClassifyBehavior(ctx context.Context, userID string, trades []model.Trade) (inference.BehaviorClassification, error)
	ScoreSentiment(ctx context.Context, content string) (inference.SentimentScore, error)
	ExplainCorrelation(ctx context.Context, marketA, marketB string, correlation float64, sampleSize int) (string, error)
	GenerateInsight(ctx context.Context, summary model.PortfolioSummary) (inference.InsightDraft, error)

	// Notifications and audit.
	NotifySignal(ctx context.Context, signal *model.Signal)
	NotifyBehavior(ctx context.Context, userID string, summary string)
	NotifyBadges(ctx context.Context, userID string, badges []model.Badge)
	NotifyInsight(ctx context.Context, insight model.Insight)
	RecordAudit(ctx context.Context, record model.AuditRecord) error
}

// Config tunes the workflow worker.
type Config struct {
	// MonitorInterval is the pause between market monitoring cycles.
	MonitorInterval time.Duration

	// SignalTTL is how long a generated signal stays active.
	SignalTTL time.Duration

	// InsightHour is the local hour of day the daily insight run fires at.
	InsightHour int

	// InsightPairs are the market pairs the insight run correlates.
	InsightPairs []MarketPair

	// MaxEntries caps leaderboard size when a request does not set one.
	MaxEntries int

	// MinTrades is the minimum period trade count to enter a leaderboard.
	MinTrades int
}

// MarketPair names two markets whose price series get correlated.
type MarketPair struct {
	A string `json:"a"`
	B string `json:"b"`
}

func (c Config) withDefaults() Config {
	if c.MonitorInterval <= 0 {
		c.MonitorInterval = 5 * time.Minute
	}
	if c.SignalTTL <= 0 {
		c.SignalTTL = 24 * time.Hour
	}
	if c.MaxEntries <= 0 {
		c.MaxEntries = 100
	}
	if c.MinTrades <= 0 {
		c.MinTrades = 1
	}
	return c
}

// Worker owns the workflow definitions and their shared dependencies.
type Worker struct {
	deps   Deps
	cfg    Config
	logger *slog.Logger
}

// NewWorker creates a Worker. Zero config fields get sensible defaults.
func NewWorker(deps Deps, cfg Config, logger *slog.Logger) *Worker {
	return &Worker{deps: deps, cfg: cfg.withDefaults(), logger: logger}
}

// Definitions maps workflow names to their definitions, for runtime
// registration and API-triggered starts.
func (w *Worker) Definitions() map[string]workflow.Definition {
	return map[string]workflow.Definition{
		WorkflowMarketMonitor:        w.MarketMonitor,
		WorkflowSignalExtraction:     w.SignalExtraction,
		WorkflowReputation:           w.Reputation,
		WorkflowReputationBatch:      w.ReputationBatch,
		WorkflowLeaderboard:          w.Leaderboard,
		WorkflowLeaderboardFull:      w.LeaderboardFull,
		WorkflowLeaderboardScheduled: w.LeaderboardScheduled,
		WorkflowDailyInsight:         w.DailyInsight,
	}
}

// Workflow inputs. Every start request carries one of these.

// MonitorInput seeds a market monitoring instance; CycleCount is the
// continue-as-new carry.
type MonitorInput struct {
	CycleCount int `json:"cycle_count"`
}

// BatchInput is one batch of emails or news articles to extract signals from.
// AggregateSentiment additionally requests a batch-wide sentiment read on top
// of the per-item extraction.
type BatchInput struct {
	Kind               model.BatchKind   `json:"kind"`
	Items              []model.BatchItem `json:"items"`
	AggregateSentiment bool              `json:"aggregate_sentiment,omitempty"`
}

// ReputationInput targets one trader. Empty Periods means every period.
type ReputationInput struct {
	UserID  string         `json:"user_id"`
	Periods []model.Period `json:"periods,omitempty"`
}

// ReputationBatchInput recomputes reputation for many traders in one run.
type ReputationBatchInput struct {
	UserIDs []string       `json:"user_ids"`
	Periods []model.Period `json:"periods,omitempty"`
}

// LeaderboardInput keys one leaderboard computation.
type LeaderboardInput struct {
	Metric     model.LeaderboardMetric `json:"metric"`
	Period     model.Period            `json:"period"`
	AssetClass string                  `json:"asset_class,omitempty"`
	MaxEntries int                     `json:"max_entries,omitempty"`
}

// InsightInput seeds a daily insight instance; CycleCount is the
// continue-as-new carry.
type InsightInput struct {
	CycleCount int `json:"cycle_count"`
}

// DecodeInput parses a raw JSON start payload into the typed input for the
// named workflow.
func DecodeInput(name string, raw json.RawMessage) (any, error) {
	decode := func(v any) (any, error) {
		if len(raw) == 0 {
			return v, nil
		}
		if err := json.Unmarshal(raw, v); err != nil {
			return nil, fmt.Errorf("decode %s input: %w", name, err)
		}
		return v, nil
	}

	switch name {
	case WorkflowMarketMonitor:
		in := &MonitorInput{}
		v, err := decode(in)
		if err != nil {
			return nil, err
		}
		return *v.(*MonitorInput), nil
	case WorkflowSignalExtraction:
		in := &BatchInput{}
		v, err := decode(in)
		if err != nil {
			return nil, err
		}
		return *v.(*BatchInput), nil
	case WorkflowReputation:
		in := &ReputationInput{}
		v, err := decode(in)
		if err != nil {
			return nil, err
		}
		return *v.(*ReputationInput), nil
	case WorkflowReputationBatch:
		in := &ReputationBatchInput{}
		v, err := decode(in)
		if err != nil {
			return nil, err
		}
		return *v.(*ReputationBatchInput), nil
	case WorkflowLeaderboard, WorkflowLeaderboardFull, WorkflowLeaderboardScheduled:
		in := &LeaderboardInput{}
		v, err := decode(in)
		if err != nil {
			return nil, err
		}
		return *v.(*LeaderboardInput), nil
	case WorkflowDailyInsight:
		in := &InsightInput{}
		v, err := decode(in)
		if err != nil {
			return nil, err
		}
		return *v.(*InsightInput), nil
	default:
		return nil, fmt.Errorf("unknown workflow %q", name)
	}
}

// statusTracker guards the RunStatus a workflow exposes through the status
// query. The query handler runs concurrently with the instance goroutine, so
// every access goes through the mutex.
type statusTracker struct {
	mu     sync.Mutex
	status model.RunStatus
	phases []model.Phase
}

func newStatusTracker(cycleCount int) *statusTracker {
	now := time.Now()
	return &statusTracker{status: model.RunStatus{
		Phase:      model.PhasePending,
		CycleCount: cycleCount,
		StartedAt:  now,
		UpdatedAt:  now,
	}}
}

func (t *statusTracker) setPhase(phase model.Phase) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status.Phase = phase
	t.phases = append(t.phases, phase)
	t.status.UpdatedAt = time.Now()
}

func (t *statusTracker) phaseHistory() []model.Phase {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]model.Phase, len(t.phases))
	copy(out, t.phases)
	return out
}

func (t *statusTracker) addProcessed(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status.ItemsProcessed += n
	t.status.UpdatedAt = time.Now()
}

func (t *statusTracker) addSignals(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status.SignalsGenerated += n
	t.status.UpdatedAt = time.Now()
}

// recordSignal counts one generated signal and remembers its id.
func (t *statusTracker) recordSignal(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status.SignalsGenerated++
	t.status.SignalIDs = append(t.status.SignalIDs, id)
	t.status.UpdatedAt = time.Now()
}

func (t *statusTracker) addError(itemID string, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status.Errors = append(t.status.Errors, model.ItemError{ItemID: itemID, Message: err.Error()})
	t.status.UpdatedAt = time.Now()
}

func (t *statusTracker) snapshot() model.RunStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status.Clone()
}

// registerStatusQuery wires the tracker to the instance's status query.
func registerStatusQuery(ctx *workflow.Context, tracker *statusTracker) {
	ctx.SetQueryHandler(QueryStatus, func() any {
		return tracker.snapshot()
	})
}

// audit emits one lifecycle record built from the tracker's current state.
// Audit failures are logged and swallowed; bookkeeping must not fail runs.
func (w *Worker) audit(ctx *workflow.Context, name string, event model.AuditEvent, tracker *statusTracker, detail string) {
	status := tracker.snapshot()
	record := model.AuditRecord{
		InstanceID:       ctx.InstanceID(),
		Workflow:         name,
		Event:            event,
		CycleCount:       status.CycleCount,
		ItemsProcessed:   status.ItemsProcessed,
		SignalsGenerated: status.SignalsGenerated,
		ErrorCount:       len(status.Errors),
		Detail:           detail,
		RecordedAt:       time.Now(),
	}

	err := ctx.Execute("record_audit", workflow.DefaultActivityOptions(), func(c context.Context, _ func()) error {
		return w.deps.RecordAudit(c, record)
	})
	if err != nil {
		ctx.Logger().Warn("Failed to record audit event", "workflow", name, "event", event, "error", err)
	}
}

// periodBounds returns the rolling [start, end) window for a period, ending
// now. All-time has a zero start.
func periodBounds(period model.Period, now time.Time) (time.Time, time.Time) {
	switch period {
	case model.PeriodDaily:
		return now.Add(-24 * time.Hour), now
	case model.PeriodWeekly:
		return now.AddDate(0, 0, -7), now
	case model.PeriodMonthly:
		return now.AddDate(0, 0, -30), now
	case model.PeriodQuarterly:
		return now.AddDate(0, 0, -90), now
	case model.PeriodYearly:
		return now.AddDate(0, 0, -365), now
	default:
		return time.Time{}, now
	}
}

func parseSeverity(s string) model.Severity {
	switch model.Severity(s) {
	case model.SeverityLow, model.SeverityMedium, model.SeverityHigh, model.SeverityCritical:
		return model.Severity(s)
	default:
		return model.SeverityMedium
	}
}

func parseSentiment(s string) model.Sentiment {
	switch model.Sentiment(s) {
	case model.SentimentBullish, model.SentimentBearish, model.SentimentNeutral:
		return model.Sentiment(s)
	default:
		return model.SentimentNeutral
	}
}

func parsePriority(s string) model.InsightPriority {
	switch model.InsightPriority(s) {
	case model.PriorityLow, model.PriorityNormal, model.PriorityHigh, model.PriorityUrgent:
		return model.InsightPriority(s)
	default:
		return model.PriorityNormal
	}
}
