// Package activities implements the side-effecting operations workflows
// execute: store reads and writes, inference calls, notifications, and audit
// records. Workflows see these through narrow interfaces they declare
// themselves, so tests can substitute fakes.
package activities

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/navid-fn/pulse/internal/model"
	"github.com/navid-fn/pulse/internal/notifier"
	"github.com/navid-fn/pulse/internal/repository"
	"github.com/navid-fn/pulse/internal/storage"
	"github.com/navid-fn/pulse/pkg/faulttolerance"
)

// Activities bundles every dependency a workflow may touch.
type Activities struct {
	markets      repository.MarketRepository
	traders      repository.TraderRepository
	signals      repository.SignalRepository
	leaderboards repository.LeaderboardRepository
	audits       repository.AuditRepository
	store        storage.Storage
	inference    InferenceClient
	notifier     *notifier.Notifier
	auditStream  *notifier.AuditStream
	logger       *slog.Logger
}

// Config wires the concrete dependencies into an Activities value.
type Config struct {
	Markets      repository.MarketRepository
	Traders      repository.TraderRepository
	Signals      repository.SignalRepository
	Leaderboards repository.LeaderboardRepository
	Audits       repository.AuditRepository
	Store        storage.Storage
	Inference    InferenceClient
	Notifier     *notifier.Notifier
	AuditStream  *notifier.AuditStream
	Logger       *slog.Logger
}

// New creates the activities layer.
func New(cfg Config) *Activities {
	return &Activities{
		markets:      cfg.Markets,
		traders:      cfg.Traders,
		signals:      cfg.Signals,
		leaderboards: cfg.Leaderboards,
		audits:       cfg.Audits,
		store:        cfg.Store,
		inference:    cfg.Inference,
		notifier:     cfg.Notifier,
		auditStream:  cfg.AuditStream,
		logger:       cfg.Logger,
	}
}

func (a *Activities) ActiveMarkets(ctx context.Context) ([]model.Market, error) {
	return a.markets.ActiveMarkets(ctx)
}

func (a *Activities) RecentTrades(ctx context.Context, since time.Time) ([]model.Trade, error) {
	return a.markets.RecentTrades(ctx, since)
}

func (a *Activities) PriceHistory(ctx context.Context, symbol string, since time.Time) ([]float64, error) {
	return a.markets.PriceHistory(ctx, symbol, since)
}

func (a *Activities) StoreSignals(ctx context.Context, signals []*model.Signal) error {
	return a.store.StoreSignals(ctx, signals)
}

func (a *Activities) ExpireSignals(ctx context.Context, cutoff time.Time) (int64, error) {
	return a.signals.ExpireSignals(ctx, cutoff)
}

func (a *Activities) RecentSignalsForMarkets(ctx context.Context, markets []string, limit int) ([]model.Signal, error) {
	return a.signals.RecentSignalsForMarkets(ctx, markets, limit)
}

func (a *Activities) SaveCorrelation(ctx context.Context, result model.CorrelationResult) error {
	return a.signals.SaveCorrelation(ctx, result)
}

func (a *Activities) SaveInsight(ctx context.Context, insight model.Insight) error {
	return a.signals.SaveInsight(ctx, insight)
}

func (a *Activities) TradesForUser(ctx context.Context, userID string, start, end time.Time) ([]model.Trade, error) {
	return a.traders.TradesForUser(ctx, userID, start, end)
}

// TraderMetrics marks an unknown trader as non-retryable so activity retry
// policies do not hammer the store for a user that does not exist.
func (a *Activities) TraderMetrics(ctx context.Context, userID string) (model.TraderMetrics, error) {
	metrics, err := a.traders.TraderMetrics(ctx, userID)
	if errors.Is(err, repository.ErrUnknownTrader) {
		return metrics, faulttolerance.Permanent(err)
	}
	return metrics, err
}

func (a *Activities) SavePeriodStats(ctx context.Context, stats model.PeriodStats) error {
	return a.traders.SavePeriodStats(ctx, stats)
}

func (a *Activities) SaveReputation(ctx context.Context, score model.ReputationScore) error {
	return a.traders.SaveReputation(ctx, score)
}

func (a *Activities) Badges(ctx context.Context, userID string) ([]model.Badge, error) {
	return a.traders.Badges(ctx, userID)
}

func (a *Activities) AwardBadges(ctx context.Context, badges []model.Badge) error {
	return a.traders.AwardBadges(ctx, badges)
}

func (a *Activities) ActiveUserIDs(ctx context.Context) ([]string, error) {
	return a.traders.ActiveUserIDs(ctx)
}

func (a *Activities) OpenPositions(ctx context.Context, userID string) ([]model.Position, error) {
	return a.traders.OpenPositions(ctx, userID)
}

func (a *Activities) Participants(ctx context.Context, period model.Period, assetClass string, minTrades int) ([]model.Participant, error) {
	return a.leaderboards.Participants(ctx, period, assetClass, minTrades)
}

func (a *Activities) LatestSnapshot(ctx context.Context, metric model.LeaderboardMetric, period model.Period, assetClass string) (*model.LeaderboardSnapshot, error) {
	return a.leaderboards.LatestSnapshot(ctx, metric, period, assetClass)
}

func (a *Activities) SaveSnapshot(ctx context.Context, snapshot *model.LeaderboardSnapshot) error {
	return a.leaderboards.SaveSnapshot(ctx, snapshot)
}

func (a *Activities) AppendLeaderboardHistory(ctx context.Context, rows []model.LeaderboardHistoryRow) error {
	return a.store.AppendLeaderboardHistory(ctx, rows)
}
