// Package storage provides the native ClickHouse write path for high-volume
// appends: detected signals and leaderboard history rows. Batch inserts are
// significantly faster than row-at-a-time writes for ClickHouse.
package storage

import (
	"context"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/navid-fn/pulse/internal/model"
)

// Storage defines the batch append interface. Implementations must be safe
// for concurrent use.
type Storage interface {
	// StoreSignals inserts a batch of detected signals.
	StoreSignals(ctx context.Context, signals []*model.Signal) error

	// AppendLeaderboardHistory inserts one history row per snapshot entry.
	AppendLeaderboardHistory(ctx context.Context, rows []model.LeaderboardHistoryRow) error

	// Close releases database connection resources.
	Close() error
}

// clickhouseStorage implements Storage using the native ClickHouse driver.
type clickhouseStorage struct {
	conn driver.Conn
}

// NewClickHouseStorage creates a new ClickHouse storage connection.
// It parses the DSN, opens a connection, and verifies connectivity with a ping.
func NewClickHouseStorage(dsn string) (Storage, error) {
	opts, err := clickhouse.ParseDSN(dsn)
	if err != nil {
		return nil, err
	}

	conn, err := clickhouse.Open(opts)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := conn.Ping(ctx); err != nil {
		return nil, err
	}

	return &clickhouseStorage{conn: conn}, nil
}

func (s *clickhouseStorage) StoreSignals(ctx context.Context, signals []*model.Signal) error {
	if len(signals) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO signal (
			id, type, source, source_id, title, description,
			confidence, severity, related_markets, related_events,
			sentiment, price_impact, time_horizon, action_suggestion,
			raw_data, created_at, expires_at
		)
	`)
	if err != nil {
		return err
	}

	for _, sig := range signals {
		err := batch.Append(
			sig.ID,
			string(sig.Type),
			sig.Source,
			sig.SourceID,
			sig.Title,
			sig.Description,
			sig.Confidence,
			string(sig.Severity),
			sig.RelatedMarkets,
			sig.RelatedEvents,
			string(sig.Sentiment),
			sig.PriceImpact,
			sig.TimeHorizon,
			sig.ActionSuggestion,
			sig.RawData,
			sig.CreatedAt,
			sig.ExpiresAt,
		)
		if err != nil {
			return err
		}
	}

	return batch.Send()
}

func (s *clickhouseStorage) AppendLeaderboardHistory(ctx context.Context, rows []model.LeaderboardHistoryRow) error {
	if len(rows) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO leaderboard_history (
			snapshot_id, leaderboard_type, period, asset_class,
			rank, user_id, value, calculated_at
		)
	`)
	if err != nil {
		return err
	}

	for _, row := range rows {
		err := batch.Append(
			row.SnapshotID,
			string(row.LeaderboardType),
			string(row.Period),
			row.AssetClass,
			uint32(row.Rank),
			row.UserID,
			row.Value,
			row.CalculatedAt,
		)
		if err != nil {
			return err
		}
	}

	return batch.Send()
}

// Close closes the ClickHouse connection.
func (s *clickhouseStorage) Close() error {
	return s.conn.Close()
}
