package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/navid-fn/pulse/internal/model"
)

// LeaderboardRepository loads ranking participants and persists snapshots.
type LeaderboardRepository interface {
	// Participants returns users qualifying for a leaderboard: at least
	// minTrades trades in the period, optionally restricted to users who
	// traded the given asset class.
	Participants(ctx context.Context, period model.Period, assetClass string, minTrades int) ([]model.Participant, error)

	// LatestSnapshot returns the most recent snapshot for the key, or nil
	// when none exists yet.
	LatestSnapshot(ctx context.Context, metric model.LeaderboardMetric, period model.Period, assetClass string) (*model.LeaderboardSnapshot, error)

	// SaveSnapshot persists one immutable snapshot.
	SaveSnapshot(ctx context.Context, snapshot *model.LeaderboardSnapshot) error
}

type gormLeaderboardRepository struct {
	db *gorm.DB
}

// NewGormLeaderboardRepository creates a LeaderboardRepository over db.
func NewGormLeaderboardRepository(db *gorm.DB) LeaderboardRepository {
	return &gormLeaderboardRepository{db: db}
}

func (r *gormLeaderboardRepository) Participants(ctx context.Context, period model.Period, assetClass string, minTrades int) ([]model.Participant, error) {
	query := `
		SELECT
			m.user_id        AS user_id,
			s.total_pnl      AS pnl,
			m.total_pnl_pct  AS pnl_percent,
			m.sharpe_ratio   AS sharpe_ratio,
			s.win_rate       AS win_rate,
			s.trade_count    AS trade_count,
			m.followers      AS followers,
			m.copiers        AS copiers,
			r.score          AS reputation
		FROM trader_period_stats AS s
		INNER JOIN trader_metrics AS m ON m.user_id = s.user_id
		LEFT JOIN reputation_score AS r ON r.user_id = s.user_id
		WHERE s.period = ? AND s.trade_count >= ?`
	args := []any{period, minTrades}

	if assetClass != "" {
		query += `
		AND s.user_id IN (
			SELECT DISTINCT t.user_id
			FROM trade AS t
			INNER JOIN market AS mk ON mk.symbol = t.symbol
			WHERE mk.asset_class = ?
		)`
		args = append(args, assetClass)
	}

	var participants []model.Participant
	err := r.db.WithContext(ctx).Raw(query, args...).Scan(&participants).Error
	return participants, err
}

// snapshotRow is the persisted shape of a snapshot; entries are stored as one
// JSON column since ClickHouse reads them back only as a whole.
type snapshotRow struct {
	ID                string    `gorm:"column:id"`
	LeaderboardType   string    `gorm:"column:leaderboard_type"`
	Period            string    `gorm:"column:period"`
	AssetClass        string    `gorm:"column:asset_class"`
	Entries           string    `gorm:"column:entries"`
	TotalParticipants int       `gorm:"column:total_participants"`
	CalculatedAt      time.Time `gorm:"column:calculated_at"`
}

func (snapshotRow) TableName() string {
	return "leaderboard_snapshot"
}

func (r *gormLeaderboardRepository) LatestSnapshot(ctx context.Context, metric model.LeaderboardMetric, period model.Period, assetClass string) (*model.LeaderboardSnapshot, error) {
	var row snapshotRow
	err := r.db.WithContext(ctx).
		Where("leaderboard_type = ? AND period = ? AND asset_class = ?", metric, period, assetClass).
		Order("calculated_at DESC").
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var entries []model.LeaderboardEntry
	if row.Entries != "" {
		if err := json.Unmarshal([]byte(row.Entries), &entries); err != nil {
			return nil, err
		}
	}

	return &model.LeaderboardSnapshot{
		ID:                row.ID,
		LeaderboardType:   model.LeaderboardMetric(row.LeaderboardType),
		Period:            model.Period(row.Period),
		AssetClass:        row.AssetClass,
		Entries:           entries,
		TotalParticipants: row.TotalParticipants,
		CalculatedAt:      row.CalculatedAt,
	}, nil
}

func (r *gormLeaderboardRepository) SaveSnapshot(ctx context.Context, snapshot *model.LeaderboardSnapshot) error {
	entries, err := json.Marshal(snapshot.Entries)
	if err != nil {
		return err
	}

	row := snapshotRow{
		ID:                snapshot.ID,
		LeaderboardType:   string(snapshot.LeaderboardType),
		Period:            string(snapshot.Period),
		AssetClass:        snapshot.AssetClass,
		Entries:           string(entries),
		TotalParticipants: snapshot.TotalParticipants,
		CalculatedAt:      snapshot.CalculatedAt,
	}
	return r.db.WithContext(ctx).Create(&row).Error
}
