package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/navid-fn/pulse/internal/model"
)

// TraderRepository reads trader activity and persists computed reputation
// artifacts. Badge awards are append-only inserts.
type TraderRepository interface {
	// TradesForUser returns one trader's trades within [start, end).
	TradesForUser(ctx context.Context, userID string, start, end time.Time) ([]model.Trade, error)

	// TraderMetrics returns the aggregate metrics snapshot for one trader.
	TraderMetrics(ctx context.Context, userID string) (model.TraderMetrics, error)

	// SavePeriodStats persists per-period statistics for one trader.
	SavePeriodStats(ctx context.Context, stats model.PeriodStats) error

	// SaveReputation persists a computed reputation score.
	SaveReputation(ctx context.Context, score model.ReputationScore) error

	// Badges returns all badges a trader currently holds.
	Badges(ctx context.Context, userID string) ([]model.Badge, error)

	// AwardBadges appends newly-earned badges. Never updates existing rows.
	AwardBadges(ctx context.Context, badges []model.Badge) error

	// ActiveUserIDs returns ids of users with at least one open position.
	ActiveUserIDs(ctx context.Context) ([]string, error)

	// OpenPositions returns one user's open positions.
	OpenPositions(ctx context.Context, userID string) ([]model.Position, error)
}

// ErrUnknownTrader is returned when no metrics row exists for a user.
var ErrUnknownTrader = errors.New("unknown trader")

type gormTraderRepository struct {
	db *gorm.DB
}

// NewGormTraderRepository creates a TraderRepository over db.
func NewGormTraderRepository(db *gorm.DB) TraderRepository {
	return &gormTraderRepository{db: db}
}

func (r *gormTraderRepository) TradesForUser(ctx context.Context, userID string, start, end time.Time) ([]model.Trade, error) {
	var trades []model.Trade
	query := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if !start.IsZero() {
		query = query.Where("event_time >= ?", start)
	}
	err := query.Where("event_time < ?", end).
		Order("event_time").
		Find(&trades).Error
	return trades, err
}

func (r *gormTraderRepository) TraderMetrics(ctx context.Context, userID string) (model.TraderMetrics, error) {
	var metrics model.TraderMetrics
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Take(&metrics).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.TraderMetrics{}, ErrUnknownTrader
	}
	return metrics, err
}

func (r *gormTraderRepository) SavePeriodStats(ctx context.Context, stats model.PeriodStats) error {
	return r.db.WithContext(ctx).Create(&stats).Error
}

func (r *gormTraderRepository) SaveReputation(ctx context.Context, score model.ReputationScore) error {
	return r.db.WithContext(ctx).Create(&score).Error
}

func (r *gormTraderRepository) Badges(ctx context.Context, userID string) ([]model.Badge, error) {
	var badges []model.Badge
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Find(&badges).Error
	return badges, err
}

func (r *gormTraderRepository) AwardBadges(ctx context.Context, badges []model.Badge) error {
	if len(badges) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&badges).Error
}

func (r *gormTraderRepository) ActiveUserIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&model.Position{}).
		Distinct("user_id").
		Order("user_id").
		Pluck("user_id", &ids).Error
	return ids, err
}

func (r *gormTraderRepository) OpenPositions(ctx context.Context, userID string) ([]model.Position, error) {
	var positions []model.Position
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("opened_at").
		Find(&positions).Error
	return positions, err
}
