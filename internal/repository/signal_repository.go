package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/navid-fn/pulse/internal/model"
)

// SignalRepository reads active signals and expires stale ones. Signal
// inserts go through the native batch storage layer, not gorm.
type SignalRepository interface {
	// ExpireSignals removes signals whose expiry passed before cutoff and
	// returns how many rows were affected.
	ExpireSignals(ctx context.Context, cutoff time.Time) (int64, error)

	// RecentSignalsForMarkets returns the newest unexpired signals touching
	// any of the given markets.
	RecentSignalsForMarkets(ctx context.Context, markets []string, limit int) ([]model.Signal, error)

	// SaveCorrelation persists a recomputed market-pair correlation.
	SaveCorrelation(ctx context.Context, result model.CorrelationResult) error

	// SaveInsight persists a generated insight.
	SaveInsight(ctx context.Context, insight model.Insight) error
}

type gormSignalRepository struct {
	db *gorm.DB
}

// NewGormSignalRepository creates a SignalRepository over db.
func NewGormSignalRepository(db *gorm.DB) SignalRepository {
	return &gormSignalRepository{db: db}
}

func (r *gormSignalRepository) ExpireSignals(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("expires_at < ?", cutoff).
		Delete(&model.Signal{})
	return result.RowsAffected, result.Error
}

func (r *gormSignalRepository) RecentSignalsForMarkets(ctx context.Context, markets []string, limit int) ([]model.Signal, error) {
	if len(markets) == 0 {
		return nil, nil
	}

	var signals []model.Signal
	err := r.db.WithContext(ctx).
		Where("hasAny(related_markets, ?)", markets).
		Where("expires_at >= ?", time.Now()).
		Order("created_at DESC").
		Limit(limit).
		Find(&signals).Error
	return signals, err
}

func (r *gormSignalRepository) SaveCorrelation(ctx context.Context, result model.CorrelationResult) error {
	return r.db.WithContext(ctx).Create(&result).Error
}

func (r *gormSignalRepository) SaveInsight(ctx context.Context, insight model.Insight) error {
	return r.db.WithContext(ctx).Create(&insight).Error
}
