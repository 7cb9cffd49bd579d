// Package repository provides ClickHouse-backed data access via gorm. Every
// repository is an interface over a gorm implementation so workflows can be
// tested against fakes. Mutable rows live in ReplacingMergeTree tables, so a
// "save" is a plain insert and the newest row per key wins.
package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/navid-fn/pulse/internal/model"
)

// MarketRepository reads market observations and trade activity.
type MarketRepository interface {
	// ActiveMarkets returns all markets currently flagged active.
	ActiveMarkets(ctx context.Context) ([]model.Market, error)

	// RecentTrades returns trades that happened at or after since.
	RecentTrades(ctx context.Context, since time.Time) ([]model.Trade, error)

	// PriceHistory returns the chronological price series for one symbol.
	PriceHistory(ctx context.Context, symbol string, since time.Time) ([]float64, error)
}

type gormMarketRepository struct {
	db *gorm.DB
}

// NewGormMarketRepository creates a MarketRepository over db.
func NewGormMarketRepository(db *gorm.DB) MarketRepository {
	return &gormMarketRepository{db: db}
}

func (r *gormMarketRepository) ActiveMarkets(ctx context.Context) ([]model.Market, error) {
	var markets []model.Market
	err := r.db.WithContext(ctx).
		Where("active = ?", true).
		Order("symbol").
		Find(&markets).Error
	return markets, err
}

func (r *gormMarketRepository) RecentTrades(ctx context.Context, since time.Time) ([]model.Trade, error) {
	var trades []model.Trade
	err := r.db.WithContext(ctx).
		Where("event_time >= ?", since).
		Order("event_time").
		Find(&trades).Error
	return trades, err
}

func (r *gormMarketRepository) PriceHistory(ctx context.Context, symbol string, since time.Time) ([]float64, error) {
	var points []model.PricePoint
	err := r.db.WithContext(ctx).
		Where("symbol = ? AND event_time >= ?", symbol, since).
		Order("event_time").
		Find(&points).Error
	if err != nil {
		return nil, err
	}

	prices := make([]float64, 0, len(points))
	for _, p := range points {
		prices = append(prices, p.Price)
	}
	return prices, nil
}
