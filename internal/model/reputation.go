package model

import "time"

// Period is a reporting window for trader statistics and leaderboards.
type Period string

const (
	PeriodDaily     Period = "daily"
	PeriodWeekly    Period = "weekly"
	PeriodMonthly   Period = "monthly"
	PeriodQuarterly Period = "quarterly"
	PeriodYearly    Period = "yearly"
	PeriodAllTime   Period = "all_time"
)

// LeaderboardPeriods are the windows the scheduled leaderboard run covers.
var LeaderboardPeriods = []Period{PeriodDaily, PeriodWeekly, PeriodMonthly, PeriodAllTime}

// TraderMetrics is a read-only snapshot of a trader's statistics. It is owned
// by the external store and never mutated by this subsystem.
type TraderMetrics struct {
	UserID          string  `gorm:"column:user_id;primaryKey" json:"user_id"`
	WinRate         float64 `gorm:"column:win_rate;type:Float64" json:"win_rate"`
	SharpeRatio     float64 `gorm:"column:sharpe_ratio;type:Float64" json:"sharpe_ratio"`
	MaxDrawdownPct  float64 `gorm:"column:max_drawdown_pct;type:Float64" json:"max_drawdown_pct"`
	TradeCount      int     `gorm:"column:trade_count" json:"trade_count"`
	Followers       int     `gorm:"column:followers" json:"followers"`
	Copiers         int     `gorm:"column:copiers" json:"copiers"`
	AccountAgeDays  int     `gorm:"column:account_age_days" json:"account_age_days"`
	SharedPositions int     `gorm:"column:shared_positions" json:"shared_positions"`
	Verified        bool    `gorm:"column:verified" json:"verified"`
	TotalPnLPct     float64 `gorm:"column:total_pnl_pct;type:Float64" json:"total_pnl_pct"`
}

func (TraderMetrics) TableName() string {
	return "trader_metrics"
}

// PeriodStats are per-period trading statistics computed by the reputation
// workflow for a single trader.
type PeriodStats struct {
	UserID       string    `gorm:"column:user_id;primaryKey" json:"user_id"`
	Period       Period    `gorm:"column:period;primaryKey" json:"period"`
	PeriodStart  time.Time `gorm:"column:period_start;primaryKey" json:"period_start"`
	TradeCount   int       `gorm:"column:trade_count" json:"trade_count"`
	WinRate      float64   `gorm:"column:win_rate;type:Float64" json:"win_rate"`
	TotalPnL     float64   `gorm:"column:total_pnl;type:Float64" json:"total_pnl"`
	AvgPnL       float64   `gorm:"column:avg_pnl;type:Float64" json:"avg_pnl"`
	BestTrade    float64   `gorm:"column:best_trade;type:Float64" json:"best_trade"`
	WorstTrade   float64   `gorm:"column:worst_trade;type:Float64" json:"worst_trade"`
	CalculatedAt time.Time `gorm:"column:calculated_at" json:"calculated_at"`
}

func (PeriodStats) TableName() string {
	return "trader_period_stats"
}

// ReputationScore is the persisted per-user reputation value.
type ReputationScore struct {
	UserID       string    `gorm:"column:user_id;primaryKey" json:"user_id"`
	Score        float64   `gorm:"column:score;type:Float64" json:"score"`
	CalculatedAt time.Time `gorm:"column:calculated_at" json:"calculated_at"`
}

func (ReputationScore) TableName() string {
	return "reputation_score"
}

// BadgeType identifies one rule in the badge rule table.
type BadgeType string

const (
	BadgeVerifiedTrader    BadgeType = "verified_trader"
	BadgeConsistentWinner  BadgeType = "consistent_winner"
	BadgeRiskManager       BadgeType = "risk_manager"
	BadgeHighVolume        BadgeType = "high_volume"
	BadgeCommunityLeader   BadgeType = "community_leader"
	BadgeEarlyAdopter      BadgeType = "early_adopter"
	BadgeProfitableStreak  BadgeType = "profitable_streak"
	BadgeLowDrawdownMaster BadgeType = "low_drawdown_master"
	BadgeTopRank           BadgeType = "top_rank"
)

// Badge is an append-only achievement marker. Once awarded it is never
// re-evaluated or revoked by this subsystem.
type Badge struct {
	UserID    string    `gorm:"column:user_id;primaryKey" json:"user_id"`
	Type      BadgeType `gorm:"column:type;primaryKey" json:"type"`
	Name      string    `gorm:"column:name" json:"name"`
	AwardedAt time.Time `gorm:"column:awarded_at" json:"awarded_at"`
}

func (Badge) TableName() string {
	return "badge"
}
