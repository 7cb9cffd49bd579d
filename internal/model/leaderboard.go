package model

import "time"

// LeaderboardMetric selects which statistic a leaderboard ranks by.
type LeaderboardMetric string

const (
	MetricPnL        LeaderboardMetric = "pnl"
	MetricPnLPercent LeaderboardMetric = "pnl_percent"
	MetricSharpe     LeaderboardMetric = "sharpe_ratio"
	MetricWinRate    LeaderboardMetric = "win_rate"
	MetricTradeCount LeaderboardMetric = "trade_count"
	MetricFollowers  LeaderboardMetric = "followers"
	MetricCopiers    LeaderboardMetric = "copiers"
	MetricReputation LeaderboardMetric = "reputation"
)

// AllLeaderboardMetrics lists every supported metric, in the order the full
// leaderboard run computes them.
var AllLeaderboardMetrics = []LeaderboardMetric{
	MetricPnL, MetricPnLPercent, MetricSharpe, MetricWinRate,
	MetricTradeCount, MetricFollowers, MetricCopiers, MetricReputation,
}

// Participant is one ranked candidate: a user id plus the metric values the
// ranking engine can select from.
type Participant struct {
	UserID     string  `json:"user_id"`
	PnL        float64 `json:"pnl"`
	PnLPercent float64 `json:"pnl_percent"`
	Sharpe     float64 `json:"sharpe_ratio"`
	WinRate    float64 `json:"win_rate"`
	TradeCount int     `json:"trade_count"`
	Followers  int     `json:"followers"`
	Copiers    int     `json:"copiers"`
	Reputation float64 `json:"reputation"`
}

// MetricValue returns the participant's value for the selected metric.
func (p *Participant) MetricValue(metric LeaderboardMetric) float64 {
	switch metric {
	case MetricPnL:
		return p.PnL
	case MetricPnLPercent:
		return p.PnLPercent
	case MetricSharpe:
		return p.Sharpe
	case MetricWinRate:
		return p.WinRate
	case MetricTradeCount:
		return float64(p.TradeCount)
	case MetricFollowers:
		return float64(p.Followers)
	case MetricCopiers:
		return float64(p.Copiers)
	case MetricReputation:
		return p.Reputation
	default:
		return 0
	}
}

// LeaderboardEntry is one ranked row in a snapshot. Change fields are nil when
// the user had no entry in the preceding snapshot.
type LeaderboardEntry struct {
	Rank          int      `json:"rank"`
	PreviousRank  *int     `json:"previous_rank,omitempty"`
	UserID        string   `json:"user_id"`
	Value         float64  `json:"value"`
	Change        *float64 `json:"change,omitempty"`
	ChangePercent *float64 `json:"change_percent,omitempty"`
}

// LeaderboardSnapshot is one immutable computed leaderboard. Superseded, not
// mutated, by the next cycle's snapshot for the same key.
type LeaderboardSnapshot struct {
	ID                string             `gorm:"column:id;primaryKey" json:"id"`
	LeaderboardType   LeaderboardMetric  `gorm:"column:leaderboard_type" json:"leaderboard_type"`
	Period            Period             `gorm:"column:period" json:"period"`
	AssetClass        string             `gorm:"column:asset_class" json:"asset_class,omitempty"`
	Entries           []LeaderboardEntry `gorm:"-" json:"entries"`
	TotalParticipants int                `gorm:"column:total_participants" json:"total_participants"`
	CalculatedAt      time.Time          `gorm:"column:calculated_at" json:"calculated_at"`
}

func (LeaderboardSnapshot) TableName() string {
	return "leaderboard_snapshot"
}

// LeaderboardHistoryRow is one longitudinal tracking row, appended per entry
// per snapshot.
type LeaderboardHistoryRow struct {
	SnapshotID      string            `json:"snapshot_id"`
	LeaderboardType LeaderboardMetric `json:"leaderboard_type"`
	Period          Period            `json:"period"`
	AssetClass      string            `json:"asset_class,omitempty"`
	Rank            int               `json:"rank"`
	UserID          string            `json:"user_id"`
	Value           float64           `json:"value"`
	CalculatedAt    time.Time         `json:"calculated_at"`
}
