package engine

import (
	"time"

	"github.com/navid-fn/pulse/internal/model"
)

// BadgeRule matches a trader's metrics against one award condition.
type BadgeRule struct {
	Type      model.BadgeType
	Name      string
	Qualifies func(m model.TraderMetrics) bool
}

// BadgeRules is the fixed, ordered rule table. Order matters only for the
// order awards are emitted in; each rule is independent.
var BadgeRules = []BadgeRule{
	{
		Type:      model.BadgeVerifiedTrader,
		Name:      "Verified Trader",
		Qualifies: func(m model.TraderMetrics) bool { return m.Verified },
	},
	{
		Type:      model.BadgeConsistentWinner,
		Name:      "Consistent Winner",
		Qualifies: func(m model.TraderMetrics) bool { return m.WinRate >= 0.6 && m.TradeCount >= 100 },
	},
	{
		Type:      model.BadgeRiskManager,
		Name:      "Risk Manager",
		Qualifies: func(m model.TraderMetrics) bool { return m.MaxDrawdownPct <= 10 && m.SharpeRatio >= 1.5 },
	},
	{
		Type:      model.BadgeHighVolume,
		Name:      "High Volume Trader",
		Qualifies: func(m model.TraderMetrics) bool { return m.TradeCount >= 1000 },
	},
	{
		Type:      model.BadgeCommunityLeader,
		Name:      "Community Leader",
		Qualifies: func(m model.TraderMetrics) bool { return m.Followers >= 1000 && m.SharedPositions >= 100 },
	},
	{
		Type:      model.BadgeEarlyAdopter,
		Name:      "Early Adopter",
		Qualifies: func(m model.TraderMetrics) bool { return m.AccountAgeDays >= 365 },
	},
	{
		Type:      model.BadgeProfitableStreak,
		Name:      "Profitable Streak",
		Qualifies: func(m model.TraderMetrics) bool { return m.TotalPnLPct >= 50 },
	},
	{
		Type:      model.BadgeLowDrawdownMaster,
		Name:      "Low Drawdown Master",
		Qualifies: func(m model.TraderMetrics) bool { return m.MaxDrawdownPct <= 5 && m.TradeCount >= 50 },
	},
}

// EvaluateBadges runs the rule table against the metrics, excluding rule types
// already present in the existing badge set. Running it again with the updated
// set yields no new awards, which is what keeps badge awarding idempotent.
func EvaluateBadges(metrics model.TraderMetrics, existing []model.Badge, now time.Time) []model.Badge {
	held := make(map[model.BadgeType]bool, len(existing))
	for _, b := range existing {
		held[b.Type] = true
	}

	var awarded []model.Badge
	for _, rule := range BadgeRules {
		if held[rule.Type] {
			continue
		}
		if !rule.Qualifies(metrics) {
			continue
		}
		awarded = append(awarded, model.Badge{
			UserID:    metrics.UserID,
			Type:      rule.Type,
			Name:      rule.Name,
			AwardedAt: now,
		})
	}
	return awarded
}

// ReputationScore condenses trader metrics into a single 0-100 score.
// Weights favor risk-adjusted performance over raw activity.
func ReputationScore(m model.TraderMetrics) float64 {
	score := m.WinRate * 30

	sharpe := m.SharpeRatio
	if sharpe > 3 {
		sharpe = 3
	}
	if sharpe < 0 {
		sharpe = 0
	}
	score += sharpe / 3 * 25

	drawdownPenalty := m.MaxDrawdownPct
	if drawdownPenalty > 100 {
		drawdownPenalty = 100
	}
	score += (100 - drawdownPenalty) / 100 * 20

	activity := float64(m.TradeCount)
	if activity > 1000 {
		activity = 1000
	}
	score += activity / 1000 * 15

	if m.Verified {
		score += 10
	}

	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}
	return score
}
