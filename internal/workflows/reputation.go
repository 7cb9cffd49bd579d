package workflows

import (
	"context"
	"fmt"
	"time"

	"github.com/navid-fn/pulse/internal/engine"
	"github.com/navid-fn/pulse/internal/model"
	"github.com/navid-fn/pulse/internal/workflow"
)

// periodStatsMinTrades is the minimum trade count inside a period before
// period statistics are worth persisting.
const periodStatsMinTrades = 10

// allPeriods is the full set of reporting windows.
var allPeriods = []model.Period{
	model.PeriodDaily, model.PeriodWeekly, model.PeriodMonthly,
	model.PeriodQuarterly, model.PeriodYearly, model.PeriodAllTime,
}

// Reputation recomputes one trader's period statistics, reputation score, and
// badge awards. Badges are append-only: rules whose badge the trader already
// holds are skipped, so rerunning the workflow awards nothing new.
func (w *Worker) Reputation(ctx *workflow.Context) error {
	in, ok := ctx.Input().(ReputationInput)
	if !ok {
		return fmt.Errorf("reputation needs a ReputationInput, got %T", ctx.Input())
	}

	tracker := newStatusTracker(0)
	registerStatusQuery(ctx, tracker)
	w.audit(ctx, WorkflowReputation, model.AuditStarted, tracker, in.UserID)

	tracker.setPhase(model.PhaseProcessing)
	if err := w.computeReputation(ctx, tracker, in.UserID, in.Periods); err != nil {
		tracker.setPhase(model.PhaseFailed)
		w.audit(ctx, WorkflowReputation, model.AuditFailed, tracker, err.Error())
		return err
	}

	tracker.setPhase(model.PhaseCompleted)
	w.audit(ctx, WorkflowReputation, model.AuditCompleted, tracker, "")
	return nil
}

// ReputationBatch recomputes reputation for many traders. Traders are isolated
// from each other; the audit record carries how many succeeded and failed.
func (w *Worker) ReputationBatch(ctx *workflow.Context) error {
	in, ok := ctx.Input().(ReputationBatchInput)
	if !ok {
		return fmt.Errorf("reputation batch needs a ReputationBatchInput, got %T", ctx.Input())
	}

	tracker := newStatusTracker(0)
	registerStatusQuery(ctx, tracker)
	w.audit(ctx, WorkflowReputationBatch, model.AuditStarted, tracker, "")

	tracker.setPhase(model.PhaseProcessing)
	for _, userID := range in.UserIDs {
		if ctx.CancelRequested() {
			break
		}
		if err := w.computeReputation(ctx, tracker, userID, in.Periods); err != nil {
			ctx.Logger().Warn("Reputation computation failed", "user_id", userID, "error", err)
			tracker.addError(userID, err)
			continue
		}
		tracker.addProcessed(1)
	}

	tracker.setPhase(model.PhaseCompleted)
	status := tracker.snapshot()
	detail := fmt.Sprintf("successful=%d failed=%d", status.ItemsProcessed, len(status.Errors))
	w.audit(ctx, WorkflowReputationBatch, model.AuditCompleted, tracker, detail)
	return nil
}

func (w *Worker) computeReputation(ctx *workflow.Context, tracker *statusTracker, userID string, periods []model.Period) error {
	if len(periods) == 0 {
		periods = allPeriods
	}

	var metrics model.TraderMetrics
	err := ctx.Execute("load_trader_metrics", workflow.DefaultActivityOptions(), func(c context.Context, _ func()) error {
		var err error
		metrics, err = w.deps.TraderMetrics(c, userID)
		return err
	})
	if err != nil {
		return fmt.Errorf("load metrics for %s: %w", userID, err)
	}

	now := time.Now()
	for _, period := range periods {
		start, end := periodBounds(period, now)

		var trades []model.Trade
		err := ctx.Execute("load_period_trades", workflow.DefaultActivityOptions(), func(c context.Context, _ func()) error {
			var err error
			trades, err = w.deps.TradesForUser(c, userID, start, end)
			return err
		})
		if err != nil {
			return fmt.Errorf("load %s trades for %s: %w", period, userID, err)
		}
		if len(trades) < periodStatsMinTrades {
			continue
		}

		stats := buildPeriodStats(userID, period, start, trades, now)
		err = ctx.Execute("save_period_stats", workflow.DefaultActivityOptions(), func(c context.Context, _ func()) error {
			return w.deps.SavePeriodStats(c, stats)
		})
		if err != nil {
			return fmt.Errorf("save %s stats for %s: %w", period, userID, err)
		}
	}

	score := model.ReputationScore{
		UserID:       userID,
		Score:        engine.ReputationScore(metrics),
		CalculatedAt: now,
	}
	err = ctx.Execute("save_reputation", workflow.DefaultActivityOptions(), func(c context.Context, _ func()) error {
		return w.deps.SaveReputation(c, score)
	})
	if err != nil {
		return fmt.Errorf("save reputation for %s: %w", userID, err)
	}

	return w.awardMetricBadges(ctx, metrics, now)
}

// awardMetricBadges evaluates the badge rule table against current holdings
// and persists plus announces anything newly earned.
func (w *Worker) awardMetricBadges(ctx *workflow.Context, metrics model.TraderMetrics, now time.Time) error {
	var existing []model.Badge
	err := ctx.Execute("load_badges", workflow.DefaultActivityOptions(), func(c context.Context, _ func()) error {
		var err error
		existing, err = w.deps.Badges(c, metrics.UserID)
		return err
	})
	if err != nil {
		return fmt.Errorf("load badges for %s: %w", metrics.UserID, err)
	}

	awarded := engine.EvaluateBadges(metrics, existing, now)
	if len(awarded) == 0 {
		return nil
	}

	err = ctx.Execute("award_badges", workflow.DefaultActivityOptions(), func(c context.Context, _ func()) error {
		return w.deps.AwardBadges(c, awarded)
	})
	if err != nil {
		return fmt.Errorf("award badges for %s: %w", metrics.UserID, err)
	}

	w.deps.NotifyBadges(context.Background(), metrics.UserID, awarded)
	ctx.Logger().Info("Badges awarded", "user_id", metrics.UserID, "count", len(awarded))
	return nil
}

func buildPeriodStats(userID string, period model.Period, start time.Time, trades []model.Trade, now time.Time) model.PeriodStats {
	stats := model.PeriodStats{
		UserID:       userID,
		Period:       period,
		PeriodStart:  start,
		TradeCount:   len(trades),
		CalculatedAt: now,
	}

	wins := 0
	stats.BestTrade = trades[0].PnL
	stats.WorstTrade = trades[0].PnL
	for _, t := range trades {
		stats.TotalPnL += t.PnL
		if t.PnL > 0 {
			wins++
		}
		if t.PnL > stats.BestTrade {
			stats.BestTrade = t.PnL
		}
		if t.PnL < stats.WorstTrade {
			stats.WorstTrade = t.PnL
		}
	}
	stats.WinRate = float64(wins) / float64(len(trades))
	stats.AvgPnL = stats.TotalPnL / float64(len(trades))
	return stats
}
