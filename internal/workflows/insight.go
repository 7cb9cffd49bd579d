package workflows

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/navid-fn/pulse/internal/engine"
	"github.com/navid-fn/pulse/internal/inference"
	"github.com/navid-fn/pulse/internal/model"
	"github.com/navid-fn/pulse/internal/workflow"
)

const (
	// correlationWindow is how far back the price series for pair
	// correlation reach.
	correlationWindow = 30 * 24 * time.Hour

	// insightSignalLimit caps how many recent signals feed one user's
	// portfolio summary.
	insightSignalLimit = 20
)

// DailyInsight is the scheduled daily run: it sleeps until the configured
// hour, recomputes configured market-pair correlations, generates a
// personalized insight for every user with open positions, then continues as
// new for the next day. Per-user failures are collected, and even a failed
// run schedules the next one.
func (w *Worker) DailyInsight(ctx *workflow.Context) error {
	cycle := 0
	if in, ok := ctx.Input().(InsightInput); ok {
		cycle = in.CycleCount
	}

	tracker := newStatusTracker(cycle)
	registerStatusQuery(ctx, tracker)

	tracker.setPhase(model.PhaseSleeping)
	next := nextRunAt(time.Now(), w.cfg.InsightHour)
	ctx.Logger().Info("Daily insight scheduled", "next_run", next, "cycle", cycle)
	if err := ctx.Sleep(time.Until(next)); err != nil {
		return err
	}
	if ctx.CancelRequested() {
		tracker.setPhase(model.PhaseCompleted)
		return nil
	}

	w.audit(ctx, WorkflowDailyInsight, model.AuditStarted, tracker, "")
	tracker.setPhase(model.PhaseProcessing)

	if err := w.runInsightCycle(ctx, tracker); err != nil {
		ctx.Logger().Error("Insight run failed", "cycle", cycle, "error", err)
		tracker.addError("cycle", err)
		w.audit(ctx, WorkflowDailyInsight, model.AuditFailed, tracker, err.Error())
	} else {
		w.audit(ctx, WorkflowDailyInsight, model.AuditCompleted, tracker, "")
	}

	if ctx.CancelRequested() {
		tracker.setPhase(model.PhaseCompleted)
		return nil
	}
	return ctx.ContinueAsNew(InsightInput{CycleCount: cycle + 1})
}

func (w *Worker) runInsightCycle(ctx *workflow.Context, tracker *statusTracker) error {
	if err := w.refreshCorrelations(ctx, tracker); err != nil {
		return err
	}
	return w.generateUserInsights(ctx, tracker)
}

// refreshCorrelations recomputes the configured market pairs. The numeric
// result is always stored; the natural-language explanation is best effort,
// and only very strong pairs produce a signal.
func (w *Worker) refreshCorrelations(ctx *workflow.Context, tracker *statusTracker) error {
	since := time.Now().Add(-correlationWindow)

	for _, pair := range w.cfg.InsightPairs {
		if ctx.CancelRequested() {
			return nil
		}

		var seriesA, seriesB []float64
		err := ctx.Execute("load_price_history", workflow.DefaultActivityOptions(), func(c context.Context, _ func()) error {
			var err error
			if seriesA, err = w.deps.PriceHistory(c, pair.A, since); err != nil {
				return err
			}
			seriesB, err = w.deps.PriceHistory(c, pair.B, since)
			return err
		})
		if err != nil {
			tracker.addError(pair.A+"/"+pair.B, err)
			continue
		}

		outcome := engine.Correlate(seriesA, seriesB)

		explanation := ""
		if outcome.Strength != model.StrengthWeak {
			err = ctx.Execute("explain_correlation", workflow.DefaultActivityOptions(), func(c context.Context, _ func()) error {
				var err error
				explanation, err = w.deps.ExplainCorrelation(c, pair.A, pair.B, outcome.Correlation, outcome.SampleSize)
				return err
			})
			if err != nil {
				ctx.Logger().Warn("Correlation explanation failed", "pair", pair, "error", err)
			}
		}

		result := model.CorrelationResult{
			MarketA:      pair.A,
			MarketB:      pair.B,
			Correlation:  outcome.Correlation,
			Strength:     outcome.Strength,
			SampleSize:   outcome.SampleSize,
			Explanation:  explanation,
			CalculatedAt: time.Now(),
		}
		err = ctx.Execute("save_correlation", workflow.DefaultActivityOptions(), func(c context.Context, _ func()) error {
			return w.deps.SaveCorrelation(c, result)
		})
		if err != nil {
			return fmt.Errorf("save correlation %s/%s: %w", pair.A, pair.B, err)
		}

		if outcome.Strength == model.StrengthVeryStrong {
			if err := w.emitCorrelationSignal(ctx, result); err != nil {
				return err
			}
			tracker.addSignals(1)
		}
	}
	return nil
}

func (w *Worker) emitCorrelationSignal(ctx *workflow.Context, result model.CorrelationResult) error {
	now := time.Now()
	abs := result.Correlation
	if abs < 0 {
		abs = -abs
	}

	sig := &model.Signal{
		ID:             uuid.NewString(),
		Type:           model.SignalTypeCorrelation,
		Source:         "daily_insight",
		SourceID:       result.MarketA + "/" + result.MarketB,
		Title:          fmt.Sprintf("%s and %s are strongly correlated", result.MarketA, result.MarketB),
		Description:    fmt.Sprintf("Correlation of %.3f over %d samples. %s", result.Correlation, result.SampleSize, result.Explanation),
		Confidence:     abs,
		Severity:       model.SeverityMedium,
		RelatedMarkets: []string{result.MarketA, result.MarketB},
		Sentiment:      model.SentimentNeutral,
		CreatedAt:      now,
		ExpiresAt:      now.Add(w.cfg.SignalTTL),
	}

	err := ctx.Execute("store_signals", workflow.DefaultActivityOptions(), func(c context.Context, _ func()) error {
		return w.deps.StoreSignals(c, []*model.Signal{sig})
	})
	if err != nil {
		return fmt.Errorf("store correlation signal: %w", err)
	}
	return nil
}

// generateUserInsights builds one personalized narrative per user with open
// positions. Users are isolated; a failed generation is recorded and the run
// moves on.
func (w *Worker) generateUserInsights(ctx *workflow.Context, tracker *statusTracker) error {
	var userIDs []string
	err := ctx.Execute("load_active_users", workflow.DefaultActivityOptions(), func(c context.Context, _ func()) error {
		var err error
		userIDs, err = w.deps.ActiveUserIDs(c)
		return err
	})
	if err != nil {
		return fmt.Errorf("load active users: %w", err)
	}

	for _, userID := range userIDs {
		if ctx.CancelRequested() {
			return nil
		}

		if err := w.generateInsightFor(ctx, userID); err != nil {
			tracker.addError(userID, err)
			continue
		}
		tracker.addProcessed(1)
	}

	ctx.Logger().Info("User insights generated", "users", len(userIDs))
	return nil
}

func (w *Worker) generateInsightFor(ctx *workflow.Context, userID string) error {
	var positions []model.Position
	err := ctx.Execute("load_positions", workflow.DefaultActivityOptions(), func(c context.Context, _ func()) error {
		var err error
		positions, err = w.deps.OpenPositions(c, userID)
		return err
	})
	if err != nil {
		return fmt.Errorf("load positions: %w", err)
	}
	if len(positions) == 0 {
		return nil
	}

	markets := make([]string, 0, len(positions))
	seen := make(map[string]bool, len(positions))
	for _, p := range positions {
		if !seen[p.Symbol] {
			seen[p.Symbol] = true
			markets = append(markets, p.Symbol)
		}
	}

	var signals []model.Signal
	err = ctx.Execute("load_recent_signals", workflow.DefaultActivityOptions(), func(c context.Context, _ func()) error {
		var err error
		signals, err = w.deps.RecentSignalsForMarkets(c, markets, insightSignalLimit)
		return err
	})
	if err != nil {
		return fmt.Errorf("load signals: %w", err)
	}

	summary := model.PortfolioSummary{
		UserID:        userID,
		Positions:     positions,
		RecentSignals: signals,
	}

	var draft inference.InsightDraft
	err = ctx.Execute("generate_insight", workflow.DefaultActivityOptions(), func(c context.Context, _ func()) error {
		var err error
		draft, err = w.deps.GenerateInsight(c, summary)
		return err
	})
	if err != nil {
		return fmt.Errorf("generate insight: %w", err)
	}

	insight := model.Insight{
		ID:          uuid.NewString(),
		UserID:      userID,
		Title:       draft.Title,
		Narrative:   draft.Narrative,
		Priority:    parsePriority(draft.Priority),
		GeneratedAt: time.Now(),
	}
	err = ctx.Execute("save_insight", workflow.DefaultActivityOptions(), func(c context.Context, _ func()) error {
		return w.deps.SaveInsight(c, insight)
	})
	if err != nil {
		return fmt.Errorf("save insight: %w", err)
	}

	// Only pressing insights interrupt the user; the rest wait in the feed.
	if insight.Priority == model.PriorityHigh || insight.Priority == model.PriorityUrgent {
		w.deps.NotifyInsight(context.Background(), insight)
	}
	return nil
}

// nextRunAt returns the next occurrence of the given local hour, strictly
// after now.
func nextRunAt(now time.Time, hour int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, now.Location())
	if !next.After(now) {
		next = next.Add(24 * time.Hour)
	}
	return next
}
