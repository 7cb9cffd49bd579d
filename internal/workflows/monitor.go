package workflows

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/navid-fn/pulse/internal/engine"
	"github.com/navid-fn/pulse/internal/inference"
	"github.com/navid-fn/pulse/internal/model"
	"github.com/navid-fn/pulse/internal/workflow"
)

// behaviorTradeThreshold is the minimum recent trade count before a trader's
// activity is worth classifying.
const behaviorTradeThreshold = 5

// MarketMonitor is the indefinitely-cycling market watchdog. Each cycle scans
// active markets for price and volume anomalies, classifies busy traders'
// behavior, expires stale signals, then sleeps and continues as new so
// per-cycle state never accumulates. A failed cycle is audited and logged but
// never stops the next cycle from being scheduled.
func (w *Worker) MarketMonitor(ctx *workflow.Context) error {
	cycle := 0
	if in, ok := ctx.Input().(MonitorInput); ok {
		cycle = in.CycleCount
	}

	tracker := newStatusTracker(cycle)
	registerStatusQuery(ctx, tracker)
	w.audit(ctx, WorkflowMarketMonitor, model.AuditStarted, tracker, "")

	if err := w.runMonitorCycle(ctx, tracker); err != nil {
		ctx.Logger().Error("Monitoring cycle failed", "cycle", cycle, "error", err)
		tracker.addError("cycle", err)
		w.audit(ctx, WorkflowMarketMonitor, model.AuditFailed, tracker, err.Error())
	} else {
		w.audit(ctx, WorkflowMarketMonitor, model.AuditCompleted, tracker, "")
	}

	if ctx.CancelRequested() {
		tracker.setPhase(model.PhaseCompleted)
		ctx.Logger().Info("Market monitor cancelled", "cycle", cycle)
		return nil
	}

	tracker.setPhase(model.PhaseSleeping)
	if err := ctx.Sleep(w.cfg.MonitorInterval); err != nil {
		return err
	}
	if ctx.CancelRequested() {
		tracker.setPhase(model.PhaseCompleted)
		return nil
	}

	return ctx.ContinueAsNew(MonitorInput{CycleCount: cycle + 1})
}

func (w *Worker) runMonitorCycle(ctx *workflow.Context, tracker *statusTracker) error {
	tracker.setPhase(model.PhaseMonitoring)

	var markets []model.Market
	err := ctx.Execute("load_markets", workflow.DefaultActivityOptions(), func(c context.Context, _ func()) error {
		var err error
		markets, err = w.deps.ActiveMarkets(c)
		return err
	})
	if err != nil {
		return fmt.Errorf("load markets: %w", err)
	}

	var signals []*model.Signal
	for _, m := range markets {
		if sig := engine.DetectPriceAnomaly(m.Symbol, m.PrevPrice, m.Price, w.cfg.SignalTTL); sig != nil {
			signals = append(signals, sig)
		}
		if sig := engine.DetectVolumeAnomaly(m.Symbol, m.PrevVolume, m.Volume, w.cfg.SignalTTL); sig != nil {
			signals = append(signals, sig)
		}
	}
	tracker.addProcessed(len(markets))

	tracker.setPhase(model.PhaseAnalyzing)

	behaviorSignals, err := w.classifyBusyTraders(ctx, tracker)
	if err != nil {
		return err
	}
	signals = append(signals, behaviorSignals...)

	if len(signals) > 0 {
		err = ctx.Execute("store_signals", workflow.DefaultActivityOptions(), func(c context.Context, _ func()) error {
			return w.deps.StoreSignals(c, signals)
		})
		if err != nil {
			return fmt.Errorf("store signals: %w", err)
		}
		tracker.addSignals(len(signals))

		for _, sig := range signals {
			if sig.Actionable() {
				w.deps.NotifySignal(context.Background(), sig)
			}
		}
	}

	var expired int64
	err = ctx.Execute("expire_signals", workflow.DefaultActivityOptions(), func(c context.Context, _ func()) error {
		var err error
		expired, err = w.deps.ExpireSignals(c, time.Now())
		return err
	})
	if err != nil {
		return fmt.Errorf("expire signals: %w", err)
	}

	ctx.Logger().Info("Monitoring cycle done",
		"markets", len(markets),
		"signals", len(signals),
		"expired", expired,
	)
	return nil
}

// classifyBusyTraders finds traders with enough recent trades to matter and
// asks the inference service to read their pattern. Only high-risk reads turn
// into signals.
func (w *Worker) classifyBusyTraders(ctx *workflow.Context, tracker *statusTracker) ([]*model.Signal, error) {
	var trades []model.Trade
	since := time.Now().Add(-w.cfg.MonitorInterval)
	err := ctx.Execute("load_recent_trades", workflow.DefaultActivityOptions(), func(c context.Context, _ func()) error {
		var err error
		trades, err = w.deps.RecentTrades(c, since)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("load recent trades: %w", err)
	}

	byUser := make(map[string][]model.Trade)
	for _, t := range trades {
		byUser[t.UserID] = append(byUser[t.UserID], t)
	}
	userIDs := make([]string, 0, len(byUser))
	for userID := range byUser {
		userIDs = append(userIDs, userID)
	}
	sort.Strings(userIDs)

	var signals []*model.Signal
	for _, userID := range userIDs {
		if ctx.CancelRequested() {
			break
		}

		userTrades := byUser[userID]
		if len(userTrades) < behaviorTradeThreshold {
			continue
		}

		var classification inference.BehaviorClassification
		err := ctx.Execute("classify_behavior", workflow.DefaultActivityOptions(), func(c context.Context, _ func()) error {
			var err error
			classification, err = w.deps.ClassifyBehavior(c, userID, userTrades)
			return err
		})
		if err != nil {
			tracker.addError(userID, err)
			continue
		}

		if !classification.HighRisk() {
			continue
		}

		now := time.Now()
		signals = append(signals, &model.Signal{
			ID:          uuid.NewString(),
			Type:        model.SignalTypeTraderBehavior,
			Source:      "market_monitor",
			SourceID:    userID,
			Title:       fmt.Sprintf("High-risk trading pattern: %s", userID),
			Description: classification.Summary,
			Confidence:  classification.Confidence,
			Severity:    model.SeverityHigh,
			Sentiment:   model.SentimentNeutral,
			CreatedAt:   now,
			ExpiresAt:   now.Add(w.cfg.SignalTTL),
		})
		w.deps.NotifyBehavior(context.Background(), userID, classification.Summary)
	}
	return signals, nil
}
