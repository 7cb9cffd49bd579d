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

// SignalExtraction processes one batch of emails or news articles. Items are
// isolated from each other: one item's failure, extraction or persistence, is
// recorded and the batch moves on, and the processed count only includes items
// that made it all the way through. A cancel signal is honored between items
// and ends the run as completed, keeping everything processed so far.
func (w *Worker) SignalExtraction(ctx *workflow.Context) error {
	in, ok := ctx.Input().(BatchInput)
	if !ok {
		return fmt.Errorf("signal extraction needs a BatchInput, got %T", ctx.Input())
	}

	tracker := newStatusTracker(0)
	registerStatusQuery(ctx, tracker)
	w.audit(ctx, WorkflowSignalExtraction, model.AuditStarted, tracker, string(in.Kind))

	tracker.setPhase(model.PhaseProcessing)

	var (
		samples   []engine.SentimentSample
		cancelled bool
	)

	for _, item := range in.Items {
		if ctx.CancelRequested() {
			cancelled = true
			ctx.Logger().Info("Batch cancelled", "kind", in.Kind, "remaining", len(in.Items)-tracker.snapshot().ItemsProcessed)
			break
		}

		sig, sample, err := w.extractItem(ctx, item, in.AggregateSentiment)
		if err != nil {
			tracker.addError(item.ID, err)
			continue
		}

		if sig != nil {
			if err := w.storeSignal(ctx, sig); err != nil {
				tracker.addError(item.ID, err)
				continue
			}
			tracker.recordSignal(sig.ID)
			if sig.Actionable() {
				w.deps.NotifySignal(context.Background(), sig)
			}
		}

		tracker.addProcessed(1)
		if sample != nil {
			samples = append(samples, *sample)
		}
	}

	if !cancelled && in.AggregateSentiment {
		if sig := w.aggregateBatchSentiment(in, samples); sig != nil {
			// Aggregation trouble never fails the batch.
			if err := w.storeSignal(ctx, sig); err != nil {
				ctx.Logger().Warn("Aggregate sentiment signal not stored", "kind", in.Kind, "error", err)
				tracker.addError("aggregate_sentiment", err)
			} else {
				tracker.recordSignal(sig.ID)
				if sig.Actionable() {
					w.deps.NotifySignal(context.Background(), sig)
				}
			}
		}
	}

	tracker.setPhase(model.PhaseCompleted)
	w.audit(ctx, WorkflowSignalExtraction, model.AuditCompleted, tracker, "")
	return nil
}

func (w *Worker) storeSignal(ctx *workflow.Context, sig *model.Signal) error {
	return ctx.Execute("store_signals", workflow.DefaultActivityOptions(), func(c context.Context, _ func()) error {
		return w.deps.StoreSignals(c, []*model.Signal{sig})
	})
}

// extractItem runs inference for one item: signal extraction plus, when the
// batch asked for sentiment aggregation, a sentiment read. The sentiment read
// degrades to neutral inside the activities layer, so only extraction failures
// count against the item.
func (w *Worker) extractItem(ctx *workflow.Context, item model.BatchItem, withSentiment bool) (*model.Signal, *engine.SentimentSample, error) {
	var result *inference.ExtractionResult
	err := ctx.Execute("extract_signal", workflow.DefaultActivityOptions(), func(c context.Context, _ func()) error {
		var err error
		result, err = w.deps.ExtractSignal(c, item)
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	var sample *engine.SentimentSample
	if withSentiment {
		var sentiment inference.SentimentScore
		err = ctx.Execute("score_sentiment", workflow.DefaultActivityOptions(), func(c context.Context, _ func()) error {
			var err error
			sentiment, err = w.deps.ScoreSentiment(c, item.Content)
			return err
		})
		if err != nil {
			ctx.Logger().Warn("Sentiment read failed", "item_id", item.ID, "error", err)
		}
		if sentiment.Confidence > 0 {
			sample = &engine.SentimentSample{Score: sentiment.Score, Confidence: sentiment.Confidence}
		}
	}

	if result == nil {
		return nil, sample, nil
	}
	return w.signalFromExtraction(item, result), sample, nil
}

func (w *Worker) signalFromExtraction(item model.BatchItem, r *inference.ExtractionResult) *model.Signal {
	signalType := model.SignalTypeEmailContent
	if item.Kind == model.BatchKindNews {
		signalType = model.SignalTypeNewsContent
	}

	now := time.Now()
	return &model.Signal{
		ID:               uuid.NewString(),
		Type:             signalType,
		Source:           string(item.Kind),
		SourceID:         item.ID,
		Title:            r.Title,
		Description:      r.Description,
		Confidence:       r.Confidence,
		Severity:         parseSeverity(r.Severity),
		RelatedMarkets:   r.RelatedMarkets,
		Sentiment:        parseSentiment(r.Sentiment),
		PriceImpact:      r.PriceImpact,
		TimeHorizon:      r.TimeHorizon,
		ActionSuggestion: r.ActionSuggestion,
		CreatedAt:        now,
		ExpiresAt:        now.Add(w.cfg.SignalTTL),
	}
}

// aggregateBatchSentiment condenses the per-item sentiment reads into one
// synthetic signal when the aggregate is strong and trusted enough.
func (w *Worker) aggregateBatchSentiment(in BatchInput, samples []engine.SentimentSample) *model.Signal {
	score, confidence := engine.AggregateSentiment(samples)
	if !engine.SentimentActionable(score, confidence) {
		return nil
	}

	sentiment := model.SentimentBullish
	direction := "bullish"
	if score < 0 {
		sentiment = model.SentimentBearish
		direction = "bearish"
	}

	now := time.Now()
	return &model.Signal{
		ID:          uuid.NewString(),
		Type:        model.SignalTypeSentiment,
		Source:      string(in.Kind),
		Title:       fmt.Sprintf("Aggregate %s sentiment is %s", in.Kind, direction),
		Description: fmt.Sprintf("Across %d items the aggregate sentiment scored %.2f with confidence %.2f", len(samples), score, confidence),
		Confidence:  confidence,
		Severity:    model.SeverityMedium,
		Sentiment:   sentiment,
		CreatedAt:   now,
		ExpiresAt:   now.Add(w.cfg.SignalTTL),
	}
}
