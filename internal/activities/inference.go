package activities

import (
	"context"

	"github.com/navid-fn/pulse/internal/inference"
	"github.com/navid-fn/pulse/internal/model"
)

// InferenceClient is the subset of the inference service the workflows use.
type InferenceClient interface {
	ExtractSignal(ctx context.Context, item model.BatchItem) (*inference.ExtractionResult, error)
	ClassifyBehavior(ctx context.Context, userID string, trades []model.Trade) (inference.BehaviorClassification, error)
	ScoreSentiment(ctx context.Context, content string) (inference.SentimentScore, error)
	ExplainCorrelation(ctx context.Context, marketA, marketB string, correlation float64, sampleSize int) (string, error)
	GenerateInsight(ctx context.Context, summary model.PortfolioSummary) (inference.InsightDraft, error)
}

// ExtractSignal reads one batch item. Errors propagate so the batch workflow
// can count the item as failed.
func (a *Activities) ExtractSignal(ctx context.Context, item model.BatchItem) (*inference.ExtractionResult, error) {
	return a.inference.ExtractSignal(ctx, item)
}

// ClassifyBehavior is an enrichment step. On inference failure it degrades to
// a neutral classification instead of failing the monitoring cycle.
func (a *Activities) ClassifyBehavior(ctx context.Context, userID string, trades []model.Trade) (inference.BehaviorClassification, error) {
	result, err := a.inference.ClassifyBehavior(ctx, userID, trades)
	if err != nil {
		a.logger.Warn("Behavior classification unavailable, using neutral default", "user_id", userID, "error", err)
		return inference.BehaviorClassification{RiskLevel: "low", Confidence: 0}, nil
	}
	return result, nil
}

// ScoreSentiment degrades to a zero-confidence neutral score on failure so a
// flaky inference service cannot sink a whole batch aggregate.
func (a *Activities) ScoreSentiment(ctx context.Context, content string) (inference.SentimentScore, error) {
	result, err := a.inference.ScoreSentiment(ctx, content)
	if err != nil {
		a.logger.Warn("Sentiment scoring unavailable, using neutral default", "error", err)
		return inference.SentimentScore{}, nil
	}
	return result, nil
}

// ExplainCorrelation degrades to an empty explanation on failure; the numeric
// correlation is still stored.
func (a *Activities) ExplainCorrelation(ctx context.Context, marketA, marketB string, correlation float64, sampleSize int) (string, error) {
	explanation, err := a.inference.ExplainCorrelation(ctx, marketA, marketB, correlation, sampleSize)
	if err != nil {
		a.logger.Warn("Correlation explanation unavailable", "market_a", marketA, "market_b", marketB, "error", err)
		return "", nil
	}
	return explanation, nil
}

// GenerateInsight propagates errors so the insight workflow can record the
// user as failed and move on.
func (a *Activities) GenerateInsight(ctx context.Context, summary model.PortfolioSummary) (inference.InsightDraft, error) {
	return a.inference.GenerateInsight(ctx, summary)
}
