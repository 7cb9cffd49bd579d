package engine

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/navid-fn/pulse/internal/model"
)

const (
	priceAnomalyThresholdPct  = 5.0
	volumeAnomalyThresholdPct = 100.0
)

// ChangePct returns the percentage change from prev to current.
// A zero previous value yields 0 rather than an infinity.
func ChangePct(prev, current float64) float64 {
	if prev == 0 {
		return 0
	}
	return (current - prev) / prev * 100
}

// DetectPriceAnomaly returns a signal when the absolute price change exceeds
// 5%. Severity escalates with the size of the move; confidence saturates at a
// 20% move. Returns nil when the move is within the threshold.
func DetectPriceAnomaly(symbol string, prevPrice, price float64, ttl time.Duration) *model.Signal {
	pct := ChangePct(prevPrice, price)
	abs := math.Abs(pct)
	if abs <= priceAnomalyThresholdPct {
		return nil
	}

	severity := model.SeverityMedium
	switch {
	case abs > 20:
		severity = model.SeverityCritical
	case abs > 10:
		severity = model.SeverityHigh
	}

	direction := "up"
	sentiment := model.SentimentBullish
	if pct < 0 {
		direction = "down"
		sentiment = model.SentimentBearish
	}

	now := time.Now()
	return &model.Signal{
		ID:             uuid.NewString(),
		Type:           model.SignalTypePriceAnomaly,
		Source:         "market_monitor",
		SourceID:       symbol,
		Title:          fmt.Sprintf("%s price moved %.2f%%", symbol, pct),
		Description:    fmt.Sprintf("Price of %s moved %s by %.2f%% (%.4f -> %.4f)", symbol, direction, abs, prevPrice, price),
		Confidence:     math.Min(abs/20, 1),
		Severity:       severity,
		RelatedMarkets: []string{symbol},
		Sentiment:      sentiment,
		PriceImpact:    pct,
		CreatedAt:      now,
		ExpiresAt:      now.Add(ttl),
	}
}

// DetectVolumeAnomaly returns a signal when volume more than doubles within
// the observation window. Only surges matter; drops are not anomalous here.
func DetectVolumeAnomaly(symbol string, prevVolume, volume float64, ttl time.Duration) *model.Signal {
	pct := ChangePct(prevVolume, volume)
	if pct <= volumeAnomalyThresholdPct {
		return nil
	}

	severity := model.SeverityLow
	switch {
	case pct > 500:
		severity = model.SeverityHigh
	case pct > 200:
		severity = model.SeverityMedium
	}

	now := time.Now()
	return &model.Signal{
		ID:             uuid.NewString(),
		Type:           model.SignalTypeVolumeAnomaly,
		Source:         "market_monitor",
		SourceID:       symbol,
		Title:          fmt.Sprintf("%s volume surged %.0f%%", symbol, pct),
		Description:    fmt.Sprintf("Trading volume of %s increased by %.2f%% (%.2f -> %.2f)", symbol, pct, prevVolume, volume),
		Confidence:     math.Min(pct/500, 1),
		Severity:       severity,
		RelatedMarkets: []string{symbol},
		Sentiment:      model.SentimentNeutral,
		CreatedAt:      now,
		ExpiresAt:      now.Add(ttl),
	}
}
