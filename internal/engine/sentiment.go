package engine

// SentimentSample is one item's sentiment read, as returned by the inference
// service for a successfully-processed batch item.
type SentimentSample struct {
	Score      float64 // -1 (bearish) .. 1 (bullish)
	Confidence float64 // 0 .. 1
	Weight     float64 // relative item weight; 0 means 1
}

// AggregateSentiment averages the samples' scores, weighting each by its
// confidence times its item weight. The returned confidence is the weighted
// mean confidence, so a batch of low-confidence reads cannot produce a
// high-confidence aggregate.
func AggregateSentiment(samples []SentimentSample) (score, confidence float64) {
	if len(samples) == 0 {
		return 0, 0
	}

	var weightedScore, weightedConf, totalWeight float64
	for _, s := range samples {
		w := s.Weight
		if w == 0 {
			w = 1
		}
		weightedScore += s.Score * s.Confidence * w
		weightedConf += s.Confidence * w
		totalWeight += w
	}
	if weightedConf == 0 || totalWeight == 0 {
		return 0, 0
	}

	return weightedScore / weightedConf, weightedConf / totalWeight
}

// SentimentActionable reports whether an aggregate read is strong and trusted
// enough to emit a synthetic sentiment signal.
func SentimentActionable(score, confidence float64) bool {
	abs := score
	if abs < 0 {
		abs = -abs
	}
	return abs > 0.5 && confidence > 0.6
}
