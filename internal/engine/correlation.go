// Package engine holds the pure computation cores: correlation, anomaly
// detection, badge evaluation, ranking, and sentiment aggregation. Nothing in
// this package performs I/O, so every function is safe to call from replayed
// or retried workflow code.
package engine

import (
	"math"

	"github.com/navid-fn/pulse/internal/model"
)

// CorrelationOutcome is the pure result of correlating two series. The caller
// attaches market identifiers and an optional explanation.
type CorrelationOutcome struct {
	Correlation float64
	Strength    model.CorrelationStrength
	SampleSize  int
}

// Correlate computes the Pearson correlation coefficient over the first
// min(len(a), len(b)) aligned points. With fewer than two points, or when
// either series has zero variance, it returns correlation 0 (the coefficient
// is undefined there, and 0 keeps downstream classification harmless).
func Correlate(seriesA, seriesB []float64) CorrelationOutcome {
	n := len(seriesA)
	if len(seriesB) < n {
		n = len(seriesB)
	}
	if n < 2 {
		return CorrelationOutcome{Correlation: 0, Strength: model.StrengthWeak, SampleSize: n}
	}

	a := seriesA[:n]
	b := seriesB[:n]

	var meanA, meanB float64
	for i := 0; i < n; i++ {
		meanA += a[i]
		meanB += b[i]
	}
	meanA /= float64(n)
	meanB /= float64(n)

	var cov, varA, varB float64
	for i := 0; i < n; i++ {
		da := a[i] - meanA
		db := b[i] - meanB
		cov += da * db
		varA += da * da
		varB += db * db
	}

	denom := math.Sqrt(varA * varB)
	if denom == 0 {
		return CorrelationOutcome{Correlation: 0, Strength: model.StrengthWeak, SampleSize: n}
	}

	r := cov / denom
	return CorrelationOutcome{
		Correlation: r,
		Strength:    ClassifyStrength(r),
		SampleSize:  n,
	}
}

// ClassifyStrength maps |r| into the strength bands.
func ClassifyStrength(r float64) model.CorrelationStrength {
	abs := math.Abs(r)
	switch {
	case abs > 0.8:
		return model.StrengthVeryStrong
	case abs > 0.6:
		return model.StrengthStrong
	case abs > 0.4:
		return model.StrengthModerate
	default:
		return model.StrengthWeak
	}
}
