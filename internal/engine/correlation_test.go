package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/navid-fn/pulse/internal/model"
)

func TestCorrelateIdentity(t *testing.T) {
	series := []float64{100, 102, 99, 105, 110, 104, 108}

	out := Correlate(series, series)

	assert.InDelta(t, 1.0, out.Correlation, 1e-9)
	assert.Equal(t, model.StrengthVeryStrong, out.Strength)
	assert.Equal(t, len(series), out.SampleSize)
}

func TestCorrelateAntiSymmetry(t *testing.T) {
	series := []float64{100, 102, 99, 105, 110, 104, 108}
	inverse := make([]float64, len(series))
	for i, v := range series {
		inverse[i] = -v
	}

	out := Correlate(series, inverse)

	assert.InDelta(t, -1.0, out.Correlation, 1e-9)
	assert.Equal(t, model.StrengthVeryStrong, out.Strength)
}

func TestCorrelateDegenerateInputs(t *testing.T) {
	tests := []struct {
		name    string
		a, b    []float64
		wantN   int
	}{
		{"both empty", nil, nil, 0},
		{"single point", []float64{5}, []float64{7}, 1},
		{"short left side", []float64{5}, []float64{7, 8, 9}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Correlate(tt.a, tt.b)
			assert.Zero(t, out.Correlation)
			assert.Equal(t, model.StrengthWeak, out.Strength)
			assert.Equal(t, tt.wantN, out.SampleSize)
		})
	}
}

func TestCorrelateZeroVariance(t *testing.T) {
	flat := []float64{3, 3, 3, 3}
	moving := []float64{1, 2, 3, 4}

	out := Correlate(flat, moving)

	assert.Zero(t, out.Correlation)
	assert.Equal(t, model.StrengthWeak, out.Strength)
}

func TestCorrelateUsesAlignedPrefix(t *testing.T) {
	a := []float64{1, 2, 3, 4, 5, 6, 7, 8}
	b := []float64{2, 4, 6}

	out := Correlate(a, b)

	assert.Equal(t, 3, out.SampleSize)
	assert.InDelta(t, 1.0, out.Correlation, 1e-9)
}

func TestClassifyStrengthBands(t *testing.T) {
	tests := []struct {
		r    float64
		want model.CorrelationStrength
	}{
		{0.0, model.StrengthWeak},
		{0.4, model.StrengthWeak},
		{0.41, model.StrengthModerate},
		{-0.5, model.StrengthModerate},
		{0.61, model.StrengthStrong},
		{-0.75, model.StrengthStrong},
		{0.81, model.StrengthVeryStrong},
		{-0.99, model.StrengthVeryStrong},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ClassifyStrength(tt.r), "r=%v", tt.r)
	}
}
