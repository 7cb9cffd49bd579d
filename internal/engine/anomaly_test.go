package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/navid-fn/pulse/internal/model"
)

const testTTL = 24 * time.Hour

func TestDetectPriceAnomalyThresholds(t *testing.T) {
	tests := []struct {
		name         string
		prev, price  float64
		wantSignal   bool
		wantSeverity model.Severity
	}{
		{"exactly 5 percent is quiet", 100, 105, false, ""},
		{"just above threshold", 100, 105.01, true, model.SeverityMedium},
		{"6 percent is medium", 100, 106, true, model.SeverityMedium},
		{"11 percent is high", 100, 111, true, model.SeverityHigh},
		{"21 percent is critical", 100, 121, true, model.SeverityCritical},
		{"downward move counts too", 100, 88, true, model.SeverityHigh},
		{"zero previous price is quiet", 0, 50, false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sig := DetectPriceAnomaly("BTC/USDT", tt.prev, tt.price, testTTL)
			if !tt.wantSignal {
				assert.Nil(t, sig)
				return
			}
			require.NotNil(t, sig)
			assert.Equal(t, model.SignalTypePriceAnomaly, sig.Type)
			assert.Equal(t, tt.wantSeverity, sig.Severity)
			assert.Contains(t, sig.RelatedMarkets, "BTC/USDT")
		})
	}
}

func TestDetectPriceAnomalyConfidenceSaturates(t *testing.T) {
	sig := DetectPriceAnomaly("ETH/USDT", 100, 150, testTTL)
	require.NotNil(t, sig)
	assert.Equal(t, 1.0, sig.Confidence)
}

func TestDetectVolumeAnomalyThresholds(t *testing.T) {
	tests := []struct {
		name         string
		prev, volume float64
		wantSignal   bool
		wantSeverity model.Severity
	}{
		{"doubling exactly is quiet", 1000, 2000, false, ""},
		{"110 percent is low", 1000, 2100, true, model.SeverityLow},
		{"250 percent is medium", 1000, 3500, true, model.SeverityMedium},
		{"600 percent is high", 1000, 7000, true, model.SeverityHigh},
		{"volume drop is quiet", 1000, 100, false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sig := DetectVolumeAnomaly("BTC/USDT", tt.prev, tt.volume, testTTL)
			if !tt.wantSignal {
				assert.Nil(t, sig)
				return
			}
			require.NotNil(t, sig)
			assert.Equal(t, model.SignalTypeVolumeAnomaly, sig.Type)
			assert.Equal(t, tt.wantSeverity, sig.Severity)
		})
	}
}

// The reference scenario: price 100 -> 106, volume 1000 -> 2100 must yield
// exactly one medium price signal at confidence 0.3 and one low volume signal
// at confidence 0.22.
func TestAnomalyScenario(t *testing.T) {
	price := DetectPriceAnomaly("X", 100, 106, testTTL)
	require.NotNil(t, price)
	assert.Equal(t, model.SeverityMedium, price.Severity)
	assert.InDelta(t, 0.3, price.Confidence, 1e-9)

	volume := DetectVolumeAnomaly("X", 1000, 2100, testTTL)
	require.NotNil(t, volume)
	assert.Equal(t, model.SeverityLow, volume.Severity)
	assert.InDelta(t, 0.22, volume.Confidence, 1e-9)
}

func TestChangePct(t *testing.T) {
	assert.InDelta(t, 6.0, ChangePct(100, 106), 1e-9)
	assert.InDelta(t, -12.0, ChangePct(100, 88), 1e-9)
	assert.Zero(t, ChangePct(0, 100))
}
