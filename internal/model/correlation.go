package model

import "time"

// CorrelationStrength maps |correlation| into coarse bands.
type CorrelationStrength string

const (
	StrengthWeak       CorrelationStrength = "weak"
	StrengthModerate   CorrelationStrength = "moderate"
	StrengthStrong     CorrelationStrength = "strong"
	StrengthVeryStrong CorrelationStrength = "very_strong"
)

// CorrelationResult is the derived correlation between two markets.
// Recomputed each insight run; the latest row per pair supersedes older ones.
type CorrelationResult struct {
	MarketA      string              `gorm:"column:market_a;primaryKey" json:"market_a"`
	MarketB      string              `gorm:"column:market_b;primaryKey" json:"market_b"`
	Correlation  float64             `gorm:"column:correlation;type:Float64" json:"correlation"`
	Strength     CorrelationStrength `gorm:"column:strength" json:"strength"`
	SampleSize   int                 `gorm:"column:sample_size" json:"sample_size"`
	Explanation  string              `gorm:"column:explanation" json:"explanation,omitempty"`
	CalculatedAt time.Time           `gorm:"column:calculated_at" json:"calculated_at"`
}

func (CorrelationResult) TableName() string {
	return "market_correlation"
}
