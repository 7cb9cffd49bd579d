// Package model defines the domain models shared across workflows, engines,
// repositories, and the API layer.
package model

import "time"

// SignalType indicates what kind of observation a signal carries.
type SignalType string

const (
	SignalTypePriceAnomaly   SignalType = "price_anomaly"
	SignalTypeVolumeAnomaly  SignalType = "volume_anomaly"
	SignalTypeTraderBehavior SignalType = "trader_behavior"
	SignalTypeEmailContent   SignalType = "email_content"
	SignalTypeNewsContent    SignalType = "news_content"
	SignalTypeSentiment      SignalType = "aggregate_sentiment"
	SignalTypeCorrelation    SignalType = "correlation"
)

// Severity grades how actionable a signal is.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Sentiment is the directional read of a signal, when one applies.
type Sentiment string

const (
	SentimentBullish Sentiment = "bullish"
	SentimentBearish Sentiment = "bearish"
	SentimentNeutral Sentiment = "neutral"
)

// Signal is a detected, actionable observation about a market or trader
// condition. Immutable once stored; excluded from active queries after expiry.
type Signal struct {
	ID               string     `gorm:"column:id;primaryKey" json:"id"`
	Type             SignalType `gorm:"column:type" json:"type"`
	Source           string     `gorm:"column:source" json:"source"`
	SourceID         string     `gorm:"column:source_id" json:"source_id,omitempty"`
	Title            string     `gorm:"column:title" json:"title"`
	Description      string     `gorm:"column:description" json:"description"`
	Confidence       float64    `gorm:"column:confidence;type:Float64" json:"confidence"`
	Severity         Severity   `gorm:"column:severity" json:"severity"`
	RelatedMarkets   []string   `gorm:"column:related_markets;type:Array(String)" json:"related_markets"`
	RelatedEvents    []string   `gorm:"column:related_events;type:Array(String)" json:"related_events"`
	Sentiment        Sentiment  `gorm:"column:sentiment" json:"sentiment,omitempty"`
	PriceImpact      float64    `gorm:"column:price_impact;type:Float64" json:"price_impact,omitempty"`
	TimeHorizon      string     `gorm:"column:time_horizon" json:"time_horizon,omitempty"`
	ActionSuggestion string     `gorm:"column:action_suggestion" json:"action_suggestion,omitempty"`
	RawData          string     `gorm:"column:raw_data" json:"raw_data,omitempty"`
	CreatedAt        time.Time  `gorm:"column:created_at" json:"created_at"`
	ExpiresAt        time.Time  `gorm:"column:expires_at" json:"expires_at"`
}

func (Signal) TableName() string {
	return "signal"
}

// Actionable reports whether the signal warrants a push notification.
func (s *Signal) Actionable() bool {
	return s.Severity == SeverityHigh || s.Severity == SeverityCritical
}
