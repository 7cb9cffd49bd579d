package model

import "time"

// BatchKind is the content type of a batch extraction run.
type BatchKind string

const (
	BatchKindEmail BatchKind = "email"
	BatchKindNews  BatchKind = "news"
)

// BatchItem is one email or news article submitted for signal extraction.
type BatchItem struct {
	ID         string    `json:"id"`
	Kind       BatchKind `json:"kind"`
	Title      string    `json:"title"`
	Content    string    `json:"content"`
	ReceivedAt time.Time `json:"received_at"`
}

// PortfolioSummary bundles what the insight generator needs to know about one
// user: their open positions and the recent signals touching those markets.
type PortfolioSummary struct {
	UserID        string     `json:"user_id"`
	Positions     []Position `json:"positions"`
	RecentSignals []Signal   `json:"recent_signals"`
}
