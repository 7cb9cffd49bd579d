package model

import "time"

// InsightPriority grades a generated insight for notification purposes.
type InsightPriority string

const (
	PriorityLow    InsightPriority = "low"
	PriorityNormal InsightPriority = "normal"
	PriorityHigh   InsightPriority = "high"
	PriorityUrgent InsightPriority = "urgent"
)

// Insight is a personalized daily narrative generated for one user from their
// open positions and recent signals.
type Insight struct {
	ID          string          `gorm:"column:id;primaryKey" json:"id"`
	UserID      string          `gorm:"column:user_id" json:"user_id"`
	Title       string          `gorm:"column:title" json:"title"`
	Narrative   string          `gorm:"column:narrative" json:"narrative"`
	Priority    InsightPriority `gorm:"column:priority" json:"priority"`
	GeneratedAt time.Time       `gorm:"column:generated_at" json:"generated_at"`
}

func (Insight) TableName() string {
	return "insight"
}
