package model

import "time"

// AuditEvent marks which lifecycle point an audit record captures.
type AuditEvent string

const (
	AuditStarted   AuditEvent = "started"
	AuditCompleted AuditEvent = "completed"
	AuditFailed    AuditEvent = "failed"
)

// AuditRecord is one persisted lifecycle record for a workflow instance.
// It carries enough metadata to reconstruct what happened without replaying
// the instance.
type AuditRecord struct {
	InstanceID       string     `gorm:"column:instance_id" json:"instance_id"`
	Workflow         string     `gorm:"column:workflow" json:"workflow"`
	Event            AuditEvent `gorm:"column:event" json:"event"`
	CycleCount       int        `gorm:"column:cycle_count" json:"cycle_count"`
	ItemsProcessed   int        `gorm:"column:items_processed" json:"items_processed"`
	SignalsGenerated int        `gorm:"column:signals_generated" json:"signals_generated"`
	ErrorCount       int        `gorm:"column:error_count" json:"error_count"`
	Detail           string     `gorm:"column:detail" json:"detail,omitempty"`
	RecordedAt       time.Time  `gorm:"column:recorded_at" json:"recorded_at"`
}

func (AuditRecord) TableName() string {
	return "workflow_audit"
}
