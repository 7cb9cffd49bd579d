package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/navid-fn/pulse/internal/model"
)

// AuditRepository persists workflow lifecycle records.
type AuditRepository interface {
	// RecordAudit appends one audit row.
	RecordAudit(ctx context.Context, record model.AuditRecord) error

	// RecentAudits returns the newest audit rows, most recent first.
	RecentAudits(ctx context.Context, limit int) ([]model.AuditRecord, error)
}

type gormAuditRepository struct {
	db *gorm.DB
}

// NewGormAuditRepository creates an AuditRepository over db.
func NewGormAuditRepository(db *gorm.DB) AuditRepository {
	return &gormAuditRepository{db: db}
}

func (r *gormAuditRepository) RecordAudit(ctx context.Context, record model.AuditRecord) error {
	return r.db.WithContext(ctx).Create(&record).Error
}

func (r *gormAuditRepository) RecentAudits(ctx context.Context, limit int) ([]model.AuditRecord, error) {
	var records []model.AuditRecord
	err := r.db.WithContext(ctx).
		Order("recorded_at DESC").
		Limit(limit).
		Find(&records).Error
	return records, err
}
