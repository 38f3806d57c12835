package repository

import (
	"context"

	"digistore/internal/domain/model"
	repo "digistore/internal/repository"

	"gorm.io/gorm"
)

const (
	defaultAuditPageSize = 50
	maxAuditPageSize     = 200
)

type AuditLogGormRepository struct {
	db *gorm.DB
}

func NewAuditLogGormRepository(db *gorm.DB) *AuditLogGormRepository {
	return &AuditLogGormRepository{db: db}
}

func (r *AuditLogGormRepository) Create(ctx context.Context, entry model.AuditLog) error {
	return r.db.WithContext(ctx).Create(&entry).Error
}

// 新しい順
func (r *AuditLogGormRepository) List(ctx context.Context, f repo.AuditLogFilter) ([]model.AuditLog, error) {
	conds := map[string]any{}
	if f.ActorUserID != nil {
		conds["actor_user_id"] = *f.ActorUserID
	}
	if f.Action != nil {
		conds["action"] = *f.Action
	}
	if f.ResourceType != nil {
		conds["resource_type"] = *f.ResourceType
	}
	if f.ResourceID != nil {
		conds["resource_id"] = *f.ResourceID
	}

	q := r.db.WithContext(ctx).Where(conds)
	if f.CreatedFrom != nil {
		q = q.Where("created_at >= ?", *f.CreatedFrom)
	}

	size := f.Limit
	if size < 1 || size > maxAuditPageSize {
		size = defaultAuditPageSize
	}
	logs := []model.AuditLog{}
	err := q.Order("id DESC").Limit(size).Offset(max(f.Offset, 0)).Find(&logs).Error
	return logs, err
}
