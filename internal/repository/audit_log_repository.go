package repository

import (
	"context"
	"time"

	"digistore/internal/domain/model"
)

// nil の項目は絞り込まない
type AuditLogFilter struct {
	ActorUserID  *int64
	Action       *model.AuditAction
	ResourceType *model.AuditResourceType
	ResourceID   *int64
	CreatedFrom  *time.Time

	Limit  int
	Offset int
}

// 追記のみ。更新・削除はしない
type AuditLogRepository interface {
	Create(ctx context.Context, entry model.AuditLog) error
	List(ctx context.Context, filter AuditLogFilter) ([]model.AuditLog, error)
}
