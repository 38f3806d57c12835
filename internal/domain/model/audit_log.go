package model

import "time"

type AuditAction string

const (
	//決済確定
	AuditActionConfirmPayment AuditAction = "CONFIRM_PAYMENT"
	//決済失敗
	AuditActionDeclinePayment AuditAction = "DECLINE_PAYMENT"
	//返金
	AuditActionRefundOrder AuditAction = "REFUND_ORDER"
	//商品の作成・更新・削除
	AuditActionUpsertProduct AuditAction = "UPSERT_PRODUCT"
	AuditActionDeleteProduct AuditAction = "DELETE_PRODUCT"
	//強制ログアウト
	AuditActionForceLogout AuditAction = "FORCE_LOGOUT"
)

type AuditResourceType string

const (
	AuditResourceProduct AuditResourceType = "product"
	AuditResourceOrder   AuditResourceType = "order"
	AuditResourceUser    AuditResourceType = "user"
)

// 注文ステータス変更や管理者操作の記録。
// ActorUserID が 0 のときは決済プロバイダ（システム）からの操作。
type AuditLog struct {
	ID           int64             `gorm:"primaryKey;autoIncrement" json:"id"`
	ActorUserID  int64             `gorm:"not null;index" json:"actor_user_id"`
	Action       AuditAction       `gorm:"type:varchar(50);not null;index" json:"action"`
	ResourceType AuditResourceType `gorm:"type:varchar(50);not null;index" json:"resource_type"`
	ResourceID   int64             `gorm:"not null;index" json:"resource_id"`
	BeforeJSON   string            `gorm:"type:text" json:"before_json"`
	AfterJSON    string            `gorm:"type:text" json:"after_json"`
	CreatedAt    time.Time         `gorm:"not null;index" json:"created_at"`
}

// システム操作の actor
const SystemActorID int64 = 0
