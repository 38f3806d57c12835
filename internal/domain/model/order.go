package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending  OrderStatus = "pending"
	OrderStatusPaid     OrderStatus = "paid"
	OrderStatusFailed   OrderStatus = "failed"
	OrderStatusRefunded OrderStatus = "refunded"
)

// 許可される遷移だけを持つ
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending: {OrderStatusPaid, OrderStatusFailed},
	OrderStatusPaid:    {OrderStatusRefunded},
}

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusPaid, OrderStatusFailed, OrderStatusRefunded:
		return true
	}
	return false
}

func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, to := range orderTransitions[s] {
		if to == next {
			return true
		}
	}
	return false
}

// failed / refunded からはどこにも行けない
func (s OrderStatus) IsTerminal() bool {
	return len(orderTransitions[s]) == 0
}

type OrderSource string

const (
	OrderSourceCart   OrderSource = "cart"
	OrderSourceDirect OrderSource = "direct"
)

type Order struct {
	ID               int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID           int64           `gorm:"not null;index;uniqueIndex:ux_orders_user_idem,priority:1" json:"user_id"`
	Status           OrderStatus     `gorm:"type:varchar(20);not null;index" json:"status"`
	Source           OrderSource     `gorm:"type:varchar(10);not null" json:"source"`
	TotalAmount      decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total_amount"`
	PaymentReference *string         `gorm:"type:varchar(100);uniqueIndex" json:"payment_reference"`
	PaymentURL       string          `gorm:"type:varchar(500);not null;default:''" json:"payment_url,omitempty"`
	IdempotencyKey   string          `gorm:"type:varchar(255);not null;uniqueIndex:ux_orders_user_idem,priority:2" json:"-"`
	CreatedAt        time.Time       `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time       `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

// 参照が保存済みで、渡された値と一致するか
func (o Order) MatchesReference(ref string) bool {
	return o.PaymentReference != nil && *o.PaymentReference != "" && *o.PaymentReference == ref
}
