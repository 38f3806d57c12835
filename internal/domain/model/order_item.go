package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderItem struct {
	ID                  int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID             int64           `gorm:"not null;index" json:"order_id"`
	ProductID           int64           `gorm:"not null;index" json:"product_id"`
	ProductNameSnapshot string          `gorm:"type:varchar(200);not null" json:"product_name_snapshot"`
	UnitPriceSnapshot   decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"unit_price_snapshot"`
	Quantity            int64           `gorm:"not null" json:"quantity"`
	CreatedAt           time.Time       `gorm:"not null;autoCreateTime" json:"created_at"`
}

func (i OrderItem) LineTotal() decimal.Decimal {
	return i.UnitPriceSnapshot.Mul(decimal.NewFromInt(i.Quantity))
}

// 明細の合計（注文作成時に一度だけ計算して保存する）
func SumOrderItems(items []OrderItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.LineTotal())
	}
	return total
}
