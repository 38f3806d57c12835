package repository

import (
	"context"

	"digistore/internal/domain/model"
)

// 明細は注文作成時に一度だけ書く
type OrderItemRepository interface {
	CreateBulk(ctx context.Context, orderID int64, items []model.OrderItem) error
	ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderItem, error)
}
