package repository

import (
	"context"
	"time"

	"digistore/internal/domain/model"
)

// 管理画面の注文検索。ゼロ値の項目は絞り込まない
type OrderFilter struct {
	Page   int
	Limit  int
	Status string
	UserID *int64
	From   *time.Time
	To     *time.Time
}

type OrderRepository interface {
	Create(ctx context.Context, order model.Order) (int64, error)
	FindByID(ctx context.Context, orderID int64) (model.Order, error)
	// SELECT ... FOR UPDATE。tx の中で使う
	FindForUpdate(ctx context.Context, orderID int64) (model.Order, error)
	// 見つからなければ found=false
	FindByIdempotencyKey(ctx context.Context, userID int64, key string) (order model.Order, found bool, err error)

	ListByUserID(ctx context.Context, userID int64, page int, limit int) ([]model.Order, int64, error)
	// product を含む注文を新しい順に
	ListByUserAndProduct(ctx context.Context, userID int64, productID int64) ([]model.Order, error)
	Search(ctx context.Context, f OrderFilter) ([]model.Order, int64, error)

	UpdateStatus(ctx context.Context, orderID int64, status model.OrderStatus) error
	// reference が他の注文と被ったら ErrDuplicate
	SetPaymentIntent(ctx context.Context, orderID int64, intent model.PaymentIntent) error
}
