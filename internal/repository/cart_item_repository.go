package repository

import (
	"context"

	"digistore/internal/domain/model"
)

// owner単位のカート明細。明細行そのものがカート。
type CartItemRepository interface {
	ListByOwner(ctx context.Context, owner model.Owner) ([]model.CartItem, error)
	// SELECT ... FOR UPDATE（トランザクション内で使う）
	ListByOwnerForUpdate(ctx context.Context, owner model.Owner) ([]model.CartItem, error)
	// 無ければ作成、あれば数量を加算
	AddQuantity(ctx context.Context, owner model.Owner, productID int64, qty int64) error
	// 無ければ何もしない
	Remove(ctx context.Context, owner model.Owner, productID int64) error
	DeleteByOwner(ctx context.Context, owner model.Owner) error
}
