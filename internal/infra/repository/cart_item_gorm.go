package repository

import (
	"context"
	"errors"
	"time"

	"digistore/internal/domain/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CartItemGormRepository struct {
	db *gorm.DB
}

// DI
func NewCartItemGormRepository(db *gorm.DB) *CartItemGormRepository {
	return &CartItemGormRepository{db: db}
}

func (r *CartItemGormRepository) ownerScope(owner model.Owner) func(*gorm.DB) *gorm.DB {
	return func(tx *gorm.DB) *gorm.DB {
		return tx.Where("owner_kind = ? AND owner_ref = ?", owner.Kind(), owner.Ref())
	}
}

// カート明細を一覧取得
func (r *CartItemGormRepository) ListByOwner(ctx context.Context, owner model.Owner) ([]model.CartItem, error) {
	var items []model.CartItem
	if err := r.db.WithContext(ctx).
		Scopes(r.ownerScope(owner)).
		Order("id asc").
		Find(&items).Error; err != nil {
		return []model.CartItem{}, err
	}
	return items, nil
}

// 行ロックを取ってから一覧（マージ・チェックアウト用）
func (r *CartItemGormRepository) ListByOwnerForUpdate(ctx context.Context, owner model.Owner) ([]model.CartItem, error) {
	var items []model.CartItem
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Scopes(r.ownerScope(owner)).
		Order("id asc").
		Find(&items).Error; err != nil {
		return []model.CartItem{}, err
	}
	return items, nil
}

// 同一商品は数量加算（unique(owner_kind, owner_ref, product_id) に乗せた upsert）
func (r *CartItemGormRepository) AddQuantity(ctx context.Context, owner model.Owner, productID int64, qty int64) error {
	if qty <= 0 {
		return errors.New("invalid quantity")
	}

	now := time.Now()
	item := model.CartItem{
		OwnerKind: owner.Kind(),
		OwnerRef:  owner.Ref(),
		ProductID: productID,
		Quantity:  qty,
		CreatedAt: now,
		UpdatedAt: now,
	}

	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "owner_kind"}, {Name: "owner_ref"}, {Name: "product_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"quantity":   gorm.Expr("cart_items.quantity + excluded.quantity"),
			"updated_at": now,
		}),
	}).Create(&item).Error
}

// 明細を1行削除（無ければ何もしない）
func (r *CartItemGormRepository) Remove(ctx context.Context, owner model.Owner, productID int64) error {
	return r.db.WithContext(ctx).
		Scopes(r.ownerScope(owner)).
		Where("product_id = ?", productID).
		Delete(&model.CartItem{}).Error
}

// owner の明細を全削除
func (r *CartItemGormRepository) DeleteByOwner(ctx context.Context, owner model.Owner) error {
	return r.db.WithContext(ctx).
		Scopes(r.ownerScope(owner)).
		Delete(&model.CartItem{}).Error
}
