package repository

import (
	"context"
	"errors"

	"digistore/internal/domain/model"
	repo "digistore/internal/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	defaultOrderPageSize = 50
	maxOrderPageSize     = 100
)

type OrderGormRepository struct {
	db *gorm.DB
}

func NewOrderGormRepository(db *gorm.DB) *OrderGormRepository {
	return &OrderGormRepository{db: db}
}

func (r *OrderGormRepository) Create(ctx context.Context, order model.Order) (int64, error) {
	if err := r.db.WithContext(ctx).Create(&order).Error; err != nil {
		return 0, mapWriteErr(err)
	}
	return order.ID, nil
}

func (r *OrderGormRepository) FindByID(ctx context.Context, orderID int64) (model.Order, error) {
	return first[model.Order](r.db.WithContext(ctx).Where("id = ?", orderID))
}

func (r *OrderGormRepository) FindForUpdate(ctx context.Context, orderID int64) (model.Order, error) {
	q := r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"})
	return first[model.Order](q.Where("id = ?", orderID))
}

func (r *OrderGormRepository) FindByIdempotencyKey(ctx context.Context, userID int64, key string) (model.Order, bool, error) {
	o, err := first[model.Order](r.db.WithContext(ctx).Where("user_id = ? AND idempotency_key = ?", userID, key))
	switch {
	case errors.Is(err, repo.ErrNotFound):
		return model.Order{}, false, nil
	case err != nil:
		return model.Order{}, false, err
	}
	return o, true, nil
}

func (r *OrderGormRepository) ListByUserID(ctx context.Context, userID int64, page int, limit int) ([]model.Order, int64, error) {
	return r.Search(ctx, repo.OrderFilter{Page: page, Limit: limit, UserID: &userID})
}

func (r *OrderGormRepository) ListByUserAndProduct(ctx context.Context, userID int64, productID int64) ([]model.Order, error) {
	bought := r.db.Table("order_items").Select("1").
		Where("order_items.order_id = orders.id AND order_items.product_id = ?", productID)

	orders := []model.Order{}
	err := r.db.WithContext(ctx).
		Where("orders.user_id = ?", userID).
		Where("EXISTS (?)", bought).
		Order("orders.id DESC").
		Find(&orders).Error
	return orders, err
}

func (r *OrderGormRepository) Search(ctx context.Context, f repo.OrderFilter) ([]model.Order, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.Order{})
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.UserID != nil {
		q = q.Where("user_id = ?", *f.UserID)
	}
	if f.From != nil {
		q = q.Where("created_at >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("created_at <= ?", *f.To)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page, size := pageWindow(f.Page, f.Limit)
	orders := []model.Order{}
	if err := q.Order("id DESC").Limit(size).Offset((page - 1) * size).Find(&orders).Error; err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func (r *OrderGormRepository) UpdateStatus(ctx context.Context, orderID int64, status model.OrderStatus) error {
	return r.updateOne(ctx, orderID, map[string]any{"status": status})
}

func (r *OrderGormRepository) SetPaymentIntent(ctx context.Context, orderID int64, intent model.PaymentIntent) error {
	return r.updateOne(ctx, orderID, map[string]any{
		"payment_reference": intent.Reference,
		"payment_url":       intent.PaymentURL,
	})
}

// 1行だけ更新する。0行なら ErrNotFound
func (r *OrderGormRepository) updateOne(ctx context.Context, orderID int64, cols map[string]any) error {
	return affectedOne(r.db.WithContext(ctx).Model(&model.Order{}).Where("id = ?", orderID).Updates(cols))
}

// page は1始まり。limit は範囲外なら既定値
func pageWindow(page int, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > maxOrderPageSize {
		limit = defaultOrderPageSize
	}
	return page, limit
}
