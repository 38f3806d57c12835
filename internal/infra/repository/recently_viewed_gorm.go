package repository

import (
	"context"
	"time"

	"digistore/internal/domain/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type RecentlyViewedGormRepository struct {
	db *gorm.DB
}

func NewRecentlyViewedGormRepository(db *gorm.DB) *RecentlyViewedGormRepository {
	return &RecentlyViewedGormRepository{db: db}
}

// 閲覧時刻だけ更新（unique(user_id, product_id)）
func (r *RecentlyViewedGormRepository) Touch(ctx context.Context, userID int64, productID int64, at time.Time) error {
	rv := model.RecentlyViewed{UserID: userID, ProductID: productID, ViewedAt: at}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "product_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"viewed_at"}),
	}).Create(&rv).Error
}

func (r *RecentlyViewedGormRepository) ListProducts(ctx context.Context, userID int64, limit int) ([]model.Product, error) {
	var products []model.Product
	err := r.db.WithContext(ctx).
		Joins("JOIN recently_viewed rv ON rv.product_id = products.id").
		Where("rv.user_id = ? AND products.is_active = ?", userID, true).
		Order("rv.viewed_at desc").
		Limit(limit).
		Find(&products).Error
	if err != nil {
		return []model.Product{}, err
	}
	return products, nil
}
