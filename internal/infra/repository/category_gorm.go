package repository

import (
	"context"

	"digistore/internal/domain/model"

	"gorm.io/gorm"
)

type CategoryGormRepository struct {
	db *gorm.DB
}

func NewCategoryGormRepository(db *gorm.DB) *CategoryGormRepository {
	return &CategoryGormRepository{db: db}
}

// 名前順
func (r *CategoryGormRepository) List(ctx context.Context) ([]model.Category, error) {
	cats := []model.Category{}
	err := r.db.WithContext(ctx).Order("name").Find(&cats).Error
	return cats, err
}

func (r *CategoryGormRepository) FindBySlug(ctx context.Context, slug string) (model.Category, error) {
	return first[model.Category](r.db.WithContext(ctx).Where("slug = ?", slug))
}

func (r *CategoryGormRepository) Create(ctx context.Context, c model.Category) (model.Category, error) {
	if err := r.db.WithContext(ctx).Create(&c).Error; err != nil {
		return model.Category{}, mapWriteErr(err)
	}
	return c, nil
}
