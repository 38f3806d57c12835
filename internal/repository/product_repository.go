package repository

import (
	"context"

	"digistore/internal/domain/model"
)

// 一覧検索
type ProductListQuery struct {
	Page         int
	Limit        int
	Q            string
	CategorySlug string
	FeaturedOnly bool
	FreeOnly     bool
	Sort         string
}

// 商品の永続化（保存・取得）だけを約束。
type ProductRepository interface {
	ListPublic(ctx context.Context, q ProductListQuery) ([]model.Product, int64, error)
	ListRelated(ctx context.Context, categoryID int64, excludeID int64, limit int) ([]model.Product, error)
	ListActive(ctx context.Context) ([]model.Product, error)
	// 非公開も含めて取得する
	FindByID(ctx context.Context, id int64) (model.Product, error)
	// 論理削除済みも返す。購入者のダウンロード用
	FindByIDIncludingDeleted(ctx context.Context, id int64) (model.Product, error)
	FindBySlug(ctx context.Context, slug string) (model.Product, error)

	Create(ctx context.Context, p model.Product) (model.Product, error)
	Update(ctx context.Context, p model.Product) error
	SoftDelete(ctx context.Context, id int64) error
}
