package repository

import (
	"context"
	"strings"

	"digistore/internal/domain/model"
	repo "digistore/internal/repository"

	"gorm.io/gorm"
)

type ProductGormRepository struct {
	db *gorm.DB
}

// DI
func NewProductGormRepository(db *gorm.DB) *ProductGormRepository {
	return &ProductGormRepository{db: db}
}

// 公開商品のみを、カテゴリ/検索/ソート/ページング付きで返す。
func (r *ProductGormRepository) ListPublic(ctx context.Context, q repo.ProductListQuery) ([]model.Product, int64, error) {
	var products []model.Product
	var total int64

	tx := r.db.WithContext(ctx).Model(&model.Product{}).
		Where("products.is_active = ?", true)

	//カテゴリslugで絞り込み
	if slug := strings.TrimSpace(q.CategorySlug); slug != "" {
		tx = tx.Joins("JOIN categories ON categories.id = products.category_id").
			Where("categories.slug = ?", slug)
	}

	// q は name / description を対象（postgres/sqlite 両方で動くように LOWER + LIKE）
	if s := strings.TrimSpace(q.Q); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		tx = tx.Where("(LOWER(products.name) LIKE ? OR LOWER(products.description) LIKE ?)", like, like)
	}

	if q.FeaturedOnly {
		tx = tx.Where("products.featured = ?", true)
	}
	if q.FreeOnly {
		tx = tx.Where("products.price = 0")
	}

	//total（件数）
	if err := tx.Count(&total).Error; err != nil {
		return []model.Product{}, 0, err
	}

	//sort
	switch q.Sort {
	case "price_asc":
		tx = tx.Order("products.price asc").Order("products.id asc")
	case "price_desc":
		tx = tx.Order("products.price desc").Order("products.id desc")
	case "name":
		tx = tx.Order("products.name asc").Order("products.id asc")
	default:
		tx = tx.Order("products.created_at desc").Order("products.id desc")
	}

	offset := (q.Page - 1) * q.Limit
	if err := tx.Preload("Category").Offset(offset).Limit(q.Limit).Find(&products).Error; err != nil {
		return []model.Product{}, 0, err
	}

	return products, total, nil
}

// 同じカテゴリの公開商品（自分は除く）
func (r *ProductGormRepository) ListRelated(ctx context.Context, categoryID int64, excludeID int64, limit int) ([]model.Product, error) {
	var products []model.Product
	err := r.db.WithContext(ctx).
		Where("category_id = ? AND id <> ? AND is_active = ?", categoryID, excludeID, true).
		Order("created_at desc").
		Limit(limit).
		Find(&products).Error
	if err != nil {
		return []model.Product{}, err
	}
	return products, nil
}

// sitemap用
func (r *ProductGormRepository) ListActive(ctx context.Context) ([]model.Product, error) {
	var products []model.Product
	if err := r.db.WithContext(ctx).Where("is_active = ?", true).Order("id asc").Find(&products).Error; err != nil {
		return []model.Product{}, err
	}
	return products, nil
}

// 論理削除済みは見えない。Category は Preload
func (r *ProductGormRepository) FindByID(ctx context.Context, id int64) (model.Product, error) {
	return first[model.Product](r.withCategory(ctx).Where("id = ?", id))
}

func (r *ProductGormRepository) FindByIDIncludingDeleted(ctx context.Context, id int64) (model.Product, error) {
	return first[model.Product](r.withCategory(ctx).Unscoped().Where("id = ?", id))
}

func (r *ProductGormRepository) FindBySlug(ctx context.Context, slug string) (model.Product, error) {
	return first[model.Product](r.withCategory(ctx).Where("slug = ?", slug))
}

func (r *ProductGormRepository) withCategory(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Preload("Category")
}

// slug 重複は ErrDuplicate
func (r *ProductGormRepository) Create(ctx context.Context, p model.Product) (model.Product, error) {
	if err := r.db.WithContext(ctx).Omit("Category").Create(&p).Error; err != nil {
		return model.Product{}, mapWriteErr(err)
	}
	return p, nil
}

// false/空文字も書くので map で渡す
func (r *ProductGormRepository) Update(ctx context.Context, p model.Product) error {
	res := r.db.WithContext(ctx).Model(&model.Product{}).Where("id = ?", p.ID).Updates(map[string]any{
		"name":                  p.Name,
		"slug":                  p.Slug,
		"category_id":           p.CategoryID,
		"price":                 p.Price,
		"short_description":     p.ShortDescription,
		"description":           p.Description,
		"image_key":             p.ImageKey,
		"digital_file_key":      p.DigitalFileKey,
		"external_download_url": p.ExternalDownloadURL,
		"featured":              p.Featured,
		"is_active":             p.IsActive,
	})
	return affectedOne(res)
}

// deleted_at を立てるだけ。注文明細のスナップショットは残る
func (r *ProductGormRepository) SoftDelete(ctx context.Context, id int64) error {
	return affectedOne(r.db.WithContext(ctx).Delete(&model.Product{}, id))
}
