package usecase

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"digistore/internal/domain/model"
	"digistore/internal/metrics"
	repo "digistore/internal/repository"

	"go.uber.org/zap"
)

const (
	defaultPageLimit  = 12
	maxPageLimit      = 100
	relatedLimit      = 4
	homeSectionLimit  = 8
	recentlyViewedMax = 10
)

// カタログ読み取りのキャッシュ（redis か noop）
type CatalogCache interface {
	Get(ctx context.Context, name string, dest interface{}) bool
	Set(ctx context.Context, name string, value interface{}) error
	Invalidate(ctx context.Context) error
}

type CatalogUsecase struct {
	products   repo.ProductRepository
	categories repo.CategoryRepository
	viewed     repo.RecentlyViewedRepository
	cache      CatalogCache
	log        *zap.Logger
}

func NewCatalogUsecase(
	products repo.ProductRepository,
	categories repo.CategoryRepository,
	viewed repo.RecentlyViewedRepository,
	cache CatalogCache,
	log *zap.Logger,
) *CatalogUsecase {
	return &CatalogUsecase{
		products:   products,
		categories: categories,
		viewed:     viewed,
		cache:      cache,
		log:        log,
	}
}

type ListProductsInput struct {
	Page     int
	Limit    int
	Q        string
	Category string
	Featured bool
	Free     bool
	Sort     string
}

type ProductListOutput struct {
	Items []model.Product `json:"items"`
	Total int64           `json:"total"`
	Page  int             `json:"page"`
	Limit int             `json:"limit"`
}

type ProductDetailOutput struct {
	Product   model.Product   `json:"product"`
	Related   []model.Product `json:"related"`
	IsFree    bool            `json:"is_free"`
	IsDigital bool            `json:"is_digital"`
}

type HomeOutput struct {
	Featured []model.Product `json:"featured"`
	Latest   []model.Product `json:"latest"`
	Free     []model.Product `json:"free"`
}

func (u *CatalogUsecase) ListProducts(ctx context.Context, in ListProductsInput) (ProductListOutput, error) {
	if in.Page == 0 {
		in.Page = 1
	}
	if in.Limit == 0 {
		in.Limit = defaultPageLimit
	}
	if in.Page < 1 {
		return ProductListOutput{}, validationError("invalid page")
	}
	if in.Limit < 1 || in.Limit > maxPageLimit {
		return ProductListOutput{}, validationError("invalid limit")
	}
	switch in.Sort {
	case "", "new", "price_asc", "price_desc", "name":
	default:
		return ProductListOutput{}, validationError("invalid sort")
	}
	in.Q = strings.TrimSpace(in.Q)
	in.Category = strings.TrimSpace(in.Category)

	key := fmt.Sprintf("products:p%d:l%d:q=%s:c=%s:f%t:z%t:s=%s",
		in.Page, in.Limit, in.Q, in.Category, in.Featured, in.Free, in.Sort)

	var out ProductListOutput
	if u.cacheGet(ctx, key, &out) {
		return out, nil
	}

	items, total, err := u.products.ListPublic(ctx, repo.ProductListQuery{
		Page:         in.Page,
		Limit:        in.Limit,
		Q:            in.Q,
		CategorySlug: in.Category,
		FeaturedOnly: in.Featured,
		FreeOnly:     in.Free,
		Sort:         in.Sort,
	})
	if err != nil {
		return ProductListOutput{}, dbError()
	}

	out = ProductListOutput{Items: items, Total: total, Page: in.Page, Limit: in.Limit}
	u.cacheSet(ctx, key, out)
	return out, nil
}

// 詳細は公開中のみ。ログイン中なら閲覧履歴を更新する（失敗しても表示は続ける）
func (u *CatalogUsecase) GetProductBySlug(ctx context.Context, slug string, viewerID int64) (ProductDetailOutput, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return ProductDetailOutput{}, notFound()
	}

	p, err := u.products.FindBySlug(ctx, slug)
	if err == repo.ErrNotFound {
		return ProductDetailOutput{}, notFound()
	}
	if err != nil {
		return ProductDetailOutput{}, dbError()
	}
	if !p.IsActive {
		return ProductDetailOutput{}, notFound()
	}

	related := []model.Product{}
	if p.CategoryID != nil {
		related, err = u.products.ListRelated(ctx, *p.CategoryID, p.ID, relatedLimit)
		if err != nil {
			return ProductDetailOutput{}, dbError()
		}
	}

	if viewerID > 0 {
		if err := u.viewed.Touch(ctx, viewerID, p.ID, time.Now()); err != nil {
			u.log.Warn("recently viewed touch failed",
				zap.Int64("user_id", viewerID), zap.Int64("product_id", p.ID), zap.Error(err))
		}
	}

	return ProductDetailOutput{
		Product:   p,
		Related:   related,
		IsFree:    p.IsFree(),
		IsDigital: p.IsDigital(),
	}, nil
}

func (u *CatalogUsecase) ListCategories(ctx context.Context) ([]model.Category, error) {
	var out []model.Category
	if u.cacheGet(ctx, "categories", &out) {
		return out, nil
	}

	out, err := u.categories.List(ctx)
	if err != nil {
		return []model.Category{}, dbError()
	}
	u.cacheSet(ctx, "categories", out)
	return out, nil
}

func (u *CatalogUsecase) Featured(ctx context.Context, limit int) ([]model.Product, error) {
	if limit < 1 || limit > maxPageLimit {
		return []model.Product{}, validationError("invalid limit")
	}
	out, err := u.ListProducts(ctx, ListProductsInput{Page: 1, Limit: limit, Featured: true})
	if err != nil {
		return []model.Product{}, err
	}
	return out.Items, nil
}

// トップページ用: おすすめ・新着・無料
func (u *CatalogUsecase) Home(ctx context.Context) (HomeOutput, error) {
	featured, err := u.Featured(ctx, homeSectionLimit)
	if err != nil {
		return HomeOutput{}, err
	}
	latest, err := u.ListProducts(ctx, ListProductsInput{Page: 1, Limit: homeSectionLimit, Sort: "new"})
	if err != nil {
		return HomeOutput{}, err
	}
	free, err := u.ListProducts(ctx, ListProductsInput{Page: 1, Limit: homeSectionLimit, Free: true})
	if err != nil {
		return HomeOutput{}, err
	}
	return HomeOutput{Featured: featured, Latest: latest.Items, Free: free.Items}, nil
}

func (u *CatalogUsecase) RecentlyViewed(ctx context.Context, userID int64) ([]model.Product, error) {
	if userID <= 0 {
		return []model.Product{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	items, err := u.viewed.ListProducts(ctx, userID, recentlyViewedMax)
	if err != nil {
		return []model.Product{}, dbError()
	}
	return items, nil
}

// sitemap.xml 用の公開商品
func (u *CatalogUsecase) SitemapProducts(ctx context.Context) ([]model.Product, error) {
	items, err := u.products.ListActive(ctx)
	if err != nil {
		return []model.Product{}, dbError()
	}
	return items, nil
}

func (u *CatalogUsecase) cacheGet(ctx context.Context, key string, dest interface{}) bool {
	if u.cache.Get(ctx, key, dest) {
		metrics.CacheHits.Inc()
		return true
	}
	metrics.CacheMisses.Inc()
	return false
}

func (u *CatalogUsecase) cacheSet(ctx context.Context, key string, value interface{}) {
	if err := u.cache.Set(ctx, key, value); err != nil {
		u.log.Debug("catalog cache set failed", zap.String("key", key), zap.Error(err))
	}
}
