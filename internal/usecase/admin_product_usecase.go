package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"digistore/internal/domain/model"
	repo "digistore/internal/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// デジタル商品ファイルの保存先
type FileUploader interface {
	Put(ctx context.Context, path string, r io.Reader) error
}

// 管理者によるカタログ更新。更新のたびにカタログキャッシュを無効化する
type AdminProductUsecase struct {
	products   repo.ProductRepository
	categories repo.CategoryRepository
	auditRepo  repo.AuditLogRepository
	files      FileUploader
	cache      CatalogCache
	log        *zap.Logger
}

func NewAdminProductUsecase(
	products repo.ProductRepository,
	categories repo.CategoryRepository,
	auditRepo repo.AuditLogRepository,
	files FileUploader,
	cache CatalogCache,
	log *zap.Logger,
) *AdminProductUsecase {
	return &AdminProductUsecase{
		products:   products,
		categories: categories,
		auditRepo:  auditRepo,
		files:      files,
		cache:      cache,
		log:        log,
	}
}

type AdminCategoryInput struct {
	Name        string
	Description string
}

type AdminProductInput struct {
	Name                string
	Slug                string
	CategorySlug        string
	Price               string
	ShortDescription    string
	Description         string
	ImageKey            string
	ExternalDownloadURL string
	Featured            bool
	IsActive            bool
}

func (u *AdminProductUsecase) CreateCategory(ctx context.Context, adminUserID int64, in AdminCategoryInput) (model.Category, error) {
	if adminUserID <= 0 {
		return model.Category{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	name := strings.TrimSpace(in.Name)
	slug := model.Slugify(name)
	if name == "" || slug == "" {
		return model.Category{}, validationError("name required")
	}

	c, err := u.categories.Create(ctx, model.Category{
		Name:        name,
		Slug:        slug,
		Description: in.Description,
		CreatedAt:   time.Now(),
	})
	if err == repo.ErrDuplicate {
		return model.Category{}, newKindError(ErrConflict, http.StatusConflict, "category already exists")
	}
	if err != nil {
		return model.Category{}, dbError()
	}

	u.invalidate(ctx)
	return c, nil
}

func (u *AdminProductUsecase) AdminCreateProduct(ctx context.Context, adminUserID int64, in AdminProductInput) (model.Product, error) {
	if adminUserID <= 0 {
		return model.Product{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	p, err := u.buildProduct(ctx, in)
	if err != nil {
		return model.Product{}, err
	}

	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now

	created, err := u.products.Create(ctx, p)
	if err == repo.ErrDuplicate {
		return model.Product{}, newKindError(ErrConflict, http.StatusConflict, "slug already exists")
	}
	if err != nil {
		return model.Product{}, dbError()
	}

	u.audit(ctx, adminUserID, model.AuditActionUpsertProduct, created.ID, nil, &created)
	u.invalidate(ctx)
	return created, nil
}

func (u *AdminProductUsecase) AdminUpdateProduct(ctx context.Context, adminUserID int64, productID int64, in AdminProductInput) (model.Product, error) {
	if adminUserID <= 0 {
		return model.Product{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if productID <= 0 {
		return model.Product{}, validationError("invalid product id")
	}

	before, err := u.products.FindByID(ctx, productID)
	if err == repo.ErrNotFound {
		return model.Product{}, notFound()
	}
	if err != nil {
		return model.Product{}, dbError()
	}

	p, err := u.buildProduct(ctx, in)
	if err != nil {
		return model.Product{}, err
	}
	p.ID = productID
	//ファイルはアップロードAPIでだけ変える
	p.DigitalFileKey = before.DigitalFileKey
	p.CreatedAt = before.CreatedAt
	p.UpdatedAt = time.Now()

	err = u.products.Update(ctx, p)
	if err == repo.ErrNotFound {
		return model.Product{}, notFound()
	}
	if err == repo.ErrDuplicate {
		return model.Product{}, newKindError(ErrConflict, http.StatusConflict, "slug already exists")
	}
	if err != nil {
		return model.Product{}, dbError()
	}

	u.audit(ctx, adminUserID, model.AuditActionUpsertProduct, productID, &before, &p)
	u.invalidate(ctx)
	return p, nil
}

func (u *AdminProductUsecase) AdminDeleteProduct(ctx context.Context, adminUserID int64, productID int64) error {
	if adminUserID <= 0 {
		return NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if productID <= 0 {
		return validationError("invalid product id")
	}

	before, err := u.products.FindByID(ctx, productID)
	if err == repo.ErrNotFound {
		return notFound()
	}
	if err != nil {
		return dbError()
	}

	err = u.products.SoftDelete(ctx, productID)
	if err == repo.ErrNotFound {
		return notFound()
	}
	if err != nil {
		return dbError()
	}

	u.audit(ctx, adminUserID, model.AuditActionDeleteProduct, productID, &before, nil)
	u.invalidate(ctx)
	return nil
}

// 商品ファイルを products/<id>/<ファイル名> に保存してキーを更新する
func (u *AdminProductUsecase) UploadDigitalFile(ctx context.Context, adminUserID int64, productID int64, filename string, r io.Reader) (model.Product, error) {
	if adminUserID <= 0 {
		return model.Product{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	name := path.Base(strings.ReplaceAll(strings.TrimSpace(filename), "\\", "/"))
	if name == "" || name == "." || name == "/" || name == ".." {
		return model.Product{}, validationError("invalid file name")
	}

	p, err := u.products.FindByID(ctx, productID)
	if err == repo.ErrNotFound {
		return model.Product{}, notFound()
	}
	if err != nil {
		return model.Product{}, dbError()
	}

	key := fmt.Sprintf("products/%d/%s", p.ID, name)
	if err := u.files.Put(ctx, key, r); err != nil {
		u.log.Error("digital file upload failed", zap.Int64("product_id", p.ID), zap.Error(err))
		return model.Product{}, NewHTTPError(http.StatusInternalServerError, "storage error")
	}

	before := p
	p.DigitalFileKey = key
	p.UpdatedAt = time.Now()
	if err := u.products.Update(ctx, p); err != nil {
		return model.Product{}, dbError()
	}

	u.audit(ctx, adminUserID, model.AuditActionUpsertProduct, p.ID, &before, &p)
	u.invalidate(ctx)
	return p, nil
}

func (u *AdminProductUsecase) buildProduct(ctx context.Context, in AdminProductInput) (model.Product, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return model.Product{}, validationError("name required")
	}
	slug := model.Slugify(in.Slug)
	if slug == "" {
		slug = model.Slugify(name)
	}
	if slug == "" {
		return model.Product{}, validationError("invalid slug")
	}

	price, err := decimal.NewFromString(strings.TrimSpace(in.Price))
	if err != nil {
		return model.Product{}, validationError("invalid price")
	}
	if price.IsNegative() {
		return model.Product{}, validationError("price must be >= 0")
	}

	ext := strings.TrimSpace(in.ExternalDownloadURL)
	if ext != "" {
		pu, err := url.Parse(ext)
		if err != nil || (pu.Scheme != "http" && pu.Scheme != "https") || pu.Host == "" {
			return model.Product{}, validationError("invalid external_download_url")
		}
	}

	p := model.Product{
		Name:                name,
		Slug:                slug,
		Price:               price.Round(2),
		ShortDescription:    strings.TrimSpace(in.ShortDescription),
		Description:         in.Description,
		ImageKey:            strings.TrimSpace(in.ImageKey),
		ExternalDownloadURL: ext,
		Featured:            in.Featured,
		IsActive:            in.IsActive,
	}

	if cs := strings.TrimSpace(in.CategorySlug); cs != "" {
		c, err := u.categories.FindBySlug(ctx, cs)
		if err == repo.ErrNotFound {
			return model.Product{}, validationError("unknown category")
		}
		if err != nil {
			return model.Product{}, dbError()
		}
		p.CategoryID = &c.ID
	}
	return p, nil
}

// 監査ログは失敗しても本処理は戻さない（ログに残す）
func (u *AdminProductUsecase) audit(ctx context.Context, actor int64, action model.AuditAction, productID int64, before *model.Product, after *model.Product) {
	if err := u.auditRepo.Create(ctx, model.AuditLog{
		ActorUserID:  actor,
		Action:       action,
		ResourceType: model.AuditResourceProduct,
		ResourceID:   productID,
		BeforeJSON:   productJSON(before),
		AfterJSON:    productJSON(after),
		CreatedAt:    time.Now(),
	}); err != nil {
		u.log.Error("audit log failed", zap.String("action", string(action)), zap.Int64("product_id", productID), zap.Error(err))
	}
}

func (u *AdminProductUsecase) invalidate(ctx context.Context) {
	if err := u.cache.Invalidate(ctx); err != nil {
		u.log.Warn("catalog cache invalidate failed", zap.Error(err))
	}
}

func productJSON(p *model.Product) string {
	if p == nil {
		return ""
	}
	b, err := json.Marshal(p)
	if err != nil {
		return ""
	}
	return string(b)
}
