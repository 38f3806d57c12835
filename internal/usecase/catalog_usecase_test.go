package usecase_test

import (
	"context"
	"errors"
	"testing"

	"digistore/internal/domain/model"
	repo "digistore/internal/repository"
	"digistore/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type catalogDeps struct {
	products   *ProductRepoMock
	categories *CategoryRepoMock
	viewed     *RecentlyViewedRepoMock
	cache      *CacheMock
}

func newCatalogUC() (*usecase.CatalogUsecase, catalogDeps) {
	d := catalogDeps{
		products:   new(ProductRepoMock),
		categories: new(CategoryRepoMock),
		viewed:     new(RecentlyViewedRepoMock),
		cache:      new(CacheMock),
	}
	return usecase.NewCatalogUsecase(d.products, d.categories, d.viewed, d.cache, nopLog()), d
}

func TestCatalogUsecase_ListProducts_InvalidPage(t *testing.T) {
	uc, _ := newCatalogUC()

	_, err := uc.ListProducts(context.Background(), usecase.ListProductsInput{Page: -1})
	assertErrContains(t, err, "invalid page")

	_, err = uc.ListProducts(context.Background(), usecase.ListProductsInput{Page: 1, Limit: 1000})
	assertErrContains(t, err, "invalid limit")

	_, err = uc.ListProducts(context.Background(), usecase.ListProductsInput{Sort: "random"})
	assertErrContains(t, err, "invalid sort")
}

func TestCatalogUsecase_ListProducts_MissThenStore(t *testing.T) {
	uc, d := newCatalogUC()

	d.cache.On("Get", mock.Anything, mock.Anything, mock.Anything).Return(false)
	d.products.On("ListPublic", mock.Anything, repo.ProductListQuery{
		Page: 1, Limit: 12, Q: "go", CategorySlug: "ebooks",
	}).Return([]model.Product{product(1, "10.00")}, int64(1), nil).Once()
	d.cache.On("Set", mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()

	out, err := uc.ListProducts(context.Background(), usecase.ListProductsInput{Q: "  go ", Category: "ebooks"})

	require.NoError(t, err)
	assert.Equal(t, int64(1), out.Total)
	assert.Equal(t, 1, out.Page)
	assert.Equal(t, 12, out.Limit)
	d.products.AssertExpectations(t)
	d.cache.AssertExpectations(t)
}

func TestCatalogUsecase_ListProducts_HitSkipsRepository(t *testing.T) {
	uc, d := newCatalogUC()

	d.cache.On("Get", mock.Anything, mock.Anything, mock.Anything).Return(true)

	_, err := uc.ListProducts(context.Background(), usecase.ListProductsInput{})

	require.NoError(t, err)
	d.products.AssertNotCalled(t, "ListPublic", mock.Anything, mock.Anything)
}

func TestCatalogUsecase_GetProductBySlug_InactiveIsNotFound(t *testing.T) {
	uc, d := newCatalogUC()

	p := product(1, "10.00")
	p.IsActive = false
	d.products.On("FindBySlug", mock.Anything, "product-1").Return(p, nil)

	_, err := uc.GetProductBySlug(context.Background(), "product-1", 0)

	assert.True(t, errors.Is(err, usecase.ErrNotFound))
}

func TestCatalogUsecase_GetProductBySlug_Missing(t *testing.T) {
	uc, d := newCatalogUC()
	d.products.On("FindBySlug", mock.Anything, "nope").Return(model.Product{}, repo.ErrNotFound)

	_, err := uc.GetProductBySlug(context.Background(), "nope", 0)

	assertErrContains(t, err, "not found")
}

func TestCatalogUsecase_GetProductBySlug_TouchesRecentlyViewed(t *testing.T) {
	uc, d := newCatalogUC()

	catID := int64(3)
	p := digitalProduct(1, "0")
	p.CategoryID = &catID
	d.products.On("FindBySlug", mock.Anything, "product-1").Return(p, nil)
	d.products.On("ListRelated", mock.Anything, int64(3), int64(1), 4).Return([]model.Product{product(2, "5.00")}, nil)
	d.viewed.On("Touch", mock.Anything, int64(5), int64(1), mock.Anything).Return(errors.New("db down")).Once()

	out, err := uc.GetProductBySlug(context.Background(), "product-1", 5)

	//閲覧履歴の失敗で詳細は落とさない
	require.NoError(t, err)
	assert.True(t, out.IsFree)
	assert.True(t, out.IsDigital)
	assert.Len(t, out.Related, 1)
	d.viewed.AssertExpectations(t)
}

func TestCatalogUsecase_GetProductBySlug_AnonymousDoesNotTouch(t *testing.T) {
	uc, d := newCatalogUC()
	d.products.On("FindBySlug", mock.Anything, "product-1").Return(product(1, "10.00"), nil)

	_, err := uc.GetProductBySlug(context.Background(), "product-1", 0)

	require.NoError(t, err)
	d.viewed.AssertNotCalled(t, "Touch", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCatalogUsecase_Featured(t *testing.T) {
	uc, d := newCatalogUC()

	d.cache.On("Get", mock.Anything, mock.Anything, mock.Anything).Return(false)
	d.cache.On("Set", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	d.products.On("ListPublic", mock.Anything, mock.MatchedBy(func(q repo.ProductListQuery) bool {
		return q.FeaturedOnly && q.Limit == 4
	})).Return([]model.Product{product(1, "1.00")}, int64(1), nil)

	items, err := uc.Featured(context.Background(), 4)

	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestCatalogUsecase_ListCategories_DBError(t *testing.T) {
	uc, d := newCatalogUC()

	d.cache.On("Get", mock.Anything, "categories", mock.Anything).Return(false)
	d.categories.On("List", mock.Anything).Return(nil, errors.New("boom"))

	_, err := uc.ListCategories(context.Background())

	assertErrContains(t, err, "db error")
	d.cache.AssertNotCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything)
}
