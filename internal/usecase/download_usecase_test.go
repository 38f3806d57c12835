package usecase_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"digistore/internal/domain/model"
	"digistore/internal/infra/storage"
	"digistore/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func digitalProduct(id int64, price string) model.Product {
	p := product(id, price)
	p.DigitalFileKey = "products/1/guide.pdf"
	return p
}

func TestCanDownload(t *testing.T) {
	p := digitalProduct(1, "10.00")
	paid := model.Order{ID: 9, Status: model.OrderStatusPaid}
	items := []model.OrderItem{{OrderID: 9, ProductID: 1, Quantity: 1}}

	assert.NoError(t, usecase.CanDownload(paid, items, p))

	pending := paid
	pending.Status = model.OrderStatusPending
	err := usecase.CanDownload(pending, items, p)
	assert.True(t, errors.Is(err, usecase.ErrAccessDenied))
	assertErrContains(t, err, "payment pending")

	refunded := paid
	refunded.Status = model.OrderStatusRefunded
	assert.True(t, errors.Is(usecase.CanDownload(refunded, items, p), usecase.ErrAccessDenied))

	other := product(2, "10.00")
	other.DigitalFileKey = "x.zip"
	assert.True(t, errors.Is(usecase.CanDownload(paid, items, other), usecase.ErrAccessDenied))

	//ファイルの無い商品は支払い済みでも不可
	plain := product(1, "10.00")
	assert.True(t, errors.Is(usecase.CanDownload(paid, items, plain), usecase.ErrAccessDenied))
}

type downloadDeps struct {
	products   *ProductRepoMock
	orders     *OrderRepoMock
	orderItems *OrderItemRepoMock
	files      *FileStoreMock
}

func newDownloadUC() (*usecase.DownloadUsecase, downloadDeps) {
	d := downloadDeps{
		products:   new(ProductRepoMock),
		orders:     new(OrderRepoMock),
		orderItems: new(OrderItemRepoMock),
		files:      new(FileStoreMock),
	}
	return usecase.NewDownloadUsecase(d.products, d.orders, d.orderItems, d.files, nopLog()), d
}

func TestDownloadUsecase_Prepare_PaidOrderStreamsFile(t *testing.T) {
	uc, d := newDownloadUC()
	p := digitalProduct(1, "10.00")

	d.products.On("FindByIDIncludingDeleted", mock.Anything, int64(1)).Return(p, nil)
	d.orders.On("ListByUserAndProduct", mock.Anything, int64(5), int64(1)).Return([]model.Order{{ID: 9, UserID: 5, Status: model.OrderStatusPaid}}, nil)
	d.orderItems.On("ListByOrderID", mock.Anything, int64(9)).Return([]model.OrderItem{{OrderID: 9, ProductID: 1}}, nil)
	d.files.On("Open", mock.Anything, "products/1/guide.pdf").Return(io.NopCloser(strings.NewReader("pdf")), nil)

	out, err := uc.Prepare(context.Background(), 5, 1)

	require.NoError(t, err)
	require.NotNil(t, out.File)
	defer out.File.Close()
	assert.Equal(t, "guide.pdf", out.FileName)
	b, _ := io.ReadAll(out.File)
	assert.Equal(t, "pdf", string(b))
}

func TestDownloadUsecase_Prepare_NoOrderIsDenied(t *testing.T) {
	uc, d := newDownloadUC()

	d.products.On("FindByIDIncludingDeleted", mock.Anything, int64(3)).Return(digitalProduct(3, "10.00"), nil)
	d.orders.On("ListByUserAndProduct", mock.Anything, int64(5), int64(3)).Return([]model.Order{}, nil)

	_, err := uc.Prepare(context.Background(), 5, 3)

	assert.True(t, errors.Is(err, usecase.ErrAccessDenied))
	d.files.AssertNotCalled(t, "Open", mock.Anything, mock.Anything)
}

func TestDownloadUsecase_Prepare_PendingOrderReportsPending(t *testing.T) {
	uc, d := newDownloadUC()

	d.products.On("FindByIDIncludingDeleted", mock.Anything, int64(1)).Return(digitalProduct(1, "10.00"), nil)
	d.orders.On("ListByUserAndProduct", mock.Anything, int64(5), int64(1)).Return([]model.Order{
		{ID: 11, Status: model.OrderStatusFailed},
		{ID: 10, Status: model.OrderStatusPending},
	}, nil)
	d.orderItems.On("ListByOrderID", mock.Anything, mock.Anything).Return([]model.OrderItem{{OrderID: 10, ProductID: 1}}, nil)

	_, err := uc.Prepare(context.Background(), 5, 1)

	assertErrContains(t, err, "payment pending")
}

func TestDownloadUsecase_Prepare_FreeProductNeedsNoOrder(t *testing.T) {
	uc, d := newDownloadUC()

	d.products.On("FindByIDIncludingDeleted", mock.Anything, int64(4)).Return(digitalProduct(4, "0"), nil)
	d.files.On("Open", mock.Anything, mock.Anything).Return(io.NopCloser(strings.NewReader("free")), nil)

	out, err := uc.Prepare(context.Background(), 5, 4)

	require.NoError(t, err)
	out.File.Close()
	d.orders.AssertNotCalled(t, "ListByUserAndProduct", mock.Anything, mock.Anything, mock.Anything)
}

func TestDownloadUsecase_Prepare_RetiredProductStillDownloadableAfterPurchase(t *testing.T) {
	uc, d := newDownloadUC()

	p := digitalProduct(1, "10.00")
	p.IsActive = false
	p.DeletedAt = gorm.DeletedAt{Time: time.Now(), Valid: true}
	d.products.On("FindByIDIncludingDeleted", mock.Anything, int64(1)).Return(p, nil)
	d.orders.On("ListByUserAndProduct", mock.Anything, int64(5), int64(1)).Return([]model.Order{{ID: 9, UserID: 5, Status: model.OrderStatusPaid}}, nil)
	d.orderItems.On("ListByOrderID", mock.Anything, int64(9)).Return([]model.OrderItem{{OrderID: 9, ProductID: 1}}, nil)
	d.files.On("Open", mock.Anything, "products/1/guide.pdf").Return(io.NopCloser(strings.NewReader("pdf")), nil)

	out, err := uc.Prepare(context.Background(), 5, 1)

	require.NoError(t, err)
	out.File.Close()
}

func TestDownloadUsecase_Prepare_RetiredFreeProductIsNotFound(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(p *model.Product)
	}{
		{name: "inactive", mutate: func(p *model.Product) { p.IsActive = false }},
		{name: "deleted", mutate: func(p *model.Product) { p.DeletedAt = gorm.DeletedAt{Time: time.Now(), Valid: true} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uc, d := newDownloadUC()
			p := digitalProduct(4, "0")
			tt.mutate(&p)
			d.products.On("FindByIDIncludingDeleted", mock.Anything, int64(4)).Return(p, nil)

			_, err := uc.Prepare(context.Background(), 5, 4)

			assert.True(t, errors.Is(err, usecase.ErrNotFound))
			d.files.AssertNotCalled(t, "Open", mock.Anything, mock.Anything)
		})
	}
}

func TestDownloadUsecase_Prepare_ExternalURLRedirects(t *testing.T) {
	uc, d := newDownloadUC()

	p := product(6, "0")
	p.ExternalDownloadURL = "https://cdn.example.com/pack.zip"
	d.products.On("FindByIDIncludingDeleted", mock.Anything, int64(6)).Return(p, nil)

	out, err := uc.Prepare(context.Background(), 5, 6)

	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/pack.zip", out.RedirectURL)
	assert.Nil(t, out.File)
}

func TestDownloadUsecase_Prepare_NonDigitalDenied(t *testing.T) {
	uc, d := newDownloadUC()

	d.products.On("FindByIDIncludingDeleted", mock.Anything, int64(7)).Return(product(7, "10.00"), nil)

	_, err := uc.Prepare(context.Background(), 5, 7)

	assert.True(t, errors.Is(err, usecase.ErrAccessDenied))
}

func TestDownloadUsecase_Prepare_MissingFileIsNotFound(t *testing.T) {
	uc, d := newDownloadUC()

	d.products.On("FindByIDIncludingDeleted", mock.Anything, int64(4)).Return(digitalProduct(4, "0"), nil)
	d.files.On("Open", mock.Anything, mock.Anything).Return(nil, storage.ErrNotExist)

	_, err := uc.Prepare(context.Background(), 5, 4)

	assert.True(t, errors.Is(err, usecase.ErrNotFound))
}

func TestDownloadUsecase_Prepare_AnonymousIsUnauthorized(t *testing.T) {
	uc, d := newDownloadUC()

	_, err := uc.Prepare(context.Background(), 0, 1)

	assert.True(t, errors.Is(err, usecase.ErrUnauthorized))
	d.products.AssertNotCalled(t, "FindByIDIncludingDeleted", mock.Anything, mock.Anything)
}
