package usecase

import (
	"context"
	"errors"
	"io"
	"net/http"
	"path"

	"digistore/internal/domain/model"
	"digistore/internal/infra/storage"
	"digistore/internal/metrics"
	repo "digistore/internal/repository"

	"go.uber.org/zap"
)

// ダウンロードファイルの読み出し
type FileOpener interface {
	Open(ctx context.Context, path string) (io.ReadCloser, error)
}

type DownloadUsecase struct {
	products   repo.ProductRepository
	orders     repo.OrderRepository
	orderItems repo.OrderItemRepository
	files      FileOpener
	log        *zap.Logger
}

func NewDownloadUsecase(
	products repo.ProductRepository,
	orders repo.OrderRepository,
	orderItems repo.OrderItemRepository,
	files FileOpener,
	log *zap.Logger,
) *DownloadUsecase {
	return &DownloadUsecase{
		products:   products,
		orders:     orders,
		orderItems: orderItems,
		files:      files,
		log:        log,
	}
}

// RedirectURL か File のどちらか一方が入る。File は呼び出し側で Close する
type DownloadOutput struct {
	RedirectURL string
	File        io.ReadCloser
	FileName    string
}

// 支払い済み・明細に含まれる・デジタル商品、の全部を満たすときだけ nil
func CanDownload(order model.Order, items []model.OrderItem, product model.Product) error {
	if !product.IsDigital() {
		return accessDenied("product has no downloadable file")
	}
	if order.Status != model.OrderStatusPaid {
		if order.Status == model.OrderStatusPending {
			return accessDenied("payment pending")
		}
		return accessDenied("order is not paid")
	}
	for _, it := range items {
		if it.OrderID == order.ID && it.ProductID == product.ID {
			return nil
		}
	}
	return accessDenied("product is not in this order")
}

func (u *DownloadUsecase) Prepare(ctx context.Context, userID int64, productID int64) (DownloadOutput, error) {
	out, err := u.prepare(ctx, userID, productID)
	if err != nil {
		result := "error"
		if errors.Is(err, ErrAccessDenied) {
			result = "denied"
		} else if errors.Is(err, ErrNotFound) {
			result = "not_found"
		}
		metrics.Downloads.WithLabelValues(result).Inc()
		return DownloadOutput{}, err
	}
	metrics.Downloads.WithLabelValues("ok").Inc()
	return out, nil
}

func (u *DownloadUsecase) prepare(ctx context.Context, userID int64, productID int64) (DownloadOutput, error) {
	if userID <= 0 {
		return DownloadOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if productID <= 0 {
		return DownloadOutput{}, notFound()
	}

	//購入済みなら販売終了・削除後も取れるので削除済みも引く
	p, err := u.products.FindByIDIncludingDeleted(ctx, productID)
	if err == repo.ErrNotFound {
		return DownloadOutput{}, notFound()
	}
	if err != nil {
		return DownloadOutput{}, dbError()
	}

	//無料商品は注文なしで取れる。ただし公開中のものだけ
	if p.IsFree() && (!p.IsActive || p.DeletedAt.Valid) {
		return DownloadOutput{}, notFound()
	}
	if !p.IsDigital() {
		return DownloadOutput{}, accessDenied("product has no downloadable file")
	}
	if !p.IsFree() {
		if err := u.checkPurchased(ctx, userID, p); err != nil {
			return DownloadOutput{}, err
		}
	}

	if p.ExternalDownloadURL != "" {
		return DownloadOutput{RedirectURL: p.ExternalDownloadURL}, nil
	}

	f, err := u.files.Open(ctx, p.DigitalFileKey)
	if errors.Is(err, storage.ErrNotExist) {
		u.log.Error("digital file missing", zap.Int64("product_id", p.ID), zap.String("key", p.DigitalFileKey))
		return DownloadOutput{}, notFound()
	}
	if err != nil {
		u.log.Error("digital file open failed", zap.Int64("product_id", p.ID), zap.Error(err))
		return DownloadOutput{}, NewHTTPError(http.StatusInternalServerError, "storage error")
	}

	return DownloadOutput{File: f, FileName: path.Base(p.DigitalFileKey)}, nil
}

// 支払い済みの注文が1つでもあればOK。無ければ一番近い理由を返す
func (u *DownloadUsecase) checkPurchased(ctx context.Context, userID int64, p model.Product) error {
	orders, err := u.orders.ListByUserAndProduct(ctx, userID, p.ID)
	if err != nil {
		return dbError()
	}
	if len(orders) == 0 {
		return accessDenied("purchase required")
	}

	var last error
	for _, o := range orders {
		items, err := u.orderItems.ListByOrderID(ctx, o.ID)
		if err != nil {
			return dbError()
		}
		err = CanDownload(o, items, p)
		if err == nil {
			return nil
		}
		if last == nil || o.Status == model.OrderStatusPending {
			last = err
		}
	}
	return last
}
