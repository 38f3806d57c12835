package repository

import (
	"context"
	"time"

	"digistore/internal/domain/model"
)

type RecentlyViewedRepository interface {
	Touch(ctx context.Context, userID int64, productID int64, at time.Time) error
	ListProducts(ctx context.Context, userID int64, limit int) ([]model.Product, error)
}
