package repository

import (
	"context"

	"digistore/internal/domain/model"
)

type CategoryRepository interface {
	List(ctx context.Context) ([]model.Category, error)
	FindBySlug(ctx context.Context, slug string) (model.Category, error)
	Create(ctx context.Context, c model.Category) (model.Category, error)
}
