package repository

import (
	"context"

	"digistore/internal/domain/model"
)

// Find 系は見つからなければ nil, nil
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	FindByID(ctx context.Context, userID int64) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	// 全カラム保存
	Update(ctx context.Context, user *model.User) error
	IncrementTokenVersion(ctx context.Context, userID int64) error
}
