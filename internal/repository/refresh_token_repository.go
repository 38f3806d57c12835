package repository

import (
	"context"
	"errors"

	"digistore/internal/domain/model"
)

var ErrRefreshTokenNotFound = errors.New("refresh token not found")

// DB には sha256 ハッシュだけを置く
type RefreshTokenRepository interface {
	Create(ctx context.Context, token *model.RefreshToken) error
	FindByTokenHash(ctx context.Context, tokenHash string) (*model.RefreshToken, error)
	// 未使用のものだけ。既に使われていたら ErrRefreshTokenNotFound
	MarkUsed(ctx context.Context, tokenID string) error
	Revoke(ctx context.Context, tokenID string) error
	DeleteByID(ctx context.Context, tokenID string) error
	DeleteAllByUserID(ctx context.Context, userID int64) error
}
