package repository

import (
	"context"
	"errors"
	"time"

	"digistore/internal/domain/model"
	repo "digistore/internal/repository"

	"gorm.io/gorm"
)

type RefreshTokenGormRepository struct {
	db *gorm.DB
}

func NewRefreshTokenGormRepository(db *gorm.DB) *RefreshTokenGormRepository {
	return &RefreshTokenGormRepository{db: db}
}

func (r *RefreshTokenGormRepository) Create(ctx context.Context, token *model.RefreshToken) error {
	return r.db.WithContext(ctx).Create(token).Error
}

func (r *RefreshTokenGormRepository) FindByTokenHash(ctx context.Context, tokenHash string) (*model.RefreshToken, error) {
	var token model.RefreshToken
	err := r.db.WithContext(ctx).Where("token_hash = ?", tokenHash).First(&token).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, repo.ErrRefreshTokenNotFound
	}
	if err != nil {
		return nil, err
	}
	return &token, nil
}

// 未使用かつ未失効のものだけ used にする（並行 refresh で二重に通さない）
func (r *RefreshTokenGormRepository) MarkUsed(ctx context.Context, tokenID string) error {
	return r.stamp(ctx, "used_at", "id = ? AND used_at IS NULL AND revoked_at IS NULL", tokenID)
}

func (r *RefreshTokenGormRepository) Revoke(ctx context.Context, tokenID string) error {
	return r.stamp(ctx, "revoked_at", "id = ? AND revoked_at IS NULL", tokenID)
}

func (r *RefreshTokenGormRepository) stamp(ctx context.Context, column string, where string, tokenID string) error {
	now := time.Now()
	res := r.db.WithContext(ctx).
		Model(&model.RefreshToken{}).
		Where(where, tokenID).
		Update(column, &now)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrRefreshTokenNotFound
	}
	return nil
}

func (r *RefreshTokenGormRepository) DeleteAllByUserID(ctx context.Context, userID int64) error {
	return r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&model.RefreshToken{}).Error
}

func (r *RefreshTokenGormRepository) DeleteByID(ctx context.Context, tokenID string) error {
	res := r.db.WithContext(ctx).Where("id = ?", tokenID).Delete(&model.RefreshToken{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrRefreshTokenNotFound
	}
	return nil
}
