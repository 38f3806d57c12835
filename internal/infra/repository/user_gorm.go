package repository

import (
	"context"
	"errors"

	"digistore/internal/domain/model"
	repo "digistore/internal/repository"

	"gorm.io/gorm"
)

type UserGormRepository struct {
	db *gorm.DB
}

func NewUserGormRepository(db *gorm.DB) *UserGormRepository {
	return &UserGormRepository{db: db}
}

// email重複は ErrDuplicate
func (r *UserGormRepository) Create(ctx context.Context, user *model.User) error {
	return mapWriteErr(r.db.WithContext(ctx).Create(user).Error)
}

func (r *UserGormRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.findOne(r.db.WithContext(ctx).Where("email = ?", email))
}

func (r *UserGormRepository) FindByID(ctx context.Context, id int64) (*model.User, error) {
	return r.findOne(r.db.WithContext(ctx).Where("id = ?", id))
}

// 見つからなければ nil, nil
func (r *UserGormRepository) findOne(q *gorm.DB) (*model.User, error) {
	var u model.User
	if err := q.First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

func (r *UserGormRepository) Update(ctx context.Context, user *model.User) error {
	return r.db.WithContext(ctx).Save(user).Error
}

// 読んでから足すと並行更新で取りこぼすので SQL 側で +1
func (r *UserGormRepository) IncrementTokenVersion(ctx context.Context, id int64) error {
	res := r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).
		UpdateColumn("token_version", gorm.Expr("token_version + 1"))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}
