package repository

import (
	"errors"

	repo "digistore/internal/repository"

	"gorm.io/gorm"
)

// 1件取得。無ければ repo.ErrNotFound
func first[T any](q *gorm.DB) (T, error) {
	var v T
	if err := q.First(&v).Error; err != nil {
		var zero T
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return zero, repo.ErrNotFound
		}
		return zero, err
	}
	return v, nil
}

// UPDATE/DELETE の結果。0行なら ErrNotFound
func affectedOne(res *gorm.DB) error {
	if res.Error != nil {
		return mapWriteErr(res.Error)
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func mapWriteErr(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return repo.ErrDuplicate
	}
	return err
}
