package repository

import (
	"context"

	"digistore/internal/domain/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PaymentEventGormRepository struct {
	db *gorm.DB
}

func NewPaymentEventGormRepository(db *gorm.DB) *PaymentEventGormRepository {
	return &PaymentEventGormRepository{db: db}
}

// event_id が既にあれば何もしない（RowsAffected=0 で再送と判断）
func (r *PaymentEventGormRepository) Record(ctx context.Context, ev model.PaymentEvent) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "event_id"}}, DoNothing: true}).
		Create(&ev)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
