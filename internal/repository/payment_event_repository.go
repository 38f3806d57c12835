package repository

import (
	"context"

	"digistore/internal/domain/model"
)

type PaymentEventRepository interface {
	// 初めての event_id なら true。再送なら false で何も書かない。
	Record(ctx context.Context, ev model.PaymentEvent) (bool, error)
}
