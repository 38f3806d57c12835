package repository

import (
	"context"

	repo "digistore/internal/repository"

	"gorm.io/gorm"
)

// 同じ *gorm.DB(tx) を共有する repository の束
type gormScope struct {
	orders   *OrderGormRepository
	items    *OrderItemGormRepository
	carts    *CartItemGormRepository
	products *ProductGormRepository
	events   *PaymentEventGormRepository
	audits   *AuditLogGormRepository
}

func newGormScope(tx *gorm.DB) *gormScope {
	return &gormScope{
		orders:   NewOrderGormRepository(tx),
		items:    NewOrderItemGormRepository(tx),
		carts:    NewCartItemGormRepository(tx),
		products: NewProductGormRepository(tx),
		events:   NewPaymentEventGormRepository(tx),
		audits:   NewAuditLogGormRepository(tx),
	}
}

func (s *gormScope) Orders() repo.OrderRepository               { return s.orders }
func (s *gormScope) OrderItems() repo.OrderItemRepository       { return s.items }
func (s *gormScope) CartItems() repo.CartItemRepository         { return s.carts }
func (s *gormScope) Products() repo.ProductRepository           { return s.products }
func (s *gormScope) PaymentEvents() repo.PaymentEventRepository { return s.events }
func (s *gormScope) AuditLogs() repo.AuditLogRepository         { return s.audits }

type TxManagerGorm struct {
	db *gorm.DB
}

func NewTxManagerGorm(db *gorm.DB) *TxManagerGorm {
	return &TxManagerGorm{db: db}
}

func (tm *TxManagerGorm) WithinTx(ctx context.Context, fn func(r repo.TxScope) error) error {
	return tm.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(newGormScope(tx))
	})
}
