package repository

import "context"

// 1トランザクション分のrepository。WithinTx の外へ持ち出さない
type TxScope interface {
	Orders() OrderRepository
	OrderItems() OrderItemRepository
	CartItems() CartItemRepository
	Products() ProductRepository
	PaymentEvents() PaymentEventRepository
	AuditLogs() AuditLogRepository
}

type TransactionManager interface {
	// fn が nil を返せば commit、それ以外は rollback
	WithinTx(ctx context.Context, fn func(r TxScope) error) error
}
