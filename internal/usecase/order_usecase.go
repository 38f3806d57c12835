package usecase

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"digistore/internal/domain/model"
	"digistore/internal/metrics"
	repo "digistore/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// 決済代行（provider / upi）
type PaymentGateway interface {
	CreatePayment(ctx context.Context, req model.PaymentRequest) (model.PaymentIntent, error)
}

type OrderUsecase struct {
	tx        repo.TransactionManager
	gateway   PaymentGateway
	currency  string
	storeName string
	log       *zap.Logger
}

func NewOrderUsecase(tx repo.TransactionManager, gateway PaymentGateway, currency string, storeName string, log *zap.Logger) *OrderUsecase {
	return &OrderUsecase{
		tx:        tx,
		gateway:   gateway,
		currency:  currency,
		storeName: storeName,
		log:       log,
	}
}

type OrderItemOutput struct {
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int64           `json:"quantity"`
	LineTotal decimal.Decimal `json:"line_total"`
}

type OrderOutput struct {
	ID               int64             `json:"id"`
	UserID           int64             `json:"user_id"`
	Status           string            `json:"status"`
	Source           string            `json:"source"`
	TotalAmount      decimal.Decimal   `json:"total_amount"`
	PaymentReference string            `json:"payment_reference,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
	Items            []OrderItemOutput `json:"items"`
}

type OrderListOutput struct {
	Items []OrderOutput `json:"items"`
	Total int64         `json:"total"`
	Page  int           `json:"page"`
	Limit int           `json:"limit"`
}

type CheckoutOutput struct {
	Order      OrderOutput `json:"order"`
	Reference  string      `json:"reference,omitempty"`
	PaymentURL string      `json:"payment_url,omitempty"`
}

// カート全体を注文にする。同じキーなら同じ注文を返す
func (u *OrderUsecase) CheckoutCart(ctx context.Context, userID int64, idempotencyKey string) (OrderOutput, error) {
	if userID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	key, err := normalizeIdempotencyKey(idempotencyKey)
	if err != nil {
		return OrderOutput{}, err
	}

	var out OrderOutput
	created := false

	err = u.tx.WithinTx(ctx, func(r repo.TxScope) error {
		existing, found, err := r.Orders().FindByIdempotencyKey(ctx, userID, key)
		if err != nil {
			return dbError()
		}
		if found {
			items, err := r.OrderItems().ListByOrderID(ctx, existing.ID)
			if err != nil {
				return dbError()
			}
			out = toOrderOutput(existing, items)
			return nil
		}

		//カート行をロック
		owner := model.UserOwner(userID)
		lines, err := r.CartItems().ListByOwnerForUpdate(ctx, owner)
		if err != nil {
			return dbError()
		}
		if len(lines) == 0 {
			return validationError("cart is empty")
		}

		//現在価格をスナップショット
		orderItems := make([]model.OrderItem, 0, len(lines))
		for _, ci := range lines {
			p, err := r.Products().FindByID(ctx, ci.ProductID)
			if err == repo.ErrNotFound {
				return validationError("product unavailable")
			}
			if err != nil {
				return dbError()
			}
			if !p.IsActive {
				return validationError("product unavailable")
			}
			orderItems = append(orderItems, snapshotItem(p, ci.Quantity))
		}

		o, items, err := createPendingOrder(ctx, r, userID, model.OrderSourceCart, key, orderItems)
		if err != nil {
			return err
		}

		//注文にしたらカートは空にする
		if err := r.CartItems().DeleteByOwner(ctx, owner); err != nil {
			return dbError()
		}

		out = toOrderOutput(o, items)
		created = true
		return nil
	})
	if err != nil {
		return OrderOutput{}, err
	}

	if created {
		u.orderCreated(out)
	}
	return out, nil
}

// 商品ページから直接購入（明細1行の注文）
func (u *OrderUsecase) BuyNow(ctx context.Context, userID int64, productID int64, qty int64, idempotencyKey string) (OrderOutput, error) {
	if userID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if qty <= 0 {
		return OrderOutput{}, validationError("invalid quantity")
	}
	if productID <= 0 {
		return OrderOutput{}, notFound()
	}
	key, err := normalizeIdempotencyKey(idempotencyKey)
	if err != nil {
		return OrderOutput{}, err
	}

	var out OrderOutput
	created := false

	err = u.tx.WithinTx(ctx, func(r repo.TxScope) error {
		existing, found, err := r.Orders().FindByIdempotencyKey(ctx, userID, key)
		if err != nil {
			return dbError()
		}
		if found {
			items, err := r.OrderItems().ListByOrderID(ctx, existing.ID)
			if err != nil {
				return dbError()
			}
			out = toOrderOutput(existing, items)
			return nil
		}

		p, err := r.Products().FindByID(ctx, productID)
		if err == repo.ErrNotFound {
			return notFound()
		}
		if err != nil {
			return dbError()
		}
		if !p.IsActive {
			return notFound()
		}
		if p.IsFree() {
			return validationError("free product can be downloaded without an order")
		}

		o, items, err := createPendingOrder(ctx, r, userID, model.OrderSourceDirect, key, []model.OrderItem{snapshotItem(p, qty)})
		if err != nil {
			return err
		}
		out = toOrderOutput(o, items)
		created = true
		return nil
	})
	if err != nil {
		return OrderOutput{}, err
	}

	if created {
		u.orderCreated(out)
	}
	return out, nil
}

// 支払い開始。参照番号が保存済みならそれを返す（ゲートウェイは呼ばない）
func (u *OrderUsecase) StartPayment(ctx context.Context, userID int64, orderID int64) (CheckoutOutput, error) {
	if userID <= 0 {
		return CheckoutOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return CheckoutOutput{}, notFound()
	}

	var out CheckoutOutput
	started := false

	//同じ注文への同時POSTで参照番号が2つできないよう、行ロックを持ったまま呼ぶ
	err := u.tx.WithinTx(ctx, func(r repo.TxScope) error {
		o, err := r.Orders().FindForUpdate(ctx, orderID)
		if err == repo.ErrNotFound {
			return notFound()
		}
		if err != nil {
			return dbError()
		}
		//他人の注文は「存在しない扱い」
		if o.UserID != userID {
			return notFound()
		}
		if o.Status != model.OrderStatusPending {
			return newKindError(ErrConflict, http.StatusConflict, "order is not pending")
		}

		items, err := r.OrderItems().ListByOrderID(ctx, o.ID)
		if err != nil {
			return dbError()
		}

		if o.PaymentReference != nil && *o.PaymentReference != "" {
			out = toCheckoutOutput(o, items)
			return nil
		}

		intent, err := u.gateway.CreatePayment(ctx, model.PaymentRequest{
			OrderID:     o.ID,
			Amount:      o.TotalAmount,
			Currency:    u.currency,
			Description: fmt.Sprintf("%s order #%d", u.storeName, o.ID),
		})
		if err != nil {
			u.log.Error("payment gateway failed", zap.Int64("order_id", o.ID), zap.Error(err))
			return NewHTTPError(http.StatusBadGateway, "payment gateway error")
		}
		if strings.TrimSpace(intent.Reference) == "" {
			return NewHTTPError(http.StatusBadGateway, "payment gateway error")
		}

		if err := r.Orders().SetPaymentIntent(ctx, o.ID, intent); err != nil {
			if err == repo.ErrDuplicate {
				return newKindError(ErrConflict, http.StatusConflict, "payment reference already used")
			}
			return dbError()
		}

		ref := intent.Reference
		o.PaymentReference = &ref
		o.PaymentURL = intent.PaymentURL
		out = toCheckoutOutput(o, items)
		started = true
		return nil
	})
	if err != nil {
		return CheckoutOutput{}, err
	}

	if started {
		u.log.Info("payment started", zap.Int64("order_id", orderID), zap.String("reference", out.Reference))
	}
	return out, nil
}

// 支払い画面の表示用
func (u *OrderUsecase) GetCheckout(ctx context.Context, userID int64, orderID int64) (CheckoutOutput, error) {
	if userID <= 0 {
		return CheckoutOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	var out CheckoutOutput
	err := u.tx.WithinTx(ctx, func(r repo.TxScope) error {
		o, items, err := findOwnedOrder(ctx, r, userID, orderID)
		if err != nil {
			return err
		}
		out = toCheckoutOutput(o, items)
		return nil
	})
	if err != nil {
		return CheckoutOutput{}, err
	}
	return out, nil
}

func (u *OrderUsecase) ListMyOrders(ctx context.Context, userID int64, page int, limit int) (OrderListOutput, error) {
	if userID <= 0 {
		return OrderListOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if page == 0 {
		page = 1
	}
	if limit == 0 {
		limit = 50
	}
	if page < 1 {
		return OrderListOutput{}, validationError("invalid page")
	}
	if limit < 1 || limit > maxPageLimit {
		return OrderListOutput{}, validationError("invalid limit")
	}

	out := OrderListOutput{Page: page, Limit: limit}

	err := u.tx.WithinTx(ctx, func(r repo.TxScope) error {
		orders, total, err := r.Orders().ListByUserID(ctx, userID, page, limit)
		if err != nil {
			return dbError()
		}

		out.Total = total
		out.Items = make([]OrderOutput, 0, len(orders))
		for _, o := range orders {
			items, err := r.OrderItems().ListByOrderID(ctx, o.ID)
			if err != nil {
				return dbError()
			}
			out.Items = append(out.Items, toOrderOutput(o, items))
		}
		return nil
	})
	if err != nil {
		return OrderListOutput{}, err
	}
	return out, nil
}

func (u *OrderUsecase) GetMyOrderDetail(ctx context.Context, userID int64, orderID int64) (OrderOutput, error) {
	if userID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	var out OrderOutput
	err := u.tx.WithinTx(ctx, func(r repo.TxScope) error {
		o, items, err := findOwnedOrder(ctx, r, userID, orderID)
		if err != nil {
			return err
		}
		out = toOrderOutput(o, items)
		return nil
	})
	if err != nil {
		return OrderOutput{}, err
	}
	return out, nil
}

func (u *OrderUsecase) orderCreated(o OrderOutput) {
	metrics.OrdersCreated.WithLabelValues(o.Source).Inc()
	u.log.Info("order created",
		zap.Int64("order_id", o.ID),
		zap.Int64("user_id", o.UserID),
		zap.String("source", o.Source),
		zap.String("total", o.TotalAmount.StringFixed(2)),
	)
}

// 空なら毎回新しいキー（＝冪等なし）
func normalizeIdempotencyKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return uuid.NewString(), nil
	}
	if len(key) > 255 {
		return "", validationError("invalid idempotency key")
	}
	return key, nil
}

func snapshotItem(p model.Product, qty int64) model.OrderItem {
	return model.OrderItem{
		ProductID:           p.ID,
		ProductNameSnapshot: p.Name,
		UnitPriceSnapshot:   p.Price,
		Quantity:            qty,
	}
}

// pending の注文と明細を作る。合計は明細スナップショットの和
func createPendingOrder(ctx context.Context, r repo.TxScope, userID int64, source model.OrderSource, key string, items []model.OrderItem) (model.Order, []model.OrderItem, error) {
	total := model.SumOrderItems(items)
	if !total.IsPositive() {
		return model.Order{}, nil, validationError("nothing to pay")
	}

	now := time.Now()
	o := model.Order{
		UserID:         userID,
		Status:         model.OrderStatusPending,
		Source:         source,
		TotalAmount:    total,
		IdempotencyKey: key,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	id, err := r.Orders().Create(ctx, o)
	if err == repo.ErrDuplicate {
		//同じキーの注文が同時に作られた
		return model.Order{}, nil, newKindError(ErrConflict, http.StatusConflict, "idempotency conflict")
	}
	if err != nil {
		return model.Order{}, nil, dbError()
	}
	o.ID = id

	if err := r.OrderItems().CreateBulk(ctx, id, items); err != nil {
		return model.Order{}, nil, dbError()
	}
	for i := range items {
		items[i].OrderID = id
	}
	return o, items, nil
}

func findOwnedOrder(ctx context.Context, r repo.TxScope, userID int64, orderID int64) (model.Order, []model.OrderItem, error) {
	if orderID <= 0 {
		return model.Order{}, nil, notFound()
	}
	o, err := r.Orders().FindByID(ctx, orderID)
	if err == repo.ErrNotFound {
		return model.Order{}, nil, notFound()
	}
	if err != nil {
		return model.Order{}, nil, dbError()
	}
	if o.UserID != userID {
		return model.Order{}, nil, notFound()
	}

	items, err := r.OrderItems().ListByOrderID(ctx, orderID)
	if err != nil {
		return model.Order{}, nil, dbError()
	}
	return o, items, nil
}

func toOrderOutput(o model.Order, items []model.OrderItem) OrderOutput {
	outItems := make([]OrderItemOutput, 0, len(items))
	for _, it := range items {
		outItems = append(outItems, OrderItemOutput{
			ProductID: it.ProductID,
			Name:      it.ProductNameSnapshot,
			UnitPrice: it.UnitPriceSnapshot,
			Quantity:  it.Quantity,
			LineTotal: it.LineTotal(),
		})
	}

	ref := ""
	if o.PaymentReference != nil {
		ref = *o.PaymentReference
	}

	return OrderOutput{
		ID:               o.ID,
		UserID:           o.UserID,
		Status:           string(o.Status),
		Source:           string(o.Source),
		TotalAmount:      o.TotalAmount,
		PaymentReference: ref,
		CreatedAt:        o.CreatedAt,
		Items:            outItems,
	}
}

func toCheckoutOutput(o model.Order, items []model.OrderItem) CheckoutOutput {
	out := toOrderOutput(o, items)
	return CheckoutOutput{Order: out, Reference: out.PaymentReference, PaymentURL: o.PaymentURL}
}
