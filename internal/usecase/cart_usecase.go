package usecase

import (
	"context"

	"digistore/internal/domain/model"
	repo "digistore/internal/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CartUsecase は /cart の業務ロジック。
// ゲストはセッショントークン、ログイン中はユーザーIDがオーナー。
type CartUsecase struct {
	tx       repo.TransactionManager
	items    repo.CartItemRepository
	products repo.ProductRepository
	log      *zap.Logger
}

func NewCartUsecase(
	tx repo.TransactionManager,
	items repo.CartItemRepository,
	products repo.ProductRepository,
	log *zap.Logger,
) *CartUsecase {
	return &CartUsecase{
		tx:       tx,
		items:    items,
		products: products,
		log:      log,
	}
}

// price は現在の商品価格（保存しない）
type CartLineOutput struct {
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name"`
	Slug      string          `json:"slug"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int64           `json:"quantity"`
	LineTotal decimal.Decimal `json:"line_total"`
	Available bool            `json:"available"`
}

type CartOutput struct {
	Items []CartLineOutput `json:"items"`
	Total decimal.Decimal  `json:"total"`
	Count int64            `json:"count"`
}

func (u *CartUsecase) GetCart(ctx context.Context, owner model.Owner) (CartOutput, error) {
	if err := owner.Validate(); err != nil {
		return CartOutput{}, validationError("invalid cart owner")
	}

	items, err := u.items.ListByOwner(ctx, owner)
	if err != nil {
		return CartOutput{}, dbError()
	}
	return u.buildCart(ctx, items)
}

// 同一商品は数量加算
func (u *CartUsecase) AddItem(ctx context.Context, owner model.Owner, productID int64, qty int64) (CartOutput, error) {
	if err := owner.Validate(); err != nil {
		return CartOutput{}, validationError("invalid cart owner")
	}
	if qty <= 0 {
		return CartOutput{}, validationError("invalid quantity")
	}
	if productID <= 0 {
		return CartOutput{}, validationError("product unavailable")
	}

	//公開中の商品だけ
	p, err := u.products.FindByID(ctx, productID)
	if err == repo.ErrNotFound {
		return CartOutput{}, validationError("product unavailable")
	}
	if err != nil {
		return CartOutput{}, dbError()
	}
	if !p.IsActive {
		return CartOutput{}, validationError("product unavailable")
	}

	if err := u.items.AddQuantity(ctx, owner, productID, qty); err != nil {
		return CartOutput{}, dbError()
	}

	return u.GetCart(ctx, owner)
}

// 無ければ何もしない
func (u *CartUsecase) RemoveItem(ctx context.Context, owner model.Owner, productID int64) (CartOutput, error) {
	if err := owner.Validate(); err != nil {
		return CartOutput{}, validationError("invalid cart owner")
	}
	if productID <= 0 {
		return CartOutput{}, validationError("invalid product_id")
	}

	if err := u.items.Remove(ctx, owner, productID); err != nil {
		return CartOutput{}, dbError()
	}

	return u.GetCart(ctx, owner)
}

func (u *CartUsecase) GetTotal(ctx context.Context, owner model.Owner) (decimal.Decimal, error) {
	out, err := u.GetCart(ctx, owner)
	if err != nil {
		return decimal.Zero, err
	}
	return out.Total, nil
}

// ゲストのカートをユーザーのカートへ移す。同じ商品は数量を合算し、ゲスト行は消す。
func (u *CartUsecase) MergeOnLogin(ctx context.Context, guest model.Owner, user model.Owner) error {
	if !guest.IsGuest() || guest.Validate() != nil {
		return nil
	}
	if _, ok := user.UserID(); !ok {
		return validationError("invalid cart owner")
	}

	moved := 0
	err := u.tx.WithinTx(ctx, func(r repo.TxScope) error {
		guestItems, err := r.CartItems().ListByOwnerForUpdate(ctx, guest)
		if err != nil {
			return dbError()
		}
		if len(guestItems) == 0 {
			return nil
		}

		//ユーザー側の行もロック
		if _, err := r.CartItems().ListByOwnerForUpdate(ctx, user); err != nil {
			return dbError()
		}

		for _, it := range guestItems {
			if err := r.CartItems().AddQuantity(ctx, user, it.ProductID, it.Quantity); err != nil {
				return dbError()
			}
		}

		if err := r.CartItems().DeleteByOwner(ctx, guest); err != nil {
			return dbError()
		}
		moved = len(guestItems)
		return nil
	})
	if err != nil {
		return err
	}

	if moved > 0 {
		u.log.Info("guest cart merged", zap.String("owner", user.String()), zap.Int("lines", moved))
	}
	return nil
}

// 明細に現在価格をつけて合計する。削除済み商品の行は出さない
func (u *CartUsecase) buildCart(ctx context.Context, items []model.CartItem) (CartOutput, error) {
	out := CartOutput{Items: make([]CartLineOutput, 0, len(items)), Total: decimal.Zero}

	for _, it := range items {
		p, err := u.products.FindByID(ctx, it.ProductID)
		if err == repo.ErrNotFound {
			continue
		}
		if err != nil {
			return CartOutput{}, dbError()
		}

		line := p.Price.Mul(decimal.NewFromInt(it.Quantity))
		out.Items = append(out.Items, CartLineOutput{
			ProductID: p.ID,
			Name:      p.Name,
			Slug:      p.Slug,
			UnitPrice: p.Price,
			Quantity:  it.Quantity,
			LineTotal: line,
			Available: p.IsActive,
		})
		out.Total = out.Total.Add(line)
		out.Count += it.Quantity
	}

	return out, nil
}
