package usecase_test

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"digistore/internal/domain/model"
	repo "digistore/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

// =====================
// TxManager / TxScope mocks
// =====================

// WithinTx の中で渡す repos を固定して unit テストを回す
type TxManagerMock struct {
	mock.Mock
	Repos repo.TxScope
}

func (m *TxManagerMock) WithinTx(ctx context.Context, fn func(r repo.TxScope) error) error {
	m.Called(ctx)
	return fn(m.Repos)
}

type TxScopeMock struct {
	orders        repo.OrderRepository
	orderItems    repo.OrderItemRepository
	cartItems     repo.CartItemRepository
	products      repo.ProductRepository
	paymentEvents repo.PaymentEventRepository
	auditLogs     repo.AuditLogRepository
}

func (r *TxScopeMock) Orders() repo.OrderRepository               { return r.orders }
func (r *TxScopeMock) OrderItems() repo.OrderItemRepository       { return r.orderItems }
func (r *TxScopeMock) CartItems() repo.CartItemRepository         { return r.cartItems }
func (r *TxScopeMock) Products() repo.ProductRepository           { return r.products }
func (r *TxScopeMock) PaymentEvents() repo.PaymentEventRepository { return r.paymentEvents }
func (r *TxScopeMock) AuditLogs() repo.AuditLogRepository         { return r.auditLogs }

// =====================
// Repository mocks
// =====================

type OrderRepoMock struct{ mock.Mock }

func (m *OrderRepoMock) FindByID(ctx context.Context, orderID int64) (model.Order, error) {
	args := m.Called(ctx, orderID)
	o, _ := args.Get(0).(model.Order)
	return o, args.Error(1)
}

func (m *OrderRepoMock) FindForUpdate(ctx context.Context, orderID int64) (model.Order, error) {
	args := m.Called(ctx, orderID)
	o, _ := args.Get(0).(model.Order)
	return o, args.Error(1)
}

func (m *OrderRepoMock) ListByUserID(ctx context.Context, userID int64, page int, limit int) ([]model.Order, int64, error) {
	args := m.Called(ctx, userID, page, limit)
	orders, _ := args.Get(0).([]model.Order)
	return orders, args.Get(1).(int64), args.Error(2)
}

func (m *OrderRepoMock) ListByUserAndProduct(ctx context.Context, userID int64, productID int64) ([]model.Order, error) {
	args := m.Called(ctx, userID, productID)
	orders, _ := args.Get(0).([]model.Order)
	return orders, args.Error(1)
}

func (m *OrderRepoMock) Create(ctx context.Context, order model.Order) (int64, error) {
	args := m.Called(ctx, order)
	return args.Get(0).(int64), args.Error(1)
}

func (m *OrderRepoMock) UpdateStatus(ctx context.Context, orderID int64, status model.OrderStatus) error {
	args := m.Called(ctx, orderID, status)
	return args.Error(0)
}

func (m *OrderRepoMock) SetPaymentIntent(ctx context.Context, orderID int64, intent model.PaymentIntent) error {
	args := m.Called(ctx, orderID, intent)
	return args.Error(0)
}

func (m *OrderRepoMock) FindByIdempotencyKey(ctx context.Context, userID int64, key string) (model.Order, bool, error) {
	args := m.Called(ctx, userID, key)
	o, _ := args.Get(0).(model.Order)
	return o, args.Bool(1), args.Error(2)
}

func (m *OrderRepoMock) Search(ctx context.Context, f repo.OrderFilter) ([]model.Order, int64, error) {
	args := m.Called(ctx, f)
	orders, _ := args.Get(0).([]model.Order)
	return orders, args.Get(1).(int64), args.Error(2)
}

type OrderItemRepoMock struct{ mock.Mock }

func (m *OrderItemRepoMock) CreateBulk(ctx context.Context, orderID int64, items []model.OrderItem) error {
	args := m.Called(ctx, orderID, items)
	return args.Error(0)
}

func (m *OrderItemRepoMock) ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderItem, error) {
	args := m.Called(ctx, orderID)
	items, _ := args.Get(0).([]model.OrderItem)
	return items, args.Error(1)
}

type CartItemRepoMock struct{ mock.Mock }

func (m *CartItemRepoMock) ListByOwner(ctx context.Context, owner model.Owner) ([]model.CartItem, error) {
	args := m.Called(ctx, owner)
	items, _ := args.Get(0).([]model.CartItem)
	return items, args.Error(1)
}

func (m *CartItemRepoMock) ListByOwnerForUpdate(ctx context.Context, owner model.Owner) ([]model.CartItem, error) {
	args := m.Called(ctx, owner)
	items, _ := args.Get(0).([]model.CartItem)
	return items, args.Error(1)
}

func (m *CartItemRepoMock) AddQuantity(ctx context.Context, owner model.Owner, productID int64, qty int64) error {
	args := m.Called(ctx, owner, productID, qty)
	return args.Error(0)
}

func (m *CartItemRepoMock) Remove(ctx context.Context, owner model.Owner, productID int64) error {
	args := m.Called(ctx, owner, productID)
	return args.Error(0)
}

func (m *CartItemRepoMock) DeleteByOwner(ctx context.Context, owner model.Owner) error {
	args := m.Called(ctx, owner)
	return args.Error(0)
}

type ProductRepoMock struct{ mock.Mock }

func (m *ProductRepoMock) ListPublic(ctx context.Context, q repo.ProductListQuery) ([]model.Product, int64, error) {
	args := m.Called(ctx, q)
	items, _ := args.Get(0).([]model.Product)
	return items, args.Get(1).(int64), args.Error(2)
}

func (m *ProductRepoMock) ListRelated(ctx context.Context, categoryID int64, excludeID int64, limit int) ([]model.Product, error) {
	args := m.Called(ctx, categoryID, excludeID, limit)
	items, _ := args.Get(0).([]model.Product)
	return items, args.Error(1)
}

func (m *ProductRepoMock) ListActive(ctx context.Context) ([]model.Product, error) {
	args := m.Called(ctx)
	items, _ := args.Get(0).([]model.Product)
	return items, args.Error(1)
}

func (m *ProductRepoMock) FindByID(ctx context.Context, id int64) (model.Product, error) {
	args := m.Called(ctx, id)
	p, _ := args.Get(0).(model.Product)
	return p, args.Error(1)
}

func (m *ProductRepoMock) FindByIDIncludingDeleted(ctx context.Context, id int64) (model.Product, error) {
	args := m.Called(ctx, id)
	p, _ := args.Get(0).(model.Product)
	return p, args.Error(1)
}

func (m *ProductRepoMock) FindBySlug(ctx context.Context, slug string) (model.Product, error) {
	args := m.Called(ctx, slug)
	p, _ := args.Get(0).(model.Product)
	return p, args.Error(1)
}

func (m *ProductRepoMock) Create(ctx context.Context, p model.Product) (model.Product, error) {
	args := m.Called(ctx, p)
	out, _ := args.Get(0).(model.Product)
	return out, args.Error(1)
}

func (m *ProductRepoMock) Update(ctx context.Context, p model.Product) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *ProductRepoMock) SoftDelete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type CategoryRepoMock struct{ mock.Mock }

func (m *CategoryRepoMock) List(ctx context.Context) ([]model.Category, error) {
	args := m.Called(ctx)
	items, _ := args.Get(0).([]model.Category)
	return items, args.Error(1)
}

func (m *CategoryRepoMock) FindBySlug(ctx context.Context, slug string) (model.Category, error) {
	args := m.Called(ctx, slug)
	c, _ := args.Get(0).(model.Category)
	return c, args.Error(1)
}

func (m *CategoryRepoMock) Create(ctx context.Context, c model.Category) (model.Category, error) {
	args := m.Called(ctx, c)
	out, _ := args.Get(0).(model.Category)
	return out, args.Error(1)
}

type RecentlyViewedRepoMock struct{ mock.Mock }

func (m *RecentlyViewedRepoMock) Touch(ctx context.Context, userID int64, productID int64, at time.Time) error {
	args := m.Called(ctx, userID, productID, at)
	return args.Error(0)
}

func (m *RecentlyViewedRepoMock) ListProducts(ctx context.Context, userID int64, limit int) ([]model.Product, error) {
	args := m.Called(ctx, userID, limit)
	items, _ := args.Get(0).([]model.Product)
	return items, args.Error(1)
}

type PaymentEventRepoMock struct{ mock.Mock }

func (m *PaymentEventRepoMock) Record(ctx context.Context, ev model.PaymentEvent) (bool, error) {
	args := m.Called(ctx, ev)
	return args.Bool(0), args.Error(1)
}

type AuditRepoMock struct{ mock.Mock }

func (m *AuditRepoMock) Create(ctx context.Context, log model.AuditLog) error {
	args := m.Called(ctx, log)
	return args.Error(0)
}

func (m *AuditRepoMock) List(ctx context.Context, filter repo.AuditLogFilter) ([]model.AuditLog, error) {
	args := m.Called(ctx, filter)
	logs, _ := args.Get(0).([]model.AuditLog)
	return logs, args.Error(1)
}

type UserRepoMock struct{ mock.Mock }

func (m *UserRepoMock) Create(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *UserRepoMock) FindByID(ctx context.Context, id int64) (*model.User, error) {
	args := m.Called(ctx, id)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

func (m *UserRepoMock) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

func (m *UserRepoMock) Update(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *UserRepoMock) IncrementTokenVersion(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type RefreshTokenRepoMock struct{ mock.Mock }

func (m *RefreshTokenRepoMock) Create(ctx context.Context, token *model.RefreshToken) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

func (m *RefreshTokenRepoMock) FindByTokenHash(ctx context.Context, tokenHash string) (*model.RefreshToken, error) {
	args := m.Called(ctx, tokenHash)
	rt, _ := args.Get(0).(*model.RefreshToken)
	return rt, args.Error(1)
}

func (m *RefreshTokenRepoMock) MarkUsed(ctx context.Context, tokenID string) error {
	args := m.Called(ctx, tokenID)
	return args.Error(0)
}

func (m *RefreshTokenRepoMock) Revoke(ctx context.Context, tokenID string) error {
	args := m.Called(ctx, tokenID)
	return args.Error(0)
}

func (m *RefreshTokenRepoMock) DeleteAllByUserID(ctx context.Context, userID int64) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *RefreshTokenRepoMock) DeleteByID(ctx context.Context, tokenID string) error {
	args := m.Called(ctx, tokenID)
	return args.Error(0)
}

// =====================
// 外部依存の mocks
// =====================

type GatewayMock struct{ mock.Mock }

func (m *GatewayMock) CreatePayment(ctx context.Context, req model.PaymentRequest) (model.PaymentIntent, error) {
	args := m.Called(ctx, req)
	in, _ := args.Get(0).(model.PaymentIntent)
	return in, args.Error(1)
}

type VerifierMock struct{ mock.Mock }

func (m *VerifierMock) Verify(body []byte, signature string) bool {
	args := m.Called(body, signature)
	return args.Bool(0)
}

type CacheMock struct{ mock.Mock }

func (m *CacheMock) Get(ctx context.Context, name string, dest interface{}) bool {
	args := m.Called(ctx, name, dest)
	return args.Bool(0)
}

func (m *CacheMock) Set(ctx context.Context, name string, value interface{}) error {
	args := m.Called(ctx, name, value)
	return args.Error(0)
}

func (m *CacheMock) Invalidate(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

type FileStoreMock struct{ mock.Mock }

func (m *FileStoreMock) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	args := m.Called(ctx, path)
	rc, _ := args.Get(0).(io.ReadCloser)
	return rc, args.Error(1)
}

func (m *FileStoreMock) Put(ctx context.Context, path string, r io.Reader) error {
	args := m.Called(ctx, path, r)
	return args.Error(0)
}

type CartMergerMock struct{ mock.Mock }

func (m *CartMergerMock) MergeOnLogin(ctx context.Context, guest model.Owner, user model.Owner) error {
	args := m.Called(ctx, guest, user)
	return args.Error(0)
}

type AuthValidatorMock struct{ mock.Mock }

func (m *AuthValidatorMock) ValidateRegister(ctx context.Context, email string, password string) error {
	args := m.Called(ctx, email, password)
	return args.Error(0)
}

func (m *AuthValidatorMock) ValidateLogin(ctx context.Context, email string, password string) error {
	args := m.Called(ctx, email, password)
	return args.Error(0)
}

func (m *AuthValidatorMock) ValidateRefresh(ctx context.Context, refreshToken string, userAgent string) error {
	args := m.Called(ctx, refreshToken, userAgent)
	return args.Error(0)
}

func (m *AuthValidatorMock) ValidateLogout(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *AuthValidatorMock) ValidateForceLogout(ctx context.Context, targetUserID int64) error {
	args := m.Called(ctx, targetUserID)
	return args.Error(0)
}

// =====================
// Helper
// =====================

// HTTPErrorの実装詳細に依存しない
func assertErrContains(t *testing.T, err error, wantSubstr string) {
	t.Helper()
	if assert.Error(t, err) {
		assert.True(t, strings.Contains(err.Error(), wantSubstr), "err=%q want contains %q", err.Error(), wantSubstr)
	}
}

func nopLog() *zap.Logger {
	return zap.NewNop()
}

var (
	_ repo.OrderRepository          = (*OrderRepoMock)(nil)
	_ repo.OrderItemRepository      = (*OrderItemRepoMock)(nil)
	_ repo.CartItemRepository       = (*CartItemRepoMock)(nil)
	_ repo.ProductRepository        = (*ProductRepoMock)(nil)
	_ repo.CategoryRepository       = (*CategoryRepoMock)(nil)
	_ repo.RecentlyViewedRepository = (*RecentlyViewedRepoMock)(nil)
	_ repo.PaymentEventRepository   = (*PaymentEventRepoMock)(nil)
	_ repo.AuditLogRepository       = (*AuditRepoMock)(nil)
	_ repo.UserRepository           = (*UserRepoMock)(nil)
	_ repo.RefreshTokenRepository   = (*RefreshTokenRepoMock)(nil)
	_ repo.TxScope                  = (*TxScopeMock)(nil)
)
