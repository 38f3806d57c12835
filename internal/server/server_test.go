package server_test

import (
	"net/http"
	"strconv"
	"strings"
	"testing"

	"digistore/internal/domain/model"
	"digistore/internal/server/servertest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEnv(t *testing.T) *servertest.Env {
	t.Helper()
	env, err := servertest.New()
	require.NoError(t, err)
	t.Cleanup(env.Close)
	return env
}

func newClient(t *testing.T, env *servertest.Env) *servertest.Client {
	t.Helper()
	c, err := env.NewClient()
	require.NoError(t, err)
	return c
}

func signup(t *testing.T, c *servertest.Client, email string) {
	t.Helper()
	res, err := c.Register(email, "password123")
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, res.Status, string(res.Body))

	res, err = c.Login(email, "password123")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.Status, string(res.Body))
}

func TestServer_Healthz(t *testing.T) {
	env := newEnv(t)
	c := newClient(t, env)

	res, err := c.Do(http.MethodGet, "/healthz", nil, nil)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, res.Status)
	assert.JSONEq(t, `{"db":"ok"}`, string(res.Body))
	assert.NotEmpty(t, res.Header.Get("X-Request-ID"))
}

func TestServer_Metrics(t *testing.T) {
	env := newEnv(t)
	c := newClient(t, env)

	_, err := c.Do(http.MethodGet, "/products", nil, nil)
	require.NoError(t, err)

	res, err := c.Do(http.MethodGet, "/metrics", nil, nil)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, res.Status)
	assert.Contains(t, string(res.Body), "digistore_http_requests_total")
}

func TestServer_TrailingSlashIsSameRoute(t *testing.T) {
	env := newEnv(t)
	c := newClient(t, env)
	_, err := env.SeedProduct("Go Handbook", "10.00", "")
	require.NoError(t, err)

	for _, path := range []string{"/products", "/products/", "/products/go-handbook", "/products/go-handbook/"} {
		res, err := c.Do(http.MethodGet, path, nil, nil)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, res.Status, path)
	}
}

func TestServer_InactiveProductIsNotFound(t *testing.T) {
	env := newEnv(t)
	c := newClient(t, env)
	p, err := env.SeedProduct("Hidden Pack", "5.00", "")
	require.NoError(t, err)
	require.NoError(t, env.DB.Model(&p).Update("is_active", false).Error)

	res, err := c.Do(http.MethodGet, "/products/hidden-pack", nil, nil)
	require.NoError(t, err)

	assert.Equal(t, http.StatusNotFound, res.Status)
}

func TestServer_GuestCartMergesOnLogin(t *testing.T) {
	env := newEnv(t)
	c := newClient(t, env)
	p, err := env.SeedProduct("Icon Set", "7.50", "icons.zip")
	require.NoError(t, err)

	res, err := c.Do(http.MethodPost, "/cart/add/"+strconv.FormatInt(p.ID, 10), map[string]int64{"quantity": 2}, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.Status, string(res.Body))
	require.NotEmpty(t, c.Cookie("guest_session"))

	//同じcookieで見えること
	var cart struct {
		Count int64  `json:"count"`
		Total string `json:"total"`
	}
	res, err = c.Do(http.MethodGet, "/cart", nil, nil)
	require.NoError(t, err)
	require.NoError(t, res.Decode(&cart))
	assert.Equal(t, int64(2), cart.Count)
	assert.Equal(t, "15", cart.Total)

	signup(t, c, "guest@example.com")
	assert.Empty(t, c.Cookie("guest_session"))

	res, err = c.Do(http.MethodGet, "/cart", nil, nil)
	require.NoError(t, err)
	require.NoError(t, res.Decode(&cart))
	assert.Equal(t, int64(2), cart.Count)
}

func TestServer_CheckoutPayAndDownload(t *testing.T) {
	env := newEnv(t)
	c := newClient(t, env)
	a, err := env.SeedProduct("Go Course", "10.00", "course.zip")
	require.NoError(t, err)
	other, err := env.SeedProduct("Rust Course", "15.00", "rust.zip")
	require.NoError(t, err)

	signup(t, c, "buyer@example.com")

	res, err := c.Do(http.MethodPost, "/cart/add/"+strconv.FormatInt(a.ID, 10), nil, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.Status, string(res.Body))

	//未払いではダウンロードできない
	res, err = c.Do(http.MethodGet, "/download/"+strconv.FormatInt(a.ID, 10), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, res.Status)

	var order struct {
		ID     int64  `json:"id"`
		Status string `json:"status"`
	}
	res, err = c.Do(http.MethodPost, "/cart/checkout", nil, map[string]string{"X-Idempotency-Key": "chk-1"})
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, res.Status, string(res.Body))
	require.NoError(t, res.Decode(&order))
	assert.Equal(t, "pending", order.Status)

	var checkout struct {
		Reference  string `json:"reference"`
		PaymentURL string `json:"payment_url"`
	}
	res, err = c.Do(http.MethodPost, "/checkout/"+strconv.FormatInt(order.ID, 10), nil, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.Status, string(res.Body))
	require.NoError(t, res.Decode(&checkout))
	require.NotEmpty(t, checkout.Reference)
	assert.True(t, strings.HasPrefix(checkout.PaymentURL, "upi://pay?"))

	res, err = c.SendCallback(model.PaymentCallback{
		EventID:   "evt-1",
		OrderID:   order.ID,
		Reference: checkout.Reference,
		Outcome:   model.PaymentOutcomeSucceeded,
	}, servertest.WebhookSecret)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.Status, string(res.Body))

	status, err := env.OrderStatus(order.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusPaid, status)

	res, err = c.Do(http.MethodGet, "/download/"+strconv.FormatInt(a.ID, 10), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.Status)
	assert.Equal(t, "contents of course.zip", string(res.Body))
	assert.Contains(t, res.Header.Get("Content-Disposition"), "course.zip")

	res, err = c.Do(http.MethodGet, "/download/"+strconv.FormatInt(other.ID, 10), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, res.Status)
}

func TestServer_CallbackRejectsBadSignature(t *testing.T) {
	env := newEnv(t)
	c := newClient(t, env)

	res, err := c.SendCallback(model.PaymentCallback{
		EventID:   "evt-x",
		OrderID:   1,
		Reference: "UPI0000",
		Outcome:   model.PaymentOutcomeSucceeded,
	}, "wrong-secret")
	require.NoError(t, err)

	assert.Equal(t, http.StatusBadRequest, res.Status)
}

func TestServer_RefreshRequiresCsrf(t *testing.T) {
	env := newEnv(t)
	c := newClient(t, env)
	signup(t, c, "csrf@example.com")

	oldRefresh := c.Cookie("refresh_token")
	csrf := c.Cookie("csrf_token")
	require.NotEmpty(t, oldRefresh)
	require.NotEmpty(t, csrf)

	res, err := c.Do(http.MethodPost, "/auth/refresh", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, res.Status)

	res, err = c.Do(http.MethodPost, "/auth/refresh", nil, map[string]string{"X-CSRF-Token": csrf})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.Status, string(res.Body))

	var tok struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(t, res.Decode(&tok))
	assert.NotEmpty(t, tok.AccessToken)
	assert.NotEqual(t, oldRefresh, c.Cookie("refresh_token"))
}

func TestServer_AdminRoutesRequireAdmin(t *testing.T) {
	env := newEnv(t)
	c := newClient(t, env)
	signup(t, c, "plain@example.com")

	res, err := c.Do(http.MethodGet, "/admin/orders", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, res.Status)

	//roleはJWTに入るので昇格後に取り直す
	require.NoError(t, env.PromoteAdmin("plain@example.com"))
	_, err = c.Login("plain@example.com", "password123")
	require.NoError(t, err)

	res, err = c.Do(http.MethodGet, "/admin/orders", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.Status, string(res.Body))
}

// カートに入れて決済まで済ませた注文IDを返す
func buyAndPay(t *testing.T, env *servertest.Env, c *servertest.Client, productID int64, qty int64) int64 {
	t.Helper()

	res, err := c.Do(http.MethodPost, "/cart/add/"+strconv.FormatInt(productID, 10), map[string]int64{"quantity": qty}, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.Status, string(res.Body))

	var order struct {
		ID int64 `json:"id"`
	}
	res, err = c.Do(http.MethodPost, "/cart/checkout", nil, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, res.Status, string(res.Body))
	require.NoError(t, res.Decode(&order))

	var checkout struct {
		Reference string `json:"reference"`
	}
	res, err = c.Do(http.MethodPost, "/checkout/"+strconv.FormatInt(order.ID, 10), nil, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.Status, string(res.Body))
	require.NoError(t, res.Decode(&checkout))

	res, err = c.SendCallback(model.PaymentCallback{
		EventID:   "evt-" + strconv.FormatInt(order.ID, 10),
		OrderID:   order.ID,
		Reference: checkout.Reference,
		Outcome:   model.PaymentOutcomeSucceeded,
	}, servertest.WebhookSecret)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.Status, string(res.Body))

	status, err := env.OrderStatus(order.ID)
	require.NoError(t, err)
	require.Equal(t, model.OrderStatusPaid, status)
	return order.ID
}

func TestServer_DownloadSurvivesProductRetirement(t *testing.T) {
	env := newEnv(t)
	c := newClient(t, env)
	p, err := env.SeedProduct("Go Course", "10.00", "course.zip")
	require.NoError(t, err)

	signup(t, c, "keeper@example.com")
	buyAndPay(t, env, c, p.ID, 1)

	download := "/download/" + strconv.FormatInt(p.ID, 10)

	//販売終了
	require.NoError(t, env.DB.Model(&model.Product{}).Where("id = ?", p.ID).Update("is_active", false).Error)
	res, err := c.Do(http.MethodGet, download, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.Status, string(res.Body))
	assert.Equal(t, "contents of course.zip", string(res.Body))

	//論理削除
	require.NoError(t, env.DB.Delete(&model.Product{}, p.ID).Error)
	res, err = c.Do(http.MethodGet, download, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.Status, string(res.Body))

	//買っていない人には見えないまま
	stranger := newClient(t, env)
	signup(t, stranger, "stranger@example.com")
	res, err = stranger.Do(http.MethodGet, download, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, res.Status)
}

func TestServer_RetiredFreeProductIsNotDownloadable(t *testing.T) {
	env := newEnv(t)
	c := newClient(t, env)
	p, err := env.SeedProduct("Free Icons", "0", "icons.zip")
	require.NoError(t, err)
	signup(t, c, "free@example.com")

	download := "/download/" + strconv.FormatInt(p.ID, 10)
	res, err := c.Do(http.MethodGet, download, nil, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.Status, string(res.Body))

	require.NoError(t, env.DB.Model(&model.Product{}).Where("id = ?", p.ID).Update("is_active", false).Error)
	res, err = c.Do(http.MethodGet, download, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, res.Status)
}

func TestServer_IdempotencyKeyIsScopedToUser(t *testing.T) {
	env := newEnv(t)
	p, err := env.SeedProduct("Shared Pack", "4.00", "pack.zip")
	require.NoError(t, err)

	for _, email := range []string{"a@example.com", "b@example.com"} {
		c := newClient(t, env)
		signup(t, c, email)

		res, err := c.Do(http.MethodPost, "/cart/add/"+strconv.FormatInt(p.ID, 10), nil, nil)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, res.Status, string(res.Body))

		res, err = c.Do(http.MethodPost, "/cart/checkout", nil, map[string]string{"X-Idempotency-Key": "checkout-1"})
		require.NoError(t, err)
		assert.Equal(t, http.StatusCreated, res.Status, email+" "+string(res.Body))
	}
}

func TestServer_OrderTotalIgnoresLaterPriceChange(t *testing.T) {
	env := newEnv(t)
	c := newClient(t, env)
	p, err := env.SeedProduct("Go Course", "10.00", "course.zip")
	require.NoError(t, err)
	signup(t, c, "snapshot@example.com")

	res, err := c.Do(http.MethodPost, "/cart/add/"+strconv.FormatInt(p.ID, 10), map[string]int64{"quantity": 2}, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.Status, string(res.Body))

	type orderBody struct {
		ID          int64  `json:"id"`
		TotalAmount string `json:"total_amount"`
		Items       []struct {
			UnitPrice string `json:"unit_price"`
		} `json:"items"`
	}
	var created orderBody
	res, err = c.Do(http.MethodPost, "/cart/checkout", nil, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, res.Status, string(res.Body))
	require.NoError(t, res.Decode(&created))
	require.Equal(t, "20", created.TotalAmount)

	require.NoError(t, env.DB.Model(&model.Product{}).Where("id = ?", p.ID).Update("price", "99.00").Error)

	var got orderBody
	res, err = c.Do(http.MethodGet, "/orders/"+strconv.FormatInt(created.ID, 10), nil, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.Status, string(res.Body))
	require.NoError(t, res.Decode(&got))
	assert.Equal(t, "20", got.TotalAmount)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "10", got.Items[0].UnitPrice)
}

func TestServer_CartTotalFollowsCurrentPrice(t *testing.T) {
	env := newEnv(t)
	c := newClient(t, env)
	p, err := env.SeedProduct("Go Course", "10.00", "course.zip")
	require.NoError(t, err)

	res, err := c.Do(http.MethodPost, "/cart/add/"+strconv.FormatInt(p.ID, 10), map[string]int64{"quantity": 2}, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.Status, string(res.Body))

	require.NoError(t, env.DB.Model(&model.Product{}).Where("id = ?", p.ID).Update("price", "12.50").Error)

	var cart struct {
		Total string `json:"total"`
	}
	res, err = c.Do(http.MethodGet, "/cart", nil, nil)
	require.NoError(t, err)
	require.NoError(t, res.Decode(&cart))
	assert.Equal(t, "25", cart.Total)
}

func TestServer_BuyNowQuantity(t *testing.T) {
	env := newEnv(t)
	c := newClient(t, env)
	p, err := env.SeedProduct("Go Course", "10.00", "course.zip")
	require.NoError(t, err)
	signup(t, c, "direct@example.com")
	path := "/buy/" + strconv.FormatInt(p.ID, 10)

	res, err := c.Do(http.MethodPost, path, map[string]int64{"quantity": 0}, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, res.Status, string(res.Body))

	//bodyなしは1個
	var order struct {
		TotalAmount string `json:"total_amount"`
	}
	res, err = c.Do(http.MethodPost, path, nil, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, res.Status, string(res.Body))
	require.NoError(t, res.Decode(&order))
	assert.Equal(t, "10", order.TotalAmount)
}

func TestServer_CartRejectsRevokedAccessToken(t *testing.T) {
	env := newEnv(t)
	c := newClient(t, env)
	p, err := env.SeedProduct("Go Course", "10.00", "course.zip")
	require.NoError(t, err)
	signup(t, c, "revoked@example.com")

	//force-logout と同じく token_version を上げる
	require.NoError(t, env.DB.Model(&model.User{}).Where("email = ?", "revoked@example.com").Update("token_version", 1).Error)

	res, err := c.Do(http.MethodPost, "/cart/add/"+strconv.FormatInt(p.ID, 10), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, res.Status)

	res, err = c.Do(http.MethodGet, "/cart", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, res.Status)
}
