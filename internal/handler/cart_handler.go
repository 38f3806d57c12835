package handler

import (
	"net/http"

	"digistore/internal/config"
	"digistore/internal/middleware"
	"digistore/internal/repository"
	"digistore/internal/usecase"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// /cartのHTTP。ゲストでも使える（チェックアウトだけログイン必須）
type CartHandler struct {
	uc     *usecase.CartUsecase
	orders *usecase.OrderUsecase
}

// DI
func NewCartHandler(uc *usecase.CartUsecase, orders *usecase.OrderUsecase) *CartHandler {
	return &CartHandler{uc: uc, orders: orders}
}

type AddCartRequest struct {
	Quantity int64 `json:"quantity"`
}

// /cart, /cart/add/:product_id, /cart/remove/:product_id, /cart/checkout を登録
func (h *CartHandler) RegisterRoutes(e *echo.Echo, cfg config.Config, userRepo repository.UserRepository, guests middleware.GuestStore, log *zap.Logger) {
	g := e.Group("/cart")
	g.Use(middleware.OptionalAuthJWT(cfg))
	g.Use(middleware.OptionalTokenVersionGuard(userRepo))
	g.Use(middleware.GuestSession(guests, cfg.CookieSecure, log))

	g.GET("", h.getCart)
	g.POST("/add/:product_id", h.addItem)
	g.POST("/remove/:product_id", h.removeItem)

	g.POST("/checkout", h.checkout,
		middleware.AuthJWT(cfg),
		middleware.TokenVersionGuard(userRepo),
	)
}

func (h *CartHandler) getCart(c echo.Context) error {
	owner, ok := middleware.CartOwner(c)
	if !ok {
		return unauthorized(c)
	}

	out, err := h.uc.GetCart(c.Request().Context(), owner)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *CartHandler) addItem(c echo.Context) error {
	owner, ok := middleware.CartOwner(c)
	if !ok {
		return unauthorized(c)
	}
	productID, ok := parseIDParam(c, "product_id")
	if !ok {
		return badRequest(c, "invalid product_id")
	}

	//bodyなしは1個
	req := AddCartRequest{Quantity: 1}
	if c.Request().ContentLength > 0 {
		if err := c.Bind(&req); err != nil {
			return badRequest(c, "invalid body")
		}
	}

	out, err := h.uc.AddItem(c.Request().Context(), owner, productID, req.Quantity)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *CartHandler) removeItem(c echo.Context) error {
	owner, ok := middleware.CartOwner(c)
	if !ok {
		return unauthorized(c)
	}
	productID, ok := parseIDParam(c, "product_id")
	if !ok {
		return badRequest(c, "invalid product_id")
	}

	out, err := h.uc.RemoveItem(c.Request().Context(), owner, productID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *CartHandler) checkout(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	//二重送信防止キーはヘッダーから受け取る（bodyには入れない）
	idemKey := c.Request().Header.Get("X-Idempotency-Key")

	out, err := h.orders.CheckoutCart(c.Request().Context(), userID, idemKey)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, out)
}
