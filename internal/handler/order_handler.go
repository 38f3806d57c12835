package handler

import (
	"net/http"

	"digistore/internal/config"
	"digistore/internal/middleware"
	"digistore/internal/repository"
	"digistore/internal/usecase"

	"github.com/labstack/echo/v4"
)

type OrderHandler struct {
	uc *usecase.OrderUsecase
}

func NewOrderHandler(uc *usecase.OrderUsecase) *OrderHandler {
	return &OrderHandler{uc: uc}
}

type BuyNowRequest struct {
	Quantity int64 `json:"quantity"`
}

func (h *OrderHandler) RegisterRoutes(e *echo.Echo, cfg config.Config, userRepo repository.UserRepository) {
	auth := []echo.MiddlewareFunc{
		middleware.AuthJWT(cfg),
		middleware.TokenVersionGuard(userRepo),
	}

	e.POST("/buy/:product_id", h.buyNow, auth...)

	e.GET("/checkout/:order_id", h.getCheckout, auth...)
	e.POST("/checkout/:order_id", h.startPayment, auth...)

	e.GET("/orders", h.list, auth...)
	e.GET("/orders/:order_id", h.detail, auth...)
}

func (h *OrderHandler) buyNow(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	productID, ok := parseIDParam(c, "product_id")
	if !ok {
		return badRequest(c, "invalid product_id")
	}

	//bodyなしは1個
	req := BuyNowRequest{Quantity: 1}
	if c.Request().ContentLength > 0 {
		if err := c.Bind(&req); err != nil {
			return badRequest(c, "invalid body")
		}
	}

	idemKey := c.Request().Header.Get("X-Idempotency-Key")

	out, err := h.uc.BuyNow(c.Request().Context(), userID, productID, req.Quantity, idemKey)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, out)
}

func (h *OrderHandler) getCheckout(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	orderID, ok := parseIDParam(c, "order_id")
	if !ok {
		return badRequest(c, "invalid id")
	}

	out, err := h.uc.GetCheckout(c.Request().Context(), userID, orderID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// 決済開始。2回目以降は保存済みの参照番号を返す
func (h *OrderHandler) startPayment(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	orderID, ok := parseIDParam(c, "order_id")
	if !ok {
		return badRequest(c, "invalid id")
	}

	out, err := h.uc.StartPayment(c.Request().Context(), userID, orderID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *OrderHandler) list(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	page, err := queryInt(c, "page", 1)
	if err != nil {
		return badRequest(c, "invalid page")
	}
	limit, err := queryInt(c, "limit", 50)
	if err != nil {
		return badRequest(c, "invalid limit")
	}

	out, err := h.uc.ListMyOrders(c.Request().Context(), userID, page, limit)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *OrderHandler) detail(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	orderID, ok := parseIDParam(c, "order_id")
	if !ok {
		return badRequest(c, "invalid id")
	}

	out, err := h.uc.GetMyOrderDetail(c.Request().Context(), userID, orderID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
