package handler

import (
	"errors"
	"net/http"
	"time"

	"digistore/internal/config"
	"digistore/internal/middleware"
	"digistore/internal/repository"
	"digistore/internal/usecase"

	"github.com/labstack/echo/v4"
)

type AdminOrderHandler struct {
	uc *usecase.AdminOrderUsecase
}

func NewAdminOrderHandler(uc *usecase.AdminOrderUsecase) *AdminOrderHandler {
	return &AdminOrderHandler{uc: uc}
}

func (h *AdminOrderHandler) RegisterRoutes(e *echo.Echo, cfg config.Config, userRepo repository.UserRepository) {
	g := e.Group("/admin/orders",
		middleware.AuthJWT(cfg),
		middleware.TokenVersionGuard(userRepo),
		middleware.AdminRoleGuard(),
	)
	g.GET("", h.list)
	g.POST("/:order_id/refund", h.refund)
	g.GET("/:order_id/audit", h.audit)
}

// GET /admin/orders?status=paid&user_id=3&from=2024-01-01T00:00:00Z
func (h *AdminOrderHandler) list(c echo.Context) error {
	f := repository.OrderFilter{Page: 1, Limit: 50}
	var (
		userID   int64
		from, to time.Time
	)
	err := echo.QueryParamsBinder(c).
		Int("page", &f.Page).
		Int("limit", &f.Limit).
		String("status", &f.Status).
		Int64("user_id", &userID).
		Time("from", &from, time.RFC3339).
		Time("to", &to, time.RFC3339).
		BindError()
	if err != nil {
		var be *echo.BindingError
		if errors.As(err, &be) && len(be.Field) > 0 {
			return badRequest(c, "invalid "+be.Field)
		}
		return badRequest(c, "invalid query")
	}

	if userID != 0 {
		f.UserID = &userID
	}
	if !from.IsZero() {
		f.From = &from
	}
	if !to.IsZero() {
		f.To = &to
	}

	out, err := h.uc.List(c.Request().Context(), f)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// body は任意 {"reason": "..."}
func (h *AdminOrderHandler) refund(c echo.Context) error {
	orderID, ok := parseIDParam(c, "order_id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	adminID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	var body struct {
		Reason string `json:"reason"`
	}
	if c.Request().ContentLength > 0 {
		if err := c.Bind(&body); err != nil {
			return badRequest(c, "invalid body")
		}
	}

	out, err := h.uc.Refund(c.Request().Context(), adminID, orderID, body.Reason)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *AdminOrderHandler) audit(c echo.Context) error {
	orderID, ok := parseIDParam(c, "order_id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	logs, err := h.uc.AuditTrail(c.Request().Context(), orderID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, logs)
}
