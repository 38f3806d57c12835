package handler

import (
	"io"
	"net/http"

	"digistore/internal/usecase"

	"github.com/labstack/echo/v4"
)

const (
	SignatureHeader   = "X-Signature"
	maxCallbackBodyKB = 64
)

// 決済プロバイダからの通知
type PaymentHandler struct {
	uc *usecase.PaymentUsecase
}

func NewPaymentHandler(uc *usecase.PaymentUsecase) *PaymentHandler {
	return &PaymentHandler{uc: uc}
}

func (h *PaymentHandler) RegisterRoutes(e *echo.Echo) {
	e.POST("/payment/callback", h.callback)
}

// 署名は生のbodyで検証するのでBindしない
func (h *PaymentHandler) callback(c echo.Context) error {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxCallbackBodyKB<<10))
	if err != nil {
		return badRequest(c, "invalid body")
	}

	out, err := h.uc.HandleCallback(c.Request().Context(), body, c.Request().Header.Get(SignatureHeader))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
