package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// DBなど依存先の疎通確認
type Pinger func(ctx context.Context) error

type HealthHandler struct {
	checks map[string]Pinger
}

func NewHealthHandler(checks map[string]Pinger) *HealthHandler {
	return &HealthHandler{checks: checks}
}

func (h *HealthHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.healthz)
}

func (h *HealthHandler) healthz(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	out := map[string]string{}
	for name, ping := range h.checks {
		if err := ping(ctx); err != nil {
			out[name] = "down"
			status = http.StatusServiceUnavailable
			continue
		}
		out[name] = "ok"
	}
	return c.JSON(status, out)
}
