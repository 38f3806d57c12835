package handler

import (
	"net/http"

	"digistore/internal/config"
	"digistore/internal/middleware"
	"digistore/internal/repository"
	"digistore/internal/usecase"

	"github.com/labstack/echo/v4"
)

type AdminUserHandler struct {
	uc *usecase.AuthUsecase
}

func NewAdminUserHandler(uc *usecase.AuthUsecase) *AdminUserHandler {
	return &AdminUserHandler{uc: uc}
}

func (h *AdminUserHandler) RegisterRoutes(e *echo.Echo, cfg config.Config, userRepo repository.UserRepository) {
	// /admin 配下は全部「JWT必須 + token_version一致 + ADMIN限定」
	admin := e.Group(
		"/admin",
		middleware.AuthJWT(cfg),
		middleware.TokenVersionGuard(userRepo),
		middleware.AdminRoleGuard(),
	)

	admin.POST("/users/:id/force-logout", h.forceLogout)
}

func (h *AdminUserHandler) forceLogout(c echo.Context) error {
	userID, ok := parseIDParam(c, "id")
	if !ok {
		return badRequest(c, "invalid user_id")
	}
	adminID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	res, err := h.uc.ForceLogout(c.Request().Context(), adminID, userID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}
