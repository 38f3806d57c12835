package handler

import (
	"mime"
	"net/http"
	"path"

	"digistore/internal/config"
	"digistore/internal/middleware"
	"digistore/internal/repository"
	"digistore/internal/usecase"

	"github.com/labstack/echo/v4"
)

type DownloadHandler struct {
	uc *usecase.DownloadUsecase
}

func NewDownloadHandler(uc *usecase.DownloadUsecase) *DownloadHandler {
	return &DownloadHandler{uc: uc}
}

func (h *DownloadHandler) RegisterRoutes(e *echo.Echo, cfg config.Config, userRepo repository.UserRepository) {
	e.GET("/download/:product_id", h.download,
		middleware.AuthJWT(cfg),
		middleware.TokenVersionGuard(userRepo),
	)
}

// 外部URLならリダイレクト、それ以外はファイルをそのまま流す
func (h *DownloadHandler) download(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	productID, ok := parseIDParam(c, "product_id")
	if !ok {
		return badRequest(c, "invalid product_id")
	}

	out, err := h.uc.Prepare(c.Request().Context(), userID, productID)
	if err != nil {
		return writeError(c, err)
	}
	if out.RedirectURL != "" {
		return c.Redirect(http.StatusFound, out.RedirectURL)
	}
	defer out.File.Close()

	ctype := mime.TypeByExtension(path.Ext(out.FileName))
	if ctype == "" {
		ctype = echo.MIMEOctetStream
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, mime.FormatMediaType("attachment", map[string]string{"filename": out.FileName}))
	return c.Stream(http.StatusOK, ctype, out.File)
}
