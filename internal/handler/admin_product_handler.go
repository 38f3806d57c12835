package handler

import (
	"net/http"

	"digistore/internal/config"
	"digistore/internal/middleware"
	"digistore/internal/repository"
	"digistore/internal/usecase"

	"github.com/labstack/echo/v4"
)

// 価格は丸め誤差を避けるため文字列で受ける（"19.99"）
type ProductUpsertRequest struct {
	Name                string `json:"name"`
	Slug                string `json:"slug"`
	CategorySlug        string `json:"category"`
	Price               string `json:"price"`
	ShortDescription    string `json:"short_description"`
	Description         string `json:"description"`
	ImageKey            string `json:"image_key"`
	ExternalDownloadURL string `json:"external_download_url"`
	Featured            bool   `json:"featured"`
	IsActive            bool   `json:"is_active"`
}

type CategoryCreateRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// /admin/products と /admin/categories をまとめる
type AdminProductHandler struct {
	uc *usecase.AdminProductUsecase
}

// DI
func NewAdminProductHandler(uc *usecase.AdminProductUsecase) *AdminProductHandler {
	return &AdminProductHandler{uc: uc}
}

func (h *AdminProductHandler) RegisterRoutes(e *echo.Echo, cfg config.Config, userRepo repository.UserRepository) {
	admin := e.Group("/admin")

	admin.Use(middleware.AuthJWT(cfg))
	admin.Use(middleware.TokenVersionGuard(userRepo))
	admin.Use(middleware.AdminRoleGuard())

	admin.POST("/categories", h.createCategory)
	admin.POST("/products", h.createProduct)
	admin.PUT("/products/:id", h.updateProduct)
	admin.DELETE("/products/:id", h.deleteProduct)
	admin.POST("/products/:id/file", h.uploadFile)
}

func (req ProductUpsertRequest) toInput() usecase.AdminProductInput {
	return usecase.AdminProductInput{
		Name:                req.Name,
		Slug:                req.Slug,
		CategorySlug:        req.CategorySlug,
		Price:               req.Price,
		ShortDescription:    req.ShortDescription,
		Description:         req.Description,
		ImageKey:            req.ImageKey,
		ExternalDownloadURL: req.ExternalDownloadURL,
		Featured:            req.Featured,
		IsActive:            req.IsActive,
	}
}

func (h *AdminProductHandler) createCategory(c echo.Context) error {
	var req CategoryCreateRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	adminID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	out, err := h.uc.CreateCategory(c.Request().Context(), adminID, usecase.AdminCategoryInput{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, out)
}

func (h *AdminProductHandler) createProduct(c echo.Context) error {
	var req ProductUpsertRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	adminID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	out, err := h.uc.AdminCreateProduct(c.Request().Context(), adminID, req.toInput())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, out)
}

func (h *AdminProductHandler) updateProduct(c echo.Context) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	var req ProductUpsertRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	adminID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	out, err := h.uc.AdminUpdateProduct(c.Request().Context(), adminID, id, req.toInput())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *AdminProductHandler) deleteProduct(c echo.Context) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	adminID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	if err := h.uc.AdminDeleteProduct(c.Request().Context(), adminID, id); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, SuccessResponse{Message: "deleted"})
}

// multipart の "file" を商品ファイルとして保存
func (h *AdminProductHandler) uploadFile(c echo.Context) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	adminID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	fh, err := c.FormFile("file")
	if err != nil {
		return badRequest(c, "file required")
	}
	f, err := fh.Open()
	if err != nil {
		return badRequest(c, "invalid file")
	}
	defer f.Close()

	out, err := h.uc.UploadDigitalFile(c.Request().Context(), adminID, id, fh.Filename, f)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
