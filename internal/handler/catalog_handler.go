package handler

import (
	"encoding/xml"
	"net/http"

	"digistore/internal/config"
	"digistore/internal/middleware"
	"digistore/internal/repository"
	"digistore/internal/usecase"

	"github.com/labstack/echo/v4"
)

// 公開カタログ
type CatalogHandler struct {
	uc      *usecase.CatalogUsecase
	siteURL string
}

func NewCatalogHandler(uc *usecase.CatalogUsecase, siteURL string) *CatalogHandler {
	return &CatalogHandler{uc: uc, siteURL: siteURL}
}

func (h *CatalogHandler) RegisterRoutes(e *echo.Echo, cfg config.Config, userRepo repository.UserRepository) {
	//ログインしていれば閲覧履歴を付ける
	e.GET("/products", h.list)
	e.GET("/products/:slug", h.detail, middleware.OptionalAuthJWT(cfg))
	e.GET("/categories", h.categories)
	e.GET("/featured", h.featured)
	e.GET("/home", h.home)
	e.GET("/sitemap.xml", h.sitemap)

	e.GET("/recently-viewed", h.recentlyViewed,
		middleware.AuthJWT(cfg),
		middleware.TokenVersionGuard(userRepo),
	)
}

func (h *CatalogHandler) list(c echo.Context) error {
	page, err := queryInt(c, "page", 1)
	if err != nil {
		return badRequest(c, "invalid page")
	}
	limit, err := queryInt(c, "limit", 0)
	if err != nil {
		return badRequest(c, "invalid limit")
	}

	out, err := h.uc.ListProducts(c.Request().Context(), usecase.ListProductsInput{
		Page:     page,
		Limit:    limit,
		Q:        c.QueryParam("q"),
		Category: c.QueryParam("category"),
		Featured: c.QueryParam("featured") == "1" || c.QueryParam("featured") == "true",
		Free:     c.QueryParam("free") == "1" || c.QueryParam("free") == "true",
		Sort:     c.QueryParam("sort"),
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *CatalogHandler) detail(c echo.Context) error {
	viewerID, _ := getUserIDFromContext(c)

	out, err := h.uc.GetProductBySlug(c.Request().Context(), c.Param("slug"), viewerID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *CatalogHandler) categories(c echo.Context) error {
	out, err := h.uc.ListCategories(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *CatalogHandler) featured(c echo.Context) error {
	limit, err := queryInt(c, "limit", 8)
	if err != nil {
		return badRequest(c, "invalid limit")
	}
	out, err := h.uc.Featured(c.Request().Context(), limit)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *CatalogHandler) home(c echo.Context) error {
	out, err := h.uc.Home(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *CatalogHandler) recentlyViewed(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	out, err := h.uc.RecentlyViewed(c.Request().Context(), userID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

type sitemapURL struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod,omitempty"`
}

type sitemapURLSet struct {
	XMLName xml.Name     `xml:"urlset"`
	XMLNS   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

func (h *CatalogHandler) sitemap(c echo.Context) error {
	items, err := h.uc.SitemapProducts(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}

	set := sitemapURLSet{XMLNS: "http://www.sitemaps.org/schemas/sitemap/0.9"}
	set.URLs = append(set.URLs, sitemapURL{Loc: h.siteURL + "/"})
	for _, p := range items {
		set.URLs = append(set.URLs, sitemapURL{
			Loc:     h.siteURL + "/products/" + p.Slug + "/",
			LastMod: p.UpdatedAt.Format("2006-01-02"),
		})
	}

	return c.XML(http.StatusOK, set)
}
