package handler

import (
	"crypto/subtle"
	"net/http"
	"time"

	"digistore/internal/config"
	"digistore/internal/middleware"
	"digistore/internal/repository"
	"digistore/internal/usecase"

	"github.com/labstack/echo/v4"
)

const (
	refreshCookieName = "refresh_token"
	csrfCookieName    = "csrf_token"
	csrfHeaderName    = "X-CSRF-Token"
)

type AuthHandler struct {
	uc           *usecase.AuthUsecase
	refreshTTL   time.Duration // refresh/csrf cookie の有効期限
	cookieSecure bool
}

// DIコンストラクタ
func NewAuthHandler(uc *usecase.AuthUsecase, cookieSecure bool) *AuthHandler {
	return &AuthHandler{
		uc:           uc,
		refreshTTL:   usecase.RefreshTokenTTL,
		cookieSecure: cookieSecure,
	}
}

// /auth/register, /auth/login のリクエストボディ。
type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) RegisterRoutes(e *echo.Echo, cfg config.Config, userRepo repository.UserRepository) {
	g := e.Group("/auth")
	g.POST("/register", h.register)
	g.POST("/login", h.login)
	g.POST("/refresh", h.refresh)
	g.POST("/logout", h.logout)

	g.GET("/me", h.me,
		middleware.AuthJWT(cfg),
		middleware.TokenVersionGuard(userRepo),
	)
}

func (h *AuthHandler) register(c echo.Context) error {
	var req credentialsRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	out, err := h.uc.Register(c.Request().Context(), usecase.Credentials{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, out)
}

// ゲストcookieがあればカートを引き継ぐ
func (h *AuthHandler) login(c echo.Context) error {
	var req credentialsRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	guestToken := ""
	if ck, err := c.Cookie(middleware.GuestCookieName); err == nil {
		guestToken = ck.Value
	}

	// User-Agentを取得（refreshtokenに紐付ける）
	out, err := h.uc.Login(c.Request().Context(), usecase.Credentials{
		Email:    req.Email,
		Password: req.Password,
	}, c.Request().UserAgent(), guestToken)
	if err != nil {
		return writeError(c, err)
	}

	h.setRefreshCookie(c, out.RefreshTokenPlain)
	h.setCsrfCookie(c, out.CsrfTokenPlain)
	if guestToken != "" {
		h.clearCookie(c, middleware.GuestCookieName, true)
	}

	//JSONレスポンス（user + token）
	return c.JSON(http.StatusOK, out.Body)
}

// CSRF Double Submit：cookie csrf_token と header X-CSRF-Token が同じ値
func (h *AuthHandler) refresh(c echo.Context) error {
	if !checkCsrf(c) {
		return c.JSON(http.StatusForbidden, ErrorResponse{Error: "csrf token mismatch"})
	}
	ck, err := c.Cookie(refreshCookieName)
	if err != nil || ck.Value == "" {
		return unauthorized(c)
	}

	out, err := h.uc.Refresh(c.Request().Context(), ck.Value, c.Request().UserAgent())
	if err != nil {
		//盗用疑いのときはcookieも消す
		h.clearCookie(c, refreshCookieName, true)
		h.clearCookie(c, csrfCookieName, false)
		return writeError(c, err)
	}

	h.setRefreshCookie(c, out.RefreshTokenPlain)
	h.setCsrfCookie(c, out.CsrfTokenPlain)
	return c.JSON(http.StatusOK, out.Body)
}

func (h *AuthHandler) logout(c echo.Context) error {
	if !checkCsrf(c) {
		return c.JSON(http.StatusForbidden, ErrorResponse{Error: "csrf token mismatch"})
	}
	plain := ""
	if ck, err := c.Cookie(refreshCookieName); err == nil {
		plain = ck.Value
	}

	out, err := h.uc.Logout(c.Request().Context(), plain)
	if err != nil {
		return writeError(c, err)
	}

	h.clearCookie(c, refreshCookieName, true)
	h.clearCookie(c, csrfCookieName, false)
	return c.JSON(http.StatusOK, out)
}

func (h *AuthHandler) me(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	out, err := h.uc.Me(c.Request().Context(), userID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func checkCsrf(c echo.Context) bool {
	ck, err := c.Cookie(csrfCookieName)
	if err != nil || ck.Value == "" {
		return false
	}
	header := c.Request().Header.Get(csrfHeaderName)
	return subtle.ConstantTimeCompare([]byte(ck.Value), []byte(header)) == 1
}

// refreshtoken をCookieにセット。
func (h *AuthHandler) setRefreshCookie(c echo.Context, plain string) {
	c.SetCookie(&http.Cookie{
		Name:     refreshCookieName,
		Value:    plain,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(h.refreshTTL),
	})
}

// csrftokenをCookieにセット（JSから読むのでHttpOnlyにしない）
func (h *AuthHandler) setCsrfCookie(c echo.Context, token string) {
	c.SetCookie(&http.Cookie{
		Name:     csrfCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: false,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(h.refreshTTL),
	})
}

func (h *AuthHandler) clearCookie(c echo.Context, name string, httpOnly bool) {
	c.SetCookie(&http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: httpOnly,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}
