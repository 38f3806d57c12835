package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"digistore/internal/config"

	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
)

const (
	CtxUserIDKey       = "user_id"       // int64
	CtxUserRoleKey     = "user_role"     // string
	CtxTokenVersionKey = "token_version" // int
)

// bearerAuth用のJWT検証ミドルウェア。
func AuthJWT(cfg config.Config) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims, err := parseBearer(cfg, c.Request().Header.Get("Authorization"))
			if err != nil {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}

			setClaims(c, claims)
			return next(c)
		}
	}
}

// ゲストでも通すルート用。トークンが正しければcontextに入れる
func OptionalAuthJWT(cfg config.Config) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authz := c.Request().Header.Get("Authorization")
			if authz == "" {
				return next(c)
			}
			claims, err := parseBearer(cfg, authz)
			if err != nil {
				//期限切れでも閲覧は続けられるようにする
				return next(c)
			}
			setClaims(c, claims)
			return next(c)
		}
	}
}

type accessClaims struct {
	userID       int64
	role         string
	tokenVersion int
}

var errInvalidToken = errors.New("invalid token")

//contextへ保存
func setClaims(c echo.Context, claims accessClaims) {
	c.Set(CtxUserIDKey, claims.userID)
	c.Set(CtxUserRoleKey, claims.role)
	c.Set(CtxTokenVersionKey, claims.tokenVersion)
}

// アクセストークンの中身。sub は数値で入っている
type tokenClaims struct {
	Sub  int64  `json:"sub"`
	Role string `json:"role"`
	TV   int    `json:"tv"`
	Exp  int64  `json:"exp"`
}

func (tc tokenClaims) Valid() error {
	if tc.Exp == 0 || time.Now().Unix() >= tc.Exp {
		return errInvalidToken
	}
	if tc.Sub <= 0 || tc.Role == "" || tc.TV < 0 {
		return errInvalidToken
	}
	return nil
}

func parseBearer(cfg config.Config, authz string) (accessClaims, error) {
	scheme, raw, found := strings.Cut(authz, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(raw) == "" {
		return accessClaims{}, errInvalidToken
	}

	var tc tokenClaims
	_, err := jwt.ParseWithClaims(strings.TrimSpace(raw), &tc, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errInvalidToken
		}
		return []byte(cfg.JWTSecret), nil
	})
	if err != nil {
		return accessClaims{}, errInvalidToken
	}

	return accessClaims{userID: tc.Sub, role: tc.Role, tokenVersion: tc.TV}, nil
}

type errorResponse struct {
	Error string `json:"error"`
}

func errorJSON(msg string) errorResponse {
	return errorResponse{Error: msg}
}
