package middleware

import (
	"net/http"
	"strings"

	"digistore/internal/domain/model"
	"digistore/internal/repository"

	"github.com/labstack/echo/v4"
)

// AuthJWT の後ろに置く。JWTの中身だけでは判断しない
func TokenVersionGuard(users repository.UserRepository) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims, ok := claimsFromContext(c)
			if !ok {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}
			if status, msg := checkTokenVersion(c, users, claims); status != 0 {
				return c.JSON(status, errorJSON(msg))
			}
			return next(c)
		}
	}
}

// OptionalAuthJWT の後ろに置く。ゲストは素通し、ログイン中なら TokenVersionGuard と同じ判定
func OptionalTokenVersionGuard(users repository.UserRepository) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims, ok := claimsFromContext(c)
			if !ok {
				return next(c)
			}
			if status, msg := checkTokenVersion(c, users, claims); status != 0 {
				return c.JSON(status, errorJSON(msg))
			}
			return next(c)
		}
	}
}

// 通すなら status=0
func checkTokenVersion(c echo.Context, users repository.UserRepository, claims accessClaims) (int, string) {
	user, err := users.FindByID(c.Request().Context(), claims.userID)
	if err != nil {
		return http.StatusInternalServerError, "internal error"
	}
	//削除済み・force-logout済み・停止中はまとめて401
	if user == nil || user.TokenVersion != claims.tokenVersion || !user.IsActive {
		return http.StatusUnauthorized, "unauthorized"
	}
	return 0, ""
}

func AdminRoleGuard() echo.MiddlewareFunc {
	return RequireRole(model.RoleAdmin)
}

func RequireRole(role model.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			got, _ := c.Get(CtxUserRoleKey).(string)
			if got == "" {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}
			if model.Role(got) != role {
				return c.JSON(http.StatusForbidden, errorJSON(strings.ToLower(string(role))+" only"))
			}
			return next(c)
		}
	}
}

// AuthJWT が積んだ値を取り出す
func claimsFromContext(c echo.Context) (accessClaims, bool) {
	id, ok := c.Get(CtxUserIDKey).(int64)
	if !ok || id <= 0 {
		return accessClaims{}, false
	}
	tv, ok := c.Get(CtxTokenVersionKey).(int)
	if !ok || tv < 0 {
		return accessClaims{}, false
	}
	role, _ := c.Get(CtxUserRoleKey).(string)
	return accessClaims{userID: id, role: role, tokenVersion: tv}, true
}
