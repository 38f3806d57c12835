package middleware

import (
	"context"
	"net/http"
	"time"

	"digistore/internal/domain/model"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const (
	CtxGuestTokenKey = "guest_token" // string
	GuestCookieName  = "guest_session"
)

// ゲストトークンの発行と検証（redis か cookie のみ）
type GuestStore interface {
	TTL() time.Duration
	Issue(ctx context.Context) (string, error)
	Valid(ctx context.Context, token string) (bool, error)
	Discard(ctx context.Context, token string) error
}

// ログインしていなければゲストトークンを用意してcontextに入れる。
// OptionalAuthJWTの後ろに置く
func GuestSession(store GuestStore, secure bool, log *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if id, ok := c.Get(CtxUserIDKey).(int64); ok && id > 0 {
				return next(c)
			}

			ctx := c.Request().Context()
			if ck, err := c.Cookie(GuestCookieName); err == nil && ck.Value != "" {
				ok, err := store.Valid(ctx, ck.Value)
				if err != nil {
					log.Error("guest session lookup failed", zap.Error(err))
					return c.JSON(http.StatusInternalServerError, errorJSON("session error"))
				}
				if ok {
					c.Set(CtxGuestTokenKey, ck.Value)
					return next(c)
				}
			}

			token, err := store.Issue(ctx)
			if err != nil {
				log.Error("guest session issue failed", zap.Error(err))
				return c.JSON(http.StatusInternalServerError, errorJSON("session error"))
			}
			c.SetCookie(&http.Cookie{
				Name:     GuestCookieName,
				Value:    token,
				Path:     "/",
				MaxAge:   int(store.TTL().Seconds()),
				HttpOnly: true,
				Secure:   secure,
				SameSite: http.SameSiteLaxMode,
			})
			c.Set(CtxGuestTokenKey, token)
			return next(c)
		}
	}
}

// カートの持ち主。ログイン中ならユーザー、そうでなければゲスト
func CartOwner(c echo.Context) (model.Owner, bool) {
	if id, ok := c.Get(CtxUserIDKey).(int64); ok && id > 0 {
		return model.UserOwner(id), true
	}
	if token, ok := c.Get(CtxGuestTokenKey).(string); ok && token != "" {
		return model.GuestOwner(token), true
	}
	return model.Owner{}, false
}
