// Package validator は認証まわりの入力チェック。DB を見るのは email 重複だけ。
package validator

import (
	"context"
	"net/http"
	"net/mail"
	"strings"

	"digistore/internal/repository"
	"digistore/internal/usecase"
)

// bcrypt は72バイトより先を無視する
const (
	minPasswordLen = 8
	maxPasswordLen = 72
)

type authValidator struct {
	users repository.UserRepository
}

func NewAuthValidator(users repository.UserRepository) usecase.AuthValidator {
	return &authValidator{users: users}
}

func (v *authValidator) ValidateRegister(ctx context.Context, email string, password string) error {
	addr, err := checkEmail(email)
	if err != nil {
		return err
	}
	if n := len(password); n < minPasswordLen || n > maxPasswordLen {
		return usecase.NewHTTPError(http.StatusBadRequest, "password must be 8 to 72 bytes")
	}

	if u, err := v.users.FindByEmail(ctx, addr); err == nil && u != nil {
		return usecase.NewHTTPError(http.StatusConflict, "email already used")
	}
	return nil
}

// 存在チェックはしない。有無は usecase 側で同じ 401 にまとめる
func (v *authValidator) ValidateLogin(_ context.Context, email string, password string) error {
	if _, err := checkEmail(email); err != nil {
		return err
	}
	if password == "" {
		return usecase.NewHTTPError(http.StatusBadRequest, "password is required")
	}
	return nil
}

func (v *authValidator) ValidateRefresh(_ context.Context, refreshToken string, _ string) error {
	if strings.TrimSpace(refreshToken) == "" {
		return usecase.NewHTTPError(http.StatusUnauthorized, "missing refresh token")
	}
	return nil
}

func (v *authValidator) ValidateLogout(context.Context) error {
	return nil
}

func (v *authValidator) ValidateForceLogout(_ context.Context, targetUserID int64) error {
	if targetUserID < 1 {
		return usecase.NewHTTPError(http.StatusBadRequest, "invalid user id")
	}
	return nil
}

// 小文字化したアドレスを返す。表示名付き("A <a@b.c>")は不可
func checkEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" {
		return "", usecase.NewHTTPError(http.StatusBadRequest, "email is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || !strings.Contains(email[strings.LastIndex(email, "@"):], ".") {
		return "", usecase.NewHTTPError(http.StatusBadRequest, "invalid email")
	}
	return email, nil
}
