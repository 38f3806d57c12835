package usecase

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	//400 入力不足
	ErrValidation = errors.New("validation error")
	//400 決済の照合に失敗（署名・参照番号）
	ErrPaymentVerification = errors.New("payment verification failed")
	//401 認証失敗
	ErrUnauthorized = errors.New("unauthorized")
	//403　権限
	ErrForbidden = errors.New("forbidden")
	//403 ダウンロード不可
	ErrAccessDenied = errors.New("access denied")
	//404
	ErrNotFound = errors.New("not found")
	//409 許可されていないステータス遷移
	ErrInvalidTransition = errors.New("invalid status transition")
	//競合
	ErrConflict = errors.New("conflict")
	//401 再利用されてしまっている
	ErrSecurityIncident = errors.New("security incident")
	//500
	ErrInternal = errors.New("internal error")
)

// handler はこれを見てステータスを決める。Kind で errors.Is できる。
type HTTPError struct {
	Status  int
	Message string
	Kind    error
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

func (e *HTTPError) Unwrap() error {
	return e.Kind
}

func NewHTTPError(status int, message string) error {
	return &HTTPError{
		Status:  status,
		Message: message,
		Kind:    kindForStatus(status),
	}
}

func newKindError(kind error, status int, message string) error {
	return &HTTPError{Status: status, Message: message, Kind: kind}
}

func AsHTTPError(err error) (*HTTPError, bool) {
	var he *HTTPError
	ok := errors.As(err, &he)
	return he, ok
}

func kindForStatus(status int) error {
	switch status {
	case http.StatusBadRequest:
		return ErrValidation
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusConflict:
		return ErrConflict
	default:
		return ErrInternal
	}
}

func validationError(msg string) error {
	return newKindError(ErrValidation, http.StatusBadRequest, msg)
}

func notFound() error {
	return newKindError(ErrNotFound, http.StatusNotFound, "not found")
}

func accessDenied(msg string) error {
	return newKindError(ErrAccessDenied, http.StatusForbidden, msg)
}

func paymentVerification(msg string) error {
	return newKindError(ErrPaymentVerification, http.StatusBadRequest, msg)
}

func invalidTransition(from, to string) error {
	return newKindError(ErrInvalidTransition, http.StatusConflict, "cannot change "+from+" order to "+to)
}

func dbError() error {
	return newKindError(ErrInternal, http.StatusInternalServerError, "db error")
}
