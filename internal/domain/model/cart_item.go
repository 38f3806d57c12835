package model

import (
	"errors"
	"strconv"
	"strings"
	"time"
)

// カートの持ち主の種類（ゲストかログインユーザー）
type OwnerKind string

const (
	OwnerKindGuest OwnerKind = "guest"
	OwnerKindUser  OwnerKind = "user"
)

var ErrInvalidOwner = errors.New("invalid cart owner")

// Owner はゲストのセッショントークンかユーザーIDのどちらか一方だけを持つ
type Owner struct {
	kind  OwnerKind
	token string
	user  int64
}

func GuestOwner(sessionToken string) Owner {
	return Owner{kind: OwnerKindGuest, token: strings.TrimSpace(sessionToken)}
}

func UserOwner(userID int64) Owner {
	return Owner{kind: OwnerKindUser, user: userID}
}

func (o Owner) Kind() OwnerKind { return o.kind }

func (o Owner) IsGuest() bool { return o.kind == OwnerKindGuest }

// UserID はユーザーのときだけ ok=true
func (o Owner) UserID() (int64, bool) {
	if o.kind != OwnerKindUser {
		return 0, false
	}
	return o.user, true
}

// Ref は cart_items.owner_ref に保存する値
func (o Owner) Ref() string {
	if o.kind == OwnerKindUser {
		return strconv.FormatInt(o.user, 10)
	}
	return o.token
}

func (o Owner) Validate() error {
	switch o.kind {
	case OwnerKindGuest:
		if o.token == "" {
			return ErrInvalidOwner
		}
	case OwnerKindUser:
		if o.user <= 0 {
			return ErrInvalidOwner
		}
	default:
		return ErrInvalidOwner
	}
	return nil
}

func (o Owner) String() string {
	return string(o.kind) + ":" + o.Ref()
}

type CartItem struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	OwnerKind OwnerKind `gorm:"type:varchar(10);not null;uniqueIndex:ux_cart_owner_product,priority:1" json:"-"`
	OwnerRef  string    `gorm:"type:varchar(64);not null;uniqueIndex:ux_cart_owner_product,priority:2" json:"-"`
	ProductID int64     `gorm:"not null;uniqueIndex:ux_cart_owner_product,priority:3;index" json:"product_id"`
	Quantity  int64     `gorm:"not null;check:quantity > 0" json:"quantity"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

// 行が owner のものか
func (c CartItem) BelongsTo(o Owner) bool {
	return c.OwnerKind == o.Kind() && c.OwnerRef == o.Ref()
}
