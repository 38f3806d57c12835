package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOwner(t *testing.T) {
	g := GuestOwner(" sess-abc ")
	assert.True(t, g.IsGuest())
	assert.Equal(t, "sess-abc", g.Ref())
	_, ok := g.UserID()
	assert.False(t, ok)
	assert.NoError(t, g.Validate())

	u := UserOwner(42)
	assert.False(t, u.IsGuest())
	id, ok := u.UserID()
	assert.True(t, ok)
	assert.Equal(t, int64(42), id)
	assert.Equal(t, "42", u.Ref())
	assert.Equal(t, "user:42", u.String())
	assert.NoError(t, u.Validate())
}

func TestOwner_ValidateRejectsEmpty(t *testing.T) {
	assert.ErrorIs(t, GuestOwner("").Validate(), ErrInvalidOwner)
	assert.ErrorIs(t, UserOwner(0).Validate(), ErrInvalidOwner)
	assert.ErrorIs(t, Owner{}.Validate(), ErrInvalidOwner)
}

func TestCartItem_BelongsTo(t *testing.T) {
	item := CartItem{OwnerKind: OwnerKindUser, OwnerRef: "7", ProductID: 1, Quantity: 1}

	assert.True(t, item.BelongsTo(UserOwner(7)))
	assert.False(t, item.BelongsTo(UserOwner(8)))
	assert.False(t, item.BelongsTo(GuestOwner("7")))
}
