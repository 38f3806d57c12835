package validator_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"digistore/internal/domain/model"
	"digistore/internal/usecase"
	"digistore/internal/validator"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type UserRepoMock struct{ mock.Mock }

func (m *UserRepoMock) Create(ctx context.Context, user *model.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *UserRepoMock) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

func (m *UserRepoMock) FindByID(ctx context.Context, id int64) (*model.User, error) {
	args := m.Called(ctx, id)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

func (m *UserRepoMock) Update(ctx context.Context, user *model.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *UserRepoMock) IncrementTokenVersion(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func TestValidateRegister(t *testing.T) {
	tests := []struct {
		name     string
		email    string
		password string
		existing *model.User
		wantErr  error
	}{
		{name: "ok", email: "New@Example.com", password: "password123"},
		{name: "empty email", email: " ", password: "password123", wantErr: usecase.ErrValidation},
		{name: "not an email", email: "user.example.com", password: "password123", wantErr: usecase.ErrValidation},
		{name: "short password", email: "a@example.com", password: "short", wantErr: usecase.ErrValidation},
		{name: "over bcrypt limit", email: "a@example.com", password: strings.Repeat("x", 73), wantErr: usecase.ErrValidation},
		{name: "taken", email: "a@example.com", password: "password123", existing: &model.User{ID: 1}, wantErr: usecase.ErrConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users := new(UserRepoMock)
			users.On("FindByEmail", mock.Anything, mock.Anything).Return(tt.existing, nil)
			v := validator.NewAuthValidator(users)

			err := v.ValidateRegister(context.Background(), tt.email, tt.password)

			if tt.wantErr == nil {
				assert.NoError(t, err)
				users.AssertCalled(t, "FindByEmail", mock.Anything, "new@example.com")
				return
			}
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}
}

func TestValidateLoginAndRefresh(t *testing.T) {
	v := validator.NewAuthValidator(new(UserRepoMock))
	ctx := context.Background()

	assert.NoError(t, v.ValidateLogin(ctx, "a@example.com", "x"))
	assert.True(t, errors.Is(v.ValidateLogin(ctx, "a@example.com", ""), usecase.ErrValidation))
	assert.True(t, errors.Is(v.ValidateRefresh(ctx, " ", "ua"), usecase.ErrUnauthorized))
	assert.True(t, errors.Is(v.ValidateForceLogout(ctx, 0), usecase.ErrValidation))
}
