package service

import (
	"context"
	"errors"
	"testing"

	"github.com/atelierhq/atelier-api/internal/domain"
	"github.com/atelierhq/atelier-api/internal/service/auth"
	"github.com/atelierhq/atelier-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newUserService(t *testing.T, users *MockUserStore, jwt *MockJWTService, passwords *MockPasswordVerifier) UserService {
	svc, err := NewUserService(users, jwt, passwords, testLogger())
	require.NoError(t, err)
	return svc
}

func TestRegister(t *testing.T) {
	ctx := context.Background()

	t.Run("creates the user and issues a token", func(t *testing.T) {
		users := new(MockUserStore)
		jwt := new(MockJWTService)
		passwords := new(MockPasswordVerifier)
		svc := newUserService(t, users, jwt, passwords)

		passwords.On("HashPassword", "correct-horse-battery").Return("$2a$10$hash", nil)
		users.On("Create", mock.Anything, mock.AnythingOfType("*domain.User")).Return(nil)
		jwt.On("GenerateToken", mock.Anything, mock.Anything).Return("token123", nil)

		user, token, err := svc.Register(ctx, "artist@example.com", "correct-horse-battery")
		require.NoError(t, err)
		assert.Equal(t, "artist@example.com", user.Email)
		assert.Equal(t, "$2a$10$hash", user.HashedPassword)
		assert.Equal(t, "token123", token)
	})

	t.Run("duplicate email maps to sentinel", func(t *testing.T) {
		users := new(MockUserStore)
		jwt := new(MockJWTService)
		passwords := new(MockPasswordVerifier)
		svc := newUserService(t, users, jwt, passwords)

		passwords.On("HashPassword", mock.Anything).Return("$2a$10$hash", nil)
		users.On("Create", mock.Anything, mock.Anything).Return(store.ErrEmailExists)

		_, _, err := svc.Register(ctx, "artist@example.com", "correct-horse-battery")
		assert.ErrorIs(t, err, ErrEmailExists)
	})

	t.Run("weak password rejected before any store call", func(t *testing.T) {
		users := new(MockUserStore)
		jwt := new(MockJWTService)
		passwords := new(MockPasswordVerifier)
		svc := newUserService(t, users, jwt, passwords)

		passwords.On("HashPassword", "short").Return("", errors.New("too short"))

		_, _, err := svc.Register(ctx, "artist@example.com", "short")
		assert.ErrorIs(t, err, ErrInvalidRequest)
		users.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}

func TestLogin(t *testing.T) {
	ctx := context.Background()

	newStoredUser := func(t *testing.T) *domain.User {
		user, err := domain.NewUser("artist@example.com", "$2a$10$hash")
		require.NoError(t, err)
		return user
	}

	t.Run("valid credentials return a token", func(t *testing.T) {
		users := new(MockUserStore)
		jwt := new(MockJWTService)
		passwords := new(MockPasswordVerifier)
		svc := newUserService(t, users, jwt, passwords)

		user := newStoredUser(t)
		users.On("GetByEmail", mock.Anything, user.Email).Return(user, nil)
		passwords.On("Compare", user.HashedPassword, "correct-horse-battery").Return(nil)
		jwt.On("GenerateToken", mock.Anything, user.ID).Return("token123", nil)

		got, token, err := svc.Login(ctx, user.Email, "correct-horse-battery")
		require.NoError(t, err)
		assert.Equal(t, user.ID, got.ID)
		assert.Equal(t, "token123", token)
	})

	t.Run("unknown email and wrong password are indistinguishable", func(t *testing.T) {
		users := new(MockUserStore)
		jwt := new(MockJWTService)
		passwords := new(MockPasswordVerifier)
		svc := newUserService(t, users, jwt, passwords)

		users.On("GetByEmail", mock.Anything, "nobody@example.com").
			Return(nil, store.ErrUserNotFound)

		_, _, err := svc.Login(ctx, "nobody@example.com", "whatever-password")
		assert.ErrorIs(t, err, ErrInvalidCredentials)

		user := newStoredUser(t)
		users.On("GetByEmail", mock.Anything, user.Email).Return(user, nil)
		passwords.On("Compare", user.HashedPassword, "wrong-password").
			Return(auth.ErrPasswordMismatch)

		_, _, err = svc.Login(ctx, user.Email, "wrong-password")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})
}
