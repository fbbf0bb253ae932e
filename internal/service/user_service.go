package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/atelierhq/atelier-api/internal/domain"
	"github.com/atelierhq/atelier-api/internal/service/auth"
	"github.com/atelierhq/atelier-api/internal/store"
)

// UserService provides registration and login.
type UserService interface {
	// Register creates a user account and returns it with a fresh access
	// token.
	Register(ctx context.Context, email, password string) (*domain.User, string, error)

	// Login verifies credentials and returns the user with a fresh access
	// token. Returns ErrInvalidCredentials for an unknown email or wrong
	// password.
	Login(ctx context.Context, email, password string) (*domain.User, string, error)
}

// userServiceImpl implements the UserService interface.
type userServiceImpl struct {
	users     store.UserStore
	jwt       auth.JWTService
	passwords auth.PasswordVerifier
	logger    *slog.Logger
}

// NewUserService creates a new UserService.
// It returns an error if any of the required dependencies are nil.
func NewUserService(
	users store.UserStore,
	jwt auth.JWTService,
	passwords auth.PasswordVerifier,
	logger *slog.Logger,
) (UserService, error) {
	if users == nil {
		return nil, &ServiceError{Operation: "create_service", Message: "user store cannot be nil"}
	}
	if jwt == nil {
		return nil, &ServiceError{Operation: "create_service", Message: "jwt service cannot be nil"}
	}
	if passwords == nil {
		return nil, &ServiceError{Operation: "create_service", Message: "password verifier cannot be nil"}
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &userServiceImpl{
		users:     users,
		jwt:       jwt,
		passwords: passwords,
		logger:    logger.With(slog.String("component", "user_service")),
	}, nil
}

// Register implements UserService.Register.
func (s *userServiceImpl) Register(
	ctx context.Context,
	email, password string,
) (*domain.User, string, error) {
	hash, err := s.passwords.HashPassword(password)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	user, err := domain.NewUser(email, hash)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, store.ErrEmailExists) {
			return nil, "", ErrEmailExists
		}
		return nil, "", NewServiceError("register", "failed to create user", err)
	}

	token, err := s.jwt.GenerateToken(ctx, user.ID)
	if err != nil {
		return nil, "", NewServiceError("register", "failed to issue token", err)
	}

	s.logger.Info("user registered", slog.String("user_id", user.ID.String()))
	return user, token, nil
}

// Login implements UserService.Login.
func (s *userServiceImpl) Login(
	ctx context.Context,
	email, password string,
) (*domain.User, string, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", NewServiceError("login", "failed to load user", err)
	}

	if err := s.passwords.Compare(user.HashedPassword, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", NewServiceError("login", "failed to verify password", err)
	}

	token, err := s.jwt.GenerateToken(ctx, user.ID)
	if err != nil {
		return nil, "", NewServiceError("login", "failed to issue token", err)
	}

	return user, token, nil
}
