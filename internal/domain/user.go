package domain

import (
	"net/mail"
	"time"

	"github.com/google/uuid"
)

// User represents an account that owns generation batches.
type User struct {
	ID             uuid.UUID `json:"id"`
	Email          string    `json:"email"`
	HashedPassword string    `json:"-"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// NewUser creates a new User with the given email and already-hashed
// password. Password hashing is the auth service's job.
func NewUser(email, hashedPassword string) (*User, error) {
	now := time.Now().UTC()
	u := &User{
		ID:             uuid.New(),
		Email:          email,
		HashedPassword: hashedPassword,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := u.Validate(); err != nil {
		return nil, err
	}

	return u, nil
}

// Validate checks if the User has valid data.
func (u *User) Validate() error {
	if u.ID == uuid.Nil {
		return NewValidationError("id", "cannot be empty", ErrInvalidID)
	}

	if _, err := mail.ParseAddress(u.Email); err != nil {
		return NewValidationError("email", "has invalid format", ErrInvalidEmail)
	}

	if u.HashedPassword == "" {
		return NewValidationError("password", "hash cannot be empty", ErrInvalidPassword)
	}

	return nil
}
