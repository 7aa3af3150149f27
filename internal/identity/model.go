package identity

import (
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when no user matches the lookup.
	ErrNotFound = errors.New("user not found")
	// ErrAlreadyExists is returned when the username is already registered.
	ErrAlreadyExists = errors.New("user already exists")
	// ErrWrongSecret is returned when the submitted secret does not match.
	ErrWrongSecret = errors.New("wrong secret")
	// ErrInvalidInput is returned when a registration field is missing.
	ErrInvalidInput = errors.New("invalid registration")
)

// User represents a dashboard account.
type User struct {
	ID          string
	Username    string
	DisplayName string
	Email       string
	SecretHash  []byte
	CreatedAt   time.Time
}

// Registration request structure.
type Registration struct {
	Username    string
	DisplayName string
	Email       string
	Secret      string
}
