package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// maxSecretBytes is the longest input bcrypt accepts.
const maxSecretBytes = 72

// Service manages the credential store.
type Service struct {
	repo Repository
	cost int
	now  func() time.Time
}

// NewService creates a new identity service hashing secrets at the given bcrypt cost.
func NewService(repo Repository, cost int) *Service {
	if cost < bcrypt.MinCost {
		cost = bcrypt.DefaultCost
	}
	if cost > bcrypt.MaxCost {
		cost = bcrypt.MaxCost
	}
	return &Service{repo: repo, cost: cost, now: time.Now}
}

// Register creates a new user and stores a salted hash of the secret.
func (s *Service) Register(ctx context.Context, reg Registration) (User, error) {
	if strings.TrimSpace(reg.Username) == "" || strings.TrimSpace(reg.DisplayName) == "" ||
		strings.TrimSpace(reg.Email) == "" || reg.Secret == "" {
		return User{}, fmt.Errorf("%w: username, display name, email and secret are required", ErrInvalidInput)
	}
	if !strings.Contains(reg.Email, "@") {
		return User{}, fmt.Errorf("%w: email address is malformed", ErrInvalidInput)
	}
	if len(reg.Secret) > maxSecretBytes {
		return User{}, fmt.Errorf("%w: secret must be at most %d bytes", ErrInvalidInput, maxSecretBytes)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(reg.Secret), s.cost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return User{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if err != nil {
		return User{}, fmt.Errorf("hash secret: %w", err)
	}

	user := User{
		ID:          uuid.New().String(),
		Username:    reg.Username,
		DisplayName: reg.DisplayName,
		Email:       reg.Email,
		SecretHash:  hash,
		CreatedAt:   s.now().UTC(),
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return User{}, err
	}

	return user, nil
}

// Authenticate looks the user up by username and verifies the secret.
func (s *Service) Authenticate(ctx context.Context, username, secret string) (User, error) {
	user, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		return User{}, err
	}

	if err := bcrypt.CompareHashAndPassword(user.SecretHash, []byte(secret)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return User{}, ErrWrongSecret
		}
		return User{}, fmt.Errorf("compare secret: %w", err)
	}

	return user, nil
}

// Get returns the user with the given id.
func (s *Service) Get(ctx context.Context, id string) (User, error) {
	return s.repo.FindByID(ctx, id)
}
