package session

import (
	"errors"
	"time"
)

var (
	// ErrNotFound is returned for unknown or expired session ids.
	ErrNotFound = errors.New("session not found")
	// ErrNotPending is returned when a code is submitted outside MfaPending.
	ErrNotPending = errors.New("no code pending for this session")
	// ErrNotAuthenticated is returned when a protected operation runs before MFA.
	ErrNotAuthenticated = errors.New("session not authenticated")
)

// State is a step of the login sequence.
type State string

const (
	Anonymous           State = "anonymous"
	CredentialsVerified State = "credentials_verified"
	MfaPending          State = "mfa_pending"
	Authenticated       State = "authenticated"
)

// Session is the server-side state of one interactive client.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id,omitempty"`
	Username  string    `json:"username,omitempty"`
	State     State     `json:"state"`
	CodeSent  bool      `json:"code_sent"`
	MFAPassed bool      `json:"mfa_passed"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// reset clears every identity field, keeping only the id and creation time.
func (s Session) reset(now time.Time) Session {
	return Session{ID: s.ID, State: Anonymous, CreatedAt: s.CreatedAt, UpdatedAt: now}
}
