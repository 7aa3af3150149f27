package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/evasion-watch/evasion_watch/internal/identity"
	"github.com/evasion-watch/evasion_watch/internal/metrics"
	"github.com/evasion-watch/evasion_watch/internal/mfa"
)

// Authenticator verifies a username/secret pair.
type Authenticator interface {
	Authenticate(ctx context.Context, username, secret string) (identity.User, error)
}

// Codes issues and validates one-time codes.
type Codes interface {
	Issue(ctx context.Context, to mfa.Recipient, opts mfa.IssueOptions) (mfa.Issued, error)
	Validate(ctx context.Context, userID, submitted string, now time.Time) (mfa.Verdict, error)
}

// LoginResult is returned by Gate.Login.
type LoginResult struct {
	Session Session
	// CodeReused is true when a code this session sent earlier is still valid
	// and no new one was sent.
	CodeReused bool
	// DispatchErr carries a delivery failure. The code was stored anyway.
	DispatchErr error
}

// Gate drives a session through Anonymous -> CredentialsVerified -> MfaPending
// -> Authenticated. MFA is always required once per session. A session that
// already delivered a still-valid code does not send another on re-login.
type Gate struct {
	store  Store
	users  Authenticator
	codes  Codes
	logger *slog.Logger
	now    func() time.Time
}

// NewGate wires the session gate. now may be nil.
func NewGate(store Store, users Authenticator, codes Codes, logger *slog.Logger, now func() time.Time) *Gate {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{store: store, users: users, codes: codes, logger: logger, now: now}
}

// Start creates an empty anonymous session.
func (g *Gate) Start(ctx context.Context) (Session, error) {
	now := g.now().UTC()
	s := Session{ID: uuid.NewString(), State: Anonymous, CreatedAt: now, UpdatedAt: now}
	if err := g.store.Save(ctx, s); err != nil {
		return Session{}, err
	}
	return s, nil
}

// Get returns the session with the given id.
func (g *Gate) Get(ctx context.Context, sid string) (Session, error) {
	return g.store.Get(ctx, sid)
}

// Login checks credentials and moves the session to MfaPending. A code is
// reused only when this session already delivered it to the same user and it
// is still live; a code whose delivery failed is replaced on the next login.
func (g *Gate) Login(ctx context.Context, sid, username, secret string) (LoginResult, error) {
	s, err := g.store.Get(ctx, sid)
	if err != nil {
		return LoginResult{}, err
	}

	user, err := g.users.Authenticate(ctx, username, secret)
	if err != nil {
		metrics.LoginAttempts.WithLabelValues(loginOutcome(err)).Inc()
		return LoginResult{}, err
	}
	metrics.LoginAttempts.WithLabelValues("ok").Inc()

	now := g.now().UTC()
	reuse := s.CodeSent && s.UserID == user.ID
	s = Session{
		ID:        s.ID,
		UserID:    user.ID,
		Username:  user.Username,
		State:     CredentialsVerified,
		CreatedAt: s.CreatedAt,
		UpdatedAt: now,
	}

	issued, err := g.codes.Issue(ctx, mfa.Recipient{UserID: user.ID, DisplayName: user.DisplayName, Email: user.Email}, mfa.IssueOptions{ReuseLive: reuse})
	if err != nil {
		return LoginResult{}, fmt.Errorf("issue code: %w", err)
	}

	s.State = MfaPending
	s.CodeSent = issued.DispatchErr == nil
	if err := g.store.Save(ctx, s); err != nil {
		return LoginResult{}, err
	}

	g.logger.Info("login credentials verified",
		slog.String("session_id", s.ID),
		slog.String("username", s.Username),
		slog.Bool("code_reused", issued.Reused),
	)
	return LoginResult{Session: s, CodeReused: issued.Reused, DispatchErr: issued.DispatchErr}, nil
}

// SubmitCode validates a code for a session in MfaPending. Accepted moves the
// session to Authenticated, Rejected leaves it pending, and Expired (or a code
// that no longer exists) clears the session back to Anonymous.
func (g *Gate) SubmitCode(ctx context.Context, sid, code string) (mfa.Verdict, Session, error) {
	s, err := g.store.Get(ctx, sid)
	if err != nil {
		return "", Session{}, err
	}
	if s.State != MfaPending {
		return "", s, ErrNotPending
	}

	now := g.now().UTC()
	verdict, err := g.codes.Validate(ctx, s.UserID, code, now)
	if errors.Is(err, mfa.ErrNotFound) {
		s = s.reset(now)
		if saveErr := g.store.Save(ctx, s); saveErr != nil {
			return "", Session{}, saveErr
		}
		return "", s, err
	}
	if err != nil {
		return "", s, err
	}

	switch verdict {
	case mfa.Accepted:
		s.State = Authenticated
		s.MFAPassed = true
		s.UpdatedAt = now
	case mfa.Expired:
		s = s.reset(now)
	default:
		return verdict, s, nil
	}

	if err := g.store.Save(ctx, s); err != nil {
		return "", Session{}, err
	}
	g.logger.Info("access code verdict", slog.String("session_id", s.ID), slog.String("verdict", string(verdict)))
	return verdict, s, nil
}

// Logout returns the session to Anonymous from any state.
func (g *Gate) Logout(ctx context.Context, sid string) (Session, error) {
	s, err := g.store.Get(ctx, sid)
	if err != nil {
		return Session{}, err
	}
	s = s.reset(g.now().UTC())
	if err := g.store.Save(ctx, s); err != nil {
		return Session{}, err
	}
	return s, nil
}

// RequireAuthenticated returns the session if it has passed MFA.
func (g *Gate) RequireAuthenticated(ctx context.Context, sid string) (Session, error) {
	s, err := g.store.Get(ctx, sid)
	if err != nil {
		return Session{}, err
	}
	if s.State != Authenticated || !s.MFAPassed {
		return Session{}, ErrNotAuthenticated
	}
	return s, nil
}

func loginOutcome(err error) string {
	switch {
	case errors.Is(err, identity.ErrNotFound):
		return "not_found"
	case errors.Is(err, identity.ErrWrongSecret):
		return "wrong_secret"
	default:
		return "error"
	}
}
