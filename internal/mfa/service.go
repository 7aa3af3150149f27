package mfa

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/evasion-watch/evasion_watch/internal/metrics"
	"github.com/evasion-watch/evasion_watch/internal/notification"
)

// Recipient identifies who a code is issued to and where it is sent.
type Recipient struct {
	UserID      string
	DisplayName string
	Email       string
}

// IssueOptions tunes a single issuance.
type IssueOptions struct {
	// ReuseLive keeps a still-valid stored code instead of replacing it.
	ReuseLive bool
}

// Issued describes the outcome of Issue.
type Issued struct {
	// Code is the plaintext value sent to the user. Empty when Reused.
	Code     string
	IssuedAt time.Time
	Reused   bool
	// DispatchErr is set when the code was stored but could not be delivered.
	DispatchErr error
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithGenerator overrides the code generator.
func WithGenerator(g Generator) Option {
	return func(s *Service) { s.generate = g }
}

// Service issues and validates one-time codes.
type Service struct {
	repo     Repository
	notifier notification.Notifier
	ttl      time.Duration
	logger   *slog.Logger
	now      func() time.Time
	generate Generator
}

// NewService builds the code issuer/validator. A non-positive ttl uses DefaultTTL.
func NewService(repo Repository, notifier notification.Notifier, ttl time.Duration, logger *slog.Logger, opts ...Option) *Service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		repo:     repo,
		notifier: notifier,
		ttl:      ttl,
		logger:   logger,
		now:      time.Now,
		generate: GenerateCode,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TTL returns the validity window of issued codes.
func (s *Service) TTL() time.Duration { return s.ttl }

// Issue stores a fresh code for the recipient and emails it. With ReuseLive a
// code that is still valid is kept and nothing is sent.
//
// A dispatch failure does not roll back the stored code; it is reported in
// Issued.DispatchErr and the returned error stays nil.
func (s *Service) Issue(ctx context.Context, to Recipient, opts IssueOptions) (Issued, error) {
	plain, err := s.generate()
	if err != nil {
		return Issued{}, err
	}
	now := s.now().UTC()
	next := Code{UserID: to.UserID, CodeHash: HashCode(plain), IssuedAt: now}

	var keep KeepFunc
	if opts.ReuseLive {
		keep = func(current Code) bool { return current.Live(now, s.ttl) }
	}

	stored, written, err := s.repo.Issue(ctx, next, keep)
	if err != nil {
		return Issued{}, fmt.Errorf("store code: %w", err)
	}
	if !written {
		metrics.CodesIssued.WithLabelValues("reused").Inc()
		return Issued{IssuedAt: stored.IssuedAt, Reused: true}, nil
	}

	out := Issued{Code: plain, IssuedAt: now}
	if s.notifier != nil {
		err := s.notifier.Send(ctx, notification.Message{
			Kind:        notification.KindAccessCode,
			Destination: to.Email,
			Subject:     "Your access code",
			Body:        fmt.Sprintf("Hello %s, your access code is: %s\nIt is valid for %s.", to.DisplayName, plain, s.ttl),
		})
		if err != nil {
			out.DispatchErr = fmt.Errorf("%w: %v", ErrDispatch, err)
			metrics.CodesIssued.WithLabelValues("dispatch_failed").Inc()
			s.logger.Warn("access code dispatch failed", slog.String("user_id", to.UserID), slog.Any("error", err))
			return out, nil
		}
	}
	metrics.CodesIssued.WithLabelValues("issued").Inc()
	return out, nil
}

// Validate checks submitted against the user's stored code at now.
//
// A code is valid while now-IssuedAt is below the TTL. An expired code is
// deleted so the next login issues a new one. ErrNotFound is returned when no
// code is stored.
func (s *Service) Validate(ctx context.Context, userID, submitted string, now time.Time) (Verdict, error) {
	code, err := s.repo.Find(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			metrics.CodeVerdicts.WithLabelValues("missing").Inc()
		}
		return "", err
	}

	if !code.Live(now, s.ttl) {
		if err := s.repo.Delete(ctx, userID, code.CodeHash); err != nil {
			return "", fmt.Errorf("clear expired code: %w", err)
		}
		metrics.CodeVerdicts.WithLabelValues(string(Expired)).Inc()
		return Expired, nil
	}

	if matches(submitted, code.CodeHash) {
		metrics.CodeVerdicts.WithLabelValues(string(Accepted)).Inc()
		return Accepted, nil
	}
	metrics.CodeVerdicts.WithLabelValues(string(Rejected)).Inc()
	return Rejected, nil
}
