package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/evasion-watch/evasion_watch/internal/metrics"
)

// Logger records protected actions and serves the audit trail.
type Logger struct {
	repo   Repository
	logger *slog.Logger
	now    func() time.Time
}

// NewLogger builds an audit logger. now may be nil.
func NewLogger(repo Repository, logger *slog.Logger, now func() time.Time) *Logger {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Logger{repo: repo, logger: logger, now: now}
}

// Record appends an entry. Best-effort: a failed write is logged and counted,
// never returned, so the action that triggered it proceeds.
func (l *Logger) Record(ctx context.Context, username, action, detail string) {
	if l == nil || l.repo == nil {
		return
	}
	ts := l.now().UTC()
	entry := Entry{
		ID:        ulid.MustNew(ulid.Timestamp(ts), ulid.DefaultEntropy()).String(),
		Username:  username,
		Action:    action,
		Detail:    detail,
		Timestamp: ts,
	}
	if err := l.repo.Append(ctx, entry); err != nil {
		metrics.AuditWriteFailures.Inc()
		l.logger.Error("audit write failed",
			slog.String("username", username),
			slog.String("action", action),
			slog.Any("error", err),
		)
	}
}

// Query returns entries newest first.
func (l *Logger) Query(ctx context.Context, f Filter) ([]Entry, error) {
	return l.repo.List(ctx, f)
}
