package routes

import (
	"github.com/evasion-watch/evasion_watch/internal/audit"
	"github.com/evasion-watch/evasion_watch/internal/identity"
	"github.com/evasion-watch/evasion_watch/internal/mfa"
	"github.com/evasion-watch/evasion_watch/internal/notification"
	"github.com/evasion-watch/evasion_watch/internal/session"
)

type repositories struct {
	identity identity.Repository
	codes    mfa.Repository
	audit    audit.Repository
}

// buildRepositories prefers Postgres, then SQLite, then memory.
func buildRepositories(d Deps) repositories {
	switch {
	case d.DB != nil:
		return repositories{
			identity: identity.NewPostgresRepository(d.DB),
			codes:    mfa.NewPostgresRepository(d.DB),
			audit:    audit.NewPostgresRepository(d.DB),
		}
	case d.SQL != nil:
		return repositories{
			identity: identity.NewSQLiteRepository(d.SQL),
			codes:    mfa.NewSQLiteRepository(d.SQL),
			audit:    audit.NewSQLiteRepository(d.SQL),
		}
	default:
		d.Logger.Warn("no database configured, accounts and codes are kept in memory")
		return repositories{
			identity: identity.NewMemoryRepository(),
			codes:    mfa.NewMemoryRepository(),
			audit:    audit.NewMemoryRepository(),
		}
	}
}

func buildSessionStore(d Deps) session.Store {
	if d.Cache != nil {
		return session.NewRedisStore(d.Cache, d.Cfg.SessionTTL)
	}
	return session.NewMemoryStore(d.Cfg.SessionTTL, d.Now)
}

func buildNotifier(d Deps) (notification.Notifier, error) {
	if d.Notifier != nil {
		return d.Notifier, nil
	}
	if d.Cfg.SMTPHost == "" {
		return notification.NewLoggerNotifier(d.Logger), nil
	}
	smtp, err := notification.NewSMTPNotifier(notification.SMTPConfig{
		Host:     d.Cfg.SMTPHost,
		Port:     d.Cfg.SMTPPort,
		Username: d.Cfg.SMTPUsername,
		Password: d.Cfg.SMTPPassword,
		From:     d.Cfg.SMTPFrom,
	})
	if err != nil {
		return nil, err
	}
	return smtp, nil
}
