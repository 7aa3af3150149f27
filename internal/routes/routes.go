package routes

import (
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/evasion-watch/evasion_watch/internal/audit"
	"github.com/evasion-watch/evasion_watch/internal/auth"
	"github.com/evasion-watch/evasion_watch/internal/config"
	"github.com/evasion-watch/evasion_watch/internal/identity"
	"github.com/evasion-watch/evasion_watch/internal/mfa"
	"github.com/evasion-watch/evasion_watch/internal/middleware"
	"github.com/evasion-watch/evasion_watch/internal/notification"
	"github.com/evasion-watch/evasion_watch/internal/session"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	SQL    *sql.DB
	Cache  *redis.Client
	Logger *slog.Logger

	// Optional overrides, used by tests.
	Notifier      notification.Notifier
	Now           func() time.Time
	CodeGenerator mfa.Generator
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if !d.Cfg.IsDev() {
		if d.DB == nil && d.SQL == nil {
			return fmt.Errorf("a database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.RequestLog(d.Logger))

	RegisterHealthRoutes(app, d)

	repos := buildRepositories(d)
	notifier, err := buildNotifier(d)
	if err != nil {
		return err
	}

	identitySvc := identity.NewService(repos.identity, d.Cfg.BcryptCost)
	mfaOpts := []mfa.Option{mfa.WithClock(d.Now)}
	if d.CodeGenerator != nil {
		mfaOpts = append(mfaOpts, mfa.WithGenerator(d.CodeGenerator))
	}
	codes := mfa.NewService(repos.codes, notifier, d.Cfg.CodeTTL, d.Logger, mfaOpts...)
	gate := session.NewGate(buildSessionStore(d), identitySvc, codes, d.Logger, d.Now)
	auditLog := audit.NewLogger(repos.audit, d.Logger, d.Now)

	secret, err := sessionSecret(d)
	if err != nil {
		return err
	}
	signer := auth.NewSigner(secret, d.Cfg.SessionTTL, d.Now)
	authHandler := auth.NewHandler(gate, identitySvc, signer, auditLog, !d.Cfg.IsDev())

	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": middleware.RequestIDFrom(c),
			"timestamp":  d.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	// Public routes
	idem := middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger)
	RegisterIdentityRoutes(api, identity.NewHandler(identitySvc), idem)
	token := middleware.SessionToken(signer)
	RegisterAuthRoutes(api, authHandler, token, middleware.LoginRateLimit(d.Cache, d.Cfg.LoginRate))

	// Protected routes
	protected := api.Group("", token, middleware.RequireAuthenticated(gate))
	RegisterPageRoutes(protected, auditLog, d.Cfg.Admins())

	return nil
}

// sessionSecret returns the configured signing key. Development runs without
// one get a random key, so tokens do not survive a restart.
func sessionSecret(d Deps) (string, error) {
	if d.Cfg.SessionSecret != "" {
		return d.Cfg.SessionSecret, nil
	}
	if !d.Cfg.IsDev() {
		return "", fmt.Errorf("SESSION_SECRET is required when APP_ENV=%s", d.Cfg.AppEnv)
	}
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate session secret: %w", err)
	}
	d.Logger.Warn("SESSION_SECRET not set, using an ephemeral key")
	return hex.EncodeToString(buf), nil
}
