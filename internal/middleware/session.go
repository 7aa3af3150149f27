package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/evasion-watch/evasion_watch/internal/auth"
	"github.com/evasion-watch/evasion_watch/internal/session"
)

// SessionToken resolves the session token from the Authorization header or
// the session cookie and stores its session id for the handlers.
func SessionToken(signer *auth.Signer) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := bearerToken(c.Get(fiber.HeaderAuthorization))
		if token == "" {
			token = c.Cookies(auth.CookieName)
		}
		if token == "" {
			return fiber.NewError(http.StatusUnauthorized, "missing session token")
		}
		sid, err := signer.Parse(token)
		if err != nil {
			return fiber.NewError(http.StatusUnauthorized, "invalid session token")
		}
		auth.SetSessionID(c, sid)
		return c.Next()
	}
}

// RequireAuthenticated lets a request through only when its session has
// passed both factors. Must run after SessionToken.
func RequireAuthenticated(gate *session.Gate) fiber.Handler {
	return func(c *fiber.Ctx) error {
		s, err := gate.RequireAuthenticated(c.UserContext(), auth.SessionID(c))
		switch {
		case errors.Is(err, session.ErrNotFound):
			return fiber.NewError(http.StatusUnauthorized, "session expired, start a new one")
		case errors.Is(err, session.ErrNotAuthenticated):
			return fiber.NewError(http.StatusForbidden, "login and access code required")
		case err != nil:
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}
		auth.SetSession(c, s)
		return c.Next()
	}
}

// RequireAdmin restricts a route to the listed usernames. Must run after
// RequireAuthenticated.
func RequireAdmin(admins []string) fiber.Handler {
	allowed := make(map[string]struct{}, len(admins))
	for _, name := range admins {
		allowed[name] = struct{}{}
	}
	return func(c *fiber.Ctx) error {
		s, ok := auth.CurrentSession(c)
		if !ok {
			return fiber.NewError(http.StatusForbidden, "login and access code required")
		}
		if _, ok := allowed[s.Username]; !ok {
			return fiber.NewError(http.StatusForbidden, "administrator access required")
		}
		return c.Next()
	}
}

func bearerToken(header string) string {
	if len(header) < len("Bearer ") || !strings.EqualFold(header[:len("Bearer ")], "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[len("Bearer "):])
}
