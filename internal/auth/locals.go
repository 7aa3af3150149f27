package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/evasion-watch/evasion_watch/internal/session"
)

const (
	sessionIDLocal = "session_id"
	sessionLocal   = "session"
)

// SetSessionID stores the session id carried by the request token.
func SetSessionID(c *fiber.Ctx, sid string) { c.Locals(sessionIDLocal, sid) }

// SessionID returns the session id carried by the request token, if any.
func SessionID(c *fiber.Ctx) string {
	sid, _ := c.Locals(sessionIDLocal).(string)
	return sid
}

// SetSession stores the authenticated session for downstream handlers.
func SetSession(c *fiber.Ctx, s session.Session) { c.Locals(sessionLocal, s) }

// CurrentSession returns the authenticated session set by the auth middleware.
func CurrentSession(c *fiber.Ctx) (session.Session, bool) {
	s, ok := c.Locals(sessionLocal).(session.Session)
	return s, ok
}
