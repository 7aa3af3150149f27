package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/evasion-watch/evasion_watch/internal/auth"
)

// RegisterAuthRoutes wires the login sequence. Every step but session start
// needs a session token.
func RegisterAuthRoutes(r fiber.Router, h *auth.Handler, token, rateLimiter fiber.Handler) {
	group := r.Group("/auth")
	group.Post("/session", h.StartSession)
	group.Post("/login", token, rateLimiter, h.Login)
	group.Post("/mfa", token, h.SubmitCode)
	group.Post("/logout", token, h.Logout)
	group.Get("/me", token, h.Me)
}
