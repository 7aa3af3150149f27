package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/evasion-watch/evasion_watch/internal/identity"
)

// RegisterIdentityRoutes wires account registration.
func RegisterIdentityRoutes(r fiber.Router, h *identity.Handler, idempotency fiber.Handler) {
	r.Post("/identity/register", idempotency, h.Register)
}
