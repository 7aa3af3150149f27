package routes

import (
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/evasion-watch/evasion_watch/internal/audit"
	"github.com/evasion-watch/evasion_watch/internal/auth"
	"github.com/evasion-watch/evasion_watch/internal/middleware"
)

// RegisterPageRoutes wires the protected dashboard views. Opening a view is
// recorded in the audit trail; the audit panel is limited to admins.
func RegisterPageRoutes(r fiber.Router, log *audit.Logger, admins []string) {
	isAdmin := make(map[string]bool, len(admins))
	for _, name := range admins {
		isAdmin[name] = true
	}

	r.Get("/pages", func(c *fiber.Ctx) error {
		s, _ := auth.CurrentSession(c)
		visible := make([]audit.Page, 0, len(audit.Pages))
		for _, p := range audit.Pages {
			if !p.Admin || isAdmin[s.Username] {
				visible = append(visible, p)
			}
		}
		return c.JSON(fiber.Map{"username": s.Username, "pages": visible})
	})

	r.Get("/pages/:page", func(c *fiber.Ctx) error {
		page, ok := audit.LookupPage(c.Params("page"))
		if !ok {
			return fiber.NewError(http.StatusNotFound, "unknown page")
		}
		s, _ := auth.CurrentSession(c)
		if page.Admin && !isAdmin[s.Username] {
			return fiber.NewError(http.StatusForbidden, "administrator access required")
		}
		log.Record(c.UserContext(), s.Username, page.Slug, audit.DetailNavigate)
		return c.JSON(fiber.Map{"page": page, "username": s.Username})
	})

	r.Get("/audit", middleware.RequireAdmin(admins), func(c *fiber.Ctx) error {
		limit := 0
		if raw := c.Query("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 0 {
				return fiber.NewError(http.StatusBadRequest, "limit must be a non-negative integer")
			}
			limit = n
		}
		entries, err := log.Query(c.UserContext(), audit.Filter{Username: c.Query("username"), Limit: limit})
		if err != nil {
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}
		if entries == nil {
			entries = []audit.Entry{}
		}
		s, _ := auth.CurrentSession(c)
		log.Record(c.UserContext(), s.Username, "audit", audit.DetailNavigate)
		return c.JSON(fiber.Map{"entries": entries})
	})
}
