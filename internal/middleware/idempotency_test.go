package middleware

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/evasion-watch/evasion_watch/internal/logging"
)

func setupIdempotencyApp(t *testing.T) (*fiber.App, *int) {
	t.Helper()
	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { cache.Close() })

	calls := 0
	app := fiber.New()
	app.Use(Idempotency(cache, time.Minute, logging.Discard()))
	app.Post("/register", func(c *fiber.Ctx) error {
		calls++
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"call": calls})
	})
	return app, &calls
}

func postRegister(t *testing.T, app *fiber.App, key string) (int, string) {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodPost, "/register", strings.NewReader("{}"))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if key != "" {
		req.Header.Set(idempotencyKeyHeader, key)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestIdempotencyWithoutHeaderPassesThrough(t *testing.T) {
	app, calls := setupIdempotencyApp(t)

	postRegister(t, app, "")
	postRegister(t, app, "")

	require.Equal(t, 2, *calls)
}

func TestIdempotencyReplaysFirstResponse(t *testing.T) {
	app, calls := setupIdempotencyApp(t)

	status, first := postRegister(t, app, "abc123")
	require.Equal(t, fiber.StatusCreated, status)

	status, second := postRegister(t, app, "abc123")
	require.Equal(t, fiber.StatusCreated, status)
	require.Equal(t, first, second)
	require.Equal(t, 1, *calls)
}

func TestIdempotencyNilCacheIsNoop(t *testing.T) {
	app := fiber.New()
	app.Use(Idempotency(nil, time.Minute, logging.Discard()))
	app.Post("/register", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusCreated) })

	status, _ := postRegister(t, app, "abc123")
	require.Equal(t, fiber.StatusCreated, status)
}
