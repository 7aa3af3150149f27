package routes

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/evasion-watch/evasion_watch/internal/config"
	"github.com/evasion-watch/evasion_watch/internal/db/dbtest"
	"github.com/evasion-watch/evasion_watch/internal/logging"
	"github.com/evasion-watch/evasion_watch/internal/notification"
)

type mailbox struct {
	mu   sync.Mutex
	sent []notification.Message
}

func (m *mailbox) Send(_ context.Context, msg notification.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return nil
}

func (m *mailbox) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type harness struct {
	app   *fiber.App
	clock *testClock
	mail  *mailbox
	codes []string
}

func testConfig() config.Config {
	return config.Config{
		AppName:        "EvasionWatchTest",
		AppEnv:         "test",
		SessionSecret:  "0123456789abcdef0123456789abcdef",
		SessionTTL:     30 * 24 * time.Hour,
		CodeTTL:        72 * time.Hour,
		IdempotencyTTL: time.Hour,
		BcryptCost:     4,
		LoginRate:      100,
		AdminUsers:     "root",
	}
}

func newHarness(t *testing.T, mutate func(*Deps)) *harness {
	t.Helper()
	h := &harness{
		clock: &testClock{t: time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)},
		mail:  &mailbox{},
	}
	d := Deps{
		Cfg:      testConfig(),
		Logger:   logging.Discard(),
		Notifier: h.mail,
		Now:      h.clock.Now,
		CodeGenerator: func() (string, error) {
			c := h.codes[0]
			h.codes = h.codes[1:]
			return c, nil
		},
	}
	if mutate != nil {
		mutate(&d)
	}
	h.app = fiber.New()
	require.NoError(t, Setup(h.app, d))
	return h
}

func (h *harness) do(t *testing.T, method, path, token string, body any) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = strings.NewReader(string(raw))
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	resp, err := h.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	out := map[string]any{}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	_ = json.Unmarshal(raw, &out)
	return resp.StatusCode, out
}

func (h *harness) register(t *testing.T, username, password string) {
	t.Helper()
	status, _ := h.do(t, http.MethodPost, "/api/v1/identity/register", "", fiber.Map{
		"username":     username,
		"display_name": strings.ToUpper(username[:1]) + username[1:],
		"email":        username + "@example.com",
		"password":     password,
	})
	require.Equal(t, http.StatusCreated, status)
}

func (h *harness) startSession(t *testing.T) string {
	t.Helper()
	status, body := h.do(t, http.MethodPost, "/api/v1/auth/session", "", nil)
	require.Equal(t, http.StatusCreated, status)
	require.Equal(t, "anonymous", body["state"])
	return body["token"].(string)
}

func (h *harness) state(t *testing.T, token string) string {
	t.Helper()
	status, body := h.do(t, http.MethodGet, "/api/v1/auth/me", token, nil)
	require.Equal(t, http.StatusOK, status)
	return body["state"].(string)
}

func TestLoginSequenceEndToEnd(t *testing.T) {
	h := newHarness(t, nil)
	h.codes = []string{"482913"}
	h.register(t, "alice", "s3cr3t")
	token := h.startSession(t)

	status, _ := h.do(t, http.MethodGet, "/api/v1/pages/overview", token, nil)
	require.Equal(t, http.StatusForbidden, status)

	status, body := h.do(t, http.MethodPost, "/api/v1/auth/login", token, fiber.Map{"username": "alice", "password": "s3cr3t"})
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "mfa_pending", body["state"])
	require.Equal(t, 1, h.mail.count())
	require.Equal(t, "alice@example.com", h.mail.sent[0].Destination)

	status, body = h.do(t, http.MethodPost, "/api/v1/auth/mfa", token, fiber.Map{"code": "000000"})
	require.Equal(t, http.StatusUnauthorized, status)
	require.Equal(t, "rejected", body["verdict"])
	require.Equal(t, "mfa_pending", h.state(t, token))

	status, body = h.do(t, http.MethodPost, "/api/v1/auth/mfa", token, fiber.Map{"code": "482913"})
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "accepted", body["verdict"])

	status, body = h.do(t, http.MethodGet, "/api/v1/auth/me", token, nil)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "authenticated", body["state"])
	require.Equal(t, "Alice", body["display_name"])
	require.Equal(t, "alice@example.com", body["email"])

	status, _ = h.do(t, http.MethodGet, "/api/v1/pages/overview", token, nil)
	require.Equal(t, http.StatusOK, status)

	status, body = h.do(t, http.MethodPost, "/api/v1/auth/logout", token, nil)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "anonymous", body["state"])

	status, _ = h.do(t, http.MethodGet, "/api/v1/pages/overview", token, nil)
	require.Equal(t, http.StatusForbidden, status)
}

func TestExpiredCodeResetsSession(t *testing.T) {
	h := newHarness(t, nil)
	h.codes = []string{"135790"}
	h.register(t, "alice", "s3cr3t")
	token := h.startSession(t)

	status, _ := h.do(t, http.MethodPost, "/api/v1/auth/login", token, fiber.Map{"username": "alice", "password": "s3cr3t"})
	require.Equal(t, http.StatusOK, status)

	h.clock.Advance(259200 * time.Second)
	status, body := h.do(t, http.MethodPost, "/api/v1/auth/mfa", token, fiber.Map{"code": "135790"})
	require.Equal(t, http.StatusGone, status)
	require.Equal(t, "expired", body["verdict"])
	require.Equal(t, "anonymous", h.state(t, token))

	status, _ = h.do(t, http.MethodPost, "/api/v1/auth/mfa", token, fiber.Map{"code": "135790"})
	require.Equal(t, http.StatusConflict, status)
}

func TestLoginErrors(t *testing.T) {
	h := newHarness(t, nil)
	h.register(t, "alice", "s3cr3t")
	token := h.startSession(t)

	status, _ := h.do(t, http.MethodPost, "/api/v1/auth/login", token, fiber.Map{"username": "alice", "password": "S3cr3t"})
	require.Equal(t, http.StatusUnauthorized, status)
	status, _ = h.do(t, http.MethodPost, "/api/v1/auth/login", token, fiber.Map{"username": "mallory", "password": "s3cr3t"})
	require.Equal(t, http.StatusNotFound, status)
	status, _ = h.do(t, http.MethodPost, "/api/v1/auth/login", "", fiber.Map{"username": "alice", "password": "s3cr3t"})
	require.Equal(t, http.StatusUnauthorized, status)

	require.Equal(t, "anonymous", h.state(t, token))
	require.Zero(t, h.mail.count())
}

func TestRegisterDuplicate(t *testing.T) {
	h := newHarness(t, nil)
	h.register(t, "alice", "s3cr3t")

	status, _ := h.do(t, http.MethodPost, "/api/v1/identity/register", "", fiber.Map{
		"username": "alice", "display_name": "Other", "email": "other@example.com", "password": "x",
	})
	require.Equal(t, http.StatusConflict, status)
}

func TestRegisterRejectsOverlongPassword(t *testing.T) {
	h := newHarness(t, nil)

	status, _ := h.do(t, http.MethodPost, "/api/v1/identity/register", "", fiber.Map{
		"username": "alice", "display_name": "Alice", "email": "alice@example.com", "password": strings.Repeat("p", 73),
	})
	require.Equal(t, http.StatusBadRequest, status)

	h.register(t, "alice", strings.Repeat("p", 72))
}

func (h *harness) authenticate(t *testing.T, username string) string {
	t.Helper()
	h.codes = append(h.codes, "246810")
	token := h.startSession(t)
	status, _ := h.do(t, http.MethodPost, "/api/v1/auth/login", token, fiber.Map{"username": username, "password": "pw"})
	require.Equal(t, http.StatusOK, status)
	status, _ = h.do(t, http.MethodPost, "/api/v1/auth/mfa", token, fiber.Map{"code": "246810"})
	require.Equal(t, http.StatusOK, status)
	return token
}

func TestAuditPanelAdminOnly(t *testing.T) {
	h := newHarness(t, func(d *Deps) { d.SQL = dbtest.SQLite(t) })
	h.register(t, "alice", "pw")
	h.register(t, "root", "pw")

	alice := h.authenticate(t, "alice")
	status, _ := h.do(t, http.MethodGet, "/api/v1/pages/risk-map", alice, nil)
	require.Equal(t, http.StatusOK, status)
	status, _ = h.do(t, http.MethodGet, "/api/v1/pages/model-training", alice, nil)
	require.Equal(t, http.StatusNotFound, status)
	status, _ = h.do(t, http.MethodGet, "/api/v1/audit", alice, nil)
	require.Equal(t, http.StatusForbidden, status)
	status, _ = h.do(t, http.MethodGet, "/api/v1/pages/audit", alice, nil)
	require.Equal(t, http.StatusForbidden, status)

	root := h.authenticate(t, "root")
	status, body := h.do(t, http.MethodGet, "/api/v1/audit?username=alice", root, nil)
	require.Equal(t, http.StatusOK, status)
	entries := body["entries"].([]any)
	require.Len(t, entries, 3)
	require.Equal(t, "risk-map", entries[0].(map[string]any)["action"])
	require.Equal(t, "mfa_verified", entries[1].(map[string]any)["action"])
	require.Equal(t, "login", entries[2].(map[string]any)["action"])

	status, _ = h.do(t, http.MethodGet, "/api/v1/audit?limit=abc", root, nil)
	require.Equal(t, http.StatusBadRequest, status)
}

func TestSessionsLiveInRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { cache.Close() })

	h := newHarness(t, func(d *Deps) { d.Cache = cache })
	h.register(t, "alice", "pw")
	token := h.authenticate(t, "alice")

	keys := mr.Keys()
	require.NotEmpty(t, keys)
	require.Equal(t, "authenticated", h.state(t, token))
}

func TestHealthAndMetrics(t *testing.T) {
	h := newHarness(t, func(d *Deps) { d.SQL = dbtest.SQLite(t) })

	status, body := h.do(t, http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "ok", body["status"].(map[string]any)["sqlite"])

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	resp, err := h.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(raw), "go_goroutines")
}
