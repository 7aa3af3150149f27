package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/evasion-watch/evasion_watch/internal/config"
	"github.com/evasion-watch/evasion_watch/internal/logging"
	"github.com/evasion-watch/evasion_watch/internal/routes"
)

func TestErrorsRenderAsJSON(t *testing.T) {
	srv, err := New(routes.Deps{
		Cfg: config.Config{
			AppEnv:     "test",
			SessionTTL: time.Hour,
			CodeTTL:    72 * time.Hour,
			BcryptCost: 4,
		},
		Logger: logging.Discard(),
	})
	require.NoError(t, err)

	resp, err := srv.App().Test(httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, "missing session token", body["error"])
}

func TestProductionRequiresStorage(t *testing.T) {
	_, err := New(routes.Deps{
		Cfg:    config.Config{AppEnv: "production", SessionSecret: "0123456789abcdef0123456789abcdef"},
		Logger: logging.Discard(),
	})
	require.Error(t, err)
}
