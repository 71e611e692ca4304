package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"nodeback/internal/config"
	"nodeback/internal/middleware"
	"nodeback/internal/models"
	"nodeback/internal/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testSecret = "test-secret-key-12345678901234567890123456789012"

type testServer struct {
	srv *Server
	app *fiber.App
	db  *gorm.DB
	mr  *miniredis.Miniredis
}

// newTestServer wires the full app against SQLite and, when withRedis is
// set, a miniredis instance.
func newTestServer(t *testing.T, withRedis bool) *testServer {
	t.Helper()
	db := testutil.NewSQLiteDB(t)
	cfg := &config.Config{
		JWTSecret:            testSecret,
		Env:                  "test",
		MediaDir:             t.TempDir(),
		ImageMaxUploadSizeKB: 1536,
	}

	var (
		mr  *miniredis.Miniredis
		rdb *redis.Client
	)
	if withRedis {
		mr = miniredis.RunT(t)
		rdb = redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { _ = rdb.Close() })
	}

	srv, err := NewServerWithDeps(cfg, db, rdb)
	require.NoError(t, err)
	return &testServer{srv: srv, app: srv.NewApp(), db: db, mr: mr}
}

func (ts *testServer) user(t *testing.T, name string, opts ...testutil.UserOption) *models.User {
	return testutil.CreateUser(t, ts.db, name, opts...)
}

func tokenFor(t *testing.T, user *models.User) string {
	t.Helper()
	token, _, err := middleware.IssueToken(user.ID, time.Hour)
	require.NoError(t, err)
	return token
}

// do sends a JSON request and returns the response with its body read.
func (ts *testServer) do(t *testing.T, method, path, token string, body any) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return ts.send(t, req)
}

func (ts *testServer) send(t *testing.T, req *http.Request) (*http.Response, []byte) {
	t.Helper()
	resp, err := ts.app.Test(req, -1)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func decode[T any](t *testing.T, data []byte) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(data, &out), string(data))
	return out
}

func TestAuthRequired(t *testing.T) {
	ts := newTestServer(t, true)
	alice := ts.user(t, "alice")
	ghost := ts.user(t, "ghost", testutil.Inactive)

	expired, _, err := middleware.IssueToken(alice.ID, -time.Minute)
	require.NoError(t, err)

	tests := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{"missing header", "", fiber.StatusUnauthorized},
		{"wrong scheme", "Token " + tokenFor(t, alice), fiber.StatusUnauthorized},
		{"garbage token", "Bearer not-a-jwt", fiber.StatusUnauthorized},
		{"expired token", "Bearer " + expired, fiber.StatusUnauthorized},
		{"inactive account", "Bearer " + tokenFor(t, ghost), fiber.StatusUnauthorized},
		{"valid token", "Bearer " + tokenFor(t, alice), fiber.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, body := ts.send(t, req)
			assert.Equal(t, tt.wantStatus, resp.StatusCode, string(body))
		})
	}
}

func TestLogoutRevokesToken(t *testing.T) {
	ts := newTestServer(t, true)
	alice := ts.user(t, "alice")
	token := tokenFor(t, alice)

	resp, _ := ts.do(t, http.MethodPost, "/users/logout/", token, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Len(t, ts.mr.Keys(), 1)

	resp, body := ts.do(t, http.MethodGet, "/users/me/", token, nil)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	assert.Contains(t, string(body), "revoked")

	resp, _ = ts.do(t, http.MethodGet, "/users/me/", tokenFor(t, alice), nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode, "a fresh login is unaffected")
}

func TestStaffRequired(t *testing.T) {
	ts := newTestServer(t, false)
	alice := ts.user(t, "alice")
	mod := ts.user(t, "mod", testutil.Staff)

	resp, _ := ts.do(t, http.MethodGet, "/admin/feature-flags", tokenFor(t, alice), nil)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp, body := ts.do(t, http.MethodGet, "/admin/feature-flags", tokenFor(t, mod), nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	flags := decode[struct {
		Raw       map[string]string `json:"raw"`
		Evaluated map[string]bool   `json:"evaluated"`
	}](t, body)
	assert.Equal(t, "on", flags.Raw["live_push"])
	assert.False(t, flags.Evaluated["strict_interests"])
}

func TestHealthChecks(t *testing.T) {
	ts := newTestServer(t, true)

	resp, _ := ts.do(t, http.MethodGet, "/health/live", "", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, body := ts.do(t, http.MethodGet, "/health/ready", "", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"status":"healthy"`)

	ts.mr.Close()
	resp, body = ts.do(t, http.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode, "redis is optional")
	assert.Contains(t, string(body), `"status":"degraded"`)
}

func TestHealthReadyWithoutRedis(t *testing.T) {
	ts := newTestServer(t, false)
	resp, body := ts.do(t, http.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"redis":"disabled"`)
}

func TestSecurityHeadersAndRequestID(t *testing.T) {
	ts := newTestServer(t, false)
	resp, _ := ts.do(t, http.MethodGet, "/health/live", "", nil)
	assert.NotEmpty(t, resp.Header.Get("X-Content-Type-Options"))
	assert.NotEmpty(t, resp.Header.Get("X-Frame-Options"))
	assert.NotEmpty(t, resp.Header.Get(fiber.HeaderXRequestID))
}

func TestCORSPreflight(t *testing.T) {
	ts := newTestServer(t, false)
	req := httptest.NewRequest(http.MethodOptions, "/posts/", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	resp, _ := ts.send(t, req)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "http://localhost:5173", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestUnknownRouteIsJSON404(t *testing.T) {
	ts := newTestServer(t, false)
	resp, body := ts.do(t, http.MethodGet, "/nope", "", nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.Contains(t, string(body), `"error"`)
}
