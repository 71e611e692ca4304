package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"nodeback/internal/models"
	"nodeback/internal/notifications"
	"nodeback/internal/testutil"

	"github.com/gofiber/fiber/v2"
	gws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// listen serves the app on a loopback port so real WebSocket clients can
// connect, and returns the ws:// base URL.
func (ts *testServer) listen(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = ts.app.Listener(ln) }()
	t.Cleanup(func() {
		_ = ts.srv.hub.Shutdown(context.Background())
		_ = ts.app.Shutdown()
	})
	return "ws://" + ln.Addr().String()
}

func readEvent(t *testing.T, conn *gws.Conn) notifications.Event {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var e notifications.Event
	require.NoError(t, json.Unmarshal(data, &e), string(data))
	return e
}

func TestIssueWSTicket(t *testing.T) {
	ts := newTestServer(t, true)
	alice := ts.user(t, "alice")

	resp, body := ts.do(t, http.MethodPost, "/ws/ticket", tokenFor(t, alice), nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode, string(body))
	out := decode[struct {
		Ticket    string `json:"ticket"`
		ExpiresIn int    `json:"expires_in"`
	}](t, body)
	assert.Equal(t, 30, out.ExpiresIn)

	key := wsTicketPrefix + out.Ticket
	stored, err := ts.mr.Get(key)
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprint(alice.ID), stored)
	assert.Equal(t, wsTicketTTL, ts.mr.TTL(key))

	// A plain GET is authenticated by the ticket, which is spent even
	// though the upgrade is refused.
	path := "/ws/notifications?ticket=" + out.Ticket
	resp, _ = ts.do(t, http.MethodGet, path, "", nil)
	assert.Equal(t, fiber.StatusUpgradeRequired, resp.StatusCode)
	assert.False(t, ts.mr.Exists(key))

	resp, _ = ts.do(t, http.MethodGet, path, "", nil)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode, "tickets are single use")
}

func TestTicketsOnlyOnWebSocketRoutes(t *testing.T) {
	ts := newTestServer(t, true)
	alice := ts.user(t, "alice")

	resp, body := ts.do(t, http.MethodPost, "/ws/ticket", tokenFor(t, alice), nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	ticket := decode[map[string]any](t, body)["ticket"].(string)

	resp, _ = ts.do(t, http.MethodGet, "/users/me?ticket="+ticket, "", nil)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestIssueWSTicketWithoutRedis(t *testing.T) {
	ts := newTestServer(t, false)
	resp, _ := ts.do(t, http.MethodPost, "/ws/ticket", tokenFor(t, ts.user(t, "alice")), nil)
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
}

func TestNotificationsSocket_LiveEvents(t *testing.T) {
	ts := newTestServer(t, false)
	alice := ts.user(t, "alice")
	bob := ts.user(t, "bob")
	mod := ts.user(t, "mod", testutil.Staff)
	base := ts.listen(t)

	header := http.Header{}
	header.Set("Authorization", "Bearer "+tokenFor(t, alice))
	conn, resp, err := gws.DefaultDialer.Dial(base+"/ws/notifications", header)
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()
	assert.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)

	require.Eventually(t, func() bool {
		var u models.User
		return ts.db.First(&u, alice.ID).Error == nil && u.IsOnline
	}, 3*time.Second, 20*time.Millisecond, "first connection marks the user online")

	r, _ := ts.do(t, http.MethodPost, fmt.Sprintf("/posts/follow/%d/", alice.ID), tokenFor(t, bob), nil)
	require.Equal(t, fiber.StatusOK, r.StatusCode)

	event := readEvent(t, conn)
	assert.Equal(t, notifications.EventNotification, event.Type)
	payload, _ := json.Marshal(event.Payload)
	assert.True(t, strings.Contains(string(payload), `"notification_type":"follow"`), string(payload))

	r, _ = ts.do(t, http.MethodPost, fmt.Sprintf("/users/block/%d/", alice.ID), tokenFor(t, mod), nil)
	require.Equal(t, fiber.StatusOK, r.StatusCode)
	assert.Equal(t, notifications.EventLogoutUser, readEvent(t, conn).Type)
}

func TestNotificationsSocket_WithTicket(t *testing.T) {
	ts := newTestServer(t, true)
	alice := ts.user(t, "alice")
	base := ts.listen(t)

	_, body := ts.do(t, http.MethodPost, "/ws/ticket", tokenFor(t, alice), nil)
	ticket := decode[map[string]any](t, body)["ticket"].(string)

	conn, _, err := gws.DefaultDialer.Dial(base+"/ws/notifications?ticket="+ticket, nil)
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()

	require.Eventually(t, func() bool {
		return ts.srv.hub.ConnectionCount(alice.ID) == 1
	}, 3*time.Second, 20*time.Millisecond)

	_, resp, err := gws.DefaultDialer.Dial(base+"/ws/notifications?ticket="+ticket, nil)
	require.Error(t, err, "a spent ticket cannot open a second socket")
	if resp != nil {
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	}
}
