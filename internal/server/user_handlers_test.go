package server

import (
	"fmt"
	"net/http"
	"testing"

	"nodeback/internal/models"
	"nodeback/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const strongPassword = "Sup3r$ecret!"

func register(ts *testServer, t *testing.T, email string) (*http.Response, []byte) {
	return ts.do(t, http.MethodPost, "/users/register/", "", fiber.Map{
		"email":      email,
		"password":   strongPassword,
		"first_name": "Ada",
		"last_name":  "Lovelace",
	})
}

func TestRegisterAndLogin(t *testing.T) {
	ts := newTestServer(t, false)

	resp, body := register(ts, t, "Ada@Example.com")
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, string(body))
	created := decode[struct {
		Token string      `json:"token"`
		User  models.User `json:"user"`
	}](t, body)
	assert.NotEmpty(t, created.Token)
	assert.Equal(t, "ada@example.com", created.User.Email)
	assert.NotContains(t, string(body), strongPassword)

	resp, _ = ts.do(t, http.MethodGet, "/users/me/", created.Token, nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, _ = register(ts, t, "ada@example.com")
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)

	tests := []struct {
		name       string
		email      string
		password   string
		wantStatus int
	}{
		{"correct credentials", "ada@example.com", strongPassword, fiber.StatusOK},
		{"wrong password", "ada@example.com", "Wr0ng$pass", fiber.StatusUnauthorized},
		{"unknown email", "nobody@example.com", strongPassword, fiber.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := ts.do(t, http.MethodPost, "/users/login/", "",
				fiber.Map{"email": tt.email, "password": tt.password})
			assert.Equal(t, tt.wantStatus, resp.StatusCode, string(body))
		})
	}
}

func TestRegisterValidation(t *testing.T) {
	ts := newTestServer(t, false)

	tests := []struct {
		name      string
		body      fiber.Map
		wantField string
	}{
		{"bad email", fiber.Map{"email": "nope", "password": strongPassword, "first_name": "A", "last_name": "B"}, "email"},
		{"weak password", fiber.Map{"email": "a@example.com", "password": "password", "first_name": "A", "last_name": "B"}, "password"},
		{"missing first name", fiber.Map{"email": "a@example.com", "password": strongPassword, "last_name": "B"}, "first_name"},
		{"bad gender", fiber.Map{"email": "a@example.com", "password": strongPassword, "first_name": "A", "last_name": "B", "gender": "X"}, "gender"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := ts.do(t, http.MethodPost, "/users/register/", "", tt.body)
			assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
			assert.Contains(t, string(body), fmt.Sprintf(`"field":%q`, tt.wantField))
		})
	}
}

func TestChangePassword(t *testing.T) {
	ts := newTestServer(t, false)
	resp, body := register(ts, t, "ada@example.com")
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	token := decode[map[string]any](t, body)["token"].(string)

	resp, body = ts.do(t, http.MethodPost, "/users/change-password/", token,
		fiber.Map{"old_password": "Wr0ng$pass", "new_password": "N3w$ecret!xyz"})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(body), `"field":"old_password"`)

	resp, _ = ts.do(t, http.MethodPost, "/users/change-password/", token,
		fiber.Map{"old_password": strongPassword, "new_password": "N3w$ecret!xyz"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, _ = ts.do(t, http.MethodPost, "/users/login/", "",
		fiber.Map{"email": "ada@example.com", "password": "N3w$ecret!xyz"})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestUpdateProfile(t *testing.T) {
	ts := newTestServer(t, false)
	token := tokenFor(t, ts.user(t, "alice"))

	resp, body := ts.do(t, http.MethodPatch, "/users/update/", token, fiber.Map{"country": "NZ", "age": 30})
	require.Equal(t, fiber.StatusOK, resp.StatusCode, string(body))
	user := decode[models.User](t, body)
	assert.Equal(t, "NZ", user.Country)
	assert.Equal(t, "alice", user.FirstName, "absent fields are untouched")

	resp, _ = ts.do(t, http.MethodPatch, "/users/update/", token, fiber.Map{"age": 3})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestStaffUserRoutes(t *testing.T) {
	ts := newTestServer(t, false)
	alice := ts.user(t, "alice")
	mod := ts.user(t, "mod", testutil.Staff)
	aliceToken := tokenFor(t, alice)
	modToken := tokenFor(t, mod)

	resp, _ := ts.do(t, http.MethodGet, "/users/list/", aliceToken, nil)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	resp, body := ts.do(t, http.MethodGet, "/users/list/", modToken, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]models.User](t, body), 2)

	resp, _ = ts.do(t, http.MethodPost, fmt.Sprintf("/users/block/%d/", mod.ID), aliceToken, nil)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	resp, _ = ts.do(t, http.MethodPost, fmt.Sprintf("/users/block/%d/", mod.ID), modToken, nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode, "self block")

	resp, _ = ts.do(t, http.MethodPost, fmt.Sprintf("/users/block/%d/", alice.ID), modToken, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, _ = ts.do(t, http.MethodGet, "/users/me/", aliceToken, nil)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode, "blocked accounts lose access")
}
