package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/auth-service/internal/api/http/handlers"
	"github.com/spec-kit/auth-service/internal/auth"
	"github.com/spec-kit/auth-service/internal/config"
	"github.com/spec-kit/auth-service/internal/events"
	"github.com/spec-kit/auth-service/internal/observability"
	"github.com/spec-kit/auth-service/internal/persistence"
	"github.com/spec-kit/auth-service/internal/repository"
	"github.com/spec-kit/auth-service/internal/service"
)

func newTestApp(t *testing.T) (*fiber.App, *repository.MemoryAccountRepository) {
	t.Helper()

	cfg := config.Config{
		Auth: config.AuthConfig{
			JWTSecret:             "0123456789abcdef0123456789abcdef",
			AccessTokenTTLMinutes: 15,
			BcryptCost:            bcrypt.MinCost,
		},
	}

	store := repository.NewMemoryAccountRepository()
	dispatcher := events.NewInMemoryDispatcher()
	authService := service.NewAuthService(cfg, store, dispatcher)

	app := fiber.New()
	RegisterMiddlewares(app, zap.NewNop(), observability.NewMetrics(), 0)
	RegisterRoutes(app, RouteConfig{
		Health:         handlers.NewHealthHandler("auth-service-test", "test", &persistence.Postgres{}, &persistence.Redis{}),
		Auth:           handlers.NewAuthHandler(authService),
		AuthMiddleware: auth.NewMiddleware(authService),
	})
	return app, store
}

func postJSON(t *testing.T, app *fiber.App, path string, payload map[string]string) *http.Response {
	t.Helper()

	body, err := json.Marshal(payload)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func getWithToken(t *testing.T, app *fiber.App, path, token string) *http.Response {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func readBody(t *testing.T, resp *http.Response) []byte {
	t.Helper()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return body
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(readBody(t, resp), &decoded))
	return decoded
}

func TestRegisterLoginMe_EndToEnd(t *testing.T) {
	t.Parallel()

	app, _ := newTestApp(t)

	resp := postJSON(t, app, "/auth/register", map[string]string{
		"email":    "e1@example.com",
		"username": "e1_user",
		"password": "password123",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	registered := decodeBody(t, resp)
	user, ok := registered["user"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "e1@example.com", user["email"])
	assert.Equal(t, "e1_user", user["username"])
	assert.NotContains(t, user, "password_hash")

	resp = postJSON(t, app, "/auth/login", map[string]string{
		"email":    "e1@example.com",
		"password": "password123",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	login := decodeBody(t, resp)
	token, ok := login["access_token"].(string)
	require.True(t, ok)
	require.NotEmpty(t, token)
	assert.Equal(t, "bearer", login["token_type"])

	resp = getWithToken(t, app, "/auth/me", token)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	profile := readBody(t, resp)
	assert.Contains(t, string(profile), "e1@example.com")
	assert.Contains(t, string(profile), "e1_user")
	assert.NotContains(t, strings.ToLower(string(profile)), "password")
}

func TestRegister_ValidationFailures(t *testing.T) {
	t.Parallel()

	app, _ := newTestApp(t)

	tests := []struct {
		name    string
		payload map[string]string
	}{
		{"short password", map[string]string{"email": "v@example.com", "username": "v_user", "password": "short"}},
		{"bad username", map[string]string{"email": "v@example.com", "username": "x", "password": "password123"}},
		{"bad email", map[string]string{"email": "nope", "username": "v_user", "password": "password123"}},
	}

	for _, tc := range tests {
		resp := postJSON(t, app, "/auth/register", tc.payload)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, tc.name)

		body := decodeBody(t, resp)
		errObj, ok := body["error"].(map[string]any)
		require.True(t, ok, tc.name)
		assert.Equal(t, "VALIDATION_FAILED", errObj["code"], tc.name)
	}
}

func TestRegister_DuplicateConflicts(t *testing.T) {
	t.Parallel()

	app, _ := newTestApp(t)

	resp := postJSON(t, app, "/auth/register", map[string]string{
		"email":    "taken@example.com",
		"username": "taken_name",
		"password": "password123",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = postJSON(t, app, "/auth/register", map[string]string{
		"email":    "taken@example.com",
		"username": "other_name",
		"password": "password123",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	body := decodeBody(t, resp)
	errObj := body["error"].(map[string]any)
	details := errObj["details"].(map[string]any)
	assert.Equal(t, "email", details["field"])

	resp = postJSON(t, app, "/auth/register", map[string]string{
		"email":    "other@example.com",
		"username": "taken_name",
		"password": "password123",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	body = decodeBody(t, resp)
	errObj = body["error"].(map[string]any)
	details = errObj["details"].(map[string]any)
	assert.Equal(t, "username", details["field"])
}

func TestLogin_FailureResponsesByteIdentical(t *testing.T) {
	t.Parallel()

	app, _ := newTestApp(t)

	resp := postJSON(t, app, "/auth/register", map[string]string{
		"email":    "real@example.com",
		"username": "real_user",
		"password": "password123",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	wrongPass := postJSON(t, app, "/auth/login", map[string]string{
		"email":    "real@example.com",
		"password": "wrongpassword",
	})
	unknownEmail := postJSON(t, app, "/auth/login", map[string]string{
		"email":    "ghost@example.com",
		"password": "password123",
	})

	assert.Equal(t, http.StatusUnauthorized, wrongPass.StatusCode)
	assert.Equal(t, http.StatusUnauthorized, unknownEmail.StatusCode)
	assert.Equal(t, readBody(t, wrongPass), readBody(t, unknownEmail))
}

func TestMe_TokenFailuresCollapse(t *testing.T) {
	t.Parallel()

	app, store := newTestApp(t)

	resp := postJSON(t, app, "/auth/register", map[string]string{
		"email":    "gone@example.com",
		"username": "gone_user",
		"password": "password123",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	registered := decodeBody(t, resp)
	accountID := int64(registered["user"].(map[string]any)["id"].(float64))

	resp = postJSON(t, app, "/auth/login", map[string]string{
		"email":    "gone@example.com",
		"password": "password123",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	token := decodeBody(t, resp)["access_token"].(string)

	garbage := getWithToken(t, app, "/auth/me", "garbage.token.value")
	assert.Equal(t, http.StatusUnauthorized, garbage.StatusCode)
	garbageBody := readBody(t, garbage)

	// Simulate a collaborator deleting the account out from under a
	// still-unexpired token.
	store.Delete(context.Background(), accountID)

	deleted := getWithToken(t, app, "/auth/me", token)
	assert.Equal(t, http.StatusUnauthorized, deleted.StatusCode)
	assert.Equal(t, garbageBody, readBody(t, deleted))

	missing := getWithToken(t, app, "/auth/me", "")
	assert.Equal(t, http.StatusUnauthorized, missing.StatusCode)
}

func TestHealth_Live(t *testing.T) {
	t.Parallel()

	app, _ := newTestApp(t)
	resp := getWithToken(t, app, "/health/live", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(readBody(t, resp)), "alive")
}

func TestHealth_ReadyWithoutDependencies(t *testing.T) {
	t.Parallel()

	app, _ := newTestApp(t)
	resp := getWithToken(t, app, "/health/ready", "")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}
