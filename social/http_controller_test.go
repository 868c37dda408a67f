package social_test

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	accounts "github.com/counselgpt/go-accounts"
	"github.com/counselgpt/go-accounts/social"
)

const frontendURL = "http://localhost:3000"

func newTestApp(t *testing.T, tokenURL string) *fiber.App {
	t.Helper()

	repo := setupRepo(t)
	tokens := accounts.NewTokenService(testSigningKey, time.Hour, nil)
	auth := social.NewAuthenticator(newProvider(tokenURL), repo, tokens)

	app := fiber.New(fiber.Config{
		ErrorHandler: accounts.ErrorHandler(nil),
	})
	social.NewController(auth, frontendURL).RegisterRoutes(app)
	return app
}

func TestAuthorizeEndpoint(t *testing.T) {
	app := newTestApp(t, "")

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/auth/google/authorize", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	body := map[string]string{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Contains(t, body["authorization_url"], "accounts.google.com")
	assert.Contains(t, body["authorization_url"], "client_id=client-id")
}

func TestCallbackRedirectsWithToken(t *testing.T) {
	idToken := forgeIDToken(t, jwt.MapClaims{
		"sub":   "google-sub-1",
		"email": "ada@example.com",
		"name":  "Ada Lovelace",
	})
	srv := tokenEndpoint(t, idToken)
	app := newTestApp(t, srv.URL)

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/auth/google/callback?code=auth-code", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, fiber.StatusTemporaryRedirect, resp.StatusCode)
	location := resp.Header.Get("Location")
	assert.True(t, strings.HasPrefix(location, frontendURL+"/auth/callback?token="), location)
}

func TestCallbackFailureRedirectsWithErrorFlag(t *testing.T) {
	// Missing code, broken exchange, undecodable id_token: all collapse into
	// the same generic redirect.
	app := newTestApp(t, "http://127.0.0.1:1") // nothing listens here

	for _, path := range []string{
		"/auth/google/callback",
		"/auth/google/callback?code=auth-code",
	} {
		resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, path, nil), -1)
		require.NoError(t, err)
		resp.Body.Close()

		require.Equal(t, fiber.StatusTemporaryRedirect, resp.StatusCode, path)
		assert.Equal(t, frontendURL+"/auth/login?error=authentication_failed", resp.Header.Get("Location"))
	}
}
