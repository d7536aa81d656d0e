package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"chirp/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-12345678901234567890123456789012"

func signToken(t *testing.T, method jwt.SigningMethod, key any, claims jwt.Claims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return s
}

func hs256(t *testing.T, sub string, ttl time.Duration) string {
	return signToken(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.RegisteredClaims{
		Subject:   sub,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
	})
}

// whoami answers {"viewer": <id>} behind guard.
func whoami(guard fiber.Handler) *fiber.App {
	app := fiber.New()
	app.Get("/whoami", guard, func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"viewer": ViewerID(c)})
	})
	return app
}

func call(t *testing.T, app *fiber.App, header string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	if header != "" {
		req.Header.Set(fiber.HeaderAuthorization, header)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp.StatusCode, body
}

func TestAuthRequired_AcceptsIssuedToken(t *testing.T) {
	auth := NewAuth(testSecret, time.Hour)
	token, err := auth.IssueToken(123)
	require.NoError(t, err)

	status, body := call(t, whoami(auth.Required), "Bearer "+token)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(123), body["viewer"])
}

func TestAuthRequired_Rejects(t *testing.T) {
	auth := NewAuth(testSecret, time.Hour)
	app := whoami(auth.Required)

	cases := map[string]string{
		"no header":          "",
		"basic scheme":       "Basic dXNlcjpwYXNz",
		"empty bearer":       "Bearer ",
		"garbage":            "Bearer not.a.jwt",
		"expired":            "Bearer " + hs256(t, "123", -time.Minute),
		"no subject":         "Bearer " + hs256(t, "", time.Hour),
		"username subject":   "Bearer " + hs256(t, "alice", time.Hour),
		"zero subject":       "Bearer " + hs256(t, "0", time.Hour),
		"other secret":       "Bearer " + signToken(t, jwt.SigningMethodHS256, []byte("some-other-secret"), jwt.RegisteredClaims{Subject: "1", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))}),
		"hs512 algorithm":    "Bearer " + signToken(t, jwt.SigningMethodHS512, []byte(testSecret), jwt.RegisteredClaims{Subject: "1", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))}),
		"missing expiration": "Bearer " + signToken(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.RegisteredClaims{Subject: "1"}),
	}

	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			status, body := call(t, app, header)
			assert.Equal(t, http.StatusUnauthorized, status)
			assert.Equal(t, models.CodeUnauthorized, body["code"])
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestAuthOptional(t *testing.T) {
	auth := NewAuth(testSecret, time.Hour)
	app := whoami(auth.Optional)

	_, body := call(t, app, "")
	assert.Equal(t, float64(0), body["viewer"])

	_, body = call(t, app, "Bearer "+hs256(t, "7", time.Hour))
	assert.Equal(t, float64(7), body["viewer"])

	status, body := call(t, app, "Bearer "+hs256(t, "7", -time.Hour))
	assert.Equal(t, http.StatusOK, status, "a stale token browses anonymously")
	assert.Equal(t, float64(0), body["viewer"])
}

func TestAuth_UserLookup(t *testing.T) {
	live := map[uint]bool{1: true}
	auth := NewAuth(testSecret, time.Hour).WithUserLookup(func(_ context.Context, id uint) (bool, error) {
		if id == 99 {
			return false, errors.New("db down")
		}
		return live[id], nil
	})
	required, optional := whoami(auth.Required), whoami(auth.Optional)

	status, body := call(t, required, "Bearer "+hs256(t, "1", time.Hour))
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(1), body["viewer"])

	status, body = call(t, required, "Bearer "+hs256(t, "2", time.Hour))
	assert.Equal(t, http.StatusUnauthorized, status, "deleted account")
	assert.Equal(t, models.CodeUnauthorized, body["code"])

	status, body = call(t, required, "Bearer "+hs256(t, "99", time.Hour))
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, models.CodeInternal, body["code"])

	status, body = call(t, optional, "Bearer "+hs256(t, "2", time.Hour))
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(0), body["viewer"])
}

func TestIssueToken_Claims(t *testing.T) {
	auth := NewAuth(testSecret, 2*time.Hour)
	first, err := auth.IssueToken(42)
	require.NoError(t, err)
	second, err := auth.IssueToken(42)
	require.NoError(t, err)

	var a, b jwt.RegisteredClaims
	_, err = jwt.ParseWithClaims(first, &a, func(*jwt.Token) (any, error) { return []byte(testSecret), nil })
	require.NoError(t, err)
	_, err = jwt.ParseWithClaims(second, &b, func(*jwt.Token) (any, error) { return []byte(testSecret), nil })
	require.NoError(t, err)

	assert.Equal(t, "42", a.Subject)
	assert.NotEqual(t, a.ID, b.ID)
	assert.WithinDuration(t, time.Now().Add(2*time.Hour), a.ExpiresAt.Time, time.Minute)
}
