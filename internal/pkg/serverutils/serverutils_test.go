package serverutils

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleRequest struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=8"`
	Note     string `validate:"max=10"`
}

func TestValidateRequest(t *testing.T) {
	t.Run("valid struct passes", func(t *testing.T) {
		err := ValidateRequest(sampleRequest{Email: "a@b.com", Password: "longenough"})
		assert.NoError(t, err)
	})

	t.Run("missing required field", func(t *testing.T) {
		err := ValidateRequest(sampleRequest{Password: "longenough"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Email is required")
	})

	t.Run("invalid email", func(t *testing.T) {
		err := ValidateRequest(sampleRequest{Email: "not-an-email", Password: "longenough"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Email must be a valid email")
	})

	t.Run("min length", func(t *testing.T) {
		err := ValidateRequest(sampleRequest{Email: "a@b.com", Password: "short"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Password must be at least 8 characters")
	})

	t.Run("multiple violations are joined", func(t *testing.T) {
		err := ValidateRequest(sampleRequest{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Email is required")
		assert.Contains(t, err.Error(), "Password is required")
	})
}

func TestResponseEnvelope(t *testing.T) {
	ok := SuccessResponse("done", map[string]string{"k": "v"})
	assert.True(t, ok.Success)
	assert.Equal(t, 200, ok.Code)
	assert.Equal(t, "done", ok.Message)

	fail := ErrorResponse(404, "not found")
	assert.False(t, fail.Success)
	assert.Equal(t, 404, fail.Code)

	// nil Data is omitted from the wire form.
	raw, err := json.Marshal(SuccessResponse[any]("empty", nil))
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "data")
}

func signTestToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestJwtMiddleware(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	app := fiber.New()
	app.Get("/protected", JwtMiddleware, func(ctx *fiber.Ctx) error {
		return ctx.SendString(ctx.Locals("user_id").(string))
	})

	t.Run("valid token sets user id", func(t *testing.T) {
		token := signTestToken(t, "test-secret", jwt.MapClaims{
			"user_id": "abc-123",
			"exp":     time.Now().Add(time.Hour).Unix(),
		})

		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("missing header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("wrong secret", func(t *testing.T) {
		token := signTestToken(t, "other-secret", jwt.MapClaims{
			"user_id": "abc-123",
			"exp":     time.Now().Add(time.Hour).Unix(),
		})

		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("expired token", func(t *testing.T) {
		token := signTestToken(t, "test-secret", jwt.MapClaims{
			"user_id": "abc-123",
			"exp":     time.Now().Add(-time.Hour).Unix(),
		})

		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}

func TestParseToken(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	token := signTestToken(t, "test-secret", jwt.MapClaims{
		"user_id": "abc-123",
		"exp":     time.Now().Add(time.Hour).Unix(),
	})

	claims, err := ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "abc-123", claims["user_id"])

	_, err = ParseToken("garbage")
	require.Error(t, err)
}

func TestJwtSecretFallback(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	assert.Equal(t, []byte("default_secret"), JwtSecret())

	t.Setenv("JWT_SECRET", "configured")
	assert.Equal(t, []byte("configured"), JwtSecret())
}

func TestErrorHandlerMiddleware(t *testing.T) {
	app := fiber.New()
	app.Use(ErrorHandlerMiddleware())
	app.Get("/teapot", func(ctx *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusTeapot, "short and stout")
	})
	app.Get("/boom", func(ctx *fiber.Ctx) error {
		return assert.AnError
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/teapot", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusTeapot, resp.StatusCode)

	var envelope BaseResponse[any]
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	assert.False(t, envelope.Success)
	assert.Equal(t, "short and stout", envelope.Message)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/boom", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}
