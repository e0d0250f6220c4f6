package handlers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lead-board-backend/pkg/database"
	"lead-board-backend/pkg/models"
)

func TestAuthRegisterAndLogin(t *testing.T) {
	db := database.NewMemoryDatabase()
	h := NewAuthHandler(testConfig(), db)

	t.Run("register returns a token pair", func(t *testing.T) {
		rec := doRequest(h.Register, http.MethodPost, "/api/auth/register", models.RegisterRequest{
			Name:     "Ada",
			Email:    "ada@example.com",
			Password: "supersecret",
			Role:     "engineer",
		}, nil)
		require.Equal(t, http.StatusCreated, rec.Code)

		var resp models.LoginResponse
		decodeData(t, rec, &resp)
		assert.NotEmpty(t, resp.AccessToken)
		assert.NotEmpty(t, resp.RefreshToken)
		assert.Equal(t, "ada@example.com", resp.Profile.Email)
		// 密码哈希不出现在响应里
		assert.NotContains(t, rec.Body.String(), "supersecret")
		assert.NotContains(t, rec.Body.String(), "password_hash")
	})

	t.Run("duplicate registration conflicts", func(t *testing.T) {
		rec := doRequest(h.Register, http.MethodPost, "/api/auth/register", models.RegisterRequest{
			Name:     "Ada Again",
			Email:    "ada@example.com",
			Password: "supersecret",
		}, nil)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("short password is rejected", func(t *testing.T) {
		rec := doRequest(h.Register, http.MethodPost, "/api/auth/register", models.RegisterRequest{
			Name:     "Bea",
			Email:    "bea@example.com",
			Password: "short",
		}, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("login succeeds with the right password", func(t *testing.T) {
		rec := doRequest(h.Login, http.MethodPost, "/api/auth/login", models.LoginRequest{
			Email:    "ADA@example.com",
			Password: "supersecret",
		}, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp models.LoginResponse
		decodeData(t, rec, &resp)
		assert.NotEmpty(t, resp.AccessToken)
	})

	t.Run("login fails with the wrong password", func(t *testing.T) {
		rec := doRequest(h.Login, http.MethodPost, "/api/auth/login", models.LoginRequest{
			Email:    "ada@example.com",
			Password: "wrong-password",
		}, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("login does not reveal unknown accounts", func(t *testing.T) {
		rec := doRequest(h.Login, http.MethodPost, "/api/auth/login", models.LoginRequest{
			Email:    "nobody@example.com",
			Password: "whatever",
		}, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestAuthRefreshToken(t *testing.T) {
	db := database.NewMemoryDatabase()
	h := NewAuthHandler(testConfig(), db)

	rec := doRequest(h.Register, http.MethodPost, "/api/auth/register", models.RegisterRequest{
		Name:     "Ada",
		Email:    "ada@example.com",
		Password: "supersecret",
	}, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	var registered models.LoginResponse
	decodeData(t, rec, &registered)

	t.Run("refresh token yields a new pair", func(t *testing.T) {
		rec := doRequest(h.RefreshToken, http.MethodPost, "/api/auth/refresh", models.RefreshTokenRequest{
			RefreshToken: registered.RefreshToken,
		}, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var pair struct {
			AccessToken  string `json:"access_token"`
			RefreshToken string `json:"refresh_token"`
		}
		decodeData(t, rec, &pair)
		assert.NotEmpty(t, pair.AccessToken)
		assert.NotEmpty(t, pair.RefreshToken)
	})

	t.Run("access token is not accepted as refresh token", func(t *testing.T) {
		rec := doRequest(h.RefreshToken, http.MethodPost, "/api/auth/refresh", models.RefreshTokenRequest{
			RefreshToken: registered.AccessToken,
		}, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("garbage token is rejected", func(t *testing.T) {
		rec := doRequest(h.RefreshToken, http.MethodPost, "/api/auth/refresh", models.RefreshTokenRequest{
			RefreshToken: "not-a-jwt",
		}, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestHealthCheck(t *testing.T) {
	db := database.NewMemoryDatabase()
	h := NewAuthHandler(testConfig(), db)

	rec := doRequest(h.HealthCheck, http.MethodGet, "/", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var health map[string]interface{}
	decodeData(t, rec, &health)
	assert.Equal(t, "ok", health["status"])
	assert.Equal(t, "ok", health["database"])
}
