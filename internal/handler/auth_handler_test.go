package handler

import (
	"bytes"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/secure-print-api/internal/models"
)

func buildAuthRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewAuthHandler(nil)

	router := gin.New()
	router.Use(testClaimsMiddleware())
	router.POST("/auth/login", h.Login)
	router.GET("/auth/me", h.Me)
	return router
}

func TestAuthHandlerLoginValidation(t *testing.T) {
	router := buildAuthRouter()

	req, _ := http.NewRequest(http.MethodPost, "/auth/login", bytes.NewBufferString(`{not json`))
	req.Header.Set("Content-Type", "application/json")
	resp := performRequest(router, req)

	require.Equal(t, http.StatusBadRequest, resp.Code)
	require.Contains(t, resp.Body.String(), "VALIDATION_ERROR")
}

func TestAuthHandlerMe(t *testing.T) {
	t.Run("returns claims identity", func(t *testing.T) {
		router := buildAuthRouter()

		req, _ := http.NewRequest(http.MethodGet, "/auth/me", nil)
		req.Header.Set("X-Test-Role", string(models.RoleUser))
		resp := performRequest(router, req)

		require.Equal(t, http.StatusOK, resp.Code)
		require.Contains(t, resp.Body.String(), `"email":"user@example.com"`)
		require.Contains(t, resp.Body.String(), `"full_name":"Test User"`)
	})

	t.Run("unauthenticated", func(t *testing.T) {
		router := buildAuthRouter()

		req, _ := http.NewRequest(http.MethodGet, "/auth/me", nil)
		resp := performRequest(router, req)

		require.Equal(t, http.StatusUnauthorized, resp.Code)
	})
}
