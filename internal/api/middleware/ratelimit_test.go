package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benoitrobinson/OmnesImmobilier-sub000/internal/api/middleware"
	"github.com/benoitrobinson/OmnesImmobilier-sub000/internal/auth"
	"github.com/benoitrobinson/OmnesImmobilier-sub000/internal/models"
)

const testSecret = "test-secret"

func setupRouter(rm *middleware.RateLimiterMiddleware) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	authed := r.Group("/", middleware.AuthMiddleware(testSecret))
	authed.POST("/bid", rm.Limit(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": middleware.GetPrincipal(c).UserID})
	})
	admin := authed.Group("/admin", middleware.AdminMiddleware())
	admin.GET("/ping", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	return r
}

func bearer(t *testing.T, userID uint, role models.Role) string {
	token, err := auth.GenerateJWT(userID, role, testSecret, time.Hour)
	require.NoError(t, err)
	return "Bearer " + token
}

func do(r *gin.Engine, method, path, authHeader string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(method, path, nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRateLimiter_PerUserBucket(t *testing.T) {
	rm := middleware.NewRateLimiterMiddleware(1, 2)
	router := setupRouter(rm)
	alice := bearer(t, 1, models.RoleClient)
	bob := bearer(t, 2, models.RoleClient)

	assert.Equal(t, http.StatusOK, do(router, http.MethodPost, "/bid", alice).Code)
	assert.Equal(t, http.StatusOK, do(router, http.MethodPost, "/bid", alice).Code)
	assert.Equal(t, http.StatusTooManyRequests, do(router, http.MethodPost, "/bid", alice).Code)

	// Another user has a bucket of their own.
	assert.Equal(t, http.StatusOK, do(router, http.MethodPost, "/bid", bob).Code)
}

func TestAuthMiddleware(t *testing.T) {
	router := setupRouter(middleware.NewRateLimiterMiddleware(100, 100))

	assert.Equal(t, http.StatusUnauthorized, do(router, http.MethodPost, "/bid", "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(router, http.MethodPost, "/bid", "Token abc").Code)
	assert.Equal(t, http.StatusUnauthorized, do(router, http.MethodPost, "/bid", "Bearer not-a-jwt").Code)

	assert.Equal(t, http.StatusForbidden, do(router, http.MethodGet, "/admin/ping", bearer(t, 3, models.RoleAgent)).Code)
	assert.Equal(t, http.StatusNoContent, do(router, http.MethodGet, "/admin/ping", bearer(t, 4, models.RoleAdmin)).Code)
}
