package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tattoo-ai-api/internal/infrastructure/persistence/redis"
	"tattoo-ai-api/pkg/logger"
	"tattoo-ai-api/pkg/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func authEngine(required bool) *gin.Engine {
	r := gin.New()
	r.Use(Auth(AuthConfig{Secret: "s3cret", Issuer: "tattoo", Required: required}))
	r.GET("/whoami", func(c *gin.Context) {
		c.String(http.StatusOK, GetUserIDFromGin(c)+"|"+logger.UserID(c.Request.Context()))
	})
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func TestAuth(t *testing.T) {
	jwt := utils.NewJWTManager("s3cret", "tattoo")
	valid, err := jwt.GenerateToken("user-7", "", time.Hour)
	require.NoError(t, err)
	expired, err := jwt.GenerateToken("user-7", "", -time.Minute)
	require.NoError(t, err)
	foreign, err := utils.NewJWTManager("other", "tattoo").GenerateToken("user-7", "", time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name     string
		required bool
		path     string
		header   string
		status   int
		body     string
		code     string
	}{
		{name: "anonymous allowed", path: "/whoami", status: http.StatusOK, body: "|"},
		{name: "anonymous rejected when required", required: true, path: "/whoami", status: http.StatusUnauthorized, code: "2003"},
		{name: "probe bypasses auth", required: true, path: "/health", status: http.StatusOK},
		{name: "valid token", path: "/whoami", header: "Bearer " + valid, status: http.StatusOK, body: "user-7|user-7"},
		{name: "lowercase scheme", path: "/whoami", header: "bearer " + valid, status: http.StatusOK, body: "user-7|user-7"},
		{name: "bad format", path: "/whoami", header: "Token " + valid, status: http.StatusUnauthorized, code: "2002"},
		{name: "expired", path: "/whoami", header: "Bearer " + expired, status: http.StatusUnauthorized, code: "2001"},
		{name: "wrong signature even when optional", path: "/whoami", header: "Bearer " + foreign, status: http.StatusUnauthorized, code: "2002"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := serve(authEngine(tt.required), req)

			assert.Equal(t, tt.status, w.Code)
			if tt.body != "" {
				assert.Equal(t, tt.body, w.Body.String())
			}
			if tt.code != "" {
				assert.Contains(t, w.Body.String(), `"error_code":"`+tt.code+`"`)
			}
		})
	}
}

type brokenLimiter struct{}

func (brokenLimiter) Allow(context.Context, string, int, int) (bool, error) {
	return false, errors.New("redis down")
}

func rateLimitEngine(cfg RateLimitConfig, limiter RateLimiter) *gin.Engine {
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if uid := c.GetHeader("X-Test-User"); uid != "" {
			c.Set("user_id", uid)
		}
		c.Next()
	})
	r.Use(RateLimit(cfg, limiter))
	r.GET("/v1/catalog", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func TestRateLimit(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClientFromRedis(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}))
	limiter := redis.NewRateLimiter(client)

	r := rateLimitEngine(RateLimitConfig{Enabled: true, RequestsPerSecond: 1, Burst: 2}, limiter)

	call := func(user string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/v1/catalog", nil)
		if user != "" {
			req.Header.Set("X-Test-User", user)
		}
		return serve(r, req)
	}

	first := call("alice")
	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "2", first.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, http.StatusOK, call("alice").Code)

	limited := call("alice")
	assert.Equal(t, http.StatusTooManyRequests, limited.Code)
	assert.Contains(t, limited.Body.String(), `"error_code":"1006"`)

	// 计数按用户隔离
	assert.Equal(t, http.StatusOK, call("bob").Code)
}

func TestRateLimit_FailsOpen(t *testing.T) {
	r := rateLimitEngine(RateLimitConfig{Enabled: true, RequestsPerSecond: 1}, brokenLimiter{})
	for i := 0; i < 3; i++ {
		w := serve(r, httptest.NewRequest(http.MethodGet, "/v1/catalog", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	}
}

func TestRateLimit_Disabled(t *testing.T) {
	r := rateLimitEngine(RateLimitConfig{Enabled: false}, brokenLimiter{})
	w := serve(r, httptest.NewRequest(http.MethodGet, "/v1/catalog", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("X-RateLimit-Limit"))
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, logger.RequestID(c.Request.Context()))
	})

	t.Run("propagates client id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(RequestIDHeader, "req-123")
		w := serve(r, req)
		assert.Equal(t, "req-123", w.Body.String())
		assert.Equal(t, "req-123", w.Header().Get(RequestIDHeader))
	})

	t.Run("replaces oversized id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(RequestIDHeader, strings.Repeat("x", 100))
		w := serve(r, req)
		assert.Len(t, w.Body.String(), 36)
	})
}

func TestRecovery(t *testing.T) {
	r := gin.New()
	r.Use(Recovery())
	r.GET("/panic", func(c *gin.Context) { panic("boom") })

	w := serve(r, httptest.NewRequest(http.MethodGet, "/panic", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
