package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

type failingRateStore struct{}

func (failingRateStore) Increment(context.Context, string, time.Duration) (int, time.Duration, error) {
	return 0, 0, errors.New("cache down")
}

func limitedRouter(store RateStore, limit int, window time.Duration) *gin.Engine {
	r := gin.New()
	r.PUT("/archive", func(c *gin.Context) {
		c.Set(CtxUserIDKey, c.GetHeader("X-User"))
		c.Next()
	}, RateLimit(store, limit, window, ByUser), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r
}

func hit(r *gin.Engine, user string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/archive", nil)
	req.Header.Set("X-User", user)
	r.ServeHTTP(w, req)
	return w
}

func TestRateLimitPerUser(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := limitedRouter(NewMemoryRateStore(), 2, time.Minute)

	require.Equal(t, http.StatusOK, hit(r, "u1").Code)
	w := hit(r, "u1")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))
	require.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))

	w = hit(r, "u1")
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	require.NotEmpty(t, w.Header().Get("Retry-After"))

	require.Equal(t, http.StatusOK, hit(r, "u2").Code)
}

func TestRateLimitWindowResets(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := NewMemoryRateStore().(*memoryRateStore)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	store.clock = func() time.Time { return now }
	r := limitedRouter(store, 1, time.Minute)

	require.Equal(t, http.StatusOK, hit(r, "u1").Code)
	require.Equal(t, http.StatusTooManyRequests, hit(r, "u1").Code)

	now = now.Add(61 * time.Second)
	require.Equal(t, http.StatusOK, hit(r, "u1").Code)
}

func TestRateLimitFailsOpen(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := limitedRouter(failingRateStore{}, 1, time.Minute)

	for i := 0; i < 3; i++ {
		require.Equal(t, http.StatusOK, hit(r, "u1").Code)
	}
}

func TestRateLimitDisabled(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := limitedRouter(nil, 1, time.Minute)

	for i := 0; i < 3; i++ {
		require.Equal(t, http.StatusOK, hit(r, "u1").Code)
	}
}
