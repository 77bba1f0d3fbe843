package middleware_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"chapter_tracker_backend/internal/middleware"
	"chapter_tracker_backend/internal/testutil"
	"chapter_tracker_backend/pkg/database"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func limitedRouter(l *middleware.FixedWindowLimiter) *gin.Engine {
	r := gin.New()
	r.Use(l.Middleware())
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	return r
}

func get(r http.Handler, path, remoteAddr string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.RemoteAddr = remoteAddr
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestFixedWindowLimiter_RejectsAfterLimitAndResets(t *testing.T) {
	store, mr := testutil.NewTestStore(t)
	r := limitedRouter(middleware.NewFixedWindowLimiter(store, 30, time.Minute))

	for i := 1; i <= 30; i++ {
		w := get(r, "/ping", "198.51.100.7:40000")
		require.Equal(t, http.StatusOK, w.Code, "request %d", i)
	}
	w := get(r, "/ping", "198.51.100.7:40000")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "Too many requests")
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))

	// 其他客户端不受影响
	assert.Equal(t, http.StatusOK, get(r, "/ping", "203.0.113.9:40000").Code)

	mr.FastForward(time.Minute)
	w = get(r, "/ping", "198.51.100.7:40000")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "29", w.Header().Get("X-RateLimit-Remaining"))
}

func TestFixedWindowLimiter_SetsExpiryOnFirstRequest(t *testing.T) {
	store, mr := testutil.NewTestStore(t)
	l := middleware.NewFixedWindowLimiter(store, 30, time.Minute)

	d, err := l.Allow(context.Background(), "192.0.2.1")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, int64(1), d.Count)
	assert.Equal(t, time.Minute, mr.TTL("rate:192.0.2.1"))

	// 第二次请求不刷新窗口
	mr.FastForward(20 * time.Second)
	_, err = l.Allow(context.Background(), "192.0.2.1")
	require.NoError(t, err)
	assert.Equal(t, 40*time.Second, mr.TTL("rate:192.0.2.1"))
}

func TestFixedWindowLimiter_EmptyClientFallsBack(t *testing.T) {
	store, mr := testutil.NewTestStore(t)
	l := middleware.NewFixedWindowLimiter(store, 30, time.Minute)

	_, err := l.Allow(context.Background(), "")
	require.NoError(t, err)
	assert.True(t, mr.Exists("rate:127.0.0.1"))
}

func TestFixedWindowLimiter_SetPolicy(t *testing.T) {
	store, _ := testutil.NewTestStore(t)
	l := middleware.NewFixedWindowLimiter(store, 30, time.Minute)
	l.SetPolicy(2, 10*time.Second)

	limit, window := l.Policy()
	assert.Equal(t, 2, limit)
	assert.Equal(t, 10*time.Second, window)

	r := limitedRouter(l)
	assert.Equal(t, http.StatusOK, get(r, "/ping", "192.0.2.5:1").Code)
	assert.Equal(t, http.StatusOK, get(r, "/ping", "192.0.2.5:1").Code)
	assert.Equal(t, http.StatusTooManyRequests, get(r, "/ping", "192.0.2.5:1").Code)
}

func TestFixedWindowLimiter_FailsOpen(t *testing.T) {
	store, mr := testutil.NewTestStore(t)
	mr.Close()
	l := middleware.NewFixedWindowLimiter(store, 1, time.Minute)

	d, err := l.Allow(context.Background(), "192.0.2.1")
	assert.True(t, errors.Is(err, database.ErrStoreUnavailable))
	assert.True(t, d.Allowed)

	r := limitedRouter(l)
	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, get(r, "/ping", "192.0.2.1:1").Code)
	}
}
