package ratelimit

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ms-events/internal/auth"
	"ms-events/internal/logger"
	"ms-events/internal/models"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func TestMemoryLimiter_BlocksAfterLimit(t *testing.T) {
	c := &clock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	l := newMemoryLimiter(60, c.now)
	ctx := context.Background()

	for i := 0; i < 60; i++ {
		res, err := l.Allow(ctx, "ip:1.2.3.4")
		require.NoError(t, err)
		require.True(t, res.Allowed, "request %d", i+1)
		assert.Equal(t, 59-i, res.Remaining)
	}

	res, _ := l.Allow(ctx, "ip:1.2.3.4")
	assert.False(t, res.Allowed)
	assert.Equal(t, 0, res.Remaining)
	assert.Equal(t, time.Second, res.RetryAfter)

	other, _ := l.Allow(ctx, "ip:5.6.7.8")
	assert.True(t, other.Allowed)

	c.t = c.t.Add(time.Second)
	res, _ = l.Allow(ctx, "ip:1.2.3.4")
	assert.True(t, res.Allowed)
}

func TestMemoryLimiter_CleanupDropsIdleKeys(t *testing.T) {
	c := &clock{t: time.Now()}
	l := newMemoryLimiter(10, c.now)
	_, _ = l.Allow(context.Background(), "user:1")

	c.t = c.t.Add(idleTTL + time.Second)
	l.cleanup()

	l.mu.Lock()
	defer l.mu.Unlock()
	assert.Empty(t, l.entries)
}

func TestRedisLimiter_FixedWindow(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	start := time.Date(2026, 1, 1, 0, 0, 30, 0, time.UTC)
	l := NewRedisLimiter(client, 3)
	l.Now = func() time.Time { return start }
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		res, err := l.Allow(ctx, "user:1")
		require.NoError(t, err)
		assert.True(t, res.Allowed)
		assert.Equal(t, 2-i, res.Remaining)
	}

	res, err := l.Allow(ctx, "user:1")
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, 30*time.Second, res.RetryAfter)

	keys := mr.Keys()
	require.Len(t, keys, 1)
	assert.Contains(t, keys[0], "rate_limit:user:1:")
	assert.True(t, mr.TTL(keys[0]) > 0)

	l.Now = func() time.Time { return start.Add(time.Minute) }
	res, err = l.Allow(ctx, "user:1")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestRedisLimiter_ErrorFailsOpen(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	mr.Close()

	res, err := NewRedisLimiter(client, 3).Allow(context.Background(), "ip:1.1.1.1")

	assert.Error(t, err)
	assert.True(t, res.Allowed)
}

type stubLimiter struct {
	keys []string
	res  Result
	err  error
}

func (s *stubLimiter) Allow(_ context.Context, key string) (Result, error) {
	s.keys = append(s.keys, key)
	return s.res, s.err
}

func serve(l Limiter, req *http.Request) *httptest.ResponseRecorder {
	h := Middleware(l, logger.NewWithWriter(io.Discard), []string{"10.0.0.0/8"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestMiddleware_Denied(t *testing.T) {
	l := &stubLimiter{res: Result{Allowed: false, Limit: 60, RetryAfter: 1500 * time.Millisecond}}
	req := httptest.NewRequest("GET", "/api/events", nil)
	req.RemoteAddr = "192.168.1.5:1234"

	rec := serve(l, req)

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "2", rec.Header().Get("Retry-After"))
	assert.Equal(t, "60", rec.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
	assert.JSONEq(t, `{"message":"Too Many Attempts."}`, rec.Body.String())
	assert.Equal(t, []string{"ip:192.168.1.5"}, l.keys)
}

func TestMiddleware_KeysByUser(t *testing.T) {
	l := &stubLimiter{res: Result{Allowed: true, Limit: 60, Remaining: 59}}
	req := httptest.NewRequest("GET", "/api/events", nil)
	req = req.WithContext(auth.WithActor(req.Context(), &models.User{ID: 42}))

	rec := serve(l, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "59", rec.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, []string{"user:42"}, l.keys)
}

func TestMiddleware_LimiterErrorAllows(t *testing.T) {
	l := &stubLimiter{err: errors.New("redis down")}

	rec := serve(l, httptest.NewRequest("GET", "/api/events", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestClientKey_TrustedProxy(t *testing.T) {
	trusted := []string{"10.0.0.0/8"}

	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "10.1.2.3:80"
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.1.2.3")
	assert.Equal(t, "ip:203.0.113.9", ClientKey(req, trusted))

	req.RemoteAddr = "198.51.100.1:80"
	assert.Equal(t, "ip:198.51.100.1", ClientKey(req, trusted))
}
