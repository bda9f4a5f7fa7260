package ratelimit

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redismock/v9"
	"github.com/richxcame/claims-fraud/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testConfig() config.RateLimitConfig {
	return config.RateLimitConfig{
		Enabled:       true,
		WindowSeconds: 60,
		ResyncLimit:   2,
		RedisPrefix:   "rl",
	}
}

var fixedNow = time.Date(2025, 6, 15, 12, 0, 30, 0, time.UTC)

const windowKey = "rl:resync:10.0.0.1:1749988800"

func TestAllow_FirstRequestSetsExpiry(t *testing.T) {
	client, mock := redismock.NewClientMock()
	limiter := NewLimiter(client, testConfig()).WithNow(func() time.Time { return fixedNow })

	mock.ExpectIncr(windowKey).SetVal(1)
	mock.ExpectExpire(windowKey, time.Minute).SetVal(true)

	result, err := limiter.Allow(context.Background(), "resync", "10.0.0.1", Rule{Limit: 2, Window: time.Minute})

	require.NoError(t, err)
	assert.True(t, result.Allowed)
	assert.Equal(t, 1, result.Remaining)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAllow_RejectsOverLimit(t *testing.T) {
	client, mock := redismock.NewClientMock()
	limiter := NewLimiter(client, testConfig()).WithNow(func() time.Time { return fixedNow })

	mock.ExpectIncr(windowKey).SetVal(3)

	result, err := limiter.Allow(context.Background(), "resync", "10.0.0.1", Rule{Limit: 2, Window: time.Minute})

	require.NoError(t, err)
	assert.False(t, result.Allowed)
	assert.Zero(t, result.Remaining)
	assert.Equal(t, 30*time.Second, result.RetryAfter)
}

func TestAllow_BypassWhenDisabledOrUnlimited(t *testing.T) {
	client, mock := redismock.NewClientMock()
	cfg := testConfig()
	cfg.Enabled = false

	result, err := NewLimiter(client, cfg).Allow(context.Background(), "resync", "ip", Rule{Limit: 2, Window: time.Minute})
	require.NoError(t, err)
	assert.True(t, result.Allowed)
	assert.Equal(t, "resync", result.EndpointKey)
	assert.Equal(t, "ip", result.IdentityKey)

	result, err = NewLimiter(client, testConfig()).Allow(context.Background(), "resync", "ip", Rule{Limit: 0, Window: time.Minute})
	require.NoError(t, err)
	assert.True(t, result.Allowed)

	assert.NoError(t, mock.ExpectationsWereMet(), "no redis calls")
}

func TestAllow_RedisError(t *testing.T) {
	client, mock := redismock.NewClientMock()
	limiter := NewLimiter(client, testConfig()).WithNow(func() time.Time { return fixedNow })
	mock.ExpectIncr(windowKey).SetErr(errors.New("connection refused"))

	_, err := limiter.Allow(context.Background(), "resync", "10.0.0.1", Rule{Limit: 2, Window: time.Minute})
	assert.Error(t, err)
}

func newRouter(limiter *Limiter) *gin.Engine {
	r := gin.New()
	r.POST("/resync", Middleware(limiter, "resync", Rule{Limit: 2, Window: time.Minute}), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r
}

func serve(r *gin.Engine) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/resync", nil)
	req.RemoteAddr = "10.0.0.1:5000"
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestMiddleware_TooManyRequests(t *testing.T) {
	client, mock := redismock.NewClientMock()
	limiter := NewLimiter(client, testConfig()).WithNow(func() time.Time { return fixedNow })
	mock.ExpectIncr(windowKey).SetVal(3)

	w := serve(newRouter(limiter))

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "30", w.Header().Get("Retry-After"))
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
}

func TestMiddleware_FailsOpen(t *testing.T) {
	client, mock := redismock.NewClientMock()
	limiter := NewLimiter(client, testConfig()).WithNow(func() time.Time { return fixedNow })
	mock.ExpectIncr(windowKey).SetErr(errors.New("connection refused"))

	w := serve(newRouter(limiter))
	assert.Equal(t, http.StatusOK, w.Code)
}
