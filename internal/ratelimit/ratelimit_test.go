package ratelimit

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/docrender/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLimiter struct {
	results []*RateLimitResult
	err     error
	keys    []string
}

func (f *fakeLimiter) AllowClient(_ context.Context, key string) (*RateLimitResult, error) {
	f.keys = append(f.keys, key)
	if f.err != nil {
		return nil, f.err
	}
	res := f.results[0]
	f.results = f.results[1:]
	return res, nil
}

func newRouter(l ClientLimiter) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/v1/invoices/render", GinMiddleware(l, nil, nil), func(c *gin.Context) {
		c.Status(http.StatusCreated)
	})
	return r
}

func serve(r *gin.Engine) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/invoices/render", nil)
	req.RemoteAddr = "10.1.2.3:5555"
	r.ServeHTTP(w, req)
	return w
}

func TestMiddlewareAllowsThenDenies(t *testing.T) {
	l := &fakeLimiter{results: []*RateLimitResult{
		{Allowed: true, Limit: 2, Remaining: 1},
		{Allowed: false, Limit: 2, Remaining: 0, RetryAfter: 1500 * time.Millisecond},
	}}
	r := newRouter(l)

	w := serve(r)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "1", w.Header().Get("X-RateLimit-Remaining"))

	w = serve(r)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "2", w.Header().Get("Retry-After"))
	assert.JSONEq(t, `{"error":{"type":"rate_limited","message":"too many render requests"}}`, w.Body.String())
	assert.Equal(t, []string{"10.1.2.3", "10.1.2.3"}, l.keys)
}

func TestMiddlewareFailsOpen(t *testing.T) {
	w := serve(newRouter(&fakeLimiter{err: errors.New("redis down")}))
	assert.Equal(t, http.StatusCreated, w.Code)

	w = serve(newRouter(nil))
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestBucketResult(t *testing.T) {
	res := bucketResult(false, 0.5, 1_000, 2, 10)
	assert.False(t, res.Allowed)
	assert.Equal(t, 250*time.Millisecond, res.RetryAfter)
	assert.Equal(t, 0, res.Remaining)
	assert.Equal(t, 10, res.Limit)

	res = bucketResult(true, 3.7, 1_000, 2, 10)
	assert.Equal(t, 3, res.Remaining)
	assert.Zero(t, res.RetryAfter)
}

func TestDefaultBucketTTL(t *testing.T) {
	assert.Equal(t, 10*time.Second, defaultBucketTTL(2, 10))
	assert.Equal(t, time.Second, defaultBucketTTL(100, 1))
	assert.Equal(t, time.Second, defaultBucketTTL(0, 1))
}

func TestCasts(t *testing.T) {
	assert.Equal(t, int64(7), castToInt("7"))
	assert.Equal(t, int64(7), castToInt(int64(7)))
	assert.Equal(t, 2.5, castToFloat("2.5"))
	assert.Equal(t, 0.0, castToFloat(nil))
}

func TestDisabledLimiter(t *testing.T) {
	assert.Nil(t, NewRenderLimiter(config.Config{RateLimitEnabled: true}, nil, nil))

	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	defer client.Close()

	unthrottled := NewRenderLimiter(config.Config{RateLimitEnabled: false}, client, nil)
	require.NotNil(t, unthrottled)
	assert.False(t, unthrottled.Throttling())
	assert.True(t, unthrottled.Locking())

	invalid := NewRenderLimiter(config.Config{RateLimitEnabled: true, RateLimitRPS: 0, RateLimitBurst: 1}, client, nil)
	require.NotNil(t, invalid)
	assert.False(t, invalid.Throttling())

	throttled := NewRenderLimiter(config.Config{RateLimitEnabled: true, RateLimitRPS: 1, RateLimitBurst: 1}, client, nil)
	require.NotNil(t, throttled)
	assert.True(t, throttled.Throttling())
	assert.True(t, throttled.Locking())

	var l *RenderLimiter
	res, err := l.AllowClient(context.Background(), "x")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	token, ok, err := l.TryLockOrder(context.Background(), "invoice", 1)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, token)
	assert.NoError(t, l.ReleaseOrder(context.Background(), "invoice", 1, token))
}

func TestOrderLeaseWithoutThrottling(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	defer client.Close()
	l := NewRenderLimiter(config.Config{RateLimitEnabled: false}, client, nil)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	res, err := l.AllowClient(ctx, "10.1.2.3")
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	// The lease goes to Redis even though throttling is off.
	_, ok, err := l.TryLockOrder(ctx, "invoice", 7)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotConfigured)
	assert.False(t, ok)
}

func TestTokenBucketValidation(t *testing.T) {
	var tb *TokenBucket
	_, err := tb.Allow(context.Background(), "k", 1, 1)
	assert.ErrorIs(t, err, ErrNotConfigured)

	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	defer client.Close()
	_, err = NewTokenBucket(client).Allow(context.Background(), "", 1, 1)
	assert.ErrorIs(t, err, ErrInvalidBucket)
}
