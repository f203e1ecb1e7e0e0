package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"nfc-wallet/internal/adapter/http/middleware"
	redisStore "nfc-wallet/internal/adapter/storage/redis"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func setupRateLimitRouter(store middleware.RateLimitStore, owner *uuid.UUID) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	rule := middleware.RateLimitRule{Limit: 3, Window: time.Minute}
	log := zerolog.Nop()

	authenticate := func(c *gin.Context) {
		if owner != nil {
			c.Set(middleware.CtxOwnerID, *owner)
		}
	}
	r.GET("/test", authenticate, middleware.RateLimiter(store, "test", rule, log), func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	return r
}

func newStore(t *testing.T) (*miniredis.Miniredis, *redisStore.RateLimitStore) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, redisStore.NewRateLimitStore(client)
}

func get(router *gin.Engine) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequestWithContext(context.Background(), "GET", "/test", nil)
	router.ServeHTTP(w, req)
	return w
}

func TestRateLimiter_AllowsWithinLimit(t *testing.T) {
	_, store := newStore(t)
	router := setupRateLimitRouter(store, nil)

	for i := 0; i < 3; i++ {
		w := get(router)
		assert.Equal(t, 200, w.Code, "request %d should succeed", i+1)
		assert.Equal(t, "3", w.Header().Get("X-RateLimit-Limit"))
		assert.NotEmpty(t, w.Header().Get("X-RateLimit-Remaining"))
		assert.NotEmpty(t, w.Header().Get("X-RateLimit-Reset"))
	}
}

func TestRateLimiter_BlocksOverLimit(t *testing.T) {
	_, store := newStore(t)
	router := setupRateLimitRouter(store, nil)

	for i := 0; i < 3; i++ {
		get(router)
	}

	w := get(router)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
}

func TestRateLimiter_SeparateBucketsPerOwner(t *testing.T) {
	_, store := newStore(t)
	alice, bob := uuid.New(), uuid.New()
	aliceRouter := setupRateLimitRouter(store, &alice)
	bobRouter := setupRateLimitRouter(store, &bob)

	for i := 0; i < 3; i++ {
		assert.Equal(t, 200, get(aliceRouter).Code)
	}
	assert.Equal(t, http.StatusTooManyRequests, get(aliceRouter).Code)
	assert.Equal(t, 200, get(bobRouter).Code)
}

func TestRateLimiter_DegradedModeAllows(t *testing.T) {
	mr, store := newStore(t)
	mr.Close()
	router := setupRateLimitRouter(store, nil)

	w := get(router)
	assert.Equal(t, 200, w.Code)
	assert.Empty(t, w.Header().Get("X-RateLimit-Limit"))
}

func TestDefaultRateLimitRules(t *testing.T) {
	rules := middleware.DefaultRateLimitRules()
	for _, group := range []string{"transfers", "payments", "card_verify", "acceptance"} {
		rule, ok := rules[group]
		assert.True(t, ok, group)
		assert.Positive(t, rule.Limit, group)
		assert.Positive(t, rule.Window, group)
	}
}
