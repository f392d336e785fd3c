package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Bekzhanizb/habitly/cache"
	"github.com/Bekzhanizb/habitly/models"
	"github.com/Bekzhanizb/habitly/utils"
	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type userMap map[string]*models.User

func (m userMap) GetUser(_ context.Context, id string) (*models.User, error) {
	if u, ok := m[id]; ok {
		copied := *u
		return &copied, nil
	}
	return nil, errors.New("not found")
}

func serve(r *gin.Engine, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	issuer := utils.NewTokenIssuer("secret", time.Hour)
	users := userMap{"u1": {ID: "u1", Email: "a@example.com"}}

	r := gin.New()
	r.Use(AuthMiddleware(issuer, users))
	r.GET("/me", func(c *gin.Context) {
		user, ok := CurrentUser(c)
		require.True(t, ok)
		c.String(http.StatusOK, user.ID)
	})

	valid, err := issuer.GenerateToken("u1", "a@example.com")
	require.NoError(t, err)
	ghost, err := issuer.GenerateToken("u2", "b@example.com")
	require.NoError(t, err)

	w := serve(r, http.MethodGet, "/me", valid)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "u1", w.Body.String())

	w = serve(r, http.MethodGet, "/me?access_token="+valid, "")
	assert.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodGet, "/me", "").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodGet, "/me", "not-a-jwt").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodGet, "/me", ghost).Code)
}

func TestRecovery(t *testing.T) {
	r := gin.New()
	r.Use(Recovery(), SecurityHeaders())
	r.GET("/boom", func(c *gin.Context) { panic("boom") })

	w := serve(r, http.MethodGet, "/boom", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"internal server error"}`, w.Body.String())
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
}

func TestRequestLogger_KeepsRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestLogger())
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))

	w = serve(r, http.MethodGet, "/ping", "")
	assert.Len(t, w.Header().Get(RequestIDHeader), 36)
}

func TestCacheMiddleware(t *testing.T) {
	mr := miniredis.RunT(t)
	store := cache.New(redis.NewClient(&redis.Options{Addr: mr.Addr()}))

	calls := 0
	r := gin.New()
	r.Use(func(c *gin.Context) {
		SetUser(c, &models.User{ID: c.GetHeader("X-User")})
		c.Next()
	})
	r.GET("/data", CacheMiddleware(store, time.Minute), func(c *gin.Context) {
		calls++
		c.JSON(http.StatusOK, gin.H{"calls": calls})
	})

	get := func(user string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/data", nil)
		req.Header.Set("X-User", user)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	first := get("u1")
	assert.Equal(t, "MISS", first.Header().Get("X-Cache"))
	second := get("u1")
	assert.Equal(t, "HIT", second.Header().Get("X-Cache"))
	assert.JSONEq(t, first.Body.String(), second.Body.String())
	assert.Equal(t, "application/json; charset=utf-8", second.Header().Get("Content-Type"))

	// entries are per user
	assert.Equal(t, "MISS", get("u2").Header().Get("X-Cache"))

	require.NoError(t, store.InvalidateUser(context.Background(), "u1"))
	assert.Equal(t, "MISS", get("u1").Header().Get("X-Cache"))
	assert.Equal(t, 3, calls)
}

func TestCacheMiddleware_NilCachePassesThrough(t *testing.T) {
	r := gin.New()
	r.GET("/data", CacheMiddleware(nil, time.Minute), func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	w := serve(r, http.MethodGet, "/data", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("X-Cache"))
}

func TestRateLimitMiddleware(t *testing.T) {
	mr := miniredis.RunT(t)
	store := cache.New(redis.NewClient(&redis.Options{Addr: mr.Addr()}))

	r := gin.New()
	r.POST("/login", RateLimitMiddleware(store, 3, time.Minute), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, serve(r, http.MethodPost, "/login", "").Code)
	}
	assert.Equal(t, http.StatusTooManyRequests, serve(r, http.MethodPost, "/login", "").Code)

	mr.FastForward(2 * time.Minute)
	assert.Equal(t, http.StatusOK, serve(r, http.MethodPost, "/login", "").Code)

	// Redis down: requests are let through
	mr.Close()
	assert.Equal(t, http.StatusOK, serve(r, http.MethodPost, "/login", "").Code)
}

func TestValidateStruct_CalendarDate(t *testing.T) {
	type req struct {
		Date string `validate:"required,calendar_date"`
	}
	assert.NoError(t, ValidateStruct(req{Date: "2024-02-29"}))
	assert.Error(t, ValidateStruct(req{Date: "2023-02-29"}))
	assert.Error(t, ValidateStruct(req{Date: "2024-6-1"}))
	assert.Error(t, ValidateStruct(req{}))
}
