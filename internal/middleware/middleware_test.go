package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/labnotes/dailyhi/internal/pkg/response"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func ok(c *gin.Context) { c.Status(http.StatusOK) }

func do(r http.Handler, req *http.Request) int {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w.Code
}

func TestAdminAuth(t *testing.T) {
	r := gin.New()
	r.GET("/admin", AdminAuth("s3cret"), ok)

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	assert.Equal(t, http.StatusUnauthorized, do(r, req))

	req = httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer s3cret")
	assert.Equal(t, http.StatusOK, do(r, req))

	req = httptest.NewRequest(http.MethodGet, "/admin?token=s3cret", nil)
	assert.Equal(t, http.StatusOK, do(r, req))

	req = httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	assert.Equal(t, http.StatusUnauthorized, do(r, req))
}

func TestAdminAuthDisabledWithoutToken(t *testing.T) {
	r := gin.New()
	r.GET("/admin", AdminAuth(""), ok)
	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer ")
	assert.Equal(t, http.StatusUnauthorized, do(r, req))
}

func TestNormalizeToken(t *testing.T) {
	assert.Equal(t, "abc", NormalizeToken("  Bearer abc "))
	assert.Equal(t, "abc", NormalizeToken("abc"))
	assert.Empty(t, NormalizeToken(" "))
}

func TestRateLimit(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	r := gin.New()
	r.POST("/subscribe", RateLimit(rdb, 2, time.Hour, zap.NewNop()), ok)

	post := func() int { return do(r, httptest.NewRequest(http.MethodPost, "/subscribe", nil)) }
	assert.Equal(t, http.StatusOK, post())
	assert.Equal(t, http.StatusOK, post())
	assert.Equal(t, http.StatusTooManyRequests, post())
}

func TestRateLimitRetryAfterCoversWindow(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	r := gin.New()
	r.POST("/subscribe", RateLimit(rdb, 1, time.Minute, zap.NewNop()), ok)

	do(r, httptest.NewRequest(http.MethodPost, "/subscribe", nil))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/subscribe", nil))
	require.Equal(t, http.StatusTooManyRequests, w.Code)

	secs, err := strconv.Atoi(w.Header().Get("Retry-After"))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, secs, 1)
	assert.LessOrEqual(t, secs, 60)
}

func TestLoggerRecordsHandlerErrors(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	r := gin.New()
	r.Use(Logger(zap.New(core)))
	r.GET("/verify/:code", func(c *gin.Context) {
		response.InternalError(c, errors.New("dial tcp 10.0.0.3:3306: connection refused"))
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/verify/deadbeef", nil))
	assert.NotContains(t, w.Body.String(), "10.0.0.3")

	entries := logs.FilterLevelExact(zap.ErrorLevel).All()
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].ContextMap()["errors"], "dial tcp 10.0.0.3:3306: connection refused")
}

func TestRateLimitFailsOpen(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	mr.Close()

	r := gin.New()
	r.POST("/subscribe", RateLimit(rdb, 1, time.Hour, zap.NewNop()), ok)
	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, do(r, httptest.NewRequest(http.MethodPost, "/subscribe", nil)))
	}

	r = gin.New()
	r.POST("/subscribe", RateLimit(nil, 1, time.Hour, zap.NewNop()), ok)
	assert.Equal(t, http.StatusOK, do(r, httptest.NewRequest(http.MethodPost, "/subscribe", nil)))
}

func TestLoggerUsesRoutePattern(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	r := gin.New()
	r.Use(Logger(zap.New(core)))
	r.GET("/verify/:code", ok)

	do(r, httptest.NewRequest(http.MethodGet, "/verify/deadbeef", nil))
	entries := logs.All()
	if assert.Len(t, entries, 1) {
		assert.Equal(t, "/verify/:code", entries[0].ContextMap()["path"])
	}
}
