package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"mediagrab/internal/metrics"
	"mediagrab/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeLimiter struct {
	allow     bool
	remaining int
}

func (f fakeLimiter) IsAllowed(ip string) bool { return f.allow }
func (f fakeLimiter) GetRemaining(ip string) int { return f.remaining }

type fakeQuota struct {
	ok        bool
	remaining int64
	calls     int
}

func (f *fakeQuota) CheckQuota(ip string) (bool, int64) {
	f.calls++
	return f.ok, f.remaining
}

func okHandler(c *gin.Context) { c.String(http.StatusOK, "ok") }

func serve(r *gin.Engine, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func TestRateLimitMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(RateLimitMiddleware(fakeLimiter{allow: true, remaining: 4}))
	r.GET("/x", okHandler)

	w := serve(r, http.MethodGet, "/x")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "4", w.Header().Get("X-RateLimit-Remaining"))

	r = gin.New()
	r.Use(RateLimitMiddleware(fakeLimiter{allow: false}))
	r.GET("/x", okHandler)

	w = serve(r, http.MethodGet, "/x")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "rate_limit_exceeded")
}

func TestQuotaCheckMiddleware(t *testing.T) {
	quota := &fakeQuota{ok: false}
	r := gin.New()
	r.Use(QuotaCheckMiddleware(quota))
	r.POST("/download", okHandler)
	r.POST("/analyze", okHandler)

	w := serve(r, http.MethodPost, "/analyze")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Zero(t, quota.calls, "only downloads are quota checked")

	w = serve(r, http.MethodPost, "/download")
	assert.Equal(t, http.StatusPaymentRequired, w.Code)
	assert.Contains(t, w.Body.String(), "quota_exceeded")

	quota.ok, quota.remaining = true, 12
	w = serve(r, http.MethodPost, "/download")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "12", w.Header().Get("X-Quota-Remaining-MB"))
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/x", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(logger.RequestIDKey))
	})

	w := serve(r, http.MethodGet, "/x")
	generated := w.Header().Get(RequestIDHeader)
	assert.Len(t, generated, 36)
	assert.Equal(t, generated, w.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Body.String())
}

func TestMetricsMiddleware(t *testing.T) {
	metrics.HTTPRequestsTotal.Reset()

	r := gin.New()
	r.Use(Metrics())
	r.GET("/health", okHandler)

	serve(r, http.MethodGet, "/health")
	serve(r, http.MethodGet, "/nope")

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.HTTPRequestsTotal.WithLabelValues("GET", "/health", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.HTTPRequestsTotal.WithLabelValues("GET", "unmatched", "404")))
}
