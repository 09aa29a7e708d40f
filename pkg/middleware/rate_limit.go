package middleware

import (
	"net/http"
	"strconv"

	"mediagrab/internal/model"
	"mediagrab/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RateLimiter decides whether a client may make another request
type RateLimiter interface {
	IsAllowed(ip string) bool
	GetRemaining(ip string) int
}

// QuotaChecker reports whether a client has download quota left
type QuotaChecker interface {
	CheckQuota(ip string) (bool, int64)
}

// RateLimitMiddleware creates a middleware for rate limiting
func RateLimitMiddleware(limiter RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()

		if !limiter.IsAllowed(ip) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, model.ErrorResponse{
				Error:   "rate_limit_exceeded",
				Message: "Too many requests. Please try again later.",
				Code:    http.StatusTooManyRequests,
			})
			return
		}

		if remaining := limiter.GetRemaining(ip); remaining >= 0 {
			c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		}

		c.Next()
	}
}

// QuotaCheckMiddleware rejects download requests from clients whose daily
// quota is used up. Usage itself is charged by the download handler.
func QuotaCheckMiddleware(quota QuotaChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodPost || c.FullPath() != "/download" {
			c.Next()
			return
		}

		ip := c.ClientIP()
		ok, remaining := quota.CheckQuota(ip)
		if !ok {
			logger.Logger.Warn("Download rejected, quota exhausted", zap.String("ip", ip))
			c.AbortWithStatusJSON(http.StatusPaymentRequired, model.ErrorResponse{
				Error:   "quota_exceeded",
				Message: "Daily download quota exhausted. Please try again after the reset time.",
				Code:    http.StatusPaymentRequired,
			})
			return
		}

		c.Header("X-Quota-Remaining-MB", strconv.FormatInt(remaining, 10))
		c.Next()
	}
}
