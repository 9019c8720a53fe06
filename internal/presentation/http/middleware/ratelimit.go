package middleware

import (
	"net/http"
	"strconv"

	"github.com/AtRiskMedia/leadtrack-go/internal/infrastructure/caching/stores"
	"github.com/gin-gonic/gin"
)

const (
	HeaderRateLimitRemaining = "X-RateLimit-Remaining"
	HeaderRateLimitReset     = "X-RateLimit-Reset"
)

// RateLimit rejects callers over the limiter's budget with 429. Reset is
// sent as epoch milliseconds.
func RateLimit(limiter *stores.RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		result := limiter.Allow(c.ClientIP())
		c.Header(HeaderRateLimitRemaining, strconv.Itoa(result.Remaining))
		c.Header(HeaderRateLimitReset, strconv.FormatInt(result.ResetAt.UnixMilli(), 10))

		if !result.Allowed {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Rate limited"})
			return
		}
		c.Next()
	}
}
