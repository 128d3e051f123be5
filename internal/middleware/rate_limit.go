package middleware

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/campuslink/campuslink-backend/internal/common"
	"github.com/campuslink/campuslink-backend/internal/ratelimit"
)

// RateLimit returns a gin middleware enforcing per-client request
// quotas. Authenticated clients are keyed by a token prefix so every
// device of a user shares one bucket; anonymous clients fall back to
// the source IP.
func RateLimit(limiter *ratelimit.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := clientKey(c)
		category := categorize(c)

		result := limiter.TryConsume(key, category)

		c.Header("X-RateLimit-Limit", strconv.Itoa(limiter.Capacity(category)))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))

		if !result.Allowed {
			CountRateLimitRejection(string(category))
			common.ErrorResponseFromErr(c, &common.RateLimitError{
				Remaining:         result.Remaining,
				RetryAfterSeconds: result.RetryAfterSeconds,
			})
			c.Abort()
			return
		}
		c.Next()
	}
}

// clientKey identifies the caller for quota purposes. The raw token is
// not stored; a short prefix is enough to keep buckets apart.
func clientKey(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		token := strings.TrimPrefix(authHeader, "Bearer ")
		if len(token) > 16 {
			token = token[:16]
		}
		if token != "" {
			return "tok:" + token
		}
	}
	return "ip:" + c.ClientIP()
}

// categorize picks the quota category from the request shape
func categorize(c *gin.Context) ratelimit.Category {
	path := c.Request.URL.Path
	method := c.Request.Method

	switch {
	case strings.HasSuffix(path, "/auth/login"):
		return ratelimit.CategoryLogin
	case strings.Contains(path, "/admin"):
		return ratelimit.CategoryAdmin
	case method == "POST" && strings.HasSuffix(path, "/messages"):
		return ratelimit.CategoryMessage
	case method == "POST" && strings.Contains(path, "/upload"):
		return ratelimit.CategoryUpload
	}

	if !strings.HasPrefix(c.GetHeader("Authorization"), "Bearer ") {
		return ratelimit.CategoryAnonymous
	}
	return ratelimit.CategoryDefault
}
