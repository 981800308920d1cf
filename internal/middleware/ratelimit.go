package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/charlesng35/notifier/pkg/errors"
	"github.com/charlesng35/notifier/pkg/logger"
	"github.com/charlesng35/notifier/pkg/response"
)

// KeyFunc derives the rate limit bucket of a request.
type KeyFunc func(c *gin.Context) string

// ByUser buckets requests by authenticated user and route.
func ByUser(c *gin.Context) string {
	if id := UserID(c); id != "" {
		return "user:" + id + "|" + c.FullPath()
	}
	return ByClientIP(c)
}

// ByClientIP buckets requests by client address and route.
func ByClientIP(c *gin.Context) string {
	return "ip:" + c.ClientIP() + "|" + c.FullPath()
}

// RateLimit allows limit requests per bucket within window. Store failures let
// the request through.
func RateLimit(store RateStore, limit int, window time.Duration, key KeyFunc) gin.HandlerFunc {
	if key == nil {
		key = ByClientIP
	}
	return func(c *gin.Context) {
		if store == nil || limit <= 0 || window <= 0 {
			c.Next()
			return
		}

		count, ttl, err := store.Increment(c.Request.Context(), "ratelimit:"+key(c), window)
		if err != nil {
			logger.WithModule("http").Warn("rate limit store unavailable", zap.Error(err))
			c.Next()
			return
		}

		reset := int(ttl.Round(time.Second) / time.Second)
		c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(max(0, limit-count)))
		c.Header("X-RateLimit-Reset", strconv.Itoa(reset))

		if count > limit {
			c.Header("Retry-After", strconv.Itoa(max(1, reset)))
			response.Error(c, errors.ErrRateLimit)
			c.Abort()
			return
		}
		c.Next()
	}
}
