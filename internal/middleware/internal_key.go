package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/notifier/pkg/errors"
	"github.com/charlesng35/notifier/pkg/response"
)

// InternalKeyHeader carries the shared secret of service-to-service calls.
const InternalKeyHeader = "X-Internal-Key"

// InternalKey admits requests presenting the shared internal API key. With
// no key configured every request is refused.
func InternalKey(key string) gin.HandlerFunc {
	expected := []byte(strings.TrimSpace(key))
	return func(c *gin.Context) {
		if len(expected) == 0 {
			response.Error(c, errors.ErrServiceUnavailable)
			c.Abort()
			return
		}
		presented := []byte(strings.TrimSpace(c.GetHeader(InternalKeyHeader)))
		if subtle.ConstantTimeCompare(presented, expected) != 1 {
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}
		c.Next()
	}
}
