package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	iauth "github.com/charlesng35/notifier/internal/auth"
	"github.com/charlesng35/notifier/pkg/errors"
	"github.com/charlesng35/notifier/pkg/response"
)

const (
	CtxClaimsKey = "authClaims"
	CtxUserIDKey = "userID"
)

// TokenVerifier validates bearer tokens.
type TokenVerifier interface {
	Verify(token string) (*iauth.Claims, error)
}

// Auth requires a valid bearer token in the Authorization header.
func Auth(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		authenticate(c, verifier, bearerToken(c))
	}
}

// QueryAuth accepts the bearer token from the Authorization header or the
// named query parameter. Browsers cannot set headers on websocket upgrades.
func QueryAuth(verifier TokenVerifier, param string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			token = strings.TrimSpace(c.Query(param))
		}
		authenticate(c, verifier, token)
	}
}

// UserID returns the authenticated user of the request.
func UserID(c *gin.Context) string {
	return c.GetString(CtxUserIDKey)
}

func authenticate(c *gin.Context, verifier TokenVerifier, token string) {
	if token == "" || verifier == nil {
		c.Header("WWW-Authenticate", "Bearer")
		response.Error(c, errors.ErrUnauthorized)
		c.Abort()
		return
	}

	claims, err := verifier.Verify(token)
	if err != nil {
		c.Header("WWW-Authenticate", `Bearer error="invalid_token"`)
		response.Error(c, errors.ErrUnauthorized)
		c.Abort()
		return
	}

	c.Set(CtxClaimsKey, claims)
	c.Set(CtxUserIDKey, claims.UserID)
	c.Next()
}

func bearerToken(c *gin.Context) string {
	authz := c.GetHeader("Authorization")
	if len(authz) < 8 || !strings.EqualFold(authz[:7], "Bearer ") {
		return ""
	}
	return strings.TrimSpace(authz[7:])
}
