package middlewares

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// TokenCookie is the cookie login and the OAuth callback set.
const TokenCookie = "token"

// Keep this small interface so tests can fake it easily.
type TokenVerifier interface {
	Verify(token string, now time.Time) (string, error)
}

type AuthMiddleware struct {
	jwt TokenVerifier
	now func() time.Time
}

func NewAuthMiddleware(jwt TokenVerifier) *AuthMiddleware {
	return &AuthMiddleware{jwt: jwt, now: time.Now}
}

// RequireAuth accepts the token from the cookie first and falls back to the
// Authorization header. No store is consulted.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := tokenFromRequest(c)
		if raw == "" {
			abortUnauthorized(c, "You are not logged in, please provide token")
			return
		}

		subject, err := m.jwt.Verify(raw, m.now())
		if err != nil {
			abortUnauthorized(c, "Invalid or expired token")
			return
		}

		c.Set(CtxUserID, subject)
		c.Next()
	}
}

func tokenFromRequest(c *gin.Context) string {
	if v, err := c.Cookie(TokenCookie); err == nil && v != "" {
		return v
	}

	authHeader := c.GetHeader("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
}

func abortUnauthorized(c *gin.Context, message string) {
	reqID, _ := c.Get(CtxRequestID)
	id, _ := reqID.(string)

	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"status": "fail",
		"error": gin.H{
			"code":      "unauthorized",
			"message":   message,
			"requestId": id,
		},
	})
}

func UserIDFromContext(c *gin.Context) (string, bool) {
	v, ok := c.Get(CtxUserID)
	if !ok {
		return "", false
	}
	id, ok := v.(string)
	return id, ok && id != ""
}
