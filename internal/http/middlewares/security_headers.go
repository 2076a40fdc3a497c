package middlewares

import (
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	apiCSP = "default-src 'none'; frame-ancestors 'none'"
	// served images may be embedded by the client origin
	imagesCSP = "default-src 'none'; img-src 'self'"
)

func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("Referrer-Policy", "no-referrer")
		c.Header("X-XSS-Protection", "0")
		if strings.HasPrefix(c.Request.URL.Path, "/api/images/") {
			c.Header("Content-Security-Policy", imagesCSP)
			c.Header("Cross-Origin-Resource-Policy", "cross-origin")
		} else {
			c.Header("Content-Security-Policy", apiCSP)
			c.Header("X-Frame-Options", "DENY")
		}
		c.Next()
	}
}
