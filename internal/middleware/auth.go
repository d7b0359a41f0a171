package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/labnotes/dailyhi/internal/pkg/response"
)

// AdminAuth accepts requests carrying the configured admin token.
// With no token configured every request is rejected.
func AdminAuth(adminToken string) gin.HandlerFunc {
	want := []byte(strings.TrimSpace(adminToken))
	return func(c *gin.Context) {
		got := []byte(extractToken(c))
		if len(want) == 0 || subtle.ConstantTimeCompare(got, want) != 1 {
			response.Unauthorized(c)
			return
		}
		c.Next()
	}
}

func extractToken(c *gin.Context) string {
	if auth := c.GetHeader("Authorization"); auth != "" {
		return NormalizeToken(auth)
	}
	return NormalizeToken(c.Query("token"))
}

// NormalizeToken trims spaces and strips optional Bearer prefix.
func NormalizeToken(raw string) string {
	token := strings.TrimSpace(raw)
	if strings.HasPrefix(strings.ToLower(token), "bearer ") {
		return strings.TrimSpace(token[7:])
	}
	return token
}
