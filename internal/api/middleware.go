package api

import (
	"crypto/sha256"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/kiroproxy/gateway/internal/translator/kiro/openai"
)

// corsMiddleware is permissive (matches the spec's "whole router" CORS
// policy): any origin, method, and header is allowed.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "*")
		c.Header("Access-Control-Allow-Headers", "*")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// authMiddleware rejects requests whose bearer token doesn't match the
// configured API key, using a constant-time comparison to resist timing
// side channels. Comparing fixed-size SHA-256 digests rather than the raw
// strings also avoids leaking the expected key's length.
func authMiddleware(s *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		expected := s.config().APIKey
		token := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")

		if expected == "" || !constantTimeEqual(token, expected) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, openai.AuthenticationErrorResponse())
			return
		}
		c.Next()
	}
}

func constantTimeEqual(a, b string) bool {
	ha := sha256.Sum256([]byte(a))
	hb := sha256.Sum256([]byte(b))
	return subtle.ConstantTimeCompare(ha[:], hb[:]) == 1
}
