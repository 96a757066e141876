package api

import (
	"github.com/gin-gonic/gin"
)

// NewRouter builds the gin engine: permissive CORS for every route, an
// unauthenticated /healthz probe, and the bearer-authenticated OpenAI
// surface.
func NewRouter(s *Server) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(corsMiddleware())

	r.GET("/healthz", healthzHandler)

	v1 := r.Group("/v1")
	v1.Use(authMiddleware(s))
	v1.POST("/chat/completions", s.chatCompletions)

	return r
}

func healthzHandler(c *gin.Context) {
	c.JSON(200, gin.H{"status": "ok"})
}
