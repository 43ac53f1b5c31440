package middlewares

import (
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
)

// ApiKeyMiddleware guards the store API with a shared key. An empty
// QUOTE_STORE_API_KEY leaves the check off for local setups.
func ApiKeyMiddleware() gin.HandlerFunc {
	expected := os.Getenv("QUOTE_STORE_API_KEY")
	return func(c *gin.Context) {
		if expected == "" {
			c.Next()
			return
		}
		if c.Request.Header.Get("X-Api-Key") != expected {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}
		c.Next()
	}
}
