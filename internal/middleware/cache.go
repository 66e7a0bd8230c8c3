package middleware

import (
	"github.com/gin-gonic/gin"
)

// NoStore marks responses as uncacheable. The poll endpoints overwrite this
// with their own conditional-GET headers; everything else under the API must
// never be served from an intermediary cache.
func NoStore() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Cache-Control", "no-store")
		c.Next()
	}
}
