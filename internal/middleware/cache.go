package middleware

import "github.com/gin-gonic/gin"

// NoStore disables response caching. Applied to the API groups so
// proxies never serve stale quiz or session state to another caller.
func NoStore() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Cache-Control", "no-store")
		c.Next()
	}
}
