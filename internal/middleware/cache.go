package middleware

import "github.com/gin-gonic/gin"

// NoStore forbids browsers and proxies from caching responses. Exam
// payloads and attempt state must always be read fresh.
func NoStore() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Cache-Control", "no-store")
		c.Header("Pragma", "no-cache")
		c.Next()
	}
}
