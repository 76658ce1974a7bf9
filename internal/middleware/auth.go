package middleware

import (
	"crypto/subtle"
	"net/http"
	"time"

	"billing-api/internal/config"
	"billing-api/internal/response"

	"github.com/gin-gonic/gin"
)

// ServiceAuthMiddleware guards the read-side endpoints consumed by the
// marketplace backend. The webhook endpoint does NOT use this; its
// authentication is the Stripe signature.
func ServiceAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		apiKey := c.GetHeader("X-API-Key")

		// If not passed via header, try to get from query parameters
		if apiKey == "" {
			apiKey = c.Query("api_key")
		}

		if apiKey == "" {
			c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Missing api_key"))
			c.Abort()
			return
		}

		configured := config.AppConfig.ServiceAPIKey
		if configured == "" || subtle.ConstantTimeCompare([]byte(apiKey), []byte(configured)) != 1 {
			c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid api_key"))
			c.Abort()
			return
		}

		c.Set("request_time", time.Now())
		c.Next()
	}
}
