package api

import (
	"billing-api/internal/middleware"

	"github.com/gin-gonic/gin"
)

// SetupRoutes sets up all routes
func SetupRoutes(r *gin.Engine) {
	// API route group
	api := r.Group("/api")
	{
		// Stripe webhook (no middleware auth - the signature is the
		// authentication, computed over the raw body)
		webhooks := api.Group("/webhooks")
		{
			webhooks.POST("/stripe", StripeWebhookHandler)
		}

		// Subscription routes for the marketplace backend
		subscriptions := api.Group("/subscriptions")
		subscriptions.Use(middleware.ServiceAuthMiddleware())
		{
			subscriptions.GET("/status", GetSubscriptionStatus)
		}

		// Plan catalog (public, read-only)
		api.GET("/plans", GetPlans)
	}

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"service": "billing-service",
		})
	})
}
