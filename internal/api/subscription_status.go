package api

import (
	"net/http"
	"time"

	"billing-api/internal/database"
	"billing-api/internal/models"

	"github.com/gin-gonic/gin"
)

// GetSubscriptionStatusResponse represents subscription status response
type GetSubscriptionStatusResponse struct {
	Success       bool   `json:"success"`
	Message       string `json:"message,omitempty"`
	IsActive      bool   `json:"is_active"`
	Status        string `json:"status,omitempty"`
	PlanTier      string `json:"plan_tier,omitempty"`
	BillingPeriod string `json:"billing_period,omitempty"`
	ExpiresAt     string `json:"expires_at,omitempty"`
	AutoRenew     bool   `json:"auto_renew,omitempty"`
}

// GetSubscriptionStatus gets an account's subscription status
// GET /api/subscriptions/status?account_id=xxx
// Called by the marketplace backend to render seller tier and expiry.
func GetSubscriptionStatus(c *gin.Context) {
	accountID := c.Query("account_id")
	if accountID == "" {
		c.JSON(http.StatusBadRequest, GetSubscriptionStatusResponse{
			Success: false,
			Message: "account_id is required",
		})
		return
	}

	subscription, err := database.GetActiveSubscriptionForAccount(accountID)
	if err != nil {
		// No active subscription found
		c.JSON(http.StatusOK, GetSubscriptionStatusResponse{
			Success:  true,
			IsActive: false,
			Status:   "inactive",
			PlanTier: models.FreeTier,
		})
		return
	}

	isActive := subscription.Status == models.SubscriptionStatusActive && subscription.ExpiresAt.After(time.Now())

	c.JSON(http.StatusOK, GetSubscriptionStatusResponse{
		Success:       true,
		IsActive:      isActive,
		Status:        subscription.Status,
		PlanTier:      subscription.PlanTier,
		BillingPeriod: subscription.BillingPeriod,
		ExpiresAt:     subscription.ExpiresAt.Format(time.RFC3339),
		AutoRenew:     subscription.AutoRenew,
	})
}
