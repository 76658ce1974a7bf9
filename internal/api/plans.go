package api

import (
	"net/http"

	"billing-api/internal/database"
	"billing-api/internal/response"

	"github.com/gin-gonic/gin"
)

// GetPlans lists active subscription plans
// GET /api/plans
// Public: the storefront pricing page reads this.
func GetPlans(c *gin.Context) {
	plans, err := database.GetActivePlans()
	if err != nil {
		response.ErrorJSON(c, http.StatusInternalServerError, "Failed to get plans")
		return
	}

	response.SuccessJSON(c, plans)
}
