package database

import (
	"billing-api/internal/models"
)

// GetActivePlanByPlanID loads a plan definition scoped to currently-active
// plans. Inactive plans are invisible to the billing flow.
func GetActivePlanByPlanID(planID string) (*models.SubscriptionPlan, error) {
	var plan models.SubscriptionPlan
	err := DB.Where("plan_id = ? AND is_active = ?", planID, true).First(&plan).Error
	if err != nil {
		return nil, err
	}
	return &plan, nil
}

// GetActiveFreePlan resolves the free-tier plan matching an account type,
// used by the downgrade path.
func GetActiveFreePlan(accountType string) (*models.SubscriptionPlan, error) {
	var plan models.SubscriptionPlan
	err := DB.Where("tier = ? AND account_type = ? AND is_active = ?",
		models.FreeTier, accountType, true).First(&plan).Error
	if err != nil {
		return nil, err
	}
	return &plan, nil
}

// GetActivePlans lists all active plans for the storefront pricing page.
func GetActivePlans() ([]models.SubscriptionPlan, error) {
	var plans []models.SubscriptionPlan
	err := DB.Where("is_active = ?", true).Order("account_type, price_monthly").Find(&plans).Error
	return plans, err
}
