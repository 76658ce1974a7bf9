package services

import (
	"testing"

	"billing-api/internal/models"
	"billing-api/pkg/logging"

	"github.com/stretchr/testify/assert"
)

func TestVerifyPlanPricing(t *testing.T) {
	logging.InitLogging()

	plan := &models.SubscriptionPlan{
		PlanID:               "business-pro",
		PriceMonthly:         29.99,
		PriceYearly:          299.99,
		StripePriceIDMonthly: "price_monthly_pro",
		StripePriceIDYearly:  "price_yearly_pro",
	}

	tests := []struct {
		name          string
		plan          *models.SubscriptionPlan
		billingPeriod string
		subscription  string
		wantErr       bool
	}{
		{
			name:          "matching id and amount",
			plan:          plan,
			billingPeriod: models.BillingPeriodMonthly,
			subscription:  `{"items": {"data": [{"price": {"id": "price_monthly_pro", "unit_amount": 2999}}]}}`,
		},
		{
			name:          "yearly period resolves yearly id and price",
			plan:          plan,
			billingPeriod: models.BillingPeriodYearly,
			subscription:  `{"items": {"data": [{"price": {"id": "price_yearly_pro", "unit_amount": 29999}}]}}`,
		},
		{
			name:          "price id mismatch",
			plan:          plan,
			billingPeriod: models.BillingPeriodMonthly,
			subscription:  `{"items": {"data": [{"price": {"id": "price_other", "unit_amount": 2999}}]}}`,
			wantErr:       true,
		},
		{
			name:          "amount mismatch",
			plan:          plan,
			billingPeriod: models.BillingPeriodMonthly,
			subscription:  `{"items": {"data": [{"price": {"id": "price_monthly_pro", "unit_amount": 999}}]}}`,
			wantErr:       true,
		},
		{
			name:          "amount check skipped when unit amount absent",
			plan:          plan,
			billingPeriod: models.BillingPeriodMonthly,
			subscription:  `{"items": {"data": [{"price": {"id": "price_monthly_pro"}}]}}`,
		},
		{
			name: "id check skipped when plan has no configured price id",
			plan: &models.SubscriptionPlan{
				PlanID:       "legacy-plan",
				PriceMonthly: 9.99,
			},
			billingPeriod: models.BillingPeriodMonthly,
			subscription:  `{"items": {"data": [{"price": {"id": "price_whatever", "unit_amount": 999}}]}}`,
		},
		{
			name: "amount still checked when id check is skipped",
			plan: &models.SubscriptionPlan{
				PlanID:       "legacy-plan",
				PriceMonthly: 9.99,
			},
			billingPeriod: models.BillingPeriodMonthly,
			subscription:  `{"items": {"data": [{"price": {"id": "price_whatever", "unit_amount": 1299}}]}}`,
			wantErr:       true,
		},
		{
			name: "fractional price rounds to minor units",
			plan: &models.SubscriptionPlan{
				PlanID:       "odd-priced",
				PriceMonthly: 5.55,
			},
			billingPeriod: models.BillingPeriodMonthly,
			subscription:  `{"items": {"data": [{"price": {"unit_amount": 555}}]}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub := providerSubFromJSON(t, tt.subscription)
			err := VerifyPlanPricing(tt.plan, tt.billingPeriod, sub)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
