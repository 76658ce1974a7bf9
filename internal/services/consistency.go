package services

import (
	"fmt"
	"math"

	"billing-api/internal/models"
	"billing-api/pkg/logging"
)

// VerifyPlanPricing cross-checks the provider's reported price identifier and
// charged amount against the plan before any state is committed. Checkout
// metadata is client-controlled and could be replayed or tampered with; the
// subscription resource fetched from Stripe is what was actually charged, and
// it must match what will be granted.
//
// Both checks are blocking: a mismatch on either aborts the checkout handler
// with no partial write.
func VerifyPlanPricing(plan *models.SubscriptionPlan, billingPeriod string, subscription *ProviderSubscription) error {
	// Price-identifier check. Skipped only when the plan has no explicit
	// Stripe price id configured for this period.
	if expected := plan.StripePriceIDFor(billingPeriod); expected != "" {
		if actual := subscription.FirstPriceID(); actual != expected {
			return fmt.Errorf("price id mismatch for plan %s (%s): expected %s, subscription charged %s",
				plan.PlanID, billingPeriod, expected, actual)
		}
	} else {
		logging.Warnf("Plan %s has no Stripe price id configured for %s billing, skipping price id check",
			plan.PlanID, billingPeriod)
	}

	// Amount check. Skipped when Stripe did not report a numeric unit amount.
	if unitAmount := subscription.FirstUnitAmount(); unitAmount != nil {
		expectedMinor := int64(math.Round(plan.PriceFor(billingPeriod) * 100))
		if *unitAmount != expectedMinor {
			return fmt.Errorf("amount mismatch for plan %s (%s): expected %d, subscription charged %d",
				plan.PlanID, billingPeriod, expectedMinor, *unitAmount)
		}
	}

	return nil
}
