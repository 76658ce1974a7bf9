package services

import (
	"errors"

	"billing-api/internal/models"
)

// ErrMissingMetadata signals that a checkout session lacked a required
// metadata field. Callers log and return early; this is never a reason to
// fail the webhook delivery.
var ErrMissingMetadata = errors.New("checkout session missing required metadata")

// CheckoutMetadata is the minimal structured data needed to act on a
// checkout.session.completed event.
type CheckoutMetadata struct {
	AccountID            string
	PlanID               string
	BillingPeriod        string
	StripeSubscriptionID string
}

// ExtractCheckoutMetadata pulls the required fields out of a checkout session
// payload. The account id may arrive under the current "account_id" key or
// the legacy "profile_id" key; the current name wins when both are present.
// The billing period must be exactly "monthly" or "yearly"; anything else is
// treated as absent.
func ExtractCheckoutMetadata(session *CheckoutSession) (*CheckoutMetadata, error) {
	if session.Metadata == nil {
		return nil, ErrMissingMetadata
	}

	accountID := session.Metadata["account_id"]
	if accountID == "" {
		accountID = session.Metadata["profile_id"]
	}

	planID := session.Metadata["plan_id"]

	billingPeriod := session.Metadata["billing_period"]
	if billingPeriod != models.BillingPeriodMonthly && billingPeriod != models.BillingPeriodYearly {
		billingPeriod = ""
	}

	subscriptionID := session.SubscriptionRef()

	if accountID == "" || planID == "" || billingPeriod == "" || subscriptionID == "" {
		return nil, ErrMissingMetadata
	}

	return &CheckoutMetadata{
		AccountID:            accountID,
		PlanID:               planID,
		BillingPeriod:        billingPeriod,
		StripeSubscriptionID: subscriptionID,
	}, nil
}
