package models

import (
	"time"
)

// Subscription statuses. A failed renewal marks the row expired; a later
// successful invoice moves it back to active.
const (
	SubscriptionStatusActive    = "active"
	SubscriptionStatusCancelled = "cancelled"
	SubscriptionStatusExpired   = "expired"
)

// Billing periods accepted from checkout metadata.
const (
	BillingPeriodMonthly = "monthly"
	BillingPeriodYearly  = "yearly"
)

// Subscription stores one row per Stripe subscription and acts as the single
// source of subscription state for the marketplace. Rows are never hard-deleted;
// a subscription that truly ends is marked expired.
type Subscription struct {
	BaseModel

	AccountID string `json:"account_id" gorm:"not null;index"` // owning seller profile
	PlanTier  string `json:"plan_tier" gorm:"size:50;not null"`
	Status    string `json:"status" gorm:"not null;size:20;index"`

	PricePaid     float64 `json:"price_paid"`                        // amount charged at activation
	BillingPeriod string  `json:"billing_period" gorm:"size:20"`     // monthly or yearly

	StartsAt  time.Time `json:"starts_at"`
	ExpiresAt time.Time `json:"expires_at" gorm:"index"` // always sourced from Stripe's period end

	AutoRenew bool `json:"auto_renew"` // inverse of Stripe's cancel_at_period_end

	StripeCustomerID     string `json:"stripe_customer_id" gorm:"size:100;index"`
	StripeSubscriptionID string `json:"stripe_subscription_id" gorm:"not null;size:100;uniqueIndex"` // upsert key
	StripePriceID        string `json:"stripe_price_id" gorm:"size:100"`
}
