package models

// Account types a plan applies to.
const (
	AccountTypePersonal = "personal"
	AccountTypeBusiness = "business"
)

// FreeTier is the tier an account falls back to when no paid subscription is active.
const FreeTier = "free"

// SubscriptionPlan is the canonical plan definition. The plan, not checkout
// metadata, is the source of truth for pricing and the fee schedule granted to
// an account.
type SubscriptionPlan struct {
	BaseModel

	PlanID      string `json:"plan_id" gorm:"uniqueIndex;not null;size:100"`
	Tier        string `json:"tier" gorm:"not null;size:50"`
	AccountType string `json:"account_type" gorm:"not null;size:20;index"` // personal or business
	IsActive    bool   `json:"is_active" gorm:"default:true;index"`

	PriceMonthly float64 `json:"price_monthly"`
	PriceYearly  float64 `json:"price_yearly"`

	// Optional explicit Stripe price ids per billing period. When set, the
	// consistency guard requires the charged line item to match.
	StripePriceIDMonthly string `json:"stripe_price_id_monthly" gorm:"size:100"`
	StripePriceIDYearly  string `json:"stripe_price_id_yearly" gorm:"size:100"`

	// Fee schedule. FinalValueFee falls back to CommissionRate when unset.
	FinalValueFee  *float64 `json:"final_value_fee"`
	CommissionRate *float64 `json:"commission_rate"`
	InsertionFee   float64  `json:"insertion_fee"`
	PerOrderFee    float64  `json:"per_order_fee"`
}

// StripePriceIDFor returns the explicit Stripe price id configured for the
// given billing period, or "" when none is configured.
func (p *SubscriptionPlan) StripePriceIDFor(billingPeriod string) string {
	if billingPeriod == BillingPeriodYearly {
		return p.StripePriceIDYearly
	}
	return p.StripePriceIDMonthly
}

// PriceFor returns the listed price for the given billing period.
func (p *SubscriptionPlan) PriceFor(billingPeriod string) float64 {
	if billingPeriod == BillingPeriodYearly {
		return p.PriceYearly
	}
	return p.PriceMonthly
}

// ResolvedFinalValueFee applies the fee fallback chain:
// final_value_fee -> commission_rate -> 0.
func (p *SubscriptionPlan) ResolvedFinalValueFee() float64 {
	if p.FinalValueFee != nil {
		return *p.FinalValueFee
	}
	if p.CommissionRate != nil {
		return *p.CommissionRate
	}
	return 0
}

// ResolvedCommissionRate mirrors the resolved final value fee when the plan
// has no explicit commission rate.
func (p *SubscriptionPlan) ResolvedCommissionRate() float64 {
	if p.CommissionRate != nil {
		return *p.CommissionRate
	}
	return p.ResolvedFinalValueFee()
}
