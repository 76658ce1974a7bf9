package services

import (
	"encoding/json"
)

// Lean local representations of the Stripe payloads this service consumes.
// Decoding into our own structs instead of stripe-go's typed objects keeps the
// handlers stable across Stripe API versions (newer versions moved the period
// fields off the subscription object) and makes tests plain JSON fixtures.

// CheckoutSession is the subset of a checkout.session.completed payload the
// reconciler needs.
type CheckoutSession struct {
	ID           string            `json:"id"`
	Mode         string            `json:"mode"`
	Customer     string            `json:"customer"`
	Subscription json.RawMessage   `json:"subscription"`
	Metadata     map[string]string `json:"metadata"`
}

// SubscriptionRef returns the session's subscription reference only when it
// is a plain string identifier. Object references are not accepted at the
// checkout stage.
func (s *CheckoutSession) SubscriptionRef() string {
	var id string
	if err := json.Unmarshal(s.Subscription, &id); err != nil {
		return ""
	}
	return id
}

// ProviderSubscription mirrors the Stripe subscription resource, both as it
// appears embedded in customer.subscription.* event payloads and as returned
// by the retrieve API with price line items expanded.
type ProviderSubscription struct {
	ID                string          `json:"id"`
	Status            string          `json:"status"`
	Customer          json.RawMessage `json:"customer"`
	CancelAtPeriodEnd bool            `json:"cancel_at_period_end"`
	CurrentPeriodEnd  *int64          `json:"current_period_end"` // epoch seconds; nil when absent
	StartDate         int64           `json:"start_date"`
	Items             struct {
		Data []struct {
			Price struct {
				ID         string `json:"id"`
				UnitAmount *int64 `json:"unit_amount"` // minor units; nil when Stripe reports none
			} `json:"price"`
		} `json:"data"`
	} `json:"items"`
}

// CustomerID normalizes the customer reference, which may arrive as a bare id
// or as an expanded object.
func (s *ProviderSubscription) CustomerID() string {
	return normalizeRef(s.Customer)
}

// FirstPriceID returns the price id attached to the first line item, or "".
func (s *ProviderSubscription) FirstPriceID() string {
	for _, item := range s.Items.Data {
		if item.Price.ID != "" {
			return item.Price.ID
		}
	}
	return ""
}

// FirstUnitAmount returns the charged unit amount in minor units, or nil when
// Stripe did not report a numeric amount.
func (s *ProviderSubscription) FirstUnitAmount() *int64 {
	for _, item := range s.Items.Data {
		if item.Price.UnitAmount != nil {
			return item.Price.UnitAmount
		}
	}
	return nil
}

// Invoice is the subset of invoice.paid / invoice.payment_failed payloads the
// reconciler needs.
type Invoice struct {
	ID           string          `json:"id"`
	Subscription json.RawMessage `json:"subscription"`
	Lines        struct {
		Data []struct {
			Period struct {
				End int64 `json:"end"`
			} `json:"period"`
		} `json:"data"`
	} `json:"lines"`
}

// SubscriptionRef normalizes the invoice's subscription reference, which
// Stripe delivers either as a bare string id or as an embedded object with an
// id field.
func (i *Invoice) SubscriptionRef() string {
	return normalizeRef(i.Subscription)
}

// FirstLinePeriodEnd returns the period end of the first invoice line as
// epoch seconds, or 0 when absent.
func (i *Invoice) FirstLinePeriodEnd() int64 {
	if len(i.Lines.Data) == 0 {
		return 0
	}
	return i.Lines.Data[0].Period.End
}

// normalizeRef accepts either a plain string identifier or an object carrying
// an "id" field and returns the identifier, or "" when neither shape matches.
func normalizeRef(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var id string
	if err := json.Unmarshal(raw, &id); err == nil {
		return id
	}
	var obj struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return obj.ID
	}
	return ""
}
