package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"billing-api/internal/database"
	"billing-api/internal/models"
	"billing-api/pkg/logging"

	"github.com/stripe/stripe-go/v82"
	"gorm.io/gorm"
)

// Reconciler applies webhook events to the locally persisted subscription and
// account fee state. Stripe delivers events at-least-once with no ordering
// guarantee, so every handler looks up current state by the Stripe
// subscription id and applies an absolute new state; replays and reordered
// deliveries converge instead of compounding.
//
// Data-integrity problems (missing metadata, unknown plan, pricing mismatch)
// are logged and absorbed as no-ops. Only store and unexpected failures
// surface as errors, so the dispatcher can dead-letter them.
type Reconciler struct {
	fetcher  SubscriptionFetcher
	notifier *MarketplaceNotifier
}

// NewReconciler creates a reconciler. The notifier may be nil when no
// marketplace callback is configured.
func NewReconciler(fetcher SubscriptionFetcher, notifier *MarketplaceNotifier) *Reconciler {
	return &Reconciler{
		fetcher:  fetcher,
		notifier: notifier,
	}
}

// ProcessEvent dispatches a verified event to the matching transition
// handler. Unrecognized event types are ignored silently.
func (r *Reconciler) ProcessEvent(ctx context.Context, event stripe.Event) error {
	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted:
		var session CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return fmt.Errorf("decode checkout session: %w", err)
		}
		return r.HandleCheckoutCompleted(ctx, &session)

	case stripe.EventTypeCustomerSubscriptionUpdated:
		var subscription ProviderSubscription
		if err := json.Unmarshal(event.Data.Raw, &subscription); err != nil {
			return fmt.Errorf("decode subscription: %w", err)
		}
		return r.HandleSubscriptionUpdated(&subscription)

	case stripe.EventTypeCustomerSubscriptionDeleted:
		var subscription ProviderSubscription
		if err := json.Unmarshal(event.Data.Raw, &subscription); err != nil {
			return fmt.Errorf("decode subscription: %w", err)
		}
		return r.HandleSubscriptionDeleted(&subscription)

	case stripe.EventTypeInvoicePaid:
		var invoice Invoice
		if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
			return fmt.Errorf("decode invoice: %w", err)
		}
		return r.HandleInvoicePaid(&invoice)

	case stripe.EventTypeInvoicePaymentFailed:
		var invoice Invoice
		if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
			return fmt.Errorf("decode invoice: %w", err)
		}
		return r.HandleInvoicePaymentFailed(&invoice)

	default:
		logging.Infof("Ignoring webhook event type: %s", event.Type)
		return nil
	}
}

// HandleCheckoutCompleted activates a subscription after a completed checkout
// session. One-off payment sessions belong to sibling webhook endpoints and
// are skipped here.
func (r *Reconciler) HandleCheckoutCompleted(ctx context.Context, session *CheckoutSession) error {
	if session.Mode != "subscription" {
		logging.Infof("Skipping checkout session %s with mode %q", session.ID, session.Mode)
		return nil
	}

	meta, err := ExtractCheckoutMetadata(session)
	if err != nil {
		logging.Warnf("Checkout session %s: %v, skipping", session.ID, err)
		return nil
	}

	// The session metadata is client-controlled; the subscription fetched
	// from Stripe is the authoritative record of what was charged.
	subscription := r.fetcher.FetchSubscription(ctx, meta.StripeSubscriptionID)
	if subscription == nil {
		logging.Errorf("Could not fetch subscription %s for checkout session %s, skipping",
			meta.StripeSubscriptionID, session.ID)
		return nil
	}

	if subscription.CurrentPeriodEnd == nil {
		logging.Errorf("Subscription %s has no current_period_end, skipping", meta.StripeSubscriptionID)
		return nil
	}

	plan, err := database.GetActivePlanByPlanID(meta.PlanID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			logging.Errorf("No active plan %s for checkout session %s, skipping", meta.PlanID, session.ID)
			return nil
		}
		return fmt.Errorf("load plan %s: %w", meta.PlanID, err)
	}

	if err := VerifyPlanPricing(plan, meta.BillingPeriod, subscription); err != nil {
		logging.Errorf("Pricing verification failed for checkout session %s: %v, no state written",
			session.ID, err)
		return nil
	}

	startsAt := time.Now()
	if subscription.StartDate > 0 {
		startsAt = time.Unix(subscription.StartDate, 0)
	}

	customerID := subscription.CustomerID()
	if customerID == "" {
		customerID = session.Customer
	}

	row := &models.Subscription{
		AccountID:            meta.AccountID,
		PlanTier:             plan.Tier,
		Status:               models.SubscriptionStatusActive,
		PricePaid:            plan.PriceFor(meta.BillingPeriod),
		BillingPeriod:        meta.BillingPeriod,
		StartsAt:             startsAt,
		ExpiresAt:            time.Unix(*subscription.CurrentPeriodEnd, 0),
		AutoRenew:            !subscription.CancelAtPeriodEnd,
		StripeCustomerID:     customerID,
		StripeSubscriptionID: meta.StripeSubscriptionID,
		StripePriceID:        subscription.FirstPriceID(),
	}

	if err := database.UpsertSubscription(row); err != nil {
		return fmt.Errorf("upsert subscription %s: %w", meta.StripeSubscriptionID, err)
	}

	if err := database.ApplyAccountPlan(meta.AccountID, plan.Tier, feeScheduleFromPlan(plan)); err != nil {
		return fmt.Errorf("apply plan %s to account %s: %w", plan.PlanID, meta.AccountID, err)
	}

	logging.Infof("Activated subscription - account_id: %s, plan: %s, period: %s, expires: %s",
		meta.AccountID, plan.PlanID, meta.BillingPeriod, row.ExpiresAt.Format(time.RFC3339))

	r.notify("subscription.activated", row)
	return nil
}

// HandleSubscriptionUpdated refreshes local state from a
// customer.subscription.updated event. A cancel_at_period_end flag with a
// still-active provider status must NOT downgrade the account; the seller
// keeps paid-tier economics until the paid period truly lapses.
func (r *Reconciler) HandleSubscriptionUpdated(subscription *ProviderSubscription) error {
	row, err := database.GetSubscriptionByStripeID(subscription.ID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			logging.Infof("Subscription %s not found locally, nothing to reconcile", subscription.ID)
			return nil
		}
		return fmt.Errorf("lookup subscription %s: %w", subscription.ID, err)
	}

	row.Status = mapStripeStatus(subscription.Status, row.Status)
	if subscription.CurrentPeriodEnd != nil {
		row.ExpiresAt = time.Unix(*subscription.CurrentPeriodEnd, 0)
	}
	row.AutoRenew = !subscription.CancelAtPeriodEnd

	if err := database.UpdateSubscription(row); err != nil {
		return fmt.Errorf("update subscription %s: %w", subscription.ID, err)
	}

	logging.Infof("Updated subscription - stripe_subscription_id: %s, status: %s, auto_renew: %t",
		subscription.ID, row.Status, row.AutoRenew)

	// Downgrade only on a terminal mapped status, never on the
	// cancel-at-period-end flag alone.
	if row.Status == models.SubscriptionStatusCancelled || row.Status == models.SubscriptionStatusExpired {
		if err := r.Downgrade(row.AccountID); err != nil {
			return err
		}
	}

	r.notify("subscription.updated", row)
	return nil
}

// HandleSubscriptionDeleted marks the subscription expired and downgrades the
// account. Stripe fires this when a scheduled cancellation's period actually
// ends.
func (r *Reconciler) HandleSubscriptionDeleted(subscription *ProviderSubscription) error {
	row, err := database.GetSubscriptionByStripeID(subscription.ID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			logging.Infof("Subscription %s not found locally, nothing to reconcile", subscription.ID)
			return nil
		}
		return fmt.Errorf("lookup subscription %s: %w", subscription.ID, err)
	}

	row.Status = models.SubscriptionStatusExpired
	row.AutoRenew = false

	if err := database.UpdateSubscription(row); err != nil {
		return fmt.Errorf("update subscription %s: %w", subscription.ID, err)
	}

	logging.Infof("Expired subscription - stripe_subscription_id: %s, account_id: %s",
		subscription.ID, row.AccountID)

	if err := r.Downgrade(row.AccountID); err != nil {
		return err
	}

	r.notify("subscription.expired", row)
	return nil
}

// HandleInvoicePaid reactivates the subscription on a successful renewal and
// pushes the expiry forward from the invoice line's period end.
func (r *Reconciler) HandleInvoicePaid(invoice *Invoice) error {
	subscriptionID := invoice.SubscriptionRef()
	if subscriptionID == "" {
		logging.Infof("Invoice %s has no subscription reference, skipping", invoice.ID)
		return nil
	}

	row, err := database.GetSubscriptionByStripeID(subscriptionID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			logging.Infof("Subscription %s not found locally for invoice %s, nothing to reconcile",
				subscriptionID, invoice.ID)
			return nil
		}
		return fmt.Errorf("lookup subscription %s: %w", subscriptionID, err)
	}

	row.Status = models.SubscriptionStatusActive
	if periodEnd := invoice.FirstLinePeriodEnd(); periodEnd > 0 {
		row.ExpiresAt = time.Unix(periodEnd, 0)
	}

	if err := database.UpdateSubscription(row); err != nil {
		return fmt.Errorf("update subscription %s: %w", subscriptionID, err)
	}

	logging.Infof("Renewed subscription - stripe_subscription_id: %s, expires: %s",
		subscriptionID, row.ExpiresAt.Format(time.RFC3339))

	r.notify("subscription.renewed", row)
	return nil
}

// HandleInvoicePaymentFailed marks the subscription expired after a failed
// renewal charge. Fees are deliberately not downgraded here: Stripe's dunning
// process retries the charge and emits customer.subscription.deleted (or a
// terminal status update) when it truly gives up, and that is where the
// downgrade happens.
func (r *Reconciler) HandleInvoicePaymentFailed(invoice *Invoice) error {
	subscriptionID := invoice.SubscriptionRef()
	if subscriptionID == "" {
		logging.Infof("Invoice %s has no subscription reference, skipping", invoice.ID)
		return nil
	}

	row, err := database.GetSubscriptionByStripeID(subscriptionID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			logging.Infof("Subscription %s not found locally for invoice %s, nothing to reconcile",
				subscriptionID, invoice.ID)
			return nil
		}
		return fmt.Errorf("lookup subscription %s: %w", subscriptionID, err)
	}

	row.Status = models.SubscriptionStatusExpired

	if err := database.UpdateSubscription(row); err != nil {
		return fmt.Errorf("update subscription %s: %w", subscriptionID, err)
	}

	logging.Warnf("Payment failed for subscription - stripe_subscription_id: %s, account_id: %s",
		subscriptionID, row.AccountID)

	r.notify("subscription.payment_failed", row)
	return nil
}

// Downgrade applies the free-tier fee schedule for the account's type. Safe
// to call repeatedly; the writes are absolute.
func (r *Reconciler) Downgrade(accountID string) error {
	accountType := models.AccountTypePersonal
	profile, err := database.GetProfile(accountID)
	if err != nil {
		if err != gorm.ErrRecordNotFound {
			return fmt.Errorf("load profile %s: %w", accountID, err)
		}
		logging.Warnf("No profile for account %s, downgrading as %s", accountID, accountType)
	} else {
		accountType = profile.AccountType
	}

	plan, err := database.GetActiveFreePlan(accountType)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			logging.Errorf("No active free plan for account type %s, cannot downgrade account %s",
				accountType, accountID)
			return nil
		}
		return fmt.Errorf("load free plan for %s: %w", accountType, err)
	}

	if err := database.ApplyAccountPlan(accountID, models.FreeTier, feeScheduleFromPlan(plan)); err != nil {
		return fmt.Errorf("downgrade account %s: %w", accountID, err)
	}

	logging.Infof("Downgraded account to free tier - account_id: %s, account_type: %s", accountID, accountType)
	return nil
}

// notify pushes a subscription state change to the marketplace backend,
// asynchronously so webhook processing never blocks on it.
func (r *Reconciler) notify(event string, subscription *models.Subscription) {
	if r.notifier == nil {
		return
	}
	sub := *subscription
	go r.notifier.NotifySubscriptionChanged(event, &sub)
}

// mapStripeStatus maps Stripe's status vocabulary to the local one. Unknown
// provider statuses leave the local status unchanged.
func mapStripeStatus(stripeStatus, current string) string {
	switch stripeStatus {
	case "active":
		return models.SubscriptionStatusActive
	case "canceled":
		return models.SubscriptionStatusCancelled
	case "past_due":
		return models.SubscriptionStatusExpired
	default:
		return current
	}
}

// feeScheduleFromPlan projects a plan's fee schedule onto the account
// surfaces, applying the final_value_fee -> commission_rate -> 0 fallback.
func feeScheduleFromPlan(plan *models.SubscriptionPlan) database.FeeSchedule {
	return database.FeeSchedule{
		CommissionRate: plan.ResolvedCommissionRate(),
		FinalValueFee:  plan.ResolvedFinalValueFee(),
		InsertionFee:   plan.InsertionFee,
		PerOrderFee:    plan.PerOrderFee,
	}
}
