package database

import (
	"time"

	"billing-api/internal/models"
	"billing-api/pkg/logging"

	"gorm.io/gorm"
)

// GetSubscriptionByStripeID looks up a subscription by its Stripe subscription
// id, the natural key for reconciliation.
func GetSubscriptionByStripeID(stripeSubscriptionID string) (*models.Subscription, error) {
	var subscription models.Subscription
	err := DB.Where("stripe_subscription_id = ?", stripeSubscriptionID).First(&subscription).Error
	if err != nil {
		return nil, err
	}
	return &subscription, nil
}

// UpdateSubscription persists an already-loaded subscription row.
func UpdateSubscription(subscription *models.Subscription) error {
	return DB.Save(subscription).Error
}

// GetActiveSubscriptionForAccount returns the account's currently active
// subscription, if any.
func GetActiveSubscriptionForAccount(accountID string) (*models.Subscription, error) {
	var subscription models.Subscription
	err := DB.Where("account_id = ? AND status = ? AND expires_at > ?",
		accountID, models.SubscriptionStatusActive, time.Now()).First(&subscription).Error
	if err != nil {
		return nil, err
	}
	return &subscription, nil
}

// UpsertSubscription creates or updates a subscription keyed by its Stripe
// subscription id. Replaying the same checkout event converges on a single
// row with identical field values.
// 使用数据库事务确保并发安全
func UpsertSubscription(subscription *models.Subscription) error {
	return DB.Transaction(func(tx *gorm.DB) error {
		// Lock the row so two near-simultaneous deliveries for the same
		// subscription cannot both insert.
		var existing models.Subscription
		err := tx.Set("gorm:query_option", "FOR UPDATE").
			Where("stripe_subscription_id = ?", subscription.StripeSubscriptionID).
			First(&existing).Error

		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return tx.Create(subscription).Error
			}
			return err
		}

		logging.Infof("Upserting existing subscription - stripe_subscription_id: %s, account_id: %s",
			subscription.StripeSubscriptionID, subscription.AccountID)

		// Apply absolute state onto the existing row.
		existing.AccountID = subscription.AccountID
		existing.PlanTier = subscription.PlanTier
		existing.Status = subscription.Status
		existing.PricePaid = subscription.PricePaid
		existing.BillingPeriod = subscription.BillingPeriod
		existing.StartsAt = subscription.StartsAt
		existing.ExpiresAt = subscription.ExpiresAt
		existing.AutoRenew = subscription.AutoRenew
		existing.StripeCustomerID = subscription.StripeCustomerID
		existing.StripePriceID = subscription.StripePriceID

		if err := tx.Save(&existing).Error; err != nil {
			return err
		}
		*subscription = existing
		return nil
	})
}
