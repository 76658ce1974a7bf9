package services

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"billing-api/internal/models"
	"billing-api/pkg/logging"
)

// MarketplaceNotifier pushes subscription state changes to the marketplace
// backend so seller-facing surfaces (dashboard, listing tools) refresh
// without polling.
type MarketplaceNotifier struct {
	httpClient  *http.Client
	callbackURL string
	secret      string
}

// NewMarketplaceNotifier creates a notifier, or nil when no callback URL is
// configured.
func NewMarketplaceNotifier(callbackURL, secret string) *MarketplaceNotifier {
	if callbackURL == "" {
		return nil
	}
	return &MarketplaceNotifier{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		callbackURL: callbackURL,
		secret:      secret,
	}
}

// SubscriptionEventPayload is the payload sent to the marketplace backend.
type SubscriptionEventPayload struct {
	Event                string `json:"event"` // e.g. "subscription.renewed"
	AccountID            string `json:"account_id"`
	Status               string `json:"status"`
	PlanTier             string `json:"plan_tier"`
	BillingPeriod        string `json:"billing_period"`
	ExpiresAt            string `json:"expires_at"` // ISO 8601
	AutoRenew            bool   `json:"auto_renew"`
	StripeSubscriptionID string `json:"stripe_subscription_id"`
	Timestamp            string `json:"timestamp"` // ISO 8601
}

// NotifySubscriptionChanged sends the state change with retries. Called in a
// goroutine; failures only log.
func (n *MarketplaceNotifier) NotifySubscriptionChanged(event string, subscription *models.Subscription) {
	payload := SubscriptionEventPayload{
		Event:                event,
		AccountID:            subscription.AccountID,
		Status:               subscription.Status,
		PlanTier:             subscription.PlanTier,
		BillingPeriod:        subscription.BillingPeriod,
		ExpiresAt:            subscription.ExpiresAt.Format(time.RFC3339),
		AutoRenew:            subscription.AutoRenew,
		StripeSubscriptionID: subscription.StripeSubscriptionID,
		Timestamp:            time.Now().Format(time.RFC3339),
	}

	n.sendWithRetry(payload)
}

// sendWithRetry sends the notification with retry mechanism
// Retry schedule: 1s, 5s, 30s (3 attempts total)
func (n *MarketplaceNotifier) sendWithRetry(payload SubscriptionEventPayload) {
	retryDelays := []time.Duration{1 * time.Second, 5 * time.Second, 30 * time.Second}
	maxRetries := len(retryDelays)

	for attempt := 0; attempt < maxRetries; attempt++ {
		err := n.send(payload)
		if err == nil {
			logging.Infof("Marketplace notification sent - event: %s, account_id: %s, attempt: %d",
				payload.Event, payload.AccountID, attempt+1)
			return
		}

		logging.Errorf("Marketplace notification failed - event: %s, account_id: %s, attempt: %d, error: %v",
			payload.Event, payload.AccountID, attempt+1, err)

		// If not the last attempt, wait before retry
		if attempt < maxRetries-1 {
			time.Sleep(retryDelays[attempt])
		}
	}

	logging.Errorf("Marketplace notification failed after %d attempts - event: %s, account_id: %s",
		maxRetries, payload.Event, payload.AccountID)
}

// send sends a single notification request
func (n *MarketplaceNotifier) send(payload SubscriptionEventPayload) error {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequest("POST", n.callbackURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "BillingService-Webhook/1.0")

	// Add signature if secret is provided
	if n.secret != "" {
		req.Header.Set("X-Billing-Signature", n.generateSignature(jsonData))
	}

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	return nil
}

// generateSignature generates HMAC-SHA256 signature for the payload
func (n *MarketplaceNotifier) generateSignature(payload []byte) string {
	h := hmac.New(sha256.New, []byte(n.secret))
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil))
}
