package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"billing-api/pkg/logging"
)

// SubscriptionFetcher retrieves the authoritative subscription resource from
// the payment provider. A nil result means "cannot proceed this event";
// callers exit without raising.
type SubscriptionFetcher interface {
	FetchSubscription(ctx context.Context, subscriptionID string) *ProviderSubscription
}

// StripeClient fetches subscription state from the Stripe REST API. The base
// URL is overridable so tests can point it at an httptest server.
type StripeClient struct {
	httpClient *http.Client
	secretKey  string
	baseURL    string
}

// NewStripeClient creates a Stripe API client.
func NewStripeClient(secretKey, baseURL string) *StripeClient {
	if baseURL == "" {
		baseURL = "https://api.stripe.com"
	}
	return &StripeClient{
		httpClient: &http.Client{
			Timeout: 20 * time.Second,
		},
		secretKey: secretKey,
		baseURL:   strings.TrimSuffix(baseURL, "/"),
	}
}

// FetchSubscription retrieves a subscription by id with its price line items
// expanded. Any failure (network, not-found, rate limit) is converted to nil
// plus a sanitized log entry; full payloads are never logged.
func (c *StripeClient) FetchSubscription(ctx context.Context, subscriptionID string) *ProviderSubscription {
	url := fmt.Sprintf("%s/v1/subscriptions/%s?expand[]=items.data.price", c.baseURL, subscriptionID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		logging.Errorf("Failed to build subscription request - type: %T, message: %v", err, err)
		return nil
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		logging.Errorf("Failed to fetch subscription %s - type: %T, message: %v", subscriptionID, err, err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Drain so the connection can be reused.
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		logging.Errorf("Stripe returned status %d fetching subscription %s", resp.StatusCode, subscriptionID)
		return nil
	}

	var subscription ProviderSubscription
	if err := json.NewDecoder(resp.Body).Decode(&subscription); err != nil {
		logging.Errorf("Failed to decode subscription %s - type: %T, message: %v", subscriptionID, err, err)
		return nil
	}

	return &subscription
}
