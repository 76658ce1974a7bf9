package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"billing-api/pkg/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchSubscription(t *testing.T) {
	logging.InitLogging()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/subscriptions/sub_123", r.URL.Path)
		assert.Equal(t, "items.data.price", r.URL.Query().Get("expand[]"))
		assert.Equal(t, "Bearer sk_test_123", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": "sub_123",
			"status": "active",
			"customer": "cus_123",
			"cancel_at_period_end": false,
			"current_period_end": 1767225600,
			"start_date": 1764547200,
			"items": {"data": [{"price": {"id": "price_monthly_pro", "unit_amount": 2999}}]}
		}`))
	}))
	defer server.Close()

	client := NewStripeClient("sk_test_123", server.URL)
	sub := client.FetchSubscription(context.Background(), "sub_123")

	require.NotNil(t, sub)
	assert.Equal(t, "sub_123", sub.ID)
	assert.Equal(t, "active", sub.Status)
	assert.Equal(t, "cus_123", sub.CustomerID())
	require.NotNil(t, sub.CurrentPeriodEnd)
	assert.Equal(t, int64(1767225600), *sub.CurrentPeriodEnd)
	assert.Equal(t, "price_monthly_pro", sub.FirstPriceID())
	require.NotNil(t, sub.FirstUnitAmount())
	assert.Equal(t, int64(2999), *sub.FirstUnitAmount())
}

func TestFetchSubscription_ExpandedCustomerObject(t *testing.T) {
	logging.InitLogging()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id": "sub_123", "status": "active", "customer": {"id": "cus_123"}}`))
	}))
	defer server.Close()

	sub := NewStripeClient("sk_test_123", server.URL).FetchSubscription(context.Background(), "sub_123")
	require.NotNil(t, sub)
	assert.Equal(t, "cus_123", sub.CustomerID())
}

func TestFetchSubscription_NonOKStatus(t *testing.T) {
	logging.InitLogging()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error": {"type": "invalid_request_error"}}`))
	}))
	defer server.Close()

	sub := NewStripeClient("sk_test_123", server.URL).FetchSubscription(context.Background(), "sub_missing")
	assert.Nil(t, sub)
}

func TestFetchSubscription_NetworkError(t *testing.T) {
	logging.InitLogging()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // refuse all connections

	sub := NewStripeClient("sk_test_123", server.URL).FetchSubscription(context.Background(), "sub_123")
	assert.Nil(t, sub)
}

func TestFetchSubscription_MalformedBody(t *testing.T) {
	logging.InitLogging()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id": `))
	}))
	defer server.Close()

	sub := NewStripeClient("sk_test_123", server.URL).FetchSubscription(context.Background(), "sub_123")
	assert.Nil(t, sub)
}
