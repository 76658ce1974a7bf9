package api

import (
	"errors"
	"net/http"
	"time"

	"billing-api/internal/config"
	"billing-api/internal/database"
	"billing-api/internal/services"
	"billing-api/pkg/logging"

	"github.com/gin-gonic/gin"
)

// StripeWebhookHandler processes subscription billing events from Stripe.
// POST /api/webhooks/stripe
//
// Response policy: once an event is authenticated, the response is always
// 200 {"received": true} regardless of processing outcome. Stripe retries on
// non-2xx, and a flaky downstream dependency must not amplify into a retry
// storm; failures after authentication go to logs and the dead-letter list
// instead. The only non-success responses are for missing or invalid
// signatures, which indicate a configuration problem the caller should fix.
//
// Note: one-off order payments and listing-boost payments are handled by
// sibling endpoints with their own signing secrets; sessions with a
// non-subscription mode are ignored here.
func StripeWebhookHandler(c *gin.Context) {
	// Read raw body. No body-parsing middleware may run before this: the
	// signature is computed over the exact bytes.
	body, err := c.GetRawData()
	if err != nil {
		// Nothing useful can be done, and body-read errors must not make
		// Stripe retry a possibly-malformed request indefinitely.
		logging.Errorf("Failed to read webhook body - type: %T, message: %v", err, err)
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}

	signature := c.GetHeader("Stripe-Signature")
	verifier := services.NewSignatureVerifier(config.AppConfig.StripeWebhookSecrets)
	event, err := verifier.VerifyEvent(body, signature)
	if err != nil {
		if errors.Is(err, services.ErrMissingSignature) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Missing signature"})
			return
		}
		logging.Errorf("Webhook signature rejected - type: %T, message: %v", err, err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid signature"})
		return
	}

	logging.Infof("Webhook event received - id: %s, type: %s", event.ID, event.Type)

	// The event is authenticated; privileged clients are only constructed
	// from here on.
	ctx := c.Request.Context()
	recorder := services.NewDeadLetterRecorder(
		database.GetRedis(),
		time.Duration(config.AppConfig.DeadLetterTTLHours)*time.Hour,
		services.NewAlertMailer(),
	)

	if recorder.MarkProcessed(ctx, event.ID) {
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}

	reconciler := services.NewReconciler(
		services.NewStripeClient(config.AppConfig.StripeSecretKey, config.AppConfig.StripeAPIBase),
		services.NewMarketplaceNotifier(config.AppConfig.MarketplaceCallbackURL, config.AppConfig.MarketplaceSecret),
	)

	func() {
		defer func() {
			if r := recover(); r != nil {
				logging.Errorf("Webhook handler panic - event_id: %s, recovered: %v", event.ID, r)
				recorder.Record(ctx, event, errors.New("handler panic"))
			}
		}()

		if err := reconciler.ProcessEvent(ctx, event); err != nil {
			logging.Errorf("Webhook processing failed - event_id: %s, type: %T, message: %v",
				event.ID, err, err)
			recorder.Record(ctx, event, err)
		}
	}()

	c.JSON(http.StatusOK, gin.H{"received": true})
}
