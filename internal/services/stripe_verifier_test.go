package services

import (
	"encoding/hex"
	"fmt"
	"testing"
	"time"

	"billing-api/pkg/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82/webhook"
)

const eventPayload = `{
	"id": "evt_test_1",
	"object": "event",
	"api_version": "2025-04-30.basil",
	"type": "customer.subscription.updated",
	"data": {"object": {"id": "sub_1", "status": "active"}}
}`

func signatureHeader(ts time.Time, payload []byte, secret string) string {
	sig := webhook.ComputeSignature(ts, payload, secret)
	return fmt.Sprintf("t=%d,v1=%s", ts.Unix(), hex.EncodeToString(sig))
}

func TestVerifyEvent_ValidSignature(t *testing.T) {
	logging.InitLogging()
	payload := []byte(eventPayload)
	v := NewSignatureVerifier([]string{"whsec_primary"})

	event, err := v.VerifyEvent(payload, signatureHeader(time.Now(), payload, "whsec_primary"))
	require.NoError(t, err)
	assert.Equal(t, "evt_test_1", event.ID)
	assert.Equal(t, "customer.subscription.updated", string(event.Type))
}

func TestVerifyEvent_SecretRotation(t *testing.T) {
	logging.InitLogging()
	payload := []byte(eventPayload)
	v := NewSignatureVerifier([]string{"whsec_new", "whsec_old"})

	// Deliveries signed with either registered secret verify.
	_, err := v.VerifyEvent(payload, signatureHeader(time.Now(), payload, "whsec_new"))
	assert.NoError(t, err)

	event, err := v.VerifyEvent(payload, signatureHeader(time.Now(), payload, "whsec_old"))
	require.NoError(t, err)
	assert.Equal(t, "evt_test_1", event.ID)
}

func TestVerifyEvent_MissingHeader(t *testing.T) {
	v := NewSignatureVerifier([]string{"whsec_primary"})
	_, err := v.VerifyEvent([]byte(eventPayload), "")
	assert.ErrorIs(t, err, ErrMissingSignature)
}

func TestVerifyEvent_WrongSecret(t *testing.T) {
	payload := []byte(eventPayload)
	v := NewSignatureVerifier([]string{"whsec_primary"})

	_, err := v.VerifyEvent(payload, signatureHeader(time.Now(), payload, "whsec_unknown"))
	require.Error(t, err)

	var invalid *InvalidSignatureError
	assert.ErrorAs(t, err, &invalid)
	assert.Error(t, invalid.Unwrap())
}

func TestVerifyEvent_TamperedPayload(t *testing.T) {
	payload := []byte(eventPayload)
	header := signatureHeader(time.Now(), payload, "whsec_primary")
	v := NewSignatureVerifier([]string{"whsec_primary"})

	tampered := []byte(eventPayload + " ")
	_, err := v.VerifyEvent(tampered, header)

	var invalid *InvalidSignatureError
	assert.ErrorAs(t, err, &invalid)
}

func TestVerifyEvent_NoSecretsConfigured(t *testing.T) {
	payload := []byte(eventPayload)
	v := NewSignatureVerifier(nil)

	_, err := v.VerifyEvent(payload, signatureHeader(time.Now(), payload, "whsec_primary"))

	var invalid *InvalidSignatureError
	assert.ErrorAs(t, err, &invalid)
}
