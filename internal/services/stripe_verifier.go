package services

import (
	"errors"
	"fmt"

	"billing-api/pkg/logging"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

// ErrMissingSignature is returned before any secret is tried when the request
// carries no Stripe-Signature header.
var ErrMissingSignature = errors.New("missing Stripe-Signature header")

// InvalidSignatureError is returned when the payload verifies against none of
// the registered signing secrets. It carries the last verification error.
type InvalidSignatureError struct {
	Err error
}

func (e *InvalidSignatureError) Error() string {
	return fmt.Sprintf("webhook signature verification failed: %v", e.Err)
}

func (e *InvalidSignatureError) Unwrap() error {
	return e.Err
}

// SignatureVerifier authenticates inbound webhook payloads against an ordered
// list of signing secrets. Keeping more than one secret registered allows
// zero-downtime secret rotation: the old secret stays in the list until every
// in-flight delivery signed with it has drained.
type SignatureVerifier struct {
	secrets []string
}

// NewSignatureVerifier creates a verifier over the given secrets, in order.
func NewSignatureVerifier(secrets []string) *SignatureVerifier {
	return &SignatureVerifier{secrets: secrets}
}

// VerifyEvent checks the signature header against the raw body. The first
// secret that verifies wins and yields the typed event. No event reaches any
// downstream handler unless one registered secret verified it.
func (v *SignatureVerifier) VerifyEvent(payload []byte, signatureHeader string) (stripe.Event, error) {
	if signatureHeader == "" {
		return stripe.Event{}, ErrMissingSignature
	}
	if len(v.secrets) == 0 {
		return stripe.Event{}, &InvalidSignatureError{Err: errors.New("no webhook signing secrets configured")}
	}

	var lastErr error
	for i, secret := range v.secrets {
		event, err := webhook.ConstructEventWithOptions(payload, signatureHeader, secret,
			webhook.ConstructEventOptions{
				IgnoreAPIVersionMismatch: true,
			})
		if err == nil {
			if i > 0 {
				logging.Infof("Webhook verified with rotated secret at position %d", i)
			}
			return event, nil
		}
		lastErr = err
	}

	return stripe.Event{}, &InvalidSignatureError{Err: lastErr}
}
