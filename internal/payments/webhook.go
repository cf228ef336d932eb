package payments

import (
	"encoding/json"
	"errors"
	"time"

	"rental-backend/internal/services"

	"github.com/stripe/stripe-go/v79/webhook"
)

// ErrInvalidSignature is returned for payloads that fail verification.
var ErrInvalidSignature = errors.New("invalid webhook signature")

// DefaultTolerance bounds how old a signed payload may be.
const DefaultTolerance = 5 * time.Minute

type WebhookVerifier struct {
	Secret    string
	Tolerance time.Duration
}

// Verify checks the Stripe-Signature header and returns the event envelope.
func (v WebhookVerifier) Verify(payload []byte, signature string) (services.WebhookEvent, error) {
	tolerance := v.Tolerance
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	evt, err := webhook.ConstructEventWithOptions(payload, signature, v.Secret, webhook.ConstructEventOptions{
		Tolerance:                tolerance,
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return services.WebhookEvent{}, errors.Join(ErrInvalidSignature, err)
	}
	out := services.WebhookEvent{
		ID:      evt.ID,
		Type:    string(evt.Type),
		Created: time.Unix(evt.Created, 0).UTC(),
	}
	if evt.Data != nil {
		out.Object = json.RawMessage(evt.Data.Raw)
	}
	return out, nil
}
