package handlers

import (
	"context"

	"rental-backend/internal/services"
)

type WebhookVerifier interface {
	Verify(payload []byte, signature string) (services.WebhookEvent, error)
}

type WebhookProcessor interface {
	Process(ctx context.Context, requestID string, evt services.WebhookEvent) (services.WebhookOutcome, error)
}

type TargetInvalidator interface {
	InvalidateTarget(ctx context.Context, target string) (int, error)
}

// Handlers holds the services behind the HTTP surface. Routes are bound to
// its methods in the router.
type Handlers struct {
	Checkout      services.CheckoutService
	Extensions    services.ExtensionService
	Catalog       services.CatalogService
	Receipts      services.ReceiptService
	Verifications services.VerificationService
	Terminal      services.TerminalService
	Webhooks      WebhookProcessor
	Verifier      WebhookVerifier
	Cache         TargetInvalidator
}
