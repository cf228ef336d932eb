package services

import (
	"context"
	"encoding/json"
	"time"

	"rental-backend/internal/identity"
)

// LineItem is one priced row on a hosted checkout page.
type LineItem struct {
	Name   string
	Amount int64
}

type CheckoutSessionRequest struct {
	Currency          string
	CustomerEmail     string
	ClientReferenceID string
	SuccessURL        string
	CancelURL         string
	LineItems         []LineItem
	Metadata          map[string]string
	ExpiresAt         time.Time
	IdempotencyKey    string
}

type CheckoutSession struct {
	ID  string
	URL string
}

// PaymentGateway opens and closes hosted checkout sessions.
type PaymentGateway interface {
	CreateCheckoutSession(ctx context.Context, req CheckoutSessionRequest) (CheckoutSession, error)
	ExpireCheckoutSession(ctx context.Context, sessionID string) error
}

// Payment intent states reported by the gateway.
const (
	IntentRequiresPaymentMethod = "requires_payment_method"
	IntentSucceeded             = "succeeded"
	IntentCanceled              = "canceled"
)

type PaymentIntent struct {
	ID         string
	Status     string
	Amount     int64
	Metadata   map[string]string
	CardBrand  string
	CardLast4  string
	ReceiptURL string
}

// TerminalGateway drives card-present payments on a physical reader.
type TerminalGateway interface {
	CreateIntent(ctx context.Context, amount int64, currency string, metadata map[string]string) (PaymentIntent, error)
	GetIntent(ctx context.Context, intentID string) (PaymentIntent, error)
	CancelIntent(ctx context.Context, intentID string) (PaymentIntent, error)
	ProcessOnReader(ctx context.Context, readerID, intentID string) error
	CancelReaderAction(ctx context.Context, readerID string) error
}

type IdentitySessionRequest struct {
	Metadata  map[string]string
	ReturnURL string
}

type IdentitySession struct {
	ID       string
	URL      string
	Status   string
	Verified identity.Attributes
}

// IdentityGateway manages document verification sessions.
type IdentityGateway interface {
	CreateVerificationSession(ctx context.Context, req IdentitySessionRequest) (IdentitySession, error)
	RetrieveVerificationSession(ctx context.Context, sessionID string) (IdentitySession, error)
	CancelVerificationSession(ctx context.Context, sessionID string) error
}

// WebhookEvent is a signature-verified gateway event.
type WebhookEvent struct {
	ID      string
	Type    string
	Created time.Time
	Object  json.RawMessage
}

// Notifier delivers templated customer messages. Callers treat failures as
// non-fatal.
type Notifier interface {
	Notify(ctx context.Context, template, recipient string, data map[string]any) error
}

// CacheInvalidator drops cached reads after a write.
type CacheInvalidator interface {
	Invalidate(ctx context.Context, keys ...string) error
	InvalidatePattern(ctx context.Context, pattern string) (int, error)
	InvalidateTarget(ctx context.Context, target string) (int, error)
}
