package models

import "time"

// ProcessedWebhookEvent is a row of the idempotency ledger.
type ProcessedWebhookEvent struct {
	EventID     string
	EventType   string
	ProcessedAt time.Time
}
