package repositories

import (
	"context"
	"database/sql"
	"time"

	intconfig "rental-backend/internal/config"
	intdb "rental-backend/internal/db"
)

// WebhookEventRepository is the idempotency ledger. event_id is unique, so
// a concurrent duplicate insert fails instead of double-recording.
type WebhookEventRepository struct {
	DB *sql.DB
}

func (r WebhookEventRepository) db() *sql.DB {
	if r.DB != nil {
		return r.DB
	}
	return intconfig.DB
}

func (r WebhookEventRepository) Exists(ctx context.Context, eventID string) (bool, error) {
	var n int
	err := r.db().QueryRowContext(ctx,
		`SELECT COUNT(*) FROM processed_webhook_events WHERE event_id=?`, eventID).Scan(&n)
	return n > 0, err
}

// Record appends the event. It returns false, nil when another delivery
// recorded it first.
func (r WebhookEventRepository) Record(ctx context.Context, eventID, eventType string, at time.Time) (bool, error) {
	_, err := r.db().ExecContext(ctx,
		`INSERT INTO processed_webhook_events (event_id, event_type, processed_at) VALUES (?,?,?)`,
		eventID, eventType, at)
	if intdb.IsDuplicateKey(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
