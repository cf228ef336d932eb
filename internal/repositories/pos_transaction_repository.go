package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	intconfig "rental-backend/internal/config"
	intdb "rental-backend/internal/db"
	"rental-backend/internal/domain"
	"rental-backend/internal/domain/models"
)

type POSTransactionRepository struct {
	DB *sql.DB
}

func (r POSTransactionRepository) db() *sql.DB {
	if r.DB != nil {
		return r.DB
	}
	return intconfig.DB
}

func (r POSTransactionRepository) Insert(ctx context.Context, t models.POSTransaction) error {
	var completed any
	if t.CompletedAt != nil {
		completed = *t.CompletedAt
	}
	_, err := r.db().ExecContext(ctx, `
		INSERT INTO pos_transactions (
			id, worker_id, amount, payment_type, status, reader_id, payment_intent_id,
			description, cash_tendered, change_due, completed_at
		) VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		t.ID, t.WorkerID, t.Amount, string(t.PaymentType), string(t.Status),
		intdb.NullIfEmpty(t.ReaderID), intdb.NullIfEmpty(t.PaymentIntentID),
		t.Description, t.CashTendered, t.ChangeDue, completed)
	return err
}

func (r POSTransactionRepository) GetByID(ctx context.Context, id string) (models.POSTransaction, error) {
	var (
		t                                           models.POSTransaction
		payType, status                             string
		reader, intent, brand, last4, receipt, fail sql.NullString
		completed                                   sql.NullTime
	)
	err := r.db().QueryRowContext(ctx, `
		SELECT id, worker_id, amount, payment_type, status, reader_id, payment_intent_id,
		       description, card_brand, card_last4, receipt_url, cash_tendered, change_due,
		       failure_reason, completed_at, created_at
		FROM pos_transactions WHERE id=? LIMIT 1`, id).
		Scan(&t.ID, &t.WorkerID, &t.Amount, &payType, &status, &reader, &intent,
			&t.Description, &brand, &last4, &receipt, &t.CashTendered, &t.ChangeDue,
			&fail, &completed, &t.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return t, domain.NotFoundError{Resource: "pos transaction", Err: err}
	}
	if err != nil {
		return t, err
	}
	t.PaymentType = models.POSPaymentType(payType)
	t.Status = models.POSStatus(status)
	t.ReaderID = reader.String
	t.PaymentIntentID = intent.String
	t.CardBrand = brand.String
	t.CardLast4 = last4.String
	t.ReceiptURL = receipt.String
	t.FailureReason = fail.String
	if completed.Valid {
		at := completed.Time
		t.CompletedAt = &at
	}
	return t, nil
}

// MarkProcessing moves a pending transaction to processing.
func (r POSTransactionRepository) MarkProcessing(ctx context.Context, id string) (bool, error) {
	return r.exec(ctx, `UPDATE pos_transactions SET status='processing' WHERE id=? AND status='pending'`, id)
}

func (r POSTransactionRepository) MarkCanceled(ctx context.Context, id string) (bool, error) {
	return r.exec(ctx, `
		UPDATE pos_transactions SET status='canceled', completed_at=?
		WHERE id=? AND status IN ('pending','processing')`, time.Now().UTC(), id)
}

// CardResult carries what the gateway reports about a settled card payment.
type CardResult struct {
	Brand      string
	Last4      string
	ReceiptURL string
}

func (r POSTransactionRepository) MarkSucceededByIntent(ctx context.Context, intentID string, card CardResult, at time.Time) (bool, error) {
	return r.exec(ctx, `
		UPDATE pos_transactions
		SET status='succeeded', card_brand=?, card_last4=?, receipt_url=?, completed_at=?
		WHERE payment_intent_id=? AND status IN ('pending','processing')`,
		intdb.NullIfEmpty(card.Brand), intdb.NullIfEmpty(card.Last4), intdb.NullIfEmpty(card.ReceiptURL), at, intentID)
}

func (r POSTransactionRepository) MarkFailedByIntent(ctx context.Context, intentID, reason string, at time.Time) (bool, error) {
	return r.exec(ctx, `
		UPDATE pos_transactions
		SET status='failed', failure_reason=?, completed_at=?
		WHERE payment_intent_id=? AND status IN ('pending','processing')`,
		reason, at, intentID)
}

func (r POSTransactionRepository) exec(ctx context.Context, query string, args ...any) (bool, error) {
	res, err := r.db().ExecContext(ctx, query, args...)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}
