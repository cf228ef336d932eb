package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"rental-backend/internal/domain"
	"rental-backend/internal/domain/models"
	"rental-backend/internal/repositories"
	"rental-backend/internal/utils"
)

type POSTransactionInput struct {
	Amount       int64                 `json:"amount"`
	PaymentType  models.POSPaymentType `json:"paymentType"`
	ReaderID     string                `json:"readerId"`
	Description  string                `json:"description"`
	CashTendered int64                 `json:"cashTendered"`
}

type CancelResult struct {
	Transaction     models.POSTransaction `json:"transaction"`
	AlreadyTerminal bool                  `json:"alreadyTerminal"`
}

// TerminalService tracks counter payments: pending, then processing on a
// reader, then succeeded, failed or canceled. Cash sales settle at once.
type TerminalService struct {
	Transactions repositories.POSTransactionRepository
	Gateway      TerminalGateway
	Settings     Settings
	Now          func() time.Time
}

func (s TerminalService) Create(ctx context.Context, rc domain.RequestContext, in POSTransactionInput) (models.POSTransaction, error) {
	if in.Amount <= 0 {
		return models.POSTransaction{}, domain.ValidationError{Field: "amount", Msg: "must be positive"}
	}
	tx := models.POSTransaction{
		ID:          newID(),
		WorkerID:    rc.UserID,
		Amount:      in.Amount,
		PaymentType: in.PaymentType,
		Description: utils.NormalizeSpace(in.Description),
		CreatedAt:   nowFunc(s.Now),
	}

	switch in.PaymentType {
	case models.POSCash:
		if in.CashTendered < in.Amount {
			return models.POSTransaction{}, domain.ValidationError{Field: "cashTendered", Msg: "must cover the amount"}
		}
		done := nowFunc(s.Now)
		tx.Status = models.POSSucceeded
		tx.CashTendered = in.CashTendered
		tx.ChangeDue = in.CashTendered - in.Amount
		tx.CompletedAt = &done
		if err := s.Transactions.Insert(ctx, tx); err != nil {
			return models.POSTransaction{}, domain.InternalError{Msg: "could not record cash sale", Err: err}
		}

	case models.POSTerminal:
		tx.ReaderID = strings.TrimSpace(in.ReaderID)
		if tx.ReaderID == "" {
			return models.POSTransaction{}, domain.ValidationError{Field: "readerId", Msg: "required for terminal payments"}
		}
		intent, err := s.Gateway.CreateIntent(ctx, in.Amount, s.Settings.withDefaults().Currency, map[string]string{
			MetaSource:       SourcePOS,
			"transaction_id": tx.ID,
			"worker_id":      rc.UserID,
		})
		if err != nil {
			return models.POSTransaction{}, err
		}
		tx.Status = models.POSPending
		tx.PaymentIntentID = intent.ID
		if err := s.Transactions.Insert(ctx, tx); err != nil {
			if _, cerr := s.Gateway.CancelIntent(context.WithoutCancel(ctx), intent.ID); cerr != nil {
				utils.LogEvent(rc.RequestID, "pos", "rollback", fmt.Sprintf("intent=%s cancel failed: %v", intent.ID, cerr))
			}
			return models.POSTransaction{}, domain.InternalError{Msg: "could not record terminal payment", Err: err}
		}

	default:
		return models.POSTransaction{}, domain.ValidationError{Field: "paymentType", Msg: "must be terminal or cash"}
	}

	utils.LogEvent(rc.RequestID, "pos", "created",
		fmt.Sprintf("tx=%s type=%s amount=%d status=%s", tx.ID, tx.PaymentType, tx.Amount, tx.Status))
	return tx, nil
}

func (s TerminalService) Get(ctx context.Context, id string) (models.POSTransaction, error) {
	return s.Transactions.GetByID(ctx, id)
}

// Process hands a pending intent to its reader. The intent must still be
// waiting for a payment method.
func (s TerminalService) Process(ctx context.Context, rc domain.RequestContext, id string) (models.POSTransaction, error) {
	tx, err := s.Transactions.GetByID(ctx, id)
	if err != nil {
		return tx, err
	}
	if tx.PaymentType != models.POSTerminal {
		return tx, domain.ValidationError{Field: "paymentType", Msg: "only terminal transactions are processed on a reader"}
	}
	if tx.Status != models.POSPending {
		return tx, domain.ConflictError{Resource: "pos transaction", Msg: fmt.Sprintf("transaction is %s", tx.Status)}
	}

	intent, err := s.Gateway.GetIntent(ctx, tx.PaymentIntentID)
	if err != nil {
		return tx, err
	}
	if intent.Status != IntentRequiresPaymentMethod {
		return tx, domain.ConflictError{Resource: "payment intent", Msg: fmt.Sprintf("payment intent is %s", intent.Status)}
	}
	if err := s.Gateway.ProcessOnReader(ctx, tx.ReaderID, tx.PaymentIntentID); err != nil {
		utils.LogEvent(rc.RequestID, "pos", "process_failed", fmt.Sprintf("tx=%s reader=%s err=%v", tx.ID, tx.ReaderID, err))
		return tx, err
	}
	if _, err := s.Transactions.MarkProcessing(ctx, tx.ID); err != nil {
		return tx, domain.InternalError{Msg: "could not update transaction", Err: err}
	}
	tx.Status = models.POSProcessing
	utils.LogEvent(rc.RequestID, "pos", "processing", fmt.Sprintf("tx=%s reader=%s", tx.ID, tx.ReaderID))
	return tx, nil
}

// Cancel stops a transaction that has not settled. Cancelling something the
// gateway already finished is reported, not treated as an error.
func (s TerminalService) Cancel(ctx context.Context, rc domain.RequestContext, id string) (CancelResult, error) {
	tx, err := s.Transactions.GetByID(ctx, id)
	if err != nil {
		return CancelResult{}, err
	}
	if tx.Status.Terminal() {
		return CancelResult{Transaction: tx, AlreadyTerminal: true}, nil
	}
	if tx.PaymentType != models.POSTerminal || tx.PaymentIntentID == "" {
		if _, err := s.Transactions.MarkCanceled(ctx, tx.ID); err != nil {
			return CancelResult{}, domain.InternalError{Msg: "could not cancel transaction", Err: err}
		}
		tx.Status = models.POSCanceled
		return CancelResult{Transaction: tx}, nil
	}

	if tx.ReaderID != "" {
		if err := s.Gateway.CancelReaderAction(ctx, tx.ReaderID); err != nil {
			utils.LogEvent(rc.RequestID, "pos", "reader_cancel", fmt.Sprintf("reader=%s err=%v", tx.ReaderID, err))
		}
	}

	intent, err := s.Gateway.GetIntent(ctx, tx.PaymentIntentID)
	if err != nil {
		return CancelResult{}, err
	}
	if intent.Status == IntentSucceeded || intent.Status == IntentCanceled {
		utils.LogEvent(rc.RequestID, "pos", "cancel_noop", fmt.Sprintf("tx=%s intent_status=%s", tx.ID, intent.Status))
		return CancelResult{Transaction: tx, AlreadyTerminal: true}, nil
	}
	if _, err := s.Gateway.CancelIntent(ctx, tx.PaymentIntentID); err != nil {
		return CancelResult{}, err
	}
	if _, err := s.Transactions.MarkCanceled(ctx, tx.ID); err != nil {
		return CancelResult{}, domain.InternalError{Msg: "could not cancel transaction", Err: err}
	}
	tx.Status = models.POSCanceled
	utils.LogEvent(rc.RequestID, "pos", "canceled", "tx="+tx.ID)
	return CancelResult{Transaction: tx}, nil
}
