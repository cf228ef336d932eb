package models

import "time"

type POSPaymentType string

const (
	POSTerminal POSPaymentType = "terminal"
	POSCash     POSPaymentType = "cash"
)

type POSStatus string

const (
	POSPending    POSStatus = "pending"
	POSProcessing POSStatus = "processing"
	POSSucceeded  POSStatus = "succeeded"
	POSFailed     POSStatus = "failed"
	POSCanceled   POSStatus = "canceled"
)

func (s POSStatus) Terminal() bool {
	return s == POSSucceeded || s == POSFailed || s == POSCanceled
}

type POSTransaction struct {
	ID              string         `json:"id"`
	WorkerID        string         `json:"workerId"`
	Amount          int64          `json:"amount"`
	PaymentType     POSPaymentType `json:"paymentType"`
	Status          POSStatus      `json:"status"`
	ReaderID        string         `json:"readerId,omitempty"`
	PaymentIntentID string         `json:"paymentIntentId,omitempty"`
	Description     string         `json:"description,omitempty"`
	CardBrand       string         `json:"cardBrand,omitempty"`
	CardLast4       string         `json:"cardLast4,omitempty"`
	ReceiptURL      string         `json:"receiptUrl,omitempty"`
	CashTendered    int64          `json:"cashTendered,omitempty"`
	ChangeDue       int64          `json:"changeDue,omitempty"`
	FailureReason   string         `json:"failureReason,omitempty"`
	CompletedAt     *time.Time     `json:"completedAt,omitempty"`
	CreatedAt       time.Time      `json:"createdAt"`
}
