package services

import (
	"context"
	"database/sql/driver"
	"errors"
	"sync"
	"time"

	"rental-backend/internal/domain/models"

	"github.com/DATA-DOG/go-sqlmock"
)

var bookingCols = []string{
	"id", "user_id", "vehicle_id", "pickup_date", "return_date",
	"rental_type", "rental_days", "pricing_method", "daily_rate", "weekly_rate", "monthly_rate",
	"rental_amount", "security_deposit", "additional_driver_fee", "delivery_fee", "total_price",
	"is_student", "delivery_location_id", "additional_driver_count",
	"status", "payment_status", "extension_count", "payment_session_id", "payment_intent_id", "paid_at",
}

func bookingRow(b models.Booking) *sqlmock.Rows {
	p := b.Pricing
	var paidAt driver.Value
	if b.PaidAt != nil {
		paidAt = *b.PaidAt
	}
	return sqlmock.NewRows(bookingCols).AddRow(
		b.ID, b.UserID, b.VehicleID, b.PickupDate, b.ReturnDate,
		string(p.RentalType), p.RentalDays, p.PricingMethod, p.DailyRate, p.WeeklyRate, p.MonthlyRate,
		p.RentalAmount, p.SecurityDeposit, p.AdditionalDriverFee, p.DeliveryFee, p.TotalPrice,
		b.IsStudent, nil, b.AdditionalDriverCount,
		string(b.Status), string(b.PaymentStatus), b.ExtensionCount, nil, nil, paidAt,
	)
}

var vehicleCols = []string{"id", "name", "make", "model", "year", "daily_rate", "status"}

var pricingCols = []string{"rental_type", "rental_days", "pricing_method", "daily_rate", "weekly_rate",
	"monthly_rate", "rental_amount", "security_deposit", "additional_driver_fee"}

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func fixedNow(s string) func() time.Time {
	t := date(s).Add(9 * time.Hour)
	return func() time.Time { return t }
}

func monthlyBooking() models.Booking {
	paid := date("2025-05-20")
	return models.Booking{
		ID:         "b-1",
		UserID:     "user-1",
		VehicleID:  "veh-1",
		PickupDate: date("2025-06-01"),
		ReturnDate: date("2025-07-01"),
		Pricing: models.Pricing{
			RentalType:      models.RentalMonthly,
			RentalDays:      30,
			PricingMethod:   "monthly",
			RentalAmount:    120000,
			SecurityDeposit: 50000,
			TotalPrice:      170000,
		},
		Status:        models.BookingConfirmed,
		PaymentStatus: models.PaymentPaid,
		PaidAt:        &paid,
	}
}

type fakePayments struct {
	mu        sync.Mutex
	requests  []CheckoutSessionRequest
	expired   []string
	createErr error
}

func (f *fakePayments) CreateCheckoutSession(_ context.Context, req CheckoutSessionRequest) (CheckoutSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return CheckoutSession{}, f.createErr
	}
	f.requests = append(f.requests, req)
	return CheckoutSession{ID: "cs_test_1", URL: "https://checkout.example/cs_test_1"}, nil
}

func (f *fakePayments) ExpireCheckoutSession(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.expired = append(f.expired, id)
	return nil
}

type fakeCache struct {
	keys     []string
	patterns []string
}

func (f *fakeCache) Invalidate(_ context.Context, keys ...string) error {
	f.keys = append(f.keys, keys...)
	return nil
}

func (f *fakeCache) InvalidatePattern(_ context.Context, pattern string) (int, error) {
	f.patterns = append(f.patterns, pattern)
	return 0, nil
}

func (f *fakeCache) InvalidateTarget(_ context.Context, _ string) (int, error) {
	return 0, nil
}

type fakeTerminal struct {
	intents        map[string]PaymentIntent
	processed      []string
	canceled       []string
	readerCanceled []string
	readerErr      error
}

func (f *fakeTerminal) CreateIntent(_ context.Context, amount int64, _ string, metadata map[string]string) (PaymentIntent, error) {
	pi := PaymentIntent{ID: "pi_new", Status: IntentRequiresPaymentMethod, Amount: amount, Metadata: metadata}
	if f.intents == nil {
		f.intents = map[string]PaymentIntent{}
	}
	f.intents[pi.ID] = pi
	return pi, nil
}

func (f *fakeTerminal) GetIntent(_ context.Context, id string) (PaymentIntent, error) {
	pi, ok := f.intents[id]
	if !ok {
		return PaymentIntent{}, errors.New("no such intent")
	}
	return pi, nil
}

func (f *fakeTerminal) CancelIntent(_ context.Context, id string) (PaymentIntent, error) {
	f.canceled = append(f.canceled, id)
	pi := f.intents[id]
	pi.Status = IntentCanceled
	return pi, nil
}

func (f *fakeTerminal) ProcessOnReader(_ context.Context, readerID, intentID string) error {
	if f.readerErr != nil {
		return f.readerErr
	}
	f.processed = append(f.processed, readerID+"/"+intentID)
	return nil
}

func (f *fakeTerminal) CancelReaderAction(_ context.Context, readerID string) error {
	f.readerCanceled = append(f.readerCanceled, readerID)
	return nil
}

type fakeIdentity struct {
	session   IdentitySession
	retrieved []string
	canceled  []string
}

func (f *fakeIdentity) CreateVerificationSession(_ context.Context, req IdentitySessionRequest) (IdentitySession, error) {
	return IdentitySession{ID: "vs_new", URL: "https://verify.example/vs_new"}, nil
}

func (f *fakeIdentity) RetrieveVerificationSession(_ context.Context, id string) (IdentitySession, error) {
	f.retrieved = append(f.retrieved, id)
	return f.session, nil
}

func (f *fakeIdentity) CancelVerificationSession(_ context.Context, id string) error {
	f.canceled = append(f.canceled, id)
	return nil
}

type sentNotification struct {
	template  string
	recipient string
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentNotification
}

func (f *fakeNotifier) Notify(_ context.Context, template, recipient string, _ map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentNotification{template: template, recipient: recipient})
	return nil
}
