package payments

import (
	"errors"
	"testing"

	"rental-backend/internal/domain"

	"github.com/stripe/stripe-go/v79"
)

func TestClassifyReaderErrors(t *testing.T) {
	cases := map[string]string{
		"terminal_reader_offline": CodeReaderOffline,
		"terminal_reader_busy":    CodeReaderBusy,
		"terminal_reader_timeout": CodeReaderTimeout,
		"resource_missing":        "resource_missing",
	}
	for stripeCode, want := range cases {
		err := classify("terminal", &stripe.Error{Code: stripe.ErrorCode(stripeCode), Msg: "boom"})
		ext, ok := domain.AsExternal(err)
		if !ok {
			t.Fatalf("%s: expected external error, got %T", stripeCode, err)
		}
		if ext.Code != want {
			t.Fatalf("%s: expected code %s, got %s", stripeCode, want, ext.Code)
		}
	}
}

func TestClassifyNetworkError(t *testing.T) {
	ext, ok := domain.AsExternal(classify("checkout", errors.New("dial tcp: timeout")))
	if !ok || ext.Code != "gateway_unavailable" {
		t.Fatalf("expected gateway_unavailable, got %+v", ext)
	}
}

func TestIntentFromReadsCardDetails(t *testing.T) {
	pi := &stripe.PaymentIntent{
		ID:     "pi_1",
		Status: stripe.PaymentIntentStatusSucceeded,
		Amount: 4200,
	}
	pi.LastResponse = &stripe.APIResponse{RawJSON: []byte(`{
		"id": "pi_1",
		"latest_charge": {
			"receipt_url": "https://pay.example/r/1",
			"payment_method_details": {"card_present": {"brand": "visa", "last4": "4242"}}
		}
	}`)}

	out := intentFrom(pi)
	if out.CardBrand != "visa" || out.CardLast4 != "4242" || out.ReceiptURL == "" {
		t.Fatalf("card details not extracted: %+v", out)
	}
}

func TestVerifiedAttributesPrefersReportDocumentNumber(t *testing.T) {
	a := verifiedAttributes([]byte(`{
		"verified_outputs": {"first_name": "Jane", "last_name": "Doe", "id_number": "", "dob": {"day": 2, "month": 1, "year": 1990}},
		"last_verification_report": {"document": {"number": "D123-4567"}}
	}`))
	if a.Name != "Jane Doe" || a.DateOfBirth != "1990-01-02" || a.LicenseNumber != "D123-4567" {
		t.Fatalf("unexpected attributes %+v", a)
	}
}
