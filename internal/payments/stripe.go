package payments

import (
	"context"
	"encoding/json"
	"strings"

	"rental-backend/internal/identity"
	"rental-backend/internal/services"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
)

// Stripe implements the payment, terminal and identity gateways on one API
// client.
type Stripe struct {
	api            *client.API
	identityFlowID string
}

func NewStripe(secretKey, identityFlowID string) *Stripe {
	return &Stripe{api: client.New(secretKey, nil), identityFlowID: strings.TrimSpace(identityFlowID)}
}

func (s *Stripe) CreateCheckoutSession(ctx context.Context, req services.CheckoutSessionRequest) (services.CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(req.SuccessURL),
		CancelURL:         stripe.String(req.CancelURL),
		ClientReferenceID: stripe.String(req.ClientReferenceID),
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			Metadata: req.Metadata,
		},
	}
	params.Context = ctx
	if req.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(req.CustomerEmail)
	}
	if !req.ExpiresAt.IsZero() {
		params.ExpiresAt = stripe.Int64(req.ExpiresAt.Unix())
	}
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}
	for _, item := range req.LineItems {
		params.LineItems = append(params.LineItems, &stripe.CheckoutSessionLineItemParams{
			Quantity: stripe.Int64(1),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(req.Currency),
				UnitAmount: stripe.Int64(item.Amount),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(item.Name),
				},
			},
		})
	}

	sess, err := s.api.CheckoutSessions.New(params)
	if err != nil {
		return services.CheckoutSession{}, classify("checkout", err)
	}
	return services.CheckoutSession{ID: sess.ID, URL: sess.URL}, nil
}

func (s *Stripe) ExpireCheckoutSession(ctx context.Context, sessionID string) error {
	params := &stripe.CheckoutSessionExpireParams{}
	params.Context = ctx
	_, err := s.api.CheckoutSessions.Expire(sessionID, params)
	if err != nil {
		return classify("checkout", err)
	}
	return nil
}

func (s *Stripe) CreateIntent(ctx context.Context, amount int64, currency string, metadata map[string]string) (services.PaymentIntent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:             stripe.Int64(amount),
		Currency:           stripe.String(currency),
		PaymentMethodTypes: stripe.StringSlice([]string{"card_present"}),
		CaptureMethod:      stripe.String(string(stripe.PaymentIntentCaptureMethodAutomatic)),
	}
	params.Context = ctx
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}
	pi, err := s.api.PaymentIntents.New(params)
	if err != nil {
		return services.PaymentIntent{}, classify("terminal", err)
	}
	return intentFrom(pi), nil
}

// GetIntent loads an intent with its latest charge so card details are
// available once it settles.
func (s *Stripe) GetIntent(ctx context.Context, intentID string) (services.PaymentIntent, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	params.AddExpand("latest_charge")
	pi, err := s.api.PaymentIntents.Get(intentID, params)
	if err != nil {
		return services.PaymentIntent{}, classify("terminal", err)
	}
	return intentFrom(pi), nil
}

func (s *Stripe) CancelIntent(ctx context.Context, intentID string) (services.PaymentIntent, error) {
	params := &stripe.PaymentIntentCancelParams{}
	params.Context = ctx
	pi, err := s.api.PaymentIntents.Cancel(intentID, params)
	if err != nil {
		return services.PaymentIntent{}, classify("terminal", err)
	}
	return intentFrom(pi), nil
}

func (s *Stripe) ProcessOnReader(ctx context.Context, readerID, intentID string) error {
	params := &stripe.TerminalReaderProcessPaymentIntentParams{
		PaymentIntent: stripe.String(intentID),
	}
	params.Context = ctx
	if _, err := s.api.TerminalReaders.ProcessPaymentIntent(readerID, params); err != nil {
		return classify("terminal", err)
	}
	return nil
}

func (s *Stripe) CancelReaderAction(ctx context.Context, readerID string) error {
	params := &stripe.TerminalReaderCancelActionParams{}
	params.Context = ctx
	if _, err := s.api.TerminalReaders.CancelAction(readerID, params); err != nil {
		return classify("terminal", err)
	}
	return nil
}

func (s *Stripe) CreateVerificationSession(ctx context.Context, req services.IdentitySessionRequest) (services.IdentitySession, error) {
	params := &stripe.IdentityVerificationSessionParams{}
	params.Context = ctx
	if s.identityFlowID != "" {
		params.AddExtra("verification_flow", s.identityFlowID)
	} else {
		params.Type = stripe.String(string(stripe.IdentityVerificationSessionTypeDocument))
		params.Options = &stripe.IdentityVerificationSessionOptionsParams{
			Document: &stripe.IdentityVerificationSessionOptionsDocumentParams{
				AllowedTypes:          stripe.StringSlice([]string{"driving_license"}),
				RequireMatchingSelfie: stripe.Bool(true),
			},
		}
	}
	if req.ReturnURL != "" {
		params.ReturnURL = stripe.String(req.ReturnURL)
	}
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}
	vs, err := s.api.IdentityVerificationSessions.New(params)
	if err != nil {
		return services.IdentitySession{}, classify("identity", err)
	}
	return services.IdentitySession{ID: vs.ID, URL: vs.URL, Status: string(vs.Status)}, nil
}

// RetrieveVerificationSession expands the verified outputs and the report so
// the licence number is available.
func (s *Stripe) RetrieveVerificationSession(ctx context.Context, sessionID string) (services.IdentitySession, error) {
	params := &stripe.IdentityVerificationSessionParams{}
	params.Context = ctx
	params.AddExpand("verified_outputs")
	params.AddExpand("last_verification_report")
	vs, err := s.api.IdentityVerificationSessions.Get(sessionID, params)
	if err != nil {
		return services.IdentitySession{}, classify("identity", err)
	}
	out := services.IdentitySession{ID: vs.ID, URL: vs.URL, Status: string(vs.Status)}
	if vs.LastResponse != nil {
		out.Verified = verifiedAttributes(vs.LastResponse.RawJSON)
	}
	return out, nil
}

func (s *Stripe) CancelVerificationSession(ctx context.Context, sessionID string) error {
	params := &stripe.IdentityVerificationSessionCancelParams{}
	params.Context = ctx
	if _, err := s.api.IdentityVerificationSessions.Cancel(sessionID, params); err != nil {
		return classify("identity", err)
	}
	return nil
}

type chargeDetails struct {
	LatestCharge *struct {
		ReceiptURL           string `json:"receipt_url"`
		PaymentMethodDetails *struct {
			CardPresent *struct {
				Brand string `json:"brand"`
				Last4 string `json:"last4"`
			} `json:"card_present"`
		} `json:"payment_method_details"`
	} `json:"latest_charge"`
}

func intentFrom(pi *stripe.PaymentIntent) services.PaymentIntent {
	out := services.PaymentIntent{
		ID:       pi.ID,
		Status:   string(pi.Status),
		Amount:   pi.Amount,
		Metadata: pi.Metadata,
	}
	if pi.LastResponse == nil {
		return out
	}
	var d chargeDetails
	if err := json.Unmarshal(pi.LastResponse.RawJSON, &d); err != nil || d.LatestCharge == nil {
		return out
	}
	out.ReceiptURL = d.LatestCharge.ReceiptURL
	if pm := d.LatestCharge.PaymentMethodDetails; pm != nil && pm.CardPresent != nil {
		out.CardBrand = pm.CardPresent.Brand
		out.CardLast4 = pm.CardPresent.Last4
	}
	return out
}

type verifiedSession struct {
	VerifiedOutputs *struct {
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
		IDNumber  string `json:"id_number"`
		DOB       *struct {
			Day   int `json:"day"`
			Month int `json:"month"`
			Year  int `json:"year"`
		} `json:"dob"`
	} `json:"verified_outputs"`
	LastVerificationReport *struct {
		Document *struct {
			Number string `json:"number"`
		} `json:"document"`
	} `json:"last_verification_report"`
}

func verifiedAttributes(raw []byte) identity.Attributes {
	var (
		v verifiedSession
		a identity.Attributes
	)
	if err := json.Unmarshal(raw, &v); err != nil {
		return a
	}
	if out := v.VerifiedOutputs; out != nil {
		a.Name = strings.TrimSpace(out.FirstName + " " + out.LastName)
		a.LicenseNumber = out.IDNumber
		if out.DOB != nil && out.DOB.Year > 0 {
			a.DateOfBirth = formatDOB(out.DOB.Year, out.DOB.Month, out.DOB.Day)
		}
	}
	if r := v.LastVerificationReport; r != nil && r.Document != nil && r.Document.Number != "" {
		a.LicenseNumber = r.Document.Number
	}
	return a
}
