package services

import (
	"encoding/json"
	"fmt"
	"strings"

	"rental-backend/internal/identity"
	"rental-backend/internal/utils"
)

// EventKind is the closed set of gateway events the processor acts on.
type EventKind int

const (
	EventUnknown EventKind = iota
	EventCheckoutCompleted
	EventCheckoutExpired
	EventIdentityVerified
	EventIdentityRequiresInput
	EventIdentityCanceled
	EventPaymentSucceeded
	EventPaymentFailed
)

var eventKinds = map[string]EventKind{
	"checkout.session.completed":                   EventCheckoutCompleted,
	"checkout.session.expired":                     EventCheckoutExpired,
	"identity.verification_session.verified":       EventIdentityVerified,
	"identity.verification_session.requires_input": EventIdentityRequiresInput,
	"identity.verification_session.canceled":       EventIdentityCanceled,
	"payment_intent.succeeded":                     EventPaymentSucceeded,
	"payment_intent.payment_failed":                EventPaymentFailed,
}

func KindOf(eventType string) EventKind {
	return eventKinds[eventType]
}

func (k EventKind) String() string {
	switch k {
	case EventCheckoutCompleted:
		return "checkout_completed"
	case EventCheckoutExpired:
		return "checkout_expired"
	case EventIdentityVerified:
		return "identity_verified"
	case EventIdentityRequiresInput:
		return "identity_requires_input"
	case EventIdentityCanceled:
		return "identity_canceled"
	case EventPaymentSucceeded:
		return "payment_succeeded"
	case EventPaymentFailed:
		return "payment_failed"
	default:
		return "unknown"
	}
}

type checkoutSessionObject struct {
	ID                string            `json:"id"`
	ClientReferenceID string            `json:"client_reference_id"`
	PaymentIntent     string            `json:"payment_intent"`
	PaymentStatus     string            `json:"payment_status"`
	Metadata          map[string]string `json:"metadata"`
}

func (o checkoutSessionObject) bookingID() string {
	if id := strings.TrimSpace(o.Metadata[MetaBookingID]); id != "" {
		return id
	}
	return strings.TrimSpace(o.ClientReferenceID)
}

type verificationDOB struct {
	Day   int `json:"day"`
	Month int `json:"month"`
	Year  int `json:"year"`
}

func (d *verificationDOB) String() string {
	if d == nil || d.Year == 0 {
		return ""
	}
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

type verifiedOutputs struct {
	FirstName string           `json:"first_name"`
	LastName  string           `json:"last_name"`
	DOB       *verificationDOB `json:"dob"`
	IDNumber  string           `json:"id_number"`
}

type verificationReport struct {
	Document *struct {
		Number string `json:"number"`
	} `json:"document"`
}

type verificationSessionObject struct {
	ID        string            `json:"id"`
	Status    string            `json:"status"`
	Metadata  map[string]string `json:"metadata"`
	LastError *struct {
		Code   string `json:"code"`
		Reason string `json:"reason"`
	} `json:"last_error"`
	VerifiedOutputs        *verifiedOutputs    `json:"verified_outputs"`
	LastVerificationReport *verificationReport `json:"last_verification_report"`
}

// attributes extracts what the provider verified. Fields missing from the
// payload come back empty.
func (o verificationSessionObject) attributes() identity.Attributes {
	var a identity.Attributes
	if out := o.VerifiedOutputs; out != nil {
		a.Name = strings.TrimSpace(out.FirstName + " " + out.LastName)
		a.DateOfBirth = out.DOB.String()
		a.LicenseNumber = out.IDNumber
	}
	if r := o.LastVerificationReport; r != nil && r.Document != nil && r.Document.Number != "" {
		a.LicenseNumber = r.Document.Number
	}
	return a
}

type paymentIntentObject struct {
	ID               string            `json:"id"`
	Status           string            `json:"status"`
	Metadata         map[string]string `json:"metadata"`
	LastPaymentError *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"last_payment_error"`
}

func (o paymentIntentObject) failureReason() string {
	if e := o.LastPaymentError; e != nil {
		return utils.FirstNonEmpty(e.Message, e.Code)
	}
	return "payment failed"
}

func decodeObject(raw json.RawMessage, dst any) error {
	if len(raw) == 0 {
		return fmt.Errorf("event has no data object")
	}
	return json.Unmarshal(raw, dst)
}
