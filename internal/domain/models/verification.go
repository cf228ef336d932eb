package models

import (
	"time"

	"rental-backend/internal/identity"
)

// VerificationSource routes identity events to their handler set.
type VerificationSource string

const (
	SourceBooking VerificationSource = "booking"
	SourcePOS     VerificationSource = "pos"
)

// FailureCategory splits provider errors into customer document problems and
// technical problems; each has its own retry counter.
type FailureCategory string

const (
	FailureDocument  FailureCategory = "document"
	FailureTechnical FailureCategory = "technical"
)

// CanceledReason is stored on verifications closed by the customer.
const CanceledReason = "user_canceled"

// Verification is a row of driver_verifications or pending_verifications.
type Verification struct {
	ID                  string
	SessionID           string
	Source              VerificationSource
	BookingID           string
	DriverID            string
	DriverKind          DriverKind
	WorkerID            string
	Status              VerificationStatus
	Provided            identity.Attributes
	Verified            identity.Attributes
	NameMatch           bool
	DateOfBirthMatch    bool
	LicenseNumberMatch  bool
	Mismatches          []identity.Mismatch
	FailureCode         string
	FailureCategory     FailureCategory
	FailureReason       string
	DocumentRetryCount  int
	TechnicalRetryCount int
	VerifiedAt          *time.Time
}
