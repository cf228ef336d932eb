package models

import "time"

type VerificationStatus string

const (
	VerificationUnverified VerificationStatus = "unverified"
	VerificationPending    VerificationStatus = "pending"
	VerificationVerified   VerificationStatus = "verified"
	VerificationFailed     VerificationStatus = "failed"
	VerificationCanceled   VerificationStatus = "canceled"
)

// DriverKind selects the primary_drivers or additional_drivers table.
type DriverKind string

const (
	PrimaryDriver    DriverKind = "primary"
	AdditionalDriver DriverKind = "additional"
)

func (k DriverKind) Valid() bool {
	return k == PrimaryDriver || k == AdditionalDriver
}

type Driver struct {
	ID                 string
	BookingID          string
	Kind               DriverKind
	FirstName          string
	LastName           string
	Email              string
	Phone              string
	DateOfBirth        time.Time
	LicenseNumber      string
	LicenseState       string
	LicenseExpiry      time.Time
	VerificationStatus VerificationStatus
	IsVerified         bool
}

func (d Driver) FullName() string {
	if d.LastName == "" {
		return d.FirstName
	}
	return d.FirstName + " " + d.LastName
}

// DriverInput is the client payload for a driver on checkout.
type DriverInput struct {
	FirstName     string `json:"firstName"`
	LastName      string `json:"lastName"`
	Email         string `json:"email"`
	Phone         string `json:"phone"`
	DateOfBirth   string `json:"dateOfBirth"`
	LicenseNumber string `json:"licenseNumber"`
	LicenseState  string `json:"licenseState"`
	LicenseExpiry string `json:"licenseExpiry"`
}
