package models

import "time"

type RentalType string

const (
	RentalWeekly   RentalType = "weekly"
	RentalMonthly  RentalType = "monthly"
	RentalSemester RentalType = "semester"
)

// ExtendableOnline reports whether bookings of this type may be extended
// through self-service checkout.
func (t RentalType) ExtendableOnline() bool {
	return t == RentalMonthly
}

type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingActive    BookingStatus = "active"
	BookingCompleted BookingStatus = "completed"
	BookingCancelled BookingStatus = "cancelled"
	BookingExpired   BookingStatus = "expired"
)

// BlockingStatuses hold the vehicle for their date range.
var BlockingStatuses = []BookingStatus{BookingPending, BookingConfirmed, BookingActive}

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentExpired  PaymentStatus = "expired"
	PaymentRefunded PaymentStatus = "refunded"
)

// Pricing is the server-computed price breakdown. Amounts are minor units.
type Pricing struct {
	RentalType          RentalType `json:"rentalType"`
	RentalDays          int        `json:"rentalDays"`
	PricingMethod       string     `json:"pricingMethod"`
	DailyRate           int64      `json:"dailyRate"`
	WeeklyRate          int64      `json:"weeklyRate"`
	MonthlyRate         int64      `json:"monthlyRate"`
	RentalAmount        int64      `json:"rentalAmount"`
	SecurityDeposit     int64      `json:"securityDeposit"`
	AdditionalDriverFee int64      `json:"additionalDriverFee"`
	DeliveryFee         int64      `json:"deliveryFee"`
	TotalPrice          int64      `json:"totalPrice"`
}

// Total sums the price components; TotalPrice must always equal it.
func (p Pricing) Total() int64 {
	return p.RentalAmount + p.SecurityDeposit + p.AdditionalDriverFee + p.DeliveryFee
}

type Booking struct {
	ID                    string
	UserID                string
	VehicleID             string
	PickupDate            time.Time
	ReturnDate            time.Time
	Pricing               Pricing
	IsStudent             bool
	DeliveryLocationID    string
	AdditionalDriverCount int
	Status                BookingStatus
	PaymentStatus         PaymentStatus
	ExtensionCount        int
	PaymentSessionID      string
	PaymentIntentID       string
	PaidAt                *time.Time
	CreatedAt             time.Time
}

// DeliveryLocation is an optional drop-off point with a flat fee.
type DeliveryLocation struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Fee      int64  `json:"fee"`
	IsActive bool   `json:"isActive"`
}

// Overlaps reports whether two date ranges share a night. A return on the
// same day as the next pickup does not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && aEnd.After(bStart)
}
