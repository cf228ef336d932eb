package services

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"rental-backend/internal/domain"
	"rental-backend/internal/domain/models"
	"rental-backend/internal/repositories"
	"rental-backend/internal/utils"
)

type ExtensionInput struct {
	NewReturnDate string `json:"newReturnDate"`
}

type ExtensionResult struct {
	URL            string `json:"url"`
	BookingID      string `json:"bookingId"`
	SessionID      string `json:"sessionId"`
	NewReturnDate  string `json:"newReturnDate"`
	AdditionalDays int    `json:"additionalDays"`
	Amount         int64  `json:"amount"`
}

type ExtensionService struct {
	Bookings repositories.BookingRepository
	Drivers  repositories.DriverRepository
	Pricing  repositories.PricingRepository
	Payments PaymentGateway
	Settings Settings
	Now      func() time.Time
}

// Extend prices a later return date and opens a payment session for the
// difference. The booking is only changed when the payment webhook arrives.
func (s ExtensionService) Extend(ctx context.Context, rc domain.RequestContext, bookingID string, in ExtensionInput) (ExtensionResult, error) {
	cfg := s.Settings.withDefaults()
	if rc.UserID == "" {
		return ExtensionResult{}, domain.ForbiddenError{Msg: "authentication required"}
	}
	newReturn, err := utils.ParseDate(in.NewReturnDate)
	if err != nil {
		return ExtensionResult{}, domain.ValidationError{Field: "newReturnDate", Msg: "invalid date", Err: err}
	}

	b, err := s.Bookings.GetForUser(ctx, bookingID, rc.UserID)
	if err != nil {
		return ExtensionResult{}, err
	}
	if err := checkExtendable(b, newReturn, cfg.MaxExtensions); err != nil {
		return ExtensionResult{}, err
	}

	overlapping, err := s.Bookings.CountOverlapping(ctx, b.VehicleID, b.ReturnDate, newReturn, b.ID)
	if err != nil {
		return ExtensionResult{}, domain.InternalError{Msg: "availability check failed", Err: err}
	}
	if overlapping > 0 {
		return ExtensionResult{}, domain.ConflictError{Resource: "vehicle", Msg: "vehicle is booked during the requested extension"}
	}

	quote, err := s.Pricing.Quote(ctx, b.VehicleID, b.ReturnDate, newReturn, b.IsStudent, 0, 0)
	if err != nil {
		return ExtensionResult{}, err
	}
	amount := quote.RentalAmount
	if amount < cfg.MinExtensionCharge {
		amount = cfg.MinExtensionCharge
	}
	days := utils.DaysBetween(b.ReturnDate, newReturn)

	email := rc.Email
	if email == "" {
		if _, contact, err := s.Drivers.PrimaryContact(ctx, b.ID); err == nil {
			email = contact
		}
	}

	session, err := s.Payments.CreateCheckoutSession(ctx, CheckoutSessionRequest{
		Currency:          cfg.Currency,
		CustomerEmail:     email,
		ClientReferenceID: b.ID,
		SuccessURL:        fmt.Sprintf("%s/bookings/%s?extended=1&session_id={CHECKOUT_SESSION_ID}", cfg.BaseURL, b.ID),
		CancelURL:         fmt.Sprintf("%s/bookings/%s?extension=cancelled", cfg.BaseURL, b.ID),
		LineItems: []LineItem{{
			Name:   fmt.Sprintf("Rental extension (%d days, until %s)", days, utils.FormatDate(newReturn)),
			Amount: amount,
		}},
		Metadata: map[string]string{
			MetaCheckoutType:   CheckoutTypeExtension,
			MetaBookingID:      b.ID,
			MetaUserID:         b.UserID,
			MetaVehicleID:      b.VehicleID,
			MetaNewReturnDate:  utils.FormatDate(newReturn),
			MetaAdditionalDays: strconv.Itoa(days),
			MetaAmount:         strconv.FormatInt(amount, 10),
		},
		ExpiresAt: nowFunc(s.Now).Add(cfg.SessionTTL),
	})
	if err != nil {
		utils.LogEvent(rc.RequestID, "extension", "session_failed", fmt.Sprintf("booking=%s err=%v", b.ID, err))
		return ExtensionResult{}, domain.InternalError{Msg: "extension checkout could not be created", Err: err}
	}

	utils.LogEvent(rc.RequestID, "extension", "session_created",
		fmt.Sprintf("booking=%s days=%d amount=%d session=%s", b.ID, days, amount, session.ID))
	return ExtensionResult{
		URL:            session.URL,
		BookingID:      b.ID,
		SessionID:      session.ID,
		NewReturnDate:  utils.FormatDate(newReturn),
		AdditionalDays: days,
		Amount:         amount,
	}, nil
}

func checkExtendable(b models.Booking, newReturn time.Time, maxExtensions int) error {
	if b.Status != models.BookingConfirmed && b.Status != models.BookingActive {
		return domain.ConflictError{Resource: "booking", Msg: "only confirmed or active bookings can be extended"}
	}
	if !b.Pricing.RentalType.ExtendableOnline() {
		return domain.ValidationError{
			Field: "rentalType",
			Msg:   fmt.Sprintf("%s rentals cannot be extended online", b.Pricing.RentalType),
		}
	}
	if b.ExtensionCount >= maxExtensions {
		return domain.ValidationError{Field: "extensionCount", Msg: fmt.Sprintf("maximum of %d extensions reached", maxExtensions)}
	}
	if !newReturn.After(b.ReturnDate) {
		return domain.ValidationError{Field: "newReturnDate", Msg: "must be after the current return date"}
	}
	return nil
}
