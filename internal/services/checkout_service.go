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

// Checkout session metadata keys shared with the webhook processor.
const (
	MetaCheckoutType   = "checkout_type"
	MetaBookingID      = "booking_id"
	MetaUserID         = "user_id"
	MetaVehicleID      = "vehicle_id"
	MetaNewReturnDate  = "new_return_date"
	MetaAdditionalDays = "additional_days"
	MetaAmount         = "amount"
	MetaSource         = "source"

	CheckoutTypeBooking   = "booking"
	CheckoutTypeExtension = "extension"
	SourcePOS             = "pos"
)

// CheckoutInput is the booking request. Amount is accepted for client
// compatibility and never used for pricing.
type CheckoutInput struct {
	VehicleID          string               `json:"vehicleId"`
	PickupDate         string               `json:"pickupDate"`
	ReturnDate         string               `json:"returnDate"`
	PrimaryDriver      models.DriverInput   `json:"primaryDriver"`
	AdditionalDrivers  []models.DriverInput `json:"additionalDrivers"`
	DeliveryLocationID string               `json:"deliveryLocationId"`
	IsStudent          bool                 `json:"isStudent"`
	Amount             *int64               `json:"amount,omitempty"`
}

type CheckoutResult struct {
	URL        string         `json:"url"`
	BookingID  string         `json:"bookingId"`
	SessionID  string         `json:"sessionId"`
	TotalPrice int64          `json:"totalPrice"`
	Pricing    models.Pricing `json:"pricing"`
}

type CheckoutService struct {
	Bookings  repositories.BookingRepository
	Drivers   repositories.DriverRepository
	Vehicles  repositories.VehicleRepository
	Locations repositories.DeliveryLocationRepository
	Pricing   repositories.PricingRepository
	Payments  PaymentGateway
	Cache     CacheInvalidator
	Settings  Settings
	Now       func() time.Time
}

type checkoutPlan struct {
	booking    models.Booking
	primary    models.Driver
	additional []models.Driver
	location   *models.DeliveryLocation
	email      string
}

// Checkout validates and prices a booking request, writes the pending rows
// and opens a hosted payment session. Any failure after the first write
// undoes every completed step.
func (s CheckoutService) Checkout(ctx context.Context, rc domain.RequestContext, in CheckoutInput) (CheckoutResult, error) {
	cfg := s.Settings.withDefaults()
	plan, err := s.plan(ctx, rc, cfg, in)
	if err != nil {
		return CheckoutResult{}, err
	}
	b := plan.booking
	if in.Amount != nil && *in.Amount != b.Pricing.TotalPrice {
		utils.LogEvent(rc.RequestID, "checkout", "price_ignored",
			fmt.Sprintf("booking=%s client_amount=%d server_total=%d", b.ID, *in.Amount, b.Pricing.TotalPrice))
	}

	undo := newUndoStack("checkout", rc.RequestID)
	fail := func(step string, err error) (CheckoutResult, error) {
		utils.LogEvent(rc.RequestID, "checkout", "failed", fmt.Sprintf("booking=%s step=%s err=%v", b.ID, step, err))
		undo.Rollback(ctx)
		return CheckoutResult{}, domain.InternalError{Msg: "checkout could not be completed", Err: err}
	}

	if err := s.Bookings.Insert(ctx, b); err != nil {
		return fail("booking", err)
	}
	undo.Push("delete_booking", func(ctx context.Context) error {
		return s.Bookings.Delete(ctx, b.ID)
	})

	if err := s.Drivers.Insert(ctx, plan.primary); err != nil {
		return fail("primary_driver", err)
	}
	primaryID := plan.primary.ID
	undo.Push("delete_primary_driver", func(ctx context.Context) error {
		return s.Drivers.Delete(ctx, models.PrimaryDriver, primaryID)
	})

	for _, d := range plan.additional {
		if err := s.Drivers.Insert(ctx, d); err != nil {
			return fail("additional_driver", err)
		}
		id := d.ID
		undo.Push("delete_additional_driver", func(ctx context.Context) error {
			return s.Drivers.Delete(ctx, models.AdditionalDriver, id)
		})
	}

	now := nowFunc(s.Now)
	session, err := s.Payments.CreateCheckoutSession(ctx, CheckoutSessionRequest{
		Currency:          cfg.Currency,
		CustomerEmail:     plan.email,
		ClientReferenceID: b.ID,
		SuccessURL:        fmt.Sprintf("%s/bookings/%s/confirmation?session_id={CHECKOUT_SESSION_ID}", cfg.BaseURL, b.ID),
		CancelURL:         fmt.Sprintf("%s/vehicles/%s?checkout=cancelled", cfg.BaseURL, b.VehicleID),
		LineItems:         bookingLineItems(b, plan.location),
		Metadata:          bookingMetadata(b),
		ExpiresAt:         now.Add(cfg.SessionTTL),
		IdempotencyKey:    "checkout-" + b.ID,
	})
	if err != nil {
		return fail("payment_session", err)
	}
	undo.Push("expire_payment_session", func(ctx context.Context) error {
		return s.Payments.ExpireCheckoutSession(ctx, session.ID)
	})

	if err := s.Bookings.AttachSession(ctx, b.ID, session.ID); err != nil {
		return fail("attach_session", err)
	}

	invalidateUserBookings(ctx, s.Cache, rc.RequestID, b.UserID)
	utils.LogEvent(rc.RequestID, "checkout", "created",
		fmt.Sprintf("booking=%s vehicle=%s total=%d session=%s", b.ID, b.VehicleID, b.Pricing.TotalPrice, session.ID))

	return CheckoutResult{
		URL:        session.URL,
		BookingID:  b.ID,
		SessionID:  session.ID,
		TotalPrice: b.Pricing.TotalPrice,
		Pricing:    b.Pricing,
	}, nil
}

// plan runs every validation and the price lookup. Nothing is written.
func (s CheckoutService) plan(ctx context.Context, rc domain.RequestContext, cfg Settings, in CheckoutInput) (checkoutPlan, error) {
	var p checkoutPlan
	if rc.UserID == "" {
		return p, domain.ForbiddenError{Msg: "authentication required"}
	}
	vehicleID := utils.TrimOrEmpty(in.VehicleID)
	if vehicleID == "" {
		return p, domain.ValidationError{Field: "vehicleId", Msg: "required"}
	}
	pickup, err := utils.ParseDate(in.PickupDate)
	if err != nil {
		return p, domain.ValidationError{Field: "pickupDate", Msg: "invalid date", Err: err}
	}
	ret, err := utils.ParseDate(in.ReturnDate)
	if err != nil {
		return p, domain.ValidationError{Field: "returnDate", Msg: "invalid date", Err: err}
	}
	today := utils.TruncateDay(nowFunc(s.Now))
	if pickup.Before(today) {
		return p, domain.ValidationError{Field: "pickupDate", Msg: "must not be in the past"}
	}
	if !ret.After(pickup) {
		return p, domain.ValidationError{Field: "returnDate", Msg: "must be after pickup date"}
	}
	if len(in.AdditionalDrivers) > cfg.MaxAdditionalDrivers {
		return p, domain.ValidationError{
			Field: "additionalDrivers",
			Msg:   fmt.Sprintf("at most %d additional drivers", cfg.MaxAdditionalDrivers),
		}
	}

	bookingID := newID()
	primary, err := buildDriver("primaryDriver", models.PrimaryDriver, bookingID, in.PrimaryDriver)
	if err != nil {
		return p, err
	}
	additional := make([]models.Driver, 0, len(in.AdditionalDrivers))
	for i, raw := range in.AdditionalDrivers {
		d, err := buildDriver(additionalField(i), models.AdditionalDriver, bookingID, raw)
		if err != nil {
			return p, err
		}
		additional = append(additional, d)
	}

	vehicle, err := s.Vehicles.GetByID(ctx, vehicleID)
	if err != nil {
		return p, err
	}
	if !vehicle.Bookable() {
		return p, domain.ConflictError{Resource: "vehicle", Msg: "vehicle is not available"}
	}
	overlapping, err := s.Bookings.CountOverlapping(ctx, vehicleID, pickup, ret, "")
	if err != nil {
		return p, domain.InternalError{Msg: "availability check failed", Err: err}
	}
	if overlapping > 0 {
		return p, domain.ConflictError{Resource: "vehicle", Msg: "vehicle is already booked for the selected dates"}
	}

	var location *models.DeliveryLocation
	if id := utils.TrimOrEmpty(in.DeliveryLocationID); id != "" {
		loc, err := s.Locations.GetActive(ctx, id)
		if domain.IsNotFound(err) {
			return p, domain.ValidationError{Field: "deliveryLocationId", Msg: "delivery location is not available"}
		}
		if err != nil {
			return p, domain.InternalError{Msg: "delivery location lookup failed", Err: err}
		}
		location = &loc
	}

	var deliveryFee int64
	if location != nil {
		deliveryFee = location.Fee
	}
	pricing, err := s.Pricing.Quote(ctx, vehicleID, pickup, ret, in.IsStudent, deliveryFee, len(additional))
	if err != nil {
		return p, err
	}

	p.booking = models.Booking{
		ID:                    bookingID,
		UserID:                rc.UserID,
		VehicleID:             vehicleID,
		PickupDate:            pickup,
		ReturnDate:            ret,
		Pricing:               pricing,
		IsStudent:             in.IsStudent,
		AdditionalDriverCount: len(additional),
		Status:                models.BookingPending,
		PaymentStatus:         models.PaymentPending,
	}
	if location != nil {
		p.booking.DeliveryLocationID = location.ID
	}
	p.primary = primary
	p.additional = additional
	p.location = location
	p.email = utils.FirstNonEmpty(rc.Email, primary.Email)
	return p, nil
}

func bookingLineItems(b models.Booking, loc *models.DeliveryLocation) []LineItem {
	p := b.Pricing
	items := []LineItem{{
		Name:   fmt.Sprintf("Vehicle rental (%s, %d days)", p.RentalType, p.RentalDays),
		Amount: p.RentalAmount,
	}}
	if p.SecurityDeposit > 0 {
		items = append(items, LineItem{Name: "Refundable security deposit", Amount: p.SecurityDeposit})
	}
	if p.AdditionalDriverFee > 0 {
		items = append(items, LineItem{
			Name:   fmt.Sprintf("Additional drivers (%d)", b.AdditionalDriverCount),
			Amount: p.AdditionalDriverFee,
		})
	}
	if p.DeliveryFee > 0 && loc != nil {
		items = append(items, LineItem{Name: "Delivery: " + loc.Name, Amount: p.DeliveryFee})
	}
	return items
}

func bookingMetadata(b models.Booking) map[string]string {
	p := b.Pricing
	return map[string]string{
		MetaCheckoutType:        CheckoutTypeBooking,
		MetaBookingID:           b.ID,
		MetaUserID:              b.UserID,
		MetaVehicleID:           b.VehicleID,
		"rental_type":           string(p.RentalType),
		"rental_days":           strconv.Itoa(p.RentalDays),
		"pickup_date":           utils.FormatDate(b.PickupDate),
		"return_date":           utils.FormatDate(b.ReturnDate),
		"rental_amount":         strconv.FormatInt(p.RentalAmount, 10),
		"security_deposit":      strconv.FormatInt(p.SecurityDeposit, 10),
		"additional_driver_fee": strconv.FormatInt(p.AdditionalDriverFee, 10),
		"delivery_fee":          strconv.FormatInt(p.DeliveryFee, 10),
		"total_price":           strconv.FormatInt(p.TotalPrice, 10),
	}
}
