package services

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"rental-backend/internal/cache"
	"rental-backend/internal/domain"
	"rental-backend/internal/domain/models"
	"rental-backend/internal/identity"
	"rental-backend/internal/repositories"
	"rental-backend/internal/utils"
)

// Notification templates published by the processor.
const (
	TemplateBookingConfirmed = "booking_confirmed"
	TemplateBookingExtended  = "booking_extended"
)

// WebhookService reconciles gateway events into local state. Events are
// delivered at least once; the ledger and the conditional updates in every
// handler make replays harmless.
type WebhookService struct {
	Ledger        repositories.WebhookEventRepository
	Bookings      repositories.BookingRepository
	Vehicles      repositories.VehicleRepository
	Drivers       repositories.DriverRepository
	Verifications repositories.VerificationRepository
	Transactions  repositories.POSTransactionRepository
	Identity      IdentityGateway
	Terminal      TerminalGateway
	Notifier      Notifier
	Cache         CacheInvalidator
	Settings      Settings
	Now           func() time.Time
}

type WebhookOutcome struct {
	EventID   string    `json:"eventId"`
	Kind      EventKind `json:"-"`
	Duplicate bool      `json:"duplicate"`
}

// Process handles one verified event. A returned error means the event was
// not fully applied and the gateway should redeliver it.
func (s WebhookService) Process(ctx context.Context, requestID string, evt WebhookEvent) (WebhookOutcome, error) {
	out := WebhookOutcome{EventID: evt.ID, Kind: KindOf(evt.Type)}
	if evt.ID == "" {
		return out, domain.ValidationError{Field: "id", Msg: "event id is missing"}
	}

	seen, err := s.Ledger.Exists(ctx, evt.ID)
	if err != nil {
		return out, domain.InternalError{Msg: "webhook ledger unavailable", Err: err}
	}
	if seen {
		out.Duplicate = true
		utils.LogEvent(requestID, "webhook", "duplicate", fmt.Sprintf("event=%s type=%s", evt.ID, evt.Type))
		return out, nil
	}

	if err := s.dispatch(ctx, requestID, out.Kind, evt); err != nil {
		utils.LogEvent(requestID, "webhook", "failed", fmt.Sprintf("event=%s type=%s err=%v", evt.ID, evt.Type, err))
		return out, err
	}

	recorded, err := s.Ledger.Record(ctx, evt.ID, evt.Type, nowFunc(s.Now))
	if err != nil {
		return out, domain.InternalError{Msg: "webhook ledger write failed", Err: err}
	}
	if !recorded {
		out.Duplicate = true
		utils.LogEvent(requestID, "webhook", "duplicate", fmt.Sprintf("event=%s recorded concurrently", evt.ID))
		return out, nil
	}
	utils.LogEvent(requestID, "webhook", "processed", fmt.Sprintf("event=%s kind=%s", evt.ID, out.Kind))
	return out, nil
}

func (s WebhookService) dispatch(ctx context.Context, requestID string, kind EventKind, evt WebhookEvent) error {
	switch kind {
	case EventCheckoutCompleted:
		return s.checkoutCompleted(ctx, requestID, evt)
	case EventCheckoutExpired:
		return s.checkoutExpired(ctx, requestID, evt)
	case EventIdentityVerified:
		return s.identityVerified(ctx, requestID, evt)
	case EventIdentityRequiresInput:
		return s.identityRequiresInput(ctx, requestID, evt)
	case EventIdentityCanceled:
		return s.identityCanceled(ctx, requestID, evt)
	case EventPaymentSucceeded:
		return s.paymentSucceeded(ctx, requestID, evt)
	case EventPaymentFailed:
		return s.paymentFailed(ctx, requestID, evt)
	case EventUnknown:
		utils.LogEvent(requestID, "webhook", "ignored", fmt.Sprintf("event=%s type=%s", evt.ID, evt.Type))
		return nil
	default:
		return fmt.Errorf("unhandled event kind %d", kind)
	}
}

func (s WebhookService) checkoutCompleted(ctx context.Context, requestID string, evt WebhookEvent) error {
	var obj checkoutSessionObject
	if err := decodeObject(evt.Object, &obj); err != nil {
		return domain.ValidationError{Field: "data.object", Msg: "unreadable checkout session", Err: err}
	}
	if obj.PaymentStatus != "" && obj.PaymentStatus != "paid" && obj.PaymentStatus != "no_payment_required" {
		utils.LogEvent(requestID, "webhook", "checkout_unpaid",
			fmt.Sprintf("session=%s payment_status=%s", obj.ID, obj.PaymentStatus))
		return nil
	}
	if obj.Metadata[MetaCheckoutType] == CheckoutTypeExtension {
		return s.applyExtension(ctx, requestID, obj)
	}
	return s.confirmBooking(ctx, requestID, obj)
}

func (s WebhookService) confirmBooking(ctx context.Context, requestID string, obj checkoutSessionObject) error {
	id := obj.bookingID()
	b, err := s.Bookings.GetByID(ctx, id)
	if domain.IsNotFound(err) {
		utils.LogEvent(requestID, "webhook", "booking_missing", fmt.Sprintf("session=%s booking=%s", obj.ID, id))
		return nil
	}
	if err != nil {
		return err
	}

	changed, err := s.Bookings.MarkPaid(ctx, b.ID, obj.PaymentIntent, nowFunc(s.Now))
	if err != nil {
		return err
	}
	if _, err := s.Vehicles.MarkReserved(ctx, b.VehicleID); err != nil {
		return err
	}
	invalidate(ctx, s.Cache, requestID,
		[]string{cache.VehicleKey(b.VehicleID), cache.UserBookingsKey(b.UserID)},
		cache.PrefixVehicles+"*", cache.UserBookingsPattern(b.UserID))

	if !changed {
		utils.LogEvent(requestID, "webhook", "booking_already_paid", "booking="+b.ID)
		return nil
	}
	utils.LogEvent(requestID, "webhook", "booking_confirmed", fmt.Sprintf("booking=%s intent=%s", b.ID, obj.PaymentIntent))

	name, email, err := s.Drivers.PrimaryContact(ctx, b.ID)
	if err != nil {
		utils.LogEvent(requestID, "webhook", "contact_missing", fmt.Sprintf("booking=%s err=%v", b.ID, err))
		return nil
	}
	notify(ctx, s.Notifier, requestID, TemplateBookingConfirmed, email, map[string]any{
		"bookingId":  b.ID,
		"name":       name,
		"vehicleId":  b.VehicleID,
		"pickupDate": utils.FormatDate(b.PickupDate),
		"returnDate": utils.FormatDate(b.ReturnDate),
		"total":      utils.FormatCents(b.Pricing.TotalPrice, s.Settings.withDefaults().Currency),
	})
	return nil
}

func (s WebhookService) applyExtension(ctx context.Context, requestID string, obj checkoutSessionObject) error {
	id := obj.bookingID()
	newReturn, errDate := utils.ParseDate(obj.Metadata[MetaNewReturnDate])
	days, errDays := strconv.Atoi(obj.Metadata[MetaAdditionalDays])
	amount, errAmount := strconv.ParseInt(obj.Metadata[MetaAmount], 10, 64)
	if id == "" || errDate != nil || errDays != nil || errAmount != nil {
		utils.LogEvent(requestID, "webhook", "extension_malformed", "session="+obj.ID)
		return nil
	}

	changed, err := s.Bookings.ApplyExtension(ctx, repositories.ExtensionUpdate{
		BookingID:      id,
		NewReturnDate:  newReturn,
		AdditionalDays: days,
		Amount:         amount,
	})
	if err != nil {
		return err
	}
	invalidateUserBookings(ctx, s.Cache, requestID, obj.Metadata[MetaUserID])
	if !changed {
		utils.LogEvent(requestID, "webhook", "extension_already_applied", "booking="+id)
		return nil
	}
	utils.LogEvent(requestID, "webhook", "booking_extended",
		fmt.Sprintf("booking=%s return=%s days=%d amount=%d", id, utils.FormatDate(newReturn), days, amount))

	name, email, err := s.Drivers.PrimaryContact(ctx, id)
	if err != nil {
		utils.LogEvent(requestID, "webhook", "contact_missing", fmt.Sprintf("booking=%s err=%v", id, err))
		return nil
	}
	notify(ctx, s.Notifier, requestID, TemplateBookingExtended, email, map[string]any{
		"bookingId":      id,
		"name":           name,
		"newReturnDate":  utils.FormatDate(newReturn),
		"additionalDays": days,
		"amount":         utils.FormatCents(amount, s.Settings.withDefaults().Currency),
	})
	return nil
}

func (s WebhookService) checkoutExpired(ctx context.Context, requestID string, evt WebhookEvent) error {
	var obj checkoutSessionObject
	if err := decodeObject(evt.Object, &obj); err != nil {
		return domain.ValidationError{Field: "data.object", Msg: "unreadable checkout session", Err: err}
	}
	if obj.Metadata[MetaCheckoutType] == CheckoutTypeExtension {
		utils.LogEvent(requestID, "webhook", "extension_expired", "session="+obj.ID)
		return nil
	}
	id := obj.bookingID()
	changed, err := s.Bookings.MarkExpired(ctx, id)
	if err != nil {
		return err
	}
	if changed {
		invalidateUserBookings(ctx, s.Cache, requestID, obj.Metadata[MetaUserID])
		utils.LogEvent(requestID, "webhook", "booking_expired", "booking="+id)
	}
	return nil
}

// verificationFor loads the verification behind an identity event, picking
// the POS table when the session was opened at the counter.
func (s WebhookService) verificationFor(ctx context.Context, requestID string, evt WebhookEvent) (verificationSessionObject, repositories.VerificationRepository, *models.Verification, error) {
	var obj verificationSessionObject
	if err := decodeObject(evt.Object, &obj); err != nil {
		return obj, s.Verifications, nil, domain.ValidationError{Field: "data.object", Msg: "unreadable verification session", Err: err}
	}
	repo := s.Verifications
	repo.Table = repositories.DriverVerificationsTable
	if obj.Metadata[MetaSource] == SourcePOS {
		repo.Table = repositories.PendingVerificationsTable
	}
	v, err := repo.GetBySession(ctx, obj.ID)
	if domain.IsNotFound(err) {
		utils.LogEvent(requestID, "webhook", "verification_missing", fmt.Sprintf("session=%s table=%s", obj.ID, repo.Table))
		return obj, repo, nil, nil
	}
	if err != nil {
		return obj, repo, nil, err
	}
	return obj, repo, &v, nil
}

// settleVerification moves a pending verification to its terminal status and
// mirrors it onto the driver row in the same transaction. The driver is left
// alone when the verification was no longer pending, and a failed driver write
// rolls the verification back so a redelivery can apply both.
func (s WebhookService) settleVerification(
	ctx context.Context,
	repo repositories.VerificationRepository,
	v *models.Verification,
	status models.VerificationStatus,
	mark func(repositories.VerificationRepository) (bool, error),
	mirror func(repositories.DriverRepository) error,
) (bool, error) {
	var changed bool
	err := repo.InTx(ctx, func(tx *sql.Tx) error {
		var err error
		changed, err = mark(repo.WithTx(tx))
		if err != nil {
			return err
		}
		if !changed || v.Source != models.SourceBooking {
			return nil
		}
		if err := mirror(s.Drivers.WithTx(tx)); err != nil {
			return fmt.Errorf("driver %s %s: %w", v.DriverID, status, err)
		}
		return nil
	})
	return changed, err
}

func (s WebhookService) identityVerified(ctx context.Context, requestID string, evt WebhookEvent) error {
	obj, repo, v, err := s.verificationFor(ctx, requestID, evt)
	if err != nil || v == nil {
		return err
	}

	verified := obj.attributes()
	if !complete(verified) && s.Identity != nil {
		sess, err := s.Identity.RetrieveVerificationSession(ctx, obj.ID)
		if err != nil {
			return domain.ExternalError{Service: "identity", Code: "retrieve_failed", Msg: "could not load verified outputs", Err: err}
		}
		verified = mergeAttributes(verified, sess.Verified)
	}

	res := identity.Match(v.Provided, verified)
	changed, err := s.settleVerification(ctx, repo, v, models.VerificationVerified,
		func(r repositories.VerificationRepository) (bool, error) {
			return r.MarkVerified(ctx, obj.ID, verified, res, nowFunc(s.Now))
		},
		func(d repositories.DriverRepository) error {
			return d.SetVerificationStatus(ctx, v.DriverKind, v.DriverID, models.VerificationVerified)
		})
	if err != nil {
		return err
	}
	if changed {
		utils.LogEvent(requestID, "webhook", "identity_verified",
			fmt.Sprintf("session=%s source=%s mismatches=%d", obj.ID, v.Source, len(res.Mismatches)))
	}
	return nil
}

func (s WebhookService) identityRequiresInput(ctx context.Context, requestID string, evt WebhookEvent) error {
	obj, repo, v, err := s.verificationFor(ctx, requestID, evt)
	if err != nil || v == nil {
		return err
	}
	var code, reason string
	if obj.LastError != nil {
		code, reason = obj.LastError.Code, obj.LastError.Reason
	}
	category := ClassifyIdentityFailure(code)

	changed, err := s.settleVerification(ctx, repo, v, models.VerificationFailed,
		func(r repositories.VerificationRepository) (bool, error) {
			return r.MarkFailed(ctx, obj.ID, code, category, reason)
		},
		func(d repositories.DriverRepository) error {
			return d.RecordFailure(ctx, v.DriverKind, v.DriverID, category)
		})
	if err != nil || !changed {
		return err
	}
	utils.LogEvent(requestID, "webhook", "identity_failed",
		fmt.Sprintf("session=%s code=%s category=%s", obj.ID, code, category))
	return nil
}

func (s WebhookService) identityCanceled(ctx context.Context, requestID string, evt WebhookEvent) error {
	obj, repo, v, err := s.verificationFor(ctx, requestID, evt)
	if err != nil || v == nil {
		return err
	}
	changed, err := s.settleVerification(ctx, repo, v, models.VerificationCanceled,
		func(r repositories.VerificationRepository) (bool, error) {
			return r.MarkCanceled(ctx, obj.ID, models.CanceledReason)
		},
		func(d repositories.DriverRepository) error {
			return d.SetVerificationStatus(ctx, v.DriverKind, v.DriverID, models.VerificationCanceled)
		})
	if err != nil {
		return err
	}
	if changed {
		utils.LogEvent(requestID, "webhook", "identity_canceled", "session="+obj.ID)
	}
	return nil
}

func (s WebhookService) paymentSucceeded(ctx context.Context, requestID string, evt WebhookEvent) error {
	var obj paymentIntentObject
	if err := decodeObject(evt.Object, &obj); err != nil {
		return domain.ValidationError{Field: "data.object", Msg: "unreadable payment intent", Err: err}
	}
	if obj.Metadata[MetaSource] != SourcePOS {
		return nil
	}
	var card repositories.CardResult
	if s.Terminal != nil {
		intent, err := s.Terminal.GetIntent(ctx, obj.ID)
		if err != nil {
			utils.LogEvent(requestID, "webhook", "card_details_unavailable", fmt.Sprintf("intent=%s err=%v", obj.ID, err))
		} else {
			card = repositories.CardResult{Brand: intent.CardBrand, Last4: intent.CardLast4, ReceiptURL: intent.ReceiptURL}
		}
	}
	changed, err := s.Transactions.MarkSucceededByIntent(ctx, obj.ID, card, nowFunc(s.Now))
	if err != nil {
		return err
	}
	if changed {
		utils.LogEvent(requestID, "webhook", "pos_succeeded", "intent="+obj.ID)
	}
	return nil
}

func (s WebhookService) paymentFailed(ctx context.Context, requestID string, evt WebhookEvent) error {
	var obj paymentIntentObject
	if err := decodeObject(evt.Object, &obj); err != nil {
		return domain.ValidationError{Field: "data.object", Msg: "unreadable payment intent", Err: err}
	}
	if obj.Metadata[MetaSource] != SourcePOS {
		return nil
	}
	changed, err := s.Transactions.MarkFailedByIntent(ctx, obj.ID, obj.failureReason(), nowFunc(s.Now))
	if err != nil {
		return err
	}
	if changed {
		utils.LogEvent(requestID, "webhook", "pos_failed", "intent="+obj.ID)
	}
	return nil
}

func complete(a identity.Attributes) bool {
	return a.Name != "" && a.DateOfBirth != "" && a.LicenseNumber != ""
}

func mergeAttributes(primary, fallback identity.Attributes) identity.Attributes {
	return identity.Attributes{
		Name:          utils.FirstNonEmpty(primary.Name, fallback.Name),
		DateOfBirth:   utils.FirstNonEmpty(primary.DateOfBirth, fallback.DateOfBirth),
		LicenseNumber: utils.FirstNonEmpty(primary.LicenseNumber, fallback.LicenseNumber),
	}
}
