package services

import (
	"context"
	"fmt"
	"strings"

	"rental-backend/internal/domain"
	"rental-backend/internal/domain/models"
	"rental-backend/internal/identity"
	"rental-backend/internal/repositories"
	"rental-backend/internal/utils"
)

type VerificationStart struct {
	VerificationID string `json:"verificationId"`
	SessionID      string `json:"sessionId"`
	URL            string `json:"url"`
}

type WalkInInput struct {
	Name          string `json:"name"`
	DateOfBirth   string `json:"dateOfBirth"`
	LicenseNumber string `json:"licenseNumber"`
}

// VerificationService opens identity document sessions for booking drivers
// and walk-in customers. Outcomes arrive through the webhook processor.
type VerificationService struct {
	Bookings      repositories.BookingRepository
	Drivers       repositories.DriverRepository
	Verifications repositories.VerificationRepository
	Gateway       IdentityGateway
	Settings      Settings
}

func (s VerificationService) StartForDriver(ctx context.Context, rc domain.RequestContext, bookingID string, kind models.DriverKind, driverID string) (VerificationStart, error) {
	if !kind.Valid() {
		return VerificationStart{}, domain.ValidationError{Field: "kind", Msg: "must be primary or additional"}
	}
	if _, err := s.Bookings.GetForUser(ctx, bookingID, rc.UserID); err != nil {
		return VerificationStart{}, err
	}
	driver, err := s.Drivers.GetForBooking(ctx, kind, driverID, bookingID)
	if err != nil {
		return VerificationStart{}, err
	}
	if driver.IsVerified {
		return VerificationStart{}, domain.ConflictError{Resource: "driver", Msg: "driver is already verified"}
	}
	repo := s.Verifications
	repo.Table = repositories.DriverVerificationsTable
	pending, err := repo.HasPendingForDriver(ctx, driver.ID)
	if err != nil {
		return VerificationStart{}, domain.InternalError{Msg: "verification lookup failed", Err: err}
	}
	if pending {
		return VerificationStart{}, domain.ConflictError{Resource: "verification", Msg: "a verification is already in progress"}
	}

	v := models.Verification{
		ID:         newID(),
		Source:     models.SourceBooking,
		BookingID:  bookingID,
		DriverID:   driver.ID,
		DriverKind: kind,
		Provided: identity.Attributes{
			Name:          driver.FullName(),
			DateOfBirth:   utils.FormatDate(driver.DateOfBirth),
			LicenseNumber: driver.LicenseNumber,
		},
	}
	start, err := s.open(ctx, rc, repo, v, map[string]string{
		MetaBookingID: bookingID,
		"driver_id":   driver.ID,
		"driver_kind": string(kind),
	}, fmt.Sprintf("%s/bookings/%s/drivers", s.Settings.withDefaults().BaseURL, bookingID))
	if err != nil {
		return start, err
	}
	if err := s.Drivers.SetVerificationStatus(ctx, kind, driver.ID, models.VerificationPending); err != nil {
		utils.LogEvent(rc.RequestID, "verification", "driver_status", fmt.Sprintf("driver=%s err=%v", driver.ID, err))
	}
	return start, nil
}

// StartWalkIn verifies a customer at the counter without a booking.
func (s VerificationService) StartWalkIn(ctx context.Context, rc domain.RequestContext, in WalkInInput) (VerificationStart, error) {
	provided := identity.Attributes{
		Name:          utils.NormalizeSpace(in.Name),
		DateOfBirth:   strings.TrimSpace(in.DateOfBirth),
		LicenseNumber: strings.TrimSpace(in.LicenseNumber),
	}
	if provided.Name == "" {
		return VerificationStart{}, domain.ValidationError{Field: "name", Msg: "required"}
	}
	if _, err := utils.ParseDate(provided.DateOfBirth); err != nil {
		return VerificationStart{}, domain.ValidationError{Field: "dateOfBirth", Msg: "invalid date"}
	}
	if provided.LicenseNumber == "" {
		return VerificationStart{}, domain.ValidationError{Field: "licenseNumber", Msg: "required"}
	}
	repo := s.Verifications
	repo.Table = repositories.PendingVerificationsTable
	v := models.Verification{
		ID:       newID(),
		Source:   models.SourcePOS,
		WorkerID: rc.UserID,
		Provided: provided,
	}
	return s.open(ctx, rc, repo, v, map[string]string{
		MetaSource:  SourcePOS,
		"worker_id": rc.UserID,
	}, s.Settings.withDefaults().BaseURL+"/pos")
}

func (s VerificationService) open(ctx context.Context, rc domain.RequestContext, repo repositories.VerificationRepository, v models.Verification, meta map[string]string, returnURL string) (VerificationStart, error) {
	meta["verification_id"] = v.ID
	sess, err := s.Gateway.CreateVerificationSession(ctx, IdentitySessionRequest{Metadata: meta, ReturnURL: returnURL})
	if err != nil {
		return VerificationStart{}, err
	}
	v.SessionID = sess.ID
	if err := repo.Insert(ctx, v); err != nil {
		if cerr := s.Gateway.CancelVerificationSession(context.WithoutCancel(ctx), sess.ID); cerr != nil {
			utils.LogEvent(rc.RequestID, "verification", "rollback", fmt.Sprintf("session=%s cancel failed: %v", sess.ID, cerr))
		}
		return VerificationStart{}, domain.InternalError{Msg: "could not record verification", Err: err}
	}
	utils.LogEvent(rc.RequestID, "verification", "started", fmt.Sprintf("id=%s source=%s session=%s", v.ID, v.Source, sess.ID))
	return VerificationStart{VerificationID: v.ID, SessionID: sess.ID, URL: sess.URL}, nil
}

var documentFailureCodes = map[string]bool{
	"under_supported_age":   true,
	"country_not_supported": true,
	"consent_declined":      true,
}

// ClassifyIdentityFailure splits provider error codes into problems with the
// customer's document and everything else.
func ClassifyIdentityFailure(code string) models.FailureCategory {
	code = strings.ToLower(strings.TrimSpace(code))
	for _, prefix := range []string{"document_", "selfie_", "id_number_"} {
		if strings.HasPrefix(code, prefix) {
			return models.FailureDocument
		}
	}
	if documentFailureCodes[code] {
		return models.FailureDocument
	}
	return models.FailureTechnical
}
