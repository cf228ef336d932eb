package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	intconfig "rental-backend/internal/config"
	intdb "rental-backend/internal/db"
	"rental-backend/internal/domain"
	"rental-backend/internal/domain/models"
)

type DriverRepository struct {
	DB *sql.DB
	tx *sql.Tx
}

func (r DriverRepository) db() intdb.Conn {
	if r.tx != nil {
		return r.tx
	}
	return r.conn()
}

func (r DriverRepository) conn() *sql.DB {
	if r.DB != nil {
		return r.DB
	}
	return intconfig.DB
}

// WithTx returns a copy of the repository bound to tx.
func (r DriverRepository) WithTx(tx *sql.Tx) DriverRepository {
	r.tx = tx
	return r
}

func driverTable(kind models.DriverKind) (string, error) {
	switch kind {
	case models.PrimaryDriver:
		return "primary_drivers", nil
	case models.AdditionalDriver:
		return "additional_drivers", nil
	default:
		return "", fmt.Errorf("unknown driver kind %q", kind)
	}
}

func (r DriverRepository) Insert(ctx context.Context, d models.Driver) error {
	table, err := driverTable(d.Kind)
	if err != nil {
		return err
	}
	var expiry any
	if !d.LicenseExpiry.IsZero() {
		expiry = d.LicenseExpiry
	}
	_, err = r.db().ExecContext(ctx, `
		INSERT INTO `+table+` (
			id, booking_id, first_name, last_name, email, phone, date_of_birth,
			license_number, license_state, license_expiry, verification_status, is_verified
		) VALUES (?,?,?,?,?,?,?,?,?,?,?,0)`,
		d.ID, d.BookingID, d.FirstName, d.LastName, d.Email, d.Phone, d.DateOfBirth,
		d.LicenseNumber, d.LicenseState, expiry, string(models.VerificationUnverified))
	return err
}

func (r DriverRepository) Delete(ctx context.Context, kind models.DriverKind, id string) error {
	table, err := driverTable(kind)
	if err != nil {
		return err
	}
	_, err = r.db().ExecContext(ctx, `DELETE FROM `+table+` WHERE id=?`, id)
	return err
}

// GetForBooking loads a driver scoped to its booking.
func (r DriverRepository) GetForBooking(ctx context.Context, kind models.DriverKind, id, bookingID string) (models.Driver, error) {
	table, err := driverTable(kind)
	if err != nil {
		return models.Driver{}, domain.ValidationError{Field: "kind", Msg: err.Error()}
	}
	var (
		d      models.Driver
		status string
		expiry sql.NullTime
	)
	err = r.db().QueryRowContext(ctx, `
		SELECT id, booking_id, first_name, last_name, email, phone, date_of_birth,
		       license_number, license_state, license_expiry, verification_status, is_verified
		FROM `+table+` WHERE id=? AND booking_id=? LIMIT 1`, id, bookingID).
		Scan(&d.ID, &d.BookingID, &d.FirstName, &d.LastName, &d.Email, &d.Phone, &d.DateOfBirth,
			&d.LicenseNumber, &d.LicenseState, &expiry, &status, &d.IsVerified)
	if errors.Is(err, sql.ErrNoRows) {
		return d, domain.NotFoundError{Resource: "driver", Err: err}
	}
	if err != nil {
		return d, err
	}
	d.Kind = kind
	d.VerificationStatus = models.VerificationStatus(status)
	if expiry.Valid {
		d.LicenseExpiry = expiry.Time
	}
	return d, nil
}

// PrimaryContact returns name and email of the booking's primary driver.
func (r DriverRepository) PrimaryContact(ctx context.Context, bookingID string) (string, string, error) {
	var first, last, email string
	err := r.db().QueryRowContext(ctx,
		`SELECT first_name, last_name, email FROM primary_drivers WHERE booking_id=? LIMIT 1`, bookingID).
		Scan(&first, &last, &email)
	if err != nil {
		return "", "", err
	}
	return models.Driver{FirstName: first, LastName: last}.FullName(), email, nil
}

// SetVerificationStatus updates the driver's verification state.
func (r DriverRepository) SetVerificationStatus(ctx context.Context, kind models.DriverKind, id string, status models.VerificationStatus) error {
	table, err := driverTable(kind)
	if err != nil {
		return err
	}
	verified := status == models.VerificationVerified
	_, err = r.db().ExecContext(ctx,
		`UPDATE `+table+` SET verification_status=?, is_verified=? WHERE id=?`, string(status), verified, id)
	return err
}

// RecordFailure marks a failed attempt and bumps the matching retry counter.
func (r DriverRepository) RecordFailure(ctx context.Context, kind models.DriverKind, id string, category models.FailureCategory) error {
	table, err := driverTable(kind)
	if err != nil {
		return err
	}
	counter := "technical_retry_count"
	if category == models.FailureDocument {
		counter = "document_retry_count"
	}
	_, err = r.db().ExecContext(ctx,
		`UPDATE `+table+` SET verification_status='failed', is_verified=0, `+counter+`=`+counter+`+1 WHERE id=?`, id)
	return err
}
