package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	intconfig "rental-backend/internal/config"
	intdb "rental-backend/internal/db"
	"rental-backend/internal/domain"
	"rental-backend/internal/domain/models"
)

type BookingRepository struct {
	DB *sql.DB
}

func (r BookingRepository) db() *sql.DB {
	if r.DB != nil {
		return r.DB
	}
	return intconfig.DB
}

const bookingColumns = `id, user_id, vehicle_id, pickup_date, return_date,
	rental_type, rental_days, pricing_method, daily_rate, weekly_rate, monthly_rate,
	rental_amount, security_deposit, additional_driver_fee, delivery_fee, total_price,
	is_student, delivery_location_id, additional_driver_count,
	status, payment_status, extension_count, payment_session_id, payment_intent_id, paid_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(row rowScanner) (models.Booking, error) {
	var (
		b                             models.Booking
		rentalType, status, payStatus string
		deliveryID, sessionID, intent sql.NullString
		paidAt                        sql.NullTime
	)
	err := row.Scan(
		&b.ID, &b.UserID, &b.VehicleID, &b.PickupDate, &b.ReturnDate,
		&rentalType, &b.Pricing.RentalDays, &b.Pricing.PricingMethod,
		&b.Pricing.DailyRate, &b.Pricing.WeeklyRate, &b.Pricing.MonthlyRate,
		&b.Pricing.RentalAmount, &b.Pricing.SecurityDeposit, &b.Pricing.AdditionalDriverFee,
		&b.Pricing.DeliveryFee, &b.Pricing.TotalPrice,
		&b.IsStudent, &deliveryID, &b.AdditionalDriverCount,
		&status, &payStatus, &b.ExtensionCount, &sessionID, &intent, &paidAt,
	)
	if err != nil {
		return models.Booking{}, err
	}
	b.Pricing.RentalType = models.RentalType(rentalType)
	b.Status = models.BookingStatus(status)
	b.PaymentStatus = models.PaymentStatus(payStatus)
	b.DeliveryLocationID = deliveryID.String
	b.PaymentSessionID = sessionID.String
	b.PaymentIntentID = intent.String
	if paidAt.Valid {
		t := paidAt.Time
		b.PaidAt = &t
	}
	return b, nil
}

// Insert writes a new pending booking.
func (r BookingRepository) Insert(ctx context.Context, b models.Booking) error {
	p := b.Pricing
	_, err := r.db().ExecContext(ctx, `
		INSERT INTO bookings (
			id, user_id, vehicle_id, pickup_date, return_date,
			rental_type, rental_days, pricing_method, daily_rate, weekly_rate, monthly_rate,
			rental_amount, security_deposit, additional_driver_fee, delivery_fee, total_price,
			is_student, delivery_location_id, additional_driver_count,
			status, payment_status, extension_count
		) VALUES (?,?,?,?,?, ?,?,?,?,?,?, ?,?,?,?,?, ?,?,?, ?,?,0)`,
		b.ID, b.UserID, b.VehicleID, b.PickupDate, b.ReturnDate,
		string(p.RentalType), p.RentalDays, p.PricingMethod, p.DailyRate, p.WeeklyRate, p.MonthlyRate,
		p.RentalAmount, p.SecurityDeposit, p.AdditionalDriverFee, p.DeliveryFee, p.TotalPrice,
		b.IsStudent, intdb.NullIfEmpty(b.DeliveryLocationID), b.AdditionalDriverCount,
		string(b.Status), string(b.PaymentStatus),
	)
	return err
}

func (r BookingRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db().ExecContext(ctx, `DELETE FROM bookings WHERE id=?`, id)
	return err
}

// AttachSession stores the payment session reference on a pending booking.
func (r BookingRepository) AttachSession(ctx context.Context, id, sessionID string) error {
	res, err := r.db().ExecContext(ctx,
		`UPDATE bookings SET payment_session_id=? WHERE id=? AND payment_status='pending'`, sessionID, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("booking %s not pending", id)
	}
	return nil
}

func (r BookingRepository) GetByID(ctx context.Context, id string) (models.Booking, error) {
	row := r.db().QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id=? LIMIT 1`, id)
	b, err := scanBooking(row)
	if errors.Is(err, sql.ErrNoRows) {
		return b, domain.NotFoundError{Resource: "booking", Err: err}
	}
	return b, err
}

// GetForUser only returns the booking when it belongs to userID.
func (r BookingRepository) GetForUser(ctx context.Context, id, userID string) (models.Booking, error) {
	row := r.db().QueryRowContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE id=? AND user_id=? LIMIT 1`, id, userID)
	b, err := scanBooking(row)
	if errors.Is(err, sql.ErrNoRows) {
		return b, domain.NotFoundError{Resource: "booking", Err: err}
	}
	return b, err
}

// CountOverlapping counts bookings holding vehicleID for any night in
// [pickup, ret). excludeID skips the booking being extended.
func (r BookingRepository) CountOverlapping(ctx context.Context, vehicleID string, pickup, ret time.Time, excludeID string) (int, error) {
	statuses := make([]string, 0, len(models.BlockingStatuses))
	args := []any{vehicleID}
	for _, s := range models.BlockingStatuses {
		statuses = append(statuses, "?")
		args = append(args, string(s))
	}
	args = append(args, ret, pickup, excludeID)

	var n int
	err := r.db().QueryRowContext(ctx, `
		SELECT COUNT(*) FROM bookings
		WHERE vehicle_id=?
		  AND status IN (`+strings.Join(statuses, ",")+`)
		  AND pickup_date < ?
		  AND return_date > ?
		  AND id <> ?`, args...).Scan(&n)
	return n, err
}

// MarkPaid flips a pending booking to paid/confirmed. Returns false when the
// booking was already paid.
func (r BookingRepository) MarkPaid(ctx context.Context, id, paymentIntentID string, paidAt time.Time) (bool, error) {
	res, err := r.db().ExecContext(ctx, `
		UPDATE bookings
		SET payment_status='paid',
		    status=CASE WHEN status='pending' THEN 'confirmed' ELSE status END,
		    payment_intent_id=?, paid_at=?
		WHERE id=? AND payment_status<>'paid'`,
		intdb.NullIfEmpty(paymentIntentID), paidAt, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// MarkExpired closes an unpaid booking whose checkout session expired.
func (r BookingRepository) MarkExpired(ctx context.Context, id string) (bool, error) {
	res, err := r.db().ExecContext(ctx, `
		UPDATE bookings
		SET payment_status='expired',
		    status=CASE WHEN status='pending' THEN 'expired' ELSE status END
		WHERE id=? AND payment_status='pending'`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

type ExtensionUpdate struct {
	BookingID      string
	NewReturnDate  time.Time
	AdditionalDays int
	Amount         int64
}

// ApplyExtension moves the return date and adds the extension charge. The
// return-date guard makes a replayed extension a no-op.
func (r BookingRepository) ApplyExtension(ctx context.Context, u ExtensionUpdate) (bool, error) {
	res, err := r.db().ExecContext(ctx, `
		UPDATE bookings
		SET return_date=?,
		    rental_days=rental_days+?,
		    rental_amount=rental_amount+?,
		    total_price=total_price+?,
		    extension_count=extension_count+1
		WHERE id=? AND return_date < ?`,
		u.NewReturnDate, u.AdditionalDays, u.Amount, u.Amount, u.BookingID, u.NewReturnDate)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// ListForUser returns the caller's bookings, newest first.
func (r BookingRepository) ListForUser(ctx context.Context, userID string) ([]models.Booking, error) {
	rows, err := r.db().QueryContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE user_id=? ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Booking{}
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
