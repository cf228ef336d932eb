package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	intconfig "rental-backend/internal/config"
	intdb "rental-backend/internal/db"
	"rental-backend/internal/domain"
	"rental-backend/internal/domain/models"
	"rental-backend/internal/identity"
)

const (
	DriverVerificationsTable  = "driver_verifications"
	PendingVerificationsTable = "pending_verifications"
)

// VerificationRepository works on either verification table; both share the
// session, match and failure columns.
type VerificationRepository struct {
	DB    *sql.DB
	Table string
	tx    *sql.Tx
}

func (r VerificationRepository) db() intdb.Conn {
	if r.tx != nil {
		return r.tx
	}
	return r.conn()
}

func (r VerificationRepository) conn() *sql.DB {
	if r.DB != nil {
		return r.DB
	}
	return intconfig.DB
}

// InTx runs fn in one transaction on the repository's database.
func (r VerificationRepository) InTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	return intdb.InTx(ctx, r.conn(), fn)
}

func (r VerificationRepository) WithTx(tx *sql.Tx) VerificationRepository {
	r.tx = tx
	return r
}

func (r VerificationRepository) table() string {
	if r.Table == PendingVerificationsTable {
		return PendingVerificationsTable
	}
	return DriverVerificationsTable
}

func (r VerificationRepository) isDriverTable() bool {
	return r.table() == DriverVerificationsTable
}

func (r VerificationRepository) Insert(ctx context.Context, v models.Verification) error {
	if r.isDriverTable() {
		_, err := r.db().ExecContext(ctx, `
			INSERT INTO driver_verifications (
				id, session_id, booking_id, driver_id, driver_kind, status,
				provided_name, provided_dob, provided_license
			) VALUES (?,?,?,?,?,?,?,?,?)`,
			v.ID, v.SessionID, v.BookingID, v.DriverID, string(v.DriverKind), string(models.VerificationPending),
			v.Provided.Name, v.Provided.DateOfBirth, v.Provided.LicenseNumber)
		return err
	}
	_, err := r.db().ExecContext(ctx, `
		INSERT INTO pending_verifications (
			id, session_id, worker_id, status, provided_name, provided_dob, provided_license
		) VALUES (?,?,?,?,?,?,?)`,
		v.ID, v.SessionID, v.WorkerID, string(models.VerificationPending),
		v.Provided.Name, v.Provided.DateOfBirth, v.Provided.LicenseNumber)
	return err
}

// GetBySession loads the verification opened for an external session.
func (r VerificationRepository) GetBySession(ctx context.Context, sessionID string) (models.Verification, error) {
	owner := "'' AS booking_id, '' AS driver_id, '' AS driver_kind, worker_id"
	source := models.SourcePOS
	if r.isDriverTable() {
		owner = "booking_id, driver_id, driver_kind, '' AS worker_id"
		source = models.SourceBooking
	}
	var (
		v            models.Verification
		kind, status string
	)
	err := r.db().QueryRowContext(ctx, `
		SELECT id, session_id, `+owner+`, status,
		       provided_name, provided_dob, provided_license,
		       document_retry_count, technical_retry_count
		FROM `+r.table()+` WHERE session_id=? LIMIT 1`, sessionID).
		Scan(&v.ID, &v.SessionID, &v.BookingID, &v.DriverID, &kind, &v.WorkerID, &status,
			&v.Provided.Name, &v.Provided.DateOfBirth, &v.Provided.LicenseNumber,
			&v.DocumentRetryCount, &v.TechnicalRetryCount)
	if errors.Is(err, sql.ErrNoRows) {
		return v, domain.NotFoundError{Resource: "verification", Err: err}
	}
	if err != nil {
		return v, err
	}
	v.Source = source
	v.DriverKind = models.DriverKind(kind)
	v.Status = models.VerificationStatus(status)
	return v, nil
}

// HasPendingForDriver reports an open verification for the driver.
func (r VerificationRepository) HasPendingForDriver(ctx context.Context, driverID string) (bool, error) {
	var n int
	err := r.db().QueryRowContext(ctx,
		`SELECT COUNT(*) FROM driver_verifications WHERE driver_id=? AND status='pending'`, driverID).Scan(&n)
	return n > 0, err
}

// MarkVerified stores verified attributes and match results. Only a pending
// row is updated, so a replay changes nothing.
func (r VerificationRepository) MarkVerified(ctx context.Context, sessionID string, verified identity.Attributes, res identity.Result, at time.Time) (bool, error) {
	list := res.Mismatches
	if list == nil {
		list = []identity.Mismatch{}
	}
	mismatches, err := json.Marshal(list)
	if err != nil {
		return false, err
	}
	out, err := r.db().ExecContext(ctx, `
		UPDATE `+r.table()+`
		SET status='verified',
		    verified_name=?, verified_dob=?, verified_license=?,
		    name_match=?, dob_match=?, license_number_match=?,
		    mismatches=?, verified_at=?
		WHERE session_id=? AND status='pending'`,
		verified.Name, verified.DateOfBirth, verified.LicenseNumber,
		res.NameMatch, res.DateOfBirthMatch, res.LicenseNumberMatch,
		string(mismatches), at, sessionID)
	if err != nil {
		return false, err
	}
	n, err := out.RowsAffected()
	return n > 0, err
}

// MarkFailed records a requires-input outcome and bumps the retry counter of
// its category.
func (r VerificationRepository) MarkFailed(ctx context.Context, sessionID, code string, category models.FailureCategory, reason string) (bool, error) {
	counter := "technical_retry_count"
	if category == models.FailureDocument {
		counter = "document_retry_count"
	}
	out, err := r.db().ExecContext(ctx, `
		UPDATE `+r.table()+`
		SET status='failed', failure_code=?, failure_category=?, failure_reason=?,
		    `+counter+`=`+counter+`+1
		WHERE session_id=? AND status='pending'`,
		code, string(category), reason, sessionID)
	if err != nil {
		return false, err
	}
	n, err := out.RowsAffected()
	return n > 0, err
}

func (r VerificationRepository) MarkCanceled(ctx context.Context, sessionID, reason string) (bool, error) {
	out, err := r.db().ExecContext(ctx, `
		UPDATE `+r.table()+`
		SET status='canceled', failure_reason=?
		WHERE session_id=? AND status='pending'`, reason, sessionID)
	if err != nil {
		return false, err
	}
	n, err := out.RowsAffected()
	return n > 0, err
}
