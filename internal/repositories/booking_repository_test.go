package repositories

import (
	"context"
	"testing"
	"time"

	"rental-backend/internal/domain"

	"github.com/DATA-DOG/go-sqlmock"
)

func day(s string) time.Time {
	t, _ := time.Parse("2006-01-02", s)
	return t
}

func TestCountOverlappingUsesHalfOpenWindow(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	pickup, ret := day("2025-06-05"), day("2025-06-15")
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM bookings WHERE vehicle_id=\\? AND status IN \\(\\?,\\?,\\?\\) AND pickup_date < \\? AND return_date > \\? AND id <> \\?").
		WithArgs("veh-1", "pending", "confirmed", "active", ret, pickup, "").
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(1))

	n, err := BookingRepository{DB: db}.CountOverlapping(context.Background(), "veh-1", pickup, ret, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 overlapping booking, got %d", n)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestGetForUserNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("FROM bookings WHERE id=\\? AND user_id=\\?").
		WithArgs("b-1", "someone-else").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err = BookingRepository{DB: db}.GetForUser(context.Background(), "b-1", "someone-else")
	if !domain.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestMarkPaidReportsReplay(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	paidAt := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	mock.ExpectExec("UPDATE bookings SET payment_status='paid'.*WHERE id=\\? AND payment_status<>'paid'").
		WithArgs("pi_1", paidAt, "b-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE bookings SET payment_status='paid'").
		WithArgs("pi_1", paidAt, "b-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := BookingRepository{DB: db}
	changed, err := repo.MarkPaid(context.Background(), "b-1", "pi_1", paidAt)
	if err != nil || !changed {
		t.Fatalf("first delivery should update, changed=%v err=%v", changed, err)
	}
	changed, err = repo.MarkPaid(context.Background(), "b-1", "pi_1", paidAt)
	if err != nil || changed {
		t.Fatalf("replay should not update, changed=%v err=%v", changed, err)
	}
}

func TestApplyExtensionGuardedByReturnDate(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	newReturn := day("2025-07-15")
	mock.ExpectExec("extension_count=extension_count\\+1 WHERE id=\\? AND return_date < \\?").
		WithArgs(newReturn, 5, int64(25000), int64(25000), "b-1", newReturn).
		WillReturnResult(sqlmock.NewResult(0, 0))

	changed, err := BookingRepository{DB: db}.ApplyExtension(context.Background(), ExtensionUpdate{
		BookingID:      "b-1",
		NewReturnDate:  newReturn,
		AdditionalDays: 5,
		Amount:         25000,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if changed {
		t.Fatalf("extension already applied must be a no-op")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
