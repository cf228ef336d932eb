package services

import (
	"context"
	"errors"
	"testing"

	"rental-backend/internal/domain"
	"rental-backend/internal/domain/models"
	"rental-backend/internal/repositories"

	"github.com/DATA-DOG/go-sqlmock"
)

func newCheckoutService(t *testing.T) (CheckoutService, sqlmock.Sqlmock, *fakePayments, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	pay := &fakePayments{}
	svc := CheckoutService{
		Bookings:  repositories.BookingRepository{DB: db},
		Drivers:   repositories.DriverRepository{DB: db},
		Vehicles:  repositories.VehicleRepository{DB: db},
		Locations: repositories.DeliveryLocationRepository{DB: db},
		Pricing:   repositories.PricingRepository{DB: db},
		Payments:  pay,
		Settings:  DefaultSettings(),
		Now:       fixedNow("2025-05-01"),
	}
	return svc, mock, pay, func() { db.Close() }
}

func driverInput(first string) models.DriverInput {
	return models.DriverInput{
		FirstName:     first,
		LastName:      "Doe",
		Email:         first + "@example.com",
		DateOfBirth:   "1990-01-01",
		LicenseNumber: "D123-4567",
	}
}

func checkoutInput(pickup, ret string) CheckoutInput {
	return CheckoutInput{
		VehicleID:     "veh-1",
		PickupDate:    pickup,
		ReturnDate:    ret,
		PrimaryDriver: driverInput("jane"),
	}
}

var rc = domain.RequestContext{UserID: "user-1", RequestID: "req-1"}

func expectAvailable(mock sqlmock.Sqlmock, overlapping int) {
	mock.ExpectQuery("FROM vehicles WHERE id=\\?").WithArgs("veh-1").
		WillReturnRows(sqlmock.NewRows(vehicleCols).AddRow("veh-1", "Civic", "Honda", "Civic", 2022, 5000, "available"))
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM bookings").
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(overlapping))
}

func expectQuote(mock sqlmock.Sqlmock, rentalAmount, deposit, driverFee int64) {
	mock.ExpectQuery("CALL calculate_rental_price").
		WillReturnRows(sqlmock.NewRows(pricingCols).AddRow("weekly", 9, "daily", 5000, 30000, 100000, rentalAmount, deposit, driverFee))
}

func TestCheckoutRejectsOverlappingBooking(t *testing.T) {
	svc, mock, pay, done := newCheckoutService(t)
	defer done()

	// an existing booking 06-01 -> 06-10 blocks 06-05 -> 06-15
	expectAvailable(mock, 1)

	_, err := svc.Checkout(context.Background(), rc, checkoutInput("2025-06-05", "2025-06-15"))
	if !domain.IsConflict(err) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if len(pay.requests) != 0 {
		t.Fatalf("no payment session may be opened on conflict")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCheckoutUsesServerPriceOnly(t *testing.T) {
	svc, mock, pay, done := newCheckoutService(t)
	defer done()
	fc := &fakeCache{}
	svc.Cache = fc

	// 06-11 -> 06-20 does not touch a booking ending 06-10
	expectAvailable(mock, 0)
	expectQuote(mock, 45000, 20000, 0)
	mock.ExpectExec("INSERT INTO bookings").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO primary_drivers").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE bookings SET payment_session_id=\\? WHERE id=\\? AND payment_status='pending'").
		WithArgs("cs_test_1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	in := checkoutInput("2025-06-11", "2025-06-20")
	tampered := int64(1)
	in.Amount = &tampered

	res, err := svc.Checkout(context.Background(), rc, in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.TotalPrice != 65000 || res.Pricing.TotalPrice != res.Pricing.Total() {
		t.Fatalf("expected server total 65000, got %+v", res)
	}
	if res.URL == "" || res.SessionID != "cs_test_1" || res.BookingID == "" {
		t.Fatalf("incomplete result %+v", res)
	}

	req := pay.requests[0]
	if req.Metadata[MetaBookingID] != res.BookingID || req.Metadata["total_price"] != "65000" {
		t.Fatalf("metadata does not carry the booking: %v", req.Metadata)
	}
	if got := req.ExpiresAt.Sub(fixedNow("2025-05-01")()); got != DefaultSettings().SessionTTL {
		t.Fatalf("session must expire after 30m, got %v", got)
	}
	var sum int64
	for _, li := range req.LineItems {
		sum += li.Amount
	}
	if sum != 65000 {
		t.Fatalf("line items must add up to the total, got %d", sum)
	}
	if len(fc.keys) != 1 || fc.keys[0] != "bookings:user-1" ||
		len(fc.patterns) != 1 || fc.patterns[0] != "bookings:user-1:*" {
		t.Fatalf("only the caller's bookings cache may be dropped, got keys=%v patterns=%v", fc.keys, fc.patterns)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCheckoutCompensatesWhenAdditionalDriverFails(t *testing.T) {
	svc, mock, pay, done := newCheckoutService(t)
	defer done()

	expectAvailable(mock, 0)
	expectQuote(mock, 45000, 20000, 2500)
	mock.ExpectExec("INSERT INTO bookings").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO primary_drivers").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO additional_drivers").WillReturnError(errors.New("lock wait timeout"))
	mock.ExpectExec("DELETE FROM primary_drivers WHERE id=\\?").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM bookings WHERE id=\\?").WillReturnResult(sqlmock.NewResult(0, 1))

	in := checkoutInput("2025-06-11", "2025-06-20")
	in.AdditionalDrivers = []models.DriverInput{driverInput("john")}

	_, err := svc.Checkout(context.Background(), rc, in)
	if !domain.IsInternal(err) {
		t.Fatalf("expected generic internal failure, got %v", err)
	}
	if len(pay.requests) != 0 {
		t.Fatalf("payment session must not be opened after a failed write")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("compensation did not run in reverse order: %v", err)
	}
}

func TestCheckoutExpiresSessionWhenAttachFails(t *testing.T) {
	svc, mock, pay, done := newCheckoutService(t)
	defer done()

	expectAvailable(mock, 0)
	expectQuote(mock, 45000, 20000, 0)
	mock.ExpectExec("INSERT INTO bookings").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO primary_drivers").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE bookings SET payment_session_id").WillReturnError(errors.New("connection reset"))
	mock.ExpectExec("DELETE FROM primary_drivers").WillReturnError(errors.New("still down"))
	mock.ExpectExec("DELETE FROM bookings").WillReturnResult(sqlmock.NewResult(0, 1))

	_, err := svc.Checkout(context.Background(), rc, checkoutInput("2025-06-11", "2025-06-20"))
	if !domain.IsInternal(err) {
		t.Fatalf("expected internal failure, got %v", err)
	}
	if len(pay.expired) != 1 || pay.expired[0] != "cs_test_1" {
		t.Fatalf("payment session should be expired during rollback, got %v", pay.expired)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("rollback must continue past a failed step: %v", err)
	}
}

func TestCheckoutUndoesWritesWhenSessionCreationFails(t *testing.T) {
	svc, mock, pay, done := newCheckoutService(t)
	defer done()
	pay.createErr = errors.New("card_error: api unavailable")

	expectAvailable(mock, 0)
	expectQuote(mock, 45000, 20000, 5000)
	mock.ExpectExec("INSERT INTO bookings").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO primary_drivers").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO additional_drivers").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO additional_drivers").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM additional_drivers WHERE id=\\?").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM additional_drivers WHERE id=\\?").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM primary_drivers WHERE id=\\?").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM bookings WHERE id=\\?").WillReturnResult(sqlmock.NewResult(0, 1))

	in := checkoutInput("2025-06-11", "2025-06-20")
	in.AdditionalDrivers = []models.DriverInput{driverInput("john"), driverInput("jim")}

	_, err := svc.Checkout(context.Background(), rc, in)
	if !domain.IsInternal(err) {
		t.Fatalf("expected internal failure, got %v", err)
	}
	if len(pay.expired) != 0 {
		t.Fatalf("no session was opened, nothing to expire: %v", pay.expired)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("every written row must be deleted in reverse order: %v", err)
	}
}

func TestCheckoutDeletesBookingWhenPrimaryDriverFails(t *testing.T) {
	svc, mock, pay, done := newCheckoutService(t)
	defer done()

	expectAvailable(mock, 0)
	expectQuote(mock, 45000, 20000, 0)
	mock.ExpectExec("INSERT INTO bookings").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO primary_drivers").WillReturnError(errors.New("duplicate entry"))
	mock.ExpectExec("DELETE FROM bookings WHERE id=\\?").WillReturnResult(sqlmock.NewResult(0, 1))

	_, err := svc.Checkout(context.Background(), rc, checkoutInput("2025-06-11", "2025-06-20"))
	if !domain.IsInternal(err) {
		t.Fatalf("expected internal failure, got %v", err)
	}
	if len(pay.requests) != 0 || len(pay.expired) != 0 {
		t.Fatalf("payment gateway must not be touched, got requests=%d expired=%v", len(pay.requests), pay.expired)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCheckoutSendsDeliveryFeeToPricingEngine(t *testing.T) {
	svc, mock, pay, done := newCheckoutService(t)
	defer done()

	expectAvailable(mock, 0)
	mock.ExpectQuery("FROM delivery_locations WHERE id=\\? AND is_active=1").WithArgs("loc-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "fee", "is_active"}).AddRow("loc-1", "Campus", 1500, true))
	mock.ExpectQuery("CALL calculate_rental_price").
		WithArgs("veh-1", "2025-06-11", "2025-06-20", false, int64(1500), 0).
		WillReturnRows(sqlmock.NewRows(pricingCols).AddRow("weekly", 9, "daily", 5000, 30000, 100000, 45000, 20000, 0))
	mock.ExpectExec("INSERT INTO bookings").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO primary_drivers").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE bookings SET payment_session_id").WillReturnResult(sqlmock.NewResult(0, 1))

	in := checkoutInput("2025-06-11", "2025-06-20")
	in.DeliveryLocationID = "loc-1"

	res, err := svc.Checkout(context.Background(), rc, in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Pricing.DeliveryFee != 1500 || res.TotalPrice != 66500 {
		t.Fatalf("delivery fee missing from total: %+v", res.Pricing)
	}
	items := pay.requests[0].LineItems
	if last := items[len(items)-1]; last.Name != "Delivery: Campus" || last.Amount != 1500 {
		t.Fatalf("expected a delivery line item, got %+v", items)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCheckoutValidationHappensBeforeWrites(t *testing.T) {
	cases := map[string]CheckoutInput{
		"return before pickup": checkoutInput("2025-06-10", "2025-06-10"),
		"past pickup":          checkoutInput("2025-04-01", "2025-04-10"),
		"malformed date":       checkoutInput("06/10/2025", "2025-06-20"),
		"too many drivers": func() CheckoutInput {
			in := checkoutInput("2025-06-11", "2025-06-20")
			in.AdditionalDrivers = []models.DriverInput{driverInput("a"), driverInput("b"), driverInput("c"), driverInput("d")}
			return in
		}(),
	}
	for name, in := range cases {
		svc, mock, _, done := newCheckoutService(t)
		_, err := svc.Checkout(context.Background(), rc, in)
		if !domain.IsValidation(err) {
			t.Fatalf("%s: expected validation error, got %v", name, err)
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		done()
	}
}
