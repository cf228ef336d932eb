package repositories

import (
	"context"
	"testing"
	"time"

	"rental-backend/internal/domain/models"
	"rental-backend/internal/identity"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestMarkFailedBumpsCategoryCounter(t *testing.T) {
	cases := []struct {
		category models.FailureCategory
		counter  string
		table    string
	}{
		{models.FailureDocument, "document_retry_count=document_retry_count\\+1", DriverVerificationsTable},
		{models.FailureTechnical, "technical_retry_count=technical_retry_count\\+1", PendingVerificationsTable},
	}
	for _, tc := range cases {
		db, mock, err := sqlmock.New()
		if err != nil {
			t.Fatalf("sqlmock init error: %v", err)
		}
		mock.ExpectExec("UPDATE " + tc.table + " SET status='failed'.*" + tc.counter + " WHERE session_id=\\? AND status='pending'").
			WithArgs("code", string(tc.category), "reason", "vs_1").
			WillReturnResult(sqlmock.NewResult(0, 1))

		repo := VerificationRepository{DB: db, Table: tc.table}
		changed, err := repo.MarkFailed(context.Background(), "vs_1", "code", tc.category, "reason")
		if err != nil || !changed {
			t.Fatalf("%s: expected update, got %v %v", tc.category, changed, err)
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Fatalf("%s: unmet expectations: %v", tc.category, err)
		}
		db.Close()
	}
}

func TestMarkVerifiedStoresMismatches(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	verified := identity.Attributes{Name: "Jane Doe", DateOfBirth: "1990-01-01", LicenseNumber: "D1234567"}
	res := identity.Match(identity.Attributes{Name: "Jane Doe", DateOfBirth: "1990-01-02", LicenseNumber: "D1234567"}, verified)

	mock.ExpectExec("UPDATE driver_verifications SET status='verified'").
		WithArgs("Jane Doe", "1990-01-01", "D1234567", true, false, true,
			`[{"field":"date_of_birth","provided":"1990-01-02","verified":"1990-01-01"}]`, at, "vs_2").
		WillReturnResult(sqlmock.NewResult(0, 1))

	changed, err := VerificationRepository{DB: db}.MarkVerified(context.Background(), "vs_2", verified, res, at)
	if err != nil || !changed {
		t.Fatalf("expected update, got %v %v", changed, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
