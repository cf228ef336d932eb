package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
)

func TestRecordTreatsDuplicateAsHandled(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	at := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectExec("INSERT INTO processed_webhook_events").
		WithArgs("evt_1", "checkout.session.completed", at).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO processed_webhook_events").
		WithArgs("evt_1", "checkout.session.completed", at).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'evt_1'"})

	repo := WebhookEventRepository{DB: db}
	first, err := repo.Record(context.Background(), "evt_1", "checkout.session.completed", at)
	if err != nil || !first {
		t.Fatalf("first record should insert, got %v %v", first, err)
	}
	second, err := repo.Record(context.Background(), "evt_1", "checkout.session.completed", at)
	if err != nil {
		t.Fatalf("duplicate must not be an error, got %v", err)
	}
	if second {
		t.Fatalf("duplicate must report already handled")
	}
}
