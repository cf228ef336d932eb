package db

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
)

func TestMigrateCreatesOnlyMissingTables(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	for i, tbl := range schema {
		q := mock.ExpectQuery("information_schema\\.tables").WithArgs(tbl.name)
		if i == 0 {
			q.WillReturnRows(sqlmock.NewRows([]string{"table_name"}).AddRow(tbl.name))
			continue
		}
		q.WillReturnRows(sqlmock.NewRows([]string{"table_name"}))
		mock.ExpectExec("CREATE TABLE IF NOT EXISTS " + tbl.name).
			WillReturnResult(sqlmock.NewResult(0, 0))
	}

	created, err := Migrate(context.Background(), db)
	if err != nil {
		t.Fatalf("migrate error: %v", err)
	}
	if len(created) != len(schema)-1 {
		t.Fatalf("expected %d created tables, got %v", len(schema)-1, created)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestIsDuplicateKey(t *testing.T) {
	if !IsDuplicateKey(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}) {
		t.Fatalf("expected 1062 to be a duplicate key error")
	}
	if IsDuplicateKey(&mysql.MySQLError{Number: 1213}) {
		t.Fatalf("deadlock is not a duplicate key error")
	}
	if IsDuplicateKey(errors.New("boom")) {
		t.Fatalf("plain error is not a duplicate key error")
	}
}
