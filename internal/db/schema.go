package db

import (
	"context"
	"database/sql"
	"fmt"
	"log"
)

type tableDDL struct {
	name string
	ddl  string
}

var schema = []tableDDL{
	{"vehicles", `
CREATE TABLE IF NOT EXISTS vehicles (
	id CHAR(36) PRIMARY KEY,
	name VARCHAR(255) NOT NULL,
	make VARCHAR(100) NOT NULL DEFAULT '',
	model VARCHAR(100) NOT NULL DEFAULT '',
	year INT NOT NULL DEFAULT 0,
	daily_rate BIGINT NOT NULL DEFAULT 0,
	status VARCHAR(20) NOT NULL DEFAULT 'available',
	updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
	KEY idx_status (status)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`},
	{"delivery_locations", `
CREATE TABLE IF NOT EXISTS delivery_locations (
	id CHAR(36) PRIMARY KEY,
	name VARCHAR(255) NOT NULL,
	fee BIGINT NOT NULL DEFAULT 0,
	is_active TINYINT(1) NOT NULL DEFAULT 1
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`},
	{"bookings", `
CREATE TABLE IF NOT EXISTS bookings (
	id CHAR(36) PRIMARY KEY,
	user_id VARCHAR(64) NOT NULL,
	vehicle_id CHAR(36) NOT NULL,
	pickup_date DATE NOT NULL,
	return_date DATE NOT NULL,
	rental_type VARCHAR(20) NOT NULL,
	rental_days INT NOT NULL,
	pricing_method VARCHAR(50) NOT NULL DEFAULT '',
	daily_rate BIGINT NOT NULL DEFAULT 0,
	weekly_rate BIGINT NOT NULL DEFAULT 0,
	monthly_rate BIGINT NOT NULL DEFAULT 0,
	rental_amount BIGINT NOT NULL,
	security_deposit BIGINT NOT NULL DEFAULT 0,
	additional_driver_fee BIGINT NOT NULL DEFAULT 0,
	delivery_fee BIGINT NOT NULL DEFAULT 0,
	total_price BIGINT NOT NULL,
	is_student TINYINT(1) NOT NULL DEFAULT 0,
	delivery_location_id CHAR(36) NULL,
	additional_driver_count INT NOT NULL DEFAULT 0,
	status VARCHAR(20) NOT NULL DEFAULT 'pending',
	payment_status VARCHAR(20) NOT NULL DEFAULT 'pending',
	extension_count INT NOT NULL DEFAULT 0,
	payment_session_id VARCHAR(255) NULL,
	payment_intent_id VARCHAR(255) NULL,
	paid_at DATETIME NULL,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
	KEY idx_vehicle_window (vehicle_id, status, pickup_date, return_date),
	KEY idx_user (user_id),
	UNIQUE KEY uniq_payment_session (payment_session_id)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`},
	{"primary_drivers", driverDDL("primary_drivers")},
	{"additional_drivers", driverDDL("additional_drivers")},
	{"processed_webhook_events", `
CREATE TABLE IF NOT EXISTS processed_webhook_events (
	id BIGINT AUTO_INCREMENT PRIMARY KEY,
	event_id VARCHAR(255) NOT NULL,
	event_type VARCHAR(100) NOT NULL,
	processed_at DATETIME NOT NULL,
	UNIQUE KEY uniq_event (event_id)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`},
	{"driver_verifications", verificationDDL("driver_verifications", `
	booking_id CHAR(36) NOT NULL,
	driver_id CHAR(36) NOT NULL,
	driver_kind VARCHAR(20) NOT NULL,`)},
	{"pending_verifications", verificationDDL("pending_verifications", `
	worker_id VARCHAR(64) NOT NULL,`)},
	{"pos_transactions", `
CREATE TABLE IF NOT EXISTS pos_transactions (
	id CHAR(36) PRIMARY KEY,
	worker_id VARCHAR(64) NOT NULL,
	amount BIGINT NOT NULL,
	payment_type VARCHAR(20) NOT NULL,
	status VARCHAR(20) NOT NULL DEFAULT 'pending',
	reader_id VARCHAR(255) NULL,
	payment_intent_id VARCHAR(255) NULL,
	description VARCHAR(255) NOT NULL DEFAULT '',
	card_brand VARCHAR(50) NULL,
	card_last4 VARCHAR(4) NULL,
	receipt_url TEXT NULL,
	cash_tendered BIGINT NOT NULL DEFAULT 0,
	change_due BIGINT NOT NULL DEFAULT 0,
	failure_reason TEXT NULL,
	completed_at DATETIME NULL,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
	UNIQUE KEY uniq_intent (payment_intent_id),
	KEY idx_worker (worker_id)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`},
}

func driverDDL(table string) string {
	return fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	id CHAR(36) PRIMARY KEY,
	booking_id CHAR(36) NOT NULL,
	first_name VARCHAR(100) NOT NULL,
	last_name VARCHAR(100) NOT NULL,
	email VARCHAR(255) NOT NULL,
	phone VARCHAR(50) NOT NULL DEFAULT '',
	date_of_birth DATE NOT NULL,
	license_number VARCHAR(100) NOT NULL,
	license_state VARCHAR(50) NOT NULL DEFAULT '',
	license_expiry DATE NULL,
	verification_status VARCHAR(20) NOT NULL DEFAULT 'unverified',
	is_verified TINYINT(1) NOT NULL DEFAULT 0,
	document_retry_count INT NOT NULL DEFAULT 0,
	technical_retry_count INT NOT NULL DEFAULT 0,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	KEY idx_booking (booking_id)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`, table)
}

func verificationDDL(table, extra string) string {
	return fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	id CHAR(36) PRIMARY KEY,
	session_id VARCHAR(255) NOT NULL,%s
	status VARCHAR(20) NOT NULL DEFAULT 'pending',
	provided_name VARCHAR(255) NOT NULL DEFAULT '',
	provided_dob VARCHAR(32) NOT NULL DEFAULT '',
	provided_license VARCHAR(100) NOT NULL DEFAULT '',
	verified_name VARCHAR(255) NULL,
	verified_dob VARCHAR(32) NULL,
	verified_license VARCHAR(100) NULL,
	name_match TINYINT(1) NULL,
	dob_match TINYINT(1) NULL,
	license_number_match TINYINT(1) NULL,
	mismatches JSON NULL,
	failure_code VARCHAR(100) NULL,
	failure_category VARCHAR(20) NULL,
	failure_reason TEXT NULL,
	document_retry_count INT NOT NULL DEFAULT 0,
	technical_retry_count INT NOT NULL DEFAULT 0,
	verified_at DATETIME NULL,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
	UNIQUE KEY uniq_session (session_id)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`, table, extra)
}

// Migrate creates missing tables. Existing tables are left untouched.
func Migrate(ctx context.Context, db *sql.DB) ([]string, error) {
	created := []string{}
	for _, t := range schema {
		if HasTable(ctx, db, t.name) {
			continue
		}
		if _, err := db.ExecContext(ctx, t.ddl); err != nil {
			return created, fmt.Errorf("create %s: %w", t.name, err)
		}
		log.Printf("[MIGRATE] created table %s", t.name)
		created = append(created, t.name)
	}
	return created, nil
}
