package utils

import (
	"testing"
	"time"
)

func TestParseDateAcceptsDateAndTimestamp(t *testing.T) {
	a, err := ParseDate("2024-06-01")
	if err != nil {
		t.Fatalf("date parse error: %v", err)
	}
	b, err := ParseDate("2024-06-01T17:45:00Z")
	if err != nil {
		t.Fatalf("timestamp parse error: %v", err)
	}
	if !a.Equal(b) {
		t.Fatalf("expected same calendar date, got %s and %s", a, b)
	}
	if _, err := ParseDate("06/01/2024"); err == nil {
		t.Fatalf("expected error for unsupported layout")
	}
}

func TestDaysBetween(t *testing.T) {
	from := time.Date(2024, 6, 1, 23, 0, 0, 0, time.UTC)
	to := time.Date(2024, 6, 10, 1, 0, 0, 0, time.UTC)
	if got := DaysBetween(from, to); got != 9 {
		t.Fatalf("DaysBetween = %d, want 9", got)
	}
}

func TestFormatCents(t *testing.T) {
	if got := FormatCents(123450, "usd"); got != "$1,234.50" {
		t.Fatalf("FormatCents = %q", got)
	}
	if got := FormatCents(-5, "USD"); got != "-$0.05" {
		t.Fatalf("FormatCents negative = %q", got)
	}
}
