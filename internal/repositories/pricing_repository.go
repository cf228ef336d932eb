package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	intconfig "rental-backend/internal/config"
	"rental-backend/internal/domain"
	"rental-backend/internal/domain/models"
)

// PricingRepository asks the calculate_rental_price procedure for a quote.
// The procedure owns every rate table; nothing here computes a price.
type PricingRepository struct {
	DB *sql.DB
}

func (r PricingRepository) db() *sql.DB {
	if r.DB != nil {
		return r.DB
	}
	return intconfig.DB
}

// Quote prices the rental interval. The delivery fee is an engine input; the
// procedure does not echo it back, so it is carried onto the quote here.
func (r PricingRepository) Quote(ctx context.Context, vehicleID string, pickup, ret time.Time, isStudent bool, deliveryFee int64, additionalDrivers int) (models.Pricing, error) {
	var (
		p        models.Pricing
		rentType string
	)
	rows, err := r.db().QueryContext(ctx,
		`CALL calculate_rental_price(?, ?, ?, ?, ?, ?)`,
		vehicleID, pickup.Format("2006-01-02"), ret.Format("2006-01-02"), isStudent, deliveryFee, additionalDrivers)
	if err != nil {
		return p, domain.InternalError{Msg: "pricing engine unavailable", Err: err}
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return p, domain.InternalError{Msg: "pricing engine failed", Err: err}
		}
		return p, domain.NotFoundError{Resource: "price", Err: errors.New("pricing engine returned no rows")}
	}
	if err := rows.Scan(&rentType, &p.RentalDays, &p.PricingMethod,
		&p.DailyRate, &p.WeeklyRate, &p.MonthlyRate,
		&p.RentalAmount, &p.SecurityDeposit, &p.AdditionalDriverFee); err != nil {
		return p, domain.InternalError{Msg: "pricing engine returned malformed row", Err: err}
	}
	p.RentalType = models.RentalType(rentType)
	p.DeliveryFee = deliveryFee
	if p.RentalDays <= 0 || p.RentalAmount < 0 {
		return p, domain.InternalError{Msg: fmt.Sprintf("pricing engine returned invalid quote (days=%d amount=%d)", p.RentalDays, p.RentalAmount)}
	}
	p.TotalPrice = p.Total()
	return p, nil
}
