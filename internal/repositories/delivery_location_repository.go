package repositories

import (
	"context"
	"database/sql"
	"errors"

	intconfig "rental-backend/internal/config"
	"rental-backend/internal/domain"
	"rental-backend/internal/domain/models"
)

type DeliveryLocationRepository struct {
	DB *sql.DB
}

func (r DeliveryLocationRepository) db() *sql.DB {
	if r.DB != nil {
		return r.DB
	}
	return intconfig.DB
}

// GetActive returns an active delivery location or NotFoundError.
func (r DeliveryLocationRepository) GetActive(ctx context.Context, id string) (models.DeliveryLocation, error) {
	var loc models.DeliveryLocation
	err := r.db().QueryRowContext(ctx,
		`SELECT id, name, fee, is_active FROM delivery_locations WHERE id=? AND is_active=1 LIMIT 1`, id).
		Scan(&loc.ID, &loc.Name, &loc.Fee, &loc.IsActive)
	if errors.Is(err, sql.ErrNoRows) {
		return loc, domain.NotFoundError{Resource: "delivery location", Err: err}
	}
	return loc, err
}

func (r DeliveryLocationRepository) ListActive(ctx context.Context) ([]models.DeliveryLocation, error) {
	rows, err := r.db().QueryContext(ctx,
		`SELECT id, name, fee, is_active FROM delivery_locations WHERE is_active=1 ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.DeliveryLocation{}
	for rows.Next() {
		var loc models.DeliveryLocation
		if err := rows.Scan(&loc.ID, &loc.Name, &loc.Fee, &loc.IsActive); err != nil {
			return nil, err
		}
		out = append(out, loc)
	}
	return out, rows.Err()
}
