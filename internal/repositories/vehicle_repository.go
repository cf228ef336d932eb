package repositories

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	intconfig "rental-backend/internal/config"
	"rental-backend/internal/domain"
	"rental-backend/internal/domain/models"
)

type VehicleRepository struct {
	DB *sql.DB
}

func (r VehicleRepository) db() *sql.DB {
	if r.DB != nil {
		return r.DB
	}
	return intconfig.DB
}

// VehicleFilter narrows the catalog listing.
type VehicleFilter struct {
	Make         string `json:"make,omitempty"`
	MaxDailyRate int64  `json:"maxDailyRate,omitempty"`
	OnlyAvail    bool   `json:"onlyAvailable,omitempty"`
}

func (r VehicleRepository) GetByID(ctx context.Context, id string) (models.Vehicle, error) {
	var (
		v      models.Vehicle
		status string
	)
	err := r.db().QueryRowContext(ctx, `
		SELECT id, name, make, model, year, daily_rate, status
		FROM vehicles WHERE id=? LIMIT 1`, id).
		Scan(&v.ID, &v.Name, &v.Make, &v.Model, &v.Year, &v.DailyRate, &status)
	if errors.Is(err, sql.ErrNoRows) {
		return v, domain.NotFoundError{Resource: "vehicle", Err: err}
	}
	v.Status = models.VehicleStatus(status)
	return v, err
}

func (r VehicleRepository) List(ctx context.Context, f VehicleFilter) ([]models.Vehicle, error) {
	where := []string{"1=1"}
	args := []any{}
	if m := strings.TrimSpace(f.Make); m != "" {
		where = append(where, "make=?")
		args = append(args, m)
	}
	if f.MaxDailyRate > 0 {
		where = append(where, "daily_rate<=?")
		args = append(args, f.MaxDailyRate)
	}
	if f.OnlyAvail {
		where = append(where, "status='available'")
	}

	rows, err := r.db().QueryContext(ctx, `
		SELECT id, name, make, model, year, daily_rate, status
		FROM vehicles
		WHERE `+strings.Join(where, " AND ")+`
		ORDER BY daily_rate, name`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Vehicle{}
	for rows.Next() {
		var (
			v      models.Vehicle
			status string
		)
		if err := rows.Scan(&v.ID, &v.Name, &v.Make, &v.Model, &v.Year, &v.DailyRate, &status); err != nil {
			return nil, err
		}
		v.Status = models.VehicleStatus(status)
		out = append(out, v)
	}
	return out, rows.Err()
}

// MarkReserved moves an available vehicle to reserved. Returns false when the
// vehicle was not available (already reserved, rented, in maintenance).
func (r VehicleRepository) MarkReserved(ctx context.Context, id string) (bool, error) {
	res, err := r.db().ExecContext(ctx,
		`UPDATE vehicles SET status='reserved' WHERE id=? AND status='available'`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}
