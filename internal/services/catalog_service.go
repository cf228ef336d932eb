package services

import (
	"context"
	"time"

	"rental-backend/internal/cache"
	"rental-backend/internal/domain/models"
	"rental-backend/internal/repositories"
)

// CatalogService serves read-mostly listings through the cache.
type CatalogService struct {
	Vehicles  repositories.VehicleRepository
	Locations repositories.DeliveryLocationRepository
	Bookings  repositories.BookingRepository
	Cache     *cache.Cache
	TTL       time.Duration
}

func (s CatalogService) ttl() time.Duration {
	if s.TTL > 0 {
		return s.TTL
	}
	return 5 * time.Minute
}

func (s CatalogService) ListVehicles(ctx context.Context, f repositories.VehicleFilter) ([]models.Vehicle, error) {
	key := cache.Key(cache.PrefixVehicles, map[string]any{
		"make":          f.Make,
		"maxDailyRate":  f.MaxDailyRate,
		"onlyAvailable": f.OnlyAvail,
	})
	return cache.GetOrSet(ctx, s.Cache, key, s.ttl(), func(ctx context.Context) ([]models.Vehicle, error) {
		return s.Vehicles.List(ctx, f)
	})
}

func (s CatalogService) GetVehicle(ctx context.Context, id string) (models.Vehicle, error) {
	return cache.GetOrSet(ctx, s.Cache, cache.VehicleKey(id), s.ttl(), func(ctx context.Context) (models.Vehicle, error) {
		return s.Vehicles.GetByID(ctx, id)
	})
}

func (s CatalogService) ListDeliveryLocations(ctx context.Context) ([]models.DeliveryLocation, error) {
	return cache.GetOrSet(ctx, s.Cache, cache.PrefixDeliveryLocations, s.ttl(), func(ctx context.Context) ([]models.DeliveryLocation, error) {
		return s.Locations.ListActive(ctx)
	})
}

// ListBookings returns the caller's bookings. Entries are dropped by the
// checkout and webhook paths whenever a booking of the user changes.
func (s CatalogService) ListBookings(ctx context.Context, userID string) ([]BookingSummary, error) {
	return cache.GetOrSet(ctx, s.Cache, cache.UserBookingsKey(userID), s.ttl(), func(ctx context.Context) ([]BookingSummary, error) {
		rows, err := s.Bookings.ListForUser(ctx, userID)
		if err != nil {
			return nil, err
		}
		out := make([]BookingSummary, 0, len(rows))
		for _, b := range rows {
			out = append(out, summarize(b))
		}
		return out, nil
	})
}

type BookingSummary struct {
	ID             string               `json:"id"`
	VehicleID      string               `json:"vehicleId"`
	PickupDate     string               `json:"pickupDate"`
	ReturnDate     string               `json:"returnDate"`
	Status         models.BookingStatus `json:"status"`
	PaymentStatus  models.PaymentStatus `json:"paymentStatus"`
	ExtensionCount int                  `json:"extensionCount"`
	Pricing        models.Pricing       `json:"pricing"`
}

func summarize(b models.Booking) BookingSummary {
	return BookingSummary{
		ID:             b.ID,
		VehicleID:      b.VehicleID,
		PickupDate:     b.PickupDate.Format("2006-01-02"),
		ReturnDate:     b.ReturnDate.Format("2006-01-02"),
		Status:         b.Status,
		PaymentStatus:  b.PaymentStatus,
		ExtensionCount: b.ExtensionCount,
		Pricing:        b.Pricing,
	}
}
