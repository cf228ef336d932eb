package cache

import (
	"encoding/json"
	"strings"
)

const (
	PrefixVehicles          = "vehicles"
	PrefixVehicle           = "vehicle"
	PrefixDeliveryLocations = "delivery_locations"
	PrefixBookings          = "bookings"
)

// Targets maps the logical domains accepted by the invalidation endpoint to
// key patterns.
var Targets = map[string][]string{
	"vehicles":           {PrefixVehicles + "*", PrefixVehicle + ":*"},
	"delivery_locations": {PrefixDeliveryLocations + "*"},
	"bookings":           {PrefixBookings + ":*"},
	"all":                {"*"},
}

// Key builds a cache key from a base name and query parameters. Parameters
// are serialised as JSON with sorted keys, so the same query in any order
// yields the same key. Empty values are dropped.
func Key(base string, params map[string]any) string {
	clean := make(map[string]any, len(params))
	for k, v := range params {
		if v == nil {
			continue
		}
		if s, ok := v.(string); ok {
			s = strings.TrimSpace(s)
			if s == "" {
				continue
			}
			v = s
		}
		clean[k] = v
	}
	if len(clean) == 0 {
		return base
	}
	b, err := json.Marshal(clean)
	if err != nil {
		return base
	}
	return base + ":" + string(b)
}

func VehicleKey(id string) string {
	return PrefixVehicle + ":" + id
}

func UserBookingsKey(userID string) string {
	return PrefixBookings + ":" + userID
}

// UserBookingsPattern matches keys derived from UserBookingsKey. The key
// itself is not matched and must be dropped alongside.
func UserBookingsPattern(userID string) string {
	return UserBookingsKey(userID) + ":*"
}
