package services

import (
	"context"
	"fmt"
	"time"

	"rental-backend/internal/cache"
	intconfig "rental-backend/internal/config"
	"rental-backend/internal/utils"

	"github.com/google/uuid"
)

// Settings holds the business limits shared by the booking flows.
type Settings struct {
	Currency             string
	BaseURL              string
	SessionTTL           time.Duration
	MaxAdditionalDrivers int
	MaxExtensions        int
	MinExtensionCharge   int64
	IdentityFlowID       string
}

func DefaultSettings() Settings {
	return Settings{
		Currency:             "usd",
		BaseURL:              "http://localhost:3000",
		SessionTTL:           30 * time.Minute,
		MaxAdditionalDrivers: 3,
		MaxExtensions:        5,
		MinExtensionCharge:   50,
	}
}

// SettingsFromEnv overlays configured values on the defaults.
func SettingsFromEnv(env intconfig.Env) Settings {
	s := DefaultSettings()
	if env.Currency != "" {
		s.Currency = env.Currency
	}
	if env.AppBaseURL != "" {
		s.BaseURL = env.AppBaseURL
	}
	if env.CheckoutSessionTTL > 0 {
		s.SessionTTL = env.CheckoutSessionTTL
	}
	if env.MaxAdditionalDriver > 0 {
		s.MaxAdditionalDrivers = env.MaxAdditionalDriver
	}
	if env.MaxExtensions > 0 {
		s.MaxExtensions = env.MaxExtensions
	}
	if env.MinExtensionCharge > 0 {
		s.MinExtensionCharge = env.MinExtensionCharge
	}
	s.IdentityFlowID = env.StripeIdentityFlowID
	return s
}

func (s Settings) withDefaults() Settings {
	d := DefaultSettings()
	if s.Currency == "" {
		s.Currency = d.Currency
	}
	if s.BaseURL == "" {
		s.BaseURL = d.BaseURL
	}
	if s.SessionTTL <= 0 {
		s.SessionTTL = d.SessionTTL
	}
	if s.MaxAdditionalDrivers <= 0 {
		s.MaxAdditionalDrivers = d.MaxAdditionalDrivers
	}
	if s.MaxExtensions <= 0 {
		s.MaxExtensions = d.MaxExtensions
	}
	if s.MinExtensionCharge <= 0 {
		s.MinExtensionCharge = d.MinExtensionCharge
	}
	return s
}

func newID() string {
	return uuid.NewString()
}

func nowFunc(fn func() time.Time) time.Time {
	if fn != nil {
		return fn().UTC()
	}
	return utils.NowUTC()
}

// notify sends a best-effort message. Failures are logged and dropped.
func notify(ctx context.Context, n Notifier, requestID, template, recipient string, data map[string]any) {
	if n == nil || recipient == "" {
		return
	}
	if err := n.Notify(ctx, template, recipient, data); err != nil {
		utils.LogEvent(requestID, "notify", template, fmt.Sprintf("send failed: %v", err))
	}
}

// invalidate drops cache keys and patterns, logging failures.
func invalidate(ctx context.Context, c CacheInvalidator, requestID string, keys []string, patterns ...string) {
	if c == nil {
		return
	}
	if len(keys) > 0 {
		if err := c.Invalidate(ctx, keys...); err != nil {
			utils.LogEvent(requestID, "cache", "invalidate", fmt.Sprintf("keys=%v err=%v", keys, err))
		}
	}
	for _, p := range patterns {
		if _, err := c.InvalidatePattern(ctx, p); err != nil {
			utils.LogEvent(requestID, "cache", "invalidate", fmt.Sprintf("pattern=%s err=%v", p, err))
		}
	}
}

// invalidateUserBookings drops one user's bookings list and its derived keys.
func invalidateUserBookings(ctx context.Context, c CacheInvalidator, requestID, userID string) {
	if userID == "" {
		return
	}
	invalidate(ctx, c, requestID, []string{cache.UserBookingsKey(userID)}, cache.UserBookingsPattern(userID))
}
