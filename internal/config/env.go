package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Env struct {
	AppAddr    string
	GinMode    string
	AppBaseURL string

	MySQLDSN string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	AMQPURL          string
	NotifyExchange   string
	NotifyRatePerSec float64

	StripeSecretKey      string
	StripeWebhookSecret  string
	StripeIdentityFlowID string
	Currency             string

	JWTSecret           string
	InternalAPIKeyHash  string
	CORSAllowedOrigins  []string
	CheckoutSessionTTL  time.Duration
	MaxExtensions       int
	MinExtensionCharge  int64
	MaxAdditionalDriver int
	CacheTTL            time.Duration
	CacheJitter         float64
}

// LoadEnv reads configuration from the environment (and an optional
// config file named by CONFIG_FILE).
func LoadEnv() Env {
	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("APP_ADDR", ":8080")
	v.SetDefault("APP_BASE_URL", "http://localhost:3000")
	v.SetDefault("MYSQL_DSN", "root:@tcp(127.0.0.1:3306)/rental_app?parseTime=true&loc=UTC&charset=utf8mb4&timeout=5s&readTimeout=30s&writeTimeout=30s")
	v.SetDefault("REDIS_ADDR", "127.0.0.1:6379")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("NOTIFY_EXCHANGE", "notifications")
	v.SetDefault("NOTIFY_RATE_PER_SEC", 10.0)
	v.SetDefault("CURRENCY", "usd")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000,http://127.0.0.1:3000,http://localhost:5173")
	v.SetDefault("CHECKOUT_SESSION_TTL", "30m")
	v.SetDefault("MAX_EXTENSIONS", 5)
	v.SetDefault("MIN_EXTENSION_CHARGE", 50)
	v.SetDefault("MAX_ADDITIONAL_DRIVERS", 3)
	v.SetDefault("CACHE_TTL", "5m")
	v.SetDefault("CACHE_JITTER", 0.1)

	if file := strings.TrimSpace(v.GetString("CONFIG_FILE")); file != "" {
		v.SetConfigFile(file)
		_ = v.ReadInConfig()
	}

	return Env{
		AppAddr:              v.GetString("APP_ADDR"),
		GinMode:              strings.TrimSpace(v.GetString("GIN_MODE")),
		AppBaseURL:           strings.TrimRight(v.GetString("APP_BASE_URL"), "/"),
		MySQLDSN:             v.GetString("MYSQL_DSN"),
		RedisAddr:            v.GetString("REDIS_ADDR"),
		RedisPassword:        v.GetString("REDIS_PASSWORD"),
		RedisDB:              v.GetInt("REDIS_DB"),
		AMQPURL:              v.GetString("AMQP_URL"),
		NotifyExchange:       v.GetString("NOTIFY_EXCHANGE"),
		NotifyRatePerSec:     v.GetFloat64("NOTIFY_RATE_PER_SEC"),
		StripeSecretKey:      v.GetString("STRIPE_SECRET_KEY"),
		StripeWebhookSecret:  v.GetString("STRIPE_WEBHOOK_SECRET"),
		StripeIdentityFlowID: v.GetString("STRIPE_IDENTITY_FLOW_ID"),
		Currency:             strings.ToLower(v.GetString("CURRENCY")),
		JWTSecret:            v.GetString("JWT_SECRET"),
		InternalAPIKeyHash:   v.GetString("INTERNAL_API_KEY_HASH"),
		CORSAllowedOrigins:   splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
		CheckoutSessionTTL:   v.GetDuration("CHECKOUT_SESSION_TTL"),
		MaxExtensions:        v.GetInt("MAX_EXTENSIONS"),
		MinExtensionCharge:   v.GetInt64("MIN_EXTENSION_CHARGE"),
		MaxAdditionalDriver:  v.GetInt("MAX_ADDITIONAL_DRIVERS"),
		CacheTTL:             v.GetDuration("CACHE_TTL"),
		CacheJitter:          v.GetFloat64("CACHE_JITTER"),
	}
}

func splitList(raw string) []string {
	out := []string{}
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
