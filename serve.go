package main

import (
	"context"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rental-backend/internal/cache"
	intconfig "rental-backend/internal/config"
	router "rental-backend/internal/http"
	"rental-backend/internal/http/handlers"
	"rental-backend/internal/notify"
	"rental-backend/internal/payments"
	"rental-backend/internal/ratelimit"
	"rental-backend/internal/repositories"
	"rental-backend/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
}

func runServe() error {
	env := intconfig.LoadEnv()
	if env.GinMode != "" {
		gin.SetMode(env.GinMode)
	}
	if env.JWTSecret == "" {
		log.Println("warning: JWT_SECRET is empty, authenticated routes will reject every request")
	}

	db := intconfig.ConnectDB(env.MySQLDSN)
	defer intconfig.CloseDB()

	rdb := intconfig.ConnectRedis(env)
	defer rdb.Close()

	c := cache.New(cache.NewRedisBackend(rdb), cache.WithJitter(env.CacheJitter))
	limits := ratelimit.NewRegistry(ratelimit.NewRedisBackend(rdb), nil)

	notifier, closeNotifier := connectNotifier(env)
	defer closeNotifier.Close()

	stripe := payments.NewStripe(env.StripeSecretKey, env.StripeIdentityFlowID)
	settings := services.SettingsFromEnv(env)

	bookings := repositories.BookingRepository{DB: db}
	drivers := repositories.DriverRepository{DB: db}
	vehicles := repositories.VehicleRepository{DB: db}
	locations := repositories.DeliveryLocationRepository{DB: db}
	pricing := repositories.PricingRepository{DB: db}
	verifications := repositories.VerificationRepository{DB: db}
	transactions := repositories.POSTransactionRepository{DB: db}

	hs := &handlers.Handlers{
		Checkout: services.CheckoutService{
			Bookings:  bookings,
			Drivers:   drivers,
			Vehicles:  vehicles,
			Locations: locations,
			Pricing:   pricing,
			Payments:  stripe,
			Cache:     c,
			Settings:  settings,
		},
		Extensions: services.ExtensionService{
			Bookings: bookings,
			Drivers:  drivers,
			Pricing:  pricing,
			Payments: stripe,
			Settings: settings,
		},
		Catalog: services.CatalogService{
			Vehicles:  vehicles,
			Locations: locations,
			Bookings:  bookings,
			Cache:     c,
			TTL:       env.CacheTTL,
		},
		Receipts: services.ReceiptService{
			Bookings: bookings,
			Vehicles: vehicles,
			Drivers:  drivers,
			Settings: settings,
		},
		Verifications: services.VerificationService{
			Bookings:      bookings,
			Drivers:       drivers,
			Verifications: verifications,
			Gateway:       stripe,
			Settings:      settings,
		},
		Terminal: services.TerminalService{
			Transactions: transactions,
			Gateway:      stripe,
			Settings:     settings,
		},
		Webhooks: services.WebhookService{
			Ledger:        repositories.WebhookEventRepository{DB: db},
			Bookings:      bookings,
			Vehicles:      vehicles,
			Drivers:       drivers,
			Verifications: verifications,
			Transactions:  transactions,
			Identity:      stripe,
			Terminal:      stripe,
			Notifier:      notifier,
			Cache:         c,
			Settings:      settings,
		},
		Verifier: payments.WebhookVerifier{Secret: env.StripeWebhookSecret},
		Cache:    c,
	}

	r := router.NewRouter(env, hs, limits)

	srv := &http.Server{
		Addr:              env.AppAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       20 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("server listening on %s", env.AppAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case <-quit:
	}

	log.Println("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return err
	}

	log.Println("server stopped")
	return nil
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// connectNotifier publishes to RabbitMQ when AMQP_URL is set and falls back
// to logging otherwise. Notifications never block startup.
func connectNotifier(env intconfig.Env) (services.Notifier, io.Closer) {
	noop := closerFunc(func() error { return nil })
	if env.AMQPURL == "" {
		log.Println("AMQP_URL not set, notifications are logged only")
		return notify.LogNotifier{}, noop
	}
	conn, ch, err := intconfig.ConnectAMQP(env.AMQPURL)
	if err != nil {
		log.Printf("warning: %v, notifications are logged only", err)
		return notify.LogNotifier{}, noop
	}
	pub, err := notify.NewPublisher(ch, env.NotifyExchange, env.NotifyRatePerSec)
	if err != nil {
		log.Printf("warning: %v, notifications are logged only", err)
		_ = conn.Close()
		return notify.LogNotifier{}, noop
	}
	return pub, closerFunc(func() error {
		_ = ch.Close()
		return conn.Close()
	})
}
