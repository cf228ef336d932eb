package api

import (
	"log"
	stdhttp "net/http"

	intconfig "rental-backend/internal/config"
	h "rental-backend/internal/http/handlers"
	"rental-backend/internal/http/middleware"
	"rental-backend/internal/ratelimit"

	"github.com/gin-gonic/gin"
)

func NewRouter(env intconfig.Env, hs *h.Handlers, limits *ratelimit.Registry) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestID(), middleware.Logger(), gin.Recovery(), middleware.CORS(env.CORSAllowedOrigins))

	if err := r.SetTrustedProxies(nil); err != nil {
		log.Printf("warning: failed to set trusted proxies: %v", err)
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(stdhttp.StatusNotFound, gin.H{
			"error":  "route not found",
			"path":   c.Request.URL.Path,
			"method": c.Request.Method,
		})
	})

	auth := middleware.AuthRequired(env.JWTSecret)
	limit := func(class ratelimit.Class) gin.HandlerFunc { return middleware.RateLimit(limits, class) }

	api := r.Group("/api")
	{
		api.GET("/health", h.Health)
		api.GET("/db-check", h.DBCheck)
		api.GET("/routes", h.Routes)

		// Gateway callbacks are authenticated by signature, not by token.
		api.POST("/webhooks/stripe", hs.StripeWebhook)

		// Catalog
		api.GET("/vehicles", limit(ratelimit.ClassCatalog), hs.ListVehicles)
		api.GET("/vehicles/:id", limit(ratelimit.ClassCatalog), hs.GetVehicle)
		api.GET("/delivery-locations", limit(ratelimit.ClassCatalog), hs.ListDeliveryLocations)

		// Customer
		api.POST("/checkout", auth, limit(ratelimit.ClassCheckout), hs.CreateCheckout)
		bookings := api.Group("/bookings", auth)
		bookings.GET("", limit(ratelimit.ClassCatalog), hs.ListMyBookings)
		bookings.POST("/:id/extend", limit(ratelimit.ClassExtension), hs.ExtendBooking)
		bookings.GET("/:id/receipt", limit(ratelimit.ClassCatalog), hs.GetReceiptPDF)
		bookings.POST("/:id/drivers/:driverId/verification", limit(ratelimit.ClassVerification), hs.StartDriverVerification)

		// Counter staff
		pos := api.Group("/pos", auth, middleware.RequireRoles(middleware.RoleWorker, middleware.RoleAdmin), limit(ratelimit.ClassPOS))
		pos.POST("/transactions", hs.CreatePOSTransaction)
		pos.GET("/transactions/:id", hs.GetPOSTransaction)
		pos.POST("/transactions/:id/process", hs.ProcessPOSTransaction)
		pos.POST("/transactions/:id/cancel", hs.CancelPOSTransaction)
		pos.POST("/verifications", hs.StartWalkInVerification)

		// Internal callers
		internal := api.Group("/internal", middleware.InternalOnly(env.InternalAPIKeyHash), limit(ratelimit.ClassInternal))
		internal.POST("/cache/invalidate", hs.InvalidateCache)
	}

	h.SetRouter(r)
	return r
}
