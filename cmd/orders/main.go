// Command orders boots the HTTP-facing half of the order-fulfillment
// control plane: identity, order, pharmacist and driver gateways behind one
// gin router, with graceful shutdown, grounded in kvishalv-reliable-orders's
// order-service/cmd/main.go wiring shape.
package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"

	"github.com/medplatform/orders/internal/auth"
	"github.com/medplatform/orders/internal/cache"
	"github.com/medplatform/orders/internal/config"
	"github.com/medplatform/orders/internal/domain"
	"github.com/medplatform/orders/internal/driver"
	"github.com/medplatform/orders/internal/eventbus"
	"github.com/medplatform/orders/internal/httpapi"
	"github.com/medplatform/orders/internal/identity"
	"github.com/medplatform/orders/internal/inventory"
	"github.com/medplatform/orders/internal/observability"
	"github.com/medplatform/orders/internal/order"
	"github.com/medplatform/orders/internal/pharmacist"
	"github.com/medplatform/orders/internal/reliability"
	mongostore "github.com/medplatform/orders/internal/store/mongo"
)

const serviceName = "orders"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := observability.InitLogger(observability.LogConfig{
		Level:       "info",
		ServiceName: serviceName,
		Environment: cfg.Env,
	})
	slog.SetDefault(logger)

	shutdownTracer, err := observability.InitTracer(serviceName, cfg.OTELCollectorAddr)
	if err != nil {
		log.Fatalf("tracer: %v", err)
	}
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			logger.Error("tracer shutdown failed", slog.Any("error", err))
		}
	}()

	shutdownMetrics, err := observability.InitMetrics(context.Background(), serviceName, cfg.OTELCollectorAddr)
	if err != nil {
		log.Fatalf("metrics: %v", err)
	}
	defer func() {
		if err := shutdownMetrics(context.Background()); err != nil {
			logger.Error("metrics shutdown failed", slog.Any("error", err))
		}
	}()
	counters := observability.NewCounters(otel.Meter(serviceName))

	ctx, cancel := context.WithTimeout(context.Background(), domain.DocumentStoreSelectionTimeout)
	store, err := mongostore.Connect(ctx, cfg.MongoURI, cfg.MongoDB)
	cancel()
	if err != nil {
		log.Fatalf("document store: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), domain.GracefulShutdownTimeout)
		defer cancel()
		if err := store.Disconnect(ctx); err != nil {
			logger.Error("document store disconnect failed", slog.Any("error", err))
		}
	}()
	if err := store.EnsureIndexes(context.Background()); err != nil {
		log.Fatalf("document store indexes: %v", err)
	}

	cacheClient := cache.NewClient(cache.Config{Addr: cfg.RedisAddr, Password: cfg.RedisPass})
	defer cacheClient.Close()
	lock := cache.NewLock(cacheClient)
	otpStore := cache.NewOTPStore(cacheClient)
	liveSet := cache.NewLiveSet(cacheClient, cfg.RefreshTokenTTL)
	rateLimiter := cache.NewRateLimiter(cacheClient, logger)
	searchCache := cache.NewSearchCache(cacheClient)

	bus, err := eventbus.Connect(cfg.AMQPURI)
	if err != nil {
		log.Fatalf("event bus: %v", err)
	}
	defer func() {
		if err := bus.Close(); err != nil {
			logger.Error("event bus close failed", slog.Any("error", err))
		}
	}()
	clock := domain.RealClock{}
	publisher := eventbus.NewPublisher(bus, clock)

	minter := auth.NewMinter([]byte(cfg.TokenSigningSecret), serviceName, serviceName, clock, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	validator := auth.NewValidator([]byte(cfg.TokenSigningSecret), serviceName, serviceName, clock)

	users := mongostore.NewUserRepository(store)
	pharmacies := mongostore.NewPharmacyRepository(store)
	medicines := mongostore.NewMedicineRepository(store)
	inventoryRepo := mongostore.NewInventoryRepository(store)
	orders := mongostore.NewOrderRepository(store)
	deliveries := mongostore.NewDeliveryRepository(store)

	coordinator := inventory.NewCoordinator(inventoryRepo, lock, publisher, logger)
	idemCache := reliability.NewIdempotencyCache()

	identitySvc := identity.NewService(users, pharmacies, otpStore, liveSet, rateLimiter, minter, validator, clock, cfg.BcryptCost, cfg.RateLimitWindow, cfg.RateLimitMax, logger, counters)
	orderSvc := order.NewService(orders, pharmacies, deliveries, coordinator, publisher, idemCache, clock, logger, counters)
	pharmacistSvc := pharmacist.NewService(orders, pharmacies, inventoryRepo, coordinator, publisher, logger)
	driverSvc := driver.NewService(orders, deliveries, coordinator, publisher, clock, logger)

	authHandlers := httpapi.NewAuthHandlers(identitySvc, users, cfg.IsProd(), cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	orderHandlers := httpapi.NewOrderHandlers(orderSvc)
	pharmacistHandlers := httpapi.NewPharmacistHandlers(pharmacistSvc)
	driverHandlers := httpapi.NewDriverHandlers(driverSvc)
	pharmacyHandlers := httpapi.NewPharmacyHandlers(pharmacies, inventoryRepo)
	medicineHandlers := httpapi.NewMedicineHandlers(medicines, searchCache, logger)
	userHandlers := httpapi.NewUserHandlers(users)
	healthHandlers := httpapi.NewHealthHandlers(store, cacheClient)

	router := gin.Default()
	router.Use(otelgin.Middleware(serviceName))
	router.Use(corsMiddleware(cfg.CORSOrigins))

	router.GET("/health", healthHandlers.Health)
	router.GET("/ready", healthHandlers.Ready)

	apiV1 := router.Group("/api/v1")

	authGroup := apiV1.Group("/auth")
	{
		authGroup.POST("/register", authHandlers.Register)
		authGroup.POST("/verify-otp", authHandlers.VerifyOTP)
		authGroup.POST("/login", authHandlers.Login)
		authGroup.POST("/refresh", authHandlers.Refresh)
		authGroup.POST("/logout", authHandlers.Logout)
	}

	requireAuth := httpapi.RequireAuth(validator)

	apiV1.GET("/auth/me", requireAuth, authHandlers.Me)
	apiV1.POST("/admin/pharmacists", requireAuth, httpapi.RequireRole(domain.RoleAdmin), authHandlers.CreatePharmacist)
	apiV1.POST("/admin/drivers", requireAuth, httpapi.RequireRole(domain.RoleAdmin), authHandlers.CreateDriver)

	orderGroup := apiV1.Group("/orders", requireAuth)
	{
		orderGroup.POST("", orderHandlers.Create)
		orderGroup.GET("", orderHandlers.List)
		orderGroup.GET("/:id", orderHandlers.Get)
		orderGroup.POST("/:id/cancel", orderHandlers.Cancel)
		orderGroup.POST("/:id/rate", orderHandlers.Rate)
	}
	apiV1.POST("/payments/webhook", orderHandlers.PaymentWebhook)
	if !cfg.IsProd() {
		apiV1.POST("/payments/simulate", requireAuth, orderHandlers.PaymentSimulate)
	}

	pharmacistGroup := apiV1.Group("/pharmacist", requireAuth, httpapi.RequireRole(domain.RolePharmacist))
	{
		pharmacistGroup.POST("/orders/:id/accept", pharmacistHandlers.Accept)
		pharmacistGroup.POST("/orders/:id/decline", pharmacistHandlers.Decline)
		pharmacistGroup.POST("/orders/:id/prepared", pharmacistHandlers.Prepared)
		pharmacistGroup.POST("/inventory", pharmacistHandlers.CreateInventory)
		pharmacistGroup.GET("/inventory", pharmacistHandlers.ListInventory)
	}

	driverGroup := apiV1.Group("/driver", requireAuth, httpapi.RequireRole(domain.RoleDriver))
	{
		driverGroup.GET("/deliveries", driverHandlers.ListAvailable)
		driverGroup.POST("/deliveries/:id/accept", driverHandlers.Accept)
		driverGroup.POST("/deliveries/:id/status", driverHandlers.UpdateStatus)
		driverGroup.POST("/deliveries/:id/location", driverHandlers.UpdateLocation)
		driverGroup.POST("/deliveries/:id/confirm", driverHandlers.ConfirmDelivery)
	}

	apiV1.GET("/pharmacies", pharmacyHandlers.ListNear)
	apiV1.GET("/pharmacies/:id", pharmacyHandlers.Get)
	apiV1.GET("/pharmacies/:id/inventory", pharmacyHandlers.Inventory)
	apiV1.GET("/medicines", medicineHandlers.Search)
	apiV1.GET("/medicines/:id", medicineHandlers.Get)

	userGroup := apiV1.Group("/users", requireAuth)
	{
		userGroup.GET("/profile", userHandlers.GetProfile)
		userGroup.PUT("/profile", userHandlers.UpdateProfile)
		userGroup.GET("/cart", userHandlers.GetCart)
		userGroup.PUT("/cart", userHandlers.UpdateCart)
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Info("starting server", slog.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), domain.GracefulShutdownTimeout)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", slog.Any("error", err))
	}
	logger.Info("server exited")
}

// corsMiddleware mirrors the teacher's CORS handling, generalized from a
// single hard-coded origin to the configured allow-list.
func corsMiddleware(allowed []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		for _, a := range allowed {
			if a == "*" {
				c.Header("Access-Control-Allow-Origin", "*")
				break
			}
			if a == origin {
				c.Header("Access-Control-Allow-Origin", origin)
				break
			}
		}
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type, Idempotency-Key")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
