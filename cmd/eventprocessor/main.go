// Command eventprocessor consumes the order/delivery/inventory event bus
// and drives the fan-out side effects of §4.8: notifications, driver
// broadcast, low-stock/near-expiry checks and search re-indexing. It shares
// no HTTP surface with cmd/orders, matching the teacher's payment-service's
// separate-binary-per-concern split.
package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"go.opentelemetry.io/otel"

	"github.com/medplatform/orders/internal/config"
	"github.com/medplatform/orders/internal/domain"
	"github.com/medplatform/orders/internal/eventbus"
	"github.com/medplatform/orders/internal/eventproc"
	"github.com/medplatform/orders/internal/observability"
	mongostore "github.com/medplatform/orders/internal/store/mongo"
)

const serviceName = "eventprocessor"

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

	users := mongostore.NewUserRepository(store)
	inventoryRepo := mongostore.NewInventoryRepository(store)

	bus, err := eventbus.Connect(cfg.AMQPURI)
	if err != nil {
		log.Fatalf("event bus: %v", err)
	}
	defer func() {
		if err := bus.Close(); err != nil {
			logger.Error("event bus close failed", slog.Any("error", err))
		}
	}()
	consumer := eventbus.NewConsumer(bus, logger, counters)

	clock := domain.RealClock{}
	notifier := eventproc.NewLogNotifier(logger)
	reindexer := eventproc.NewHTTPReindexer(cfg.SearchURI, logger)
	processor := eventproc.NewProcessor(users, inventoryRepo, notifier, reindexer, clock, logger)

	runCtx, cancelRun := context.WithCancel(context.Background())
	defer cancelRun()
	if err := processor.Subscribe(runCtx, consumer); err != nil {
		log.Fatalf("event processor subscribe: %v", err)
	}

	logger.Info("eventprocessor subscribed, waiting for events")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	cancelRun()
}
