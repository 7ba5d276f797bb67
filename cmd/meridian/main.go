package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/meridian-wms/meridian-wms/internal/app"
	"github.com/meridian-wms/meridian-wms/internal/auth"
	"github.com/meridian-wms/meridian-wms/internal/catalog"
	"github.com/meridian-wms/meridian-wms/internal/invoices"
	"github.com/meridian-wms/meridian-wms/internal/locations"
	"github.com/meridian-wms/meridian-wms/internal/observability"
	"github.com/meridian-wms/meridian-wms/internal/orders"
	"github.com/meridian-wms/meridian-wms/internal/platform/cache"
	"github.com/meridian-wms/meridian-wms/internal/platform/db"
	"github.com/meridian-wms/meridian-wms/internal/shared"
	"github.com/meridian-wms/meridian-wms/internal/stock"
	"github.com/meridian-wms/meridian-wms/internal/tracking"
	"github.com/meridian-wms/meridian-wms/internal/users"
	"github.com/meridian-wms/meridian-wms/jobs"
)

// locationResolver adapts the locations service to the allocator port.
type locationResolver struct {
	service *locations.Service
}

func (r locationResolver) ResolveOrCreate(ctx context.Context, code string) (int64, error) {
	location, err := r.service.ResolveOrCreate(ctx, code)
	if err != nil {
		return 0, err
	}
	return location.ID, nil
}

// refreshEnqueuer adapts the jobs client to the tracking handler port.
type refreshEnqueuer struct {
	client *jobs.Client
}

func (e refreshEnqueuer) EnqueueTrackingRefresh(ctx context.Context, batchSize int) error {
	_, err := e.client.EnqueueTrackingRefresh(ctx, batchSize)
	return err
}

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping server startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()
	auditLogger := shared.NewAuditLogger(pool)

	tokenStore := auth.NewTokenStore(redisClient)
	issuer := auth.NewIssuer(cfg.JWTSecret, cfg.TokenTTL, tokenStore)
	authService := auth.NewService(auth.NewRepository(pool), issuer)
	authHandler := auth.NewHandler(logger, authService)
	authMiddleware := auth.Middleware{Service: authService, Logger: logger}

	userService := users.NewService(users.NewRepository(pool))
	userHandler := users.NewHandler(userService, logger)

	catalogService := catalog.NewService(catalog.NewRepository(pool))
	catalogHandler := catalog.NewHandler(logger, catalogService)

	locationService := locations.NewService(locations.NewRepository(pool))
	locationHandler := locations.NewHandler(logger, locationService)

	stockRepo := stock.NewRepository(pool)
	stockService := stock.NewService(stockRepo, auditLogger)
	allocator := stock.NewAllocator(stockRepo, locationResolver{service: locationService})
	stockHandler := stock.NewHandler(logger, stockService, allocator, metrics)

	orderService := orders.NewService(orders.NewRepository(pool), catalogService, auditLogger)
	orderHandler := orders.NewHandler(logger, orderService)

	invoiceService := invoices.NewService(invoices.NewRepository(pool), orderService, auditLogger)
	invoiceHandler := invoices.NewHandler(logger, invoiceService)

	jobsClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init jobs client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobsClient.Close(); err != nil {
			logger.Warn("jobs client close", slog.Any("error", err))
		}
	}()

	carrierClient := tracking.NewHTTPCarrierClient(cfg.CarrierAPIURL, cfg.CarrierAPITimeout)
	trackingService := tracking.NewService(tracking.NewRepository(pool), carrierClient, logger)
	trackingHandler := tracking.NewHandler(logger, trackingService, refreshEnqueuer{client: jobsClient})

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		Metrics:        metrics,
		AuthMiddleware: authMiddleware,
		Auth:           authHandler,
		Users:          userHandler,
		Catalog:        catalogHandler,
		Locations:      locationHandler,
		Stock:          stockHandler,
		Orders:         orderHandler,
		Invoices:       invoiceHandler,
		Tracking:       trackingHandler,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
