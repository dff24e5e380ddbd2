package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ashdownmotors/garage-platform/cmd/mainconfig"
	"github.com/ashdownmotors/garage-platform/internal/api/router"
	"github.com/ashdownmotors/garage-platform/internal/app/bootstrap"
	appconfig "github.com/ashdownmotors/garage-platform/internal/config"
	"github.com/ashdownmotors/garage-platform/internal/dvla"
	"github.com/ashdownmotors/garage-platform/internal/export"
	"github.com/ashdownmotors/garage-platform/internal/followup"
	"github.com/ashdownmotors/garage-platform/internal/intake"
	"github.com/ashdownmotors/garage-platform/internal/ledger"
	"github.com/ashdownmotors/garage-platform/internal/notify"
	"github.com/ashdownmotors/garage-platform/internal/observability/metrics"
	"github.com/ashdownmotors/garage-platform/internal/queue"
	"github.com/ashdownmotors/garage-platform/pkg/logging"
)

func main() {
	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting garage-platform API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx := context.Background()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, false)
	if redisClient == nil {
		logger.Error("redis is required for intake sessions; set REDIS_ADDR")
		os.Exit(1)
	}
	defer func() { _ = redisClient.Close() }()

	bookingMetrics := metrics.NewBookingMetrics(prometheus.DefaultRegisterer)

	// Notification pipeline: booking confirmations and follow-up
	// reminders go through the queue; a worker drains it.
	notifyQueue, err := bootstrap.BuildQueue(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to build notification queue", "error", err)
		os.Exit(1)
	}
	emailSender := bootstrap.BuildEmailSender(ctx, cfg, logger)
	notifyService := bootstrap.BuildNotifyService(emailSender, cfg, logger)
	publisher := notify.NewPublisher(notifyQueue, logger)

	// With the in-memory queue there is no separate worker binary to
	// drain it, so run the dispatcher here.
	dispatcherCtx, stopDispatcher := context.WithCancel(ctx)
	defer stopDispatcher()
	if _, inMemory := notifyQueue.(*queue.MemoryQueue); inMemory {
		dispatcher := notify.NewDispatcher(notifyQueue, notifyService, logger)
		go func() {
			if err := dispatcher.Run(dispatcherCtx); err != nil && dispatcherCtx.Err() == nil {
				logger.Error("notification dispatcher stopped", "error", err)
			}
		}()
	}

	// Booking ledger and follow-up scheduling.
	bookingRepo := ledger.NewRepository(pool)
	followUpStore := followup.NewStore(pool)
	scheduler := followup.NewScheduler(followUpStore, cfg.FollowUpDelayDays, logger)
	bookingService := ledger.NewService(bookingRepo, scheduler, publisher, logger)
	bookingHandler := ledger.NewHandler(bookingService, bookingRepo, logger).WithMetrics(bookingMetrics)

	// Vehicle lookup.
	lookupClient := dvla.NewClient(cfg.VehicleAPIURL, cfg.VehicleAPIKey,
		dvla.WithLogger(logger),
		dvla.WithTimeout(cfg.VehicleAPITimeout),
		dvla.WithMetrics(bookingMetrics),
	)
	lookupHandler := dvla.NewHandler(lookupClient, logger)

	// Conversational intake and the two-step estimator.
	machine := intake.NewMachine(lookupClient, bookingService, logger).WithMetrics(bookingMetrics)
	sessionStore := intake.NewSessionStore(redisClient, cfg.SessionTTL)
	intakeHandler := intake.NewHandler(machine, sessionStore, lookupClient, logger)

	followUpHandler := followup.NewHandler(followUpStore, logger)

	// CSV export, optionally archived to S3.
	var s3Client export.S3Client
	if cfg.ExportBucket != "" {
		awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
		if err != nil {
			logger.Error("failed to load AWS config for exports", "error", err)
			os.Exit(1)
		}
		s3Client = s3.NewFromConfig(awsCfg)
	}
	exporter := export.New(export.Config{
		Repo:   bookingRepo,
		S3:     s3Client,
		Bucket: cfg.ExportBucket,
		Prefix: cfg.ExportPrefix,
		Logger: logger,
	})
	exportHandler := export.NewHandler(exporter, logger)

	routerCfg := &router.Config{
		Logger:          logger,
		BookingHandler:  bookingHandler,
		LookupHandler:   lookupHandler,
		IntakeHandler:   intakeHandler,
		FollowUpHandler: followUpHandler,
		ExportHandler:   exportHandler,

		AdminAuthSecret:    cfg.AdminJWTSecret,
		MetricsHandler:     promhttp.Handler(),
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimitPerSecond: cfg.RateLimitPerSecond,
		RateLimitBurst:     cfg.RateLimitBurst,
	}
	r := router.New(routerCfg)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")
	stopDispatcher()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}
