package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"

	"github.com/ashdownmotors/garage-platform/internal/app/bootstrap"
	appconfig "github.com/ashdownmotors/garage-platform/internal/config"
	"github.com/ashdownmotors/garage-platform/internal/followup"
	"github.com/ashdownmotors/garage-platform/internal/notify"
	"github.com/ashdownmotors/garage-platform/internal/observability/metrics"
	"github.com/ashdownmotors/garage-platform/pkg/logging"
)

func main() {
	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.DatabaseURL == "" {
		logger.Error("follow-up worker requires DATABASE_URL")
		os.Exit(1)
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect postgres", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	notifyQueue, err := bootstrap.BuildQueue(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to build notification queue", "error", err)
		os.Exit(1)
	}
	emailSender := bootstrap.BuildEmailSender(ctx, cfg, logger)
	notifyService := bootstrap.BuildNotifyService(emailSender, cfg, logger)

	bookingMetrics := metrics.NewBookingMetrics(prometheus.DefaultRegisterer)

	store := followup.NewStore(pool)
	worker := followup.NewWorker(store, notify.NewPublisher(notifyQueue, logger), logger).
		WithMetrics(bookingMetrics)

	// Drain the queue and deliver emails. Booking confirmations published
	// by the API land here too when both binaries share an SQS queue.
	dispatcher := notify.NewDispatcher(notifyQueue, notifyService, logger)
	go func() {
		if err := dispatcher.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Error("notification dispatcher stopped", "error", err)
		}
	}()

	c := cron.New(cron.WithLocation(time.UTC))
	if _, err := c.AddFunc(cfg.FollowUpPollSchedule, func() {
		fired, err := worker.ProcessDue(ctx)
		if err != nil {
			logger.Error("follow-up pass failed", "error", err)
			return
		}
		if fired > 0 {
			logger.Info("follow-up pass complete", "fired", fired)
		}
	}); err != nil {
		logger.Error("invalid follow-up poll schedule",
			"schedule", cfg.FollowUpPollSchedule, "error", err)
		os.Exit(1)
	}
	c.Start()
	logger.Info("follow-up worker started", "schedule", cfg.FollowUpPollSchedule)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	logger.Info("follow-up worker shutting down")

	stopCtx := c.Stop()
	cancel()
	select {
	case <-stopCtx.Done():
	case <-time.After(10 * time.Second):
	}
}
