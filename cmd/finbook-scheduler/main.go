package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"finbook/internal/amqp"
	"finbook/internal/config"
	"finbook/internal/scheduler"
	"finbook/internal/services"
	"finbook/internal/storage"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	// Setup structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	logger.Info("Starting finbook-scheduler")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	// The AMQP client is optional. A nil client publishes nothing, so the
	// scheduler still sweeps, projects and matches without a broker.
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without notifications", "error", err)
			amqpClient = nil
		} else {
			defer amqpClient.Close()
			logger.Info("AMQP client initialized", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	} else {
		logger.Info("AMQP disabled - notifications will not be published")
	}

	clock := services.SystemClock{}
	thresholds := services.AlertThresholds{
		Warning: cfg.WarningThreshold,
		Danger:  cfg.DangerThreshold,
	}

	billService := services.NewBillService(repo, clock)
	budgetService := services.NewBudgetService(repo, clock, thresholds)
	processor := services.NewRecurringProcessor(repo)
	matcher := services.NewAutoPayMatcher(repo)
	notifier := services.NewNotifier(billService, budgetService, amqpClient)

	sched := scheduler.New(
		&scheduler.Job{
			Name:     "overdue-sweep",
			Interval: cfg.OverdueSweepInterval,
			Run: func(ctx context.Context, now time.Time) error {
				_, err := billService.SweepOverdue(ctx, now)
				return err
			},
		},
		&scheduler.Job{
			Name:     "recurring-projector",
			Interval: cfg.RecurringInterval,
			Run: func(ctx context.Context, now time.Time) error {
				_, err := processor.ProcessDue(ctx, now)
				return err
			},
		},
		&scheduler.Job{
			Name:     "autopay-matcher",
			Interval: cfg.AutoPayInterval,
			Run: func(ctx context.Context, now time.Time) error {
				_, err := matcher.Run(ctx, now)
				return err
			},
		},
		&scheduler.Job{
			Name:     "notifications",
			Interval: cfg.BudgetAlertInterval,
			Run: func(ctx context.Context, now time.Time) error {
				if err := notifier.NotifyBillReminders(ctx, now); err != nil {
					return err
				}
				return notifier.NotifyBudgetAlerts(ctx, now)
			},
		},
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("Scheduler configured",
		"overdue_sweep_interval", cfg.OverdueSweepInterval,
		"recurring_interval", cfg.RecurringInterval,
		"autopay_interval", cfg.AutoPayInterval,
		"budget_alert_interval", cfg.BudgetAlertInterval,
		"sqlite_db", cfg.SQLiteDBPath)

	if err := sched.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Scheduler stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("Scheduler stopped gracefully")
}
