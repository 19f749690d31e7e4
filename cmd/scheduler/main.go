package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/coachly/autoscheduler/internal/app"
	"github.com/coachly/autoscheduler/internal/config"
	"github.com/coachly/autoscheduler/internal/notify"
	"github.com/coachly/autoscheduler/internal/repository"
	"github.com/coachly/autoscheduler/internal/service"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

func main() {

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := app.NewLogger(cfg.Environment)
	defer logger.Sync()

	logger.Info("Starting auto-scheduling service",
		zap.String("environment", cfg.Environment),
		zap.Duration("scheduling_interval", cfg.SchedulingInterval))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.DBDSN)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer pool.Close()

	migrator, err := app.NewMigrator(pool, cfg.MigrationsPath)
	if err != nil {
		logger.Fatal("Failed to create migrator", zap.Error(err))
	}
	if err := migrator.Run(ctx); err != nil {
		logger.Fatal("Failed to apply migrations", zap.Error(err))
	}
	migrator.Close()

	userRepo := repository.NewUserRepository(pool)
	availabilityRepo := repository.NewAvailabilityRepository(pool)
	appointmentRepo := repository.NewAppointmentRepository(pool)
	settingsRepo := repository.NewSettingsRepository(pool)

	schedulingService := service.NewSchedulingService(userRepo, availabilityRepo, appointmentRepo, logger)

	var observer app.RunObserver
	if cfg.NotificationsEnabled() {
		notifier, err := notify.NewTelegramNotifier(cfg.TelegramToken, cfg.TelegramAdminChat, logger)
		if err != nil {
			logger.Fatal("Failed to create telegram notifier", zap.Error(err))
		}
		observer = notifier
		logger.Info("Telegram notifications enabled", zap.Int64("chat_id", cfg.TelegramAdminChat))
	}

	onProgress := func(progress service.SchedulingProgress) {
		if progress.CurrentAction != "" {
			logger.Debug("Auto-scheduling progress",
				zap.String("customer", progress.CurrentCustomer),
				zap.String("coach", progress.CurrentCoach),
				zap.String("action", progress.CurrentAction))
		}
	}

	scheduler := app.NewAutoScheduler(
		schedulingService,
		settingsRepo,
		observer,
		onProgress,
		cfg.SchedulingInterval,
		logger,
	)

	if err := scheduler.Resume(ctx); err != nil {
		logger.Fatal("Failed to resume auto-scheduling", zap.Error(err))
	}

	<-ctx.Done()
	scheduler.Stop()
	logger.Info("Auto-scheduling service stopped")
}
