package main

import (
	"context"
	"log"
	"time"

	"github.com/coachly/autoscheduler/internal/app"
	"github.com/coachly/autoscheduler/internal/config"
	"github.com/coachly/autoscheduler/internal/model"
	"github.com/coachly/autoscheduler/internal/repository"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Наполняет базу демо-данными для ручной проверки автопланирования:
// один тренер с одобренным окном доступности и несколько клиентов без встреч.
func main() {

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := app.NewLogger(cfg.Environment)
	defer logger.Sync()

	ctx := context.Background()

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

	coach := &model.User{
		Role:      model.RoleCoach,
		FirstName: "Anna",
		LastName:  "Keller",
		Email:     "anna.keller@example.com",
	}
	if err := userRepo.Create(ctx, coach); err != nil {
		logger.Fatal("Failed to create coach", zap.Error(err))
	}
	logger.Info("Coach created", zap.String("id", coach.ID.String()))

	customers := []*model.User{
		{Role: model.RoleCustomer, FirstName: "Max", LastName: "Berger", Email: "max.berger@example.com"},
		{Role: model.RoleCustomer, FirstName: "Lena", LastName: "Hoffmann", Email: "lena.hoffmann@example.com"},
		{Role: model.RoleCustomer, FirstName: "Tom", LastName: "Wagner", Email: "tom.wagner@example.com"},
	}
	for _, customer := range customers {
		if err := userRepo.Create(ctx, customer); err != nil {
			logger.Fatal("Failed to create customer", zap.Error(err))
		}
		logger.Info("Customer created",
			zap.String("id", customer.ID.String()),
			zap.String("name", customer.FullName()))
	}

	// Окно на две недели вперёд: вечерние сессии по понедельникам,
	// средам и пятницам
	now := time.Now()
	availability := &model.Availability{
		CoachID:   coach.ID,
		StartDate: now,
		EndDate:   now.AddDate(0, 0, 14),
		SelectedDays: model.WeekdaySessions{
			int(time.Monday):    {"session1"},
			int(time.Wednesday): {"session1", "session2"},
			int(time.Friday):    {"session2"},
		},
	}
	if err := availabilityRepo.Create(ctx, availability); err != nil {
		logger.Fatal("Failed to create availability", zap.Error(err))
	}

	if err := availabilityRepo.UpdateStatus(ctx, availability.ID, model.AvailabilityApproved); err != nil {
		logger.Fatal("Failed to approve availability", zap.Error(err))
	}

	logger.Info("Availability created and approved",
		zap.String("id", availability.ID.String()),
		zap.Time("start_date", availability.StartDate),
		zap.Time("end_date", availability.EndDate))

	logger.Info("Seed completed")
}
