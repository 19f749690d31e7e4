package service

import (
	"context"
	"fmt"
	"time"

	"github.com/coachly/autoscheduler/internal/model"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Интерфейсы хранилища. В бою реализуются pgx-репозиториями,
// в тестах подменяются in-memory фейками.

type UserStore interface {
	CountByRole(ctx context.Context, role model.Role) (int, error)
	ListCustomersWithoutFutureAppointment(ctx context.Context, now time.Time) ([]*model.User, error)
}

type AvailabilityStore interface {
	ListApproved(ctx context.Context) ([]*model.Availability, error)
}

type AppointmentStore interface {
	HasFutureForCustomer(ctx context.Context, customerID uuid.UUID, now time.Time) (bool, error)
	ExistsAt(ctx context.Context, coachID uuid.UUID, at time.Time) (bool, error)
	Create(ctx context.Context, appointment *model.Appointment) error
}

// SchedulingService подбирает встречи клиентам без будущих встреч на основе
// одобренных окон доступности тренеров
type SchedulingService struct {
	users        UserStore
	availability AvailabilityStore
	appointments AppointmentStore
	logger       *zap.Logger
}

func NewSchedulingService(
	users UserStore,
	availability AvailabilityStore,
	appointments AppointmentStore,
	logger *zap.Logger,
) *SchedulingService {
	return &SchedulingService{
		users:        users,
		availability: availability,
		appointments: appointments,
		logger:       logger,
	}
}

// RunAutoScheduling выполняет один полный цикл автопланирования: находит
// клиентов без будущих встреч, разворачивает одобренные окна доступности в
// слоты и бронирует каждому клиенту первый свободный слот (не более одной
// встречи на клиента за запуск).
//
// onProgress получает снимок после каждого перехода; может быть nil.
// Уже созданные встречи не откатываются при ошибке: запуск не транзакционен.
func (s *SchedulingService) RunAutoScheduling(ctx context.Context, onProgress ProgressFunc) (*SchedulingResult, error) {
	tracker := newProgressTracker(onProgress, s.logger)
	now := time.Now()

	s.logger.Info("Auto-scheduling run started")

	// Шаг 1: клиенты без будущих встреч
	tracker.setStep(stepCustomers, StepProcessing, "")

	totalCustomers, err := s.users.CountByRole(ctx, model.RoleCustomer)
	if err != nil {
		tracker.setStep(stepCustomers, StepError, "Failed to load customers")
		return nil, fmt.Errorf("count customers: %w", err)
	}

	customers, err := s.users.ListCustomersWithoutFutureAppointment(ctx, now)
	if err != nil {
		tracker.setStep(stepCustomers, StepError, "Failed to load customers")
		return nil, fmt.Errorf("list customers without future appointment: %w", err)
	}

	tracker.progress.Stats.TotalCustomers = totalCustomers
	tracker.progress.Stats.CustomersWithoutAppointments = len(customers)
	tracker.setStep(stepCustomers, StepCompleted,
		fmt.Sprintf("Found %d customers without appointments", len(customers)))

	if len(customers) == 0 {
		tracker.setStep(stepAvailabilities, StepCompleted, "No customers need appointments")
		tracker.setStep(stepAppointments, StepCompleted, "No appointments needed")
		s.logger.Info("Auto-scheduling run completed: no customers need appointments")
		return &SchedulingResult{Success: true}, nil
	}

	// Шаг 2: одобренные окна доступности
	tracker.setStep(stepAvailabilities, StepProcessing, "")

	availabilities, err := s.availability.ListApproved(ctx)
	if err != nil {
		tracker.setStep(stepAvailabilities, StepError, "Failed to load availabilities")
		return nil, fmt.Errorf("list approved availabilities: %w", err)
	}

	tracker.progress.Stats.AvailableCoaches = countCoaches(availabilities)
	tracker.setStep(stepAvailabilities, StepCompleted,
		fmt.Sprintf("Found %d approved availabilities", len(availabilities)))

	if len(availabilities) == 0 {
		tracker.setStep(stepAppointments, StepCompleted, "No available time slots")
		s.logger.Info("Auto-scheduling run completed: no approved availabilities")
		return &SchedulingResult{Success: true}, nil
	}

	// Шаг 3: подбор и создание встреч
	tracker.setStep(stepAppointments, StepProcessing, "")

	for i, customer := range customers {
		tracker.progress.Stats.CustomersProcessed = i + 1
		tracker.setCurrent(customer.FullName(), "",
			fmt.Sprintf("Processing customer %d/%d", i+1, len(customers)))

		// Защитная перепроверка: клиент мог получить встречу, пока шёл обход
		hasFuture, err := s.appointments.HasFutureForCustomer(ctx, customer.ID, now)
		if err != nil {
			tracker.setStep(stepAppointments, StepError, "Failed to check existing appointments")
			return nil, fmt.Errorf("check existing appointments: %w", err)
		}
		if hasFuture {
			s.logger.Debug("Customer already has an upcoming appointment, skipping",
				zap.String("customer_id", customer.ID.String()))
			continue
		}

		if err := s.matchCustomer(ctx, tracker, customer, availabilities, now); err != nil {
			tracker.setStep(stepAppointments, StepError, "Failed to check slot availability")
			return nil, err
		}
	}

	created := tracker.progress.Stats.AppointmentsCreated
	tracker.progress.CurrentCustomer = ""
	tracker.progress.CurrentCoach = ""
	tracker.progress.CurrentAction = ""
	tracker.setStep(stepAppointments, StepCompleted,
		fmt.Sprintf("Created %d appointments for %d customers", created, len(customers)))

	s.logger.Info("Auto-scheduling run completed",
		zap.Int("customers_processed", len(customers)),
		zap.Int("appointments_created", created))

	return &SchedulingResult{Success: true, AppointmentsCreated: created}, nil
}

// matchCustomer ищет первый свободный слот для клиента и создаёт встречу.
// Клиент получает не более одной встречи за запуск; если свободного слота
// не нашлось, клиент остаётся без встречи, это не ошибка.
func (s *SchedulingService) matchCustomer(
	ctx context.Context,
	tracker *progressTracker,
	customer *model.User,
	availabilities []*model.Availability,
	now time.Time,
) error {
	for _, availability := range availabilities {
		tracker.setCurrent(customer.FullName(), availability.CoachName, "Checking slot availability")

		for slot := range AvailabilitySlots(availability, now) {
			tracker.progress.Stats.AvailableSlots++
			tracker.progress.Stats.SlotsChecked++
			tracker.setCurrent(customer.FullName(), availability.CoachName,
				fmt.Sprintf("Checking slot: %s", slot.Format(slotTimeFormat)))

			taken, err := s.appointments.ExistsAt(ctx, availability.CoachID, slot)
			if err != nil {
				return fmt.Errorf("check slot conflict: %w", err)
			}
			if taken {
				continue
			}

			appointment := &model.Appointment{
				CustomerID:   customer.ID,
				CustomerName: customer.FullName(),
				CoachID:      availability.CoachID,
				CoachName:    availability.CoachName,
				Date:         slot,
				Status:       model.AppointmentScheduled,
			}

			if err := s.appointments.Create(ctx, appointment); err != nil {
				// Ошибка записи не прерывает запуск: пробуем следующий слот
				s.logger.Warn("Failed to create appointment, trying next slot",
					zap.String("customer_id", customer.ID.String()),
					zap.String("coach_id", availability.CoachID.String()),
					zap.Time("date", slot),
					zap.Error(err))
				continue
			}

			tracker.progress.Stats.AppointmentsCreated++
			tracker.setCurrent(customer.FullName(), availability.CoachName,
				fmt.Sprintf("Created appointment for %s", slot.Format(slotTimeFormat)))

			s.logger.Info("Appointment created",
				zap.String("appointment_id", appointment.ID.String()),
				zap.String("customer_id", customer.ID.String()),
				zap.String("coach_id", availability.CoachID.String()),
				zap.Time("date", slot))

			return nil
		}
	}

	return nil
}

// countCoaches считает уникальных тренеров среди окон доступности
func countCoaches(availabilities []*model.Availability) int {
	coaches := make(map[uuid.UUID]struct{}, len(availabilities))
	for _, availability := range availabilities {
		coaches[availability.CoachID] = struct{}{}
	}
	return len(coaches)
}
