package service_test

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/coachly/autoscheduler/internal/model"
	"github.com/coachly/autoscheduler/internal/service"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// In-memory фейки хранилища. Заменяют pgx-репозитории в тестах движка.

type fakeUserStore struct {
	customers []*model.User
	listErr   error
	countErr  error
}

func (f *fakeUserStore) CountByRole(_ context.Context, _ model.Role) (int, error) {
	if f.countErr != nil {
		return 0, f.countErr
	}
	return len(f.customers), nil
}

func (f *fakeUserStore) ListCustomersWithoutFutureAppointment(_ context.Context, _ time.Time) ([]*model.User, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.customers, nil
}

type fakeAvailabilityStore struct {
	availabilities []*model.Availability
	err            error
}

func (f *fakeAvailabilityStore) ListApproved(_ context.Context) ([]*model.Availability, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.availabilities, nil
}

type fakeAppointmentStore struct {
	mu           sync.Mutex
	appointments []*model.Appointment
	failCreates  int // сколько первых Create завершить ошибкой
	createCalls  int
	existsErr    error
}

func (f *fakeAppointmentStore) HasFutureForCustomer(_ context.Context, customerID uuid.UUID, now time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, appointment := range f.appointments {
		if appointment.CustomerID == customerID && !appointment.Date.Before(now) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeAppointmentStore) ExistsAt(_ context.Context, coachID uuid.UUID, at time.Time) (bool, error) {
	if f.existsErr != nil {
		return false, f.existsErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, appointment := range f.appointments {
		if appointment.CoachID == coachID && appointment.Date.Equal(at) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeAppointmentStore) Create(_ context.Context, appointment *model.Appointment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	if f.createCalls <= f.failCreates {
		return errors.New("store rejected the write")
	}

	appointment.ID = uuid.New()
	appointment.CreatedAt = time.Now()
	appointment.UpdatedAt = appointment.CreatedAt
	stored := *appointment
	f.appointments = append(f.appointments, &stored)
	return nil
}

func newCustomer(first, last string) *model.User {
	return &model.User{
		ID:        uuid.New(),
		Role:      model.RoleCustomer,
		FirstName: first,
		LastName:  last,
	}
}

// singleDayWindow одобренное окно на завтра с одной вечерней сессией
func singleDayWindow(coachID uuid.UUID, coachName string) *model.Availability {
	tomorrow := time.Now().AddDate(0, 0, 1)
	return &model.Availability{
		ID:           uuid.New(),
		CoachID:      coachID,
		CoachName:    coachName,
		StartDate:    tomorrow,
		EndDate:      tomorrow,
		SelectedDays: model.WeekdaySessions{int(tomorrow.Weekday()): {"session1"}},
		Status:       model.AvailabilityApproved,
	}
}

func newTestService(users *fakeUserStore, availability *fakeAvailabilityStore, appointments *fakeAppointmentStore) *service.SchedulingService {
	return service.NewSchedulingService(users, availability, appointments, zap.NewNop())
}

func TestRunAutoScheduling_CommitsEarliestSlot(t *testing.T) {
	coachID := uuid.New()
	customer := newCustomer("Max", "Berger")
	window := singleDayWindow(coachID, "Anna Keller")

	appointments := &fakeAppointmentStore{}
	svc := newTestService(
		&fakeUserStore{customers: []*model.User{customer}},
		&fakeAvailabilityStore{availabilities: []*model.Availability{window}},
		appointments,
	)

	result, err := svc.RunAutoScheduling(context.Background(), nil)
	require.NoError(t, err)
	require.True(t, result.Success)
	require.Equal(t, 1, result.AppointmentsCreated)
	require.Len(t, appointments.appointments, 1)

	created := appointments.appointments[0]
	tomorrow := time.Now().AddDate(0, 0, 1)
	earliest := time.Date(tomorrow.Year(), tomorrow.Month(), tomorrow.Day(), 17, 0, 0, 0, time.Local)
	require.True(t, created.Date.Equal(earliest), "engine must commit the earliest free slot")
	require.Equal(t, customer.ID, created.CustomerID)
	require.Equal(t, coachID, created.CoachID)
	require.Equal(t, "Max Berger", created.CustomerName)
	require.Equal(t, "Anna Keller", created.CoachName)
	require.Equal(t, model.AppointmentScheduled, created.Status)
}

func TestRunAutoScheduling_AtMostOneAppointmentPerCustomer(t *testing.T) {
	coachID := uuid.New()
	customer := newCustomer("Lena", "Hoffmann")

	// Большое окно с сессиями каждый день: слотов сотни, встреча одна
	now := time.Now()
	window := &model.Availability{
		ID:           uuid.New(),
		CoachID:      coachID,
		CoachName:    "Anna Keller",
		StartDate:    now,
		EndDate:      now.AddDate(0, 0, 14),
		SelectedDays: allDays("session1"),
		Status:       model.AvailabilityApproved,
	}

	appointments := &fakeAppointmentStore{}
	svc := newTestService(
		&fakeUserStore{customers: []*model.User{customer}},
		&fakeAvailabilityStore{availabilities: []*model.Availability{window}},
		appointments,
	)

	result, err := svc.RunAutoScheduling(context.Background(), nil)
	require.NoError(t, err)
	require.Equal(t, 1, result.AppointmentsCreated)
	require.Len(t, appointments.appointments, 1)
}

func TestRunAutoScheduling_NoDoubleBooking(t *testing.T) {
	coachID := uuid.New()
	first := newCustomer("Max", "Berger")
	second := newCustomer("Lena", "Hoffmann")
	window := singleDayWindow(coachID, "Anna Keller")

	appointments := &fakeAppointmentStore{}
	svc := newTestService(
		&fakeUserStore{customers: []*model.User{first, second}},
		&fakeAvailabilityStore{availabilities: []*model.Availability{window}},
		appointments,
	)

	result, err := svc.RunAutoScheduling(context.Background(), nil)
	require.NoError(t, err)
	require.Equal(t, 2, result.AppointmentsCreated)

	// Ни одна пара (тренер, момент) не встречается дважды
	seen := map[time.Time]bool{}
	for _, appointment := range appointments.appointments {
		require.Equal(t, coachID, appointment.CoachID)
		require.False(t, seen[appointment.Date], "two appointments share the same coach slot")
		seen[appointment.Date] = true
	}

	// Клиенты обрабатываются в порядке обнаружения: первый получает 17:00,
	// второй следующий слот 17:15
	require.True(t, appointments.appointments[1].Date.Sub(appointments.appointments[0].Date) == 15*time.Minute)
	require.Equal(t, first.ID, appointments.appointments[0].CustomerID)
	require.Equal(t, second.ID, appointments.appointments[1].CustomerID)
}

func TestRunAutoScheduling_SingleFreeSlotCompetition(t *testing.T) {
	coachID := uuid.New()
	first := newCustomer("Max", "Berger")
	second := newCustomer("Lena", "Hoffmann")
	window := singleDayWindow(coachID, "Anna Keller")

	// Занимаем чужими встречами все слоты окна, кроме одного
	slots := slices.Collect(service.AvailabilitySlots(window, time.Now()))
	require.NotEmpty(t, slots)
	freeSlot := slots[len(slots)-1]

	appointments := &fakeAppointmentStore{}
	for _, slot := range slots[:len(slots)-1] {
		appointments.appointments = append(appointments.appointments, &model.Appointment{
			ID:         uuid.New(),
			CustomerID: uuid.New(),
			CoachID:    coachID,
			Date:       slot,
			Status:     model.AppointmentScheduled,
		})
	}

	svc := newTestService(
		&fakeUserStore{customers: []*model.User{first, second}},
		&fakeAvailabilityStore{availabilities: []*model.Availability{window}},
		appointments,
	)

	result, err := svc.RunAutoScheduling(context.Background(), nil)
	require.NoError(t, err)
	require.Equal(t, 1, result.AppointmentsCreated, "only one customer can take the last free slot")

	var mine []*model.Appointment
	for _, appointment := range appointments.appointments {
		if appointment.CustomerID == first.ID || appointment.CustomerID == second.ID {
			mine = append(mine, appointment)
		}
	}
	require.Len(t, mine, 1)
	require.Equal(t, first.ID, mine[0].CustomerID, "the first discovered customer wins the slot")
	require.True(t, mine[0].Date.Equal(freeSlot))
}

func TestRunAutoScheduling_Deterministic(t *testing.T) {
	coachID := uuid.New()
	customers := []*model.User{
		newCustomer("Max", "Berger"),
		newCustomer("Lena", "Hoffmann"),
		newCustomer("Tom", "Wagner"),
	}
	window := singleDayWindow(coachID, "Anna Keller")

	run := func() []*model.Appointment {
		appointments := &fakeAppointmentStore{}
		svc := newTestService(
			&fakeUserStore{customers: customers},
			&fakeAvailabilityStore{availabilities: []*model.Availability{window}},
			appointments,
		)
		_, err := svc.RunAutoScheduling(context.Background(), nil)
		require.NoError(t, err)
		return appointments.appointments
	}

	first := run()
	second := run()

	require.Equal(t, len(first), len(second))
	for i := range first {
		require.Equal(t, first[i].CustomerID, second[i].CustomerID)
		require.True(t, first[i].Date.Equal(second[i].Date),
			"identical store snapshots must produce identical assignments")
	}
}

func TestRunAutoScheduling_NoCustomersShortCircuits(t *testing.T) {
	// Ошибка в хранилище доступности доказывает, что до него не дошли
	availability := &fakeAvailabilityStore{err: errors.New("must not be queried")}

	var snapshots []service.SchedulingProgress
	svc := newTestService(&fakeUserStore{}, availability, &fakeAppointmentStore{})

	result, err := svc.RunAutoScheduling(context.Background(), func(progress service.SchedulingProgress) {
		snapshots = append(snapshots, progress)
	})
	require.NoError(t, err)
	require.True(t, result.Success)
	require.Equal(t, 0, result.AppointmentsCreated)

	final := snapshots[len(snapshots)-1]
	for _, step := range final.Steps {
		require.Equal(t, service.StepCompleted, step.Status)
	}
}

func TestRunAutoScheduling_NoAvailabilitiesShortCircuits(t *testing.T) {
	customer := newCustomer("Max", "Berger")
	appointments := &fakeAppointmentStore{}

	var snapshots []service.SchedulingProgress
	svc := newTestService(
		&fakeUserStore{customers: []*model.User{customer}},
		&fakeAvailabilityStore{},
		appointments,
	)

	result, err := svc.RunAutoScheduling(context.Background(), func(progress service.SchedulingProgress) {
		snapshots = append(snapshots, progress)
	})
	require.NoError(t, err)
	require.True(t, result.Success)
	require.Equal(t, 0, result.AppointmentsCreated)
	require.Zero(t, appointments.createCalls)

	final := snapshots[len(snapshots)-1]
	require.Equal(t, service.StepCompleted, final.Steps[2].Status)
	require.Equal(t, "No available time slots", final.Steps[2].Details)
}

func TestRunAutoScheduling_WriteFailureFallsBackToNextSlot(t *testing.T) {
	coachID := uuid.New()
	customer := newCustomer("Max", "Berger")
	window := singleDayWindow(coachID, "Anna Keller")

	// Первая запись отклонена хранилищем, вторая проходит
	appointments := &fakeAppointmentStore{failCreates: 1}
	svc := newTestService(
		&fakeUserStore{customers: []*model.User{customer}},
		&fakeAvailabilityStore{availabilities: []*model.Availability{window}},
		appointments,
	)

	result, err := svc.RunAutoScheduling(context.Background(), nil)
	require.NoError(t, err)
	require.True(t, result.Success)
	require.Equal(t, 1, result.AppointmentsCreated)
	require.Len(t, appointments.appointments, 1)

	tomorrow := time.Now().AddDate(0, 0, 1)
	secondSlot := time.Date(tomorrow.Year(), tomorrow.Month(), tomorrow.Day(), 17, 15, 0, 0, time.Local)
	require.True(t, appointments.appointments[0].Date.Equal(secondSlot),
		"after a write failure the next candidate slot must be used")
}

func TestRunAutoScheduling_CustomerDiscoveryErrorMarksStep(t *testing.T) {
	var snapshots []service.SchedulingProgress
	svc := newTestService(
		&fakeUserStore{listErr: errors.New("store down")},
		&fakeAvailabilityStore{},
		&fakeAppointmentStore{},
	)

	result, err := svc.RunAutoScheduling(context.Background(), func(progress service.SchedulingProgress) {
		snapshots = append(snapshots, progress)
	})
	require.Error(t, err)
	require.Nil(t, result)

	final := snapshots[len(snapshots)-1]
	require.Equal(t, service.StepError, final.Steps[0].Status)
}

func TestRunAutoScheduling_AvailabilityDiscoveryErrorMarksStep(t *testing.T) {
	customer := newCustomer("Max", "Berger")

	var snapshots []service.SchedulingProgress
	svc := newTestService(
		&fakeUserStore{customers: []*model.User{customer}},
		&fakeAvailabilityStore{err: errors.New("store down")},
		&fakeAppointmentStore{},
	)

	result, err := svc.RunAutoScheduling(context.Background(), func(progress service.SchedulingProgress) {
		snapshots = append(snapshots, progress)
	})
	require.Error(t, err)
	require.Nil(t, result)

	final := snapshots[len(snapshots)-1]
	require.Equal(t, service.StepCompleted, final.Steps[0].Status)
	require.Equal(t, service.StepError, final.Steps[1].Status)
}

func TestRunAutoScheduling_ConflictCheckErrorAbortsRun(t *testing.T) {
	coachID := uuid.New()
	customer := newCustomer("Max", "Berger")
	window := singleDayWindow(coachID, "Anna Keller")

	var snapshots []service.SchedulingProgress
	svc := newTestService(
		&fakeUserStore{customers: []*model.User{customer}},
		&fakeAvailabilityStore{availabilities: []*model.Availability{window}},
		&fakeAppointmentStore{existsErr: errors.New("store down")},
	)

	result, err := svc.RunAutoScheduling(context.Background(), func(progress service.SchedulingProgress) {
		snapshots = append(snapshots, progress)
	})
	require.Error(t, err)
	require.Nil(t, result)

	final := snapshots[len(snapshots)-1]
	require.Equal(t, service.StepError, final.Steps[2].Status)
}

func TestRunAutoScheduling_SkipsCustomerBookedSinceDiscovery(t *testing.T) {
	coachID := uuid.New()
	customer := newCustomer("Max", "Berger")
	window := singleDayWindow(coachID, "Anna Keller")

	// Клиент уже получил встречу после того, как попал в выборку:
	// защитная перепроверка должна его пропустить
	appointments := &fakeAppointmentStore{
		appointments: []*model.Appointment{{
			ID:         uuid.New(),
			CustomerID: customer.ID,
			CoachID:    uuid.New(),
			Date:       time.Now().AddDate(0, 0, 3),
			Status:     model.AppointmentScheduled,
		}},
	}

	svc := newTestService(
		&fakeUserStore{customers: []*model.User{customer}},
		&fakeAvailabilityStore{availabilities: []*model.Availability{window}},
		appointments,
	)

	result, err := svc.RunAutoScheduling(context.Background(), nil)
	require.NoError(t, err)
	require.Equal(t, 0, result.AppointmentsCreated)
	require.Zero(t, appointments.createCalls)
}

func TestRunAutoScheduling_SnapshotsAreIndependentCopies(t *testing.T) {
	coachID := uuid.New()
	customer := newCustomer("Max", "Berger")
	window := singleDayWindow(coachID, "Anna Keller")

	var snapshots []service.SchedulingProgress
	svc := newTestService(
		&fakeUserStore{customers: []*model.User{customer}},
		&fakeAvailabilityStore{availabilities: []*model.Availability{window}},
		&fakeAppointmentStore{},
	)

	_, err := svc.RunAutoScheduling(context.Background(), func(progress service.SchedulingProgress) {
		snapshots = append(snapshots, progress)
	})
	require.NoError(t, err)
	require.NotEmpty(t, snapshots)

	// Первый снимок зафиксировал начало шага 1 и не изменился задним числом
	require.Equal(t, service.StepProcessing, snapshots[0].Steps[0].Status)
	require.Equal(t, service.StepPending, snapshots[0].Steps[1].Status)

	final := snapshots[len(snapshots)-1]
	for _, step := range final.Steps {
		require.Equal(t, service.StepCompleted, step.Status)
	}
	require.Equal(t, 1, final.Stats.AppointmentsCreated)
	require.Equal(t, 1, final.Stats.CustomersWithoutAppointments)
	require.Equal(t, 1, final.Stats.AvailableCoaches)
	require.Empty(t, final.CurrentCustomer)
	require.Empty(t, final.CurrentAction)
}

func TestRunAutoScheduling_PanickingSubscriberDoesNotAbortRun(t *testing.T) {
	coachID := uuid.New()
	customer := newCustomer("Max", "Berger")
	window := singleDayWindow(coachID, "Anna Keller")

	appointments := &fakeAppointmentStore{}
	svc := newTestService(
		&fakeUserStore{customers: []*model.User{customer}},
		&fakeAvailabilityStore{availabilities: []*model.Availability{window}},
		appointments,
	)

	result, err := svc.RunAutoScheduling(context.Background(), func(service.SchedulingProgress) {
		panic("subscriber exploded")
	})
	require.NoError(t, err)
	require.Equal(t, 1, result.AppointmentsCreated)
	require.Len(t, appointments.appointments, 1)
}
