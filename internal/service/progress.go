package service

import "go.uber.org/zap"

type StepStatus string

const (
	StepPending    StepStatus = "pending"
	StepProcessing StepStatus = "processing"
	StepCompleted  StepStatus = "completed"
	StepError      StepStatus = "error"
)

// Метки шагов автопланирования
const (
	StepLabelCustomers      = "Finding customers"
	StepLabelAvailabilities = "Checking availabilities"
	StepLabelAppointments   = "Creating appointments"
)

// Индексы шагов в SchedulingProgress.Steps
const (
	stepCustomers = iota
	stepAvailabilities
	stepAppointments
)

// SchedulingStep один шаг процесса автопланирования
type SchedulingStep struct {
	Label   string     `json:"label"`
	Status  StepStatus `json:"status"`
	Details string     `json:"details,omitempty"`
}

// SchedulingStats счётчики одного запуска автопланирования
type SchedulingStats struct {
	TotalCustomers               int `json:"total_customers"`
	CustomersWithoutAppointments int `json:"customers_without_appointments"`
	AvailableCoaches             int `json:"available_coaches"`
	AvailableSlots               int `json:"available_slots"`
	SlotsChecked                 int `json:"slots_checked"`
	CustomersProcessed           int `json:"customers_processed"`
	AppointmentsCreated          int `json:"appointments_created"`
}

// SchedulingProgress снимок состояния одного запуска. Живёт только в памяти
// и отдаётся подписчику после каждого значимого перехода.
type SchedulingProgress struct {
	Steps           []SchedulingStep `json:"steps"`
	Stats           SchedulingStats  `json:"stats"`
	CurrentCustomer string           `json:"current_customer,omitempty"`
	CurrentCoach    string           `json:"current_coach,omitempty"`
	CurrentAction   string           `json:"current_action,omitempty"`
}

// ProgressFunc подписчик прогресса, вызывается синхронно на каждый переход
type ProgressFunc func(SchedulingProgress)

// SchedulingResult итог одного запуска автопланирования
type SchedulingResult struct {
	Success             bool `json:"success"`
	AppointmentsCreated int  `json:"appointments_created"`
}

// NewPendingSteps возвращает начальный набор шагов в статусе pending
func NewPendingSteps() []SchedulingStep {
	return []SchedulingStep{
		{Label: StepLabelCustomers, Status: StepPending},
		{Label: StepLabelAvailabilities, Status: StepPending},
		{Label: StepLabelAppointments, Status: StepPending},
	}
}

// progressTracker держит текущее состояние запуска и рассылает его подписчику
type progressTracker struct {
	progress   SchedulingProgress
	onProgress ProgressFunc
	logger     *zap.Logger
}

func newProgressTracker(onProgress ProgressFunc, logger *zap.Logger) *progressTracker {
	return &progressTracker{
		progress:   SchedulingProgress{Steps: NewPendingSteps()},
		onProgress: onProgress,
		logger:     logger,
	}
}

// setStep переводит шаг в новый статус и отправляет снимок.
// Пустой details оставляет прежний текст шага.
func (t *progressTracker) setStep(step int, status StepStatus, details string) {
	t.progress.Steps[step].Status = status
	if details != "" {
		t.progress.Steps[step].Details = details
	}
	t.emit()
}

// setCurrent обновляет указатели "сейчас обрабатывается" и отправляет снимок
func (t *progressTracker) setCurrent(customer, coach, action string) {
	t.progress.CurrentCustomer = customer
	t.progress.CurrentCoach = coach
	t.progress.CurrentAction = action
	t.emit()
}

// emit отдаёт подписчику независимую копию снимка: последующие переходы не
// должны менять уже отданные снимки. Паника подписчика не роняет запуск.
func (t *progressTracker) emit() {
	if t.onProgress == nil {
		return
	}

	snapshot := t.progress
	snapshot.Steps = make([]SchedulingStep, len(t.progress.Steps))
	copy(snapshot.Steps, t.progress.Steps)

	defer func() {
		if r := recover(); r != nil {
			t.logger.Warn("Progress subscriber panicked", zap.Any("panic", r))
		}
	}()

	t.onProgress(snapshot)
}
