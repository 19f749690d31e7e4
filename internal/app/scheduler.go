package app

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coachly/autoscheduler/internal/model"
	"github.com/coachly/autoscheduler/internal/service"
	"go.uber.org/zap"
)

// SchedulingRunner выполняет один цикл автопланирования
type SchedulingRunner interface {
	RunAutoScheduling(ctx context.Context, onProgress service.ProgressFunc) (*service.SchedulingResult, error)
}

// SettingsStore персистентное хранилище флага автопланирования
type SettingsStore interface {
	GetAutoScheduling(ctx context.Context) (*model.AutoSchedulingSettings, error)
	SetAutoScheduling(ctx context.Context, enabled bool) error
}

// RunObserver получает итоги завершённых запусков. Может быть nil.
type RunObserver interface {
	RunCompleted(ctx context.Context, appointmentsCreated int)
	RunFailed(ctx context.Context, err error)
}

// AutoScheduler управляет периодическими запусками автопланирования.
// Флаг включения сохраняется в настройках и переживает перезапуск процесса.
// В один момент времени выполняется не более одного запуска: тик, пришедший
// во время работы предыдущего запуска, молча пропускается.
type AutoScheduler struct {
	runner     SchedulingRunner
	settings   SettingsStore
	observer   RunObserver
	onProgress service.ProgressFunc
	interval   time.Duration
	logger     *zap.Logger

	mu       sync.Mutex
	stopChan chan struct{}
	armed    bool        // армирован ли таймер
	inFlight atomic.Bool // выполняется ли запуск прямо сейчас
}

// NewAutoScheduler создаёт новый контроллер автопланирования
func NewAutoScheduler(
	runner SchedulingRunner,
	settings SettingsStore,
	observer RunObserver,
	onProgress service.ProgressFunc,
	interval time.Duration,
	logger *zap.Logger,
) *AutoScheduler {
	return &AutoScheduler{
		runner:     runner,
		settings:   settings,
		observer:   observer,
		onProgress: onProgress,
		interval:   interval,
		logger:     logger,
	}
}

// Resume восстанавливает состояние после старта процесса: если
// автопланирование было включено, сразу выполняет запуск и армирует таймер.
func (s *AutoScheduler) Resume(ctx context.Context) error {
	settings, err := s.settings.GetAutoScheduling(ctx)
	if err != nil {
		return fmt.Errorf("load auto-scheduling settings: %w", err)
	}

	if !settings.Enabled {
		s.logger.Info("Auto-scheduling is disabled, waiting for enable")
		return nil
	}

	s.logger.Info("Auto-scheduling was enabled, resuming",
		zap.Duration("interval", s.interval))
	s.arm(ctx)
	return nil
}

// Enable включает автопланирование: сохраняет флаг, сразу выполняет запуск
// и армирует таймер
func (s *AutoScheduler) Enable(ctx context.Context) error {
	if err := s.settings.SetAutoScheduling(ctx, true); err != nil {
		return fmt.Errorf("persist auto-scheduling flag: %w", err)
	}

	s.logger.Info("Auto-scheduling enabled", zap.Duration("interval", s.interval))
	s.arm(ctx)
	return nil
}

// Disable выключает автопланирование: сохраняет флаг, снимает таймер и
// сбрасывает прогресс в исходное состояние. Уже идущий запуск не прерывается,
// выключение предотвращает только будущие запуски.
func (s *AutoScheduler) Disable(ctx context.Context) error {
	if err := s.settings.SetAutoScheduling(ctx, false); err != nil {
		return fmt.Errorf("persist auto-scheduling flag: %w", err)
	}

	s.disarm()

	if s.onProgress != nil {
		s.onProgress(service.SchedulingProgress{Steps: service.NewPendingSteps()})
	}

	s.logger.Info("Auto-scheduling disabled")
	return nil
}

// Stop снимает таймер без изменения сохранённого флага (graceful shutdown)
func (s *AutoScheduler) Stop() {
	s.disarm()
}

// RunNow выполняет один запуск вне расписания. Если предыдущий запуск ещё
// не завершился, новый молча пропускается: движок не рассчитан на
// параллельные запуски, они бы обесценили проверку конфликтов.
func (s *AutoScheduler) RunNow(ctx context.Context) {
	if !s.inFlight.CompareAndSwap(false, true) {
		s.logger.Info("Skipping scheduled run: previous run still in progress")
		return
	}
	defer s.inFlight.Store(false)

	result, err := s.runner.RunAutoScheduling(ctx, s.onProgress)
	if err != nil {
		s.logger.Error("Auto-scheduling run failed", zap.Error(err))
		if s.observer != nil {
			s.observer.RunFailed(ctx, err)
		}
		return
	}

	if s.observer != nil {
		s.observer.RunCompleted(ctx, result.AppointmentsCreated)
	}
}

// arm армирует таймер, если он ещё не армирован
func (s *AutoScheduler) arm(ctx context.Context) {
	s.mu.Lock()
	if s.armed {
		s.mu.Unlock()
		return
	}
	s.stopChan = make(chan struct{})
	s.armed = true
	stop := s.stopChan
	s.mu.Unlock()

	go s.loop(ctx, stop)
}

// disarm снимает таймер, если он армирован
func (s *AutoScheduler) disarm() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.armed {
		close(s.stopChan)
		s.armed = false
	}
}

// loop выполняет первый запуск сразу, дальше по таймеру
func (s *AutoScheduler) loop(ctx context.Context, stop chan struct{}) {
	s.RunNow(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.RunNow(ctx)
		case <-stop:
			s.logger.Info("Auto-scheduling timer stopped")
			return
		case <-ctx.Done():
			s.logger.Info("Auto-scheduling loop cancelled")
			return
		}
	}
}
