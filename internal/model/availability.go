package model

import (
	"time"

	"github.com/google/uuid"
)

type AvailabilityStatus string

const (
	AvailabilityPending  AvailabilityStatus = "pending"  // Ожидает одобрения админом
	AvailabilityApproved AvailabilityStatus = "approved" // Одобрено, участвует в планировании
	AvailabilityRejected AvailabilityStatus = "rejected" // Отклонено
)

// WeekdaySessions сопоставляет день недели (0 = воскресенье, 6 = суббота)
// со списком кодов сессий, выбранных тренером для этого дня
type WeekdaySessions map[int][]string

// Availability представляет окно доступности тренера: диапазон дат плюс
// недельный шаблон сессий. Создаётся тренером, одобряется админом,
// планировщик читает только одобренные окна.
type Availability struct {
	ID           uuid.UUID          `json:"id"`
	CoachID      uuid.UUID          `json:"coach_id"`
	StartDate    time.Time          `json:"start_date"`
	EndDate      time.Time          `json:"end_date"`
	SelectedDays WeekdaySessions    `json:"selected_days"`
	Status       AvailabilityStatus `json:"status"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`

	// Имя тренера, заполняется join'ом (не колонка availabilities)
	CoachName string `json:"coach_name,omitempty"`
}
