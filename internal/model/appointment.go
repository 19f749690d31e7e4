package model

import (
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	AppointmentScheduled AppointmentStatus = "scheduled"
	AppointmentCompleted AppointmentStatus = "completed"
	AppointmentMissed    AppointmentStatus = "missed"
)

// Appointment представляет встречу клиента с тренером.
// Уникальность пары (coach_id, date) обеспечивает движок планирования
// проверкой перед каждой записью, а не хранилище.
type Appointment struct {
	ID           uuid.UUID         `json:"id"`
	CustomerID   uuid.UUID         `json:"customer_id"`
	CustomerName string            `json:"customer_name"`
	CoachID      uuid.UUID         `json:"coach_id"`
	CoachName    string            `json:"coach_name"`
	Date         time.Time         `json:"date"`
	Status       AppointmentStatus `json:"status"`
	Notes        string            `json:"notes,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}
