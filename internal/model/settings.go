package model

import "time"

// AutoSchedulingSettings сохранённое состояние переключателя автопланирования
type AutoSchedulingSettings struct {
	Enabled   bool      `json:"enabled"`
	UpdatedAt time.Time `json:"updated_at"`
}
