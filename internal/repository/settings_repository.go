package repository

import (
	"context"
	"fmt"

	"github.com/coachly/autoscheduler/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// autoSchedulingKey ключ настройки автопланирования в таблице settings
const autoSchedulingKey = "auto_scheduling"

type SettingsRepository struct {
	pool *pgxpool.Pool
}

func NewSettingsRepository(pool *pgxpool.Pool) *SettingsRepository {
	return &SettingsRepository{pool: pool}
}

// GetAutoScheduling читает сохранённый флаг автопланирования.
// Если настройка ещё не создавалась, возвращает выключенное состояние.
func (r *SettingsRepository) GetAutoScheduling(ctx context.Context) (*model.AutoSchedulingSettings, error) {
	query := `
		SELECT enabled, updated_at
		FROM settings
		WHERE key = $1
	`

	var settings model.AutoSchedulingSettings
	err := r.pool.QueryRow(ctx, query, autoSchedulingKey).Scan(&settings.Enabled, &settings.UpdatedAt)

	if err != nil {
		if err == pgx.ErrNoRows {
			return &model.AutoSchedulingSettings{}, nil
		}
		return nil, fmt.Errorf("get auto-scheduling settings: %w", err)
	}

	return &settings, nil
}

// SetAutoScheduling сохраняет флаг автопланирования
func (r *SettingsRepository) SetAutoScheduling(ctx context.Context, enabled bool) error {
	query := `
		INSERT INTO settings (key, enabled, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE
		SET enabled = EXCLUDED.enabled, updated_at = now()
	`

	_, err := r.pool.Exec(ctx, query, autoSchedulingKey, enabled)
	if err != nil {
		return fmt.Errorf("set auto-scheduling settings: %w", err)
	}

	return nil
}
