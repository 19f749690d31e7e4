package repository

import (
	"context"
	"fmt"

	"github.com/coachly/autoscheduler/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type AvailabilityRepository struct {
	pool *pgxpool.Pool
}

func NewAvailabilityRepository(pool *pgxpool.Pool) *AvailabilityRepository {
	return &AvailabilityRepository{pool: pool}
}

// Create создаёт новое окно доступности со статусом pending
func (r *AvailabilityRepository) Create(ctx context.Context, availability *model.Availability) error {
	if availability.Status == "" {
		availability.Status = model.AvailabilityPending
	}

	query := `
		INSERT INTO availabilities (coach_id, start_date, end_date, selected_days, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`

	err := r.pool.QueryRow(
		ctx, query,
		availability.CoachID,
		availability.StartDate,
		availability.EndDate,
		availability.SelectedDays,
		availability.Status,
	).Scan(&availability.ID, &availability.CreatedAt, &availability.UpdatedAt)

	if err != nil {
		return fmt.Errorf("create availability: %w", err)
	}

	return nil
}

// UpdateStatus меняет статус окна доступности (одобрение/отклонение админом)
func (r *AvailabilityRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.AvailabilityStatus) error {
	query := `
		UPDATE availabilities
		SET status = $1, updated_at = now()
		WHERE id = $2
	`

	result, err := r.pool.Exec(ctx, query, status, id)
	if err != nil {
		return fmt.Errorf("update availability status: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("availability not found")
	}

	return nil
}

// ListApproved возвращает все одобренные окна доступности вместе с именем
// тренера. Истёкшие окна не отфильтровываются здесь: это забота генератора
// слотов. Порядок стабилен между запусками.
func (r *AvailabilityRepository) ListApproved(ctx context.Context) ([]*model.Availability, error) {
	query := `
		SELECT a.id, a.coach_id, a.start_date, a.end_date, a.selected_days, a.status,
		       a.created_at, a.updated_at, u.first_name || ' ' || u.last_name AS coach_name
		FROM availabilities a
		JOIN users u ON u.id = a.coach_id
		WHERE a.status = 'approved'
		ORDER BY a.created_at, a.id
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list approved availabilities: %w", err)
	}
	defer rows.Close()

	var availabilities []*model.Availability
	for rows.Next() {
		var availability model.Availability
		err := rows.Scan(
			&availability.ID,
			&availability.CoachID,
			&availability.StartDate,
			&availability.EndDate,
			&availability.SelectedDays,
			&availability.Status,
			&availability.CreatedAt,
			&availability.UpdatedAt,
			&availability.CoachName,
		)
		if err != nil {
			return nil, fmt.Errorf("scan availability: %w", err)
		}
		availabilities = append(availabilities, &availability)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate availabilities: %w", err)
	}

	return availabilities, nil
}
