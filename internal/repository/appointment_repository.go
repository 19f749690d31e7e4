package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/coachly/autoscheduler/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type AppointmentRepository struct {
	pool *pgxpool.Pool
}

func NewAppointmentRepository(pool *pgxpool.Pool) *AppointmentRepository {
	return &AppointmentRepository{pool: pool}
}

// Create создаёт новую встречу
func (r *AppointmentRepository) Create(ctx context.Context, appointment *model.Appointment) error {
	if appointment.Status == "" {
		appointment.Status = model.AppointmentScheduled
	}

	query := `
		INSERT INTO appointments (customer_id, customer_name, coach_id, coach_name, date, status, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`

	err := r.pool.QueryRow(
		ctx, query,
		appointment.CustomerID,
		appointment.CustomerName,
		appointment.CoachID,
		appointment.CoachName,
		appointment.Date,
		appointment.Status,
		appointment.Notes,
	).Scan(&appointment.ID, &appointment.CreatedAt, &appointment.UpdatedAt)

	if err != nil {
		return fmt.Errorf("create appointment: %w", err)
	}

	return nil
}

// GetByID получает встречу по ID
func (r *AppointmentRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	query := `
		SELECT id, customer_id, customer_name, coach_id, coach_name, date, status, notes, created_at, updated_at
		FROM appointments
		WHERE id = $1
	`

	var appointment model.Appointment
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&appointment.ID,
		&appointment.CustomerID,
		&appointment.CustomerName,
		&appointment.CoachID,
		&appointment.CoachName,
		&appointment.Date,
		&appointment.Status,
		&appointment.Notes,
		&appointment.CreatedAt,
		&appointment.UpdatedAt,
	)

	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get appointment by id: %w", err)
	}

	return &appointment, nil
}

// ExistsAt проверяет, занят ли у тренера указанный момент времени
func (r *AppointmentRepository) ExistsAt(ctx context.Context, coachID uuid.UUID, at time.Time) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM appointments
			WHERE coach_id = $1 AND date = $2
		)
	`

	var exists bool
	err := r.pool.QueryRow(ctx, query, coachID, at).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check appointment exists: %w", err)
	}

	return exists, nil
}

// HasFutureForCustomer проверяет, есть ли у клиента встреча с датой >= now
func (r *AppointmentRepository) HasFutureForCustomer(ctx context.Context, customerID uuid.UUID, now time.Time) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM appointments
			WHERE customer_id = $1 AND date >= $2
		)
	`

	var exists bool
	err := r.pool.QueryRow(ctx, query, customerID, now).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check future appointment: %w", err)
	}

	return exists, nil
}

// UpdateStatus обновляет статус и заметки встречи
func (r *AppointmentRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.AppointmentStatus, notes string) error {
	query := `
		UPDATE appointments
		SET status = $1, notes = $2, updated_at = now()
		WHERE id = $3
	`

	result, err := r.pool.Exec(ctx, query, status, notes, id)
	if err != nil {
		return fmt.Errorf("update appointment status: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("appointment not found")
	}

	return nil
}
