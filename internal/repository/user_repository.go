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

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// Create создаёт нового пользователя
func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	query := `
		INSERT INTO users (role, first_name, last_name, email)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`

	err := r.pool.QueryRow(
		ctx, query,
		user.Role,
		user.FirstName,
		user.LastName,
		user.Email,
	).Scan(&user.ID, &user.CreatedAt)

	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}

	return nil
}

// GetByID получает пользователя по ID
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	query := `
		SELECT id, role, first_name, last_name, email, created_at
		FROM users
		WHERE id = $1
	`

	var user model.User
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&user.ID,
		&user.Role,
		&user.FirstName,
		&user.LastName,
		&user.Email,
		&user.CreatedAt,
	)

	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get user by id: %w", err)
	}

	return &user, nil
}

// CountByRole считает пользователей с указанной ролью
func (r *UserRepository) CountByRole(ctx context.Context, role model.Role) (int, error) {
	query := `SELECT COUNT(*) FROM users WHERE role = $1`

	var count int
	err := r.pool.QueryRow(ctx, query, role).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count users by role: %w", err)
	}

	return count, nil
}

// ListCustomersWithoutFutureAppointment возвращает клиентов, у которых нет
// ни одной встречи с датой >= now. Порядок стабилен между запусками:
// от него зависит, кто из клиентов получит более ранний слот.
func (r *UserRepository) ListCustomersWithoutFutureAppointment(ctx context.Context, now time.Time) ([]*model.User, error) {
	query := `
		SELECT u.id, u.role, u.first_name, u.last_name, u.email, u.created_at
		FROM users u
		WHERE u.role = 'customer'
		  AND NOT EXISTS (
			SELECT 1 FROM appointments a
			WHERE a.customer_id = u.id AND a.date >= $1
		  )
		ORDER BY u.created_at, u.id
	`

	rows, err := r.pool.Query(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("list customers without future appointment: %w", err)
	}
	defer rows.Close()

	var customers []*model.User
	for rows.Next() {
		var user model.User
		err := rows.Scan(
			&user.ID,
			&user.Role,
			&user.FirstName,
			&user.LastName,
			&user.Email,
			&user.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan customer: %w", err)
		}
		customers = append(customers, &user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate customers: %w", err)
	}

	return customers, nil
}
