package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Gunvolt24/dms_events/internal/domain"
	"github.com/Gunvolt24/dms_events/internal/ports"
)

// Проверка, что UserRepository удовлетворяет интерфейсу UserRepository.
var _ ports.UserRepository = (*UserRepository)(nil)

// UserRepository — проекция профилей пользователей на Postgres (pgxpool).
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository - конструктор UserRepository.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository { return &UserRepository{pool: pool} }

const userColumns = `id, username, email, role_id, is_active, phone, gender, birthdate, updated_at`

// Upsert — идемпотентная запись профиля. Более старое событие (updated_at меньше сохранённого)
// не перетирает свежие данные, поэтому повторная доставка безопасна.
func (r *UserRepository) Upsert(ctx context.Context, user *domain.UserProfile) error {
	if user == nil || user.ID == uuid.Nil {
		return errors.New("user is empty or id is required")
	}

	updatedAt := user.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}

	var gender *string
	if user.Gender != "" {
		g := string(user.Gender)
		gender = &g
	}

	if _, err := r.pool.Exec(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			username = EXCLUDED.username,
			email = EXCLUDED.email,
			role_id = EXCLUDED.role_id,
			is_active = EXCLUDED.is_active,
			phone = EXCLUDED.phone,
			gender = EXCLUDED.gender,
			birthdate = EXCLUDED.birthdate,
			updated_at = EXCLUDED.updated_at
		WHERE users.updated_at <= EXCLUDED.updated_at
	`,
		user.ID, user.Username, user.Email, user.RoleID, user.IsActive,
		user.Phone, gender, user.Birthdate, updatedAt,
	); err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

// GetByID — профиль по id. Если не нашли, возвращает (nil, nil).
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.UserProfile, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select user: %w", err)
	}
	return user, nil
}

// LastUpdated — последние N изменённых профилей (для прогрева кэша).
func (r *UserRepository) LastUpdated(ctx context.Context, n int) ([]*domain.UserProfile, error) {
	if n <= 0 {
		return nil, nil
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+userColumns+`
		FROM users
		ORDER BY updated_at DESC, id
		LIMIT $1
	`, n)
	if err != nil {
		return nil, fmt.Errorf("select last users: %w", err)
	}
	defer rows.Close()

	result := make([]*domain.UserProfile, 0, n)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		result = append(result, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("users rows: %w", err)
	}
	return result, nil
}

func scanUser(row pgx.Row) (*domain.UserProfile, error) {
	var (
		user   domain.UserProfile
		gender *string
	)
	if err := row.Scan(
		&user.ID, &user.Username, &user.Email, &user.RoleID, &user.IsActive,
		&user.Phone, &gender, &user.Birthdate, &user.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if gender != nil {
		user.Gender = domain.Gender(*gender)
	}
	return &user, nil
}
