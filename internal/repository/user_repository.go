package repository

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/studio_scheduler/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const userColumns = `id, COALESCE(telegram_id, 0), username, first_name, last_name, email, instrument, role, created_at`

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// Create creates a new user
func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	query := `
		INSERT INTO users (telegram_id, username, first_name, last_name, email, instrument, role)
		VALUES (NULLIF($1::bigint, 0), $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`

	err := r.pool.QueryRow(
		ctx, query,
		user.TelegramID,
		user.Username,
		user.FirstName,
		user.LastName,
		user.Email,
		user.Instrument,
		user.Role,
	).Scan(&user.ID, &user.CreatedAt)

	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}

	return nil
}

// GetByTelegramID returns nil, nil when nobody is linked to the Telegram account.
func (r *UserRepository) GetByTelegramID(ctx context.Context, telegramID int64) (*model.User, error) {
	user, err := r.getOne(ctx, `WHERE telegram_id = $1`, telegramID)
	if err != nil {
		return nil, fmt.Errorf("get user by telegram id: %w", err)
	}
	return user, nil
}

// GetByID returns nil, nil when the user does not exist.
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*model.User, error) {
	user, err := r.getOne(ctx, `WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("get user by id: %w", err)
	}
	return user, nil
}

// Update updates profile fields and role
func (r *UserRepository) Update(ctx context.Context, user *model.User) error {
	query := `
		UPDATE users
		SET telegram_id = NULLIF($1::bigint, 0), username = $2, first_name = $3, last_name = $4,
		    email = $5, instrument = $6, role = $7
		WHERE id = $8
	`

	result, err := r.pool.Exec(
		ctx, query,
		user.TelegramID,
		user.Username,
		user.FirstName,
		user.LastName,
		user.Email,
		user.Instrument,
		user.Role,
		user.ID,
	)

	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("user not found")
	}

	return nil
}

// ListStudents returns the roster, optionally filtered by a case-insensitive search.
func (r *UserRepository) ListStudents(ctx context.Context, search string) ([]*model.User, error) {
	query := `SELECT ` + userColumns + `
		FROM users
		WHERE role = 'student'
		  AND ($1 = '' OR
		       (first_name || ' ' || last_name) ILIKE '%' || $1 || '%' OR
		       username ILIKE '%' || $1 || '%' OR
		       email ILIKE '%' || $1 || '%' OR
		       instrument ILIKE '%' || $1 || '%')
		ORDER BY first_name, last_name
	`

	rows, err := r.pool.Query(ctx, query, search)
	if err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}

	users, err := collectUsers(rows)
	if err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	return users, nil
}

// GetByIDs returns users by id list
func (r *UserRepository) GetByIDs(ctx context.Context, ids []int64) ([]*model.User, error) {
	if len(ids) == 0 {
		return []*model.User{}, nil
	}

	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+`
		FROM users
		WHERE id = ANY($1)
		ORDER BY first_name, last_name
	`, ids)
	if err != nil {
		return nil, fmt.Errorf("get users by ids: %w", err)
	}

	users, err := collectUsers(rows)
	if err != nil {
		return nil, fmt.Errorf("get users by ids: %w", err)
	}
	return users, nil
}

func (r *UserRepository) getOne(ctx context.Context, clause string, args ...interface{}) (*model.User, error) {
	var user model.User
	err := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users `+clause, args...).Scan(
		&user.ID,
		&user.TelegramID,
		&user.Username,
		&user.FirstName,
		&user.LastName,
		&user.Email,
		&user.Instrument,
		&user.Role,
		&user.CreatedAt,
	)

	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	return &user, nil
}

func collectUsers(rows pgx.Rows) ([]*model.User, error) {
	defer rows.Close()

	var users []*model.User
	for rows.Next() {
		var user model.User
		err := rows.Scan(
			&user.ID,
			&user.TelegramID,
			&user.Username,
			&user.FirstName,
			&user.LastName,
			&user.Email,
			&user.Instrument,
			&user.Role,
			&user.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, &user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}

	return users, nil
}
