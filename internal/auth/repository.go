package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/linkstash/linkstash/internal/platform/db"
	"github.com/linkstash/linkstash/internal/platform/httpx"
)

// Uniqueness violations surfaced by Create.
var (
	ErrEmailTaken    = fmt.Errorf("%w: email is taken", httpx.ErrDuplicate)
	ErrUsernameTaken = fmt.Errorf("%w: username is taken", httpx.ErrDuplicate)
)

// Repository persists and retrieves user records.
type Repository interface {
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, id int64) (*User, error)
	FindByResetToken(ctx context.Context, token string) (*User, error)
	Create(ctx context.Context, user User) (int64, error)
	SetResetToken(ctx context.Context, userID int64, token string) error
	ResetPassword(ctx context.Context, userID int64, passwordHash string) error
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a postgres-backed Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const userColumns = "id, username, name, email, password_hash, role, reset_token, created_at, updated_at"

func (r *repository) FindByEmail(ctx context.Context, email string) (*User, error) {
	return r.findOne(ctx, "SELECT "+userColumns+" FROM users WHERE email = $1", email)
}

func (r *repository) FindByID(ctx context.Context, id int64) (*User, error) {
	return r.findOne(ctx, "SELECT "+userColumns+" FROM users WHERE id = $1", id)
}

func (r *repository) FindByResetToken(ctx context.Context, token string) (*User, error) {
	if token == "" {
		return nil, httpx.ErrNotFound
	}
	return r.findOne(ctx, "SELECT "+userColumns+" FROM users WHERE reset_token = $1", token)
}

func (r *repository) findOne(ctx context.Context, query string, arg any) (*User, error) {
	var u User
	err := r.pool.QueryRow(ctx, query, arg).Scan(
		&u.ID, &u.Username, &u.Name, &u.Email, &u.PasswordHash,
		&u.Role, &u.ResetToken, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, httpx.ErrNotFound
		}
		return nil, fmt.Errorf("auth: find user: %w", err)
	}
	return &u, nil
}

// Create inserts the user and its category subscriptions atomically.
func (r *repository) Create(ctx context.Context, user User) (int64, error) {
	var id int64
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx,
			`INSERT INTO users (username, name, email, password_hash, role)
			 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
			user.Username, user.Name, user.Email, user.PasswordHash, user.Role,
		).Scan(&id)
		if err != nil {
			return mapUniqueViolation(err)
		}
		for _, categoryID := range user.Categories {
			if _, err := tx.Exec(ctx,
				`INSERT INTO user_categories (user_id, category_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
				id, categoryID,
			); err != nil {
				return fmt.Errorf("auth: insert subscription: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (r *repository) SetResetToken(ctx context.Context, userID int64, token string) error {
	tag, err := r.pool.Exec(ctx,
		"UPDATE users SET reset_token = $1, updated_at = NOW() WHERE id = $2", token, userID)
	if err != nil {
		return fmt.Errorf("auth: set reset token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}

// ResetPassword stores the new hash and clears the mirrored reset token so the
// same token cannot be consumed twice.
func (r *repository) ResetPassword(ctx context.Context, userID int64, passwordHash string) error {
	tag, err := r.pool.Exec(ctx,
		"UPDATE users SET password_hash = $1, reset_token = '', updated_at = NOW() WHERE id = $2",
		passwordHash, userID)
	if err != nil {
		return fmt.Errorf("auth: reset password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}

func mapUniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		switch pgErr.ConstraintName {
		case "users_email_key":
			return ErrEmailTaken
		case "users_username_key":
			return ErrUsernameTaken
		}
		return fmt.Errorf("%w: user already exists", httpx.ErrDuplicate)
	}
	return fmt.Errorf("auth: insert user: %w", err)
}
