package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/linkstash/linkstash/internal/platform/db"
	"github.com/linkstash/linkstash/internal/platform/httpx"
)

// UpdateParams carries the optional profile mutations.
type UpdateParams struct {
	Name         *string
	PasswordHash *string
	Categories   *[]int64
}

// Repository reads and mutates profile data.
type Repository interface {
	Get(ctx context.Context, id int64) (*User, error)
	ListLinks(ctx context.Context, userID int64) ([]LinkSummary, error)
	Update(ctx context.Context, id int64, params UpdateParams) (*User, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a postgres-backed Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) Get(ctx context.Context, id int64) (*User, error) {
	var u User
	err := r.pool.QueryRow(ctx,
		`SELECT id, username, name, email, role, created_at, updated_at FROM users WHERE id = $1`, id,
	).Scan(&u.ID, &u.Username, &u.Name, &u.Email, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, httpx.ErrNotFound
		}
		return nil, fmt.Errorf("users: get: %w", err)
	}

	u.Categories, err = r.subscriptions(ctx, id)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *repository) subscriptions(ctx context.Context, userID int64) ([]int64, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT category_id FROM user_categories WHERE user_id = $1 ORDER BY category_id`, userID)
	if err != nil {
		return nil, fmt.Errorf("users: subscriptions: %w", err)
	}
	defer rows.Close()

	categories := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		categories = append(categories, id)
	}
	return categories, rows.Err()
}

func (r *repository) ListLinks(ctx context.Context, userID int64) ([]LinkSummary, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT l.id, l.title, l.url, l.slug, l.type, l.medium, l.clicks, l.created_at
		FROM links l
		WHERE l.posted_by = $1
		ORDER BY l.created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("users: list links: %w", err)
	}
	defer rows.Close()

	links := []LinkSummary{}
	for rows.Next() {
		var l LinkSummary
		if err := rows.Scan(&l.ID, &l.Title, &l.URL, &l.Slug, &l.Type, &l.Medium, &l.Clicks, &l.CreatedAt); err != nil {
			return nil, err
		}
		links = append(links, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range links {
		links[i].Categories, err = r.linkCategories(ctx, links[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return links, nil
}

func (r *repository) linkCategories(ctx context.Context, linkID int64) ([]CategoryRef, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT c.id, c.name, c.slug
		FROM link_categories lc
		JOIN categories c ON c.id = lc.category_id
		WHERE lc.link_id = $1
		ORDER BY c.name`, linkID)
	if err != nil {
		return nil, fmt.Errorf("users: link categories: %w", err)
	}
	defer rows.Close()

	refs := []CategoryRef{}
	for rows.Next() {
		var ref CategoryRef
		if err := rows.Scan(&ref.ID, &ref.Name, &ref.Slug); err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}

func (r *repository) Update(ctx context.Context, id int64, params UpdateParams) (*User, error) {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if params.Name != nil {
			if _, err := tx.Exec(ctx,
				"UPDATE users SET name = $1, updated_at = NOW() WHERE id = $2", *params.Name, id); err != nil {
				return fmt.Errorf("users: update name: %w", err)
			}
		}
		if params.PasswordHash != nil {
			if _, err := tx.Exec(ctx,
				"UPDATE users SET password_hash = $1, updated_at = NOW() WHERE id = $2", *params.PasswordHash, id); err != nil {
				return fmt.Errorf("users: update password: %w", err)
			}
		}
		if params.Categories != nil {
			if _, err := tx.Exec(ctx,
				"DELETE FROM user_categories WHERE user_id = $1", id); err != nil {
				return fmt.Errorf("users: clear subscriptions: %w", err)
			}
			for _, categoryID := range *params.Categories {
				if _, err := tx.Exec(ctx,
					`INSERT INTO user_categories (user_id, category_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
					id, categoryID); err != nil {
					return fmt.Errorf("users: add subscription: %w", err)
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r.Get(ctx, id)
}
