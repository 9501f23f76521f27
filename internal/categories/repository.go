package categories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/linkstash/linkstash/internal/platform/httpx"
	"github.com/linkstash/linkstash/internal/platform/storage"
)

// Repository persists category records.
type Repository interface {
	Create(ctx context.Context, category Category) (*Category, error)
	List(ctx context.Context) ([]Category, error)
	GetBySlug(ctx context.Context, slug string) (*Category, error)
	Update(ctx context.Context, slug, name, content string, image *storage.Object) (*Category, error)
	Delete(ctx context.Context, slug string) (*Category, error)
	ListLinks(ctx context.Context, categoryID int64, limit, skip int) ([]LinkView, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a postgres-backed Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const categoryColumns = "id, name, slug, content, image_url, image_key, COALESCE(posted_by, 0), created_at, updated_at"

func scanCategory(row pgx.Row) (*Category, error) {
	var c Category
	err := row.Scan(&c.ID, &c.Name, &c.Slug, &c.Content, &c.Image.URL, &c.Image.Key,
		&c.PostedBy, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: category", httpx.ErrNotFound)
		}
		return nil, fmt.Errorf("categories: scan: %w", err)
	}
	return &c, nil
}

func (r *repository) Create(ctx context.Context, category Category) (*Category, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO categories (name, slug, content, image_url, image_key, posted_by)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING `+categoryColumns,
		category.Name, category.Slug, category.Content,
		category.Image.URL, category.Image.Key, category.PostedBy)
	created, err := scanCategory(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, fmt.Errorf("%w: category with that name already exists", httpx.ErrDuplicate)
		}
		return nil, err
	}
	return created, nil
}

func (r *repository) List(ctx context.Context) ([]Category, error) {
	rows, err := r.pool.Query(ctx, "SELECT "+categoryColumns+" FROM categories ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("categories: list: %w", err)
	}
	defer rows.Close()

	categories := []Category{}
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		categories = append(categories, *c)
	}
	return categories, rows.Err()
}

func (r *repository) GetBySlug(ctx context.Context, slug string) (*Category, error) {
	return scanCategory(r.pool.QueryRow(ctx,
		"SELECT "+categoryColumns+" FROM categories WHERE slug = $1", slug))
}

func (r *repository) Update(ctx context.Context, slug, name, content string, image *storage.Object) (*Category, error) {
	if image != nil {
		return scanCategory(r.pool.QueryRow(ctx,
			`UPDATE categories SET name = $1, content = $2, image_url = $3, image_key = $4, updated_at = NOW()
			 WHERE slug = $5 RETURNING `+categoryColumns,
			name, content, image.URL, image.Key, slug))
	}
	return scanCategory(r.pool.QueryRow(ctx,
		`UPDATE categories SET name = $1, content = $2, updated_at = NOW()
		 WHERE slug = $3 RETURNING `+categoryColumns,
		name, content, slug))
}

func (r *repository) Delete(ctx context.Context, slug string) (*Category, error) {
	return scanCategory(r.pool.QueryRow(ctx,
		"DELETE FROM categories WHERE slug = $1 RETURNING "+categoryColumns, slug))
}

func (r *repository) ListLinks(ctx context.Context, categoryID int64, limit, skip int) ([]LinkView, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT l.id, l.title, l.url, l.slug, l.type, l.medium, l.clicks, l.created_at,
		       u.id, u.name, u.username
		FROM link_categories lc
		JOIN links l ON l.id = lc.link_id
		JOIN users u ON u.id = l.posted_by
		WHERE lc.category_id = $1
		ORDER BY l.created_at DESC
		LIMIT $2 OFFSET $3`, categoryID, limit, skip)
	if err != nil {
		return nil, fmt.Errorf("categories: list links: %w", err)
	}
	defer rows.Close()

	links := []LinkView{}
	for rows.Next() {
		var l LinkView
		err := rows.Scan(&l.ID, &l.Title, &l.URL, &l.Slug, &l.Type, &l.Medium, &l.Clicks, &l.CreatedAt,
			&l.PostedBy.ID, &l.PostedBy.Name, &l.PostedBy.Username)
		if err != nil {
			return nil, err
		}
		links = append(links, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range links {
		links[i].Categories, err = r.categoriesOfLink(ctx, links[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return links, nil
}

func (r *repository) categoriesOfLink(ctx context.Context, linkID int64) ([]CategoryRef, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT c.id, c.name
		FROM link_categories lc
		JOIN categories c ON c.id = lc.category_id
		WHERE lc.link_id = $1
		ORDER BY c.name`, linkID)
	if err != nil {
		return nil, fmt.Errorf("categories: categories of link: %w", err)
	}
	defer rows.Close()

	refs := []CategoryRef{}
	for rows.Next() {
		var ref CategoryRef
		if err := rows.Scan(&ref.ID, &ref.Name); err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}
