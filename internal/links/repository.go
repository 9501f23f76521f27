package links

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/linkstash/linkstash/internal/mailer"
	"github.com/linkstash/linkstash/internal/platform/db"
	"github.com/linkstash/linkstash/internal/platform/httpx"
)

// Repository persists link records.
type Repository interface {
	Create(ctx context.Context, link Link, categoryIDs []int64) (*Link, error)
	Get(ctx context.Context, id int64) (*Link, error)
	List(ctx context.Context, limit, skip int) ([]Link, int, error)
	Update(ctx context.Context, id int64, title, url, slug, linkType, medium string, categoryIDs []int64) (*Link, error)
	Delete(ctx context.Context, id int64) error
	IncrementClicks(ctx context.Context, id int64) (*Link, error)
	Popular(ctx context.Context, limit int) ([]Link, error)
	PopularByCategory(ctx context.Context, slug string, limit int) ([]Link, error)
	SubscriberEmails(ctx context.Context, categoryIDs []int64) ([]string, error)
	CategorySummaries(ctx context.Context, categoryIDs []int64) ([]mailer.CategorySummary, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a postgres-backed Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const selectLink = `
	SELECT l.id, l.title, l.url, l.slug, l.type, l.medium, l.clicks, l.created_at, l.updated_at,
	       u.id, u.name, u.username
	FROM links l
	JOIN users u ON u.id = l.posted_by`

func (r *repository) Create(ctx context.Context, link Link, categoryIDs []int64) (*Link, error) {
	var id int64
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx,
			`INSERT INTO links (title, url, slug, posted_by, type, medium)
			 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
			link.Title, link.URL, link.Slug, link.PostedBy.ID, link.Type, link.Medium,
		).Scan(&id)
		if err != nil {
			return fmt.Errorf("links: insert: %w", err)
		}
		return insertCategories(ctx, tx, id, categoryIDs)
	})
	if err != nil {
		return nil, err
	}
	return r.Get(ctx, id)
}

func insertCategories(ctx context.Context, tx pgx.Tx, linkID int64, categoryIDs []int64) error {
	for _, categoryID := range categoryIDs {
		if _, err := tx.Exec(ctx,
			`INSERT INTO link_categories (link_id, category_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			linkID, categoryID); err != nil {
			return fmt.Errorf("links: attach category: %w", err)
		}
	}
	return nil
}

func (r *repository) Get(ctx context.Context, id int64) (*Link, error) {
	link, err := scanLink(r.pool.QueryRow(ctx, selectLink+" WHERE l.id = $1", id))
	if err != nil {
		return nil, err
	}
	link.Categories, err = r.categoriesOf(ctx, link.ID)
	if err != nil {
		return nil, err
	}
	return link, nil
}

func scanLink(row pgx.Row) (*Link, error) {
	var l Link
	err := row.Scan(&l.ID, &l.Title, &l.URL, &l.Slug, &l.Type, &l.Medium, &l.Clicks,
		&l.CreatedAt, &l.UpdatedAt, &l.PostedBy.ID, &l.PostedBy.Name, &l.PostedBy.Username)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: link", httpx.ErrNotFound)
		}
		return nil, fmt.Errorf("links: scan: %w", err)
	}
	return &l, nil
}

func (r *repository) List(ctx context.Context, limit, skip int) ([]Link, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM links").Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("links: count: %w", err)
	}

	links, err := r.queryLinks(ctx, selectLink+" ORDER BY l.created_at DESC LIMIT $1 OFFSET $2", limit, skip)
	if err != nil {
		return nil, 0, err
	}
	return links, total, nil
}

func (r *repository) queryLinks(ctx context.Context, query string, args ...any) ([]Link, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("links: query: %w", err)
	}
	defer rows.Close()

	links := []Link{}
	for rows.Next() {
		l, err := scanLink(rows)
		if err != nil {
			return nil, err
		}
		links = append(links, *l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range links {
		links[i].Categories, err = r.categoriesOf(ctx, links[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return links, nil
}

func (r *repository) categoriesOf(ctx context.Context, linkID int64) ([]CategoryRef, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT c.id, c.name, c.slug
		FROM link_categories lc
		JOIN categories c ON c.id = lc.category_id
		WHERE lc.link_id = $1
		ORDER BY c.name`, linkID)
	if err != nil {
		return nil, fmt.Errorf("links: categories of: %w", err)
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

func (r *repository) Update(ctx context.Context, id int64, title, url, slug, linkType, medium string, categoryIDs []int64) (*Link, error) {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`UPDATE links SET title = $1, url = $2, slug = $3, type = $4, medium = $5, updated_at = NOW()
			 WHERE id = $6`,
			title, url, slug, linkType, medium, id)
		if err != nil {
			return fmt.Errorf("links: update: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("%w: link", httpx.ErrNotFound)
		}
		if categoryIDs != nil {
			if _, err := tx.Exec(ctx, "DELETE FROM link_categories WHERE link_id = $1", id); err != nil {
				return fmt.Errorf("links: clear categories: %w", err)
			}
			return insertCategories(ctx, tx, id, categoryIDs)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r.Get(ctx, id)
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, "DELETE FROM links WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("links: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: link", httpx.ErrNotFound)
	}
	return nil
}

func (r *repository) IncrementClicks(ctx context.Context, id int64) (*Link, error) {
	tag, err := r.pool.Exec(ctx,
		"UPDATE links SET clicks = clicks + 1, updated_at = NOW() WHERE id = $1", id)
	if err != nil {
		return nil, fmt.Errorf("links: increment clicks: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, fmt.Errorf("%w: link", httpx.ErrNotFound)
	}
	return r.Get(ctx, id)
}

func (r *repository) Popular(ctx context.Context, limit int) ([]Link, error) {
	return r.queryLinks(ctx, selectLink+" ORDER BY l.clicks DESC LIMIT $1", limit)
}

func (r *repository) PopularByCategory(ctx context.Context, slug string, limit int) ([]Link, error) {
	return r.queryLinks(ctx, selectLink+`
		JOIN link_categories lc ON lc.link_id = l.id
		JOIN categories c ON c.id = lc.category_id
		WHERE c.slug = $1
		ORDER BY l.clicks DESC LIMIT $2`, slug, limit)
}

// SubscriberEmails returns distinct addresses of users subscribed to any of
// the given categories.
func (r *repository) SubscriberEmails(ctx context.Context, categoryIDs []int64) ([]string, error) {
	if len(categoryIDs) == 0 {
		return nil, nil
	}
	rows, err := r.pool.Query(ctx, `
		SELECT DISTINCT u.email
		FROM user_categories uc
		JOIN users u ON u.id = uc.user_id
		WHERE uc.category_id = ANY($1)
		ORDER BY u.email`, categoryIDs)
	if err != nil {
		return nil, fmt.Errorf("links: subscriber emails: %w", err)
	}
	defer rows.Close()

	emails := []string{}
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return nil, err
		}
		emails = append(emails, email)
	}
	return emails, rows.Err()
}

// CategorySummaries returns the digest payload for the given categories.
func (r *repository) CategorySummaries(ctx context.Context, categoryIDs []int64) ([]mailer.CategorySummary, error) {
	if len(categoryIDs) == 0 {
		return nil, nil
	}
	rows, err := r.pool.Query(ctx,
		"SELECT name, slug, image_url FROM categories WHERE id = ANY($1) ORDER BY name", categoryIDs)
	if err != nil {
		return nil, fmt.Errorf("links: category summaries: %w", err)
	}
	defer rows.Close()

	summaries := []mailer.CategorySummary{}
	for rows.Next() {
		var s mailer.CategorySummary
		if err := rows.Scan(&s.Name, &s.Slug, &s.ImageURL); err != nil {
			return nil, err
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}
