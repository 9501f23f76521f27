package categories

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/google/uuid"

	"github.com/linkstash/linkstash/internal/platform/storage"
	"github.com/linkstash/linkstash/internal/shared"
)

// BlobStore is the slice of the S3 store the service needs.
type BlobStore interface {
	Upload(ctx context.Context, key, contentType string, body []byte) (storage.Object, error)
	Delete(ctx context.Context, key string) error
}

// CreateRequest carries a new category with its inline image.
type CreateRequest struct {
	Name    string `json:"name" validate:"required,max=100"`
	Image   string `json:"image" validate:"required"`
	Content string `json:"content" validate:"required,min=20"`
}

// UpdateRequest mutates a category; the image is optional.
type UpdateRequest struct {
	Name    string `json:"name" validate:"required,max=100"`
	Image   string `json:"image,omitempty"`
	Content string `json:"content" validate:"required,min=20"`
}

// ReadRequest pages through a category's links.
type ReadRequest struct {
	Limit int `json:"limit" validate:"gte=0,lte=100"`
	Skip  int `json:"skip" validate:"gte=0"`
}

// Service wraps category business rules.
type Service struct {
	logger *slog.Logger
	repo   Repository
	blobs  BlobStore
	cache  *Cache
}

// NewService constructs a new Service.
func NewService(logger *slog.Logger, repo Repository, blobs BlobStore, cache *Cache) *Service {
	return &Service{logger: logger, repo: repo, blobs: blobs, cache: cache}
}

// Create uploads the cover image and persists the category. A failed database
// write after a successful upload leaves an orphan object; deletion is
// attempted best effort.
func (s *Service) Create(ctx context.Context, req CreateRequest, postedBy int64) (*Category, error) {
	img, err := decodeImageDataURI(req.Image)
	if err != nil {
		return nil, err
	}

	object, err := s.blobs.Upload(ctx, imageKey(img.ext), img.contentType, img.data)
	if err != nil {
		return nil, fmt.Errorf("categories: upload image: %w", err)
	}

	category, err := s.repo.Create(ctx, Category{
		Name:     req.Name,
		Slug:     shared.Slugify(req.Name),
		Content:  req.Content,
		Image:    object,
		PostedBy: postedBy,
	})
	if err != nil {
		if delErr := s.blobs.Delete(ctx, object.Key); delErr != nil {
			s.logger.Warn("orphan image cleanup failed", slog.String("key", object.Key), slog.Any("error", delErr))
		}
		return nil, err
	}

	s.bump(ctx)
	return category, nil
}

// List returns every category.
func (s *Service) List(ctx context.Context) ([]Category, error) {
	return s.repo.List(ctx)
}

// Read returns the category and one page of its links, served from cache when
// a fresh copy exists.
func (s *Service) Read(ctx context.Context, slug string, req ReadRequest) (*Page, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = 10
	}

	key, err := s.cache.BuildKey(ctx, "categories", "page", slug, strconv.Itoa(limit), strconv.Itoa(req.Skip))
	if err != nil {
		s.logger.Warn("cache key build failed", slog.Any("error", err))
		return s.loadPage(ctx, slug, limit, req.Skip)
	}

	var page Page
	err = s.cache.FetchJSON(ctx, key, &page, func(ctx context.Context) (interface{}, error) {
		loaded, err := s.loadPage(ctx, slug, limit, req.Skip)
		if err != nil {
			return nil, err
		}
		return loaded, nil
	})
	if err != nil {
		return nil, err
	}
	return &page, nil
}

func (s *Service) loadPage(ctx context.Context, slug string, limit, skip int) (*Page, error) {
	category, err := s.repo.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	links, err := s.repo.ListLinks(ctx, category.ID, limit, skip)
	if err != nil {
		return nil, err
	}
	return &Page{Category: *category, Links: links}, nil
}

// Update mutates name and content, replacing the cover image when a new one
// is supplied. The old object is removed best effort after the swap.
func (s *Service) Update(ctx context.Context, slug string, req UpdateRequest) (*Category, error) {
	existing, err := s.repo.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}

	var replacement *storage.Object
	if req.Image != "" {
		img, err := decodeImageDataURI(req.Image)
		if err != nil {
			return nil, err
		}
		object, err := s.blobs.Upload(ctx, imageKey(img.ext), img.contentType, img.data)
		if err != nil {
			return nil, fmt.Errorf("categories: upload image: %w", err)
		}
		replacement = &object
	}

	updated, err := s.repo.Update(ctx, slug, req.Name, req.Content, replacement)
	if err != nil {
		if replacement != nil {
			if delErr := s.blobs.Delete(ctx, replacement.Key); delErr != nil {
				s.logger.Warn("orphan image cleanup failed", slog.String("key", replacement.Key), slog.Any("error", delErr))
			}
		}
		return nil, err
	}

	if replacement != nil && existing.Image.Key != "" {
		if err := s.blobs.Delete(ctx, existing.Image.Key); err != nil {
			s.logger.Warn("stale image delete failed", slog.String("key", existing.Image.Key), slog.Any("error", err))
		}
	}

	s.bump(ctx)
	return updated, nil
}

// Delete removes the category and then its image, best effort.
func (s *Service) Delete(ctx context.Context, slug string) error {
	deleted, err := s.repo.Delete(ctx, slug)
	if err != nil {
		return err
	}
	if deleted.Image.Key != "" {
		if err := s.blobs.Delete(ctx, deleted.Image.Key); err != nil {
			s.logger.Warn("image delete failed", slog.String("key", deleted.Image.Key), slog.Any("error", err))
		}
	}
	s.bump(ctx)
	return nil
}

// InvalidatePages advances the cache version; the links service calls this
// when a new link lands in a category.
func (s *Service) InvalidatePages(ctx context.Context) {
	s.bump(ctx)
}

func (s *Service) bump(ctx context.Context) {
	if err := s.cache.Bump(ctx); err != nil {
		s.logger.Warn("cache bump failed", slog.Any("error", err))
	}
}

func imageKey(ext string) string {
	return fmt.Sprintf("category/%s.%s", uuid.NewString(), ext)
}
