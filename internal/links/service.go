package links

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/linkstash/linkstash/internal/auth"
	"github.com/linkstash/linkstash/internal/mailer"
	"github.com/linkstash/linkstash/internal/platform/httpx"
	"github.com/linkstash/linkstash/internal/shared"
)

// Notifier fans out publish announcements to category subscribers.
type Notifier interface {
	SendLinkPublished(ctx context.Context, email, linkTitle string, categories []mailer.CategorySummary) error
}

// PageInvalidator drops cached category pages after link writes.
type PageInvalidator interface {
	InvalidatePages(ctx context.Context)
}

// Service implements link submission and browsing.
type Service struct {
	logger    *slog.Logger
	repo      Repository
	notifier  Notifier
	pageCache PageInvalidator
}

// NewService constructs a Service. notifier and pageCache may be nil.
func NewService(logger *slog.Logger, repo Repository, notifier Notifier, pageCache PageInvalidator) *Service {
	return &Service{logger: logger, repo: repo, notifier: notifier, pageCache: pageCache}
}

// CreateRequest carries a link submission.
type CreateRequest struct {
	Title      string  `json:"title" validate:"required,max=256"`
	URL        string  `json:"url" validate:"required,url,max=256"`
	Categories []int64 `json:"categories" validate:"required,min=1,dive,gt=0"`
	Type       string  `json:"type" validate:"required,oneof=free paid"`
	Medium     string  `json:"medium" validate:"required,oneof=video book"`
}

// UpdateRequest carries a link edit. Omitted fields keep their value.
type UpdateRequest struct {
	Title      *string `json:"title,omitempty" validate:"omitempty,max=256"`
	URL        *string `json:"url,omitempty" validate:"omitempty,url,max=256"`
	Categories []int64 `json:"categories,omitempty" validate:"omitempty,min=1,dive,gt=0"`
	Type       *string `json:"type,omitempty" validate:"omitempty,oneof=free paid"`
	Medium     *string `json:"medium,omitempty" validate:"omitempty,oneof=video book"`
}

// ReadRequest pages through link listings.
type ReadRequest struct {
	Limit int `json:"limit" validate:"omitempty,gte=1,lte=100"`
	Skip  int `json:"skip" validate:"omitempty,gte=0"`
}

// ListResult is an admin listing page.
type ListResult struct {
	Links []Link `json:"links"`
	Total int    `json:"totalCount"`
}

const (
	defaultPageSize   = 10
	popularPageSize   = 9
	categoryTrendSize = 3
)

// Create stores a new link and announces it to subscribers of its categories.
func (s *Service) Create(ctx context.Context, poster auth.Identity, req CreateRequest) (*Link, error) {
	link := Link{
		Title:    req.Title,
		URL:      req.URL,
		Slug:     shared.Slugify(req.Title),
		Type:     req.Type,
		Medium:   req.Medium,
		PostedBy: UserRef{ID: poster.ID},
	}
	created, err := s.repo.Create(ctx, link, req.Categories)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	s.announce(ctx, created, req.Categories)
	return created, nil
}

// announce mails every subscriber of the link's categories. Delivery problems
// never fail the submission.
func (s *Service) announce(ctx context.Context, link *Link, categoryIDs []int64) {
	if s.notifier == nil {
		return
	}
	emails, err := s.repo.SubscriberEmails(ctx, categoryIDs)
	if err != nil {
		s.logger.Error("links: load subscribers", "error", err, "link_id", link.ID)
		return
	}
	if len(emails) == 0 {
		return
	}
	summaries, err := s.repo.CategorySummaries(ctx, categoryIDs)
	if err != nil {
		s.logger.Error("links: load category summaries", "error", err, "link_id", link.ID)
		return
	}
	for _, email := range emails {
		if err := s.notifier.SendLinkPublished(ctx, email, link.Title, summaries); err != nil {
			s.logger.Error("links: notify subscriber", "error", err, "email", email)
		}
	}
}

// Get returns a single link by id.
func (s *Service) Get(ctx context.Context, id int64) (*Link, error) {
	return s.repo.Get(ctx, id)
}

// List returns a page of all links with the total count. Admin only.
func (s *Service) List(ctx context.Context, req ReadRequest) (*ListResult, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = defaultPageSize
	}
	skip := req.Skip
	if skip < 0 {
		skip = 0
	}
	links, total, err := s.repo.List(ctx, limit, skip)
	if err != nil {
		return nil, err
	}
	return &ListResult{Links: links, Total: total}, nil
}

// Update edits a link. Only the poster or an admin may edit.
func (s *Service) Update(ctx context.Context, actor auth.Identity, id int64, req UpdateRequest) (*Link, error) {
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorize(actor, current); err != nil {
		return nil, err
	}

	title, url, linkType, medium := current.Title, current.URL, current.Type, current.Medium
	if req.Title != nil {
		title = *req.Title
	}
	if req.URL != nil {
		url = *req.URL
	}
	if req.Type != nil {
		linkType = *req.Type
	}
	if req.Medium != nil {
		medium = *req.Medium
	}

	updated, err := s.repo.Update(ctx, id, title, url, shared.Slugify(title), linkType, medium, req.Categories)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return updated, nil
}

// Delete removes a link. Only the poster or an admin may delete.
func (s *Service) Delete(ctx context.Context, actor auth.Identity, id int64) (string, error) {
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return "", err
	}
	if err := authorize(actor, current); err != nil {
		return "", err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return "", err
	}
	s.invalidate(ctx)
	return "Link deleted successfully", nil
}

func authorize(actor auth.Identity, link *Link) error {
	if actor.Role == auth.RoleAdmin || actor.ID == link.PostedBy.ID {
		return nil
	}
	return fmt.Errorf("%w: you are not authorized to modify this link", httpx.ErrForbidden)
}

// RecordClick bumps the click counter and returns the updated link.
func (s *Service) RecordClick(ctx context.Context, id int64) (*Link, error) {
	return s.repo.IncrementClicks(ctx, id)
}

// Popular returns the most-clicked links overall.
func (s *Service) Popular(ctx context.Context) ([]Link, error) {
	return s.repo.Popular(ctx, popularPageSize)
}

// PopularByCategory returns the most-clicked links within one category.
func (s *Service) PopularByCategory(ctx context.Context, slug string) ([]Link, error) {
	return s.repo.PopularByCategory(ctx, slug, categoryTrendSize)
}

func (s *Service) invalidate(ctx context.Context) {
	if s.pageCache != nil {
		s.pageCache.InvalidatePages(ctx)
	}
}
