// Package categories manages link categories: CRUD, cover image uploads to
// the blob store, and cached per-category link listings.
package categories

import (
	"time"

	"github.com/linkstash/linkstash/internal/platform/storage"
)

// Category is the durable category record.
type Category struct {
	ID        int64          `json:"id"`
	Name      string         `json:"name"`
	Slug      string         `json:"slug"`
	Content   string         `json:"content"`
	Image     storage.Object `json:"image"`
	PostedBy  int64          `json:"posted_by"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// UserRef names the poster of a link.
type UserRef struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
}

// CategoryRef names a category a link belongs to.
type CategoryRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// LinkView is a link as listed on a category page.
type LinkView struct {
	ID         int64         `json:"id"`
	Title      string        `json:"title"`
	URL        string        `json:"url"`
	Slug       string        `json:"slug"`
	Type       string        `json:"type"`
	Medium     string        `json:"medium"`
	Clicks     int           `json:"clicks"`
	PostedBy   UserRef       `json:"posted_by"`
	Categories []CategoryRef `json:"categories"`
	CreatedAt  time.Time     `json:"created_at"`
}

// Page is the category detail response: the category plus one page of its
// links, newest first.
type Page struct {
	Category Category   `json:"category"`
	Links    []LinkView `json:"links"`
}
