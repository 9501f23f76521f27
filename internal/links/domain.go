// Package links manages submitted links: CRUD with ownership checks, click
// counting, popularity listings and subscriber notification on publish.
package links

import "time"

// Link types and mediums accepted on submission.
const (
	TypeFree    = "free"
	TypePaid    = "paid"
	MediumVideo = "video"
	MediumBook  = "book"
)

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
	Slug string `json:"slug"`
}

// Link is the durable link record with its relations resolved.
type Link struct {
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
	UpdatedAt  time.Time     `json:"updated_at"`
}
