// Package users serves the authenticated profile: the sanitized user record,
// its category subscriptions and the links it has posted.
package users

import "time"

// User is the profile projection. Credential fields are never part of it.
type User struct {
	ID         int64     `json:"id"`
	Username   string    `json:"username"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Role       string    `json:"role"`
	Categories []int64   `json:"categories"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// CategoryRef names a category a link belongs to.
type CategoryRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// LinkSummary is a link as shown on the profile page.
type LinkSummary struct {
	ID         int64         `json:"id"`
	Title      string        `json:"title"`
	URL        string        `json:"url"`
	Slug       string        `json:"slug"`
	Type       string        `json:"type"`
	Medium     string        `json:"medium"`
	Clicks     int           `json:"clicks"`
	Categories []CategoryRef `json:"categories"`
	CreatedAt  time.Time     `json:"created_at"`
}

// Profile bundles the user with their posted links.
type Profile struct {
	User  User          `json:"user"`
	Links []LinkSummary `json:"links"`
}
