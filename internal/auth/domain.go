// Package auth implements the registration, activation, login and
// password-reset flows plus the request guards derived from them.
package auth

import "time"

// Roles assignable to a user.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User is the durable identity record. The password hash and the mirrored
// reset token never appear in any response body.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	ResetToken   string    `json:"-"`
	Categories   []int64   `json:"categories,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Identity is the sanitized projection attached to request contexts and
// returned from login.
type Identity struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

// Sanitized strips credential fields from a user record.
func (u *User) Sanitized() Identity {
	return Identity{
		ID:       u.ID,
		Username: u.Username,
		Name:     u.Name,
		Email:    u.Email,
		Role:     u.Role,
	}
}
