package users

import (
	"context"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// UpdateRequest carries the optional profile mutations from the client.
type UpdateRequest struct {
	Name       *string  `json:"name,omitempty" validate:"omitempty,max=100"`
	Password   *string  `json:"password,omitempty" validate:"omitempty,min=6"`
	Categories *[]int64 `json:"categories,omitempty" validate:"omitempty,dive,gt=0"`
}

// Service wraps profile business rules.
type Service struct {
	repo Repository
}

// NewService constructs a new Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Profile returns the user along with their posted links.
func (s *Service) Profile(ctx context.Context, userID int64) (*Profile, error) {
	user, err := s.repo.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	links, err := s.repo.ListLinks(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &Profile{User: *user, Links: links}, nil
}

// Update applies profile mutations. A supplied password is re-hashed; the raw
// value never reaches the repository.
func (s *Service) Update(ctx context.Context, userID int64, req UpdateRequest) (*User, error) {
	params := UpdateParams{
		Name:       req.Name,
		Categories: req.Categories,
	}
	if req.Password != nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(*req.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("users: hash password: %w", err)
		}
		hashed := string(hash)
		params.PasswordHash = &hashed
	}
	return s.repo.Update(ctx, userID, params)
}
