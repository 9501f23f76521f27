package auth

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/bcrypt"

	"github.com/linkstash/linkstash/internal/platform/httpx"
	"github.com/linkstash/linkstash/internal/token"
)

// Notifier dispatches transactional emails. Delivery happens out of band;
// implementations only enqueue.
type Notifier interface {
	SendActivation(ctx context.Context, email, signedToken string) error
	SendPasswordReset(ctx context.Context, email, signedToken string) error
}

// LoginResult carries the session token and the sanitized user projection.
type LoginResult struct {
	Token string   `json:"token"`
	User  Identity `json:"user"`
}

// Service orchestrates the token-carried registration, reset and session flows.
type Service struct {
	logger   *slog.Logger
	repo     Repository
	codec    *token.Codec
	notifier Notifier
}

// NewService constructs a new Service.
func NewService(logger *slog.Logger, repo Repository, codec *token.Codec, notifier Notifier) *Service {
	return &Service{logger: logger, repo: repo, codec: codec, notifier: notifier}
}

// Register checks email uniqueness, mints a pending-registration token and
// emails an activation link. No record is stored; the claim lives only inside
// the token until Activate converts it.
func (s *Service) Register(ctx context.Context, name, email, password string, categories []int64) (string, error) {
	if _, err := s.repo.FindByEmail(ctx, email); err == nil {
		return "", ErrEmailTaken
	} else if !errors.Is(err, httpx.ErrNotFound) {
		return "", err
	}

	signed, err := s.codec.IssueActivation(name, email, password, categories)
	if err != nil {
		return "", err
	}

	if err := s.notifier.SendActivation(ctx, email, signed); err != nil {
		// Email failure is soft: nothing was persisted, the caller can retry.
		s.logger.Warn("activation email dispatch failed", slog.Any("error", err))
		return "We could not verify your email. Please try again.", nil
	}

	return fmt.Sprintf("Email has been sent to %s. Follow the instructions to complete your registration.", email), nil
}

// Activate verifies a pending-registration token and converts it into a
// durable user record. Email uniqueness is re-checked against current state:
// the token's claim is not trusted across the issuance/activation gap.
func (s *Service) Activate(ctx context.Context, signedToken string) (string, error) {
	claims, err := s.codec.ParseActivation(signedToken)
	if err != nil {
		return "", tokenError(err)
	}

	if _, err := s.repo.FindByEmail(ctx, claims.Email); err == nil {
		return "", ErrEmailTaken
	} else if !errors.Is(err, httpx.ErrNotFound) {
		return "", err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(claims.Password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("auth: hash password: %w", err)
	}

	user := User{
		Name:         claims.Name,
		Email:        claims.Email,
		PasswordHash: string(hash),
		Role:         RoleUser,
		Categories:   claims.Categories,
	}

	// Retry short-handle collisions; email collisions are final.
	for attempt := 0; attempt < 3; attempt++ {
		user.Username, err = generateUsername()
		if err != nil {
			return "", err
		}
		_, err = s.repo.Create(ctx, user)
		if err == nil {
			return "Registration success. Please login.", nil
		}
		if !errors.Is(err, ErrUsernameTaken) {
			return "", err
		}
	}
	return "", err
}

// Login verifies credentials and issues a session token.
func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, httpx.ErrNotFound) {
			return nil, fmt.Errorf("%w: user with that email does not exist", httpx.ErrNotFound)
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, fmt.Errorf("%w: email or password do not match", httpx.ErrUnauthorized)
	}

	signed, err := s.codec.IssueSession(user.ID)
	if err != nil {
		return nil, err
	}

	return &LoginResult{Token: signed, User: user.Sanitized()}, nil
}

// ForgetPassword mints a reset token, mirrors it onto the user record and
// emails a reset link. The mirror is what later invalidates consumed tokens.
func (s *Service) ForgetPassword(ctx context.Context, email string) (string, error) {
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, httpx.ErrNotFound) {
			return "", fmt.Errorf("%w: user with that email does not exist", httpx.ErrNotFound)
		}
		return "", err
	}

	signed, err := s.codec.IssueReset(user.Name)
	if err != nil {
		return "", err
	}

	if err := s.repo.SetResetToken(ctx, user.ID, signed); err != nil {
		return "", err
	}

	if err := s.notifier.SendPasswordReset(ctx, email, signed); err != nil {
		s.logger.Warn("reset email dispatch failed", slog.Any("error", err))
		return "We could not verify your email. Try later.", nil
	}

	return fmt.Sprintf("Email has been sent to %s. Click on the link to reset your password.", email), nil
}

// ResetPassword consumes a reset token. The token must both verify and match
// the mirror stored on a user record; clearing the mirror on success prevents
// replay.
func (s *Service) ResetPassword(ctx context.Context, signedToken, newPassword string) (string, error) {
	if _, err := s.codec.ParseReset(signedToken); err != nil {
		return "", tokenError(err)
	}

	user, err := s.repo.FindByResetToken(ctx, signedToken)
	if err != nil {
		if errors.Is(err, httpx.ErrNotFound) {
			return "", fmt.Errorf("%w: invalid token, request a new reset link", httpx.ErrUnauthorized)
		}
		return "", err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("auth: hash password: %w", err)
	}

	if err := s.repo.ResetPassword(ctx, user.ID, string(hash)); err != nil {
		return "", err
	}

	return "New password has been successfully updated.", nil
}

func tokenError(err error) error {
	if errors.Is(err, token.ErrExpired) {
		return fmt.Errorf("%w: expired link, try again", httpx.ErrTokenExpired)
	}
	return fmt.Errorf("%w: invalid link, try again", httpx.ErrUnauthorized)
}

const usernameAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// generateUsername returns a short random handle.
func generateUsername() (string, error) {
	b := make([]byte, 9)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("auth: generate username: %w", err)
	}
	for i := range b {
		b[i] = usernameAlphabet[int(b[i])%len(usernameAlphabet)]
	}
	return string(b), nil
}
