package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/linkstash/linkstash/internal/platform/httpx"
	"github.com/linkstash/linkstash/internal/token"
)

type memoryRepo struct {
	nextID int64
	users  map[int64]*User
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{nextID: 1, users: map[int64]*User{}}
}

func (m *memoryRepo) FindByEmail(_ context.Context, email string) (*User, error) {
	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, httpx.ErrNotFound
}

func (m *memoryRepo) FindByID(_ context.Context, id int64) (*User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, httpx.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memoryRepo) FindByResetToken(_ context.Context, tok string) (*User, error) {
	if tok == "" {
		return nil, httpx.ErrNotFound
	}
	for _, u := range m.users {
		if u.ResetToken == tok {
			cp := *u
			return &cp, nil
		}
	}
	return nil, httpx.ErrNotFound
}

func (m *memoryRepo) Create(_ context.Context, user User) (int64, error) {
	for _, u := range m.users {
		if u.Email == user.Email {
			return 0, ErrEmailTaken
		}
		if u.Username == user.Username {
			return 0, ErrUsernameTaken
		}
	}
	user.ID = m.nextID
	m.nextID++
	m.users[user.ID] = &user
	return user.ID, nil
}

func (m *memoryRepo) SetResetToken(_ context.Context, userID int64, tok string) error {
	u, ok := m.users[userID]
	if !ok {
		return httpx.ErrNotFound
	}
	u.ResetToken = tok
	return nil
}

func (m *memoryRepo) ResetPassword(_ context.Context, userID int64, passwordHash string) error {
	u, ok := m.users[userID]
	if !ok {
		return httpx.ErrNotFound
	}
	u.PasswordHash = passwordHash
	u.ResetToken = ""
	return nil
}

type captureNotifier struct {
	activationToken string
	resetToken      string
	err             error
}

func (c *captureNotifier) SendActivation(_ context.Context, _, signedToken string) error {
	if c.err != nil {
		return c.err
	}
	c.activationToken = signedToken
	return nil
}

func (c *captureNotifier) SendPasswordReset(_ context.Context, _, signedToken string) error {
	if c.err != nil {
		return c.err
	}
	c.resetToken = signedToken
	return nil
}

func newAuthService(t *testing.T) (*Service, *memoryRepo, *captureNotifier, *token.Codec) {
	t.Helper()
	codec, err := token.NewCodec("activation-secret", "reset-secret", "session-secret")
	require.NoError(t, err)
	repo := newMemoryRepo()
	notifier := &captureNotifier{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(logger, repo, codec, notifier), repo, notifier, codec
}

func TestRegisterActivateRoundTrip(t *testing.T) {
	svc, repo, notifier, _ := newAuthService(t)
	ctx := context.Background()

	msg, err := svc.Register(ctx, "Ada", "ada@example.com", "hunter22", []int64{1, 2})
	require.NoError(t, err)
	assert.Contains(t, msg, "ada@example.com")
	require.NotEmpty(t, notifier.activationToken)

	// Nothing persisted until activation.
	assert.Empty(t, repo.users)

	msg, err = svc.Activate(ctx, notifier.activationToken)
	require.NoError(t, err)
	assert.Equal(t, "Registration success. Please login.", msg)

	user, err := repo.FindByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Ada", user.Name)
	assert.Equal(t, RoleUser, user.Role)
	assert.Len(t, user.Username, 9)
	assert.Equal(t, []int64{1, 2}, user.Categories)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("hunter22")))
}

func TestRegisterRejectsExistingEmail(t *testing.T) {
	svc, repo, _, _ := newAuthService(t)
	ctx := context.Background()

	_, err := repo.Create(ctx, User{Email: "taken@example.com", Username: "someone"})
	require.NoError(t, err)

	_, err = svc.Register(ctx, "Dup", "taken@example.com", "secret", nil)
	assert.ErrorIs(t, err, httpx.ErrDuplicate)
}

func TestRegisterSoftFailsWhenEmailUndeliverable(t *testing.T) {
	svc, _, notifier, _ := newAuthService(t)
	notifier.err = errors.New("smtp down")

	msg, err := svc.Register(context.Background(), "Ada", "ada@example.com", "hunter22", nil)
	require.NoError(t, err)
	assert.Equal(t, "We could not verify your email. Please try again.", msg)
}

func TestActivateRejectsTamperedToken(t *testing.T) {
	svc, _, notifier, _ := newAuthService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "Ada", "ada@example.com", "hunter22", nil)
	require.NoError(t, err)

	tampered := notifier.activationToken[:len(notifier.activationToken)-2] + "xx"
	_, err = svc.Activate(ctx, tampered)
	assert.ErrorIs(t, err, httpx.ErrUnauthorized)
}

func TestActivateRejectsResetToken(t *testing.T) {
	svc, _, _, codec := newAuthService(t)

	crossed, err := codec.IssueReset("Ada")
	require.NoError(t, err)

	_, err = svc.Activate(context.Background(), crossed)
	assert.ErrorIs(t, err, httpx.ErrUnauthorized)
}

func TestActivateConflictsWhenEmailClaimedMeanwhile(t *testing.T) {
	svc, repo, notifier, _ := newAuthService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "Ada", "ada@example.com", "hunter22", nil)
	require.NoError(t, err)

	// Someone else claims the address between issuance and activation.
	_, err = repo.Create(ctx, User{Email: "ada@example.com", Username: "squatter"})
	require.NoError(t, err)

	_, err = svc.Activate(ctx, notifier.activationToken)
	assert.ErrorIs(t, err, httpx.ErrDuplicate)
}

func TestLoginIssuesParsableSession(t *testing.T) {
	svc, repo, notifier, codec := newAuthService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "Ada", "ada@example.com", "hunter22", nil)
	require.NoError(t, err)
	_, err = svc.Activate(ctx, notifier.activationToken)
	require.NoError(t, err)

	result, err := svc.Login(ctx, "ada@example.com", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", result.User.Email)
	assert.Equal(t, "Ada", result.User.Name)

	claims, err := codec.ParseSession(result.Token)
	require.NoError(t, err)
	user, err := repo.FindByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
}

func TestLoginWrongPassword(t *testing.T) {
	svc, _, notifier, _ := newAuthService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "Ada", "ada@example.com", "hunter22", nil)
	require.NoError(t, err)
	_, err = svc.Activate(ctx, notifier.activationToken)
	require.NoError(t, err)

	_, err = svc.Login(ctx, "ada@example.com", "wrong")
	assert.ErrorIs(t, err, httpx.ErrUnauthorized)

	_, err = svc.Login(ctx, "nobody@example.com", "hunter22")
	assert.ErrorIs(t, err, httpx.ErrNotFound)
}

func TestForgetResetRoundTrip(t *testing.T) {
	svc, repo, notifier, _ := newAuthService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "Ada", "ada@example.com", "hunter22", nil)
	require.NoError(t, err)
	_, err = svc.Activate(ctx, notifier.activationToken)
	require.NoError(t, err)

	msg, err := svc.ForgetPassword(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(msg, "Email has been sent"))
	require.NotEmpty(t, notifier.resetToken)

	user, err := repo.FindByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, notifier.resetToken, user.ResetToken)

	msg, err = svc.ResetPassword(ctx, notifier.resetToken, "n3wpass")
	require.NoError(t, err)
	assert.Equal(t, "New password has been successfully updated.", msg)

	_, err = svc.Login(ctx, "ada@example.com", "n3wpass")
	require.NoError(t, err)
	_, err = svc.Login(ctx, "ada@example.com", "hunter22")
	assert.ErrorIs(t, err, httpx.ErrUnauthorized)
}

func TestResetTokenCannotBeReplayed(t *testing.T) {
	svc, _, notifier, _ := newAuthService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "Ada", "ada@example.com", "hunter22", nil)
	require.NoError(t, err)
	_, err = svc.Activate(ctx, notifier.activationToken)
	require.NoError(t, err)
	_, err = svc.ForgetPassword(ctx, "ada@example.com")
	require.NoError(t, err)

	_, err = svc.ResetPassword(ctx, notifier.resetToken, "first")
	require.NoError(t, err)

	// Consuming the token cleared the stored mirror.
	_, err = svc.ResetPassword(ctx, notifier.resetToken, "second")
	assert.ErrorIs(t, err, httpx.ErrUnauthorized)
}

func TestResetPasswordUnknownMirror(t *testing.T) {
	svc, _, _, codec := newAuthService(t)

	orphan, err := codec.IssueReset("Ada")
	require.NoError(t, err)

	_, err = svc.ResetPassword(context.Background(), orphan, "n3wpass")
	assert.ErrorIs(t, err, httpx.ErrUnauthorized)
}

func TestForgetPasswordUnknownEmail(t *testing.T) {
	svc, _, _, _ := newAuthService(t)

	_, err := svc.ForgetPassword(context.Background(), "ghost@example.com")
	assert.ErrorIs(t, err, httpx.ErrNotFound)
}
