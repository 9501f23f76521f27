package users

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/linkstash/linkstash/internal/platform/httpx"
)

type fakeProfileRepo struct {
	users  map[int64]*User
	links  map[int64][]LinkSummary
	hashes map[int64]string
}

func newFakeProfileRepo() *fakeProfileRepo {
	return &fakeProfileRepo{
		users:  map[int64]*User{},
		links:  map[int64][]LinkSummary{},
		hashes: map[int64]string{},
	}
}

func (f *fakeProfileRepo) Get(_ context.Context, id int64) (*User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, httpx.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeProfileRepo) ListLinks(_ context.Context, userID int64) ([]LinkSummary, error) {
	return f.links[userID], nil
}

func (f *fakeProfileRepo) Update(_ context.Context, id int64, params UpdateParams) (*User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, httpx.ErrNotFound
	}
	if params.Name != nil {
		u.Name = *params.Name
	}
	if params.PasswordHash != nil {
		f.hashes[id] = *params.PasswordHash
	}
	if params.Categories != nil {
		u.Categories = *params.Categories
	}
	cp := *u
	return &cp, nil
}

func TestProfileBundlesUserAndLinks(t *testing.T) {
	repo := newFakeProfileRepo()
	repo.users[1] = &User{ID: 1, Username: "ada", Name: "Ada", Categories: []int64{2}}
	repo.links[1] = []LinkSummary{{ID: 10, Title: "Go Tour", Slug: "go-tour"}}
	svc := NewService(repo)

	profile, err := svc.Profile(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "ada", profile.User.Username)
	require.Len(t, profile.Links, 1)
	assert.Equal(t, "go-tour", profile.Links[0].Slug)
}

func TestProfileUnknownUser(t *testing.T) {
	svc := NewService(newFakeProfileRepo())

	_, err := svc.Profile(context.Background(), 42)
	assert.ErrorIs(t, err, httpx.ErrNotFound)
}

func TestUpdateHashesPassword(t *testing.T) {
	repo := newFakeProfileRepo()
	repo.users[1] = &User{ID: 1, Name: "Ada"}
	svc := NewService(repo)

	password := "n3wpass"
	_, err := svc.Update(context.Background(), 1, UpdateRequest{Password: &password})
	require.NoError(t, err)

	hash := repo.hashes[1]
	require.NotEmpty(t, hash)
	assert.NotEqual(t, password, hash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)))
}

func TestUpdateReplacesSubscriptions(t *testing.T) {
	repo := newFakeProfileRepo()
	repo.users[1] = &User{ID: 1, Name: "Ada", Categories: []int64{1, 2}}
	svc := NewService(repo)

	categories := []int64{3}
	updated, err := svc.Update(context.Background(), 1, UpdateRequest{Categories: &categories})
	require.NoError(t, err)
	assert.Equal(t, []int64{3}, updated.Categories)

	name := "Ada L."
	updated, err = svc.Update(context.Background(), 1, UpdateRequest{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Ada L.", updated.Name)
	assert.Equal(t, []int64{3}, updated.Categories, "omitted categories stay untouched")
}
