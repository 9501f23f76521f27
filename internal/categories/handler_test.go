package categories

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linkstash/linkstash/internal/auth"
	"github.com/linkstash/linkstash/internal/platform/httpx"
	"github.com/linkstash/linkstash/internal/platform/storage"
	"github.com/linkstash/linkstash/internal/token"
)

type stubAccountRepo struct {
	users map[int64]*auth.User
}

func (s *stubAccountRepo) FindByEmail(context.Context, string) (*auth.User, error) {
	return nil, httpx.ErrNotFound
}

func (s *stubAccountRepo) FindByID(_ context.Context, id int64) (*auth.User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, httpx.ErrNotFound
	}
	return u, nil
}

func (s *stubAccountRepo) FindByResetToken(context.Context, string) (*auth.User, error) {
	return nil, httpx.ErrNotFound
}

func (s *stubAccountRepo) Create(context.Context, auth.User) (int64, error) { return 0, nil }

func (s *stubAccountRepo) SetResetToken(context.Context, int64, string) error { return nil }

func (s *stubAccountRepo) ResetPassword(context.Context, int64, string) error { return nil }

type categoryTestEnv struct {
	router chi.Router
	codec  *token.Codec
}

func newCategoryTestEnv(t *testing.T) (*categoryTestEnv, *fakeCategoryRepo, *fakeBlobStore) {
	t.Helper()

	codec, err := token.NewCodec("activation-secret", "reset-secret", "session-secret")
	require.NoError(t, err)

	users := &stubAccountRepo{users: map[int64]*auth.User{
		7:  {ID: 7, Username: "reader", Email: "reader@example.com", Role: auth.RoleUser},
		99: {ID: 99, Username: "boss", Email: "boss@example.com", Role: auth.RoleAdmin},
	}}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	guard := auth.Middleware{Logger: logger, Codec: codec, Repo: users}

	svc, repo, blobs, _ := newCategoryService(t)
	handler := NewHandler(logger, svc, guard)

	router := chi.NewRouter()
	router.Route("/api", handler.MountRoutes)

	return &categoryTestEnv{router: router, codec: codec}, repo, blobs
}

func (e *categoryTestEnv) request(t *testing.T, method, path string, body any, userID int64) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if userID != 0 {
		tok, err := e.codec.IssueSession(userID)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func TestListCategoriesIsPublic(t *testing.T) {
	env, repo, _ := newCategoryTestEnv(t)
	repo.categories["node-js"] = &Category{ID: 1, Name: "Node JS", Slug: "node-js"}

	rec := env.request(t, http.MethodGet, "/api/categories", nil, 0)
	require.Equal(t, http.StatusOK, rec.Code)

	var categories []Category
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &categories))
	require.Len(t, categories, 1)
	assert.Equal(t, "node-js", categories[0].Slug)
}

func TestReadCategoryIsPublic(t *testing.T) {
	env, repo, _ := newCategoryTestEnv(t)
	repo.categories["node-js"] = &Category{ID: 1, Name: "Node JS", Slug: "node-js"}
	repo.links[1] = []LinkView{{ID: 4, Title: "Express guide", Slug: "express-guide"}}

	rec := env.request(t, http.MethodPost, "/api/category/node-js", nil, 0)
	require.Equal(t, http.StatusOK, rec.Code)

	var page Page
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Equal(t, "Node JS", page.Category.Name)
	require.Len(t, page.Links, 1)
	assert.Equal(t, "express-guide", page.Links[0].Slug)

	rec = env.request(t, http.MethodPost, "/api/category/missing", nil, 0)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateCategoryRequiresAdmin(t *testing.T) {
	env, _, _ := newCategoryTestEnv(t)

	body := CreateRequest{
		Name:    "Node JS",
		Image:   pngDataURI(t),
		Content: "All things server side javascript",
	}

	rec := env.request(t, http.MethodPost, "/api/category", body, 0)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.request(t, http.MethodPost, "/api/category", body, 7)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCreateCategoryAsAdmin(t *testing.T) {
	env, repo, blobs := newCategoryTestEnv(t)

	rec := env.request(t, http.MethodPost, "/api/category", CreateRequest{
		Name:    "Node JS",
		Image:   pngDataURI(t),
		Content: "All things server side javascript",
	}, 99)
	require.Equal(t, http.StatusCreated, rec.Code)

	var category Category
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &category))
	assert.Equal(t, "node-js", category.Slug)
	assert.Equal(t, int64(99), category.PostedBy)
	assert.Len(t, blobs.uploads, 1)

	_, ok := repo.categories["node-js"]
	assert.True(t, ok)
}

func TestDeleteCategoryAsAdmin(t *testing.T) {
	env, repo, blobs := newCategoryTestEnv(t)
	repo.categories["node-js"] = &Category{
		ID: 1, Name: "Node JS", Slug: "node-js",
		Image: storage.Object{Key: "category/node-js.png", URL: "https://blobs.test/category/node-js.png"},
	}

	rec := env.request(t, http.MethodDelete, "/api/category/node-js", nil, 7)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.request(t, http.MethodDelete, "/api/category/node-js", nil, 99)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Category deleted successfully")
	assert.Empty(t, repo.categories)
	assert.Contains(t, blobs.deletes, "category/node-js.png")
}
