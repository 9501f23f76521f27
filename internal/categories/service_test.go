package categories

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linkstash/linkstash/internal/platform/httpx"
	"github.com/linkstash/linkstash/internal/platform/storage"
)

type fakeCategoryRepo struct {
	nextID     int64
	categories map[string]*Category
	links      map[int64][]LinkView
	loads      int
	createErr  error
}

func newFakeCategoryRepo() *fakeCategoryRepo {
	return &fakeCategoryRepo{
		nextID:     1,
		categories: map[string]*Category{},
		links:      map[int64][]LinkView{},
	}
}

func (f *fakeCategoryRepo) Create(_ context.Context, category Category) (*Category, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	if _, exists := f.categories[category.Slug]; exists {
		return nil, httpx.ErrDuplicate
	}
	category.ID = f.nextID
	f.nextID++
	f.categories[category.Slug] = &category
	cp := category
	return &cp, nil
}

func (f *fakeCategoryRepo) List(_ context.Context) ([]Category, error) {
	out := []Category{}
	for _, c := range f.categories {
		out = append(out, *c)
	}
	return out, nil
}

func (f *fakeCategoryRepo) GetBySlug(_ context.Context, slug string) (*Category, error) {
	f.loads++
	c, ok := f.categories[slug]
	if !ok {
		return nil, httpx.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (f *fakeCategoryRepo) Update(_ context.Context, slug, name, content string, image *storage.Object) (*Category, error) {
	c, ok := f.categories[slug]
	if !ok {
		return nil, httpx.ErrNotFound
	}
	c.Name = name
	c.Content = content
	if image != nil {
		c.Image = *image
	}
	cp := *c
	return &cp, nil
}

func (f *fakeCategoryRepo) Delete(_ context.Context, slug string) (*Category, error) {
	c, ok := f.categories[slug]
	if !ok {
		return nil, httpx.ErrNotFound
	}
	delete(f.categories, slug)
	return c, nil
}

func (f *fakeCategoryRepo) ListLinks(_ context.Context, categoryID int64, limit, skip int) ([]LinkView, error) {
	return f.links[categoryID], nil
}

type fakeBlobStore struct {
	uploads   []string
	deletes   []string
	uploadErr error
}

func (f *fakeBlobStore) Upload(_ context.Context, key, contentType string, body []byte) (storage.Object, error) {
	if f.uploadErr != nil {
		return storage.Object{}, f.uploadErr
	}
	f.uploads = append(f.uploads, key)
	return storage.Object{URL: "https://blobs.test/" + key, Key: key}, nil
}

func (f *fakeBlobStore) Delete(_ context.Context, key string) error {
	f.deletes = append(f.deletes, key)
	return nil
}

func pngDataURI(t *testing.T) string {
	t.Helper()
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("fake png bytes"))
}

func newCategoryService(t *testing.T) (*Service, *fakeCategoryRepo, *fakeBlobStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	repo := newFakeCategoryRepo()
	blobs := &fakeBlobStore{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewService(logger, repo, blobs, NewCache(client, time.Minute))
	return svc, repo, blobs, mr
}

func TestCreateUploadsImageAndSlugs(t *testing.T) {
	svc, repo, blobs, _ := newCategoryService(t)

	category, err := svc.Create(context.Background(), CreateRequest{
		Name:    "Node JS",
		Image:   pngDataURI(t),
		Content: "All things server side javascript",
	}, 42)
	require.NoError(t, err)
	assert.Equal(t, "node-js", category.Slug)
	assert.Equal(t, int64(42), category.PostedBy)
	require.Len(t, blobs.uploads, 1)
	assert.Contains(t, category.Image.URL, blobs.uploads[0])
	assert.Contains(t, blobs.uploads[0], "category/")

	_, ok := repo.categories["node-js"]
	assert.True(t, ok)
}

func TestCreateRejectsTakenSlug(t *testing.T) {
	svc, repo, blobs, _ := newCategoryService(t)

	_, err := svc.Create(context.Background(), CreateRequest{
		Name:    "Node JS",
		Image:   pngDataURI(t),
		Content: "All things server side javascript",
	}, 42)
	require.NoError(t, err)

	// "Node-JS" slugifies to the same "node-js".
	_, err = svc.Create(context.Background(), CreateRequest{
		Name:    "Node-JS",
		Image:   pngDataURI(t),
		Content: "Duplicate submission",
	}, 42)
	assert.ErrorIs(t, err, httpx.ErrDuplicate)
	assert.Len(t, repo.categories, 1)
	require.Len(t, blobs.uploads, 2)
	assert.Contains(t, blobs.deletes, blobs.uploads[1])
}

func TestCreateCleansUpOrphanOnRepoFailure(t *testing.T) {
	svc, repo, blobs, _ := newCategoryService(t)
	repo.createErr = errors.New("db down")

	_, err := svc.Create(context.Background(), CreateRequest{
		Name:    "Doomed",
		Image:   pngDataURI(t),
		Content: "This write will fail after upload",
	}, 1)
	require.Error(t, err)
	require.Len(t, blobs.uploads, 1)
	assert.Equal(t, blobs.uploads, blobs.deletes, "uploaded object removed after failed insert")
}

func TestCreateRejectsBadImagePayloads(t *testing.T) {
	svc, _, blobs, _ := newCategoryService(t)

	for _, image := range []string{
		"not a data uri",
		"data:text/plain;base64,aGk=",
		"data:image/png;base64,%%%%",
		"data:image/p.ng;base64,aGk=",
	} {
		_, err := svc.Create(context.Background(), CreateRequest{
			Name:    "Bad",
			Image:   image,
			Content: "Content long enough to pass validation",
		}, 1)
		assert.ErrorIs(t, err, httpx.ErrValidation, image)
	}
	assert.Empty(t, blobs.uploads)
}

func TestReadServesSecondHitFromCache(t *testing.T) {
	svc, repo, _, mr := newCategoryService(t)

	category, err := svc.Create(context.Background(), CreateRequest{
		Name:    "Go",
		Image:   pngDataURI(t),
		Content: "Compiled, concurrent, garbage collected",
	}, 1)
	require.NoError(t, err)
	repo.links[category.ID] = []LinkView{{ID: 1, Title: "Go Tour"}}

	repo.loads = 0
	page, err := svc.Read(context.Background(), "go", ReadRequest{})
	require.NoError(t, err)
	assert.Equal(t, "Go", page.Category.Name)
	assert.Len(t, page.Links, 1)
	assert.Equal(t, 1, repo.loads)
	assert.True(t, mr.Exists("categories:page:go:10:0:1"), "page stored under the current version")

	page, err = svc.Read(context.Background(), "go", ReadRequest{})
	require.NoError(t, err)
	assert.Len(t, page.Links, 1)
	assert.Equal(t, 1, repo.loads, "second read must not touch the repository")
}

func TestWriteInvalidatesCachedPages(t *testing.T) {
	svc, repo, _, _ := newCategoryService(t)

	_, err := svc.Create(context.Background(), CreateRequest{
		Name:    "Go",
		Image:   pngDataURI(t),
		Content: "Compiled, concurrent, garbage collected",
	}, 1)
	require.NoError(t, err)

	repo.loads = 0
	_, err = svc.Read(context.Background(), "go", ReadRequest{})
	require.NoError(t, err)
	require.Equal(t, 1, repo.loads)

	_, err = svc.Update(context.Background(), "go", UpdateRequest{
		Name:    "Go",
		Content: "Now with an updated description text",
	})
	require.NoError(t, err)

	_, err = svc.Read(context.Background(), "go", ReadRequest{})
	require.NoError(t, err)
	assert.Equal(t, 3, repo.loads, "version bump forces a reload")
}

func TestUpdateSwapsCoverImage(t *testing.T) {
	svc, _, blobs, _ := newCategoryService(t)

	created, err := svc.Create(context.Background(), CreateRequest{
		Name:    "Go",
		Image:   pngDataURI(t),
		Content: "Compiled, concurrent, garbage collected",
	}, 1)
	require.NoError(t, err)
	oldKey := created.Image.Key

	updated, err := svc.Update(context.Background(), "go", UpdateRequest{
		Name:    "Go",
		Image:   pngDataURI(t),
		Content: "Same category, brand new cover image",
	})
	require.NoError(t, err)
	assert.NotEqual(t, oldKey, updated.Image.Key)
	assert.Contains(t, blobs.deletes, oldKey)
}

func TestDeleteRemovesCategoryAndImage(t *testing.T) {
	svc, repo, blobs, _ := newCategoryService(t)

	created, err := svc.Create(context.Background(), CreateRequest{
		Name:    "Go",
		Image:   pngDataURI(t),
		Content: "Compiled, concurrent, garbage collected",
	}, 1)
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), "go"))
	assert.Empty(t, repo.categories)
	assert.Contains(t, blobs.deletes, created.Image.Key)

	err = svc.Delete(context.Background(), "go")
	assert.ErrorIs(t, err, httpx.ErrNotFound)
}
