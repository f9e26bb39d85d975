package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"vsgifts-api/internal/client"
	"vsgifts-api/internal/models"
	"vsgifts-api/internal/repository/memory"
)

type fakeIndex struct {
	mu        sync.Mutex
	indexed   map[string]string
	deleted   []string
	hits      []string
	searchErr error
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{indexed: map[string]string{}}
}

func (f *fakeIndex) IndexProduct(_ context.Context, p *models.Product) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.indexed[p.ID] = p.Name
	return nil
}

func (f *fakeIndex) DeleteProduct(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeIndex) SearchProducts(context.Context, string, int) ([]string, error) {
	return f.hits, f.searchErr
}

type fakeUploader struct{}

func (fakeUploader) PresignProductImageUpload(_ context.Context, filename, _ string) (*client.PresignedUpload, error) {
	return &client.PresignedUpload{URL: "https://uploads.example/" + filename, Method: "PUT", Key: "products/" + filename}, nil
}

func newCatalog(t *testing.T, index SearchIndex, uploader ImageUploader) (*CatalogService, *memory.ProductRepository) {
	t.Helper()
	repo := memory.NewProductRepository()
	svc := NewCatalogService(repo, index, uploader, zap.NewNop())
	clock := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	svc.now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}
	return svc, repo
}

func createProduct(t *testing.T, svc *CatalogService, name string, category models.Category, rating float64) *models.Product {
	t.Helper()
	p, err := svc.Create(context.Background(), &ProductInput{
		Name:     name,
		Amount:   499,
		Pic:      "https://cdn.example/" + name + ".jpg",
		Category: category,
		Rating:   &rating,
	})
	require.NoError(t, err)
	return p
}

func TestCreateProductAppliesDefaults(t *testing.T) {
	idx := newFakeIndex()
	svc, _ := newCatalog(t, idx, nil)

	p, err := svc.Create(context.Background(), &ProductInput{
		Name: "Rose Bouquet", Amount: 799, Pic: "rose.jpg", Category: models.CategoryFlowers,
	})
	require.NoError(t, err)
	assert.Equal(t, models.DefaultDescription, p.Description)
	assert.Equal(t, models.DefaultRating, p.Rating)
	assert.Zero(t, p.Stock)
	assert.Zero(t, p.ReviewsCount)
	assert.NotNil(t, p.Images)
	assert.Equal(t, "Rose Bouquet", idx.indexed[p.ID])
}

func TestCreateProductValidation(t *testing.T) {
	svc, _ := newCatalog(t, nil, nil)

	_, err := svc.Create(context.Background(), &ProductInput{Name: "No price", Pic: "x.jpg", Category: models.CategoryCups})
	assert.Equal(t, "Name, amount, picture and category are required", validationMessage(t, err))

	_, err = svc.Create(context.Background(), &ProductInput{Name: "Odd", Amount: 10, Pic: "x.jpg", Category: "Spaceships"})
	assert.Equal(t, "Invalid product category", validationMessage(t, err))
}

func TestFeaturedAndRelated(t *testing.T) {
	svc, _ := newCatalog(t, nil, nil)
	ctx := context.Background()

	mug := createProduct(t, svc, "Photo Mug", models.CategoryCups, 4.1)
	createProduct(t, svc, "Magic Mug", models.CategoryCups, 4.9)
	createProduct(t, svc, "Travel Cup", models.CategoryCups, 3.8)
	createProduct(t, svc, "Moon Lamp", models.CategoryLamps, 4.7)
	createProduct(t, svc, "Rose Frame", models.CategoryFrames, 4.6)

	featured, err := svc.Featured(ctx)
	require.NoError(t, err)
	require.Len(t, featured, 4)
	assert.Equal(t, "Magic Mug", featured[0].Name)
	for i := 1; i < len(featured); i++ {
		assert.GreaterOrEqual(t, featured[i-1].Rating, featured[i].Rating)
	}

	related, err := svc.Related(ctx, mug.ID)
	require.NoError(t, err)
	require.Len(t, related, 2)
	for _, p := range related {
		assert.Equal(t, models.CategoryCups, p.Category)
		assert.NotEqual(t, mug.ID, p.ID)
	}

	_, err = svc.Related(ctx, "missing")
	assert.ErrorIs(t, err, ErrProductNotFound)

	all, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 5)
	assert.Equal(t, "Rose Frame", all[0].Name)
}

func TestUpdateProductIsPartial(t *testing.T) {
	idx := newFakeIndex()
	svc, _ := newCatalog(t, idx, nil)
	ctx := context.Background()
	p := createProduct(t, svc, "Photo Mug", models.CategoryCups, 4.1)

	stock := 0
	updated, err := svc.Update(ctx, p.ID, &ProductInput{Name: "Photo Mug XL", Stock: &stock})
	require.NoError(t, err)
	assert.Equal(t, "Photo Mug XL", updated.Name)
	assert.Equal(t, p.Amount, updated.Amount)
	assert.Equal(t, p.Pic, updated.Pic)
	assert.Equal(t, p.Category, updated.Category)
	assert.Zero(t, updated.Stock)
	assert.True(t, updated.UpdatedAt.After(p.UpdatedAt))
	assert.Equal(t, "Photo Mug XL", idx.indexed[p.ID])

	seven := 7
	updated, err = svc.Update(ctx, p.ID, &ProductInput{Stock: &seven, Images: []string{}})
	require.NoError(t, err)
	assert.Equal(t, 7, updated.Stock)
	assert.Empty(t, updated.Images)

	_, err = svc.Update(ctx, "missing", &ProductInput{Name: "x"})
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestDeleteProduct(t *testing.T) {
	idx := newFakeIndex()
	svc, _ := newCatalog(t, idx, nil)
	p := createProduct(t, svc, "Photo Mug", models.CategoryCups, 4.1)

	require.NoError(t, svc.Delete(context.Background(), p.ID))
	assert.Equal(t, []string{p.ID}, idx.deleted)
	assert.ErrorIs(t, svc.Delete(context.Background(), p.ID), ErrProductNotFound)
}

func TestSearchUsesIndexOrder(t *testing.T) {
	idx := newFakeIndex()
	svc, _ := newCatalog(t, idx, nil)
	a := createProduct(t, svc, "Photo Mug", models.CategoryCups, 4.1)
	b := createProduct(t, svc, "Moon Lamp", models.CategoryLamps, 4.7)
	idx.hits = []string{b.ID, "stale-id", a.ID}

	got, err := svc.Search(context.Background(), "gift")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, b.ID, got[0].ID)
	assert.Equal(t, a.ID, got[1].ID)
}

func TestSearchFallsBackToScan(t *testing.T) {
	idx := newFakeIndex()
	idx.searchErr = errors.New("cluster red")
	svc, _ := newCatalog(t, idx, nil)
	createProduct(t, svc, "Photo Mug", models.CategoryCups, 4.1)
	createProduct(t, svc, "Moon Lamp", models.CategoryLamps, 4.7)

	got, err := svc.Search(context.Background(), "MUG")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Photo Mug", got[0].Name)

	_, err = svc.Search(context.Background(), "  ")
	assert.Equal(t, "Search query is required", validationMessage(t, err))
}

func TestPresignImageUpload(t *testing.T) {
	svc, _ := newCatalog(t, nil, nil)
	_, err := svc.PresignImageUpload(context.Background(), &ImageUploadRequest{Filename: "a.png", ContentType: "image/png"})
	assert.ErrorIs(t, err, ErrUnavailable)

	svc, _ = newCatalog(t, nil, fakeUploader{})
	_, err = svc.PresignImageUpload(context.Background(), &ImageUploadRequest{Filename: "a.exe", ContentType: "application/octet-stream"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	up, err := svc.PresignImageUpload(context.Background(), &ImageUploadRequest{Filename: "a.png", ContentType: "image/png"})
	require.NoError(t, err)
	assert.Equal(t, "products/a.png", up.Key)
}
