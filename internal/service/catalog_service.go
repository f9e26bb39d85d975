package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"vsgifts-api/internal/client"
	"vsgifts-api/internal/models"
	"vsgifts-api/internal/repository"
	"vsgifts-api/internal/util"
)

const (
	featuredLimit = 4
	relatedLimit  = 4
	searchLimit   = 50
)

// SearchIndex mirrors the catalog into a full-text engine.
type SearchIndex interface {
	IndexProduct(ctx context.Context, p *models.Product) error
	DeleteProduct(ctx context.Context, id string) error
	SearchProducts(ctx context.Context, text string, limit int) ([]string, error)
}

type ImageUploader interface {
	PresignProductImageUpload(ctx context.Context, filename, contentType string) (*client.PresignedUpload, error)
}

type CatalogService struct {
	products repository.ProductRepository
	index    SearchIndex
	uploader ImageUploader
	logger   *zap.Logger
	now      func() time.Time
}

type ProductInput struct {
	Name         string          `json:"name"`
	Amount       float64         `json:"amt"`
	Pic          string          `json:"pic"`
	Images       []string        `json:"images"`
	Category     models.Category `json:"category"`
	Description  string          `json:"description"`
	Stock        *int            `json:"stock"`
	Rating       *float64        `json:"rating"`
	ReviewsCount *int            `json:"reviewsCount"`
}

type ImageUploadRequest struct {
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
}

// NewCatalogService wires the catalog. index and uploader may be nil.
func NewCatalogService(products repository.ProductRepository, index SearchIndex, uploader ImageUploader, logger *zap.Logger) *CatalogService {
	return &CatalogService{
		products: products,
		index:    index,
		uploader: uploader,
		logger:   logger.Named("catalog"),
		now:      time.Now,
	}
}

func (s *CatalogService) Create(ctx context.Context, in *ProductInput) (*models.Product, error) {
	name := util.SanitizeInput(in.Name)
	pic := strings.TrimSpace(in.Pic)
	if name == "" || in.Amount <= 0 || pic == "" || in.Category == "" {
		return nil, invalid("Name, amount, picture and category are required")
	}
	if !in.Category.Valid() {
		return nil, invalid("Invalid product category")
	}

	now := s.now().UTC()
	p := &models.Product{
		ID:          uuid.NewString(),
		Name:        name,
		Amount:      in.Amount,
		Pic:         pic,
		Images:      in.Images,
		Category:    in.Category,
		Description: util.SanitizeInput(in.Description),
		Rating:      models.DefaultRating,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if p.Images == nil {
		p.Images = []string{}
	}
	if p.Description == "" {
		p.Description = models.DefaultDescription
	}
	if in.Stock != nil {
		p.Stock = *in.Stock
	}
	if in.Rating != nil {
		p.Rating = *in.Rating
	}
	if in.ReviewsCount != nil {
		p.ReviewsCount = *in.ReviewsCount
	}
	if p.Stock < 0 {
		return nil, invalid("Stock cannot be negative")
	}

	if err := s.products.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	s.reindex(ctx, p)

	s.logger.Info("Product created", util.String("product_id", p.ID), util.String("category", string(p.Category)))
	return p, nil
}

func (s *CatalogService) List(ctx context.Context) ([]*models.Product, error) {
	return s.products.List(ctx)
}

// Featured returns the highest rated products.
func (s *CatalogService) Featured(ctx context.Context) ([]*models.Product, error) {
	return s.products.TopRated(ctx, featuredLimit)
}

func (s *CatalogService) Get(ctx context.Context, id string) (*models.Product, error) {
	p, err := s.products.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrProductNotFound
	}
	return p, err
}

// Related lists other products in the same category.
func (s *CatalogService) Related(ctx context.Context, id string) ([]*models.Product, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.products.ListByCategory(ctx, p.Category, p.ID, relatedLimit)
}

// Update applies a partial change: empty strings, zero amounts and a nil
// images list keep the stored values. Numeric counters are applied only
// when present.
func (s *CatalogService) Update(ctx context.Context, id string, in *ProductInput) (*models.Product, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if name := util.SanitizeInput(in.Name); name != "" {
		p.Name = name
	}
	if in.Amount > 0 {
		p.Amount = in.Amount
	}
	if pic := strings.TrimSpace(in.Pic); pic != "" {
		p.Pic = pic
	}
	if in.Images != nil {
		p.Images = in.Images
	}
	if in.Category != "" {
		if !in.Category.Valid() {
			return nil, invalid("Invalid product category")
		}
		p.Category = in.Category
	}
	if desc := util.SanitizeInput(in.Description); desc != "" {
		p.Description = desc
	}
	if in.Stock != nil {
		if *in.Stock < 0 {
			return nil, invalid("Stock cannot be negative")
		}
		p.Stock = *in.Stock
	}
	if in.Rating != nil {
		p.Rating = *in.Rating
	}
	if in.ReviewsCount != nil {
		p.ReviewsCount = *in.ReviewsCount
	}
	p.UpdatedAt = s.now().UTC()

	if err := s.products.Update(ctx, p); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to update product: %w", err)
	}
	s.reindex(ctx, p)
	return p, nil
}

func (s *CatalogService) Delete(ctx context.Context, id string) error {
	err := s.products.Delete(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrProductNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	if s.index != nil {
		if err := s.index.DeleteProduct(ctx, id); err != nil {
			s.logger.Warn("Failed to remove product from search index", util.String("product_id", id), util.ErrorField(err))
		}
	}
	return nil
}

// Search prefers the full-text index and falls back to a substring scan of
// the catalog when no index is configured or the index errors.
func (s *CatalogService) Search(ctx context.Context, query string) ([]*models.Product, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, invalid("Search query is required")
	}

	if s.index != nil {
		ids, err := s.index.SearchProducts(ctx, query, searchLimit)
		if err == nil {
			found, err := lookupProducts(ctx, s.products, s.logger, ids)
			if err != nil {
				return nil, err
			}
			out := make([]*models.Product, 0, len(found))
			for _, p := range found {
				if p != nil {
					out = append(out, p)
				}
			}
			return out, nil
		}
		s.logger.Warn("Search index unavailable, scanning catalog", util.ErrorField(err))
	}

	all, err := s.products.List(ctx)
	if err != nil {
		return nil, err
	}
	needle := strings.ToLower(query)
	out := []*models.Product{}
	for _, p := range all {
		if strings.Contains(strings.ToLower(p.Name), needle) ||
			strings.Contains(strings.ToLower(p.Description), needle) ||
			strings.Contains(strings.ToLower(string(p.Category)), needle) {
			out = append(out, p)
			if len(out) == searchLimit {
				break
			}
		}
	}
	return out, nil
}

// PresignImageUpload hands an admin a short-lived URL to PUT a product image to.
func (s *CatalogService) PresignImageUpload(ctx context.Context, req *ImageUploadRequest) (*client.PresignedUpload, error) {
	if s.uploader == nil {
		return nil, ErrUnavailable
	}
	if strings.TrimSpace(req.Filename) == "" {
		return nil, invalid("Filename is required")
	}
	if !strings.HasPrefix(req.ContentType, "image/") {
		return nil, invalid("Only image uploads are allowed")
	}
	return s.uploader.PresignProductImageUpload(ctx, req.Filename, req.ContentType)
}

func (s *CatalogService) reindex(ctx context.Context, p *models.Product) {
	if s.index == nil {
		return
	}
	if err := s.index.IndexProduct(ctx, p); err != nil {
		s.logger.Warn("Failed to index product", util.String("product_id", p.ID), util.ErrorField(err))
	}
}
